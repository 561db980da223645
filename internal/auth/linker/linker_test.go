package linker

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mollybeach/secure-user-api/internal/auth"
	"github.com/mollybeach/secure-user-api/internal/user"
)

func githubProfile(id, login, email string) *auth.ExternalProfile {
	return &auth.ExternalProfile{
		Provider:       "github",
		ProviderUserID: id,
		Username:       login,
		Email:          email,
		EmailVerified:  true,
	}
}

func TestLinkOrCreateNewUser(t *testing.T) {
	store := user.NewMemoryStore()
	l := New(store)
	ctx := context.Background()

	u, err := l.LinkOrCreate(ctx, githubProfile("42", "octocat", "octo@x.com"))
	require.NoError(t, err)
	assert.Equal(t, "octo@x.com", u.Email)
	assert.Equal(t, "octocat", u.Username)
	assert.Equal(t, "github:42", u.ExternalID)
	assert.Empty(t, u.PasswordHash)
}

func TestLinkOrCreateIsIdempotent(t *testing.T) {
	store := user.NewMemoryStore()
	l := New(store)
	ctx := context.Background()

	first, err := l.LinkOrCreate(ctx, githubProfile("42", "octocat", "octo@x.com"))
	require.NoError(t, err)

	second, err := l.LinkOrCreate(ctx, githubProfile("42", "octocat", "octo@x.com"))
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
}

func TestLinkOrCreateAttachesToExistingEmail(t *testing.T) {
	store := user.NewMemoryStore()
	l := New(store)
	ctx := context.Background()

	// A user registered locally first; the OAuth callback for the same
	// email must link rather than create a duplicate account.
	local, err := store.Create(ctx, user.NewUser{
		Username:     "alice",
		Email:        "alice@x.com",
		PasswordHash: "$2a$10$stub",
	})
	require.NoError(t, err)

	linked, err := l.LinkOrCreate(ctx, githubProfile("7", "alice-gh", "alice@x.com"))
	require.NoError(t, err)
	assert.Equal(t, local.ID, linked.ID)
	assert.Equal(t, "github:7", linked.ExternalID)

	// The stored row carries the external id now.
	reloaded, err := store.FindByExternalID(ctx, "github:7")
	require.NoError(t, err)
	assert.Equal(t, local.ID, reloaded.ID)
}

func TestLinkOrCreateConcurrent(t *testing.T) {
	store := user.NewMemoryStore()
	l := New(store)

	const callers = 16
	ids := make([]int64, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			u, err := l.LinkOrCreate(context.Background(), githubProfile("42", "octocat", "octo@x.com"))
			if assert.NoError(t, err) {
				ids[i] = u.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id, "concurrent callbacks must converge on one user")
	}
}

func TestLinkOrCreateUnverifiedEmailDoesNotAttach(t *testing.T) {
	store := user.NewMemoryStore()
	l := New(store)
	ctx := context.Background()

	local, err := store.Create(ctx, user.NewUser{
		Username:     "alice",
		Email:        "alice@x.com",
		PasswordHash: "$2a$10$stub",
	})
	require.NoError(t, err)

	// The provider has not verified the address, so claiming it must not
	// bind the external identity to alice's account.
	p := githubProfile("7", "alice-gh", "alice@x.com")
	p.EmailVerified = false

	_, err = l.LinkOrCreate(ctx, p)
	assert.ErrorIs(t, err, auth.ErrProfileIncomplete)

	reloaded, err := store.FindByID(ctx, local.ID)
	require.NoError(t, err)
	assert.Empty(t, reloaded.ExternalID)
}

func TestLinkOrCreateProfileIncomplete(t *testing.T) {
	store := user.NewMemoryStore()
	l := New(store)
	ctx := context.Background()

	// No email and no existing account matching the provider id.
	_, err := l.LinkOrCreate(ctx, githubProfile("99", "ghost", ""))
	assert.ErrorIs(t, err, auth.ErrProfileIncomplete)

	// Missing provider id is incomplete no matter what else is present.
	_, err = l.LinkOrCreate(ctx, &auth.ExternalProfile{Provider: "github", Email: "x@x.com"})
	assert.ErrorIs(t, err, auth.ErrProfileIncomplete)

	_, err = l.LinkOrCreate(ctx, nil)
	assert.ErrorIs(t, err, auth.ErrProfileIncomplete)
}

func TestLinkOrCreateNoEmailButKnownProviderID(t *testing.T) {
	store := user.NewMemoryStore()
	l := New(store)
	ctx := context.Background()

	_, err := l.LinkOrCreate(ctx, githubProfile("42", "octocat", "octo@x.com"))
	require.NoError(t, err)

	// Once linked, a later callback without an email still resolves by
	// provider id.
	u, err := l.LinkOrCreate(ctx, githubProfile("42", "octocat", ""))
	require.NoError(t, err)
	assert.Equal(t, "github:42", u.ExternalID)
}

func TestLinkOrCreateUsernameCollision(t *testing.T) {
	store := user.NewMemoryStore()
	l := New(store)
	ctx := context.Background()

	// A local user already owns the provider login as a username; the
	// federated account is created unnamed instead of failing.
	_, err := store.Create(ctx, user.NewUser{
		Username:     "octocat",
		Email:        "other@x.com",
		PasswordHash: "$2a$10$stub",
	})
	require.NoError(t, err)

	u, err := l.LinkOrCreate(ctx, githubProfile("42", "octocat", "octo@x.com"))
	require.NoError(t, err)
	assert.Empty(t, u.Username)
	assert.Equal(t, "octo@x.com", u.Email)
}
