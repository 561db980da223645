package linker

import (
	"context"
	"errors"
	"fmt"

	"github.com/mollybeach/secure-user-api/internal/auth"
	"github.com/mollybeach/secure-user-api/internal/logger"
	"github.com/mollybeach/secure-user-api/internal/user"
)

// Linker reconciles a verified external profile with exactly one local user.
// It is the only place where identity-to-user mapping decisions live.
//
// The linker does no locking of its own: at-most-one-user-per-external-id
// under concurrent callbacks is the store's FindOrCreateByExternalID
// contract, backed by a uniqueness constraint.
type Linker struct {
	store user.Store
}

func New(store user.Store) *Linker {
	return &Linker{store: store}
}

// LinkOrCreate resolves a profile to a local user:
//
//  1. by external id — returning user, nothing to change
//  2. by email — a local account registered with the same address gets the
//     external id attached instead of a duplicate account being created;
//     this path requires the provider to have verified the address
//  3. otherwise a new federated-only user is created atomically
//
// Calling it twice with the same profile yields the same user id.
func (l *Linker) LinkOrCreate(ctx context.Context, profile *auth.ExternalProfile) (*user.User, error) {
	if profile == nil || profile.Provider == "" || profile.ProviderUserID == "" {
		return nil, fmt.Errorf("%w: missing provider id", auth.ErrProfileIncomplete)
	}

	key := profile.ExternalKey()

	u, err := l.store.FindByExternalID(ctx, key)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, user.ErrNotFound) {
		return nil, fmt.Errorf("linker: lookup by external id: %w", err)
	}

	// No account carries this external id yet. Without an email there is
	// nothing safe to match or create against.
	if profile.Email == "" {
		return nil, fmt.Errorf("%w: provider supplied no email", auth.ErrProfileIncomplete)
	}

	u, err = l.store.FindByEmail(ctx, profile.Email)
	if err == nil {
		// Attaching by email address hands the external identity control
		// of an existing local account, so it requires the provider to
		// assert ownership of that address.
		if !profile.EmailVerified {
			return nil, fmt.Errorf("%w: unverified email matches an existing account", auth.ErrProfileIncomplete)
		}

		uerr := l.store.UpdateExternalID(ctx, u.ID, key)
		if errors.Is(uerr, user.ErrDuplicate) {
			// A concurrent callback won the race and attached the key
			// elsewhere; that row is the answer.
			return l.store.FindByExternalID(ctx, key)
		}
		if uerr != nil {
			return nil, fmt.Errorf("linker: attach external id: %w", uerr)
		}
		u.ExternalID = key
		logger.Info("external identity linked", map[string]any{
			"user_id":  u.ID,
			"provider": profile.Provider,
		})
		return u, nil
	}
	if !errors.Is(err, user.ErrNotFound) {
		return nil, fmt.Errorf("linker: lookup by email: %w", err)
	}

	u, err = l.createFromProfile(ctx, profile, key)
	if err != nil {
		return nil, err
	}

	logger.Info("user created from external profile", map[string]any{
		"user_id":  u.ID,
		"provider": profile.Provider,
	})
	return u, nil
}

func (l *Linker) createFromProfile(ctx context.Context, profile *auth.ExternalProfile, key string) (*user.User, error) {
	nu := user.NewUser{
		Username:   profile.Username,
		Email:      profile.Email,
		ExternalID: key,
	}

	u, err := l.store.FindOrCreateByExternalID(ctx, nu)
	if errors.Is(err, user.ErrDuplicate) && nu.Username != "" {
		// The provider login is already taken as a local username. The
		// account can live without one; retry unnamed.
		nu.Username = ""
		u, err = l.store.FindOrCreateByExternalID(ctx, nu)
	}
	if err != nil {
		return nil, fmt.Errorf("linker: create: %w", err)
	}
	return u, nil
}
