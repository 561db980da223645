package credentials

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/mollybeach/secure-user-api/internal/auth"
	"github.com/mollybeach/secure-user-api/internal/auth/token"
	"github.com/mollybeach/secure-user-api/internal/logger"
	"github.com/mollybeach/secure-user-api/internal/user"
)

// Service orchestrates password-based login and registration: store lookup,
// hash verification, token issuance. It holds no per-request state.
//
// bcrypt work is gated by a weighted semaphore sized to GOMAXPROCS so a
// burst of logins cannot saturate the scheduler and starve unrelated request
// handling.
type Service struct {
	store  user.Store
	hasher *Hasher
	tokens *token.Service

	tokenTTL time.Duration
	sem      *semaphore.Weighted

	// dummyHash is compared against when the email is unknown so login
	// latency does not reveal whether an account exists.
	dummyHash string
}

func NewService(store user.Store, hasher *Hasher, tokens *token.Service, tokenTTL time.Duration) (*Service, error) {
	dummy, err := hasher.Hash("secure-user-api-dummy-credential")
	if err != nil {
		return nil, err
	}

	return &Service{
		store:     store,
		hasher:    hasher,
		tokens:    tokens,
		tokenTTL:  tokenTTL,
		sem:       semaphore.NewWeighted(int64(runtime.GOMAXPROCS(0))),
		dummyHash: dummy,
	}, nil
}

// Login verifies email+password and returns a signed token with the public
// view of the account. Unknown email and wrong password are indistinguishable
// to the caller: both are ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string) (string, user.Public, error) {
	u, err := s.store.FindByEmail(ctx, email)
	if errors.Is(err, user.ErrNotFound) {
		// Burn a comparison anyway to keep timing flat.
		_, verr := s.verify(ctx, password, s.dummyHash)
		if verr != nil {
			return "", user.Public{}, verr
		}
		return "", user.Public{}, auth.ErrInvalidCredentials
	}
	if err != nil {
		return "", user.Public{}, fmt.Errorf("credentials: lookup: %w", err)
	}

	// Federated-only accounts have no password to check.
	stored := u.PasswordHash
	if stored == "" {
		stored = s.dummyHash
	}

	ok, err := s.verify(ctx, password, stored)
	if err != nil {
		return "", user.Public{}, err
	}
	if !ok || u.PasswordHash == "" {
		logger.Warn("login rejected", map[string]any{
			"user_id": u.ID,
			"kind":    "invalid_credentials",
		})
		return "", user.Public{}, auth.ErrInvalidCredentials
	}

	signed, err := s.tokens.Issue(u.ID, s.tokenTTL)
	if err != nil {
		return "", user.Public{}, err
	}

	logger.Info("login succeeded", map[string]any{"user_id": u.ID})
	return signed, u.Public(), nil
}

// Register validates shape, checks for collisions, and creates the account
// with a hashed credential. The combined existence query avoids a second
// round-trip, but the schema's unique indexes remain the source of truth:
// a duplicate-key failure on the insert is reported the same way.
func (s *Service) Register(ctx context.Context, username, email, password string) (*user.User, error) {
	if err := validateRegistration(username, email, password); err != nil {
		return nil, err
	}

	exists, err := s.store.ExistsByEmailOrUsername(ctx, email, username)
	if err != nil {
		return nil, fmt.Errorf("credentials: existence check: %w", err)
	}
	if exists {
		return nil, auth.ErrDuplicateIdentity
	}

	hash, err := s.hash(ctx, password)
	if err != nil {
		return nil, err
	}

	u, err := s.store.Create(ctx, user.NewUser{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	})
	if errors.Is(err, user.ErrDuplicate) {
		return nil, auth.ErrDuplicateIdentity
	}
	if err != nil {
		return nil, fmt.Errorf("credentials: create: %w", err)
	}

	logger.Info("user registered", map[string]any{"user_id": u.ID})
	return u, nil
}

func (s *Service) hash(ctx context.Context, password string) (string, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer s.sem.Release(1)
	return s.hasher.Hash(password)
}

func (s *Service) verify(ctx context.Context, password, stored string) (bool, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return false, err
	}
	defer s.sem.Release(1)
	return s.hasher.Verify(password, stored), nil
}
