package user

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound means no user matched the lookup.
	ErrNotFound = errors.New("user: not found")
	// ErrDuplicate means a write collided with a uniqueness constraint
	// (email, username, or external id).
	ErrDuplicate = errors.New("user: duplicate")
)

// User is one local account. Empty string means "not set" for the nullable
// columns; at least one of PasswordHash or ExternalID is always present,
// enforced both here and by a CHECK constraint in the schema.
type User struct {
	ID           int64
	Username     string // optional for federated-only accounts
	Email        string // unique, compared case-insensitively
	PasswordHash string // empty when the account was created via OAuth only
	ExternalID   string // "<provider>:<provider_user_id>", empty for local-only
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Public is the safe outward view of a user. It never carries the password
// hash or the external provider id.
type Public struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username,omitempty"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Public returns the view of u that may leave the service.
func (u *User) Public() Public {
	return Public{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// NewUser describes a user to be created. The store assigns ID and
// timestamps.
type NewUser struct {
	Username     string
	Email        string
	PasswordHash string
	ExternalID   string
}

// Store is the persistence contract the auth core depends on.
//
// FindOrCreateByExternalID must be atomic at the store boundary: two
// concurrent calls with the same external id must converge on a single row.
// Implementations back this with a uniqueness constraint plus a conditional
// insert, not with in-process locking.
type Store interface {
	FindByID(ctx context.Context, id int64) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	FindByExternalID(ctx context.Context, externalID string) (*User, error)

	// ExistsByEmailOrUsername is a single combined existence query so
	// registration does one round-trip instead of two. The schema's unique
	// indexes remain the source of truth for the check-then-create race.
	ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error)

	Create(ctx context.Context, nu NewUser) (*User, error)
	UpdateExternalID(ctx context.Context, id int64, externalID string) error
	FindOrCreateByExternalID(ctx context.Context, nu NewUser) (*User, error)
}
