package user

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store used in tests and local development. It
// honors the same uniqueness rules as the Postgres schema and implements
// FindOrCreateByExternalID atomically under its mutex, so it satisfies the
// concurrency contract the linker depends on.
type MemoryStore struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*User
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextID: 1,
		users:  make(map[int64]*User),
	}
}

func (s *MemoryStore) FindByID(_ context.Context, id int64) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyUser(u), nil
}

func (s *MemoryStore) FindByEmail(_ context.Context, email string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findLocked(func(u *User) bool {
		return strings.EqualFold(u.Email, email)
	})
}

func (s *MemoryStore) FindByUsername(_ context.Context, username string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findLocked(func(u *User) bool {
		return u.Username != "" && u.Username == username
	})
}

func (s *MemoryStore) FindByExternalID(_ context.Context, externalID string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findLocked(func(u *User) bool {
		return u.ExternalID != "" && u.ExternalID == externalID
	})
}

func (s *MemoryStore) ExistsByEmailOrUsername(_ context.Context, email, username string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return true, nil
		}
		if u.Username != "" && u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) Create(_ context.Context, nu NewUser) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createLocked(nu)
}

func (s *MemoryStore) UpdateExternalID(_ context.Context, id int64, externalID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}

	for _, other := range s.users {
		if other.ID != id && other.ExternalID == externalID {
			return ErrDuplicate
		}
	}

	u.ExternalID = externalID
	u.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) FindOrCreateByExternalID(_ context.Context, nu NewUser) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, err := s.findLocked(func(u *User) bool {
		return u.ExternalID != "" && u.ExternalID == nu.ExternalID
	}); err == nil {
		return existing, nil
	}

	return s.createLocked(nu)
}

func (s *MemoryStore) findLocked(match func(*User) bool) (*User, error) {
	for _, u := range s.users {
		if match(u) {
			return copyUser(u), nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) createLocked(nu NewUser) (*User, error) {
	for _, u := range s.users {
		if strings.EqualFold(u.Email, nu.Email) {
			return nil, ErrDuplicate
		}
		if nu.Username != "" && u.Username == nu.Username {
			return nil, ErrDuplicate
		}
		if nu.ExternalID != "" && u.ExternalID == nu.ExternalID {
			return nil, ErrDuplicate
		}
	}

	now := time.Now()
	u := &User{
		ID:           s.nextID,
		Username:     nu.Username,
		Email:        nu.Email,
		PasswordHash: nu.PasswordHash,
		ExternalID:   nu.ExternalID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.nextID++
	s.users[u.ID] = u

	return copyUser(u), nil
}

// Delete removes a user. Used in tests to model an account deleted after
// token issuance.
func (s *MemoryStore) Delete(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, id)
}

func copyUser(u *User) *User {
	c := *u
	return &c
}
