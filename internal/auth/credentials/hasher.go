package credentials

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/mollybeach/secure-user-api/internal/auth"
)

// Hasher derives and verifies salted password hashes with bcrypt. The salt
// is generated per call and embedded in the encoded output, so the same
// password hashes to a different string every time. Cost is injected from
// config; bcrypt.DefaultCost keeps a single hash in the tens of milliseconds.
type Hasher struct {
	cost int
}

func NewHasher(cost int) (*Hasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("credentials: bcrypt cost %d out of range", cost)
	}
	return &Hasher{cost: cost}, nil
}

// Hash returns the encoded salt+hash for a password. The raw password is
// never stored or logged by this package.
func (h *Hasher) Hash(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("%w: password must not be empty", auth.ErrInvalidInput)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("credentials: hash: %w", err)
	}
	return string(hashed), nil
}

// Verify recomputes the hash with the salt embedded in stored and compares
// in constant time. A mismatch is a false return, never an error.
func (h *Hasher) Verify(password, stored string) bool {
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil
}
