package credentials

import (
	"fmt"
	"regexp"

	"github.com/mollybeach/secure-user-api/internal/auth"
)

const (
	minUsernameLen = 3
	maxUsernameLen = 32
	minPasswordLen = 6
)

var (
	usernameRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	emailRe    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// validateRegistration checks request shape before anything touches storage
// or the hasher. All failures are ErrInvalidInput with a human-readable
// reason; none of them echo the password back.
func validateRegistration(username, email, password string) error {
	if len(username) < minUsernameLen || len(username) > maxUsernameLen {
		return fmt.Errorf("%w: username must be %d-%d characters", auth.ErrInvalidInput, minUsernameLen, maxUsernameLen)
	}
	if !usernameRe.MatchString(username) {
		return fmt.Errorf("%w: username may only contain letters, numbers, underscores, and dashes", auth.ErrInvalidInput)
	}
	if !emailRe.MatchString(email) {
		return fmt.Errorf("%w: invalid email address", auth.ErrInvalidInput)
	}
	if len(password) < minPasswordLen {
		return fmt.Errorf("%w: password must be at least %d characters", auth.ErrInvalidInput, minPasswordLen)
	}
	return nil
}
