package auth

import "errors"

// Sentinel errors for the authentication core. They are assigned at the point
// of detection and travel unchanged to the HTTP boundary, which owns the
// mapping to status codes. Nothing below the boundary inspects statuses.
var (
	// ErrInvalidInput marks malformed request data (bad email shape, short
	// password, illegal username characters, empty password on hashing).
	ErrInvalidInput = errors.New("auth: invalid input")

	// ErrInvalidCredentials is deliberately returned for both "no such
	// email" and "wrong password" so login responses cannot be used to
	// enumerate accounts.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")

	// ErrDuplicateIdentity marks a registration that collides with an
	// existing email or username.
	ErrDuplicateIdentity = errors.New("auth: identity already exists")

	// ErrTokenExpired marks a well-formed token past its expiry.
	ErrTokenExpired = errors.New("auth: token expired")

	// ErrTokenInvalid marks a malformed token or a bad signature.
	ErrTokenInvalid = errors.New("auth: token invalid")

	// ErrTokenRevoked marks a token that was denylisted by logout before
	// its natural expiry.
	ErrTokenRevoked = errors.New("auth: token revoked")

	// ErrMissingCredential marks a protected request without an
	// Authorization header.
	ErrMissingCredential = errors.New("auth: missing credential")

	// ErrMalformedHeader marks an Authorization header that is not of the
	// form "Bearer <token>".
	ErrMalformedHeader = errors.New("auth: malformed authorization header")

	// ErrUnknownSubject marks a valid token whose subject no longer exists.
	// The holder is treated as unauthenticated, not as a server error.
	ErrUnknownSubject = errors.New("auth: unknown subject")

	// ErrProfileIncomplete marks an external profile that cannot be safely
	// resolved to an account: missing provider id, no email at all, or an
	// unverified email that matches an existing local account.
	ErrProfileIncomplete = errors.New("auth: external profile incomplete")
)
