package token

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mollybeach/secure-user-api/internal/auth"
)

// Claims is the decoded payload of a verified token. The wire format carries
// exactly {sub, iat, exp}; no other PII goes into tokens.
type Claims struct {
	SubjectID int64
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Service issues and verifies HS256-signed bearer tokens. It holds only the
// shared signing secret and is safe for concurrent use. Verification is pure
// computation over the input and the secret.
type Service struct {
	secret []byte
}

func NewService(secret []byte) (*Service, error) {
	if len(secret) == 0 {
		return nil, errors.New("token: signing secret required")
	}
	return &Service{secret: secret}, nil
}

// Issue signs claims {sub, iat, exp} for the given subject. The caller
// supplies the ttl; a zero or negative ttl produces an already-expired token
// (exp == iat is past the validity window).
func (s *Service) Issue(subjectID int64, ttl time.Duration) (string, error) {
	now := time.Now()

	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(subjectID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("token: sign: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a compact token. Failures are collapsed into
// the two externally meaningful kinds: ErrTokenExpired for a well-signed
// token past exp, ErrTokenInvalid for everything else (bad signature, wrong
// algorithm, malformed structure, missing claims).
func (s *Service) Verify(tokenStr string) (Claims, error) {
	// Strict decoding rejects non-canonical base64url segments. Without it
	// a flipped trailing padding bit decodes to the same signature bytes,
	// so a visibly altered token would still verify.
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
	)

	parsed, err := parser.ParseWithClaims(tokenStr, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, auth.ErrTokenExpired
		}
		return Claims{}, auth.ErrTokenInvalid
	}

	reg, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || !parsed.Valid {
		return Claims{}, auth.ErrTokenInvalid
	}

	subjectID, err := strconv.ParseInt(reg.Subject, 10, 64)
	if err != nil {
		return Claims{}, auth.ErrTokenInvalid
	}

	claims := Claims{SubjectID: subjectID}
	if reg.IssuedAt != nil {
		claims.IssuedAt = reg.IssuedAt.Time
	}
	if reg.ExpiresAt != nil {
		claims.ExpiresAt = reg.ExpiresAt.Time
	}
	return claims, nil
}
