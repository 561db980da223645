package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/mollybeach/secure-user-api/internal/auth"
	"github.com/mollybeach/secure-user-api/internal/auth/token"
	"github.com/mollybeach/secure-user-api/internal/logger"
	"github.com/mollybeach/secure-user-api/internal/user"
)

// unexported, collision-proof context key
type userContextKeyType struct{}

var userKey = userContextKeyType{}

// UserFromContext extracts the authenticated user from context.
func UserFromContext(ctx context.Context) (*user.User, bool) {
	u, ok := ctx.Value(userKey).(*user.User)
	return u, ok
}

// AuthGate is the sole authorization gate for protected routes. It extracts
// the bearer token, verifies it, resolves the subject to a live account, and
// injects that account into request context. Any failure rejects the request
// before it reaches protected logic.
type AuthGate struct {
	tokens *token.Service
	store  user.Store

	// denylist is nil when Redis is not configured; the gate then runs
	// purely stateless.
	denylist *token.Denylist
}

func NewAuthGate(tokens *token.Service, store user.Store, denylist *token.Denylist) *AuthGate {
	return &AuthGate{
		tokens:   tokens,
		store:    store,
		denylist: denylist,
	}
}

// Authenticate resolves an Authorization header value to a user.
func (g *AuthGate) Authenticate(ctx context.Context, rawHeader string) (*user.User, error) {
	tokenStr, err := auth.BearerToken(rawHeader)
	if err != nil {
		return nil, err
	}

	claims, err := g.tokens.Verify(tokenStr)
	if err != nil {
		return nil, err
	}

	if g.denylist != nil {
		revoked, err := g.denylist.IsRevoked(ctx, tokenStr)
		if err != nil {
			return nil, fmt.Errorf("middleware: denylist lookup: %w", err)
		}
		if revoked {
			return nil, auth.ErrTokenRevoked
		}
	}

	u, err := g.store.FindByID(ctx, claims.SubjectID)
	if errors.Is(err, user.ErrNotFound) {
		// A valid token for a deleted account: unauthenticated, not 500.
		return nil, auth.ErrUnknownSubject
	}
	if err != nil {
		return nil, fmt.Errorf("middleware: subject lookup: %w", err)
	}

	return u, nil
}

// RequireAuth wraps a handler with the gate. On failure it writes 401 with
// the error kind only; tokens are never echoed back or logged in full.
func (g *AuthGate) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, err := g.Authenticate(r.Context(), r.Header.Get("Authorization"))
		if err != nil {
			logger.Warn("request rejected", map[string]any{
				"kind": err.Error(),
				"path": r.URL.Path,
			})
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprintf(w, `{"error":%q}`, kindOf(err))
			return
		}

		ctx := context.WithValue(r.Context(), userKey, u)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// kindOf collapses wrapped detail down to the sentinel message so 401 bodies
// stay uniform.
func kindOf(err error) string {
	for _, sentinel := range []error{
		auth.ErrMissingCredential,
		auth.ErrMalformedHeader,
		auth.ErrTokenExpired,
		auth.ErrTokenInvalid,
		auth.ErrTokenRevoked,
		auth.ErrUnknownSubject,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return "unauthorized"
}
