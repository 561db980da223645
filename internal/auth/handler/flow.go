package handler

import (
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// In-flight OAuth authorizations keep no server-side record: the state and
// PKCE verifier ride in short-lived cookies from /oauth/login/:provider to
// /oauth/callback/:provider. The TTL only needs to outlast the user's trip
// through the provider's consent screen.
const flowCookieTTL = 5 * time.Minute

func setFlowCookie(c *gin.Context, name, value string) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(flowCookieTTL.Seconds()),
	})
}

// flowCookie returns the named cookie's value, or "" when absent.
func flowCookie(c *gin.Context, name string) string {
	cookie, err := c.Request.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// randomToken returns 256 bits of randomness, base64url without padding.
func randomToken() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}
