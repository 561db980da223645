package handler

import (
	"crypto/sha256"
	"encoding/base64"

	"github.com/gin-gonic/gin"
)

const pkceCookieName = "__oauth_pkce"

// generatePKCE produces an RFC 7636 verifier/challenge pair using the S256
// method. Only the challenge travels to the provider; the verifier stays
// with the browser and is presented again during the code exchange.
func generatePKCE(c *gin.Context) (verifier string, challenge string) {
	verifier = randomToken()

	sum := sha256.Sum256([]byte(verifier))
	challenge = base64.RawURLEncoding.EncodeToString(sum[:])

	setFlowCookie(c, pkceCookieName, verifier)
	return verifier, challenge
}

func getPKCEVerifier(c *gin.Context) string {
	return flowCookie(c, pkceCookieName)
}
