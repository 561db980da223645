package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mollybeach/secure-user-api/internal/auth"
	"github.com/mollybeach/secure-user-api/internal/logger"
)

// writeError is the single place error kinds become status codes. Store and
// other internal failures fall through to a generic 500 so no internal
// detail leaks to clients.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrTokenExpired),
		errors.Is(err, auth.ErrTokenInvalid),
		errors.Is(err, auth.ErrTokenRevoked),
		errors.Is(err, auth.ErrMissingCredential),
		errors.Is(err, auth.ErrMalformedHeader),
		errors.Is(err, auth.ErrUnknownSubject):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, auth.ErrDuplicateIdentity):
		c.JSON(http.StatusConflict, gin.H{"error": "account already exists"})
	case errors.Is(err, auth.ErrProfileIncomplete):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		logger.Error("request failed", map[string]any{
			"kind": "internal",
			"path": c.Request.URL.Path,
		})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
	}
}
