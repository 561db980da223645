package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mollybeach/secure-user-api/internal/auth"
	"github.com/mollybeach/secure-user-api/internal/logger"
)

// Logout denylists the presented token until its natural expiry when Redis
// is configured. Without Redis, tokens are stateless and logout is purely a
// client-side discard. The response is 204 either way: logout is idempotent
// and never reveals token validity.
func (h *Handler) Logout(c *gin.Context) {
	if h.denylist != nil {
		if tokenStr, err := auth.BearerToken(c.GetHeader("Authorization")); err == nil {
			if claims, verr := h.tokens.Verify(tokenStr); verr == nil {
				if rerr := h.denylist.Revoke(c.Request.Context(), tokenStr, claims.ExpiresAt); rerr != nil {
					logger.Error("token revocation failed", map[string]any{
						"user_id": claims.SubjectID,
					})
				}
			}
		}
	}

	c.Status(http.StatusNoContent)
}
