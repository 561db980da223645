package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mollybeach/secure-user-api/internal/auth/credentials"
	"github.com/mollybeach/secure-user-api/internal/auth/linker"
	"github.com/mollybeach/secure-user-api/internal/auth/provider"
	"github.com/mollybeach/secure-user-api/internal/auth/token"
	"github.com/mollybeach/secure-user-api/internal/middleware"
)

// Handler is the HTTP boundary of the auth core. It parses requests, calls
// into the services, and maps error kinds to status codes. No auth decisions
// are made here.
type Handler struct {
	providers   *provider.Registry
	credentials *credentials.Service
	linker      *linker.Linker
	tokens      *token.Service

	// denylist is nil when Redis is not configured; logout is then
	// client-side only.
	denylist *token.Denylist

	tokenTTL time.Duration
}

func NewHandler(
	registry *provider.Registry,
	creds *credentials.Service,
	lnk *linker.Linker,
	tokens *token.Service,
	denylist *token.Denylist,
	tokenTTL time.Duration,
) *Handler {
	return &Handler{
		providers:   registry,
		credentials: creds,
		linker:      lnk,
		tokens:      tokens,
		denylist:    denylist,
		tokenTTL:    tokenTTL,
	}
}

// RegisterRoutes mounts the public auth routes.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.POST("/api/auth/register", h.Register)
	r.POST("/api/auth/login", h.Login)
	r.POST("/api/auth/logout", h.Logout)

	r.GET("/oauth/login/:provider", h.oauthLogin)
	r.GET("/oauth/callback/:provider", h.oauthCallback)
}

// Profile returns the safe public view of the authenticated user. It must be
// mounted behind the auth gate.
func (h *Handler) Profile(c *gin.Context) {
	u, ok := middleware.UserFromContext(c.Request.Context())
	if !ok {
		// Route is mounted behind the gate; missing context means a
		// wiring bug, not a client error.
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
		return
	}

	c.JSON(http.StatusOK, u.Public())
}
