package handler

import "github.com/gin-gonic/gin"

const stateCookieName = "__oauth_state"

// generateState mints the anti-CSRF state for an authorization redirect and
// pins it to the browser via cookie, so only the session that started the
// flow can complete its callback.
func generateState(c *gin.Context) string {
	state := randomToken()
	setFlowCookie(c, stateCookieName, state)
	return state
}

func validateState(c *gin.Context) bool {
	state := c.Query("state")
	return state != "" && flowCookie(c, stateCookieName) == state
}
