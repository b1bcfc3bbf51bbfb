package app

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"fido2backend/token"
)

// AuthRequired verifies the bearer token issued at login and puts the subject
// username into the request context.
func AuthRequired(tokens *token.Issuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, found := strings.CutPrefix(header, "Bearer ")
		if !found || raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "unauthorized"})
			return
		}
		username, err := tokens.Verify(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "invalid token"})
			return
		}
		c.Set("username", username)
		c.Next()
	}
}
