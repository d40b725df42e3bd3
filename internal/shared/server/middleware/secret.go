package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"clipboard-backend/internal/shared/server/respond"
)

// AdminSecret gates admin operations behind a shared secret. The secret may
// arrive as an X-Admin-Secret header or a bearer token. An empty configured
// secret denies everything. The response never says which part mismatched.
func AdminSecret(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}

		provided := strings.TrimSpace(c.GetHeader("X-Admin-Secret"))
		if provided == "" {
			authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
			if strings.HasPrefix(authHeader, "Bearer ") {
				provided = strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
			}
		}

		if secret == "" || provided == "" ||
			subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
			respond.Error(c, http.StatusUnauthorized, "access_denied", "denied", nil)
			return
		}

		c.Next()
	}
}
