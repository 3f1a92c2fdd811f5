package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GatewayAuth trusts caller identity from gateway headers (X-User-ID,
// X-User-Email, X-User-Role) set by an upstream proxy that has already
// authenticated and rate limited the request.
//
// When AUTH_MODE=gateway, the API trusts these headers unconditionally.
// This should ONLY be used behind a gateway with proper network isolation.
func GatewayAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader("X-User-ID")
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Authentication required",
				"message": "Missing X-User-ID header from gateway",
			})
			c.Abort()
			return
		}

		c.Set("user_id_str", userID)
		c.Set("user_email", c.GetHeader("X-User-Email"))
		c.Set("user_role", c.GetHeader("X-User-Role"))
		c.Next()
	}
}
