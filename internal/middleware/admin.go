package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Conceptual-Machines/bachgen/internal/models"
)

// AdminRequired ensures the caller has the admin role
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, exists := GetCurrentUserID(c); !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			c.Abort()
			return
		}

		if !models.IsAdmin(c.GetString("user_role")) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			c.Abort()
			return
		}

		c.Next()
	}
}
