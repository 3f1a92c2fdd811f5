package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/Conceptual-Machines/bachgen/internal/models"
)

// NoAuth is a pass-through middleware for when AUTH_MODE=none.
// A self-hosted instance has a single operator, who is treated as admin.
func NoAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id_str", "anonymous")
		c.Set("user_role", models.RoleAdmin)
		c.Next()
	}
}
