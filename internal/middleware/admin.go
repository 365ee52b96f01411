package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// AdminMiddleware must run after AuthMiddleware. It only lets admins through.
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. Get user from AuthMiddleware
		user, ok := CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found in context (AuthMiddleware must run first)"})
			c.Abort()
			return
		}

		// 2. Check permission
		if !user.IsAdmin() {
			c.JSON(http.StatusForbidden, gin.H{"error": "Access denied: Admin role required"})
			c.Abort()
			return
		}

		c.Set("userRole", user.Role)
		c.Next()
	}
}
