package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"grocery-orders/models"
	"grocery-orders/utils"
)

const identityKey = "identity"

// AdminCheck decides whether an identity has admin rights.
type AdminCheck func(models.Identity) bool

// AuthMiddleware requires a valid Bearer token and stores the caller's
// identity on the context.
func AuthMiddleware(secret string, isAdmin AdminCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		id, err := utils.ParseToken(secret, strings.TrimSpace(token))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}
		if isAdmin != nil {
			id.IsAdmin = isAdmin(id)
		}

		c.Set(identityKey, id)
		c.Set("userID", id.UserID)
		c.Next()
	}
}

// RequireAdmin must run after AuthMiddleware.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := IdentityFrom(c)
		if !ok || !id.IsAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			return
		}
		c.Next()
	}
}

func IdentityFrom(c *gin.Context) (models.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return models.Identity{}, false
	}
	id, ok := v.(models.Identity)
	return id, ok
}
