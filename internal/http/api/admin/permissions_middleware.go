package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	relayhttp "github.com/larkspur-kitchen/rewards/internal/http"
	permissions "github.com/larkspur-kitchen/rewards/internal/http/api/admin/permissions"
)

// adminPermissionMiddleware enforces the role table for admin routes.
func adminPermissionMiddleware() gin.HandlerFunc {
	permissionMap := permissions.DefinitionMap()

	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		path := c.FullPath()
		if path == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "permission denied"})
			return
		}

		id, ok := relayhttp.CurrentIdentity(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		key := permissions.Key(c.Request.Method, path)
		if !permissions.Allowed(permissionMap, key, id.Role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "permission denied"})
			return
		}

		c.Next()
	}
}
