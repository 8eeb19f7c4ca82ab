package handlers

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/larkspur-kitchen/rewards/internal/identity"
)

// getUserID extracts the user ID from gin context.
func getUserID(c *gin.Context) uint64 {
	val, exists := c.Get("userID")
	if !exists {
		return 0
	}
	switch v := val.(type) {
	case uint64:
		return v
	case int64:
		return uint64(v)
	case uint:
		return uint64(v)
	case int:
		return uint64(v)
	default:
		return 0
	}
}

// getIdentity returns the verified caller.
func getIdentity(c *gin.Context) (identity.Identity, bool) {
	id, ok := identity.FromContext(c.Request.Context())
	if !ok || id.UserID == 0 {
		return identity.Identity{}, false
	}
	return id, true
}

// parsePaging reads page and page_size query parameters.
func parsePaging(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(strings.TrimSpace(c.Query("page")))
	pageSize, _ := strconv.Atoi(strings.TrimSpace(c.Query("page_size")))
	return page, pageSize
}
