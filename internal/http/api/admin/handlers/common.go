package handlers

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/larkspur-kitchen/rewards/internal/identity"
)

// getIdentity returns the verified staff caller.
func getIdentity(c *gin.Context) (identity.Identity, bool) {
	return identity.FromContext(c.Request.Context())
}

// parseUintParam reads a positive integer path parameter.
func parseUintParam(c *gin.Context, name string) (uint64, bool) {
	value, errParse := strconv.ParseUint(strings.TrimSpace(c.Param(name)), 10, 64)
	if errParse != nil || value == 0 {
		return 0, false
	}
	return value, true
}

// parsePaging reads page and page_size query parameters.
func parsePaging(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(strings.TrimSpace(c.Query("page")))
	pageSize, _ := strconv.Atoi(strings.TrimSpace(c.Query("page_size")))
	return page, pageSize
}
