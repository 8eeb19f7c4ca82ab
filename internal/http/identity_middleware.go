package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/larkspur-kitchen/rewards/internal/identity"
	"github.com/larkspur-kitchen/rewards/internal/security"
	log "github.com/sirupsen/logrus"
)

// Context keys set by IdentityMiddleware.
const (
	ContextKeyIdentity = "identity"
	ContextKeyUserID   = "userID"
)

// IdentityMiddleware verifies the bearer credential and injects the caller identity.
func IdentityMiddleware(verifier identity.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if verifier == nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Authentication service error"})
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}
		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == authHeader {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			return
		}
		token = strings.TrimSpace(token)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "empty token"})
			return
		}

		id, errVerify := verifier.Verify(c.Request.Context(), token)
		switch {
		case errVerify == nil:
		case errors.Is(errVerify, security.ErrExpiredToken):
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token expired"})
			return
		case errors.Is(errVerify, security.ErrInvalidToken):
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		default:
			log.WithError(errVerify).Error("identity middleware error")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Authentication service error"})
			return
		}

		c.Set(ContextKeyIdentity, id)
		c.Set(ContextKeyUserID, id.UserID)
		c.Request = c.Request.WithContext(identity.WithIdentity(c.Request.Context(), id))
		c.Next()
	}
}

// RequireRoles rejects callers whose role is not listed.
func RequireRoles(roles ...identity.Role) gin.HandlerFunc {
	allowed := make(map[identity.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(c *gin.Context) {
		id, ok := CurrentIdentity(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		if _, okRole := allowed[id.Role]; !okRole {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "permission denied"})
			return
		}
		c.Next()
	}
}

// CurrentIdentity returns the identity injected by IdentityMiddleware.
func CurrentIdentity(c *gin.Context) (identity.Identity, bool) {
	value, exists := c.Get(ContextKeyIdentity)
	if !exists {
		return identity.FromContext(c.Request.Context())
	}
	id, ok := value.(identity.Identity)
	return id, ok
}
