package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Header names set by the identity proxy in front of this service. Role
// resolution itself is out of scope here; absent headers degrade to the
// least-privileged fallback actor.
const (
	HeaderActorID    = "X-Actor-Id"
	HeaderMerchantID = "X-Merchant-Id"
	HeaderActorRole  = "X-Actor-Role"
)

// Middleware resolves the actor from request headers and stores it on the
// request context.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := Fallback()
		if id := c.GetHeader(HeaderActorID); id != "" {
			actor.ID = id
		}
		actor.MerchantID = c.GetHeader(HeaderMerchantID)
		switch Role(c.GetHeader(HeaderActorRole)) {
		case RoleOwner:
			actor.Role = RoleOwner
		case RoleAdmin:
			actor.Role = RoleAdmin
		default:
			actor.Role = RoleMember
		}

		c.Request = c.Request.WithContext(WithActor(c.Request.Context(), actor))
		c.Next()
	}
}

// RequireAdmin guards moderation endpoints.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := FromContext(c.Request.Context())
		if actor.Role != RoleAdmin && actor.Role != RoleOwner {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "administrator role required"})
			return
		}
		c.Next()
	}
}
