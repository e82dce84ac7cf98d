package middleware

import (
	"github.com/gin-gonic/gin"
)

// UserIDKey is the context key the identity middleware stores the user under.
const UserIDKey = "clipforge.user_id"

// defaultUserID stands in when no identity header is present, which keeps
// single-user deployments working without an auth proxy.
const defaultUserID = "default"

// Identity resolves the calling user from the X-User-ID header set by the
// auth layer in front of this service.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader("X-User-ID")
		if userID == "" {
			userID = defaultUserID
		}
		c.Set(UserIDKey, userID)
		c.Next()
	}
}

// UserID extracts the resolved user id from the request context.
func UserID(c *gin.Context) string {
	if v, ok := c.Get(UserIDKey); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return defaultUserID
}
