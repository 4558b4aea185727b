package middleware

import (
	"strconv"

	"lms_progress_backend/internal/util"

	"github.com/gin-gonic/gin"
)

const userIDKey = "userID"

// Identity resolves the acting learner from the X-User-ID header set by
// the upstream identity provider. Authentication itself happens there;
// this engine only needs the resolved id.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader("X-User-ID")
		if raw == "" {
			util.BadRequest(c, "missing X-User-ID header")
			c.Abort()
			return
		}
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			util.BadRequest(c, "invalid X-User-ID header")
			c.Abort()
			return
		}
		c.Set(userIDKey, uint(id))
		c.Next()
	}
}

// UserID returns the learner id resolved by Identity.
func UserID(c *gin.Context) uint {
	if v, ok := c.Get(userIDKey); ok {
		if id, ok := v.(uint); ok {
			return id
		}
	}
	return 0
}
