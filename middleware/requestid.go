package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDKey is the gin context key holding the request id.
const RequestIDKey = "requestId"

const maxRequestIDLength = 128

// RequestIDMiddleware ensures that each request has a stable X-Request-ID.
// A client-provided id is propagated when it is reasonably short; otherwise a
// new UUIDv4 is generated.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader("X-Request-ID")
		if reqID == "" || len(reqID) > maxRequestIDLength {
			reqID = uuid.NewString()
		}
		c.Writer.Header().Set("X-Request-ID", reqID)
		c.Set(RequestIDKey, reqID)
		c.Next()
	}
}
