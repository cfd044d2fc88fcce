package response

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ContextKeyRequestID is where the request ID lives in the gin context.
const ContextKeyRequestID = "request_id"

// RequestIDMiddleware tags each request with an ID and echoes it back in the
// X-Request-ID header. A caller-supplied ID is kept so the portal frontend
// can correlate its own traces with ours.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(ContextKeyRequestID, id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}
