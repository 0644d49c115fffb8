// internal/middleware/request_middleware.go
package middleware

import (
	"net/http"

	"wa-insights-service/internal/pkg/requestid"

	"github.com/gin-gonic/gin"
)

const ctxRequestID = "request_id"

// RequestIDMiddleware reuses an incoming X-Request-ID or assigns a new one.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestid.Header)
		if id == "" || len(id) > 128 {
			id = requestid.New()
		}
		c.Set(ctxRequestID, id)
		c.Request = c.Request.WithContext(requestid.With(c.Request.Context(), id))
		c.Writer.Header().Set(requestid.Header, id)
		c.Next()
	}
}

// BodyLimit caps the request body; reads past maxBytes fail.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
