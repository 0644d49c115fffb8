// internal/middleware/helpers.go
package middleware

import "github.com/gin-gonic/gin"

// GetOperator returns the token subject set by the operator guard.
func GetOperator(c *gin.Context) (string, bool) {
	sub, exists := c.Get(ctxSubject)
	if !exists {
		return "", false
	}
	s, ok := sub.(string)
	return s, ok
}

// GetRequestID returns the id assigned by RequestIDMiddleware.
func GetRequestID(c *gin.Context) string {
	return c.GetString(ctxRequestID)
}
