// internal/middleware/auth_middleware.go
package middleware

import (
	"strings"

	"wa-insights-service/internal/pkg/jwt"
	"wa-insights-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const ctxSubject = "operator_subject"

type AuthMiddleware struct {
	verifier *jwt.Verifier
	logger   *zap.Logger
}

// NewAuthMiddleware guards operator routes. A nil verifier disables the guard.
func NewAuthMiddleware(verifier *jwt.Verifier, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier, logger: logger}
}

// Operator requires a valid bearer token carrying an operator or admin role.
func (m *AuthMiddleware) Operator() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.verifier == nil {
			c.Next()
			return
		}

		token := extractToken(c)
		if token == "" {
			response.Unauthorized(c, "missing authorization token")
			return
		}

		claims, err := m.verifier.VerifyOperator(token)
		if err != nil {
			m.logger.Warn("operator token rejected",
				zap.String("path", c.Request.URL.Path),
				zap.Error(err),
			)
			response.FromError(c, "operator access denied", err)
			return
		}

		c.Set(ctxSubject, claims.Subject)
		c.Next()
	}
}

// extractToken extracts Bearer token from Authorization header
func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return parts[1]
	}
	return ""
}
