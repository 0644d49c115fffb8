// internal/handlers/params/params.go
package params

import (
	"strconv"

	xerrors "wa-insights-service/internal/pkg/errors"

	"github.com/gin-gonic/gin"
)

// PositiveID parses a path parameter as a positive int64.
func PositiveID(c *gin.Context, name string) (int64, error) {
	raw := c.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, xerrors.NewValidationError("%s must be a positive integer, got %q", name, raw)
	}
	return id, nil
}

// Limit parses the optional "limit" query parameter; absent or invalid yields 0.
func Limit(c *gin.Context) int {
	n, err := strconv.Atoi(c.Query("limit"))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
