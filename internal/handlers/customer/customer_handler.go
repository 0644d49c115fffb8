// internal/handlers/customer/customer_handler.go
package customer

import (
	"context"
	"net/http"

	"wa-insights-service/internal/domain/segment"
	"wa-insights-service/internal/handlers/params"
	"wa-insights-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

type DigestBuilder interface {
	Build(ctx context.Context, customerID int64) (*segment.Digest, error)
}

type CustomerHandler struct {
	digests DigestBuilder
}

func NewCustomerHandler(digests DigestBuilder) *CustomerHandler {
	return &CustomerHandler{digests: digests}
}

// GetDigest returns the conversation digest the classifier would receive.
func (h *CustomerHandler) GetDigest(c *gin.Context) {
	customerID, err := params.PositiveID(c, "customerId")
	if err != nil {
		response.ValidationError(c, "invalid customer ID", err)
		return
	}

	digest, err := h.digests.Build(c.Request.Context(), customerID)
	if err != nil {
		response.FromError(c, "failed to build digest", err)
		return
	}

	response.Success(c, http.StatusOK, "digest retrieved", digest)
}
