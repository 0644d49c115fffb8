// internal/handlers/segmentation/segmentation_handler.go
package segmentation

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"wa-insights-service/internal/domain/customer"
	"wa-insights-service/internal/domain/segment"
	"wa-insights-service/internal/handlers/params"
	"wa-insights-service/internal/middleware"
	xerrors "wa-insights-service/internal/pkg/errors"
	"wa-insights-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Service interface {
	Stats(ctx context.Context) (segment.Stats, error)
	SegmentCustomer(ctx context.Context, customerID int64) (*segment.Result, error)
	StartBatch(ctx context.Context) (int, error)
	ListCustomers(ctx context.Context, label segment.Label, limit int) ([]customer.Summary, error)
}

type SegmentationHandler struct {
	service Service
	logger  *zap.Logger
}

func NewSegmentationHandler(service Service, logger *zap.Logger) *SegmentationHandler {
	return &SegmentationHandler{service: service, logger: logger}
}

// GetStats returns customer counts per segment label.
func (h *SegmentationHandler) GetStats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to load segmentation stats", zap.Error(err))
		response.FromError(c, "failed to load segmentation stats", err)
		return
	}
	response.Success(c, http.StatusOK, "segmentation stats retrieved", stats)
}

// SegmentCustomer classifies one customer synchronously.
func (h *SegmentationHandler) SegmentCustomer(c *gin.Context) {
	customerID, err := params.PositiveID(c, "customerId")
	if err != nil {
		response.ValidationError(c, "invalid customer ID", err)
		return
	}

	result, err := h.service.SegmentCustomer(c.Request.Context(), customerID)
	if err != nil {
		if !errors.Is(err, xerrors.ErrNotFound) {
			h.logger.Error("on-demand segmentation failed", zap.Int64("customer_id", customerID), zap.Error(err))
		}
		response.FromError(c, "failed to segment customer", err)
		return
	}

	response.Success(c, http.StatusOK, "customer segmented", result)
}

// StartBatch queues a background batch over customers needing segmentation.
func (h *SegmentationHandler) StartBatch(c *gin.Context) {
	queued, err := h.service.StartBatch(c.Request.Context())
	if err != nil {
		response.FromError(c, "failed to start segmentation batch", err)
		return
	}
	operator, _ := middleware.GetOperator(c)
	h.logger.Info("segmentation batch triggered", zap.String("operator", operator), zap.Int("queued", queued))
	response.Success(c, http.StatusAccepted, "segmentation batch started", gin.H{"queued": queued})
}

// ListCustomers returns customers carrying the segment given in ?segment=.
func (h *SegmentationHandler) ListCustomers(c *gin.Context) {
	label := segment.Label(strings.ToUpper(strings.TrimSpace(c.Query("segment"))))
	if label == "" {
		response.Error(c, http.StatusBadRequest, "segment query parameter is required", nil)
		return
	}

	customers, err := h.service.ListCustomers(c.Request.Context(), label, params.Limit(c))
	if err != nil {
		response.FromError(c, "failed to list customers", err)
		return
	}
	response.Success(c, http.StatusOK, "customers retrieved", customers)
}
