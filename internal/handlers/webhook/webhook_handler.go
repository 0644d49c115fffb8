// internal/handlers/webhook/webhook_handler.go
package webhook

import (
	"context"
	"errors"
	"io"
	"net/http"

	"wa-insights-service/internal/domain/webhook"
	xerrors "wa-insights-service/internal/pkg/errors"
	"wa-insights-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Service handles one raw webhook delivery.
type Service interface {
	Handle(ctx context.Context, raw []byte) (*webhook.Result, error)
}

type WebhookHandler struct {
	service Service
	logger  *zap.Logger
}

func NewWebhookHandler(service Service, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{service: service, logger: logger}
}

var outcomeMessages = map[webhook.Outcome]string{
	webhook.OutcomeIngested:      "message processed",
	webhook.OutcomeDuplicate:     "duplicate message ignored",
	webhook.OutcomeStatusUpdated: "status updated",
	webhook.OutcomeIgnored:       "event ignored",
}

// Receive accepts a gateway delivery. Every accepted delivery answers 200 so the
// gateway does not retry; only malformed bodies and storage failures do not.
func (h *WebhookHandler) Receive(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, http.StatusRequestEntityTooLarge, "webhook body too large", err)
			return
		}
		response.Error(c, http.StatusBadRequest, "failed to read webhook body", err)
		return
	}

	result, err := h.service.Handle(c.Request.Context(), raw)
	if err != nil {
		if errors.Is(err, xerrors.ErrInvalidInput) {
			response.ValidationError(c, "invalid webhook payload", err)
			return
		}
		h.logger.Error("webhook processing failed", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, "failed to process webhook", err)
		return
	}

	body := gin.H{
		"success": true,
		"message": outcomeMessages[result.Outcome],
		"event":   result.Event,
		"outcome": result.Outcome,
	}
	if result.Reason != "" {
		body["reason"] = result.Reason
	}
	c.JSON(http.StatusOK, body)
}
