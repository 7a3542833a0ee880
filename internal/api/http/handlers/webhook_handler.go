package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/locate-ingest/internal/api/dto"
	"github.com/spec-kit/locate-ingest/internal/observability"
	"github.com/spec-kit/locate-ingest/internal/service"
)

// SignatureHeader carries the vendor's HMAC digest.
const SignatureHeader = "X-Missdig-Signature"

// WebhookHandler receives vendor notification deliveries.
type WebhookHandler struct {
	intake  *service.IntakeService
	metrics *observability.Metrics
}

// NewWebhookHandler constructs handler.
func NewWebhookHandler(intake *service.IntakeService, metrics *observability.Metrics) *WebhookHandler {
	return &WebhookHandler{intake: intake, metrics: metrics}
}

// Receive POST /webhooks/events. The response is sent as soon as the delivery
// is archived, deduplicated, and queued; aggregation happens asynchronously.
func (h *WebhookHandler) Receive(c *fiber.Ctx) error {
	body := c.Body()
	result, err := h.intake.Accept(c.UserContext(), body, c.Get(SignatureHeader))
	if err != nil {
		h.metrics.WebhookResults.WithLabelValues("rejected").Inc()
		return err
	}

	if result.Duplicate {
		h.metrics.WebhookResults.WithLabelValues("duplicate").Inc()
		return c.JSON(dto.WebhookResponse{Status: "duplicate", NotificationID: result.NotificationID})
	}
	h.metrics.WebhookResults.WithLabelValues("received").Inc()
	return c.JSON(dto.WebhookResponse{Status: "received", NotificationID: result.NotificationID})
}
