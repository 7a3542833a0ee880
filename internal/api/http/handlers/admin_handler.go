package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/locate-ingest/internal/auth"
	"github.com/spec-kit/locate-ingest/internal/service"
	apperrors "github.com/spec-kit/locate-ingest/pkg/util"
)

// AdminHandler exposes operational triggers.
type AdminHandler struct {
	retention *service.RetentionService
	logger    *zap.Logger
}

// NewAdminHandler constructs handler.
func NewAdminHandler(retention *service.RetentionService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{retention: retention, logger: logger}
}

// TriggerSweep POST /admin/retention/sweep. Invoked by the external scheduler.
func (h *AdminHandler) TriggerSweep(c *fiber.Ctx) error {
	operator, _ := auth.OperatorFromContext(c)
	h.logger.Info("retention sweep requested", zap.String("operator_id", operator))

	report, err := h.retention.Sweep(c.UserContext(), time.Now().UTC())
	if err != nil {
		return apperrors.NewTransientStorage("retention sweep", err)
	}
	return c.JSON(fiber.Map{"data": report})
}
