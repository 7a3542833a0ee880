package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/locate-ingest/internal/api/dto"
	"github.com/spec-kit/locate-ingest/internal/repository"
	apperrors "github.com/spec-kit/locate-ingest/pkg/util"
)

// TicketsHandler serves the aggregate read API.
type TicketsHandler struct {
	aggregates repository.AggregateRepository
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(aggregates repository.AggregateRepository) *TicketsHandler {
	return &TicketsHandler{aggregates: aggregates}
}

// List GET /tickets.
func (h *TicketsHandler) List(c *fiber.Ctx) error {
	limit := queryInt(c, "limit", 200)
	offset := queryInt(c, "offset", 0)

	aggs, err := h.aggregates.List(c.UserContext(), limit, offset)
	if err != nil {
		return apperrors.NewTransientStorage("aggregate list", err)
	}

	items := make([]dto.TicketSummary, 0, len(aggs))
	for _, agg := range aggs {
		items = append(items, dto.FromAggregateSummary(agg))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /tickets/:id.
func (h *TicketsHandler) Get(c *fiber.Ctx) error {
	ticketID := c.Params("id")
	agg, found, err := h.aggregates.Get(c.UserContext(), ticketID)
	if err != nil {
		return apperrors.NewTransientStorage("aggregate get", err)
	}
	if !found {
		return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
	}
	return c.JSON(fiber.Map{"data": dto.FromAggregateDetail(*agg)})
}

func queryInt(c *fiber.Ctx, key string, fallback int) int {
	val := c.Query(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}
