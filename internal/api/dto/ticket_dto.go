package dto

import (
	"time"

	"github.com/spec-kit/locate-ingest/internal/domain"
)

// WebhookResponse acknowledges an inbound delivery.
type WebhookResponse struct {
	Status         string `json:"status"`
	NotificationID string `json:"notification_id,omitempty"`
}

// MemberResponse is one utility station's entry on a ticket.
type MemberResponse struct {
	StationCode        string `json:"station_code"`
	StationName        string `json:"station_name,omitempty"`
	ResponseCode       string `json:"response_code,omitempty"`
	ResponseReceivedAt string `json:"response_received_at,omitempty"`
	Comments           string `json:"comments,omitempty"`
}

// TicketSummary response.
type TicketSummary struct {
	TicketID       string           `json:"ticket_id"`
	DigsiteAddress string           `json:"digsite_address,omitempty"`
	LegalStartAt   string           `json:"legal_start_at,omitempty"`
	MemberCount    int              `json:"member_count"`
	ResponseCount  int              `json:"response_count"`
	LastEventType  domain.EventType `json:"last_event_type"`
	LastEventAt    time.Time        `json:"last_event_at"`
}

// TicketDetailResponse provides full ticket info.
type TicketDetailResponse struct {
	TicketID       string           `json:"ticket_id"`
	DigsiteAddress string           `json:"digsite_address,omitempty"`
	LegalStartAt   string           `json:"legal_start_at,omitempty"`
	Members        []MemberResponse `json:"members"`
	MemberCount    int              `json:"member_count"`
	ResponseCount  int              `json:"response_count"`
	LastEventType  domain.EventType `json:"last_event_type"`
	LastEventAt    time.Time        `json:"last_event_at"`
	LastRawRef     string           `json:"last_raw_ref,omitempty"`
}

// FromAggregateSummary maps an aggregate to its list representation.
func FromAggregateSummary(agg domain.TicketAggregate) TicketSummary {
	return TicketSummary{
		TicketID:       agg.TicketID,
		DigsiteAddress: agg.DigsiteAddress,
		LegalStartAt:   agg.LegalStartAt,
		MemberCount:    agg.MemberCount,
		ResponseCount:  agg.ResponseCount,
		LastEventType:  agg.LastEventType,
		LastEventAt:    agg.LastEventAt,
	}
}

// FromAggregateDetail maps an aggregate to its detail representation.
func FromAggregateDetail(agg domain.TicketAggregate) TicketDetailResponse {
	members := make([]MemberResponse, 0, len(agg.Members))
	for _, m := range agg.Members {
		members = append(members, MemberResponse{
			StationCode:        m.StationCode,
			StationName:        m.StationName,
			ResponseCode:       m.ResponseCode,
			ResponseReceivedAt: m.ResponseReceivedAt,
			Comments:           m.Comments,
		})
	}
	return TicketDetailResponse{
		TicketID:       agg.TicketID,
		DigsiteAddress: agg.DigsiteAddress,
		LegalStartAt:   agg.LegalStartAt,
		Members:        members,
		MemberCount:    agg.MemberCount,
		ResponseCount:  agg.ResponseCount,
		LastEventType:  agg.LastEventType,
		LastEventAt:    agg.LastEventAt,
		LastRawRef:     agg.LastRawRef,
	}
}
