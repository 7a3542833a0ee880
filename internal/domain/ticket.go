package domain

import "time"

// EventType enumerates canonical lifecycle events for a locate ticket.
type EventType string

const (
	EventTicketCreated   EventType = "TICKET_CREATED"
	EventTicketUpdated   EventType = "TICKET_UPDATED"
	EventTicketCancelled EventType = "TICKET_CANCELLED"
	EventMemberResponse  EventType = "MEMBER_RESPONSE"
	EventUnknown         EventType = "UNKNOWN"
)

// Member is one utility station expected to respond to a ticket. Response
// fields stay empty until the station answers.
type Member struct {
	StationCode        string `json:"station_code"`
	StationName        string `json:"station_name,omitempty"`
	ResponseCode       string `json:"response_code,omitempty"`
	ResponseReceivedAt string `json:"response_received_at,omitempty"`
	Comments           string `json:"comments,omitempty"`
}

// HasResponse reports whether the station has answered the ticket.
func (m Member) HasResponse() bool {
	return m.ResponseCode != ""
}

// CanonicalEvent is the normalized form of one vendor notification. TicketID
// and Type are guaranteed non-empty by the normalizer; everything else is
// best-effort. Vendor timestamps are kept verbatim because the source emits
// several formats.
type CanonicalEvent struct {
	TicketID       string    `json:"ticket_id"`
	NotificationID string    `json:"notification_id"`
	Type           EventType `json:"event_type"`
	OccurredAt     string    `json:"occurred_at,omitempty"`
	ReceivedAt     time.Time `json:"received_at"`
	DigsiteAddress string    `json:"digsite_address,omitempty"`
	LegalStartAt   string    `json:"legal_start_at,omitempty"`
	Members        []Member  `json:"members,omitempty"`
	RawRef         string    `json:"raw_ref,omitempty"`
}

// NotificationRecord is one dedup ledger entry. FirstSeenAt is written once
// and never updated.
type NotificationRecord struct {
	NotificationID string
	EventType      EventType
	FirstSeenAt    time.Time
}

// TicketAggregate is the durable per-ticket state, keyed by TicketID.
// LastEventType is sticky: only a creation event sets it (see Merge).
// Version supports optimistic concurrency on read-modify-write.
type TicketAggregate struct {
	TicketID       string    `json:"ticket_id"`
	DigsiteAddress string    `json:"digsite_address,omitempty"`
	LegalStartAt   string    `json:"legal_start_at,omitempty"`
	Members        []Member  `json:"members"`
	MemberCount    int       `json:"member_count"`
	ResponseCount  int       `json:"response_count"`
	LastEventType  EventType `json:"last_event_type"`
	LastEventAt    time.Time `json:"last_event_at"`
	LastRawRef     string    `json:"last_raw_ref,omitempty"`
	Version        int64     `json:"-"`
}

// Merge folds an event into an existing aggregate (nil for a ticket seen for
// the first time) and returns the resulting state. The function is pure and
// idempotent: re-applying the same event yields the same aggregate.
//
// Fields describing current member/response status are always refreshed from
// the event, since every event carries the full member snapshot rather than a
// delta. LastEventType is only ever set by a TICKET_CREATED event, so the
// single creation marker survives any number of later response events
// regardless of arrival order. A re-delivered creation event restates the same
// marker, which is harmless.
func Merge(existing *TicketAggregate, e CanonicalEvent) TicketAggregate {
	var agg TicketAggregate
	if existing != nil {
		agg = *existing
	} else {
		agg.LastEventType = EventUnknown
	}

	agg.TicketID = e.TicketID
	agg.DigsiteAddress = e.DigsiteAddress
	agg.LegalStartAt = e.LegalStartAt
	agg.Members = e.Members
	agg.MemberCount = len(e.Members)
	agg.ResponseCount = countResponses(e.Members)
	agg.LastEventAt = e.ReceivedAt
	agg.LastRawRef = e.RawRef

	if e.Type == EventTicketCreated {
		agg.LastEventType = EventTicketCreated
	}
	if agg.LastEventType == "" {
		agg.LastEventType = EventUnknown
	}
	return agg
}

func countResponses(members []Member) int {
	n := 0
	for _, m := range members {
		if m.HasResponse() {
			n++
		}
	}
	return n
}
