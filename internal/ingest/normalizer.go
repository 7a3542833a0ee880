package ingest

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/spec-kit/locate-ingest/internal/domain"
	apperrors "github.com/spec-kit/locate-ingest/pkg/util"
)

// eventTypeByVendorLabel is the fixed mapping from vendor event strings to
// canonical types. Unlisted labels map to UNKNOWN, never to an error.
var eventTypeByVendorLabel = map[string]domain.EventType{
	"TICKET CREATION":  domain.EventTicketCreated,
	"TICKET UPDATE":    domain.EventTicketUpdated,
	"TICKET CANCELLED": domain.EventTicketCancelled,
	"MEMBER RESPONSE":  domain.EventMemberResponse,
}

// MapEventType resolves a vendor event label to its canonical type.
func MapEventType(vendorLabel string) domain.EventType {
	if t, ok := eventTypeByVendorLabel[strings.ToUpper(strings.TrimSpace(vendorLabel))]; ok {
		return t
	}
	return domain.EventUnknown
}

// vendorTicket holds the ticket-level fields of a vendor payload. They appear
// either at the payload root (flat shape) or under the Notification key
// (nested shape).
type vendorTicket struct {
	TicketNumber       string         `json:"TicketNumber"`
	NotificationID     string         `json:"NotificationId"`
	DigsiteAddress     string         `json:"DigsiteAddress"`
	LegalStartDateTime string         `json:"LegalStartDateTime"`
	Members            []vendorMember `json:"Members"`
}

type vendorMember struct {
	StationCodeID            string `json:"StationCodeId"`
	StationCodeName          string `json:"StationCodeName"`
	ResponseCode             string `json:"ResponseCode"`
	ResponseReceivedDateTime string `json:"ResponseReceivedDateTime"`
	PosrComments             string `json:"PosrComments"`
}

// vendorEnvelope is the tagged union over the two source shapes. The shape is
// resolved exactly once here: a payload with a Notification object is nested,
// everything else is flat.
type vendorEnvelope struct {
	vendorTicket
	Event        string          `json:"Event"`
	TimeStamp    string          `json:"TimeStamp"`
	Notification json.RawMessage `json:"Notification"`
}

// Normalize maps a raw vendor payload of either shape into one canonical
// event. rawRef points at the archived copy of the payload; receivedAt is the
// intake-assigned timestamp, kept independent of the vendor TimeStamp because
// vendor timestamps may be missing or differently formatted. Fails only when
// no ticket id can be resolved.
func Normalize(body []byte, rawRef string, receivedAt time.Time) (domain.CanonicalEvent, error) {
	var envelope vendorEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return domain.CanonicalEvent{}, apperrors.NewMalformedPayload("payload is not valid JSON", nil)
	}

	ticket := envelope.vendorTicket
	if len(envelope.Notification) > 0 && string(envelope.Notification) != "null" {
		var nested vendorTicket
		if err := json.Unmarshal(envelope.Notification, &nested); err != nil {
			return domain.CanonicalEvent{}, apperrors.NewMalformedPayload("Notification is not an object", nil)
		}
		if nested.NotificationID == "" {
			nested.NotificationID = envelope.NotificationID
		}
		ticket = nested
	}

	ticketID := strings.TrimSpace(ticket.TicketNumber)
	if ticketID == "" {
		return domain.CanonicalEvent{}, apperrors.NewMissingRequiredField("TicketNumber")
	}

	return domain.CanonicalEvent{
		TicketID:       ticketID,
		NotificationID: ticket.NotificationID,
		Type:           MapEventType(envelope.Event),
		OccurredAt:     envelope.TimeStamp,
		ReceivedAt:     receivedAt.UTC(),
		DigsiteAddress: ticket.DigsiteAddress,
		LegalStartAt:   ticket.LegalStartDateTime,
		Members:        normalizeMembers(ticket.Members),
		RawRef:         rawRef,
	}, nil
}

// ResolveNotificationID extracts the vendor notification identifier from a
// payload of either shape without fully normalizing it. Returns false when the
// body is not valid JSON.
func ResolveNotificationID(body []byte) (string, bool) {
	var envelope vendorEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return "", false
	}
	id := envelope.NotificationID
	if len(envelope.Notification) > 0 && string(envelope.Notification) != "null" {
		var nested vendorTicket
		if err := json.Unmarshal(envelope.Notification, &nested); err == nil && nested.NotificationID != "" {
			id = nested.NotificationID
		}
	}
	return strings.TrimSpace(id), true
}

// normalizeMembers keeps members without responses as placeholders so later
// responses can be located by station code or position.
func normalizeMembers(members []vendorMember) []domain.Member {
	if len(members) == 0 {
		return nil
	}
	out := make([]domain.Member, 0, len(members))
	for _, m := range members {
		out = append(out, domain.Member{
			StationCode:        m.StationCodeID,
			StationName:        m.StationCodeName,
			ResponseCode:       m.ResponseCode,
			ResponseReceivedAt: m.ResponseReceivedDateTime,
			Comments:           m.PosrComments,
		})
	}
	return out
}
