package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var mergeTime = time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)

func creationEvent() CanonicalEvent {
	return CanonicalEvent{
		TicketID:       "T1",
		Type:           EventTicketCreated,
		ReceivedAt:     mergeTime,
		DigsiteAddress: "123 Main St",
		LegalStartAt:   "2024-01-08T08:00:00Z",
		Members: []Member{
			{StationCode: "GAS1", StationName: "Gas Co"},
			{StationCode: "ELEC1", StationName: "Electric Co"},
		},
		RawRef: "raw/a.json",
	}
}

func responseEvent() CanonicalEvent {
	return CanonicalEvent{
		TicketID:   "T1",
		Type:       EventMemberResponse,
		ReceivedAt: mergeTime.Add(time.Hour),
		Members: []Member{
			{StationCode: "GAS1", StationName: "Gas Co", ResponseCode: "10"},
			{StationCode: "ELEC1", StationName: "Electric Co"},
		},
		RawRef: "raw/b.json",
	}
}

func TestMergeCreatesAggregate(t *testing.T) {
	agg := Merge(nil, creationEvent())
	require.Equal(t, "T1", agg.TicketID)
	require.Equal(t, EventTicketCreated, agg.LastEventType)
	require.Equal(t, 2, agg.MemberCount)
	require.Equal(t, 0, agg.ResponseCount)
	require.Equal(t, "raw/a.json", agg.LastRawRef)
}

func TestMergeFirstEventNotCreation(t *testing.T) {
	// A ticket may legitimately be first observed via a response event.
	agg := Merge(nil, responseEvent())
	require.Equal(t, EventUnknown, agg.LastEventType)
	require.Equal(t, 2, agg.MemberCount)
	require.Equal(t, 1, agg.ResponseCount)
}

func TestMergeIdempotent(t *testing.T) {
	e := responseEvent()
	first := Merge(nil, e)
	second := Merge(&first, e)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestMergeStickyCreationFlag(t *testing.T) {
	creation := creationEvent()
	response := responseEvent()

	// Creation first, then responses.
	agg := Merge(nil, creation)
	agg = Merge(&agg, response)
	agg = Merge(&agg, response)
	require.Equal(t, EventTicketCreated, agg.LastEventType)

	// Responses first, creation later: the marker still lands and sticks.
	agg = Merge(nil, response)
	require.Equal(t, EventUnknown, agg.LastEventType)
	agg = Merge(&agg, creation)
	require.Equal(t, EventTicketCreated, agg.LastEventType)
	agg = Merge(&agg, response)
	require.Equal(t, EventTicketCreated, agg.LastEventType)

	// Re-delivered creation is an idempotent restate, not an error.
	agg = Merge(&agg, creation)
	require.Equal(t, EventTicketCreated, agg.LastEventType)
}

func TestMergeRecomputesCounters(t *testing.T) {
	agg := Merge(nil, creationEvent())
	require.Equal(t, 2, agg.MemberCount)
	require.Equal(t, 0, agg.ResponseCount)

	agg = Merge(&agg, responseEvent())
	require.Equal(t, 2, agg.MemberCount)
	require.Equal(t, 1, agg.ResponseCount)

	// A shrunken snapshot shrinks the counters; nothing increments blindly.
	small := responseEvent()
	small.Members = small.Members[:1]
	agg = Merge(&agg, small)
	require.Equal(t, 1, agg.MemberCount)
	require.Equal(t, 1, agg.ResponseCount)
}

func TestMergeRefreshesSnapshotFields(t *testing.T) {
	agg := Merge(nil, creationEvent())

	update := responseEvent()
	update.DigsiteAddress = "456 Oak Ave"
	update.LegalStartAt = "2024-01-09"
	agg = Merge(&agg, update)

	require.Equal(t, "456 Oak Ave", agg.DigsiteAddress)
	require.Equal(t, "2024-01-09", agg.LegalStartAt)
	require.Equal(t, update.ReceivedAt, agg.LastEventAt)
	require.Equal(t, "raw/b.json", agg.LastRawRef)
}
