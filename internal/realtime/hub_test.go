package realtime

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shenikar/incident_triage/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHub(buffer int) *Hub {
	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})
	return NewHub(buffer, logger)
}

func testIncident() *models.Incident {
	return &models.Incident{
		ID:          uuid.New(),
		Category:    "theft",
		Location:    "Main St",
		Severity:    models.SeverityHigh,
		Description: "Robbery reported at local bank",
		Latitude:    33.7,
		Longitude:   72.81,
		SubmittedAt: time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC),
	}
}

func TestHub_PublishToAllSubscribers(t *testing.T) {
	hub := newTestHub(4)
	first, unsubFirst := hub.Subscribe()
	defer unsubFirst()
	second, unsubSecond := hub.Subscribe()
	defer unsubSecond()

	ev := NewEvent(EventIncidentCreated, testIncident())
	hub.Publish(context.Background(), ev)

	assert.Equal(t, ev, <-first)
	assert.Equal(t, ev, <-second)
}

func TestHub_NoReplayForLateSubscribers(t *testing.T) {
	hub := newTestHub(4)
	hub.Publish(context.Background(), NewEvent(EventIncidentCreated, testIncident()))

	events, unsubscribe := hub.Subscribe()
	defer unsubscribe()

	select {
	case ev := <-events:
		t.Fatalf("unexpected replayed event %v", ev.Type)
	default:
	}
}

func TestHub_SlowSubscriberDoesNotBlock(t *testing.T) {
	hub := newTestHub(1)
	events, unsubscribe := hub.Subscribe()
	defer unsubscribe()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			hub.Publish(context.Background(), NewEvent(EventIncidentApproved, testIncident()))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
	assert.Len(t, events, 1)
}

func TestHub_Unsubscribe(t *testing.T) {
	hub := newTestHub(1)
	events, unsubscribe := hub.Subscribe()
	require.Equal(t, 1, hub.Subscribers())

	unsubscribe()
	unsubscribe()
	assert.Equal(t, 0, hub.Subscribers())

	_, ok := <-events
	assert.False(t, ok)

	// Публикация после отписки не паникует
	hub.Publish(context.Background(), NewEvent(EventIncidentCreated, testIncident()))
}

func TestNewEvent_CopiesIncident(t *testing.T) {
	inc := testIncident()
	ev := NewEvent(EventIncidentApproved, inc)
	inc.Approved = true

	assert.False(t, ev.Incident.Approved)
}

func TestEventCodec(t *testing.T) {
	ev := NewEvent(EventIncidentApproved, testIncident())
	payload, err := encodeEvent(ev)
	require.NoError(t, err)
	assert.Contains(t, string(payload), `"type":"incident.approved"`)
	assert.Contains(t, string(payload), `"submitted_at":"2026-10-16T12:00:00Z"`)

	decoded, err := decodeEvent(payload)
	require.NoError(t, err)
	assert.Equal(t, ev, decoded)

	_, err = decodeEvent([]byte(`{"type":"incident.created"}`))
	assert.Error(t, err)
	_, err = decodeEvent([]byte(`not json`))
	assert.Error(t, err)
}
