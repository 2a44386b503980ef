package realtime

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shenikar/incident_triage/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) *redis.Client {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func silentLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})
	return logger
}

func TestRedisBroadcaster_RelayKeepsPublishOrder(t *testing.T) {
	client := newTestRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := newTestHub(128)
	events, unsubscribe := hub.Subscribe()
	defer unsubscribe()

	require.NoError(t, NewRelay(client, "incident_events", hub, silentLogger()).Start(ctx))
	publisher := NewRedisBroadcaster(client, "incident_events", silentLogger())
	publisher.Start(ctx)

	// Быстрые пары "создан - одобрен" должны приходить в том же порядке
	var want []Event
	for i := 0; i < 20; i++ {
		inc := testIncident()
		created := NewEvent(EventIncidentCreated, inc)
		inc.Approved = true
		approved := NewEvent(EventIncidentApproved, inc)
		publisher.Publish(ctx, created)
		publisher.Publish(ctx, approved)
		want = append(want, created, approved)
	}

	for i, expected := range want {
		select {
		case got := <-events:
			require.Equal(t, expected.Type, got.Type, "event %d", i)
			require.Equal(t, expected.Incident.ID, got.Incident.ID, "event %d", i)
		case <-time.After(2 * time.Second):
			t.Fatalf("event %d was not relayed", i)
		}
	}
}

func TestRedisBroadcaster_PublishDoesNotBlockWhenQueueIsFull(t *testing.T) {
	client := newTestRedis(t)
	// Без Start очередь никто не разбирает
	publisher := NewRedisBroadcaster(client, "incident_events", silentLogger())
	ev := NewEvent(EventIncidentCreated, &models.Incident{Category: "fire"})

	done := make(chan struct{})
	go func() {
		for i := 0; i < publishQueueSize+3; i++ {
			publisher.Publish(context.Background(), ev)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full queue")
	}
	assert.Equal(t, int64(3), publisher.dropped.Load())
}
