package service_test

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shenikar/incident_triage/internal/classifier"
	"github.com/shenikar/incident_triage/internal/models"
	"github.com/shenikar/incident_triage/internal/notify"
	"github.com/shenikar/incident_triage/internal/realtime"
	"github.com/shenikar/incident_triage/internal/repository"
	"github.com/shenikar/incident_triage/internal/service"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu    sync.Mutex
	email []string
	sms   []string
}

func (r *recorder) SendEmail(_ context.Context, to, _, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.email = append(r.email, to)
	return nil
}

func (r *recorder) SendSMS(_ context.Context, to, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sms = append(r.sms, to)
	return nil
}

func (r *recorder) snapshot() ([]string, []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.email...), append([]string(nil), r.sms...)
}

type pipeline struct {
	service service.IncidentService
	events  <-chan realtime.Event
	sent    *recorder
}

// newPipeline собирает сервис из реальных компонентов в режиме памяти
func newPipeline(t *testing.T) pipeline {
	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})

	gateway := classifier.LoadGateway("../../models/spam_model.json", "../../models/category_model.json", logger)
	require.True(t, gateway.SpamAvailable())
	require.True(t, gateway.CategoryAvailable())

	hub := realtime.NewHub(16, logger)
	events, unsubscribe := hub.Subscribe()
	t.Cleanup(unsubscribe)

	sent := &recorder{}
	directory := notify.NewStaticDirectory([]models.Subscriber{
		{Name: "near", Email: "near@example.com", Phone: "+10000000001", Latitude: 33.7, Longitude: 72.8},
		{Name: "far", Email: "far@example.com", Phone: "+10000000002", Latitude: 31.5, Longitude: 74.3},
	})
	dispatcher := notify.NewDispatcher(directory, sent, sent, notify.DispatcherConfig{
		RadiusKM:       20,
		Concurrency:    4,
		ChannelTimeout: time.Second,
	}, logger)
	queue := notify.NewMemoryQueue(8)
	worker := notify.NewWorker(queue, dispatcher, 1, logger)
	ctx, cancel := context.WithCancel(context.Background())
	worker.Start(ctx)
	t.Cleanup(func() {
		cancel()
		worker.Wait()
	})

	svc := service.NewIncidentService(repository.NewMemoryIncidentRepository(), gateway, hub, notify.NewPublisher(queue), logger)
	return pipeline{service: svc, events: events, sent: sent}
}

func noEvent(t *testing.T, events <-chan realtime.Event) {
	t.Helper()
	select {
	case ev := <-events:
		t.Fatalf("unexpected event %s", ev.Type)
	default:
	}
}

func nextEvent(t *testing.T, events <-chan realtime.Event) realtime.Event {
	t.Helper()
	select {
	case ev := <-events:
		return ev
	case <-time.After(time.Second):
		t.Fatal("expected an event")
		return realtime.Event{}
	}
}

func TestScenario_SpamReportIsHidden(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()

	submission, err := p.service.SubmitReport(ctx, &models.Incident{
		Location:    "Park",
		Severity:    models.SeverityHigh,
		Description: "Buy now! Free money",
		Latitude:    33.7,
		Longitude:   72.8,
	})
	require.NoError(t, err)

	inc := submission.Incident
	assert.True(t, inc.Spam)
	assert.True(t, inc.Flagged)
	assert.False(t, inc.Approved)
	noEvent(t, p.events)

	public, err := p.service.ListPublic(ctx)
	require.NoError(t, err)
	assert.Empty(t, public)

	flagged, err := p.service.ListFlagged(ctx)
	require.NoError(t, err)
	require.Len(t, flagged, 1)
	assert.Equal(t, inc.ID, flagged[0].ID)
}

func TestScenario_ReportApproveAndAlert(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()

	submission, err := p.service.SubmitReport(ctx, &models.Incident{
		Location:    "Main St",
		Severity:    models.SeverityHigh,
		Description: "Robbery reported at local bank",
		Latitude:    33.7,
		Longitude:   72.81,
	})
	require.NoError(t, err)

	inc := submission.Incident
	assert.False(t, inc.Spam)
	assert.False(t, inc.Flagged)
	assert.False(t, inc.Approved)
	assert.Equal(t, "theft", inc.Category)
	assert.False(t, submission.Degraded)

	created := nextEvent(t, p.events)
	assert.Equal(t, realtime.EventIncidentCreated, created.Type)
	assert.Equal(t, inc.ID, created.Incident.ID)

	public, err := p.service.ListPublic(ctx)
	require.NoError(t, err)
	assert.Empty(t, public)

	approved, err := p.service.Approve(ctx, inc.ID)
	require.NoError(t, err)
	assert.True(t, approved.Approved)

	ev := nextEvent(t, p.events)
	assert.Equal(t, realtime.EventIncidentApproved, ev.Type)
	assert.True(t, ev.Incident.Approved)

	assert.Eventually(t, func() bool {
		email, sms := p.sent.snapshot()
		return len(email) == 1 && len(sms) == 1
	}, 2*time.Second, 10*time.Millisecond)
	email, sms := p.sent.snapshot()
	assert.Equal(t, []string{"near@example.com"}, email)
	assert.Equal(t, []string{"+10000000001"}, sms)

	public, err = p.service.ListPublic(ctx)
	require.NoError(t, err)
	require.Len(t, public, 1)
	assert.Equal(t, inc.ID, public[0].ID)

	alerts, err := p.service.ListAlerts(ctx)
	require.NoError(t, err)
	assert.Len(t, alerts, 1)
}

func TestScenario_RejectRemovesPermanently(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()

	submission, err := p.service.SubmitReport(ctx, &models.Incident{
		Location:    "Bridge",
		Severity:    models.SeverityMedium,
		Description: "Car crash on the road",
	})
	require.NoError(t, err)
	id := submission.Incident.ID

	require.NoError(t, p.service.Reject(ctx, id))

	_, err = p.service.GetIncident(ctx, id)
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.ErrorIs(t, p.service.Reject(ctx, id), models.ErrNotFound)
	_, err = p.service.Approve(ctx, id)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestScenario_PublicFeedOrderedNewestFirst(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()

	var ids []string
	for _, desc := range []string{"Fire at shopping mall", "Flood water on the road", "Car crash on the road"} {
		submission, err := p.service.SubmitReport(ctx, &models.Incident{
			Location:    "Somewhere",
			Severity:    models.SeverityLow,
			Description: desc,
		})
		require.NoError(t, err)
		_, err = p.service.Approve(ctx, submission.Incident.ID)
		require.NoError(t, err)
		ids = append(ids, submission.Incident.ID.String())
		// Разные отметки времени для детерминированного порядка
		time.Sleep(2 * time.Millisecond)
	}

	public, err := p.service.ListPublic(ctx)
	require.NoError(t, err)
	require.Len(t, public, 3)
	for i := 1; i < len(public); i++ {
		assert.False(t, public[i].SubmittedAt.After(public[i-1].SubmittedAt))
	}
	assert.Equal(t, ids[2], public[0].ID.String())
	assert.Equal(t, ids[0], public[2].ID.String())

	hotspots, err := p.service.Hotspots(ctx)
	require.NoError(t, err)
	require.Len(t, hotspots, 3)
}

func TestScenario_HotspotsEmpty(t *testing.T) {
	p := newPipeline(t)

	hotspots, err := p.service.Hotspots(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, hotspots)
	assert.Empty(t, hotspots)
}
