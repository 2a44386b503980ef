package notify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryQueue_EnqueueDequeue(t *testing.T) {
	q := NewMemoryQueue(2)
	inc := alertIncident()

	require.NoError(t, q.Enqueue(context.Background(), AlertJob{Incident: inc}))
	assert.Equal(t, 1, q.Len())

	job, err := q.Dequeue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, inc.ID, job.Incident.ID)
}

func TestMemoryQueue_Full(t *testing.T) {
	q := NewMemoryQueue(1)
	require.NoError(t, q.Enqueue(context.Background(), AlertJob{Incident: alertIncident()}))

	err := q.Enqueue(context.Background(), AlertJob{Incident: alertIncident()})
	assert.ErrorIs(t, err, ErrQueueFull)
}

func TestMemoryQueue_DequeueCanceled(t *testing.T) {
	q := NewMemoryQueue(1)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := q.Dequeue(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPublisher_EnqueuesCopy(t *testing.T) {
	q := NewMemoryQueue(1)
	p := NewPublisher(q)
	inc := alertIncident()

	require.NoError(t, p.Publish(context.Background(), inc))
	inc.Category = "changed"

	job, err := q.Dequeue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fire", job.Incident.Category)
	assert.False(t, job.EnqueuedAt.IsZero())
}

func TestPublisher_QueueFull(t *testing.T) {
	q := NewMemoryQueue(1)
	p := NewPublisher(q)
	require.NoError(t, p.Publish(context.Background(), alertIncident()))

	err := p.Publish(context.Background(), alertIncident())
	assert.ErrorIs(t, err, ErrQueueFull)
}

func TestWorker_DrainsQueue(t *testing.T) {
	q := NewMemoryQueue(4)
	email := &fakeEmail{}
	d := NewDispatcher(NewStaticDirectory(testSubscribers()), email, &fakeSMS{}, testConfig(), silentLogger())
	w := NewWorker(q, d, 2, silentLogger())

	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)

	require.NoError(t, NewPublisher(q).Publish(context.Background(), alertIncident()))
	require.NoError(t, q.Enqueue(context.Background(), AlertJob{}))

	assert.Eventually(t, func() bool { return email.count() == 2 }, time.Second, 5*time.Millisecond)

	cancel()
	done := make(chan struct{})
	go func() {
		w.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after cancel")
	}
}
