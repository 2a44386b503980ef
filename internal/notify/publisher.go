package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/shenikar/incident_triage/internal/models"
)

// Publisher ставит одобренные инциденты в очередь оповещений
type Publisher struct {
	queue Queue
}

func NewPublisher(queue Queue) *Publisher {
	return &Publisher{queue: queue}
}

// Publish не ждет доставки: рассылкой занимается Worker
func (p *Publisher) Publish(ctx context.Context, incident *models.Incident) error {
	cp := *incident
	job := AlertJob{Incident: &cp, EnqueuedAt: time.Now().UTC()}
	if err := p.queue.Enqueue(ctx, job); err != nil {
		return fmt.Errorf("notify: could not enqueue alert for incident %s: %w", incident.ID, err)
	}
	return nil
}
