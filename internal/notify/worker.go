package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const dequeueBackoff = time.Second

// Worker разбирает очередь оповещений в нескольких горутинах
type Worker struct {
	queue      Queue
	dispatcher *Dispatcher
	workers    int
	logger     *logrus.Logger
	wg         sync.WaitGroup
}

// NewWorker создает новый Worker
func NewWorker(queue Queue, dispatcher *Dispatcher, workers int, logger *logrus.Logger) *Worker {
	if workers < 1 {
		workers = 1
	}
	return &Worker{
		queue:      queue,
		dispatcher: dispatcher,
		workers:    workers,
		logger:     logger,
	}
}

// Start запускает горутины обработки очереди
func (w *Worker) Start(ctx context.Context) {
	w.logger.WithField("workers", w.workers).Info("Starting alert worker...")
	for i := 0; i < w.workers; i++ {
		w.wg.Add(1)
		go func(id int) {
			defer w.wg.Done()
			w.run(ctx, id)
		}(i)
	}
}

// Wait дожидается завершения всех горутин после отмены контекста
func (w *Worker) Wait() {
	w.wg.Wait()
}

func (w *Worker) run(ctx context.Context, id int) {
	log := w.logger.WithField("worker_id", id)
	for {
		job, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				log.Info("Stopping alert worker.")
				return
			}
			log.WithError(err).Error("Failed to dequeue alert job")
			select {
			case <-ctx.Done():
				log.Info("Stopping alert worker.")
				return
			case <-time.After(dequeueBackoff):
			}
			continue
		}
		if job.Incident == nil {
			log.Warn("Skipping alert job without incident")
			continue
		}

		log.WithField("incident_id", job.Incident.ID).Debug("Processing alert job...")
		w.dispatcher.Deliver(ctx, job.Incident)
	}
}
