package realtime

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	publishTimeout = 2 * time.Second
	// publishQueueSize - сколько событий может ждать отправки в Redis
	publishQueueSize = 256
)

// RedisBroadcaster публикует события в канал Redis, чтобы их получили все экземпляры сервиса.
// Отправляет одна горутина, поэтому порядок событий сохраняется.
type RedisBroadcaster struct {
	redisClient *redis.Client
	channel     string
	queue       chan []byte
	logger      *logrus.Logger
	dropped     atomic.Int64
}

// NewRedisBroadcaster создает новый RedisBroadcaster. События уходят после вызова Start.
func NewRedisBroadcaster(client *redis.Client, channel string, logger *logrus.Logger) *RedisBroadcaster {
	return &RedisBroadcaster{
		redisClient: client,
		channel:     channel,
		queue:       make(chan []byte, publishQueueSize),
		logger:      logger,
	}
}

// Start запускает горутину отправки, она работает до отмены контекста
func (b *RedisBroadcaster) Start(ctx context.Context) {
	b.logger.WithField("channel", b.channel).Info("Starting live event publisher...")
	go func() {
		for {
			select {
			case <-ctx.Done():
				b.logger.Info("Stopping live event publisher.")
				return
			case payload := <-b.queue:
				b.send(ctx, payload)
			}
		}
	}()
}

func (b *RedisBroadcaster) send(ctx context.Context, payload []byte) {
	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := b.redisClient.Publish(pubCtx, b.channel, payload).Err(); err != nil {
		b.logger.WithError(err).Error("Failed to publish live event to Redis")
	}
}

// Publish ставит событие в очередь отправки, не задерживая запрос. При полной очереди событие теряется.
func (b *RedisBroadcaster) Publish(_ context.Context, ev Event) {
	log := b.logger.WithField("event", ev.Type)
	payload, err := encodeEvent(ev)
	if err != nil {
		log.WithError(err).Error("Failed to encode live event")
		return
	}

	select {
	case b.queue <- payload:
	default:
		log.WithField("dropped_total", b.dropped.Add(1)).Warn("Live event publish queue is full, event dropped")
	}
}

// Relay пересылает события из канала Redis в локальный Hub
type Relay struct {
	redisClient *redis.Client
	channel     string
	hub         *Hub
	logger      *logrus.Logger
}

func NewRelay(client *redis.Client, channel string, hub *Hub, logger *logrus.Logger) *Relay {
	return &Relay{
		redisClient: client,
		channel:     channel,
		hub:         hub,
		logger:      logger,
	}
}

// Start подписывается на канал и запускает горутину пересылки
func (r *Relay) Start(ctx context.Context) error {
	pubsub := r.redisClient.Subscribe(ctx, r.channel)
	// Дожидаемся подтверждения подписки, иначе первые события могут потеряться
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return err
	}

	r.logger.WithField("channel", r.channel).Info("Starting live event relay...")
	go func() {
		defer pubsub.Close()
		messages := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				r.logger.Info("Stopping live event relay.")
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				r.forward(ctx, msg.Payload)
			}
		}
	}()
	return nil
}

func (r *Relay) forward(ctx context.Context, payload string) {
	ev, err := decodeEvent([]byte(payload))
	if err != nil {
		r.logger.WithError(err).Error("Failed to decode live event from Redis")
		return
	}
	r.hub.Publish(ctx, ev)
}
