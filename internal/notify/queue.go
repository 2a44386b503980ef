package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shenikar/incident_triage/internal/models"
)

const (
	alertQueueKey = "alert_jobs"
	// popTimeout ограничивает BRPOP, чтобы отмена контекста замечалась без обрыва соединения
	popTimeout = 5 * time.Second
)

// ErrQueueFull - очередь в памяти переполнена
var ErrQueueFull = errors.New("alert queue is full")

// AlertJob - задание на оповещение подписчиков об одобренном инциденте
type AlertJob struct {
	Incident   *models.Incident `json:"incident"`
	EnqueuedAt time.Time        `json:"enqueued_at"`
}

// Queue - очередь заданий оповещения
type Queue interface {
	Enqueue(ctx context.Context, job AlertJob) error
	// Dequeue блокируется до появления задания или отмены контекста
	Dequeue(ctx context.Context) (AlertJob, error)
}

// RedisQueue - очередь на списке Redis: LPUSH на запись, BRPOP на чтение
type RedisQueue struct {
	redisClient *redis.Client
	key         string
}

// NewRedisQueue создает новую RedisQueue
func NewRedisQueue(client *redis.Client) *RedisQueue {
	return &RedisQueue{
		redisClient: client,
		key:         alertQueueKey,
	}
}

// Enqueue добавляет задание в левую часть списка
func (q *RedisQueue) Enqueue(ctx context.Context, job AlertJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal alert job: %w", err)
	}
	if err := q.redisClient.LPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("failed to push alert job to Redis: %w", err)
	}
	return nil
}

// Dequeue забирает задание из правой части списка
func (q *RedisQueue) Dequeue(ctx context.Context) (AlertJob, error) {
	for {
		result, err := q.redisClient.BRPop(ctx, popTimeout, q.key).Result()
		if errors.Is(err, redis.Nil) {
			if ctx.Err() != nil {
				return AlertJob{}, ctx.Err()
			}
			continue
		}
		if err != nil {
			return AlertJob{}, fmt.Errorf("failed to pop alert job from Redis: %w", err)
		}

		// result[0] - ключ, result[1] - значение
		var job AlertJob
		if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
			return AlertJob{}, fmt.Errorf("failed to unmarshal alert job: %w", err)
		}
		return job, nil
	}
}

// MemoryQueue - очередь на буферизованном канале для режима без Redis
type MemoryQueue struct {
	jobs chan AlertJob
}

func NewMemoryQueue(size int) *MemoryQueue {
	if size < 1 {
		size = 1
	}
	return &MemoryQueue{jobs: make(chan AlertJob, size)}
}

// Enqueue не блокируется: при переполнении возвращает ErrQueueFull
func (q *MemoryQueue) Enqueue(_ context.Context, job AlertJob) error {
	select {
	case q.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

func (q *MemoryQueue) Dequeue(ctx context.Context) (AlertJob, error) {
	select {
	case <-ctx.Done():
		return AlertJob{}, ctx.Err()
	case job := <-q.jobs:
		return job, nil
	}
}

// Len возвращает число ожидающих заданий
func (q *MemoryQueue) Len() int {
	return len(q.jobs)
}
