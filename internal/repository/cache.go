package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shenikar/incident_triage/internal/models"
)

// versionTTL - срок жизни счетчика изменений. Должен быть заметно дольше любого чтения из бд.
const versionTTL = time.Hour

// errStaleRead - запись изменилась, пока шло чтение из бд
var errStaleRead = errors.New("incident changed during read")

// IncidentCache - кеш чтения инцидентов по id.
// Каждое изменение записи увеличивает ее версию; Set с устаревшей версией ничего не пишет,
// так что прочитанная до изменения строка не может вернуться в кеш.
type IncidentCache interface {
	// Get возвращает nil, nil при промахе
	Get(ctx context.Context, id uuid.UUID) (*models.Incident, error)
	// Version возвращает текущую версию записи, ее нужно взять до чтения из бд
	Version(ctx context.Context, id uuid.UUID) (int64, error)
	Set(ctx context.Context, incident *models.Incident, version int64) error
	Invalidate(ctx context.Context, id uuid.UUID) error
}

// RedisIncidentCache хранит инциденты в Redis в JSON
type RedisIncidentCache struct {
	redisClient *redis.Client
	ttl         time.Duration
}

func NewRedisIncidentCache(client *redis.Client, ttl time.Duration) *RedisIncidentCache {
	return &RedisIncidentCache{redisClient: client, ttl: ttl}
}

func cacheKey(id uuid.UUID) string {
	return fmt.Sprintf("incident:%s", id.String())
}

func versionKey(id uuid.UUID) string {
	return fmt.Sprintf("incident:%s:version", id.String())
}

// Get пытается получить инцидент из Redis
func (c *RedisIncidentCache) Get(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	val, err := c.redisClient.Get(ctx, cacheKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get incident from cache: %w", err)
	}

	incident := &models.Incident{}
	if err := json.Unmarshal(val, incident); err != nil {
		return nil, fmt.Errorf("failed to unmarshal incident from cache: %w", err)
	}
	return incident, nil
}

// Version читает счетчик изменений, отсутствующий счетчик равен 0
func (c *RedisIncidentCache) Version(ctx context.Context, id uuid.UUID) (int64, error) {
	return readVersion(ctx, c.redisClient, id)
}

func readVersion(ctx context.Context, cmd redis.Cmdable, id uuid.UUID) (int64, error) {
	v, err := cmd.Get(ctx, versionKey(id)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get incident cache version: %w", err)
	}
	return v, nil
}

// Set сохраняет инцидент в Redis, только если версия не изменилась с момента чтения.
// Проверка и запись выполняются в одной транзакции WATCH/MULTI.
func (c *RedisIncidentCache) Set(ctx context.Context, incident *models.Incident, version int64) error {
	val, err := json.Marshal(incident)
	if err != nil {
		return fmt.Errorf("failed to marshal incident for cache: %w", err)
	}

	err = c.redisClient.Watch(ctx, func(tx *redis.Tx) error {
		current, err := readVersion(ctx, tx, incident.ID)
		if err != nil {
			return err
		}
		if current != version {
			return errStaleRead
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, cacheKey(incident.ID), val, c.ttl)
			return nil
		})
		return err
	}, versionKey(incident.ID))

	// Изменение во время чтения: устаревшую строку просто не кешируем
	if errors.Is(err, errStaleRead) || errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to set incident in cache: %w", err)
	}
	return nil
}

// Invalidate увеличивает версию записи и удаляет ее из кеша
func (c *RedisIncidentCache) Invalidate(ctx context.Context, id uuid.UUID) error {
	_, err := c.redisClient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, versionKey(id))
		pipe.Expire(ctx, versionKey(id), versionTTL)
		pipe.Del(ctx, cacheKey(id))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to invalidate incident cache: %w", err)
	}
	return nil
}
