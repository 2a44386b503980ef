package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shenikar/incident_triage/internal/classifier"
	"github.com/shenikar/incident_triage/internal/config"
	"github.com/shenikar/incident_triage/internal/notify"
	"github.com/shenikar/incident_triage/internal/realtime"
	"github.com/shenikar/incident_triage/internal/repository"
	"github.com/shenikar/incident_triage/internal/service"
	"github.com/shenikar/incident_triage/pkg/postgres"
	redisclient "github.com/shenikar/incident_triage/pkg/redis"
	"github.com/sirupsen/logrus"
)

// app собирает зависимости сервиса. В режиме memory Redis и Postgres не используются.
type app struct {
	cfg    *config.Config
	logger *logrus.Logger

	dbpool      *pgxpool.Pool
	redisClient *redis.Client

	repo        service.IncidentRepository
	hub         *realtime.Hub
	broadcaster service.Broadcaster
	queue       notify.Queue
	service     service.IncidentService
}

// newApp поднимает хранилище, канал событий, очередь оповещений и сервис
func newApp(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: log}

	if err := a.initStore(ctx); err != nil {
		a.Close()
		return nil, err
	}

	a.hub = realtime.NewHub(cfg.EventsBuffer, log)
	if a.redisClient != nil {
		// Между экземплярами события ходят через Redis, локальные клиенты получают их через Relay
		publisher := realtime.NewRedisBroadcaster(a.redisClient, cfg.EventsChannel, log)
		publisher.Start(ctx)
		a.broadcaster = publisher
		a.queue = notify.NewRedisQueue(a.redisClient)
	} else {
		a.broadcaster = a.hub
		a.queue = notify.NewMemoryQueue(cfg.NotifyQueueSize)
	}

	gateway := classifier.LoadGateway(cfg.SpamModelPath, cfg.CategoryModelPath, log)
	a.service = service.NewIncidentService(a.repo, gateway, a.broadcaster, notify.NewPublisher(a.queue), log)
	return a, nil
}

func (a *app) initStore(ctx context.Context) error {
	if a.cfg.StoreDriver == config.StoreDriverMemory {
		a.logger.Warn("Using in-memory incident store, data is lost on restart")
		a.repo = repository.NewMemoryIncidentRepository()
		return nil
	}

	dbpool, err := postgres.NewPostgresDB(ctx, a.cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	a.dbpool = dbpool
	a.logger.Info("Successfully connected to PostgreSQL")

	redisClient, err := redisclient.NewRedisClient(ctx, a.cfg.RedisAddr, a.cfg.RedisPass, a.cfg.RedisDB)
	if err != nil {
		return err
	}
	a.redisClient = redisClient
	a.logger.Info("Successfully connected to Redis")

	cache := repository.NewRedisIncidentCache(redisClient, a.cfg.IncidentCacheTTL)
	a.repo = repository.NewIncidentRepository(dbpool, cache, a.logger)
	return nil
}

// startRelay пересылает события из Redis в локальный hub
func (a *app) startRelay(ctx context.Context) error {
	if a.redisClient == nil {
		return nil
	}
	return realtime.NewRelay(a.redisClient, a.cfg.EventsChannel, a.hub, a.logger).Start(ctx)
}

// newNotifyWorker собирает каналы доставки и воркер очереди оповещений
func (a *app) newNotifyWorker(ctx context.Context) (*notify.Worker, error) {
	directory, err := notify.LoadDirectory(a.cfg.SubscribersFile, a.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load subscribers: %w", err)
	}
	if err := directory.Watch(ctx); err != nil {
		a.logger.WithError(err).Warn("Subscriber directory will not be reloaded on change")
	}

	var email notify.EmailSender
	if a.cfg.SMTPHost != "" {
		email = notify.NewSMTPSender(notify.SMTPConfig{
			Host:     a.cfg.SMTPHost,
			Port:     a.cfg.SMTPPort,
			User:     a.cfg.SMTPUser,
			Password: a.cfg.SMTPPassword,
			From:     a.cfg.SMTPFrom,
		})
	}

	var sms notify.SMSSender
	if a.cfg.SMSAPIURL != "" {
		sms = notify.NewSMSClient(notify.SMSConfig{
			APIURL:        a.cfg.SMSAPIURL,
			AccountSID:    a.cfg.SMSAccountSID,
			AuthToken:     a.cfg.SMSAuthToken,
			From:          a.cfg.SMSFrom,
			RatePerSecond: a.cfg.SMSRatePerSecond,
		}).SetTimeout(a.cfg.NotifyChannelTimeout)
	}

	dispatcher := notify.NewDispatcher(directory, email, sms, notify.DispatcherConfig{
		RadiusKM:       a.cfg.AlertRadiusKM,
		Concurrency:    a.cfg.NotifyConcurrency,
		ChannelTimeout: a.cfg.NotifyChannelTimeout,
	}, a.logger)

	return notify.NewWorker(a.queue, dispatcher, a.cfg.NotifyWorkers, a.logger), nil
}

// Close освобождает соединения
func (a *app) Close() {
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.WithError(err).Warn("Failed to close Redis client")
		}
	}
	if a.dbpool != nil {
		a.dbpool.Close()
	}
}
