package notify

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/shenikar/incident_triage/internal/geo"
	"github.com/shenikar/incident_triage/internal/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// SubscriberSource - источник списка подписчиков
type SubscriberSource interface {
	Subscribers() []models.Subscriber
}

// DispatcherConfig - параметры рассылки
type DispatcherConfig struct {
	RadiusKM       float64
	Concurrency    int
	ChannelTimeout time.Duration
}

// Dispatcher рассылает оповещение подписчикам в радиусе от инцидента.
// Каждый вызов канала независим: ошибка считается и логируется, рассылка продолжается.
type Dispatcher struct {
	directory SubscriberSource
	email     EmailSender
	sms       SMSSender
	cfg       DispatcherConfig
	logger    *logrus.Logger
}

// NewDispatcher создает Dispatcher. Nil канал означает, что он не настроен.
func NewDispatcher(directory SubscriberSource, email EmailSender, sms SMSSender, cfg DispatcherConfig, logger *logrus.Logger) *Dispatcher {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return &Dispatcher{
		directory: directory,
		email:     email,
		sms:       sms,
		cfg:       cfg,
		logger:    logger,
	}
}

// Deliver выполняет рассылку и возвращает отчет
func (d *Dispatcher) Deliver(ctx context.Context, incident *models.Incident) Report {
	log := d.logger.WithFields(logrus.Fields{
		"component":   "dispatcher",
		"incident_id": incident.ID,
	})

	origin := geo.Point{Lat: incident.Latitude, Lng: incident.Longitude}
	var matched []models.Subscriber
	for _, sub := range d.directory.Subscribers() {
		if geo.Within(origin, geo.Point{Lat: sub.Latitude, Lng: sub.Longitude}, d.cfg.RadiusKM) {
			matched = append(matched, sub)
		}
	}

	if d.email == nil {
		log.Warn("Email channel is not configured. Skipping email delivery.")
	}
	if d.sms == nil {
		log.Warn("SMS channel is not configured. Skipping SMS delivery.")
	}

	body := AlertBody(incident)
	var emailSent, smsSent, failures atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.cfg.Concurrency)
	for _, sub := range matched {
		subLog := log.WithField("subscriber", sub.Name)
		if d.email != nil && sub.Email != "" {
			g.Go(func() error {
				if err := d.call(gctx, func(c context.Context) error {
					return d.email.SendEmail(c, sub.Email, AlertSubject, body)
				}); err != nil {
					failures.Add(1)
					subLog.WithError(err).WithField("channel", "email").Warn("Failed to deliver alert")
					return nil
				}
				emailSent.Add(1)
				subLog.WithField("channel", "email").Debug("Alert delivered")
				return nil
			})
		}
		if d.sms != nil && sub.Phone != "" {
			g.Go(func() error {
				if err := d.call(gctx, func(c context.Context) error {
					return d.sms.SendSMS(c, sub.Phone, body)
				}); err != nil {
					failures.Add(1)
					subLog.WithError(err).WithField("channel", "sms").Warn("Failed to deliver alert")
					return nil
				}
				smsSent.Add(1)
				subLog.WithField("channel", "sms").Debug("Alert delivered")
				return nil
			})
		}
	}
	// Горутины не возвращают ошибок: сбой одного канала не прерывает остальные
	_ = g.Wait()

	report := Report{
		Matched:   len(matched),
		EmailSent: int(emailSent.Load()),
		SMSSent:   int(smsSent.Load()),
		Failures:  int(failures.Load()),
	}
	log.WithFields(logrus.Fields{
		"matched":    report.Matched,
		"email_sent": report.EmailSent,
		"sms_sent":   report.SMSSent,
		"failures":   report.Failures,
	}).Info("Alert fan-out finished")
	return report
}

func (d *Dispatcher) call(ctx context.Context, send func(context.Context) error) error {
	if d.cfg.ChannelTimeout <= 0 {
		return send(ctx)
	}
	callCtx, cancel := context.WithTimeout(ctx, d.cfg.ChannelTimeout)
	defer cancel()
	return send(callCtx)
}
