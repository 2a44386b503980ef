package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shenikar/incident_triage/internal/models"
	"github.com/shenikar/incident_triage/internal/realtime"
	"github.com/sirupsen/logrus"
)

// Переходы модерации:
//
//	Submit:  -> Flagged (спам) | PendingReview
//	Approve: PendingReview | Flagged -> Approved
//	Reject:  любое -> удален
//	SetFlag: любое, меняет только flagged
//	Remove:  любое -> удален
//
// Возврата из Approved в PendingReview нет.

// now вынесен для тестов
// Postgres хранит микросекунды, поэтому время отчета сразу усекается до них
var now = func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) }

// SubmitReport классифицирует и сохраняет новый отчет
func (s *incidentService) SubmitReport(ctx context.Context, incident *models.Incident) (*models.Submission, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":  "incident",
		"method":   "SubmitReport",
		"location": incident.Location,
		"severity": incident.Severity,
	})
	log.Info("Attempting to submit a new report")

	if err := validateReport(incident); err != nil {
		log.WithError(err).Warn("Report validation failed")
		return nil, err
	}

	verdict := s.classifier.Classify(incident.Description)
	if verdict.Degraded {
		log.Warn("Classifier degraded, using fallback verdict")
	}

	incident.Category = verdict.Category
	incident.Spam = verdict.Spam
	// Спам - причина пометки, а не отдельный путь видимости
	incident.Flagged = verdict.Spam
	incident.Approved = false
	incident.SubmittedAt = now()

	id, err := s.repo.Insert(ctx, incident)
	if err != nil {
		log.WithError(err).Error("Failed to insert incident in repository")
		return nil, fmt.Errorf("service: could not create incident: %w", err)
	}
	incident.ID = id

	log = log.WithFields(logrus.Fields{
		"incident_id": id,
		"category":    incident.Category,
		"spam":        incident.Spam,
		"spam_score":  verdict.SpamScore,
		"suspicious":  verdict.Suspicious,
	})

	if incident.Spam {
		log.Info("Report classified as spam and flagged")
	} else {
		s.broadcaster.Publish(ctx, realtime.NewEvent(realtime.EventIncidentCreated, incident))
		log.Info("Report accepted for review")
	}

	return &models.Submission{
		Incident:   incident,
		Degraded:   verdict.Degraded,
		Suspicious: verdict.Suspicious,
	}, nil
}

// Approve одобряет инцидент, рассылает событие и, для высокой опасности, ставит оповещение в очередь.
// Ошибка постановки оповещения не влияет на результат одобрения.
func (s *incidentService) Approve(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "incident",
		"method":      "Approve",
		"incident_id": id,
	})
	log.Info("Attempting to approve incident")

	incident, err := s.repo.Update(ctx, id, models.IncidentPatch{
		Approved: models.Bool(true),
		Flagged:  models.Bool(false),
	})
	if err != nil {
		return nil, s.mutationError(log, "approve", err)
	}

	s.broadcaster.Publish(ctx, realtime.NewEvent(realtime.EventIncidentApproved, incident))

	if incident.Severity == models.SeverityHigh {
		if err := s.alerts.Publish(ctx, incident); err != nil {
			log.WithError(err).Error("Failed to enqueue subscriber alerts")
		} else {
			log.Info("Subscriber alerts enqueued")
		}
	}

	log.Info("Incident approved successfully")
	return incident, nil
}

// Reject удаляет инцидент: отдельного состояния "отклонен" нет
func (s *incidentService) Reject(ctx context.Context, id uuid.UUID) error {
	return s.delete(ctx, "Reject", id)
}

// Remove безусловно удаляет инцидент
func (s *incidentService) Remove(ctx context.Context, id uuid.UUID) error {
	return s.delete(ctx, "Remove", id)
}

func (s *incidentService) delete(ctx context.Context, method string, id uuid.UUID) error {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "incident",
		"method":      method,
		"incident_id": id,
	})
	log.Info("Attempting to delete incident")

	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return s.mutationError(log, "delete", err)
	}
	if !deleted {
		log.Warn("Attempted to delete a non-existent incident")
		return fmt.Errorf("service: incident with id %s not found for delete: %w", id, models.ErrNotFound)
	}

	log.Info("Incident deleted successfully")
	return nil
}

// SetFlag перезаписывает только флаг пометки
func (s *incidentService) SetFlag(ctx context.Context, id uuid.UUID, flagged *bool) (*models.Incident, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "incident",
		"method":      "SetFlag",
		"incident_id": id,
	})
	if flagged == nil {
		log.Warn("Flag value is missing")
		return nil, fmt.Errorf("%w: flagged value is required", models.ErrValidation)
	}
	log = log.WithField("flagged", *flagged)
	log.Info("Attempting to update incident flag")

	incident, err := s.repo.Update(ctx, id, models.IncidentPatch{Flagged: flagged})
	if err != nil {
		return nil, s.mutationError(log, "update flag", err)
	}

	log.Info("Incident flag updated successfully")
	return incident, nil
}

func (s *incidentService) mutationError(log *logrus.Entry, action string, err error) error {
	if errors.Is(err, models.ErrNotFound) {
		log.WithError(err).Warn("Incident not found")
		return fmt.Errorf("service: incident not found for %s: %w", action, err)
	}
	log.WithError(err).Error("Repository failure")
	return fmt.Errorf("service: could not %s incident: %w", action, err)
}
