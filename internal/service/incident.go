package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shenikar/incident_triage/internal/classifier"
	"github.com/shenikar/incident_triage/internal/geo"
	"github.com/shenikar/incident_triage/internal/hotspot"
	"github.com/shenikar/incident_triage/internal/models"
	"github.com/shenikar/incident_triage/internal/realtime"
	"github.com/sirupsen/logrus"
)

//go:generate mockgen -source=incident.go -destination=mocks/mock_incident.go -package=mocks

// IncidentRepository определяет контракт для работы с хранилищем инцидентов
type IncidentRepository interface {
	Insert(ctx context.Context, incident *models.Incident) (uuid.UUID, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Incident, error)
	List(ctx context.Context, filter models.IncidentFilter) ([]*models.Incident, error)
	Update(ctx context.Context, id uuid.UUID, patch models.IncidentPatch) (*models.Incident, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}

// Classifier определяет контракт шлюза классификаторов
type Classifier interface {
	Classify(text string) classifier.Verdict
	ClassifySpam(text string) (bool, error)
	ClassifyCategory(text string) (string, error)
}

// Broadcaster рассылает события подключенным клиентам, не блокируя вызывающего
type Broadcaster interface {
	Publish(ctx context.Context, event realtime.Event)
}

// AlertPublisher ставит одобренный инцидент в очередь на оповещение подписчиков
type AlertPublisher interface {
	Publish(ctx context.Context, incident *models.Incident) error
}

// IncidentService определяет контракт бизнес-логики приема и модерации инцидентов
type IncidentService interface {
	SubmitReport(ctx context.Context, incident *models.Incident) (*models.Submission, error)
	GetIncident(ctx context.Context, id uuid.UUID) (*models.Incident, error)
	ListPublic(ctx context.Context) ([]*models.Incident, error)
	ListAll(ctx context.Context) ([]*models.Incident, error)
	ListFlagged(ctx context.Context) ([]*models.Incident, error)
	ListAlerts(ctx context.Context) ([]*models.Incident, error)
	Approve(ctx context.Context, id uuid.UUID) (*models.Incident, error)
	Reject(ctx context.Context, id uuid.UUID) error
	SetFlag(ctx context.Context, id uuid.UUID, flagged *bool) (*models.Incident, error)
	Remove(ctx context.Context, id uuid.UUID) error
	CheckSpam(ctx context.Context, text string) (bool, error)
	PredictCategory(ctx context.Context, text string) (string, error)
	Hotspots(ctx context.Context) ([]models.Hotspot, error)
}

type incidentService struct {
	repo        IncidentRepository
	classifier  Classifier
	broadcaster Broadcaster
	alerts      AlertPublisher
	logger      *logrus.Logger
	hotspotOpts hotspot.Options
}

func NewIncidentService(repo IncidentRepository, cls Classifier, broadcaster Broadcaster, alerts AlertPublisher, logger *logrus.Logger) IncidentService {
	return &incidentService{
		repo:        repo,
		classifier:  cls,
		broadcaster: broadcaster,
		alerts:      alerts,
		logger:      logger,
		hotspotOpts: hotspot.DefaultOptions(),
	}
}

// GetIncident получает инцидент по ID
func (s *incidentService) GetIncident(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "incident",
		"method":      "GetIncident",
		"incident_id": id,
	})
	log.Debug("Fetching incident by ID")

	incident, err := s.repo.GetByID(ctx, id)
	if err != nil {
		log.WithError(err).Warn("Failed to get incident from repository")
		return nil, fmt.Errorf("service: could not get incident: %w", err)
	}
	return incident, nil
}

// ListPublic возвращает одобренные, не помеченные и не спам инциденты, новые первыми
func (s *incidentService) ListPublic(ctx context.Context) ([]*models.Incident, error) {
	return s.list(ctx, "ListPublic", models.PublicFilter())
}

// ListAll возвращает все инциденты без фильтрации
func (s *incidentService) ListAll(ctx context.Context) ([]*models.Incident, error) {
	return s.list(ctx, "ListAll", models.IncidentFilter{})
}

// ListFlagged возвращает все помеченные инциденты
func (s *incidentService) ListFlagged(ctx context.Context) ([]*models.Incident, error) {
	return s.list(ctx, "ListFlagged", models.FlaggedFilter())
}

// ListAlerts возвращает публичные инциденты высокой опасности
func (s *incidentService) ListAlerts(ctx context.Context) ([]*models.Incident, error) {
	incidents, err := s.list(ctx, "ListAlerts", models.PublicFilter())
	if err != nil {
		return nil, err
	}
	alerts := make([]*models.Incident, 0, len(incidents))
	for _, inc := range incidents {
		if inc.Severity == models.SeverityHigh {
			alerts = append(alerts, inc)
		}
	}
	return alerts, nil
}

func (s *incidentService) list(ctx context.Context, method string, filter models.IncidentFilter) ([]*models.Incident, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service": "incident",
		"method":  method,
	})

	incidents, err := s.repo.List(ctx, filter)
	if err != nil {
		log.WithError(err).Error("Failed to list incidents from repository")
		return nil, fmt.Errorf("service: could not list incidents: %w", err)
	}

	log.WithField("count", len(incidents)).Debug("Incidents listed successfully")
	return incidents, nil
}

// CheckSpam - прямой запрос к спам-модели, без отката на значение по умолчанию
func (s *incidentService) CheckSpam(_ context.Context, text string) (bool, error) {
	spam, err := s.classifier.ClassifySpam(text)
	if err != nil {
		s.logger.WithField("method", "CheckSpam").WithError(err).Warn("Spam classifier unavailable")
		return false, err
	}
	return spam, nil
}

// PredictCategory - прямой запрос к модели категорий
func (s *incidentService) PredictCategory(_ context.Context, text string) (string, error) {
	category, err := s.classifier.ClassifyCategory(text)
	if err != nil {
		s.logger.WithField("method", "PredictCategory").WithError(err).Warn("Category classifier unavailable")
		return "", err
	}
	return category, nil
}

// Hotspots кластеризует текущие публичные инциденты. Считается заново при каждом вызове.
func (s *incidentService) Hotspots(ctx context.Context) ([]models.Hotspot, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service": "incident",
		"method":  "Hotspots",
	})

	incidents, err := s.repo.List(ctx, models.PublicFilter())
	if err != nil {
		log.WithError(err).Error("Failed to list incidents for hotspots")
		return nil, fmt.Errorf("service: could not compute hotspots: %w", err)
	}

	points := make([]geo.Point, 0, len(incidents))
	for _, inc := range incidents {
		p := geo.Point{Lat: inc.Latitude, Lng: inc.Longitude}
		if !p.Valid() {
			log.WithField("incident_id", inc.ID).Warn("Skipping incident with invalid coordinates")
			continue
		}
		points = append(points, p)
	}

	hotspots := hotspot.Cluster(points, s.hotspotOpts)
	log.WithFields(logrus.Fields{"incidents": len(points), "clusters": len(hotspots)}).Debug("Hotspots computed")
	return hotspots, nil
}

// validateReport проверяет обязательные поля отчета
func validateReport(incident *models.Incident) error {
	var missing []string
	if strings.TrimSpace(incident.Location) == "" {
		missing = append(missing, "location")
	}
	if strings.TrimSpace(string(incident.Severity)) == "" {
		missing = append(missing, "severity")
	}
	if strings.TrimSpace(incident.Description) == "" {
		missing = append(missing, "description")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing fields: %s", models.ErrValidation, strings.Join(missing, ", "))
	}
	if !incident.Severity.Valid() {
		return fmt.Errorf("%w: severity must be one of low, medium, high", models.ErrValidation)
	}
	return nil
}
