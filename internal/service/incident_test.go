package service

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shenikar/incident_triage/internal/classifier"
	"github.com/shenikar/incident_triage/internal/models"
	"github.com/shenikar/incident_triage/internal/service/mocks"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type testDeps struct {
	repo        *mocks.MockIncidentRepository
	classifier  *mocks.MockClassifier
	broadcaster *mocks.MockBroadcaster
	alerts      *mocks.MockAlertPublisher
}

// newTestIncidentService - вспомогательная функция для создания инстанса сервиса с моками.
func newTestIncidentService(t *testing.T) (*incidentService, testDeps) {
	ctrl := gomock.NewController(t)
	deps := testDeps{
		repo:        mocks.NewMockIncidentRepository(ctrl),
		classifier:  mocks.NewMockClassifier(ctrl),
		broadcaster: mocks.NewMockBroadcaster(ctrl),
		alerts:      mocks.NewMockAlertPublisher(ctrl),
	}

	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{}) // Отключаем вывод логов в тестах

	service := NewIncidentService(deps.repo, deps.classifier, deps.broadcaster, deps.alerts, logger)
	return service.(*incidentService), deps
}

func approvedIncident(lat, lng float64, severity models.Severity) *models.Incident {
	return &models.Incident{
		ID:          uuid.New(),
		Category:    "theft",
		Location:    "Main St",
		Severity:    severity,
		Description: "Robbery reported at local bank",
		Latitude:    lat,
		Longitude:   lng,
		SubmittedAt: time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC),
		Approved:    true,
	}
}

func TestGetIncident_Success(t *testing.T) {
	// Подготовка
	service, deps := newTestIncidentService(t)
	ctx := context.Background()
	expected := approvedIncident(33.7, 72.81, models.SeverityHigh)

	// Ожидания
	deps.repo.EXPECT().GetByID(ctx, expected.ID).Return(expected, nil).Times(1)

	// Действие
	incident, err := service.GetIncident(ctx, expected.ID)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, expected, incident)
}

func TestGetIncident_NotFound(t *testing.T) {
	// Подготовка
	service, deps := newTestIncidentService(t)
	ctx := context.Background()
	id := uuid.New()

	// Ожидания
	deps.repo.EXPECT().
		GetByID(ctx, id).
		Return(nil, fmt.Errorf("incident with id %s: %w", id, models.ErrNotFound)).
		Times(1)

	// Действие
	incident, err := service.GetIncident(ctx, id)

	// Проверки
	require.Error(t, err)
	assert.Nil(t, incident)
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.ErrorContains(t, err, "could not get incident")
}

func TestListPublic_UsesPublicFilter(t *testing.T) {
	// Подготовка
	service, deps := newTestIncidentService(t)
	ctx := context.Background()
	expected := []*models.Incident{approvedIncident(1, 1, models.SeverityLow)}

	// Ожидания
	deps.repo.EXPECT().List(ctx, models.PublicFilter()).Return(expected, nil).Times(1)

	// Действие
	incidents, err := service.ListPublic(ctx)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, expected, incidents)
}

func TestListAllAndFlagged_Filters(t *testing.T) {
	// Подготовка
	service, deps := newTestIncidentService(t)
	ctx := context.Background()

	// Ожидания
	deps.repo.EXPECT().List(ctx, models.IncidentFilter{}).Return([]*models.Incident{}, nil).Times(1)
	deps.repo.EXPECT().List(ctx, models.FlaggedFilter()).Return([]*models.Incident{}, nil).Times(1)

	// Действие
	all, errAll := service.ListAll(ctx)
	flagged, errFlagged := service.ListFlagged(ctx)

	// Проверки
	require.NoError(t, errAll)
	require.NoError(t, errFlagged)
	assert.Empty(t, all)
	assert.Empty(t, flagged)
}

func TestListPublic_StoreFailure(t *testing.T) {
	// Подготовка
	service, deps := newTestIncidentService(t)
	ctx := context.Background()
	storeErr := fmt.Errorf("%w: failed to list incidents: connection reset", models.ErrStore)

	// Ожидания
	deps.repo.EXPECT().List(ctx, gomock.Any()).Return(nil, storeErr).Times(1)

	// Действие
	_, err := service.ListPublic(ctx)

	// Проверки
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrStore)
	assert.ErrorContains(t, err, "connection reset")
}

func TestListAlerts_OnlyHighSeverity(t *testing.T) {
	// Подготовка
	service, deps := newTestIncidentService(t)
	ctx := context.Background()
	high := approvedIncident(1, 1, models.SeverityHigh)
	low := approvedIncident(1, 1, models.SeverityLow)

	// Ожидания
	deps.repo.EXPECT().List(ctx, models.PublicFilter()).Return([]*models.Incident{high, low}, nil).Times(1)

	// Действие
	alerts, err := service.ListAlerts(ctx)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, []*models.Incident{high}, alerts)
}

func TestCheckSpam(t *testing.T) {
	// Подготовка
	service, deps := newTestIncidentService(t)
	ctx := context.Background()

	// Ожидания
	deps.classifier.EXPECT().ClassifySpam("Buy now! Free money").Return(true, nil).Times(1)
	deps.classifier.EXPECT().ClassifySpam("anything").Return(false, models.ErrClassifierUnavailable).Times(1)

	// Действие
	spam, err := service.CheckSpam(ctx, "Buy now! Free money")
	_, unavailableErr := service.CheckSpam(ctx, "anything")

	// Проверки
	require.NoError(t, err)
	assert.True(t, spam)
	assert.ErrorIs(t, unavailableErr, models.ErrClassifierUnavailable)
}

func TestPredictCategory(t *testing.T) {
	// Подготовка
	service, deps := newTestIncidentService(t)
	ctx := context.Background()

	// Ожидания
	deps.classifier.EXPECT().ClassifyCategory("Fire at shopping mall").Return("fire", nil).Times(1)
	deps.classifier.EXPECT().ClassifyCategory("x").Return(models.UnknownCategory, models.ErrClassifierUnavailable).Times(1)

	// Действие
	category, err := service.PredictCategory(ctx, "Fire at shopping mall")
	_, unavailableErr := service.PredictCategory(ctx, "x")

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, "fire", category)
	assert.ErrorIs(t, unavailableErr, models.ErrClassifierUnavailable)
}

func TestHotspots_Empty(t *testing.T) {
	// Подготовка
	service, deps := newTestIncidentService(t)
	ctx := context.Background()

	// Ожидания
	deps.repo.EXPECT().List(ctx, models.PublicFilter()).Return([]*models.Incident{}, nil).Times(1)

	// Действие
	hotspots, err := service.Hotspots(ctx)

	// Проверки
	require.NoError(t, err)
	assert.NotNil(t, hotspots)
	assert.Empty(t, hotspots)
}

func TestHotspots_CountsSumToEligible(t *testing.T) {
	// Подготовка
	service, deps := newTestIncidentService(t)
	ctx := context.Background()
	incidents := []*models.Incident{
		approvedIncident(33.70, 72.81, models.SeverityHigh),
		approvedIncident(33.71, 72.80, models.SeverityLow),
		approvedIncident(31.50, 74.30, models.SeverityMedium),
		approvedIncident(0, 0, models.SeverityLow),
		approvedIncident(95, 0, models.SeverityLow), // вне диапазона, пропускается
	}

	// Ожидания
	deps.repo.EXPECT().List(ctx, models.PublicFilter()).Return(incidents, nil).Times(1)

	// Действие
	hotspots, err := service.Hotspots(ctx)

	// Проверки
	require.NoError(t, err)
	assert.Len(t, hotspots, 4)
	total := 0
	for _, h := range hotspots {
		total += h.Count
	}
	assert.Equal(t, 4, total)
}

func TestValidateReport(t *testing.T) {
	testCases := []struct {
		name     string
		incident models.Incident
		wantErr  string
	}{
		{
			name:     "valid",
			incident: models.Incident{Location: "Park", Severity: models.SeverityLow, Description: "Tree down"},
		},
		{
			name:     "missing all",
			incident: models.Incident{},
			wantErr:  "missing fields: location, severity, description",
		},
		{
			name:     "blank description",
			incident: models.Incident{Location: "Park", Severity: models.SeverityLow, Description: "   "},
			wantErr:  "missing fields: description",
		},
		{
			name:     "unknown severity",
			incident: models.Incident{Location: "Park", Severity: "critical", Description: "Tree down"},
			wantErr:  "severity must be one of low, medium, high",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := validateReport(&tc.incident)
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, models.ErrValidation)
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}

// Проверка, что шлюз классификаторов удовлетворяет контракту сервиса
var _ Classifier = (*classifier.Gateway)(nil)
