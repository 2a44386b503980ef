package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shenikar/incident_triage/internal/models"
	"github.com/shenikar/incident_triage/internal/service"
	"github.com/sirupsen/logrus"
)

// DB - подмножество pgxpool.Pool, которое использует репозиторий
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const incidentColumns = `
			id,
			category,
			location,
			severity,
			description,
			ST_Y(coordinates::geometry) AS latitude,
			ST_X(coordinates::geometry) AS longitude,
			submitted_at,
			approved,
			flagged,
			spam`

type IncidentRepository struct {
	db     DB
	cache  IncidentCache
	logger *logrus.Logger
}

// NewIncidentRepository создает репозиторий Postgres. cache может быть nil.
func NewIncidentRepository(db DB, cache IncidentCache, logger *logrus.Logger) service.IncidentRepository {
	return &IncidentRepository{
		db:     db,
		cache:  cache,
		logger: logger,
	}
}

// Insert создает новую запись об инциденте в бд и возвращает присвоенный id
func (r *IncidentRepository) Insert(ctx context.Context, incident *models.Incident) (uuid.UUID, error) {
	query := `
		INSERT INTO incidents (category, location, severity, description, coordinates, submitted_at, approved, flagged, spam)
		VALUES ($1, $2, $3, $4, ST_SetSRID(ST_MakePoint($5, $6), 4326)::geography, $7, $8, $9, $10)
		RETURNING id;
	`
	var id uuid.UUID
	err := r.db.QueryRow(ctx, query,
		incident.Category,
		incident.Location,
		string(incident.Severity),
		incident.Description,
		incident.Longitude,
		incident.Latitude,
		incident.SubmittedAt,
		incident.Approved,
		incident.Flagged,
		incident.Spam,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: failed to create incident: %w", models.ErrStore, err)
	}
	return id, nil
}

// GetByID возвращает инцидент по его UUID, сначала проверяя кеш.
// Версия записи берется до запроса к бд: если Update или Delete успели пройти между
// запросом и записью в кеш, прочитанная строка в кеш не попадет.
func (r *IncidentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	cacheable := false
	var version int64
	if r.cache != nil {
		cached, err := r.cache.Get(ctx, id)
		if err != nil {
			r.logger.WithError(err).WithField("incident_id", id).Warn("Incident cache read failed")
		}
		if cached != nil {
			return cached, nil
		}
		version, err = r.cache.Version(ctx, id)
		if err != nil {
			r.logger.WithError(err).WithField("incident_id", id).Warn("Incident cache version read failed")
		} else {
			cacheable = true
		}
	}

	query := `SELECT` + incidentColumns + `
		FROM incidents
		WHERE id = $1;
	`
	incident, err := scanIncident(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("incident with id %s: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("%w: failed to get incident by id: %w", models.ErrStore, err)
	}

	if cacheable {
		if err := r.cache.Set(ctx, incident, version); err != nil {
			r.logger.WithError(err).WithField("incident_id", id).Warn("Incident cache write failed")
		}
	}
	return incident, nil
}

// List возвращает инциденты по фильтру, новые первыми. Пустое поле фильтра не ограничивает выборку.
func (r *IncidentRepository) List(ctx context.Context, filter models.IncidentFilter) ([]*models.Incident, error) {
	query := `SELECT` + incidentColumns + `
		FROM incidents
		WHERE
			($1::boolean IS NULL OR approved = $1)
			AND ($2::boolean IS NULL OR flagged = $2)
			AND ($3::boolean IS NULL OR spam = $3)
		ORDER BY submitted_at DESC, id;
	`
	rows, err := r.db.Query(ctx, query, filter.Approved, filter.Flagged, filter.Spam)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list incidents: %w", models.ErrStore, err)
	}
	defer rows.Close()

	incidents := make([]*models.Incident, 0)
	for rows.Next() {
		incident, err := scanIncident(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to scan incident row: %w", models.ErrStore, err)
		}
		incidents = append(incidents, incident)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: error list iteration: %w", models.ErrStore, err)
	}
	return incidents, nil
}

// Update атомарно применяет патч одним запросом и возвращает обновленную запись
func (r *IncidentRepository) Update(ctx context.Context, id uuid.UUID, patch models.IncidentPatch) (*models.Incident, error) {
	query := `
		UPDATE incidents SET
			approved = COALESCE($2, approved),
			flagged = COALESCE($3, flagged)
		WHERE id = $1
		RETURNING` + incidentColumns + `;
	`
	incident, err := scanIncident(r.db.QueryRow(ctx, query, id, patch.Approved, patch.Flagged))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("incident with id %s not found for update: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("%w: failed to update incident: %w", models.ErrStore, err)
	}
	r.invalidate(ctx, id)
	return incident, nil
}

// Delete удаляет инцидент. false - записи не было.
func (r *IncidentRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM incidents WHERE id = $1;`, id)
	if err != nil {
		return false, fmt.Errorf("%w: failed to delete incident: %w", models.ErrStore, err)
	}
	r.invalidate(ctx, id)
	return cmdTag.RowsAffected() > 0, nil
}

func (r *IncidentRepository) invalidate(ctx context.Context, id uuid.UUID) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Invalidate(ctx, id); err != nil {
		r.logger.WithError(err).WithField("incident_id", id).Warn("Incident cache invalidation failed")
	}
}

func scanIncident(row pgx.Row) (*models.Incident, error) {
	incident := &models.Incident{}
	var severity string
	err := row.Scan(
		&incident.ID,
		&incident.Category,
		&incident.Location,
		&severity,
		&incident.Description,
		&incident.Latitude,
		&incident.Longitude,
		&incident.SubmittedAt,
		&incident.Approved,
		&incident.Flagged,
		&incident.Spam,
	)
	if err != nil {
		return nil, err
	}
	incident.Severity = models.Severity(severity)
	incident.SubmittedAt = incident.SubmittedAt.UTC()
	return incident, nil
}
