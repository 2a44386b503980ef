package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/shenikar/incident_triage/internal/models"
	"github.com/shenikar/incident_triage/internal/service"
)

// MemoryIncidentRepository - хранилище в памяти процесса. Данные теряются при рестарте.
type MemoryIncidentRepository struct {
	mu        sync.RWMutex
	incidents map[uuid.UUID]*models.Incident
}

func NewMemoryIncidentRepository() service.IncidentRepository {
	return &MemoryIncidentRepository{incidents: make(map[uuid.UUID]*models.Incident)}
}

func (r *MemoryIncidentRepository) Insert(_ context.Context, incident *models.Incident) (uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := uuid.New()
	for {
		if _, exists := r.incidents[id]; !exists {
			break
		}
		id = uuid.New()
	}
	cp := *incident
	cp.ID = id
	r.incidents[id] = &cp
	return id, nil
}

func (r *MemoryIncidentRepository) GetByID(_ context.Context, id uuid.UUID) (*models.Incident, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	incident, ok := r.incidents[id]
	if !ok {
		return nil, fmt.Errorf("incident with id %s: %w", id, models.ErrNotFound)
	}
	cp := *incident
	return &cp, nil
}

func (r *MemoryIncidentRepository) List(_ context.Context, filter models.IncidentFilter) ([]*models.Incident, error) {
	r.mu.RLock()
	incidents := make([]*models.Incident, 0, len(r.incidents))
	for _, incident := range r.incidents {
		if filter.Match(incident) {
			cp := *incident
			incidents = append(incidents, &cp)
		}
	}
	r.mu.RUnlock()

	sort.Slice(incidents, func(i, j int) bool {
		a, b := incidents[i], incidents[j]
		if !a.SubmittedAt.Equal(b.SubmittedAt) {
			return a.SubmittedAt.After(b.SubmittedAt)
		}
		return a.ID.String() < b.ID.String()
	})
	return incidents, nil
}

func (r *MemoryIncidentRepository) Update(_ context.Context, id uuid.UUID, patch models.IncidentPatch) (*models.Incident, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	incident, ok := r.incidents[id]
	if !ok {
		return nil, fmt.Errorf("incident with id %s not found for update: %w", id, models.ErrNotFound)
	}
	patch.Apply(incident)
	cp := *incident
	return &cp, nil
}

func (r *MemoryIncidentRepository) Delete(_ context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.incidents[id]; !ok {
		return false, nil
	}
	delete(r.incidents, id)
	return true, nil
}
