package models

import (
	"time"

	"github.com/google/uuid"
)

// Severity - уровень опасности инцидента
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Valid проверяет, что значение входит в перечисление
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh:
		return true
	}
	return false
}

// UnknownCategory присваивается, если классификатор категорий недоступен
const UnknownCategory = "unknown"

type Incident struct {
	ID          uuid.UUID `json:"id"`
	Category    string    `json:"category"`
	Location    string    `json:"location"`
	Severity    Severity  `json:"severity"`
	Description string    `json:"description"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	SubmittedAt time.Time `json:"submitted_at"`
	Approved    bool      `json:"approved"`
	Flagged     bool      `json:"flagged"`
	Spam        bool      `json:"spam"`
}

// Public - попадает ли инцидент в публичную ленту
func (i *Incident) Public() bool {
	return i.Approved && !i.Flagged && !i.Spam
}

// IncidentFilter - конъюнктивный фильтр для выборки инцидентов, nil означает "любое значение"
type IncidentFilter struct {
	Approved *bool
	Flagged  *bool
	Spam     *bool
}

// Match проверяет инцидент на соответствие фильтру
func (f IncidentFilter) Match(i *Incident) bool {
	if f.Approved != nil && *f.Approved != i.Approved {
		return false
	}
	if f.Flagged != nil && *f.Flagged != i.Flagged {
		return false
	}
	if f.Spam != nil && *f.Spam != i.Spam {
		return false
	}
	return true
}

// PublicFilter - одобренные, не помеченные и не спам
func PublicFilter() IncidentFilter {
	return IncidentFilter{Approved: Bool(true), Flagged: Bool(false), Spam: Bool(false)}
}

// FlaggedFilter - все помеченные инциденты
func FlaggedFilter() IncidentFilter {
	return IncidentFilter{Flagged: Bool(true)}
}

// IncidentPatch - частичное обновление полей модерации
type IncidentPatch struct {
	Approved *bool
	Flagged  *bool
}

// Apply применяет патч к инциденту
func (p IncidentPatch) Apply(i *Incident) {
	if p.Approved != nil {
		i.Approved = *p.Approved
	}
	if p.Flagged != nil {
		i.Flagged = *p.Flagged
	}
}

func Bool(v bool) *bool {
	return &v
}

// Submission - результат приема отчета
type Submission struct {
	Incident *Incident
	// Degraded выставляется, если хотя бы одна модель недоступна и использовано значение по умолчанию
	Degraded   bool
	Suspicious bool
}
