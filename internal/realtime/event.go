package realtime

import (
	"encoding/json"
	"fmt"

	"github.com/shenikar/incident_triage/internal/models"
)

// EventType - тип события живой ленты
type EventType string

const (
	EventIncidentCreated  EventType = "incident.created"
	EventIncidentApproved EventType = "incident.approved"
)

// Event - событие живой ленты. Incident сериализуется так же, как в REST ответах.
type Event struct {
	Type     EventType        `json:"type"`
	Incident *models.Incident `json:"incident"`
}

// NewEvent копирует инцидент, чтобы последующие изменения не попали в уже отправленное событие
func NewEvent(t EventType, incident *models.Incident) Event {
	cp := *incident
	return Event{Type: t, Incident: &cp}
}

func encodeEvent(ev Event) ([]byte, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}
	return payload, nil
}

func decodeEvent(payload []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return Event{}, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	if ev.Incident == nil {
		return Event{}, fmt.Errorf("event %q has no incident", ev.Type)
	}
	return ev, nil
}
