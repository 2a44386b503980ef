package notify

import (
	"fmt"

	"github.com/shenikar/incident_triage/internal/models"
)

// AlertSubject - тема письма-оповещения
const AlertSubject = "Emergency Nearby!"

// AlertBody формирует текст оповещения, одинаковый для email и SMS
func AlertBody(incident *models.Incident) string {
	return fmt.Sprintf("A %s was reported near your area.\nLocation: %s\nDescription: %s",
		incident.Category, incident.Location, incident.Description)
}

// Report - итог рассылки по одному инциденту
type Report struct {
	Matched   int `json:"matched"`
	EmailSent int `json:"emailSent"`
	SMSSent   int `json:"smsSent"`
	Failures  int `json:"failures"`
}
