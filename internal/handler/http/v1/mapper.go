package v1

import "github.com/shenikar/incident_triage/internal/models"

// ReportToIncidentModel преобразует DTO отчета в доменную модель.
// Отсутствующие координаты считаются нулевыми.
func ReportToIncidentModel(dto ReportRequest) *models.Incident {
	incident := &models.Incident{
		Location:    dto.Location,
		Severity:    models.Severity(dto.Severity),
		Description: dto.Description,
	}
	if dto.Latitude != nil {
		incident.Latitude = *dto.Latitude
	}
	if dto.Longitude != nil {
		incident.Longitude = *dto.Longitude
	}
	return incident
}

// ModelToIncidentResponse преобразует доменную модель в DTO для ответа
func ModelToIncidentResponse(model *models.Incident) *IncidentResponse {
	return &IncidentResponse{
		ID:          model.ID,
		Category:    model.Category,
		Location:    model.Location,
		Severity:    string(model.Severity),
		Description: model.Description,
		Latitude:    model.Latitude,
		Longitude:   model.Longitude,
		SubmittedAt: model.SubmittedAt.UTC(),
		Approved:    model.Approved,
		Flagged:     model.Flagged,
		Spam:        model.Spam,
	}
}

// ModelsToIncidentResponses преобразует слайс моделей в слайс DTO
func ModelsToIncidentResponses(models []*models.Incident) []*IncidentResponse {
	responses := make([]*IncidentResponse, len(models))
	for i, model := range models {
		responses[i] = ModelToIncidentResponse(model)
	}
	return responses
}

// ModelsToHotspotResponses всегда возвращает не-nil слайс, чтобы пустой ответ был []
func ModelsToHotspotResponses(hotspots []models.Hotspot) []HotspotResponse {
	responses := make([]HotspotResponse, len(hotspots))
	for i, h := range hotspots {
		responses[i] = HotspotResponse{Lat: h.Lat, Lng: h.Lng, Count: h.Count}
	}
	return responses
}
