package v1

import (
	"time"

	"github.com/google/uuid"
)

// ReportRequest DTO для приема отчета об инциденте
// @Description DTO для приема отчета об инциденте
type ReportRequest struct {
	Location    string   `json:"location" validate:"required,max=255"`
	Severity    string   `json:"severity" validate:"required,oneof=low medium high"`
	Description string   `json:"description" validate:"required,max=5000"`
	Latitude    *float64 `json:"latitude,omitempty" validate:"omitempty,latitude"`
	Longitude   *float64 `json:"longitude,omitempty" validate:"omitempty,longitude"`
}

// TextRequest DTO для прямых запросов к классификаторам
// @Description DTO для прямых запросов к классификаторам
type TextRequest struct {
	Description string `json:"description" validate:"required"`
}

// FlagRequest DTO для установки флага пометки
// @Description DTO для установки флага пометки
type FlagRequest struct {
	ID      *string `json:"id" validate:"required"`
	Flagged *bool   `json:"flagged" validate:"required"`
}

// IncidentResponse DTO для ответа с информацией об инциденте
// @Description DTO для ответа с информацией об инциденте
type IncidentResponse struct {
	ID          uuid.UUID `json:"id"`
	Category    string    `json:"category"`
	Location    string    `json:"location"`
	Severity    string    `json:"severity"`
	Description string    `json:"description"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	SubmittedAt time.Time `json:"submitted_at"`
	Approved    bool      `json:"approved"`
	Flagged     bool      `json:"flagged"`
	Spam        bool      `json:"spam"`
}

// ReportMeta - метаданные приема отчета
type ReportMeta struct {
	Degraded   bool `json:"degraded"`
	Suspicious bool `json:"suspicious"`
}

// SuccessResponse - общий конверт успешного ответа
type SuccessResponse struct {
	Status  string      `json:"status" example:"success"`
	Message string      `json:"message,omitempty"`
	Data    any         `json:"data,omitempty"`
	Meta    *ReportMeta `json:"meta,omitempty"`
}

// ErrorResponse - общий конверт ответа с ошибкой
type ErrorResponse struct {
	Status  string `json:"status" example:"error"`
	Message string `json:"message"`
}

// FlagResponse - ответ на изменение флага
type FlagResponse struct {
	Status  string `json:"status" example:"success"`
	Message string `json:"message"`
	Flagged bool   `json:"flagged"`
}

// SpamCheckResponse - ответ спам-классификатора
type SpamCheckResponse struct {
	IsSpam bool `json:"is_spam"`
}

// PredictTypeResponse - ответ классификатора категорий
type PredictTypeResponse struct {
	PredictedType string `json:"predicted_type"`
}

// HotspotResponse - центр кластера
type HotspotResponse struct {
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
	Count int     `json:"count"`
}

const (
	statusSuccess = "success"
	statusError   = "error"
)
