package v1

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shenikar/incident_triage/internal/models"
	"github.com/shenikar/incident_triage/internal/realtime"
	"github.com/shenikar/incident_triage/internal/service"
	"github.com/sirupsen/logrus"
)

// EventSource - источник событий живой ленты
type EventSource interface {
	Subscribe() (<-chan realtime.Event, func())
}

type Handler struct {
	incidentService service.IncidentService
	events          EventSource
	logger          *logrus.Logger
	validate        *validator.Validate
}

func NewHandler(incidentService service.IncidentService, events EventSource, logger *logrus.Logger) *Handler {
	validate := validator.New()
	// В сообщениях об ошибках используем имена полей из JSON
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Handler{
		incidentService: incidentService,
		events:          events,
		logger:          logger,
		validate:        validate,
	}
}

// @Summary Submit an incident report
// @Description Classify and store a new report. Spam is flagged and hidden, other reports await moderation.
// @Tags Reports
// @Accept json
// @Produce json
// @Param report body ReportRequest true "Incident report"
// @Success 201 {object} SuccessResponse{data=IncidentResponse,meta=ReportMeta}
// @Failure 400 {object} ErrorResponse "Missing fields or invalid severity"
// @Failure 500 {object} ErrorResponse "Store failure"
// @Router /report [post]
func (h *Handler) submitReport(c *gin.Context) {
	var input ReportRequest
	log := h.logger.WithField("method", "submitReport")

	if err := c.ShouldBindJSON(&input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		h.fail(c, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		h.fail(c, http.StatusBadRequest, validationMessage(err))
		return
	}

	submission, err := h.incidentService.SubmitReport(c.Request.Context(), ReportToIncidentModel(input))
	if err != nil {
		h.handleError(c, log, err)
		return
	}

	c.JSON(http.StatusCreated, SuccessResponse{
		Status: statusSuccess,
		Data:   ModelToIncidentResponse(submission.Incident),
		Meta: &ReportMeta{
			Degraded:   submission.Degraded,
			Suspicious: submission.Suspicious,
		},
	})
}

// @Summary Public incident feed
// @Description Approved, unflagged, non-spam incidents, newest first
// @Tags Reports
// @Produce json
// @Success 200 {object} SuccessResponse{data=[]IncidentResponse}
// @Failure 500 {object} ErrorResponse "Store failure"
// @Router /incidents [get]
func (h *Handler) listPublic(c *gin.Context) {
	log := h.logger.WithField("method", "listPublic")

	incidents, err := h.incidentService.ListPublic(c.Request.Context())
	if err != nil {
		h.handleError(c, log, err)
		return
	}
	h.ok(c, ModelsToIncidentResponses(incidents))
}

// @Summary High severity alerts
// @Description Public incidents with high severity, newest first
// @Tags Reports
// @Produce json
// @Success 200 {object} SuccessResponse{data=[]IncidentResponse}
// @Failure 500 {object} ErrorResponse "Store failure"
// @Router /alerts [get]
func (h *Handler) listAlerts(c *gin.Context) {
	log := h.logger.WithField("method", "listAlerts")

	incidents, err := h.incidentService.ListAlerts(c.Request.Context())
	if err != nil {
		h.handleError(c, log, err)
		return
	}
	h.ok(c, ModelsToIncidentResponses(incidents))
}

// @Summary Incident hotspots
// @Description Cluster centroids of public incidents, empty array when there are none
// @Tags Reports
// @Produce json
// @Success 200 {array} HotspotResponse
// @Failure 500 {object} ErrorResponse "Store failure"
// @Router /hotspots [get]
func (h *Handler) hotspots(c *gin.Context) {
	log := h.logger.WithField("method", "hotspots")

	hotspots, err := h.incidentService.Hotspots(c.Request.Context())
	if err != nil {
		h.handleError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, ModelsToHotspotResponses(hotspots))
}

// @Summary Check text for spam
// @Tags Classifier
// @Accept json
// @Produce json
// @Param request body TextRequest true "Text to classify"
// @Success 200 {object} SpamCheckResponse
// @Failure 400 {object} ErrorResponse "Missing description"
// @Failure 500 {object} ErrorResponse "Classifier unavailable"
// @Router /check_spam [post]
func (h *Handler) checkSpam(c *gin.Context) {
	log := h.logger.WithField("method", "checkSpam")

	input, ok := h.bindText(c, log)
	if !ok {
		return
	}

	spam, err := h.incidentService.CheckSpam(c.Request.Context(), input.Description)
	if err != nil {
		h.handleError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, SpamCheckResponse{IsSpam: spam})
}

// @Summary Predict incident type
// @Tags Classifier
// @Accept json
// @Produce json
// @Param request body TextRequest true "Text to classify"
// @Success 200 {object} PredictTypeResponse
// @Failure 400 {object} ErrorResponse "Missing description"
// @Failure 500 {object} ErrorResponse "Classifier unavailable"
// @Router /predict-type [post]
func (h *Handler) predictType(c *gin.Context) {
	log := h.logger.WithField("method", "predictType")

	input, ok := h.bindText(c, log)
	if !ok {
		return
	}

	category, err := h.incidentService.PredictCategory(c.Request.Context(), input.Description)
	if err != nil {
		h.handleError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, PredictTypeResponse{PredictedType: category})
}

func (h *Handler) bindText(c *gin.Context, log *logrus.Entry) (TextRequest, bool) {
	var input TextRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		h.fail(c, http.StatusBadRequest, "invalid request body")
		return input, false
	}
	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		h.fail(c, http.StatusBadRequest, validationMessage(err))
		return input, false
	}
	return input, true
}

// @Summary List all incidents
// @Description Full unfiltered list for moderators, newest first
// @Tags Admin
// @Produce json
// @Success 200 {object} SuccessResponse{data=[]IncidentResponse}
// @Failure 500 {object} ErrorResponse "Store failure"
// @Router /admin/incidents [get]
func (h *Handler) listAll(c *gin.Context) {
	log := h.logger.WithField("method", "listAll")

	incidents, err := h.incidentService.ListAll(c.Request.Context())
	if err != nil {
		h.handleError(c, log, err)
		return
	}
	h.ok(c, ModelsToIncidentResponses(incidents))
}

// @Summary List flagged incidents
// @Tags Admin
// @Produce json
// @Success 200 {object} SuccessResponse{data=[]IncidentResponse}
// @Failure 500 {object} ErrorResponse "Store failure"
// @Router /admin/incidents/flagged [get]
func (h *Handler) listFlagged(c *gin.Context) {
	log := h.logger.WithField("method", "listFlagged")

	incidents, err := h.incidentService.ListFlagged(c.Request.Context())
	if err != nil {
		h.handleError(c, log, err)
		return
	}
	h.ok(c, ModelsToIncidentResponses(incidents))
}

// @Summary Get incident by ID
// @Tags Admin
// @Produce json
// @Param id path string true "Incident ID"
// @Success 200 {object} SuccessResponse{data=IncidentResponse}
// @Failure 404 {object} ErrorResponse "Incident not found"
// @Failure 500 {object} ErrorResponse "Store failure"
// @Router /admin/incidents/{id} [get]
func (h *Handler) getIncident(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}
	log := h.logger.WithField("method", "getIncident").WithField("id", id)

	incident, err := h.incidentService.GetIncident(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, log, err)
		return
	}
	h.ok(c, ModelToIncidentResponse(incident))
}

// @Summary Approve an incident
// @Description Publishes the incident, broadcasts it and alerts nearby subscribers for high severity
// @Tags Admin
// @Produce json
// @Param id path string true "Incident ID"
// @Success 200 {object} SuccessResponse{data=IncidentResponse}
// @Failure 404 {object} ErrorResponse "Incident not found"
// @Failure 500 {object} ErrorResponse "Store failure"
// @Router /admin/incidents/{id}/approve [post]
func (h *Handler) approve(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}
	log := h.logger.WithField("method", "approve").WithField("id", id)

	incident, err := h.incidentService.Approve(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{
		Status:  statusSuccess,
		Message: "Incident approved",
		Data:    ModelToIncidentResponse(incident),
	})
}

// @Summary Reject an incident
// @Description Rejection deletes the incident
// @Tags Admin
// @Produce json
// @Param id path string true "Incident ID"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse "Incident not found"
// @Failure 500 {object} ErrorResponse "Store failure"
// @Router /admin/incidents/{id}/reject [post]
func (h *Handler) reject(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}
	log := h.logger.WithField("method", "reject").WithField("id", id)

	if err := h.incidentService.Reject(c.Request.Context(), id); err != nil {
		h.handleError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Status: statusSuccess, Message: "Incident rejected and removed"})
}

// @Summary Remove an incident
// @Tags Admin
// @Produce json
// @Param id path string true "Incident ID"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse "Incident not found"
// @Failure 500 {object} ErrorResponse "Store failure"
// @Router /admin/incidents/{id}/remove [delete]
func (h *Handler) remove(c *gin.Context) {
	h.deleteByID(c, "remove")
}

// @Summary Remove own report
// @Tags Reports
// @Produce json
// @Param id path string true "Incident ID"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse "Incident not found"
// @Failure 500 {object} ErrorResponse "Store failure"
// @Router /remove_report/{id} [delete]
func (h *Handler) removeReport(c *gin.Context) {
	h.deleteByID(c, "removeReport")
}

func (h *Handler) deleteByID(c *gin.Context, method string) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}
	log := h.logger.WithField("method", method).WithField("id", id)

	if err := h.incidentService.Remove(c.Request.Context(), id); err != nil {
		h.handleError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Status: statusSuccess, Message: "Incident removed"})
}

// @Summary Set or clear the flag of an incident
// @Tags Admin
// @Accept json
// @Produce json
// @Param request body FlagRequest true "Incident id and flag value"
// @Success 200 {object} FlagResponse
// @Failure 400 {object} ErrorResponse "Missing id or flagged"
// @Failure 404 {object} ErrorResponse "Incident not found"
// @Failure 500 {object} ErrorResponse "Store failure"
// @Router /admin/flag [post]
func (h *Handler) setFlag(c *gin.Context) {
	var input FlagRequest
	log := h.logger.WithField("method", "setFlag")

	if err := c.ShouldBindJSON(&input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		h.fail(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		h.fail(c, http.StatusBadRequest, validationMessage(err))
		return
	}

	// Несуществующий формат id означает несуществующий инцидент
	id, err := uuid.Parse(*input.ID)
	if err != nil {
		h.fail(c, http.StatusNotFound, "incident not found")
		return
	}
	log = log.WithField("id", id)

	incident, err := h.incidentService.SetFlag(c.Request.Context(), id, input.Flagged)
	if err != nil {
		h.handleError(c, log, err)
		return
	}

	message := "Incident unflagged"
	if incident.Flagged {
		message = "Incident flagged"
	}
	c.JSON(http.StatusOK, FlagResponse{Status: statusSuccess, Message: message, Flagged: incident.Flagged})
}

// @Summary Service status
// @Tags System
// @Produce json
// @Success 200 {object} map[string]string "Server running"
// @Router / [get]
func (h *Handler) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "server running"})
}

// @Summary Get application health status
// @Description Get health status of the application
// @Tags System
// @Accept json
// @Produce json
// @Success 200 {object} map[string]string "Status OK"
// @Router /system/health [get]
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.fail(c, http.StatusNotFound, "incident not found")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, SuccessResponse{Status: statusSuccess, Data: data})
}

func (h *Handler) fail(c *gin.Context, code int, message string) {
	c.JSON(code, ErrorResponse{Status: statusError, Message: message})
}

// handleError переводит ошибки сервиса в HTTP ответы. Ошибки хранилища отдаются как есть.
func (h *Handler) handleError(c *gin.Context, log *logrus.Entry, err error) {
	switch {
	case errors.Is(err, models.ErrValidation):
		log.WithError(err).Warn("Request rejected by service validation")
		h.fail(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrNotFound):
		log.WithError(err).Warn("Incident not found")
		h.fail(c, http.StatusNotFound, "incident not found")
	case errors.Is(err, models.ErrClassifierUnavailable):
		log.WithError(err).Error("Classifier unavailable")
		h.fail(c, http.StatusInternalServerError, err.Error())
	default:
		log.WithError(err).Error("Service failure")
		h.fail(c, http.StatusInternalServerError, err.Error())
	}
}

// validationMessage собирает одно сообщение из ошибок валидатора
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	var missing, invalid []string
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			missing = append(missing, fe.Field())
		case "oneof":
			invalid = append(invalid, fe.Field()+" must be one of "+strings.ReplaceAll(fe.Param(), " ", ", "))
		default:
			invalid = append(invalid, "invalid "+fe.Field())
		}
	}

	var parts []string
	if len(missing) > 0 {
		parts = append(parts, "missing fields: "+strings.Join(missing, ", "))
	}
	parts = append(parts, invalid...)
	return strings.Join(parts, "; ")
}
