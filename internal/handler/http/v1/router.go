package v1

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes регистрирует все маршруты API
func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	api.GET("/", h.root)

	// Публичные маршруты
	api.POST("/report", h.submitReport)
	api.GET("/incidents", h.listPublic)
	api.GET("/alerts", h.listAlerts)
	api.GET("/hotspots", h.hotspots)
	api.DELETE("/remove_report/:id", h.removeReport)

	// Прямые запросы к классификаторам
	api.POST("/check_spam", h.checkSpam)
	api.POST("/predict-type", h.predictType)
	api.POST("/predict_type", h.predictType)

	// Маршруты модерации
	admin := api.Group("/admin")
	{
		admin.GET("/incidents", h.listAll)
		admin.GET("/incidents/flagged", h.listFlagged)
		admin.GET("/incidents/:id", h.getIncident)
		admin.POST("/incidents/:id/approve", h.approve)
		admin.POST("/incidents/:id/reject", h.reject)
		admin.DELETE("/incidents/:id/remove", h.remove)
		admin.POST("/flag", h.setFlag)
	}

	// Живая лента
	api.GET("/events", h.streamEvents)

	// Маршрут Health-check
	api.GET("/system/health", h.healthCheck)
}
