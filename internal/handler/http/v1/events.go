package v1

import (
	"io"
	"time"

	"github.com/gin-gonic/gin"
)

// keepAliveInterval - период комментариев-пингов, чтобы прокси не закрывали соединение
const keepAliveInterval = 30 * time.Second

// @Summary Live incident events
// @Description Server-Sent Events stream of incident.created and incident.approved. No replay of past events.
// @Tags Live
// @Produce text/event-stream
// @Success 200 {object} IncidentResponse "event data"
// @Router /events [get]
func (h *Handler) streamEvents(c *gin.Context) {
	events, unsubscribe := h.events.Subscribe()
	defer unsubscribe()

	log := h.logger.WithField("method", "streamEvents").WithField("client", c.ClientIP())
	log.Info("Live client connected")

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case ev, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent(string(ev.Type), ModelToIncidentResponse(ev.Incident))
			return true
		case <-ticker.C:
			_, err := io.WriteString(w, ": ping\n\n")
			return err == nil
		}
	})
	log.Info("Live client disconnected")
}
