package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kaneo-dev/kaneo-sync/internal/bus"
	"github.com/kaneo-dev/kaneo-sync/models"
	"github.com/kaneo-dev/kaneo-sync/utils"
)

// EventsController accepts task events from the CRUD layer and puts them on
// the internal bus. Publishing is decoupled from provider sync: a slow or
// failing provider never blocks the caller.
type EventsController struct {
	bus    *bus.Bus
	logger *utils.Logger
}

func NewEventsController(b *bus.Bus, logger *utils.Logger) EventsController {
	return EventsController{bus: b, logger: logger}
}

// PublishHandler handles POST /events.
func (ec *EventsController) PublishHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var event models.TaskEvent
		if err := c.ShouldBindJSON(&event); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "malformed event"})
			return
		}
		if !models.IsTaskEventType(event.Type) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unknown event type"})
			return
		}
		if event.ProjectID == "" || event.Task.ID == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "projectId and task.id are required"})
			return
		}
		if event.EmittedAt.IsZero() {
			event.EmittedAt = time.Now().UTC()
		}

		if err := ec.bus.PublishTaskEvent(c.Request.Context(), &event); err != nil {
			ec.logger.LogError(c.Request.Context(), "publishing task event", err,
				zap.String("type", event.Type), zap.String("task_id", event.Task.ID))
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}

		c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
	}
}
