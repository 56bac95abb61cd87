package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/kaneo-dev/kaneo-sync/controllers"
)

type EventsRouteController struct {
	eventsController controllers.EventsController
}

func NewEventsRouteController(eventsController controllers.EventsController) EventsRouteController {
	return EventsRouteController{eventsController: eventsController}
}

func (rc *EventsRouteController) EventsRoute(rg *gin.RouterGroup) {
	rg.POST("/events", rc.eventsController.PublishHandler())
}
