package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/kaneo-dev/kaneo-sync/controllers"
)

type WebhookRouteController struct {
	webhookController controllers.WebhookController
}

func NewWebhookRouteController(webhookController controllers.WebhookController) WebhookRouteController {
	return WebhookRouteController{webhookController: webhookController}
}

func (rc *WebhookRouteController) WebhookRoute(rg *gin.RouterGroup) {
	router := rg.Group("webhooks")

	router.POST("/github/:integrationId", rc.webhookController.GithubWebhookHandler())
	router.POST("/gitea/:integrationId", rc.webhookController.GiteaWebhookHandler())
}
