package controllers

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	ghhook "github.com/go-playground/webhooks/v6/github"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kaneo-dev/kaneo-sync/internal/adapter"
	"github.com/kaneo-dev/kaneo-sync/internal/adapter/gitea"
	"github.com/kaneo-dev/kaneo-sync/internal/metrics"
	"github.com/kaneo-dev/kaneo-sync/models"
	"github.com/kaneo-dev/kaneo-sync/services"
	"github.com/kaneo-dev/kaneo-sync/utils"
)

// WebhookController is the ingress for provider webhook deliveries. Each
// delivery is verified against the integration's secret, audited, and handed
// to the provider's adapter.
type WebhookController struct {
	registry     *adapter.Registry
	integrations services.IntegrationService
	deliveries   services.DeliveryService
	logger       *utils.Logger
}

func NewWebhookController(registry *adapter.Registry, integrations services.IntegrationService, deliveries services.DeliveryService, logger *utils.Logger) WebhookController {
	return WebhookController{
		registry:     registry,
		integrations: integrations,
		deliveries:   deliveries,
		logger:       logger,
	}
}

// GithubWebhookHandler handles POST /webhooks/github/:integrationId.
func (wc *WebhookController) GithubWebhookHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		integration, ok := wc.resolveIntegration(c, models.ProviderGithub)
		if !ok {
			return
		}

		event := c.GetHeader("X-GitHub-Event")
		deliveryID := c.GetHeader("X-GitHub-Delivery")

		// webhooks/v6 skips HMAC verification when no secret is configured,
		// which would let unsigned deliveries through. Reject up front.
		if integration.WebhookSecret == "" {
			verr := &models.SignatureVerificationError{Provider: models.ProviderGithub, Reason: "integration has no webhook secret"}
			wc.audit(c, integration, event, deliveryID, models.DeliveryRejected, verr.Error())
			wc.logger.LogWarn(c.Request.Context(), "rejected github webhook", zap.Error(verr),
				zap.String("integration_id", integration.ID), zap.String("delivery_id", deliveryID))
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "could not verify delivery"})
			return
		}

		hook, err := ghhook.New(ghhook.Options.Secret(integration.WebhookSecret))
		if err != nil {
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}

		payload, err := hook.Parse(c.Request,
			ghhook.IssuesEvent, ghhook.IssueCommentEvent, ghhook.PullRequestEvent, ghhook.PushEvent)
		if err != nil {
			if errors.Is(err, ghhook.ErrEventNotFound) || errors.Is(err, ghhook.ErrEventNotSpecifiedToParse) {
				// Subscribed-but-unhandled events are acknowledged so the
				// provider does not retry them.
				wc.audit(c, integration, event, deliveryID, models.DeliveryProcessed, "event not handled")
				c.JSON(http.StatusOK, gin.H{"status": "ignored"})
				return
			}
			wc.audit(c, integration, event, deliveryID, models.DeliveryRejected, err.Error())
			wc.logger.LogWarn(c.Request.Context(), "rejected github webhook", zap.Error(err),
				zap.String("integration_id", integration.ID), zap.String("delivery_id", deliveryID))
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "could not verify delivery"})
			return
		}

		wc.dispatch(c, integration, event, deliveryID, payload)
	}
}

// GiteaWebhookHandler handles POST /webhooks/gitea/:integrationId. Gitea
// signs the raw body with hex HMAC-SHA256 in X-Gitea-Signature.
func (wc *WebhookController) GiteaWebhookHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		integration, ok := wc.resolveIntegration(c, models.ProviderGitea)
		if !ok {
			return
		}

		event := c.GetHeader(gitea.EventHeader)
		deliveryID := c.GetHeader(gitea.DeliveryHeader)

		body, err := io.ReadAll(io.LimitReader(c.Request.Body, 10<<20))
		if err != nil {
			c.AbortWithStatus(http.StatusBadRequest)
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		if err := gitea.VerifySignature(integration.WebhookSecret, body, c.GetHeader(gitea.SignatureHeader)); err != nil {
			wc.audit(c, integration, event, deliveryID, models.DeliveryRejected, err.Error())
			wc.logger.LogWarn(c.Request.Context(), "rejected gitea webhook", zap.Error(err),
				zap.String("integration_id", integration.ID), zap.String("delivery_id", deliveryID))
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "could not verify delivery"})
			return
		}

		payload, err := gitea.ParseWebhook(event, body)
		if err != nil {
			wc.audit(c, integration, event, deliveryID, models.DeliveryRejected, err.Error())
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "malformed payload"})
			return
		}
		if payload == nil {
			wc.audit(c, integration, event, deliveryID, models.DeliveryProcessed, "event not handled")
			c.JSON(http.StatusOK, gin.H{"status": "ignored"})
			return
		}

		wc.dispatch(c, integration, event, deliveryID, payload)
	}
}

// resolveIntegration loads the integration named in the path and checks it
// is an active integration of the expected provider. Unknown and inactive
// integrations both 404 so probes cannot distinguish them.
func (wc *WebhookController) resolveIntegration(c *gin.Context, provider string) (*models.Integration, bool) {
	integration, err := wc.integrations.GetByID(c.Request.Context(), c.Param("integrationId"))
	if err != nil {
		var notFound *models.ResourceNotFoundError
		if errors.As(err, &notFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "unknown integration"})
			return nil, false
		}
		wc.logger.LogError(c.Request.Context(), "loading integration", err)
		c.AbortWithStatus(http.StatusInternalServerError)
		return nil, false
	}
	if !integration.IsActive || integration.Provider != provider {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "unknown integration"})
		return nil, false
	}
	return integration, true
}

func (wc *WebhookController) dispatch(c *gin.Context, integration *models.Integration, event, deliveryID string, payload interface{}) {
	a, ok := wc.registry.Get(integration.Provider)
	if !ok {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	ctx := c.Request.Context()
	if err := a.HandleWebhook(ctx, integration, event, payload); err != nil {
		metrics.ObserveWebhookDelivery(integration.Provider, event, models.DeliveryFailed)
		wc.audit(c, integration, event, deliveryID, models.DeliveryFailed, err.Error())
		wc.logger.LogError(ctx, "webhook handler failed", err,
			zap.String("provider", integration.Provider),
			zap.String("event", event),
			zap.String("delivery_id", deliveryID))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "delivery not processed"})
		return
	}

	metrics.ObserveWebhookDelivery(integration.Provider, event, models.DeliveryProcessed)
	wc.audit(c, integration, event, deliveryID, models.DeliveryProcessed, "")
	c.JSON(http.StatusOK, gin.H{"status": "processed"})
}

func (wc *WebhookController) audit(c *gin.Context, integration *models.Integration, event, deliveryID, status, detail string) {
	err := wc.deliveries.Record(c.Request.Context(), &models.WebhookDelivery{
		ID:            uuid.NewString(),
		IntegrationID: integration.ID,
		Provider:      integration.Provider,
		Event:         event,
		DeliveryID:    deliveryID,
		Status:        status,
		Error:         detail,
		ReceivedAt:    time.Now().UTC(),
	})
	if err != nil {
		wc.logger.LogWarn(c.Request.Context(), "recording webhook delivery", zap.Error(err))
	}
}
