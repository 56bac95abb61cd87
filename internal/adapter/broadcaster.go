package adapter

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kaneo-dev/kaneo-sync/internal/metrics"
	"github.com/kaneo-dev/kaneo-sync/models"
	"github.com/kaneo-dev/kaneo-sync/services"
	"github.com/kaneo-dev/kaneo-sync/utils"
)

// Broadcaster fans one task event out to every active integration on the
// event's project. Integrations are handled sequentially, and a failing or
// panicking adapter never prevents its siblings from running nor propagates
// back to the local mutation that published the event.
type Broadcaster struct {
	registry     *Registry
	integrations services.IntegrationService
	logger       *utils.Logger
}

func NewBroadcaster(registry *Registry, integrations services.IntegrationService, logger *utils.Logger) *Broadcaster {
	return &Broadcaster{registry: registry, integrations: integrations, logger: logger}
}

// Dispatch is the bus subscriber entry point. It always returns nil: sync
// failures surface in logs and metrics, not as event delivery errors.
func (b *Broadcaster) Dispatch(ctx context.Context, event *models.TaskEvent) error {
	if !models.IsTaskEventType(event.Type) {
		b.logger.LogWarn(ctx, "dropping unknown task event type", zap.String("type", event.Type))
		return nil
	}

	integrations, err := b.integrations.ActiveForProject(ctx, event.ProjectID)
	if err != nil {
		b.logger.LogError(ctx, "loading integrations for event", err,
			zap.String("project_id", event.ProjectID), zap.String("type", event.Type))
		return nil
	}

	for i := range integrations {
		integration := &integrations[i]
		a, ok := b.registry.Get(integration.Provider)
		if !ok {
			b.logger.LogWarn(ctx, "no adapter for provider",
				zap.String("provider", integration.Provider),
				zap.String("integration_id", integration.ID))
			continue
		}

		if err := b.dispatchOne(ctx, a, integration, event); err != nil {
			metrics.ObserveOutboundEvent(integration.Provider, event.Type, "error")
			b.logger.LogError(ctx, "adapter failed to handle task event", err,
				zap.String("provider", integration.Provider),
				zap.String("integration_id", integration.ID),
				zap.String("type", event.Type),
				zap.String("task_id", event.Task.ID))
			continue
		}
		metrics.ObserveOutboundEvent(integration.Provider, event.Type, "ok")
	}
	return nil
}

func (b *Broadcaster) dispatchOne(ctx context.Context, a Adapter, integration *models.Integration, event *models.TaskEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("adapter panic: %v", r)
		}
	}()
	return a.HandleTaskEvent(ctx, integration, event)
}
