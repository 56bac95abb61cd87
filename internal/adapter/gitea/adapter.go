// Package gitea syncs tasks with issues, branches and pull requests on a
// self-hosted Gitea instance.
package gitea

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/kaneo-dev/kaneo-sync/internal/adapter"
	"github.com/kaneo-dev/kaneo-sync/internal/journal"
	"github.com/kaneo-dev/kaneo-sync/internal/metrics"
	"github.com/kaneo-dev/kaneo-sync/models"
	"github.com/kaneo-dev/kaneo-sync/services"
	"github.com/kaneo-dev/kaneo-sync/utils"
)

// Adapter implements the provider contract for Gitea.
type Adapter struct {
	links  services.LinkService
	tasks  services.TaskService
	locks  *adapter.LinkLocks
	logger *utils.Logger

	now       func() time.Time
	clientFor func(integration *models.Integration) (issuesAPI, error)
}

func New(links services.LinkService, tasks services.TaskService, logger *utils.Logger, timeout time.Duration) *Adapter {
	return &Adapter{
		links:  links,
		tasks:  tasks,
		locks:  adapter.NewLinkLocks(),
		logger: logger,
		now:    time.Now,
		clientFor: func(integration *models.Integration) (issuesAPI, error) {
			return newIssuesClient(integration, timeout)
		},
	}
}

func (a *Adapter) Provider() string { return models.ProviderGitea }

func (a *Adapter) HandleTaskEvent(ctx context.Context, integration *models.Integration, event *models.TaskEvent) error {
	client, err := a.clientFor(integration)
	if err != nil {
		var unavailable *models.ProviderUnavailableError
		if errors.As(err, &unavailable) {
			a.logger.LogWarn(ctx, "skipping sync, integration has no credentials",
				zap.String("integration_id", integration.ID))
			return nil
		}
		return err
	}

	switch event.Type {
	case models.EventTaskCreated:
		return a.handleTaskCreated(ctx, client, integration, event)
	case models.EventTaskStatusChanged:
		return a.handleStatusChanged(ctx, client, integration, event)
	case models.EventTaskPriorityChanged:
		return a.handlePriorityChanged(ctx, client, integration, event)
	case models.EventTaskTitleChanged:
		return a.handleTitleChanged(ctx, client, integration, event)
	case models.EventTaskDescriptionChanged:
		return a.handleDescriptionChanged(ctx, client, integration, event)
	case models.EventTaskCommentCreated:
		return a.handleCommentCreated(ctx, client, integration, event)
	}
	return nil
}

func (a *Adapter) handleTaskCreated(ctx context.Context, client issuesAPI, integration *models.Integration, event *models.TaskEvent) error {
	task := &event.Task

	_, err := a.links.FindByTaskAndType(ctx, task.ID, integration.ID, models.ResourceTypeIssue)
	if err == nil {
		return nil
	}
	var notFound *models.ResourceNotFoundError
	if !errors.As(err, &notFound) {
		return err
	}

	body := adapter.RenderIssueBody(task)
	labels := []string{
		adapter.PriorityLabelPrefix + task.Priority,
		adapter.StatusLabelPrefix + task.Status,
	}

	started := a.now()
	index, htmlURL, err := client.Create(ctx, task.Title, body, labels)
	metrics.ObserveProviderRequest(models.ProviderGitea, "issues.create", started)
	if err != nil {
		return err
	}

	now := a.now()
	meta := models.SyncMetadata{CreatedFrom: models.SourceKaneo}
	journal.Record(&meta, journal.FieldTitle, task.Title, models.SourceKaneo, now)
	journal.Record(&meta, journal.FieldDescription, body, models.SourceKaneo, now)
	journal.Record(&meta, journal.FieldState, "open", models.SourceKaneo, now)

	_, err = a.links.Create(ctx, services.CreateLinkInput{
		TaskID:        task.ID,
		IntegrationID: integration.ID,
		ResourceType:  models.ResourceTypeIssue,
		ExternalID:    strconv.FormatInt(index, 10),
		URL:           htmlURL,
		Title:         task.Title,
		Metadata:      meta,
	})
	var dup *models.DuplicateLinkError
	if errors.As(err, &dup) {
		return nil
	}
	return err
}

func (a *Adapter) handleStatusChanged(ctx context.Context, client issuesAPI, integration *models.Integration, event *models.TaskEvent) error {
	link, index, ok, err := a.issueLink(ctx, integration, event.Task.ID)
	if err != nil || !ok {
		return err
	}
	unlock := a.locks.Lock(link.ID)
	defer unlock()

	if err := a.reconcileLabels(ctx, client, index, adapter.StatusLabelPrefix, event.Task.Status); err != nil {
		return err
	}

	state := "open"
	closed := models.IsTerminalStatus(event.Task.Status)
	if closed {
		state = "closed"
	}
	if sup, reason := journal.Suppressed(&link.Metadata, journal.FieldState, state, models.ProviderGitea, a.now()); sup {
		metrics.ObserveSuppressedWrite(journal.FieldState, reason)
		return nil
	}

	started := a.now()
	err = client.EditState(ctx, index, closed)
	metrics.ObserveProviderRequest(models.ProviderGitea, "issues.edit", started)
	if err != nil {
		return err
	}

	entry := journal.Entry(journal.FieldState, state, models.SourceKaneo, a.now())
	_, err = a.links.Update(ctx, link.ID, services.UpdateLink{Metadata: &entry})
	return err
}

func (a *Adapter) handlePriorityChanged(ctx context.Context, client issuesAPI, integration *models.Integration, event *models.TaskEvent) error {
	link, index, ok, err := a.issueLink(ctx, integration, event.Task.ID)
	if err != nil || !ok {
		return err
	}
	unlock := a.locks.Lock(link.ID)
	defer unlock()

	return a.reconcileLabels(ctx, client, index, adapter.PriorityLabelPrefix, event.Task.Priority)
}

func (a *Adapter) handleTitleChanged(ctx context.Context, client issuesAPI, integration *models.Integration, event *models.TaskEvent) error {
	link, index, ok, err := a.issueLink(ctx, integration, event.Task.ID)
	if err != nil || !ok {
		return err
	}
	title := event.Task.Title
	if sup, reason := journal.Suppressed(&link.Metadata, journal.FieldTitle, title, models.ProviderGitea, a.now()); sup {
		metrics.ObserveSuppressedWrite(journal.FieldTitle, reason)
		return nil
	}

	started := a.now()
	err = client.EditTitle(ctx, index, title)
	metrics.ObserveProviderRequest(models.ProviderGitea, "issues.edit", started)
	if err != nil {
		return err
	}

	entry := journal.Entry(journal.FieldTitle, title, models.SourceKaneo, a.now())
	_, err = a.links.Update(ctx, link.ID, services.UpdateLink{Title: title, Metadata: &entry})
	return err
}

func (a *Adapter) handleDescriptionChanged(ctx context.Context, client issuesAPI, integration *models.Integration, event *models.TaskEvent) error {
	link, index, ok, err := a.issueLink(ctx, integration, event.Task.ID)
	if err != nil || !ok {
		return err
	}
	body := adapter.RenderIssueBody(&event.Task)
	if sup, reason := journal.Suppressed(&link.Metadata, journal.FieldDescription, body, models.ProviderGitea, a.now()); sup {
		metrics.ObserveSuppressedWrite(journal.FieldDescription, reason)
		return nil
	}

	started := a.now()
	err = client.EditBody(ctx, index, body)
	metrics.ObserveProviderRequest(models.ProviderGitea, "issues.edit", started)
	if err != nil {
		return err
	}

	entry := journal.Entry(journal.FieldDescription, body, models.SourceKaneo, a.now())
	_, err = a.links.Update(ctx, link.ID, services.UpdateLink{Metadata: &entry})
	return err
}

func (a *Adapter) handleCommentCreated(ctx context.Context, client issuesAPI, integration *models.Integration, event *models.TaskEvent) error {
	if event.Comment == nil {
		return nil
	}
	stored, err := a.tasks.GetComment(ctx, event.Comment.ID)
	if err == nil && stored.ExternalID != "" {
		return nil
	}

	_, index, ok, err := a.issueLink(ctx, integration, event.Task.ID)
	if err != nil || !ok {
		return err
	}

	started := a.now()
	err = client.CreateComment(ctx, index, adapter.RenderCommentBody(event.Comment))
	metrics.ObserveProviderRequest(models.ProviderGitea, "issues.create_comment", started)
	return err
}

func (a *Adapter) issueLink(ctx context.Context, integration *models.Integration, taskID string) (*models.ExternalLink, int64, bool, error) {
	link, err := a.links.FindByTaskAndType(ctx, taskID, integration.ID, models.ResourceTypeIssue)
	if err != nil {
		var notFound *models.ResourceNotFoundError
		if errors.As(err, &notFound) {
			return nil, 0, false, nil
		}
		return nil, 0, false, err
	}
	index, err := strconv.ParseInt(link.ExternalID, 10, 64)
	if err != nil {
		return nil, 0, false, fmt.Errorf("issue link %s has non-numeric external id %q", link.ID, link.ExternalID)
	}
	return link, index, true, nil
}

func (a *Adapter) reconcileLabels(ctx context.Context, client issuesAPI, index int64, prefix, value string) error {
	started := a.now()
	current, err := client.Labels(ctx, index)
	metrics.ObserveProviderRequest(models.ProviderGitea, "issues.list_labels", started)
	if err != nil {
		return err
	}

	desired, changed := adapter.DesiredLabelSet(current, prefix, value)
	metrics.ObserveLabelReconciliation(models.ProviderGitea, changed)
	if !changed {
		return nil
	}

	started = a.now()
	err = client.ReplaceLabels(ctx, index, desired)
	metrics.ObserveProviderRequest(models.ProviderGitea, "issues.replace_labels", started)
	return err
}
