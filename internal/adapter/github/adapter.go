// Package github syncs tasks with GitHub issues, branches and pull
// requests through the REST API and inbound webhook payloads.
package github

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	gogithub "github.com/google/go-github/v63/github"
	"go.uber.org/zap"

	"github.com/kaneo-dev/kaneo-sync/internal/adapter"
	"github.com/kaneo-dev/kaneo-sync/internal/journal"
	"github.com/kaneo-dev/kaneo-sync/internal/metrics"
	"github.com/kaneo-dev/kaneo-sync/models"
	"github.com/kaneo-dev/kaneo-sync/services"
	"github.com/kaneo-dev/kaneo-sync/utils"
)

// Adapter implements the provider contract for GitHub.
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

func (a *Adapter) Provider() string { return models.ProviderGithub }

// HandleTaskEvent pushes one domain event to the integration's repository.
// An integration without usable credentials degrades to a logged no-op.
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
		// Already linked, e.g. the task was imported from this repository.
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
	issue, _, err := client.Create(ctx, integration.RepositoryOwner, integration.RepositoryName, &gogithub.IssueRequest{
		Title:  gogithub.String(task.Title),
		Body:   gogithub.String(body),
		Labels: &labels,
	})
	metrics.ObserveProviderRequest(models.ProviderGithub, "issues.create", started)
	if err != nil {
		return mapAPIError(err)
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
		ExternalID:    strconv.Itoa(issue.GetNumber()),
		URL:           issue.GetHTMLURL(),
		Title:         task.Title,
		Metadata:      meta,
	})
	var dup *models.DuplicateLinkError
	if errors.As(err, &dup) {
		a.logger.LogDebug(ctx, "issue link raced into existence",
			zap.String("task_id", task.ID), zap.Int("issue", issue.GetNumber()))
		return nil
	}
	return err
}

func (a *Adapter) handleStatusChanged(ctx context.Context, client issuesAPI, integration *models.Integration, event *models.TaskEvent) error {
	link, number, ok, err := a.issueLink(ctx, integration, event.Task.ID)
	if err != nil || !ok {
		return err
	}
	unlock := a.locks.Lock(link.ID)
	defer unlock()

	if err := a.reconcileLabels(ctx, client, integration, number, adapter.StatusLabelPrefix, event.Task.Status); err != nil {
		return err
	}

	state := "open"
	if models.IsTerminalStatus(event.Task.Status) {
		state = "closed"
	}
	if sup, reason := journal.Suppressed(&link.Metadata, journal.FieldState, state, models.ProviderGithub, a.now()); sup {
		metrics.ObserveSuppressedWrite(journal.FieldState, reason)
		return nil
	}

	started := a.now()
	_, _, err = client.Edit(ctx, integration.RepositoryOwner, integration.RepositoryName, number, &gogithub.IssueRequest{
		State: gogithub.String(state),
	})
	metrics.ObserveProviderRequest(models.ProviderGithub, "issues.edit", started)
	if err != nil {
		return mapAPIError(err)
	}

	entry := journal.Entry(journal.FieldState, state, models.SourceKaneo, a.now())
	_, err = a.links.Update(ctx, link.ID, services.UpdateLink{Metadata: &entry})
	return err
}

func (a *Adapter) handlePriorityChanged(ctx context.Context, client issuesAPI, integration *models.Integration, event *models.TaskEvent) error {
	link, number, ok, err := a.issueLink(ctx, integration, event.Task.ID)
	if err != nil || !ok {
		return err
	}
	unlock := a.locks.Lock(link.ID)
	defer unlock()

	return a.reconcileLabels(ctx, client, integration, number, adapter.PriorityLabelPrefix, event.Task.Priority)
}

func (a *Adapter) handleTitleChanged(ctx context.Context, client issuesAPI, integration *models.Integration, event *models.TaskEvent) error {
	link, number, ok, err := a.issueLink(ctx, integration, event.Task.ID)
	if err != nil || !ok {
		return err
	}
	title := event.Task.Title
	if sup, reason := journal.Suppressed(&link.Metadata, journal.FieldTitle, title, models.ProviderGithub, a.now()); sup {
		metrics.ObserveSuppressedWrite(journal.FieldTitle, reason)
		return nil
	}

	started := a.now()
	_, _, err = client.Edit(ctx, integration.RepositoryOwner, integration.RepositoryName, number, &gogithub.IssueRequest{
		Title: gogithub.String(title),
	})
	metrics.ObserveProviderRequest(models.ProviderGithub, "issues.edit", started)
	if err != nil {
		return mapAPIError(err)
	}

	entry := journal.Entry(journal.FieldTitle, title, models.SourceKaneo, a.now())
	_, err = a.links.Update(ctx, link.ID, services.UpdateLink{Title: title, Metadata: &entry})
	return err
}

func (a *Adapter) handleDescriptionChanged(ctx context.Context, client issuesAPI, integration *models.Integration, event *models.TaskEvent) error {
	link, number, ok, err := a.issueLink(ctx, integration, event.Task.ID)
	if err != nil || !ok {
		return err
	}
	body := adapter.RenderIssueBody(&event.Task)
	if sup, reason := journal.Suppressed(&link.Metadata, journal.FieldDescription, body, models.ProviderGithub, a.now()); sup {
		metrics.ObserveSuppressedWrite(journal.FieldDescription, reason)
		return nil
	}

	started := a.now()
	_, _, err = client.Edit(ctx, integration.RepositoryOwner, integration.RepositoryName, number, &gogithub.IssueRequest{
		Body: gogithub.String(body),
	})
	metrics.ObserveProviderRequest(models.ProviderGithub, "issues.edit", started)
	if err != nil {
		return mapAPIError(err)
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
		// Imported from a remote issue; pushing it back would loop.
		return nil
	}

	_, number, ok, err := a.issueLink(ctx, integration, event.Task.ID)
	if err != nil || !ok {
		return err
	}

	started := a.now()
	_, _, err = client.CreateComment(ctx, integration.RepositoryOwner, integration.RepositoryName, number, &gogithub.IssueComment{
		Body: gogithub.String(adapter.RenderCommentBody(event.Comment)),
	})
	metrics.ObserveProviderRequest(models.ProviderGithub, "issues.create_comment", started)
	return mapAPIError(err)
}

// issueLink finds the task's issue link on this integration. A missing link
// just means the task is not synced to this repository.
func (a *Adapter) issueLink(ctx context.Context, integration *models.Integration, taskID string) (*models.ExternalLink, int, bool, error) {
	link, err := a.links.FindByTaskAndType(ctx, taskID, integration.ID, models.ResourceTypeIssue)
	if err != nil {
		var notFound *models.ResourceNotFoundError
		if errors.As(err, &notFound) {
			return nil, 0, false, nil
		}
		return nil, 0, false, err
	}
	number, err := strconv.Atoi(link.ExternalID)
	if err != nil {
		return nil, 0, false, fmt.Errorf("issue link %s has non-numeric external id %q", link.ID, link.ExternalID)
	}
	return link, number, true, nil
}

// reconcileLabels replaces the issue's labels in one reserved namespace with
// the single desired label, leaving every other label untouched. Writing
// only on change keeps the operation idempotent with no journal entry.
func (a *Adapter) reconcileLabels(ctx context.Context, client issuesAPI, integration *models.Integration, number int, prefix, value string) error {
	started := a.now()
	remote, _, err := client.ListLabelsByIssue(ctx, integration.RepositoryOwner, integration.RepositoryName, number, &gogithub.ListOptions{PerPage: 100})
	metrics.ObserveProviderRequest(models.ProviderGithub, "issues.list_labels", started)
	if err != nil {
		return mapAPIError(err)
	}
	current := make([]string, 0, len(remote))
	for _, l := range remote {
		current = append(current, l.GetName())
	}

	desired, changed := adapter.DesiredLabelSet(current, prefix, value)
	metrics.ObserveLabelReconciliation(models.ProviderGithub, changed)
	if !changed {
		return nil
	}

	started = a.now()
	_, _, err = client.ReplaceLabelsForIssue(ctx, integration.RepositoryOwner, integration.RepositoryName, number, desired)
	metrics.ObserveProviderRequest(models.ProviderGithub, "issues.replace_labels", started)
	return mapAPIError(err)
}
