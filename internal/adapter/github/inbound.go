package github

import (
	"context"
	"errors"
	"strconv"
	"strings"

	ghhook "github.com/go-playground/webhooks/v6/github"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kaneo-dev/kaneo-sync/internal/adapter"
	"github.com/kaneo-dev/kaneo-sync/internal/journal"
	"github.com/kaneo-dev/kaneo-sync/internal/matcher"
	"github.com/kaneo-dev/kaneo-sync/internal/metrics"
	"github.com/kaneo-dev/kaneo-sync/models"
	"github.com/kaneo-dev/kaneo-sync/services"
)

// HandleWebhook applies one parsed GitHub payload to the local store.
// Payload types come from go-playground/webhooks; the controller verifies
// the signature and resolves the integration before calling in here.
func (a *Adapter) HandleWebhook(ctx context.Context, integration *models.Integration, event string, payload interface{}) error {
	switch p := payload.(type) {
	case ghhook.IssuesPayload:
		return a.handleIssuesEvent(ctx, integration, &p)
	case ghhook.IssueCommentPayload:
		return a.handleIssueComment(ctx, integration, &p)
	case ghhook.PullRequestPayload:
		return a.handlePullRequest(ctx, integration, &p)
	case ghhook.PushPayload:
		return a.handlePush(ctx, integration, &p)
	}
	a.logger.LogDebug(ctx, "ignoring unhandled github event",
		zap.String("event", event), zap.String("integration_id", integration.ID))
	return nil
}

func (a *Adapter) handleIssuesEvent(ctx context.Context, integration *models.Integration, p *ghhook.IssuesPayload) error {
	switch p.Action {
	case "opened":
		return a.importIssue(ctx, integration, p)
	case "closed":
		return a.issueStateChanged(ctx, integration, p, "closed")
	case "reopened":
		return a.issueStateChanged(ctx, integration, p, "open")
	case "edited":
		return a.issueEdited(ctx, integration, p)
	case "labeled", "unlabeled":
		return a.issueLabelsChanged(ctx, integration, p)
	}
	return nil
}

// importIssue creates a local task for an issue opened on the remote side.
// Redeliveries and issues this engine itself just created are no-ops.
func (a *Adapter) importIssue(ctx context.Context, integration *models.Integration, p *ghhook.IssuesPayload) error {
	externalID := strconv.FormatInt(p.Issue.Number, 10)
	_, err := a.links.FindByIntegrationAndExternalID(ctx, integration.ID, models.ResourceTypeIssue, externalID)
	if err == nil {
		return nil
	}
	var notFound *models.ResourceNotFoundError
	if !errors.As(err, &notFound) {
		return err
	}

	now := a.now()
	labels := issueLabelNames(p)

	// An issue body carrying the hidden task marker is one we created
	// ourselves; the webhook raced ahead of the link insert.
	if taskID, ok := adapter.TaskIDFromBody(p.Issue.Body); ok {
		_, err := a.links.CreateOrUpdate(ctx, services.CreateLinkInput{
			TaskID:        taskID,
			IntegrationID: integration.ID,
			ResourceType:  models.ResourceTypeIssue,
			ExternalID:    externalID,
			URL:           p.Issue.HTMLURL,
			Title:         p.Issue.Title,
			Metadata:      models.SyncMetadata{CreatedFrom: models.SourceKaneo},
		})
		return err
	}

	status := models.StatusToDo
	if s, ok := adapter.LabelValue(labels, adapter.StatusLabelPrefix); ok && models.StatusRank(s) >= 0 {
		status = s
	}
	priority := models.PriorityMedium
	if pr, ok := adapter.LabelValue(labels, adapter.PriorityLabelPrefix); ok && models.IsPriority(pr) {
		priority = pr
	}

	number, err := a.tasks.NextNumber(ctx, integration.ProjectID)
	if err != nil {
		return err
	}
	task := &models.Task{
		ID:          uuid.NewString(),
		ProjectID:   integration.ProjectID,
		Number:      number,
		Title:       p.Issue.Title,
		Description: adapter.StripMarkers(p.Issue.Body),
		Status:      status,
		Priority:    priority,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := a.tasks.Create(ctx, task); err != nil {
		return err
	}

	meta := models.SyncMetadata{CreatedFrom: models.ProviderGithub}
	journal.Record(&meta, journal.FieldTitle, p.Issue.Title, models.ProviderGithub, now)
	journal.Record(&meta, journal.FieldDescription, p.Issue.Body, models.ProviderGithub, now)
	journal.Record(&meta, journal.FieldState, "open", models.ProviderGithub, now)

	_, err = a.links.Create(ctx, services.CreateLinkInput{
		TaskID:        task.ID,
		IntegrationID: integration.ID,
		ResourceType:  models.ResourceTypeIssue,
		ExternalID:    externalID,
		URL:           p.Issue.HTMLURL,
		Title:         p.Issue.Title,
		Metadata:      meta,
	})
	var dup *models.DuplicateLinkError
	if errors.As(err, &dup) {
		return nil
	}
	return err
}

func (a *Adapter) issueStateChanged(ctx context.Context, integration *models.Integration, p *ghhook.IssuesPayload, state string) error {
	link, err := a.resolveIssueLink(ctx, integration, p)
	if err != nil || link == nil {
		return err
	}

	now := a.now()
	if sup, reason := journal.Suppressed(&link.Metadata, journal.FieldState, state, models.SourceKaneo, now); sup {
		metrics.ObserveSuppressedWrite(journal.FieldState, reason)
		return nil
	}

	task, err := a.tasks.GetByID(ctx, link.TaskID)
	if err != nil {
		var notFound *models.ResourceNotFoundError
		if errors.As(err, &notFound) {
			// Orphaned link: the task was deleted locally. Leave the link
			// alone and ignore remote activity.
			return nil
		}
		return err
	}

	var target string
	if state == "closed" && !models.IsTerminalStatus(task.Status) {
		target = models.StatusDone
	} else if state == "open" && models.IsTerminalStatus(task.Status) {
		target = models.StatusToDo
	}
	if target != "" {
		if err := a.tasks.PatchFields(ctx, task.ID, map[string]interface{}{"status": target}); err != nil {
			return err
		}
	}

	entry := journal.Entry(journal.FieldState, state, models.ProviderGithub, now)
	_, err = a.links.Update(ctx, link.ID, services.UpdateLink{Metadata: &entry})
	return err
}

func (a *Adapter) issueEdited(ctx context.Context, integration *models.Integration, p *ghhook.IssuesPayload) error {
	link, err := a.resolveIssueLink(ctx, integration, p)
	if err != nil || link == nil {
		return err
	}
	task, err := a.tasks.GetByID(ctx, link.TaskID)
	if err != nil {
		var notFound *models.ResourceNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return err
	}

	now := a.now()
	fields := map[string]interface{}{}
	meta := models.SyncMetadata{}

	if p.Issue.Title != "" && p.Issue.Title != task.Title {
		if sup, reason := journal.Suppressed(&link.Metadata, journal.FieldTitle, p.Issue.Title, models.SourceKaneo, now); sup {
			metrics.ObserveSuppressedWrite(journal.FieldTitle, reason)
		} else {
			fields["title"] = p.Issue.Title
			journal.Record(&meta, journal.FieldTitle, p.Issue.Title, models.ProviderGithub, now)
		}
	}

	description := adapter.StripMarkers(p.Issue.Body)
	if description != task.Description {
		if sup, reason := journal.Suppressed(&link.Metadata, journal.FieldDescription, p.Issue.Body, models.SourceKaneo, now); sup {
			metrics.ObserveSuppressedWrite(journal.FieldDescription, reason)
		} else {
			fields["description"] = description
			journal.Record(&meta, journal.FieldDescription, p.Issue.Body, models.ProviderGithub, now)
		}
	}

	if len(fields) == 0 {
		return nil
	}
	if err := a.tasks.PatchFields(ctx, task.ID, fields); err != nil {
		return err
	}
	update := services.UpdateLink{Metadata: &meta}
	if title, ok := fields["title"].(string); ok {
		update.Title = title
	}
	_, err = a.links.Update(ctx, link.ID, update)
	return err
}

// issueLabelsChanged re-derives status and priority from the issue's full
// label set, so manual label edits on the remote side flow back.
func (a *Adapter) issueLabelsChanged(ctx context.Context, integration *models.Integration, p *ghhook.IssuesPayload) error {
	link, err := a.resolveIssueLink(ctx, integration, p)
	if err != nil || link == nil {
		return err
	}
	task, err := a.tasks.GetByID(ctx, link.TaskID)
	if err != nil {
		var notFound *models.ResourceNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return err
	}

	labels := issueLabelNames(p)
	fields := map[string]interface{}{}
	if s, ok := adapter.LabelValue(labels, adapter.StatusLabelPrefix); ok && models.StatusRank(s) >= 0 && s != task.Status {
		fields["status"] = s
	}
	if pr, ok := adapter.LabelValue(labels, adapter.PriorityLabelPrefix); ok && models.IsPriority(pr) && pr != task.Priority {
		fields["priority"] = pr
	}
	if len(fields) == 0 {
		return nil
	}
	return a.tasks.PatchFields(ctx, task.ID, fields)
}

func (a *Adapter) handleIssueComment(ctx context.Context, integration *models.Integration, p *ghhook.IssueCommentPayload) error {
	if p.Action != "created" {
		return nil
	}
	if adapter.OwnComment(p.Comment.Body) {
		return nil
	}

	externalIssueID := strconv.FormatInt(p.Issue.Number, 10)
	link, err := a.links.FindByIntegrationAndExternalID(ctx, integration.ID, models.ResourceTypeIssue, externalIssueID)
	if err != nil {
		var notFound *models.ResourceNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return err
	}

	externalID := strconv.FormatInt(p.Comment.ID, 10)
	if _, err := a.tasks.FindCommentByExternalID(ctx, link.TaskID, externalID); err == nil {
		// Redelivered webhook; the comment already made it in.
		return nil
	}

	return a.tasks.CreateComment(ctx, &models.TaskComment{
		ID:         uuid.NewString(),
		TaskID:     link.TaskID,
		Content:    adapter.StripMarkers(p.Comment.Body),
		Author:     p.Comment.User.Login,
		ExternalID: externalID,
		CreatedAt:  a.now(),
	})
}

func (a *Adapter) handlePullRequest(ctx context.Context, integration *models.Integration, p *ghhook.PullRequestPayload) error {
	var activity adapter.GitActivity
	switch {
	case p.Action == "opened" || p.Action == "reopened":
		activity = adapter.ActivityPROpen
	case p.Action == "closed" && p.PullRequest.Merged:
		activity = adapter.ActivityPRMerge
	default:
		return nil
	}

	number, ok := matcher.Resolve(a.matchConfig(integration), p.PullRequest.Head.Ref, p.PullRequest.Title, p.PullRequest.Body)
	if !ok {
		return nil
	}
	task, err := a.taskByNumber(ctx, integration, number)
	if err != nil || task == nil {
		return err
	}

	if _, err := a.links.CreateOrUpdate(ctx, services.CreateLinkInput{
		TaskID:        task.ID,
		IntegrationID: integration.ID,
		ResourceType:  models.ResourceTypePullRequest,
		ExternalID:    strconv.FormatInt(p.Number, 10),
		URL:           p.PullRequest.HTMLURL,
		Title:         p.PullRequest.Title,
	}); err != nil {
		return err
	}

	return a.applyTransition(ctx, integration, task, activity)
}

func (a *Adapter) handlePush(ctx context.Context, integration *models.Integration, p *ghhook.PushPayload) error {
	branch := strings.TrimPrefix(p.Ref, "refs/heads/")
	if branch == p.Ref || p.Deleted {
		return nil
	}

	number, ok := matcher.MatchBranch(a.matchConfig(integration), branch)
	if !ok {
		return nil
	}
	task, err := a.taskByNumber(ctx, integration, number)
	if err != nil || task == nil {
		return err
	}

	if _, err := a.links.CreateOrUpdate(ctx, services.CreateLinkInput{
		TaskID:        task.ID,
		IntegrationID: integration.ID,
		ResourceType:  models.ResourceTypeBranch,
		ExternalID:    branch,
		URL:           p.Repository.HTMLURL + "/tree/" + branch,
		Title:         branch,
	}); err != nil {
		return err
	}

	return a.applyTransition(ctx, integration, task, adapter.ActivityBranchPush)
}

// resolveIssueLink finds the link for a webhook's issue, falling back to the
// legacy description marker for links created before the link store existed.
func (a *Adapter) resolveIssueLink(ctx context.Context, integration *models.Integration, p *ghhook.IssuesPayload) (*models.ExternalLink, error) {
	externalID := strconv.FormatInt(p.Issue.Number, 10)
	link, err := a.links.FindByIntegrationAndExternalID(ctx, integration.ID, models.ResourceTypeIssue, externalID)
	if err == nil {
		return link, nil
	}
	var notFound *models.ResourceNotFoundError
	if !errors.As(err, &notFound) {
		return nil, err
	}

	task, err := a.tasks.FindByDescriptionMarker(ctx, p.Issue.HTMLURL)
	if err != nil {
		if errors.As(err, &notFound) {
			return nil, nil
		}
		return nil, err
	}
	return a.links.CreateOrUpdate(ctx, services.CreateLinkInput{
		TaskID:        task.ID,
		IntegrationID: integration.ID,
		ResourceType:  models.ResourceTypeIssue,
		ExternalID:    externalID,
		URL:           p.Issue.HTMLURL,
		Title:         p.Issue.Title,
	})
}

func (a *Adapter) taskByNumber(ctx context.Context, integration *models.Integration, number int) (*models.Task, error) {
	task, err := a.tasks.GetByProjectAndNumber(ctx, integration.ProjectID, number)
	if err != nil {
		var notFound *models.ResourceNotFoundError
		if errors.As(err, &notFound) {
			return nil, nil
		}
		return nil, err
	}
	return task, nil
}

func (a *Adapter) applyTransition(ctx context.Context, integration *models.Integration, task *models.Task, activity adapter.GitActivity) error {
	next, ok := adapter.NextStatus(task.Status, integration.Transitions(), activity)
	if !ok {
		return nil
	}
	a.logger.LogInfo(ctx, "git activity moved task status",
		zap.String("task_id", task.ID),
		zap.String("from", task.Status),
		zap.String("to", next))
	return a.tasks.PatchFields(ctx, task.ID, map[string]interface{}{"status": next})
}

func (a *Adapter) matchConfig(integration *models.Integration) matcher.MatchConfig {
	return matcher.MatchConfig{
		BranchPattern:     integration.EffectiveBranchPattern(),
		CustomBranchRegex: integration.CustomBranchRegex,
	}
}

func issueLabelNames(p *ghhook.IssuesPayload) []string {
	names := make([]string, 0, len(p.Issue.Labels))
	for _, l := range p.Issue.Labels {
		names = append(names, l.Name)
	}
	return names
}
