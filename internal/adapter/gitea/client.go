package gitea

import (
	"context"
	"net/http"
	"strings"
	"time"

	giteasdk "code.gitea.io/sdk/gitea"

	"github.com/kaneo-dev/kaneo-sync/internal/adapter"
	"github.com/kaneo-dev/kaneo-sync/models"
)

// Auto-created label colors, keyed by reserved namespace.
const (
	statusLabelColor   = "#1d76db"
	priorityLabelColor = "#d93f0b"
)

// issuesAPI is the slice of the Gitea API the adapter touches, lifted to
// label names. The SDK addresses labels by numeric id; the real
// implementation maps names to ids, creating missing repository labels on
// the fly.
type issuesAPI interface {
	Create(ctx context.Context, title, body string, labels []string) (index int64, htmlURL string, err error)
	EditTitle(ctx context.Context, index int64, title string) error
	EditBody(ctx context.Context, index int64, body string) error
	EditState(ctx context.Context, index int64, closed bool) error
	Labels(ctx context.Context, index int64) ([]string, error)
	ReplaceLabels(ctx context.Context, index int64, labels []string) error
	CreateComment(ctx context.Context, index int64, body string) error
}

type sdkClient struct {
	client *giteasdk.Client
	owner  string
	repo   string
}

// newIssuesClient builds an authenticated client for one integration.
// Gitea is self-hosted, so BaseURL is required.
func newIssuesClient(integration *models.Integration, timeout time.Duration) (issuesAPI, error) {
	if !integration.HasCredentials() || integration.BaseURL == "" {
		return nil, &models.ProviderUnavailableError{
			Provider:      models.ProviderGitea,
			IntegrationID: integration.ID,
		}
	}
	client, err := giteasdk.NewClient(integration.BaseURL,
		giteasdk.SetToken(integration.AccessToken),
		giteasdk.SetHTTPClient(&http.Client{Timeout: timeout}),
	)
	if err != nil {
		return nil, err
	}
	return &sdkClient{
		client: client,
		owner:  integration.RepositoryOwner,
		repo:   integration.RepositoryName,
	}, nil
}

func (c *sdkClient) Create(ctx context.Context, title, body string, labels []string) (int64, string, error) {
	ids, err := c.labelIDs(labels, true)
	if err != nil {
		return 0, "", err
	}
	issue, resp, err := c.client.CreateIssue(c.owner, c.repo, giteasdk.CreateIssueOption{
		Title:  title,
		Body:   body,
		Labels: ids,
	})
	if err != nil {
		return 0, "", mapAPIError(resp, err)
	}
	return issue.Index, issue.HTMLURL, nil
}

func (c *sdkClient) EditTitle(ctx context.Context, index int64, title string) error {
	_, resp, err := c.client.EditIssue(c.owner, c.repo, index, giteasdk.EditIssueOption{Title: title})
	return mapAPIError(resp, err)
}

func (c *sdkClient) EditBody(ctx context.Context, index int64, body string) error {
	_, resp, err := c.client.EditIssue(c.owner, c.repo, index, giteasdk.EditIssueOption{Body: &body})
	return mapAPIError(resp, err)
}

func (c *sdkClient) EditState(ctx context.Context, index int64, closed bool) error {
	state := giteasdk.StateOpen
	if closed {
		state = giteasdk.StateClosed
	}
	_, resp, err := c.client.EditIssue(c.owner, c.repo, index, giteasdk.EditIssueOption{State: &state})
	return mapAPIError(resp, err)
}

func (c *sdkClient) Labels(ctx context.Context, index int64) ([]string, error) {
	labels, resp, err := c.client.GetIssueLabels(c.owner, c.repo, index, giteasdk.ListLabelsOptions{})
	if err != nil {
		return nil, mapAPIError(resp, err)
	}
	names := make([]string, 0, len(labels))
	for _, l := range labels {
		names = append(names, l.Name)
	}
	return names, nil
}

func (c *sdkClient) ReplaceLabels(ctx context.Context, index int64, labels []string) error {
	ids, err := c.labelIDs(labels, true)
	if err != nil {
		return err
	}
	_, resp, err := c.client.ReplaceIssueLabels(c.owner, c.repo, index, giteasdk.IssueLabelsOption{Labels: ids})
	return mapAPIError(resp, err)
}

func (c *sdkClient) CreateComment(ctx context.Context, index int64, body string) error {
	_, resp, err := c.client.CreateIssueComment(c.owner, c.repo, index, giteasdk.CreateIssueCommentOption{Body: body})
	return mapAPIError(resp, err)
}

// labelIDs maps label names to repository label ids, creating any that do
// not exist yet when create is set.
func (c *sdkClient) labelIDs(names []string, create bool) ([]int64, error) {
	existing, resp, err := c.client.ListRepoLabels(c.owner, c.repo, giteasdk.ListLabelsOptions{
		ListOptions: giteasdk.ListOptions{PageSize: 100},
	})
	if err != nil {
		return nil, mapAPIError(resp, err)
	}
	byName := make(map[string]int64, len(existing))
	for _, l := range existing {
		byName[l.Name] = l.ID
	}

	ids := make([]int64, 0, len(names))
	for _, name := range names {
		if id, ok := byName[name]; ok {
			ids = append(ids, id)
			continue
		}
		if !create {
			continue
		}
		label, resp, err := c.client.CreateLabel(c.owner, c.repo, giteasdk.CreateLabelOption{
			Name:  name,
			Color: labelColor(name),
		})
		if err != nil {
			return nil, mapAPIError(resp, err)
		}
		ids = append(ids, label.ID)
	}
	return ids, nil
}

func labelColor(name string) string {
	switch {
	case strings.HasPrefix(name, adapter.StatusLabelPrefix):
		return statusLabelColor
	case strings.HasPrefix(name, adapter.PriorityLabelPrefix):
		return priorityLabelColor
	}
	return "#ededed"
}

// mapAPIError translates HTTP failures into the shared error taxonomy using
// the response status.
func mapAPIError(resp *giteasdk.Response, err error) error {
	if err == nil {
		return nil
	}
	if resp == nil || resp.Response == nil {
		return err
	}
	switch resp.StatusCode {
	case http.StatusNotFound:
		return &models.ResourceNotFoundError{Kind: "gitea resource", ID: ""}
	case http.StatusTooManyRequests:
		return &models.RateLimitedError{Provider: models.ProviderGitea}
	}
	return err
}
