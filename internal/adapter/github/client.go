package github

import (
	"context"
	"errors"
	"net/http"
	"time"

	gogithub "github.com/google/go-github/v63/github"
	"golang.org/x/oauth2"

	"github.com/kaneo-dev/kaneo-sync/models"
)

// issuesAPI is the slice of the GitHub Issues API the adapter touches.
// *gogithub.IssuesService satisfies it; tests install a fake.
type issuesAPI interface {
	Create(ctx context.Context, owner, repo string, issue *gogithub.IssueRequest) (*gogithub.Issue, *gogithub.Response, error)
	Edit(ctx context.Context, owner, repo string, number int, issue *gogithub.IssueRequest) (*gogithub.Issue, *gogithub.Response, error)
	ListLabelsByIssue(ctx context.Context, owner, repo string, number int, opts *gogithub.ListOptions) ([]*gogithub.Label, *gogithub.Response, error)
	ReplaceLabelsForIssue(ctx context.Context, owner, repo string, number int, labels []string) ([]*gogithub.Label, *gogithub.Response, error)
	CreateComment(ctx context.Context, owner, repo string, number int, comment *gogithub.IssueComment) (*gogithub.IssueComment, *gogithub.Response, error)
}

// newIssuesClient builds an authenticated Issues client for one integration.
func newIssuesClient(integration *models.Integration, timeout time.Duration) (issuesAPI, error) {
	if !integration.HasCredentials() {
		return nil, &models.ProviderUnavailableError{
			Provider:      models.ProviderGithub,
			IntegrationID: integration.ID,
		}
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: integration.AccessToken})
	httpClient := oauth2.NewClient(context.Background(), ts)
	httpClient.Timeout = timeout

	client := gogithub.NewClient(httpClient)
	if integration.BaseURL != "" {
		var err error
		client, err = client.WithEnterpriseURLs(integration.BaseURL, integration.BaseURL)
		if err != nil {
			return nil, err
		}
	}
	return client.Issues, nil
}

// mapAPIError normalizes go-github errors into the engine's error types.
func mapAPIError(err error) error {
	if err == nil {
		return nil
	}
	var rate *gogithub.RateLimitError
	var abuse *gogithub.AbuseRateLimitError
	if errors.As(err, &rate) || errors.As(err, &abuse) {
		return &models.RateLimitedError{Provider: models.ProviderGithub}
	}
	var ghErr *gogithub.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil && ghErr.Response.StatusCode == http.StatusNotFound {
		return &models.ResourceNotFoundError{Kind: "github resource", ID: ghErr.Response.Request.URL.Path}
	}
	return err
}
