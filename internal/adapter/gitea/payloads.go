package gitea

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/kaneo-dev/kaneo-sync/models"
)

// Header names on Gitea webhook deliveries.
const (
	EventHeader     = "X-Gitea-Event"
	SignatureHeader = "X-Gitea-Signature"
	DeliveryHeader  = "X-Gitea-Delivery"
)

// Events the engine subscribes to.
const (
	EventIssues       = "issues"
	EventIssueComment = "issue_comment"
	EventPullRequest  = "pull_request"
	EventPush         = "push"
)

// User is the author fragment embedded in Gitea payloads.
type User struct {
	Login    string `json:"login"`
	UserName string `json:"username"`
}

// Name returns the best available author handle.
func (u User) Name() string {
	if u.UserName != "" {
		return u.UserName
	}
	return u.Login
}

// Label is a repository label attached to an issue.
type Label struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Issue is the issue fragment shared by issue and comment payloads.
type Issue struct {
	ID      int64   `json:"id"`
	Number  int64   `json:"number"`
	Title   string  `json:"title"`
	Body    string  `json:"body"`
	State   string  `json:"state"`
	HTMLURL string  `json:"html_url"`
	Labels  []Label `json:"labels"`
	User    User    `json:"user"`
}

// Repository is the repository fragment carried by every payload.
type Repository struct {
	FullName string `json:"full_name"`
	HTMLURL  string `json:"html_url"`
}

// IssuePayload is the body of an "issues" event.
type IssuePayload struct {
	Action     string     `json:"action"`
	Issue      Issue      `json:"issue"`
	Repository Repository `json:"repository"`
}

// CommentPayload is the body of an "issue_comment" event.
type CommentPayload struct {
	Action string `json:"action"`
	Issue  Issue  `json:"issue"`
	Comment struct {
		ID      int64  `json:"id"`
		Body    string `json:"body"`
		HTMLURL string `json:"html_url"`
		User    User   `json:"user"`
	} `json:"comment"`
	Repository Repository `json:"repository"`
}

// PullRequestPayload is the body of a "pull_request" event.
type PullRequestPayload struct {
	Action      string `json:"action"`
	Number      int64  `json:"number"`
	PullRequest struct {
		Number  int64  `json:"number"`
		Title   string `json:"title"`
		Body    string `json:"body"`
		State   string `json:"state"`
		HTMLURL string `json:"html_url"`
		Merged  bool   `json:"merged"`
		Head    struct {
			Ref string `json:"ref"`
		} `json:"head"`
	} `json:"pull_request"`
	Repository Repository `json:"repository"`
}

// PushPayload is the body of a "push" event.
type PushPayload struct {
	Ref        string     `json:"ref"`
	Before     string     `json:"before"`
	After      string     `json:"after"`
	Repository Repository `json:"repository"`
}

// VerifySignature checks the hex HMAC-SHA256 Gitea puts in
// X-Gitea-Signature against the integration's webhook secret.
func VerifySignature(secret string, body []byte, signature string) error {
	if secret == "" {
		return &models.SignatureVerificationError{Provider: models.ProviderGitea, Reason: "integration has no webhook secret"}
	}
	if signature == "" {
		return &models.SignatureVerificationError{Provider: models.ProviderGitea, Reason: "missing signature header"}
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return &models.SignatureVerificationError{Provider: models.ProviderGitea, Reason: "signature mismatch"}
	}
	return nil
}

// ParseWebhook decodes a verified delivery body into the typed payload for
// its event. Unsubscribed events return (nil, nil).
func ParseWebhook(event string, body []byte) (interface{}, error) {
	switch event {
	case EventIssues:
		var p IssuePayload
		if err := json.Unmarshal(body, &p); err != nil {
			return nil, err
		}
		return p, nil
	case EventIssueComment:
		var p CommentPayload
		if err := json.Unmarshal(body, &p); err != nil {
			return nil, err
		}
		return p, nil
	case EventPullRequest:
		var p PullRequestPayload
		if err := json.Unmarshal(body, &p); err != nil {
			return nil, err
		}
		return p, nil
	case EventPush:
		var p PushPayload
		if err := json.Unmarshal(body, &p); err != nil {
			return nil, err
		}
		return p, nil
	}
	return nil, nil
}
