package models

import (
	"time"
)

const (
	ProviderGithub = "github"
	ProviderGitea  = "gitea"

	// SourceKaneo marks values that originated from a local mutation.
	SourceKaneo = "kaneo"

	DefaultBranchPattern = "{slug}-{number}"
)

// StatusTransitions maps git activity to the local status a task should move to.
type StatusTransitions struct {
	OnBranchPush string `json:"onBranchPush" bson:"onBranchPush"`
	OnPROpen     string `json:"onPROpen" bson:"onPROpen"`
	OnPRMerge    string `json:"onPRMerge" bson:"onPRMerge"`
}

// DefaultStatusTransitions returns the transition map used when an
// integration does not configure one.
func DefaultStatusTransitions() StatusTransitions {
	return StatusTransitions{
		OnBranchPush: StatusInProgress,
		OnPROpen:     StatusInReview,
		OnPRMerge:    StatusDone,
	}
}

// Integration is a project's configured connection to one external provider.
// At most one active integration may exist per (projectId, provider).
type Integration struct {
	ID                string            `json:"id" bson:"_id"`
	ProjectID         string            `json:"projectId" bson:"projectId"`
	Provider          string            `json:"provider" bson:"provider"`
	RepositoryOwner   string            `json:"repositoryOwner" bson:"repositoryOwner"`
	RepositoryName    string            `json:"repositoryName" bson:"repositoryName"`
	BaseURL           string            `json:"baseUrl,omitempty" bson:"baseUrl,omitempty"`
	AccessToken       string            `json:"-" bson:"accessToken,omitempty"`
	InstallationID    string            `json:"installationId,omitempty" bson:"installationId,omitempty"`
	WebhookSecret     string            `json:"-" bson:"webhookSecret,omitempty"`
	BranchPattern     string            `json:"branchPattern" bson:"branchPattern"`
	CustomBranchRegex string            `json:"customBranchRegex,omitempty" bson:"customBranchRegex,omitempty"`
	StatusTransitions StatusTransitions `json:"statusTransitions" bson:"statusTransitions"`
	IsActive          bool              `json:"isActive" bson:"isActive"`
	CreatedAt         time.Time         `json:"createdAt" bson:"createdAt"`
	UpdatedAt         time.Time         `json:"updatedAt" bson:"updatedAt"`
}

// Repository returns the "owner/name" form used in log lines.
func (i *Integration) Repository() string {
	return i.RepositoryOwner + "/" + i.RepositoryName
}

// Transitions returns the configured transition map with defaults filled in.
func (i *Integration) Transitions() StatusTransitions {
	t := i.StatusTransitions
	d := DefaultStatusTransitions()
	if t.OnBranchPush == "" {
		t.OnBranchPush = d.OnBranchPush
	}
	if t.OnPROpen == "" {
		t.OnPROpen = d.OnPROpen
	}
	if t.OnPRMerge == "" {
		t.OnPRMerge = d.OnPRMerge
	}
	return t
}

// EffectiveBranchPattern returns the branch naming pattern, falling back to
// the default "{slug}-{number}" form.
func (i *Integration) EffectiveBranchPattern() string {
	if i.BranchPattern == "" {
		return DefaultBranchPattern
	}
	return i.BranchPattern
}

// HasCredentials reports whether the integration can produce an API client.
func (i *Integration) HasCredentials() bool {
	return i.AccessToken != "" || i.InstallationID != ""
}
