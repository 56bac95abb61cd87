package services

import (
	"context"

	"github.com/kaneo-dev/kaneo-sync/models"
)

// CreateLinkInput carries the fields needed to link a task to one remote
// resource.
type CreateLinkInput struct {
	TaskID        string
	IntegrationID string
	ResourceType  string
	ExternalID    string
	URL           string
	Title         string
	Metadata      models.SyncMetadata
}

// UpdateLink is a partial update. Zero-value fields are left untouched;
// Metadata is merged per journal field, never replaced wholesale.
type UpdateLink struct {
	URL      string
	Title    string
	Metadata *models.SyncMetadata
}

// LinkService is the external link store: the only shared mutable resource
// between concurrent sync handlers. Creation is find-then-create so callers
// see duplicates explicitly; CreateOrUpdate wraps the pair for idempotent
// import flows.
type LinkService interface {
	Create(ctx context.Context, in CreateLinkInput) (*models.ExternalLink, error)
	FindByIntegrationAndExternalID(ctx context.Context, integrationID, resourceType, externalID string) (*models.ExternalLink, error)
	FindByTaskAndType(ctx context.Context, taskID, integrationID, resourceType string) (*models.ExternalLink, error)
	FindAllByTask(ctx context.Context, taskID string) ([]models.ExternalLink, error)
	Update(ctx context.Context, id string, in UpdateLink) (*models.ExternalLink, error)
	CreateOrUpdate(ctx context.Context, in CreateLinkInput) (*models.ExternalLink, error)
	Delete(ctx context.Context, id string) error
	// DeleteAllForTask is the explicit unlink path. Task deletion does not
	// cascade here; the CRUD layer calls this when it wants cascade
	// semantics.
	DeleteAllForTask(ctx context.Context, taskID string) error
}
