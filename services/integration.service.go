package services

import (
	"context"

	"github.com/kaneo-dev/kaneo-sync/models"
)

// IntegrationService stores per-project provider connections. Save enforces
// the one-active-integration-per-(project, provider) invariant.
type IntegrationService interface {
	GetByID(ctx context.Context, id string) (*models.Integration, error)
	ActiveForProject(ctx context.Context, projectID string) ([]models.Integration, error)
	ActiveForProjectProvider(ctx context.Context, projectID, provider string) (*models.Integration, error)
	Save(ctx context.Context, integration *models.Integration) error
}
