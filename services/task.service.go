package services

import (
	"context"

	"github.com/kaneo-dev/kaneo-sync/models"
)

// TaskService reads and patches tasks owned by the CRUD layer. The engine
// never manages a task's lifecycle beyond importing remote issues.
type TaskService interface {
	GetByID(ctx context.Context, id string) (*models.Task, error)
	GetByProjectAndNumber(ctx context.Context, projectID string, number int) (*models.Task, error)
	// FindByDescriptionMarker is the legacy fallback: it locates a task
	// whose free-text description still carries the pre-migration
	// "Linked to ... issue: <url>" marker.
	FindByDescriptionMarker(ctx context.Context, issueURL string) (*models.Task, error)
	Create(ctx context.Context, task *models.Task) error
	PatchFields(ctx context.Context, id string, fields map[string]interface{}) error
	NextNumber(ctx context.Context, projectID string) (int, error)

	CreateComment(ctx context.Context, comment *models.TaskComment) error
	FindCommentByExternalID(ctx context.Context, taskID, externalID string) (*models.TaskComment, error)
	GetComment(ctx context.Context, id string) (*models.TaskComment, error)
}
