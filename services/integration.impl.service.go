package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kaneo-dev/kaneo-sync/models"
)

type IntegrationServiceImpl struct {
	collection *mongo.Collection
}

func NewIntegrationService(collection *mongo.Collection) IntegrationService {
	return &IntegrationServiceImpl{collection: collection}
}

// EnsureIntegrationIndexes creates the partial unique index that backs the
// one-active-per-(project, provider) invariant.
func EnsureIntegrationIndexes(ctx context.Context, collection *mongo.Collection) error {
	_, err := collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "projectId", Value: 1},
			{Key: "provider", Value: 1},
		},
		Options: options.Index().
			SetUnique(true).
			SetPartialFilterExpression(bson.M{"isActive": true}),
	})
	return err
}

func (s *IntegrationServiceImpl) GetByID(ctx context.Context, id string) (*models.Integration, error) {
	var integration models.Integration
	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&integration)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &models.ResourceNotFoundError{Kind: "integration", ID: id}
		}
		return nil, fmt.Errorf("finding integration %s: %w", id, err)
	}
	return &integration, nil
}

func (s *IntegrationServiceImpl) ActiveForProject(ctx context.Context, projectID string) ([]models.Integration, error) {
	cursor, err := s.collection.Find(ctx, bson.M{"projectId": projectID, "isActive": true})
	if err != nil {
		return nil, fmt.Errorf("listing integrations for project %s: %w", projectID, err)
	}
	var integrations []models.Integration
	if err := cursor.All(ctx, &integrations); err != nil {
		return nil, err
	}
	return integrations, nil
}

func (s *IntegrationServiceImpl) ActiveForProjectProvider(ctx context.Context, projectID, provider string) (*models.Integration, error) {
	var integration models.Integration
	err := s.collection.FindOne(ctx,
		bson.M{"projectId": projectID, "provider": provider, "isActive": true}).Decode(&integration)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &models.ResourceNotFoundError{Kind: "integration", ID: projectID + "/" + provider}
		}
		return nil, fmt.Errorf("finding %s integration for project %s: %w", provider, projectID, err)
	}
	return &integration, nil
}

func (s *IntegrationServiceImpl) Save(ctx context.Context, integration *models.Integration) error {
	now := time.Now().UTC()
	if integration.ID == "" {
		integration.ID = uuid.NewString()
		integration.CreatedAt = now
	}
	integration.UpdatedAt = now

	// Activating this integration deactivates any sibling for the same
	// (project, provider) first; the partial unique index backstops races.
	if integration.IsActive {
		_, err := s.collection.UpdateMany(ctx,
			bson.M{
				"projectId": integration.ProjectID,
				"provider":  integration.Provider,
				"_id":       bson.M{"$ne": integration.ID},
				"isActive":  true,
			},
			bson.M{"$set": bson.M{"isActive": false, "updatedAt": now}})
		if err != nil {
			return fmt.Errorf("deactivating sibling integrations: %w", err)
		}
	}

	_, err := s.collection.ReplaceOne(ctx,
		bson.M{"_id": integration.ID}, integration, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("saving integration %s: %w", integration.ID, err)
	}
	return nil
}
