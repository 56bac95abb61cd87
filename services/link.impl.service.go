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

// casRetries bounds the optimistic-concurrency retry loop on Update.
const casRetries = 3

type LinkServiceImpl struct {
	collection *mongo.Collection
}

func NewLinkService(collection *mongo.Collection) LinkService {
	return &LinkServiceImpl{collection: collection}
}

// EnsureLinkIndexes creates the unique compound index backing the
// (integrationId, resourceType, externalId) invariant.
func EnsureLinkIndexes(ctx context.Context, collection *mongo.Collection) error {
	_, err := collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "integrationId", Value: 1},
				{Key: "resourceType", Value: 1},
				{Key: "externalId", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "taskId", Value: 1}}},
	})
	return err
}

func (s *LinkServiceImpl) Create(ctx context.Context, in CreateLinkInput) (*models.ExternalLink, error) {
	existing, err := s.FindByIntegrationAndExternalID(ctx, in.IntegrationID, in.ResourceType, in.ExternalID)
	if err != nil {
		var notFound *models.ResourceNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}
	if existing != nil {
		return nil, &models.DuplicateLinkError{
			IntegrationID: in.IntegrationID,
			ResourceType:  in.ResourceType,
			ExternalID:    in.ExternalID,
		}
	}

	now := time.Now().UTC()
	link := &models.ExternalLink{
		ID:            uuid.NewString(),
		TaskID:        in.TaskID,
		IntegrationID: in.IntegrationID,
		ResourceType:  in.ResourceType,
		ExternalID:    in.ExternalID,
		URL:           in.URL,
		Title:         in.Title,
		Metadata:      in.Metadata,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if _, err := s.collection.InsertOne(ctx, link); err != nil {
		// The unique index backstops the find-then-create race.
		if mongo.IsDuplicateKeyError(err) {
			return nil, &models.DuplicateLinkError{
				IntegrationID: in.IntegrationID,
				ResourceType:  in.ResourceType,
				ExternalID:    in.ExternalID,
			}
		}
		return nil, fmt.Errorf("inserting external link: %w", err)
	}
	return link, nil
}

func (s *LinkServiceImpl) FindByIntegrationAndExternalID(ctx context.Context, integrationID, resourceType, externalID string) (*models.ExternalLink, error) {
	filter := bson.M{
		"integrationId": integrationID,
		"resourceType":  resourceType,
		"externalId":    externalID,
	}
	return s.findOne(ctx, filter, resourceType+" link "+externalID)
}

func (s *LinkServiceImpl) FindByTaskAndType(ctx context.Context, taskID, integrationID, resourceType string) (*models.ExternalLink, error) {
	filter := bson.M{
		"taskId":        taskID,
		"integrationId": integrationID,
		"resourceType":  resourceType,
	}
	return s.findOne(ctx, filter, resourceType+" link for task "+taskID)
}

func (s *LinkServiceImpl) FindAllByTask(ctx context.Context, taskID string) ([]models.ExternalLink, error) {
	cursor, err := s.collection.Find(ctx, bson.M{"taskId": taskID})
	if err != nil {
		return nil, fmt.Errorf("listing links for task %s: %w", taskID, err)
	}
	var links []models.ExternalLink
	if err := cursor.All(ctx, &links); err != nil {
		return nil, err
	}
	return links, nil
}

func (s *LinkServiceImpl) Update(ctx context.Context, id string, in UpdateLink) (*models.ExternalLink, error) {
	for attempt := 0; attempt < casRetries; attempt++ {
		current, err := s.findOne(ctx, bson.M{"_id": id}, "link "+id)
		if err != nil {
			return nil, err
		}

		updated := *current
		if in.URL != "" {
			updated.URL = in.URL
		}
		if in.Title != "" {
			updated.Title = in.Title
		}
		if in.Metadata != nil {
			updated.Metadata.Merge(*in.Metadata)
		}
		updated.Version = current.Version + 1
		updated.UpdatedAt = time.Now().UTC()

		// CAS on the version the document was read at; a miss means a
		// concurrent writer got there first and we re-read.
		res, err := s.collection.ReplaceOne(ctx,
			bson.M{"_id": id, "version": current.Version}, &updated)
		if err != nil {
			return nil, fmt.Errorf("updating link %s: %w", id, err)
		}
		if res.MatchedCount == 1 {
			return &updated, nil
		}
	}
	return nil, fmt.Errorf("updating link %s: too many concurrent modifications", id)
}

func (s *LinkServiceImpl) CreateOrUpdate(ctx context.Context, in CreateLinkInput) (*models.ExternalLink, error) {
	existing, err := s.FindByIntegrationAndExternalID(ctx, in.IntegrationID, in.ResourceType, in.ExternalID)
	if err != nil {
		var notFound *models.ResourceNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		return s.Create(ctx, in)
	}
	return s.Update(ctx, existing.ID, UpdateLink{
		URL:      in.URL,
		Title:    in.Title,
		Metadata: &in.Metadata,
	})
}

func (s *LinkServiceImpl) Delete(ctx context.Context, id string) error {
	res, err := s.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("deleting link %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return &models.ResourceNotFoundError{Kind: "link", ID: id}
	}
	return nil
}

func (s *LinkServiceImpl) DeleteAllForTask(ctx context.Context, taskID string) error {
	_, err := s.collection.DeleteMany(ctx, bson.M{"taskId": taskID})
	if err != nil {
		return fmt.Errorf("deleting links for task %s: %w", taskID, err)
	}
	return nil
}

func (s *LinkServiceImpl) findOne(ctx context.Context, filter bson.M, what string) (*models.ExternalLink, error) {
	var link models.ExternalLink
	err := s.collection.FindOne(ctx, filter).Decode(&link)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &models.ResourceNotFoundError{Kind: "external", ID: what}
		}
		return nil, fmt.Errorf("finding %s: %w", what, err)
	}
	return &link, nil
}
