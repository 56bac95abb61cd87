package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/kaneo-dev/kaneo-sync/models"
)

type DeliveryServiceImpl struct {
	collection *mongo.Collection
}

func NewDeliveryService(collection *mongo.Collection) DeliveryService {
	return &DeliveryServiceImpl{collection: collection}
}

func (s *DeliveryServiceImpl) Record(ctx context.Context, delivery *models.WebhookDelivery) error {
	if delivery.ID == "" {
		delivery.ID = uuid.NewString()
	}
	if delivery.ReceivedAt.IsZero() {
		delivery.ReceivedAt = time.Now().UTC()
	}
	if _, err := s.collection.InsertOne(ctx, delivery); err != nil {
		return fmt.Errorf("recording webhook delivery: %w", err)
	}
	return nil
}
