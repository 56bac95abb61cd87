package services

import (
	"context"

	"github.com/kaneo-dev/kaneo-sync/models"
)

// DeliveryService records an audit row for every inbound webhook delivery.
type DeliveryService interface {
	Record(ctx context.Context, delivery *models.WebhookDelivery) error
}
