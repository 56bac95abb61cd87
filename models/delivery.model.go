package models

import (
	"time"
)

const (
	DeliveryProcessed = "processed"
	DeliveryRejected  = "rejected"
	DeliveryFailed    = "failed"
)

// WebhookDelivery is an audit row written for every inbound webhook request,
// whatever its outcome. DeliveryID is the provider's delivery header, kept
// for correlation with provider-side redelivery logs, never for dedup.
type WebhookDelivery struct {
	ID            string    `json:"id" bson:"_id"`
	Provider      string    `json:"provider" bson:"provider"`
	IntegrationID string    `json:"integrationId" bson:"integrationId"`
	Event         string    `json:"event" bson:"event"`
	DeliveryID    string    `json:"deliveryId,omitempty" bson:"deliveryId,omitempty"`
	Status        string    `json:"status" bson:"status"`
	Error         string    `json:"error,omitempty" bson:"error,omitempty"`
	ReceivedAt    time.Time `json:"receivedAt" bson:"receivedAt"`
}
