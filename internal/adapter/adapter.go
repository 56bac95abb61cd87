// Package adapter defines the provider adapter contract, the explicit
// adapter registry, and the broadcaster that fans task events out to a
// project's active integrations.
package adapter

import (
	"context"

	"github.com/kaneo-dev/kaneo-sync/models"
)

// Label namespaces the engine owns on the remote side. They are synthetic,
// system-managed labels; replace-by-prefix keeps each namespace down to a
// single label.
const (
	StatusLabelPrefix   = "status:"
	PriorityLabelPrefix = "priority:"
)

// Adapter is a provider-specific implementation of the outbound event
// handlers and inbound webhook handlers.
type Adapter interface {
	// Provider returns the provider type this adapter serves ("github",
	// "gitea").
	Provider() string

	// HandleTaskEvent executes the outbound side of one domain event
	// against one integration.
	HandleTaskEvent(ctx context.Context, integration *models.Integration, event *models.TaskEvent) error

	// HandleWebhook processes one parsed inbound payload. event is the
	// provider's event header value; payload's concrete type is
	// provider-specific.
	HandleWebhook(ctx context.Context, integration *models.Integration, event string, payload interface{}) error
}
