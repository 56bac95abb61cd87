package models

import (
	"fmt"
)

// DuplicateLinkError is returned when a link for the same
// (integration, resourceType, externalId) triple already exists.
type DuplicateLinkError struct {
	IntegrationID string
	ResourceType  string
	ExternalID    string
}

func (e *DuplicateLinkError) Error() string {
	return fmt.Sprintf("external link already exists for integration %s, %s %s",
		e.IntegrationID, e.ResourceType, e.ExternalID)
}

// ProviderUnavailableError means an integration has no usable credentials.
// Handlers degrade to a logged no-op.
type ProviderUnavailableError struct {
	Provider      string
	IntegrationID string
}

func (e *ProviderUnavailableError) Error() string {
	return fmt.Sprintf("%s integration %s has no usable credentials", e.Provider, e.IntegrationID)
}

// SignatureVerificationError rejects a webhook before any payload parsing.
type SignatureVerificationError struct {
	Provider string
	Reason   string
}

func (e *SignatureVerificationError) Error() string {
	return fmt.Sprintf("%s webhook signature verification failed: %s", e.Provider, e.Reason)
}

// ResourceNotFoundError means a local or remote entity went missing
// mid-sync. Handlers log it and return early.
type ResourceNotFoundError struct {
	Kind string
	ID   string
}

func (e *ResourceNotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// RateLimitedError is logged and dropped; the provider's webhook redelivery
// is the recovery path.
type RateLimitedError struct {
	Provider string
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("%s rate limit exceeded", e.Provider)
}
