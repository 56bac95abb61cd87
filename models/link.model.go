package models

import (
	"time"
)

const (
	ResourceTypeIssue       = "issue"
	ResourceTypePullRequest = "pull_request"
	ResourceTypeBranch      = "branch"
)

// FieldSync is one journal entry: the last value pushed for a field, which
// side produced it, and when.
type FieldSync struct {
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
	Source    string    `json:"source" bson:"source"`
	Value     string    `json:"value" bson:"value"`
}

// SyncMetadata travels embedded in an ExternalLink. LastSync carries the
// per-field journal consumed by the loop-prevention protocol; CreatedFrom
// records which side created the linked pair.
type SyncMetadata struct {
	CreatedFrom string               `json:"createdFrom,omitempty" bson:"createdFrom,omitempty"`
	LastSync    map[string]FieldSync `json:"lastSync,omitempty" bson:"lastSync,omitempty"`
}

// Merge folds other into m: non-empty CreatedFrom wins, and LastSync entries
// are merged per field rather than replaced wholesale.
func (m *SyncMetadata) Merge(other SyncMetadata) {
	if other.CreatedFrom != "" {
		m.CreatedFrom = other.CreatedFrom
	}
	if len(other.LastSync) == 0 {
		return
	}
	if m.LastSync == nil {
		m.LastSync = make(map[string]FieldSync, len(other.LastSync))
	}
	for field, entry := range other.LastSync {
		m.LastSync[field] = entry
	}
}

// ExternalLink is the durable mapping from a local task to one remote
// resource. (IntegrationID, ResourceType, ExternalID) is unique.
type ExternalLink struct {
	ID            string       `json:"id" bson:"_id"`
	TaskID        string       `json:"taskId" bson:"taskId"`
	IntegrationID string       `json:"integrationId" bson:"integrationId"`
	ResourceType  string       `json:"resourceType" bson:"resourceType"`
	ExternalID    string       `json:"externalId" bson:"externalId"`
	URL           string       `json:"url" bson:"url"`
	Title         string       `json:"title,omitempty" bson:"title,omitempty"`
	Metadata      SyncMetadata `json:"metadata" bson:"metadata"`
	Version       int64        `json:"version" bson:"version"`
	CreatedAt     time.Time    `json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt" bson:"updatedAt"`
}
