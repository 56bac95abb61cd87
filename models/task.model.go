package models

import (
	"time"
)

const (
	StatusToDo       = "to-do"
	StatusInProgress = "in-progress"
	StatusInReview   = "in-review"
	StatusDone       = "done"
	StatusArchived   = "archived"

	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

var statusRank = map[string]int{
	StatusToDo:       0,
	StatusInProgress: 1,
	StatusInReview:   2,
	StatusDone:       3,
	StatusArchived:   4,
}

var priorities = map[string]bool{
	PriorityLow:    true,
	PriorityMedium: true,
	PriorityHigh:   true,
	PriorityUrgent: true,
}

// IsPriority reports whether p is one of the four known priorities.
func IsPriority(p string) bool {
	return priorities[p]
}

// IsTerminalStatus reports whether a status closes out a task.
func IsTerminalStatus(status string) bool {
	return status == StatusDone || status == StatusArchived
}

// StatusRank returns the position of a status in the board's forward order,
// -1 for statuses the engine does not know about.
func StatusRank(status string) int {
	if r, ok := statusRank[status]; ok {
		return r
	}
	return -1
}

// Task is owned by the CRUD layer; the sync engine reads it and patches
// individual fields, never managing its lifecycle.
type Task struct {
	ID          string    `json:"id" bson:"_id"`
	ProjectID   string    `json:"projectId" bson:"projectId"`
	Number      int       `json:"number" bson:"number"`
	Title       string    `json:"title" bson:"title"`
	Description string    `json:"description,omitempty" bson:"description,omitempty"`
	Status      string    `json:"status" bson:"status"`
	Priority    string    `json:"priority" bson:"priority"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updatedAt"`
}

// TaskComment is a comment on a task. ExternalID is set on comments imported
// from a remote issue so redelivered webhooks do not duplicate them.
type TaskComment struct {
	ID         string    `json:"id" bson:"_id"`
	TaskID     string    `json:"taskId" bson:"taskId"`
	Content    string    `json:"content" bson:"content"`
	Author     string    `json:"author,omitempty" bson:"author,omitempty"`
	ExternalID string    `json:"externalId,omitempty" bson:"externalId,omitempty"`
	CreatedAt  time.Time `json:"createdAt" bson:"createdAt"`
}
