package models

import (
	"time"
)

const (
	EventTaskCreated            = "task.created"
	EventTaskStatusChanged      = "task.status_changed"
	EventTaskPriorityChanged    = "task.priority_changed"
	EventTaskTitleChanged       = "task.title_changed"
	EventTaskDescriptionChanged = "task.description_changed"
	EventTaskCommentCreated     = "task.comment_created"
)

var taskEventTypes = map[string]bool{
	EventTaskCreated:            true,
	EventTaskStatusChanged:      true,
	EventTaskPriorityChanged:    true,
	EventTaskTitleChanged:       true,
	EventTaskDescriptionChanged: true,
	EventTaskCommentCreated:     true,
}

// IsTaskEventType reports whether t is one of the six contract event types.
func IsTaskEventType(t string) bool {
	return taskEventTypes[t]
}

// EventComment is the comment payload carried by task.comment_created.
type EventComment struct {
	ID      string `json:"id" bson:"id"`
	Content string `json:"content" bson:"content"`
	Author  string `json:"author,omitempty" bson:"author,omitempty"`
}

// TaskEvent is a domain event emitted by the CRUD layer into the sync
// engine. Task carries the post-mutation snapshot; OldValue/NewValue carry
// the changed field for the *_changed types.
type TaskEvent struct {
	Type      string        `json:"type" bson:"type"`
	ProjectID string        `json:"projectId" bson:"projectId"`
	Task      Task          `json:"task" bson:"task"`
	OldValue  string        `json:"oldValue,omitempty" bson:"oldValue,omitempty"`
	NewValue  string        `json:"newValue,omitempty" bson:"newValue,omitempty"`
	Comment   *EventComment `json:"comment,omitempty" bson:"comment,omitempty"`
	EmittedAt time.Time     `json:"emittedAt" bson:"emittedAt"`
}
