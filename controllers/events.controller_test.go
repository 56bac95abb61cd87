package controllers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaneo-dev/kaneo-sync/internal/bus"
	"github.com/kaneo-dev/kaneo-sync/models"
	"github.com/kaneo-dev/kaneo-sync/utils"
)

func newEventsRouter(t *testing.T) (*gin.Engine, chan *models.TaskEvent, func()) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	b, err := bus.New()
	require.NoError(t, err)

	received := make(chan *models.TaskEvent, 8)
	b.Subscribe("test-collector", func(ctx context.Context, event *models.TaskEvent) error {
		received <- event
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = b.Run(ctx) }()
	select {
	case <-b.Running():
	case <-time.After(5 * time.Second):
		t.Fatal("bus did not start")
	}

	ec := NewEventsController(b, utils.NewNopLogger())
	router := gin.New()
	router.POST("/events", ec.PublishHandler())

	return router, received, func() {
		cancel()
		_ = b.Close()
	}
}

func TestPublishEventAccepted(t *testing.T) {
	router, received, stop := newEventsRouter(t)
	defer stop()

	body := []byte(`{
		"type": "task.status_changed",
		"projectId": "proj-1",
		"task": {"id": "task-1", "projectId": "proj-1", "status": "in-progress"},
		"oldValue": "to-do",
		"newValue": "in-progress"
	}`)
	req := httptest.NewRequest(http.MethodPost, "/events", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusAccepted, w.Code)

	select {
	case event := <-received:
		assert.Equal(t, models.EventTaskStatusChanged, event.Type)
		assert.Equal(t, "task-1", event.Task.ID)
		assert.False(t, event.EmittedAt.IsZero())
	case <-time.After(5 * time.Second):
		t.Fatal("event never reached the bus subscriber")
	}
}

func TestPublishEventRejectsUnknownType(t *testing.T) {
	router, _, stop := newEventsRouter(t)
	defer stop()

	body := []byte(`{"type": "task.reticulated", "projectId": "proj-1", "task": {"id": "task-1"}}`)
	req := httptest.NewRequest(http.MethodPost, "/events", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPublishEventRejectsMissingFields(t *testing.T) {
	router, _, stop := newEventsRouter(t)
	defer stop()

	for _, body := range []string{
		`{"type": "task.created", "task": {"id": "task-1"}}`,
		`{"type": "task.created", "projectId": "proj-1", "task": {}}`,
		`not json`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/events", bytes.NewReader([]byte(body)))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code, "body: %s", body)
	}
}
