package bus

import (
	"context"
	"testing"
	"time"

	"github.com/kaneo-dev/kaneo-sync/models"
)

func TestPublishSubscribeRoundTrip(t *testing.T) {
	b, err := New()
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer b.Close()

	received := make(chan *models.TaskEvent, 1)
	b.Subscribe("test-handler", func(_ context.Context, ev *models.TaskEvent) error {
		received <- ev
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = b.Run(ctx)
	}()
	<-b.Running()

	event := &models.TaskEvent{
		Type:      models.EventTaskStatusChanged,
		ProjectID: "p1",
		Task:      models.Task{ID: "t1", ProjectID: "p1", Status: models.StatusInProgress},
		OldValue:  models.StatusToDo,
		NewValue:  models.StatusInProgress,
		EmittedAt: time.Now().UTC(),
	}
	if err := b.PublishTaskEvent(context.Background(), event); err != nil {
		t.Fatalf("PublishTaskEvent() error: %v", err)
	}

	select {
	case got := <-received:
		if got.Type != models.EventTaskStatusChanged || got.Task.ID != "t1" || got.NewValue != models.StatusInProgress {
			t.Fatalf("unexpected event: %+v", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for event")
	}
}
