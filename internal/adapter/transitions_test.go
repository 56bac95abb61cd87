package adapter

import (
	"testing"

	"github.com/kaneo-dev/kaneo-sync/models"
)

func TestNextStatusBranchPush(t *testing.T) {
	tr := models.DefaultStatusTransitions()

	next, ok := NextStatus(models.StatusToDo, tr, ActivityBranchPush)
	if !ok || next != models.StatusInProgress {
		t.Fatalf("got (%q, %v)", next, ok)
	}

	// Already at the target is a no-op.
	if _, ok := NextStatus(models.StatusInProgress, tr, ActivityBranchPush); ok {
		t.Fatalf("same status must not produce a move")
	}
}

func TestNextStatusTerminalGuard(t *testing.T) {
	tr := models.DefaultStatusTransitions()

	for _, status := range []string{models.StatusDone, models.StatusArchived} {
		if _, ok := NextStatus(status, tr, ActivityBranchPush); ok {
			t.Fatalf("push must not move %q", status)
		}
		if _, ok := NextStatus(status, tr, ActivityPROpen); ok {
			t.Fatalf("pr open must not move %q", status)
		}
	}
}

func TestNextStatusMergeForwardOnly(t *testing.T) {
	tr := models.DefaultStatusTransitions()

	next, ok := NextStatus(models.StatusInReview, tr, ActivityPRMerge)
	if !ok || next != models.StatusDone {
		t.Fatalf("got (%q, %v)", next, ok)
	}

	// Merge never moves a task backwards.
	if _, ok := NextStatus(models.StatusArchived, tr, ActivityPRMerge); ok {
		t.Fatalf("merge must not regress archived")
	}
}

func TestNextStatusCustomTransitions(t *testing.T) {
	tr := models.StatusTransitions{OnPRMerge: models.StatusInReview}

	// Custom merge target below current rank is rejected.
	if _, ok := NextStatus(models.StatusDone, tr, ActivityPRMerge); ok {
		t.Fatalf("merge target ranked below current must be rejected")
	}

	next, ok := NextStatus(models.StatusToDo, tr, ActivityPRMerge)
	if !ok || next != models.StatusInReview {
		t.Fatalf("got (%q, %v)", next, ok)
	}
}

func TestNextStatusEmptyTarget(t *testing.T) {
	if _, ok := NextStatus(models.StatusToDo, models.StatusTransitions{}, ActivityPROpen); ok {
		t.Fatalf("empty target disables the transition")
	}
}
