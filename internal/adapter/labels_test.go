package adapter

import (
	"reflect"
	"testing"
)

func TestDesiredLabelSetReplacesPrefix(t *testing.T) {
	current := []string{"bug", "status:to-do", "help wanted"}
	desired, changed := DesiredLabelSet(current, StatusLabelPrefix, "in-progress")
	if !changed {
		t.Fatalf("expected a change")
	}
	want := []string{"bug", "help wanted", "status:in-progress"}
	if !reflect.DeepEqual(desired, want) {
		t.Fatalf("got %v, want %v", desired, want)
	}
}

func TestDesiredLabelSetIdempotent(t *testing.T) {
	current := []string{"bug", "status:in-progress"}
	desired, changed := DesiredLabelSet(current, StatusLabelPrefix, "in-progress")
	if changed {
		t.Fatalf("matching set must not report a change")
	}
	if !reflect.DeepEqual(desired, current) {
		t.Fatalf("got %v, want %v", desired, current)
	}

	// Applying the reconciliation twice: the second pass sees the first
	// pass's output and computes no write.
	first, _ := DesiredLabelSet([]string{"bug", "status:to-do"}, StatusLabelPrefix, "in-progress")
	_, changed = DesiredLabelSet(first, StatusLabelPrefix, "in-progress")
	if changed {
		t.Fatalf("second reconciliation with the same target must be a no-op")
	}
}

func TestDesiredLabelSetDropsDuplicates(t *testing.T) {
	current := []string{"status:to-do", "status:to-do", "bug"}
	desired, changed := DesiredLabelSet(current, StatusLabelPrefix, "to-do")
	if !changed {
		t.Fatalf("duplicate reserved labels must force a write")
	}
	want := []string{"status:to-do", "bug"}
	if !reflect.DeepEqual(desired, want) {
		t.Fatalf("got %v, want %v", desired, want)
	}
}

func TestDesiredLabelSetEmptyCurrent(t *testing.T) {
	desired, changed := DesiredLabelSet(nil, PriorityLabelPrefix, "high")
	if !changed {
		t.Fatalf("expected a change")
	}
	if !reflect.DeepEqual(desired, []string{"priority:high"}) {
		t.Fatalf("got %v", desired)
	}
}

func TestLabelValue(t *testing.T) {
	labels := []string{"bug", "priority:high", "status:done"}
	if v, ok := LabelValue(labels, PriorityLabelPrefix); !ok || v != "high" {
		t.Fatalf("got (%q, %v)", v, ok)
	}
	if v, ok := LabelValue(labels, StatusLabelPrefix); !ok || v != "done" {
		t.Fatalf("got (%q, %v)", v, ok)
	}
	if _, ok := LabelValue([]string{"bug"}, StatusLabelPrefix); ok {
		t.Fatalf("missing prefix must not match")
	}
}
