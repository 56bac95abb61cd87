package journal

import (
	"testing"
	"time"

	"github.com/kaneo-dev/kaneo-sync/models"
)

func TestSuppressedEcho(t *testing.T) {
	now := time.Now()
	meta := &models.SyncMetadata{}
	Record(meta, FieldTitle, "Fix login bug", models.ProviderGithub, now.Add(-time.Minute))

	// Pushing the same value back to the side it came from is an echo.
	suppressed, reason := Suppressed(meta, FieldTitle, "Fix login bug", models.ProviderGithub, now)
	if !suppressed {
		t.Fatalf("expected echo suppression")
	}
	if reason != ReasonEcho {
		t.Fatalf("unexpected reason: %s", reason)
	}

	// A different value is not an echo.
	if suppressed, _ := Suppressed(meta, FieldTitle, "Fix signup bug", models.ProviderGithub, now); suppressed {
		t.Fatalf("different value must not be suppressed outside the window")
	}
}

func TestSuppressedSourceMustMatchDestination(t *testing.T) {
	now := time.Now()
	meta := &models.SyncMetadata{}
	Record(meta, FieldTitle, "Fix login bug", models.SourceKaneo, now.Add(-time.Minute))

	// Same value, but it originated locally: pushing it to github is not an
	// echo and must go through.
	if suppressed, _ := Suppressed(meta, FieldTitle, "Fix login bug", models.ProviderGithub, now); suppressed {
		t.Fatalf("locally produced value must not count as an echo toward github")
	}
}

func TestSuppressedDebounceWindow(t *testing.T) {
	now := time.Now()
	meta := &models.SyncMetadata{}
	Record(meta, FieldDescription, "v1", models.SourceKaneo, now.Add(-500*time.Millisecond))

	// Opposite-direction write inside 2000ms is absorbed regardless of value.
	suppressed, reason := Suppressed(meta, FieldDescription, "v2", models.SourceKaneo, now)
	if !suppressed {
		t.Fatalf("expected debounce suppression")
	}
	if reason != ReasonDebounce {
		t.Fatalf("unexpected reason: %s", reason)
	}

	// Outside the window the write proceeds.
	if suppressed, _ := Suppressed(meta, FieldDescription, "v2", models.SourceKaneo, now.Add(3*time.Second)); suppressed {
		t.Fatalf("write outside the debounce window must not be suppressed")
	}
}

func TestSuppressedUnknownField(t *testing.T) {
	meta := &models.SyncMetadata{}
	if suppressed, _ := Suppressed(meta, FieldState, "closed", models.SourceKaneo, time.Now()); suppressed {
		t.Fatalf("field with no journal entry must not be suppressed")
	}
	if suppressed, _ := Suppressed(nil, FieldState, "closed", models.SourceKaneo, time.Now()); suppressed {
		t.Fatalf("nil metadata must not be suppressed")
	}
}

func TestRecordOverwritesPerField(t *testing.T) {
	now := time.Now()
	meta := &models.SyncMetadata{}
	Record(meta, FieldTitle, "a", models.SourceKaneo, now)
	Record(meta, FieldDescription, "b", models.ProviderGitea, now)
	Record(meta, FieldTitle, "c", models.ProviderGithub, now)

	if got := meta.LastSync[FieldTitle]; got.Value != "c" || got.Source != models.ProviderGithub {
		t.Fatalf("unexpected title entry: %+v", got)
	}
	if got := meta.LastSync[FieldDescription]; got.Value != "b" {
		t.Fatalf("description entry clobbered: %+v", got)
	}
}

func TestMetadataMergeKeepsSiblingEntries(t *testing.T) {
	now := time.Now()
	meta := models.SyncMetadata{CreatedFrom: models.SourceKaneo}
	Record(&meta, FieldTitle, "a", models.SourceKaneo, now)

	meta.Merge(Entry(FieldDescription, "b", models.ProviderGithub, now))

	if meta.CreatedFrom != models.SourceKaneo {
		t.Fatalf("merge dropped createdFrom")
	}
	if _, ok := meta.LastSync[FieldTitle]; !ok {
		t.Fatalf("merge dropped sibling journal entry")
	}
	if got := meta.LastSync[FieldDescription]; got.Value != "b" {
		t.Fatalf("merge did not apply new entry: %+v", got)
	}
}
