// Package journal implements the loop-prevention protocol over the per-field
// sync history embedded in an external link's metadata.
package journal

import (
	"time"

	"github.com/kaneo-dev/kaneo-sync/models"
)

// DebounceWindow is the fixed interval inside which a second write to the
// same field is absorbed regardless of value.
const DebounceWindow = 2000 * time.Millisecond

// Journaled fields. Status and priority are reconciled through label sets
// instead, which is idempotent without timestamp tracking.
const (
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldState       = "state"
)

// Suppression reasons, used for metrics labels.
const (
	ReasonEcho     = "echo"
	ReasonDebounce = "debounce"
)

// Suppressed decides whether a pending write of candidate to field should be
// dropped. destination is the side the write is headed to ("kaneo",
// "github", "gitea"). The write is suppressed when the candidate value is
// exactly what was last synced and that value itself came from the
// destination side (an echo), or when the last sync of the field happened
// inside the debounce window.
func Suppressed(meta *models.SyncMetadata, field, candidate, destination string, now time.Time) (bool, string) {
	if meta == nil || meta.LastSync == nil {
		return false, ""
	}
	last, ok := meta.LastSync[field]
	if !ok {
		return false, ""
	}
	if last.Value == candidate && last.Source == destination {
		return true, ReasonEcho
	}
	if now.Sub(last.Timestamp) < DebounceWindow {
		return true, ReasonDebounce
	}
	return false, ""
}

// Record notes that value was written to field, originating from origin.
// It mutates meta in place, allocating the journal map on first use.
func Record(meta *models.SyncMetadata, field, value, origin string, now time.Time) {
	if meta.LastSync == nil {
		meta.LastSync = make(map[string]models.FieldSync)
	}
	meta.LastSync[field] = models.FieldSync{
		Timestamp: now,
		Source:    origin,
		Value:     value,
	}
}

// Entry returns a metadata fragment holding a single journal record, for use
// with the link store's merging update.
func Entry(field, value, origin string, now time.Time) models.SyncMetadata {
	return models.SyncMetadata{
		LastSync: map[string]models.FieldSync{
			field: {Timestamp: now, Source: origin, Value: value},
		},
	}
}
