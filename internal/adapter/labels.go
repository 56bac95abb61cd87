package adapter

import (
	"strings"
)

// DesiredLabelSet computes the replace-by-prefix target: every label
// carrying prefix is collapsed to the single desired one, everything else
// is preserved in order. changed is false when current already matches,
// letting callers skip the write so repeated reconciliation stays
// idempotent.
func DesiredLabelSet(current []string, prefix, value string) (desired []string, changed bool) {
	want := prefix + value
	seen := false
	for _, label := range current {
		if strings.HasPrefix(label, prefix) {
			if label == want && !seen {
				desired = append(desired, label)
				seen = true
				continue
			}
			// Wrong or duplicate reserved label: drop it.
			changed = true
			continue
		}
		desired = append(desired, label)
	}
	if !seen {
		desired = append(desired, want)
		changed = true
	}
	return desired, changed
}

// LabelValue extracts the value of the first label carrying prefix, e.g.
// "status:in-progress" -> "in-progress".
func LabelValue(labels []string, prefix string) (string, bool) {
	for _, label := range labels {
		if strings.HasPrefix(label, prefix) {
			return strings.TrimPrefix(label, prefix), true
		}
	}
	return "", false
}
