package migration

import (
	"testing"
)

func TestParseMarkers(t *testing.T) {
	desc := "Fix the export.\n\nLinked to GitHub issue: https://github.com/acme/widgets/issues/42\n" +
		"Linked to Gitea issue: https://git.acme.dev/acme/widgets/issues/7"

	markers := ParseMarkers(desc)
	if len(markers) != 2 {
		t.Fatalf("got %d markers, want 2", len(markers))
	}
	if markers[0].Provider != "github" || markers[0].Number != 42 {
		t.Fatalf("first marker = %+v", markers[0])
	}
	if markers[1].Provider != "gitea" || markers[1].Number != 7 {
		t.Fatalf("second marker = %+v", markers[1])
	}
	if markers[1].URL != "https://git.acme.dev/acme/widgets/issues/7" {
		t.Fatalf("url = %q", markers[1].URL)
	}
}

func TestParseMarkersIgnoresNonIssueURLs(t *testing.T) {
	if got := ParseMarkers("Linked to GitHub issue: https://github.com/acme/widgets/pull/9"); len(got) != 0 {
		t.Fatalf("pull url must not parse, got %+v", got)
	}
	if got := ParseMarkers("no markers here"); len(got) != 0 {
		t.Fatalf("plain text must not parse, got %+v", got)
	}
}

func TestParseMarkersTrimsTrailingPunctuation(t *testing.T) {
	markers := ParseMarkers("Linked to GitHub issue: https://github.com/acme/widgets/issues/3.")
	if len(markers) != 1 || markers[0].Number != 3 {
		t.Fatalf("got %+v", markers)
	}
}
