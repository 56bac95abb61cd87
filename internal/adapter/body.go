package adapter

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/kaneo-dev/kaneo-sync/models"
)

// Hidden HTML-comment markers carried in remote bodies. Issue bodies embed
// the originating task id; outbound comment bodies embed the local comment
// id so the provider's echo webhook is recognizable.
var (
	taskMarkerRe    = regexp.MustCompile(`\n?<!-- kaneo-task: ([A-Za-z0-9\-]+) -->\s*$`)
	commentMarkerRe = regexp.MustCompile(`\n?<!-- kaneo-comment: ([A-Za-z0-9\-]+) -->\s*$`)
)

// RenderIssueBody produces the remote issue body for a task: the task's
// description followed by the hidden task marker. Rendering is stable, so
// pushing the same description twice yields a byte-identical body.
func RenderIssueBody(task *models.Task) string {
	body := StripMarkers(task.Description)
	if body != "" {
		body += "\n"
	}
	return body + fmt.Sprintf("<!-- kaneo-task: %s -->", task.ID)
}

// RenderCommentBody produces the remote comment body for a local comment.
func RenderCommentBody(comment *models.EventComment) string {
	body := comment.Content
	if comment.Author != "" {
		body = fmt.Sprintf("**%s** commented:\n\n%s", comment.Author, comment.Content)
	}
	return body + fmt.Sprintf("\n<!-- kaneo-comment: %s -->", comment.ID)
}

// StripMarkers removes any trailing hidden markers from a remote body,
// yielding the description text to store locally.
func StripMarkers(body string) string {
	body = taskMarkerRe.ReplaceAllString(body, "")
	body = commentMarkerRe.ReplaceAllString(body, "")
	return strings.TrimRight(body, "\n")
}

// OwnComment reports whether a remote comment body carries the hidden
// comment marker, meaning this engine posted it.
func OwnComment(body string) bool {
	return commentMarkerRe.MatchString(body)
}

// TaskIDFromBody extracts the task id from an issue body's hidden marker.
// A hit means this engine created the issue.
func TaskIDFromBody(body string) (string, bool) {
	m := taskMarkerRe.FindStringSubmatch(body)
	if len(m) < 2 {
		return "", false
	}
	return m[1], true
}
