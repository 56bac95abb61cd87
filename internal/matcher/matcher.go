// Package matcher resolves a task number from a branch name, PR title, or
// PR body. Resolution is pure: no matching input means the event simply does
// not concern any task.
package matcher

import (
	"regexp"
	"strconv"
	"strings"
)

// MatchConfig carries the per-integration branch naming settings.
type MatchConfig struct {
	// BranchPattern supports the {slug}, {number} and {title} tokens, e.g.
	// "{slug}-{number}".
	BranchPattern string
	// CustomBranchRegex overrides BranchPattern entirely; the task number
	// must be in capture group 1.
	CustomBranchRegex string
}

// PR title patterns, tried in order.
var titlePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\[#?(\d+)\]`),
	regexp.MustCompile(`\(#?(\d+)\)`),
	regexp.MustCompile(`#(\d+)`),
	regexp.MustCompile(`^(\d+)[\s:\-]`),
	regexp.MustCompile(`(?i)task[:\s#]+(\d+)`),
}

// PR body patterns: "task/closes/fixes/resolves #N".
var bodyPattern = regexp.MustCompile(`(?i)(?:task|closes|fixes|resolves)\s*:?\s*#(\d+)`)

// Resolve tries, in order: branch name against the configured pattern, PR
// title against the fixed pattern list, PR body against the closing-keyword
// patterns. The first hit wins. A false result is not an error; most
// branches and PRs are unrelated to any task.
func Resolve(cfg MatchConfig, branch, prTitle, prBody string) (int, bool) {
	if n, ok := MatchBranch(cfg, branch); ok {
		return n, true
	}
	if n, ok := MatchTitle(prTitle); ok {
		return n, true
	}
	return MatchBody(prBody)
}

// MatchBranch extracts a task number from a branch name.
func MatchBranch(cfg MatchConfig, branch string) (int, bool) {
	if branch == "" {
		return 0, false
	}
	if cfg.CustomBranchRegex != "" {
		re, err := regexp.Compile(cfg.CustomBranchRegex)
		if err != nil {
			// A broken custom regex disables branch matching rather than
			// failing the whole event.
			return 0, false
		}
		return firstGroupNumber(re, branch)
	}
	pattern := cfg.BranchPattern
	if pattern == "" {
		pattern = "{slug}-{number}"
	}
	re, err := compileBranchPattern(pattern)
	if err != nil {
		return 0, false
	}
	return firstGroupNumber(re, branch)
}

// MatchTitle extracts a task number from a PR title.
func MatchTitle(title string) (int, bool) {
	if title == "" {
		return 0, false
	}
	for _, re := range titlePatterns {
		if n, ok := firstGroupNumber(re, title); ok {
			return n, true
		}
	}
	return 0, false
}

// MatchBody extracts a task number from a PR body.
func MatchBody(body string) (int, bool) {
	if body == "" {
		return 0, false
	}
	return firstGroupNumber(bodyPattern, body)
}

// compileBranchPattern turns a token pattern into a regexp. {number} becomes
// the capture group holding the task number; {slug} and {title} match any
// run of branch-safe characters.
func compileBranchPattern(pattern string) (*regexp.Regexp, error) {
	var sb strings.Builder
	sb.WriteString("^")
	rest := pattern
	for len(rest) > 0 {
		idx := strings.IndexByte(rest, '{')
		if idx < 0 {
			sb.WriteString(regexp.QuoteMeta(rest))
			break
		}
		sb.WriteString(regexp.QuoteMeta(rest[:idx]))
		rest = rest[idx:]
		switch {
		case strings.HasPrefix(rest, "{number}"):
			sb.WriteString(`(\d+)`)
			rest = rest[len("{number}"):]
		case strings.HasPrefix(rest, "{slug}"):
			sb.WriteString(`[A-Za-z0-9._\-]+?`)
			rest = rest[len("{slug}"):]
		case strings.HasPrefix(rest, "{title}"):
			sb.WriteString(`[A-Za-z0-9._\-]+?`)
			rest = rest[len("{title}"):]
		default:
			sb.WriteString(regexp.QuoteMeta("{"))
			rest = rest[1:]
		}
	}
	sb.WriteString("$")
	return regexp.Compile(sb.String())
}

func firstGroupNumber(re *regexp.Regexp, s string) (int, bool) {
	m := re.FindStringSubmatch(s)
	if len(m) < 2 {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
