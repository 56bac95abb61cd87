package adapter

import (
	"github.com/kaneo-dev/kaneo-sync/models"
)

// GitActivity is the kind of repository activity driving a status
// transition.
type GitActivity int

const (
	ActivityBranchPush GitActivity = iota
	ActivityPROpen
	ActivityPRMerge
)

// NextStatus decides whether repository activity moves a task and to where.
// Push and PR-open events never touch a task already in a terminal status;
// a merge may move a terminal task, but only forward on the board.
func NextStatus(current string, transitions models.StatusTransitions, activity GitActivity) (string, bool) {
	var target string
	switch activity {
	case ActivityBranchPush:
		target = transitions.OnBranchPush
	case ActivityPROpen:
		target = transitions.OnPROpen
	case ActivityPRMerge:
		target = transitions.OnPRMerge
	}
	if target == "" || target == current {
		return "", false
	}

	if activity == ActivityPRMerge {
		if models.StatusRank(target) > models.StatusRank(current) {
			return target, true
		}
		return "", false
	}

	if models.IsTerminalStatus(current) {
		return "", false
	}
	return target, true
}
