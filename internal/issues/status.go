package issues

import "strings"

var statusStates = map[string]State{
	"open":            StateTodo,
	"new":             StateTodo,
	"reopened":        StateTodo,
	"to do":           StateTodo,
	"backlog":         StateTodo,
	"in progress":     StateInProgress,
	"in review":       StateInProgress,
	"patch available": StateInProgress,
	"blocked":         StateBlocked,
	"on hold":         StateBlocked,
	"waiting":         StateBlocked,
	"resolved":        StateDone,
	"closed":          StateDone,
	"done":            StateDone,
	"canceled":        StateCanceled,
	"cancelled":       StateCanceled,
}

// Resolutions that close an issue without doing the work.
var abandonedResolutions = map[string]bool{
	"won't fix":        true,
	"wont fix":         true,
	"duplicate":        true,
	"invalid":          true,
	"incomplete":       true,
	"cannot reproduce": true,
	"won't do":         true,
}

var validStates = map[State]bool{
	StateTodo:       true,
	StateInProgress: true,
	StateBlocked:    true,
	StateDone:       true,
	StateCanceled:   true,
}

func IsValidState(s State) bool {
	return validStates[s]
}

// NormalizeStatus maps a tracker status name, and the resolution of a
// finished issue, onto a State. Unknown status names map to StateTodo.
func NormalizeStatus(status, resolution string) State {
	state, ok := statusStates[strings.ToLower(strings.TrimSpace(status))]
	if !ok {
		return StateTodo
	}
	if state == StateDone && abandonedResolutions[strings.ToLower(strings.TrimSpace(resolution))] {
		return StateCanceled
	}
	return state
}
