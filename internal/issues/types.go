package issues

import (
	"time"

	"github.com/satyaki-up/issuefeed/internal/feed"
)

type State string

const (
	StateTodo       State = "todo"
	StateInProgress State = "in_progress"
	StateBlocked    State = "blocked"
	StateDone       State = "done"
	StateCanceled   State = "canceled"
)

// Issue is a feed issue as stored, with the normalized workflow state.
type Issue struct {
	feed.Issue
	State       State      `json:"state"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
	ImportRunID string     `json:"import_run_id,omitempty"`
	ImportedAt  time.Time  `json:"imported_at"`
}

type ImportStats struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Errors  int `json:"errors"`
}

// ImportRun describes one call to Service.Import.
type ImportRun struct {
	ID        string      `json:"id"`
	Source    string      `json:"source"`
	StartedAt time.Time   `json:"started_at"`
	Stats     ImportStats `json:"stats"`
}
