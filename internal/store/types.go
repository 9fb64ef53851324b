package store

import "time"

// Operation statuses.
const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Operation is a journal entry for one dispatched install, uninstall or update.
type Operation struct {
	ID         string
	Kind       string
	AppID      string
	Scope      string
	Command    string
	StartedAt  time.Time
	FinishedAt time.Time // zero while running
	Status     string
	Error      string
}

// Duration returns how long the operation ran, or zero if it has not finished.
func (o *Operation) Duration() time.Duration {
	if o.FinishedAt.IsZero() {
		return 0
	}
	return o.FinishedAt.Sub(o.StartedAt)
}
