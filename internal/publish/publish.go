// Package publish defines the run-summary notification interface. A summary
// goes out once per completed run; consumers trigger map rebuilds from it.
package publish

import "context"

// Publisher delivers one payload to a named topic and returns a message id.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// RunSummary is the payload published after a monitor run.
type RunSummary struct {
	RunID      string `json:"run_id"`
	StartedAt  string `json:"started_at"`
	FinishedAt string `json:"finished_at"`
	Targets    int    `json:"targets"`
	Pages      int    `json:"pages"`
	Unchanged  int    `json:"unchanged"`
	Errors     int    `json:"errors"`
	Merged     int    `json:"merged"`
	Events     int    `json:"events"`
	DryRun     bool   `json:"dry_run"`
}
