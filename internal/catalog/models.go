package catalog

import "time"

// Status represents the lifecycle of a recorded run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Run is one processing invocation. Outputs carries the number of exported
// files recorded so far.
type Run struct {
	ID           string
	Label        string
	Reference    string
	Status       Status
	Warnings     int
	ErrorMessage string
	StartedAt    time.Time
	FinishedAt   *time.Time
	Outputs      int
}

// Duration returns the run's wall time, measured up to now while the run is
// still in flight.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt != nil {
		return r.FinishedAt.Sub(r.StartedAt)
	}
	return time.Since(r.StartedAt)
}

// Output records one exported file produced by a run. Rows counts the data
// rows written, excluding any header.
type Output struct {
	ID        int64
	RunID     string
	Dataset   string
	Snapshot  string
	Path      string
	Rows      int
	CreatedAt time.Time
}
