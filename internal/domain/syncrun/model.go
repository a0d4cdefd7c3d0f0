package syncrun

import (
	"fmt"
	"strings"
	"time"
)

const (
	StatusCompleted = "completed"
	StatusNoop      = "noop"
	StatusFailed    = "failed"
)

// Run is the bookkeeping record of one sync invocation.
type Run struct {
	ID            string
	Status        string
	TablesUpdated []string
	Detail        string
	StartedAt     time.Time
	FinishedAt    time.Time
}

func (r Run) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("sync run id is required")
	}
	switch r.Status {
	case StatusCompleted, StatusNoop, StatusFailed:
	default:
		return fmt.Errorf("invalid sync run status %q", r.Status)
	}
	if r.StartedAt.IsZero() {
		return fmt.Errorf("sync run started_at is required")
	}
	return nil
}
