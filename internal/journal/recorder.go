package journal

import (
	"context"
	"log/slog"
	"time"
)

const recordTimeout = 2 * time.Second

// RunRecorder stamps every entry with one run id.
type RunRecorder struct {
	store *Store
	runID string
}

// Recorder returns a recorder for runID.
func (s *Store) Recorder(runID string) *RunRecorder {
	return &RunRecorder{store: s, runID: runID}
}

// Record writes one action row. Journal failures are logged, never returned:
// the action itself has already happened.
func (r *RunRecorder) Record(action, detail string, err error) {
	if r == nil || r.store == nil {
		return
	}
	e := Entry{RunID: r.runID, Action: action, Detail: detail}
	if err != nil {
		e.Error = err.Error()
	}
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	if writeErr := r.store.Record(ctx, e); writeErr != nil {
		slog.Debug("[journal] failed to record action", "action", action, "error", writeErr)
	}
}
