package history

import (
	"context"

	"github.com/AaronHausheer/liftoff/internal/model"
)

// Recorder adapts a Store to the pipeline's observer contract: each
// finished run is saved, intermediate notifications are ignored.
type Recorder struct {
	store *Store
}

// NewRecorder returns a Recorder writing to store.
func NewRecorder(store *Store) *Recorder {
	return &Recorder{store: store}
}

// RunStarted is a no-op; only completed runs are recorded.
func (r *Recorder) RunStarted(ctx context.Context, rec *model.RunRecord) error {
	return nil
}

// PhaseFinished is a no-op; phase results arrive with the final record.
func (r *Recorder) PhaseFinished(ctx context.Context, rec *model.RunRecord, res model.PhaseResult) error {
	return nil
}

// RunFinished persists the completed run.
func (r *Recorder) RunFinished(ctx context.Context, rec *model.RunRecord) error {
	return r.store.Save(ctx, rec)
}
