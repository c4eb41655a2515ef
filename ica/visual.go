package ica

import (
	"ica/config"
	"ica/objective"
	"ica/snapshot"
)

// NewVisual constructs an Engine wired to a fresh snapshot.Recorder
// sink (spec §4.2). The returned *snapshot.Recorder is also returned
// separately so callers can read its History field after Run without a
// type assertion on Sink.
func NewVisual(params config.Hyperparameters, obj objective.Func, seed int64) (*Engine, *snapshot.Recorder, error) {
	e, err := New(params, obj, seed)
	if err != nil {
		return nil, nil, err
	}
	rec := snapshot.NewRecorder(seed)
	e.SetSink(rec)
	return e, rec, nil
}
