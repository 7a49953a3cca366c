package store

import (
	"context"
	"time"

	"pricemirror/internal/loader"
)

// NoopRecorder is used when no run database is configured.
type NoopRecorder struct{}

var _ RunRecorder = NoopRecorder{}

func (NoopRecorder) RecordRun(_ context.Context, _ time.Time, _ loader.Result) (int64, error) {
	return 0, nil
}

func (NoopRecorder) Close() error { return nil }
