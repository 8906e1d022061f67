// Package observer defines hooks through which the engine reports
// progress without binding to any particular frontend.
package observer

import (
	"context"

	"ctsuite/internal/engine/result"
)

// ProgressReporter receives lifecycle events for one run. Callbacks may
// fire from multiple goroutines concurrently; implementations must be
// safe for that.
type ProgressReporter interface {
	StatusChanged(ctx context.Context, runID string, status result.RunStatus)
	TestStarted(ctx context.Context, runID string, testIndex int)
	TestCompleted(ctx context.Context, runID string, verdict result.TestVerdict)
	RunCompleted(ctx context.Context, summary result.RunSummary)
}

// NopReporter discards all events.
type NopReporter struct{}

func (NopReporter) StatusChanged(context.Context, string, result.RunStatus) {}

func (NopReporter) TestStarted(context.Context, string, int) {}

func (NopReporter) TestCompleted(context.Context, string, result.TestVerdict) {}

func (NopReporter) RunCompleted(context.Context, result.RunSummary) {}

// SummarySink persists completed run summaries.
type SummarySink interface {
	Save(ctx context.Context, summary result.RunSummary) error
}

// NopSink discards summaries.
type NopSink struct{}

func (NopSink) Save(context.Context, result.RunSummary) error { return nil }
