package main

import (
	"context"

	"go.uber.org/zap"

	"ctsuite/internal/engine/result"
	"ctsuite/pkg/utils/logger"
)

// consoleReporter logs run progress through the application logger.
type consoleReporter struct{}

func (consoleReporter) StatusChanged(ctx context.Context, runID string, status result.RunStatus) {
	logger.Info(ctx, "status changed",
		zap.String("run_id", runID),
		zap.String("status", string(status)),
	)
}

func (consoleReporter) TestStarted(ctx context.Context, runID string, testIndex int) {
	logger.Debug(ctx, "test started",
		zap.String("run_id", runID),
		zap.Int("test", testIndex),
	)
}

func (consoleReporter) TestCompleted(ctx context.Context, runID string, verdict result.TestVerdict) {
	logger.Info(ctx, "test completed",
		zap.String("run_id", runID),
		zap.Int("test", verdict.TestIndex),
		zap.String("outcome", string(verdict.Outcome)),
		zap.Int64("time_ms", verdict.Timings.CandidateMs),
		zap.Int64("memory_kb", verdict.PeakMemoryKB),
	)
}

func (consoleReporter) RunCompleted(ctx context.Context, summary result.RunSummary) {
	logger.Info(ctx, "run completed",
		zap.String("run_id", summary.RunID),
		zap.String("status", string(summary.Status)),
		zap.Int("requested", summary.Requested),
		zap.Int("completed", len(summary.Verdicts)),
		zap.Bool("passed", summary.OverallPassed),
	)
}
