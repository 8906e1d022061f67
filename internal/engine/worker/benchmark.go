package worker

import (
	"context"

	"ctsuite/internal/engine/result"
	"ctsuite/internal/engine/spec"
)

// BenchmarkWorker stresses the candidate against generated inputs and
// judges purely on resource behavior: a test passes when the candidate
// finishes cleanly within its limits.
type BenchmarkWorker struct {
	base
}

func (w *BenchmarkWorker) Mode() spec.TestMode { return spec.ModeBenchmark }

func (w *BenchmarkWorker) RunTest(ctx context.Context, testIndex int) (result.TestVerdict, bool) {
	st, failed, ok := w.runPrelude(ctx, testIndex)
	if !ok {
		return result.TestVerdict{}, false
	}
	if failed != nil {
		return *failed, true
	}
	return st.verdict(testIndex, result.OutcomePassed, ""), true
}
