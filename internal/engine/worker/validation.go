package worker

import (
	"context"
	"fmt"
	"strings"

	"ctsuite/internal/engine/result"
	"ctsuite/internal/engine/spec"
)

// Validator exit codes. The validator receives the input and output
// file paths as arguments and reports its judgement through the exit
// code; anything else is a validator malfunction.
const (
	validatorAccepted     = 0
	validatorWrongAnswer  = 1
	validatorPresentation = 2
)

// ValidationWorker judges candidate output with a user-supplied
// validator program.
type ValidationWorker struct {
	base
}

func (w *ValidationWorker) Mode() spec.TestMode { return spec.ModeValidation }

func (w *ValidationWorker) RunTest(ctx context.Context, testIndex int) (result.TestVerdict, bool) {
	st, failed, ok := w.runPrelude(ctx, testIndex)
	if !ok {
		return result.TestVerdict{}, false
	}
	if failed != nil {
		return *failed, true
	}

	if w.stopped() {
		return result.TestVerdict{}, false
	}
	val := w.deps.Artifacts[spec.RoleValidator]
	valCmd, err := val.RunCommand(
		w.deps.Layout.InputPath(testIndex),
		w.deps.Layout.OutputPath(testIndex),
	)
	if err != nil {
		return st.verdict(testIndex, result.OutcomeValidatorError, err.Error()), true
	}
	valRes, err := w.deps.Exec.Execute(ctx, spec.ExecSpec{
		Cmd:     valCmd,
		Env:     val.Lang.Env,
		WorkDir: w.deps.Layout.ModeDir(),
		Limits:  spec.ResourceLimit{WallTimeMs: judgeTimeoutMs},
	})
	st.timings.JudgeMs = valRes.WallTimeMs
	if valRes.PeakMemoryKB > st.peakKB {
		st.peakKB = valRes.PeakMemoryKB
	}
	if err != nil {
		return st.verdict(testIndex, result.OutcomeValidatorError, err.Error()), true
	}
	if valRes.TimedOut {
		return st.verdict(testIndex, result.OutcomeValidatorError, "validator timed out"), true
	}

	switch valRes.ExitCode {
	case validatorAccepted:
		return st.verdict(testIndex, result.OutcomePassed, ""), true
	case validatorWrongAnswer:
		diag := firstNonEmpty(strings.TrimSpace(valRes.Stdout), strings.TrimSpace(valRes.Stderr), "output rejected by validator")
		return st.verdict(testIndex, result.OutcomeFailed, diag), true
	case validatorPresentation:
		diag := firstNonEmpty(strings.TrimSpace(valRes.Stdout), strings.TrimSpace(valRes.Stderr), "output formatting rejected by validator")
		return st.verdict(testIndex, result.OutcomeFailed, "presentation error: "+diag), true
	default:
		diag := fmt.Sprintf("validator exited with unexpected code %d: %s", valRes.ExitCode, strings.TrimSpace(valRes.Stderr))
		return st.verdict(testIndex, result.OutcomeValidatorError, diag), true
	}
}

func firstNonEmpty(candidates ...string) string {
	for _, c := range candidates {
		if c != "" {
			return c
		}
	}
	return ""
}
