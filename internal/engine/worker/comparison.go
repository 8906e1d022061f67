package worker

import (
	"context"
	"fmt"
	"strings"

	"ctsuite/internal/engine/result"
	"ctsuite/internal/engine/spec"
)

// ComparePolicy selects how candidate and reference outputs are matched.
type ComparePolicy string

const (
	// PolicyTokens compares whitespace-delimited tokens, ignoring line
	// breaks and spacing differences.
	PolicyTokens ComparePolicy = "tokens"
	// PolicyExact compares the outputs byte for byte after trimming
	// leading and trailing whitespace.
	PolicyExact ComparePolicy = "exact"
)

// ComparisonWorker runs the candidate and a trusted reference solution
// on the same generated input and compares their outputs.
type ComparisonWorker struct {
	base
}

func (w *ComparisonWorker) Mode() spec.TestMode { return spec.ModeComparison }

func (w *ComparisonWorker) RunTest(ctx context.Context, testIndex int) (result.TestVerdict, bool) {
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
	ref := w.deps.Artifacts[spec.RoleReference]
	refCmd, err := ref.RunCommand()
	if err != nil {
		return st.verdict(testIndex, result.OutcomeRuntimeError, err.Error()), true
	}
	refRes, err := w.deps.Exec.Execute(ctx, spec.ExecSpec{
		Cmd:     refCmd,
		Env:     ref.Lang.Env,
		WorkDir: w.deps.Layout.ModeDir(),
		Stdin:   strings.NewReader(st.input),
		Limits:  spec.ResourceLimit{WallTimeMs: judgeTimeoutMs},
	})
	st.timings.JudgeMs = refRes.WallTimeMs
	if refRes.PeakMemoryKB > st.peakKB {
		st.peakKB = refRes.PeakMemoryKB
	}
	if err != nil {
		return st.verdict(testIndex, result.OutcomeRuntimeError, err.Error()), true
	}
	if refRes.ExitCode != 0 || refRes.TimedOut {
		diag := fmt.Sprintf("reference solution failed: %s", strings.TrimSpace(refRes.Stderr))
		return st.verdict(testIndex, result.OutcomeRuntimeError, diag), true
	}

	match, diag := compareOutputs(w.deps.Policy, st.output, refRes.Stdout)
	if !match {
		return st.verdict(testIndex, result.OutcomeFailed, diag), true
	}
	return st.verdict(testIndex, result.OutcomePassed, ""), true
}

// compareOutputs matches got against want under the given policy and
// returns a first-difference diagnostic on mismatch.
func compareOutputs(policy ComparePolicy, got, want string) (bool, string) {
	if policy == PolicyExact {
		if strings.TrimSpace(got) == strings.TrimSpace(want) {
			return true, ""
		}
		return false, "outputs differ"
	}

	gotTok := strings.Fields(got)
	wantTok := strings.Fields(want)
	n := len(gotTok)
	if len(wantTok) < n {
		n = len(wantTok)
	}
	for i := 0; i < n; i++ {
		if gotTok[i] != wantTok[i] {
			return false, fmt.Sprintf("token %d differs: got %q, want %q", i+1, gotTok[i], wantTok[i])
		}
	}
	if len(gotTok) != len(wantTok) {
		return false, fmt.Sprintf("expected %d tokens, got %d", len(wantTok), len(gotTok))
	}
	return true, ""
}
