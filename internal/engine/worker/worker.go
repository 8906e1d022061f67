// Package worker implements the per-test pipelines: generate an input,
// run the candidate under limits, then judge the output according to
// the test mode.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/zeromicro/go-zero/core/logx"

	"ctsuite/internal/engine/compiler"
	"ctsuite/internal/engine/executor"
	"ctsuite/internal/engine/result"
	"ctsuite/internal/engine/spec"
	"ctsuite/internal/engine/workspace"
	appErr "ctsuite/pkg/errors"
)

const (
	generatorTimeoutMs = 10_000
	judgeTimeoutMs     = 30_000

	// snapshotLimit caps input/output text carried in verdicts.
	snapshotLimit = 300
)

// Worker runs one test case end to end and classifies the outcome.
// Implementations are safe for concurrent RunTest calls. The bool
// return is false when the test was abandoned at a cancellation
// checkpoint before producing a verdict.
type Worker interface {
	Mode() spec.TestMode
	RunTest(ctx context.Context, testIndex int) (result.TestVerdict, bool)
}

// Deps carries everything a worker needs to run tests.
type Deps struct {
	Exec      executor.Executor
	Layout    workspace.Layout
	Artifacts map[spec.SourceRole]compiler.Artifact
	Limits    spec.ResourceLimit

	// Policy selects the output comparison strategy; comparison mode only.
	Policy ComparePolicy

	// Stopped is polled before every subprocess spawn; a true return
	// abandons the test without a verdict. Nil means never stopped.
	Stopped func() bool
}

// New creates the worker for a test mode.
func New(mode spec.TestMode, deps Deps) (Worker, error) {
	for _, role := range spec.RequiredRoles(mode) {
		if _, ok := deps.Artifacts[role]; !ok {
			return nil, appErr.Newf(appErr.RoleMissing, "mode %s requires a %s artifact", mode, role)
		}
	}
	b := base{deps: deps}
	switch mode {
	case spec.ModeBenchmark:
		return &BenchmarkWorker{base: b}, nil
	case spec.ModeComparison:
		if deps.Policy == "" {
			deps.Policy = PolicyTokens
		}
		return &ComparisonWorker{base: base{deps: deps}}, nil
	case spec.ModeValidation:
		return &ValidationWorker{base: b}, nil
	default:
		return nil, appErr.Newf(appErr.UnknownTestMode, "unknown test mode %q", mode)
	}
}

// base holds the generator and candidate stages shared by all modes.
type base struct {
	deps Deps
}

// stopped reports whether the run was cancelled; spawn checkpoints call
// this so a stop never interrupts a process already running.
func (b *base) stopped() bool {
	return b.deps.Stopped != nil && b.deps.Stopped()
}

// stageResult bundles one stage's execution with the pipeline state the
// judge stages need afterwards.
type stageResult struct {
	input   string
	output  string
	timings result.StageTimings
	peakKB  int64
}

// errVerdict builds a failed verdict from a pipeline error.
func errVerdict(testIndex int, outcome result.Outcome, st stageResult, diagnostic string) result.TestVerdict {
	st.timings.TotalMs = st.timings.GeneratorMs + st.timings.CandidateMs + st.timings.JudgeMs
	return result.TestVerdict{
		TestIndex:    testIndex,
		Outcome:      outcome,
		Input:        snapshot(st.input),
		Output:       snapshot(st.output),
		Diagnostic:   diagnostic,
		Timings:      st.timings,
		PeakMemoryKB: st.peakKB,
	}
}

// runPrelude executes the generator and candidate stages. It returns a
// non-nil verdict when the pipeline already failed; the judge stage of
// the caller runs only on a nil verdict. The bool return is false when
// a cancellation checkpoint abandoned the test.
func (b *base) runPrelude(ctx context.Context, testIndex int) (stageResult, *result.TestVerdict, bool) {
	var st stageResult

	if b.stopped() {
		return st, nil, false
	}
	gen := b.deps.Artifacts[spec.RoleGenerator]
	genCmd, err := gen.RunCommand(strconv.Itoa(testIndex))
	if err != nil {
		v := errVerdict(testIndex, result.OutcomeRuntimeError, st, err.Error())
		return st, &v, true
	}
	genRes, err := b.deps.Exec.Execute(ctx, spec.ExecSpec{
		Cmd:     genCmd,
		Env:     gen.Lang.Env,
		WorkDir: b.deps.Layout.ModeDir(),
		Limits:  spec.ResourceLimit{WallTimeMs: generatorTimeoutMs},
	})
	st.timings.GeneratorMs = genRes.WallTimeMs
	st.peakKB = genRes.PeakMemoryKB
	if err != nil {
		v := errVerdict(testIndex, result.OutcomeRuntimeError, st, err.Error())
		return st, &v, true
	}
	if genRes.ExitCode != 0 || genRes.TimedOut {
		diag := fmt.Sprintf("generator failed: %s", strings.TrimSpace(genRes.Stderr))
		v := errVerdict(testIndex, result.OutcomeRuntimeError, st, diag)
		return st, &v, true
	}
	st.input = genRes.Stdout

	if err := b.deps.Layout.WriteInput(testIndex, st.input); err != nil {
		logx.WithContext(ctx).Errorf("persist input %d failed: %v", testIndex, err)
	}

	if b.stopped() {
		return st, nil, false
	}
	cand := b.deps.Artifacts[spec.RoleCandidate]
	candCmd, err := cand.RunCommand()
	if err != nil {
		v := errVerdict(testIndex, result.OutcomeRuntimeError, st, err.Error())
		return st, &v, true
	}
	candRes, err := b.deps.Exec.Execute(ctx, spec.ExecSpec{
		Cmd:     candCmd,
		Env:     cand.Lang.Env,
		WorkDir: b.deps.Layout.ModeDir(),
		Stdin:   strings.NewReader(st.input),
		Limits:  b.deps.Limits,
	})
	st.timings.CandidateMs = candRes.WallTimeMs
	if candRes.PeakMemoryKB > st.peakKB {
		st.peakKB = candRes.PeakMemoryKB
	}
	if err != nil {
		v := errVerdict(testIndex, result.OutcomeRuntimeError, st, err.Error())
		return st, &v, true
	}
	st.output = candRes.Stdout

	if err := b.deps.Layout.WriteOutput(testIndex, st.output); err != nil {
		logx.WithContext(ctx).Errorf("persist output %d failed: %v", testIndex, err)
	}

	// Memory kills win over timeouts when a process trips both limits.
	switch {
	case candRes.MemExceeded:
		v := errVerdict(testIndex, result.OutcomeMemoryExceeded, st,
			fmt.Sprintf("memory limit of %d MB exceeded", b.deps.Limits.MemoryMB))
		return st, &v, true
	case candRes.TimedOut:
		v := errVerdict(testIndex, result.OutcomeTimedOut, st,
			fmt.Sprintf("wall time limit of %d ms exceeded", b.deps.Limits.WallTimeMs))
		return st, &v, true
	case candRes.ExitCode != 0:
		v := errVerdict(testIndex, result.OutcomeRuntimeError, st,
			fmt.Sprintf("candidate exited with code %d: %s", candRes.ExitCode, strings.TrimSpace(candRes.Stderr)))
		return st, &v, true
	}

	return st, nil, true
}

// verdict finalizes a successful pipeline into a verdict.
func (st stageResult) verdict(testIndex int, outcome result.Outcome, diagnostic string) result.TestVerdict {
	st.timings.TotalMs = st.timings.GeneratorMs + st.timings.CandidateMs + st.timings.JudgeMs
	return result.TestVerdict{
		TestIndex:    testIndex,
		Outcome:      outcome,
		Input:        snapshot(st.input),
		Output:       snapshot(st.output),
		Diagnostic:   diagnostic,
		Timings:      st.timings,
		PeakMemoryKB: st.peakKB,
	}
}

// snapshot trims and truncates text for display in verdicts.
func snapshot(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > snapshotLimit {
		return s[:snapshotLimit] + "..."
	}
	return s
}
