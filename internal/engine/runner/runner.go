// Package runner orchestrates a full test run: compile all sources,
// fan test cases out over a worker pool, aggregate verdicts and report
// progress.
package runner

import (
	"context"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/zeromicro/go-zero/core/logx"

	"ctsuite/internal/engine/compiler"
	"ctsuite/internal/engine/executor"
	"ctsuite/internal/engine/observer"
	"ctsuite/internal/engine/profile"
	"ctsuite/internal/engine/result"
	"ctsuite/internal/engine/spec"
	"ctsuite/internal/engine/worker"
	"ctsuite/internal/engine/workspace"
	appErr "ctsuite/pkg/errors"
)

// Request describes one test run.
type Request struct {
	Mode spec.TestMode

	// Sources maps each role to its source file path. Languages are
	// detected from extensions.
	Sources map[spec.SourceRole]string

	// TestCount is the number of test cases to run. Tests are numbered
	// 1..TestCount; the index names the input/output files and is the
	// seed handed to the generator.
	TestCount int

	Limits spec.ResourceLimit
	Policy worker.ComparePolicy

	// MaxWorkers bounds test-case parallelism; zero picks a default
	// from the CPU count.
	MaxWorkers int
}

// Runner drives test runs against one workspace. A Runner executes one
// run at a time; artifacts are cached across runs until sources change.
type Runner struct {
	exec          executor.Executor
	langs         *profile.Table
	workspaceRoot string
	reporter      observer.ProgressReporter
	sink          observer.SummarySink

	mu      sync.Mutex
	status  result.RunStatus
	stopped atomic.Bool

	compilers map[spec.TestMode]*compiler.Compiler
}

// Option customizes a Runner.
type Option func(*Runner)

// WithReporter installs a progress reporter.
func WithReporter(r observer.ProgressReporter) Option {
	return func(rn *Runner) {
		if r != nil {
			rn.reporter = r
		}
	}
}

// WithSummarySink installs a summary sink.
func WithSummarySink(s observer.SummarySink) Option {
	return func(rn *Runner) {
		if s != nil {
			rn.sink = s
		}
	}
}

// New creates a runner rooted at workspaceRoot.
func New(exec executor.Executor, langs *profile.Table, workspaceRoot string, opts ...Option) *Runner {
	r := &Runner{
		exec:          exec,
		langs:         langs,
		workspaceRoot: workspaceRoot,
		reporter:      observer.NopReporter{},
		sink:          observer.NopSink{},
		status:        result.StatusIdle,
		compilers:     make(map[spec.TestMode]*compiler.Compiler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Status returns the current run status.
func (r *Runner) Status() result.RunStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Stop requests cooperative cancellation of the in-flight run. The
// flag is honored before each task start and each subprocess spawn;
// tests already past their last checkpoint complete and report.
func (r *Runner) Stop() {
	r.stopped.Store(true)
}

// Run executes the request to completion and returns the summary. Only
// one run may be active at a time.
func (r *Runner) Run(ctx context.Context, req Request) (result.RunSummary, error) {
	if err := r.begin(); err != nil {
		return result.RunSummary{}, err
	}
	defer r.finish()

	runID := uuid.NewString()
	summary := result.RunSummary{
		RunID:     runID,
		Mode:      req.Mode,
		Requested: req.TestCount,
	}

	sources, err := r.resolveSources(req)
	if err != nil {
		return summary, err
	}
	if req.TestCount <= 0 {
		return summary, appErr.New(appErr.InvalidParams).WithMessage("test count must be positive")
	}

	layout := workspace.NewLayout(r.workspaceRoot, req.Mode)
	if err := layout.Ensure(); err != nil {
		return summary, err
	}

	r.setStatus(ctx, runID, result.StatusCompiling)
	logx.WithContext(ctx).Infof("run %s: compiling %d sources for mode %s", runID, len(sources), req.Mode)
	report, err := r.compilerFor(req.Mode, layout).CompileAll(ctx, sources)
	if err != nil {
		return summary, err
	}
	if r.stopped.Load() {
		summary.Status = result.StatusCancelled
		summary.Cancelled = true
		r.setStatus(ctx, runID, result.StatusCancelled)
		r.complete(ctx, &summary)
		return summary, nil
	}
	if !report.OK() {
		summary.Status = result.StatusCompileFailed
		summary.BuildError = joinFailures(report.Failures)
		r.setStatus(ctx, runID, result.StatusCompileFailed)
		r.complete(ctx, &summary)
		return summary, nil
	}

	wk, err := worker.New(req.Mode, worker.Deps{
		Exec:      r.exec,
		Layout:    layout,
		Artifacts: report.Artifacts,
		Limits:    req.Limits,
		Policy:    req.Policy,
		Stopped:   r.stopped.Load,
	})
	if err != nil {
		return summary, err
	}

	r.setStatus(ctx, runID, result.StatusRunning)
	r.runTests(ctx, runID, req, wk, &summary)

	if r.stopped.Load() {
		summary.Status = result.StatusCancelled
		summary.Cancelled = true
	} else {
		summary.Status = result.StatusCompleted
	}
	summary.Stats = aggregate(summary.Verdicts)
	summary.OverallPassed = overallPassed(summary)

	r.setStatus(ctx, runID, summary.Status)
	r.complete(ctx, &summary)
	return summary, nil
}

func (r *Runner) runTests(ctx context.Context, runID string, req Request, wk worker.Worker, summary *result.RunSummary) {
	slots := req.MaxWorkers
	if slots <= 0 {
		slots = defaultPoolSize()
	}
	sem := make(chan struct{}, slots)
	var wg sync.WaitGroup
	var mu sync.Mutex

	for i := 1; i <= req.TestCount; i++ {
		if r.stopped.Load() {
			break
		}
		wg.Add(1)
		go func(testIndex int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if r.stopped.Load() {
				return
			}
			r.reporter.TestStarted(ctx, runID, testIndex)
			verdict, ok := wk.RunTest(ctx, testIndex)
			if !ok {
				return
			}
			mu.Lock()
			summary.Verdicts = append(summary.Verdicts, verdict)
			mu.Unlock()
			r.reporter.TestCompleted(ctx, runID, verdict)
		}(i)
	}
	wg.Wait()
}

func (r *Runner) resolveSources(req Request) ([]compiler.SourceFile, error) {
	var sources []compiler.SourceFile
	for _, role := range spec.RequiredRoles(req.Mode) {
		path, ok := req.Sources[role]
		if !ok || path == "" {
			return nil, appErr.Newf(appErr.RoleMissing, "mode %s requires a %s source", req.Mode, role)
		}
		lang, err := r.langs.Detect(path)
		if err != nil {
			return nil, err
		}
		sources = append(sources, compiler.SourceFile{Role: role, Path: path, Lang: lang})
	}
	if len(sources) == 0 {
		return nil, appErr.Newf(appErr.UnknownTestMode, "unknown test mode %q", req.Mode)
	}
	return sources, nil
}

func (r *Runner) compilerFor(mode spec.TestMode, layout workspace.Layout) *compiler.Compiler {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.compilers[mode]; ok {
		return c
	}
	c := compiler.New(r.exec, layout)
	r.compilers[mode] = c
	return c
}

func (r *Runner) begin() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status != result.StatusIdle {
		return appErr.Newf(appErr.RunNotIdle, "a run is already active (status %s)", r.status)
	}
	r.status = result.StatusCompiling
	r.stopped.Store(false)
	return nil
}

func (r *Runner) finish() {
	r.mu.Lock()
	r.status = result.StatusIdle
	r.mu.Unlock()
}

func (r *Runner) setStatus(ctx context.Context, runID string, status result.RunStatus) {
	r.mu.Lock()
	r.status = status
	r.mu.Unlock()
	r.reporter.StatusChanged(ctx, runID, status)
}

func (r *Runner) complete(ctx context.Context, summary *result.RunSummary) {
	r.reporter.RunCompleted(ctx, *summary)
	if err := r.sink.Save(ctx, *summary); err != nil {
		logx.WithContext(ctx).Errorf("save run summary %s failed: %v", summary.RunID, err)
	}
}

func defaultPoolSize() int {
	n := runtime.NumCPU() - 1
	if n < 1 {
		n = 1
	}
	if n > 8 {
		n = 8
	}
	return n
}

func joinFailures(failures []compiler.Failure) string {
	var parts []string
	for _, f := range failures {
		msg := f.Stderr
		if msg == "" && f.Err != nil {
			msg = f.Err.Error()
		}
		parts = append(parts, string(f.Role)+": "+msg)
	}
	return strings.Join(parts, "\n")
}

func aggregate(verdicts []result.TestVerdict) result.SummaryStats {
	var stats result.SummaryStats
	if len(verdicts) == 0 {
		return stats
	}
	var totalMs int64
	for _, v := range verdicts {
		if v.Timings.CandidateMs > stats.MaxTimeMs {
			stats.MaxTimeMs = v.Timings.CandidateMs
		}
		if v.PeakMemoryKB > stats.MaxMemoryKB {
			stats.MaxMemoryKB = v.PeakMemoryKB
		}
		totalMs += v.Timings.CandidateMs
	}
	stats.AvgTimeMs = totalMs / int64(len(verdicts))
	return stats
}

func overallPassed(summary result.RunSummary) bool {
	if summary.Cancelled || len(summary.Verdicts) != summary.Requested {
		return false
	}
	for _, v := range summary.Verdicts {
		if !v.Passed() {
			return false
		}
	}
	return true
}
