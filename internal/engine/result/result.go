// Package result defines execution results, per-test verdicts and the
// run summary aggregated by the runner.
package result

import "ctsuite/internal/engine/spec"

// RunStatus represents the lifecycle state of a test run.
type RunStatus string

const (
	StatusIdle          RunStatus = "Idle"
	StatusCompiling     RunStatus = "Compiling"
	StatusRunning       RunStatus = "Running"
	StatusCompleted     RunStatus = "Completed"
	StatusCancelled     RunStatus = "Cancelled"
	StatusCompileFailed RunStatus = "CompileFailed"
)

// Outcome classifies one test case.
type Outcome string

const (
	OutcomePassed         Outcome = "Passed"
	OutcomeFailed         Outcome = "Failed"
	OutcomeTimedOut       Outcome = "TimedOut"
	OutcomeMemoryExceeded Outcome = "MemoryExceeded"
	OutcomeRuntimeError   Outcome = "RuntimeError"
	OutcomeValidatorError Outcome = "ValidatorError"
)

// ExecutionResult captures one subprocess execution. Non-zero exit,
// timeout and memory kill are all recorded here, never raised as errors.
type ExecutionResult struct {
	ExitCode     int
	Stdout       string
	Stderr       string
	WallTimeMs   int64
	PeakMemoryKB int64
	TimedOut     bool
	MemExceeded  bool
}

// StageTimings records per-stage wall times for one test case.
type StageTimings struct {
	GeneratorMs int64 `json:"generator_ms"`
	CandidateMs int64 `json:"candidate_ms"`
	JudgeMs     int64 `json:"judge_ms"`
	TotalMs     int64 `json:"total_ms"`
}

// TestVerdict is the classified outcome of a single test case.
// Created once by a test worker and never mutated afterwards.
type TestVerdict struct {
	TestIndex    int          `json:"test_index"`
	Outcome      Outcome      `json:"outcome"`
	Input        string       `json:"input"`
	Output       string       `json:"output"`
	Diagnostic   string       `json:"diagnostic,omitempty"`
	Timings      StageTimings `json:"timings"`
	PeakMemoryKB int64        `json:"peak_memory_kb"`
}

// Passed reports whether the verdict counts toward an overall pass.
func (v TestVerdict) Passed() bool {
	return v.Outcome == OutcomePassed
}

// SummaryStats captures aggregate statistics across test cases,
// primarily useful for benchmark runs.
type SummaryStats struct {
	MaxTimeMs   int64 `json:"max_time_ms"`
	AvgTimeMs   int64 `json:"avg_time_ms"`
	MaxMemoryKB int64 `json:"max_memory_kb"`
}

// RunSummary is the final report of one test run. Verdicts are ordered
// by completion time; consumers wanting submission order re-sort by
// TestIndex.
type RunSummary struct {
	RunID         string        `json:"run_id"`
	Mode          spec.TestMode `json:"mode"`
	Status        RunStatus     `json:"status"`
	Requested     int           `json:"requested"`
	Verdicts      []TestVerdict `json:"verdicts"`
	Cancelled     bool          `json:"cancelled"`
	OverallPassed bool          `json:"overall_passed"`
	BuildError    string        `json:"build_error,omitempty"`
	Stats         SummaryStats  `json:"stats"`
}
