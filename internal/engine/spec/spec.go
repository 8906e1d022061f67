// Package spec defines source roles, test modes, execution specifications
// and resource limits shared across the engine.
package spec

import "io"

// SourceRole identifies the purpose of a user-authored source file.
type SourceRole string

const (
	RoleGenerator SourceRole = "generator"
	RoleCandidate SourceRole = "candidate"
	RoleReference SourceRole = "reference"
	RoleValidator SourceRole = "validator"
)

// TestMode selects the per-test pipeline. Mode names double as workspace
// subdirectory names.
type TestMode string

const (
	ModeBenchmark  TestMode = "benchmarker"
	ModeComparison TestMode = "comparator"
	ModeValidation TestMode = "validator"
)

// RequiredRoles returns the source roles a mode needs to run.
func RequiredRoles(mode TestMode) []SourceRole {
	switch mode {
	case ModeBenchmark:
		return []SourceRole{RoleGenerator, RoleCandidate}
	case ModeComparison:
		return []SourceRole{RoleGenerator, RoleCandidate, RoleReference}
	case ModeValidation:
		return []SourceRole{RoleGenerator, RoleCandidate, RoleValidator}
	default:
		return nil
	}
}

// ResourceLimit describes limits enforced on one subprocess.
// Zero values mean unlimited.
type ResourceLimit struct {
	WallTimeMs int64
	MemoryMB   int64
}

// ExecSpec is the unified execution specification for one subprocess spawn.
// It is constructed fresh per spawn and never reused.
type ExecSpec struct {
	Cmd     []string
	WorkDir string
	Env     []string

	// Stdin takes precedence over StdinPath when both are set.
	Stdin     io.Reader
	StdinPath string

	// StdoutPath redirects stdout to a file; when empty stdout is captured
	// in memory. Stderr is always captured.
	StdoutPath string

	Limits ResourceLimit
}
