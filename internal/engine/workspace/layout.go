// Package workspace defines the on-disk layout of one testing session:
// mode directory, generated inputs/outputs and build artifacts.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"

	"ctsuite/internal/engine/spec"
	appErr "ctsuite/pkg/errors"
)

const (
	inputsSubdir  = "inputs"
	outputsSubdir = "outputs"
	buildSubdir   = "build"
	resultsSubdir = "results"
)

// Layout describes the filesystem layout for one test mode inside a
// workspace root. Each mode owns its own subtree so sessions of
// different modes never collide.
type Layout struct {
	Root string
	Mode spec.TestMode
}

// NewLayout creates a layout rooted at root for the given mode.
func NewLayout(root string, mode spec.TestMode) Layout {
	return Layout{Root: root, Mode: mode}
}

// ModeDir returns the directory owned by this mode.
func (l Layout) ModeDir() string {
	return filepath.Join(l.Root, string(l.Mode))
}

// InputPath returns the input file for one test index.
func (l Layout) InputPath(testIndex int) string {
	return filepath.Join(l.ModeDir(), inputsSubdir, fmt.Sprintf("input_%d.txt", testIndex))
}

// OutputPath returns the candidate output file for one test index.
func (l Layout) OutputPath(testIndex int) string {
	return filepath.Join(l.ModeDir(), outputsSubdir, fmt.Sprintf("output_%d.txt", testIndex))
}

// BuildDir returns the directory holding build artifacts for one role.
func (l Layout) BuildDir(role spec.SourceRole) string {
	return filepath.Join(l.ModeDir(), buildSubdir, string(role))
}

// BinaryPath returns the executable path for a native build of one role.
func (l Layout) BinaryPath(role spec.SourceRole) string {
	return filepath.Join(l.BuildDir(role), string(role))
}

// ClassDir returns the bytecode output directory for one role.
func (l Layout) ClassDir(role spec.SourceRole) string {
	return filepath.Join(l.BuildDir(role), "classes")
}

// ResultsDir returns the directory where run summaries are persisted.
func (l Layout) ResultsDir() string {
	return filepath.Join(l.ModeDir(), resultsSubdir)
}

// Ensure creates the mode directory tree.
func (l Layout) Ensure() error {
	for _, dir := range []string{
		l.ModeDir(),
		filepath.Join(l.ModeDir(), inputsSubdir),
		filepath.Join(l.ModeDir(), outputsSubdir),
		filepath.Join(l.ModeDir(), buildSubdir),
		l.ResultsDir(),
	} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return appErr.Wrapf(err, appErr.WorkspaceCreateFailed, "create workspace dir %s failed", dir)
		}
	}
	return nil
}

// WriteInput persists one test case's generated input.
func (l Layout) WriteInput(testIndex int, data string) error {
	if err := os.WriteFile(l.InputPath(testIndex), []byte(data), 0644); err != nil {
		return appErr.Wrapf(err, appErr.InputWriteFailed, "write input %d failed", testIndex)
	}
	return nil
}

// WriteOutput persists one test case's candidate output.
func (l Layout) WriteOutput(testIndex int, data string) error {
	if err := os.WriteFile(l.OutputPath(testIndex), []byte(data), 0644); err != nil {
		return appErr.Wrapf(err, appErr.OutputWriteFailed, "write output %d failed", testIndex)
	}
	return nil
}
