package compiler_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"ctsuite/internal/engine/compiler"
	"ctsuite/internal/engine/profile"
	"ctsuite/internal/engine/result"
	"ctsuite/internal/engine/spec"
	"ctsuite/internal/engine/workspace"
	pkgerrors "ctsuite/pkg/errors"
)

// fakeExecutor records compile invocations and materializes the output
// file named after -o, mimicking a compiler.
type fakeExecutor struct {
	mu    sync.Mutex
	calls []spec.ExecSpec

	failFor  map[string]string // source path -> stderr
	skipEmit bool
}

func (f *fakeExecutor) Execute(_ context.Context, es spec.ExecSpec) (result.ExecutionResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, es)
	f.mu.Unlock()

	var src, out string
	for i, arg := range es.Cmd {
		if arg == "-o" && i+1 < len(es.Cmd) {
			out = es.Cmd[i+1]
		}
		if filepath.Ext(arg) == ".src" {
			src = arg
		}
	}
	if stderr, ok := f.failFor[src]; ok {
		return result.ExecutionResult{ExitCode: 1, Stderr: stderr}, nil
	}
	if out != "" && !f.skipEmit {
		if err := os.WriteFile(out, []byte("bin"), 0755); err != nil {
			return result.ExecutionResult{}, err
		}
	}
	return result.ExecutionResult{ExitCode: 0}, nil
}

func (f *fakeExecutor) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

var fakeLang = profile.LanguageSpec{
	ID:            "fake",
	Kind:          profile.KindNative,
	Extensions:    []string{".src"},
	CompileCmdTpl: "fakecc {src} -o {bin}",
	RunCmdTpl:     "{bin}",
}

func writeSource(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("source"), 0644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	return path
}

func newLayout(t *testing.T) workspace.Layout {
	t.Helper()
	layout := workspace.NewLayout(t.TempDir(), spec.ModeBenchmark)
	if err := layout.Ensure(); err != nil {
		t.Fatalf("ensure layout: %v", err)
	}
	return layout
}

func TestCompileAllProducesArtifacts(t *testing.T) {
	dir := t.TempDir()
	exec := &fakeExecutor{}
	c := compiler.New(exec, newLayout(t))

	sources := []compiler.SourceFile{
		{Role: spec.RoleGenerator, Path: writeSource(t, dir, "gen.src"), Lang: fakeLang},
		{Role: spec.RoleCandidate, Path: writeSource(t, dir, "cand.src"), Lang: fakeLang},
	}
	report, err := c.CompileAll(context.Background(), sources)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if !report.OK() {
		t.Fatalf("expected OK report, failures: %+v", report.Failures)
	}
	if len(report.Artifacts) != 2 {
		t.Fatalf("expected 2 artifacts, got %d", len(report.Artifacts))
	}
	art := report.Artifacts[spec.RoleCandidate]
	if art.Kind != compiler.ArtifactExecutable {
		t.Fatalf("expected executable artifact, got %s", art.Kind)
	}
	if _, err := os.Stat(art.Path); err != nil {
		t.Fatalf("artifact file missing: %v", err)
	}
}

func TestCompileAllCacheHit(t *testing.T) {
	dir := t.TempDir()
	exec := &fakeExecutor{}
	c := compiler.New(exec, newLayout(t))

	sources := []compiler.SourceFile{
		{Role: spec.RoleCandidate, Path: writeSource(t, dir, "cand.src"), Lang: fakeLang},
	}
	if _, err := c.CompileAll(context.Background(), sources); err != nil {
		t.Fatalf("first compile: %v", err)
	}
	if _, err := c.CompileAll(context.Background(), sources); err != nil {
		t.Fatalf("second compile: %v", err)
	}
	if exec.callCount() != 1 {
		t.Fatalf("expected 1 compiler invocation, got %d", exec.callCount())
	}
}

func TestCompileAllRebuildsOnMtimeChange(t *testing.T) {
	dir := t.TempDir()
	exec := &fakeExecutor{}
	c := compiler.New(exec, newLayout(t))

	srcPath := writeSource(t, dir, "cand.src")
	sources := []compiler.SourceFile{{Role: spec.RoleCandidate, Path: srcPath, Lang: fakeLang}}

	if _, err := c.CompileAll(context.Background(), sources); err != nil {
		t.Fatalf("first compile: %v", err)
	}

	// Any mtime difference counts as stale, older included.
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(srcPath, past, past); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	if _, err := c.CompileAll(context.Background(), sources); err != nil {
		t.Fatalf("second compile: %v", err)
	}
	if exec.callCount() != 2 {
		t.Fatalf("expected rebuild after mtime change, invocations=%d", exec.callCount())
	}
}

func TestCompileAllMtimeChangeLeavesSiblingsCached(t *testing.T) {
	dir := t.TempDir()
	exec := &fakeExecutor{}
	c := compiler.New(exec, newLayout(t))

	genPath := writeSource(t, dir, "gen.src")
	candPath := writeSource(t, dir, "cand.src")
	sources := []compiler.SourceFile{
		{Role: spec.RoleGenerator, Path: genPath, Lang: fakeLang},
		{Role: spec.RoleCandidate, Path: candPath, Lang: fakeLang},
	}

	if _, err := c.CompileAll(context.Background(), sources); err != nil {
		t.Fatalf("first compile: %v", err)
	}

	// Only the touched role becomes stale.
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(candPath, past, past); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	if _, err := c.CompileAll(context.Background(), sources); err != nil {
		t.Fatalf("second compile: %v", err)
	}
	if exec.callCount() != 3 {
		t.Fatalf("expected exactly one rebuild, invocations=%d", exec.callCount())
	}
	exec.mu.Lock()
	last := exec.calls[len(exec.calls)-1]
	exec.mu.Unlock()
	rebuilt := ""
	for _, arg := range last.Cmd {
		if filepath.Ext(arg) == ".src" {
			rebuilt = arg
		}
	}
	if rebuilt != candPath {
		t.Fatalf("expected the touched candidate to rebuild, got %q", rebuilt)
	}
}

func TestCompileAllRebuildsWhenArtifactRemoved(t *testing.T) {
	dir := t.TempDir()
	exec := &fakeExecutor{}
	c := compiler.New(exec, newLayout(t))

	sources := []compiler.SourceFile{
		{Role: spec.RoleCandidate, Path: writeSource(t, dir, "cand.src"), Lang: fakeLang},
	}
	report, err := c.CompileAll(context.Background(), sources)
	if err != nil {
		t.Fatalf("first compile: %v", err)
	}
	if err := os.Remove(report.Artifacts[spec.RoleCandidate].Path); err != nil {
		t.Fatalf("remove artifact: %v", err)
	}
	if _, err := c.CompileAll(context.Background(), sources); err != nil {
		t.Fatalf("second compile: %v", err)
	}
	if exec.callCount() != 2 {
		t.Fatalf("expected rebuild after artifact removal, invocations=%d", exec.callCount())
	}
}

func TestCompileAllInvalidate(t *testing.T) {
	dir := t.TempDir()
	exec := &fakeExecutor{}
	c := compiler.New(exec, newLayout(t))

	sources := []compiler.SourceFile{
		{Role: spec.RoleCandidate, Path: writeSource(t, dir, "cand.src"), Lang: fakeLang},
	}
	if _, err := c.CompileAll(context.Background(), sources); err != nil {
		t.Fatalf("first compile: %v", err)
	}
	c.Invalidate(spec.RoleCandidate)
	if _, err := c.CompileAll(context.Background(), sources); err != nil {
		t.Fatalf("second compile: %v", err)
	}
	if exec.callCount() != 2 {
		t.Fatalf("expected rebuild after invalidation, invocations=%d", exec.callCount())
	}
}

func TestCompileAllFailureIsolation(t *testing.T) {
	dir := t.TempDir()
	goodPath := writeSource(t, dir, "gen.src")
	badPath := writeSource(t, dir, "cand.src")

	exec := &fakeExecutor{failFor: map[string]string{badPath: "cand.src:1: syntax error"}}
	c := compiler.New(exec, newLayout(t))

	report, err := c.CompileAll(context.Background(), []compiler.SourceFile{
		{Role: spec.RoleGenerator, Path: goodPath, Lang: fakeLang},
		{Role: spec.RoleCandidate, Path: badPath, Lang: fakeLang},
	})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if report.OK() {
		t.Fatal("expected failures in report")
	}
	if len(report.Failures) != 1 {
		t.Fatalf("expected 1 failure, got %d", len(report.Failures))
	}
	if report.Failures[0].Role != spec.RoleCandidate {
		t.Fatalf("expected candidate failure, got %s", report.Failures[0].Role)
	}
	if report.Failures[0].Stderr != "cand.src:1: syntax error" {
		t.Fatalf("expected verbatim compiler stderr, got %q", report.Failures[0].Stderr)
	}
	if _, ok := report.Artifacts[spec.RoleGenerator]; !ok {
		t.Fatal("sibling build should not be cancelled by a failure")
	}
}

func TestCompileAllInterpretedSkipsBuild(t *testing.T) {
	dir := t.TempDir()
	exec := &fakeExecutor{}
	c := compiler.New(exec, newLayout(t))

	pyLang := profile.LanguageSpec{
		ID:         "python",
		Kind:       profile.KindInterpreted,
		Extensions: []string{".py"},
		RunCmdTpl:  "python3 {src}",
	}
	srcPath := writeSource(t, dir, "gen.py")
	report, err := c.CompileAll(context.Background(), []compiler.SourceFile{
		{Role: spec.RoleGenerator, Path: srcPath, Lang: pyLang},
	})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if exec.callCount() != 0 {
		t.Fatalf("interpreted language must not invoke the compiler, invocations=%d", exec.callCount())
	}
	art := report.Artifacts[spec.RoleGenerator]
	if art.Kind != compiler.ArtifactSource || art.Path != srcPath {
		t.Fatalf("unexpected artifact %+v", art)
	}
	cmd, err := art.RunCommand()
	if err != nil {
		t.Fatalf("run command: %v", err)
	}
	if cmd[0] != "python3" || cmd[1] != srcPath {
		t.Fatalf("unexpected run command %v", cmd)
	}
}

func TestCompileAllMissingArtifact(t *testing.T) {
	dir := t.TempDir()
	exec := &fakeExecutor{skipEmit: true}
	c := compiler.New(exec, newLayout(t))

	report, err := c.CompileAll(context.Background(), []compiler.SourceFile{
		{Role: spec.RoleCandidate, Path: writeSource(t, dir, "cand.src"), Lang: fakeLang},
	})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if report.OK() {
		t.Fatal("expected failure when compiler emits nothing")
	}
	if !pkgerrors.Is(report.Failures[0].Err, pkgerrors.ArtifactMissing) {
		t.Fatalf("expected ArtifactMissing, got %v", report.Failures[0].Err)
	}
}

func TestCompileAllMissingSource(t *testing.T) {
	exec := &fakeExecutor{}
	c := compiler.New(exec, newLayout(t))

	report, err := c.CompileAll(context.Background(), []compiler.SourceFile{
		{Role: spec.RoleCandidate, Path: "/nope/cand.src", Lang: fakeLang},
	})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if report.OK() {
		t.Fatal("expected failure for missing source")
	}
	if !pkgerrors.Is(report.Failures[0].Err, pkgerrors.SourceNotFound) {
		t.Fatalf("expected SourceNotFound, got %v", report.Failures[0].Err)
	}
}
