// Package compiler turns source files into runnable artifacts, caching
// builds by source modification time.
package compiler

import (
	"context"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	"ctsuite/internal/engine/executor"
	"ctsuite/internal/engine/profile"
	"ctsuite/internal/engine/spec"
	"ctsuite/internal/engine/workspace"
	appErr "ctsuite/pkg/errors"
)

const compileTimeoutMs = 30_000

// SourceFile binds one source path to the role it plays in a run.
type SourceFile struct {
	Role spec.SourceRole
	Path string
	Lang profile.LanguageSpec
}

// ArtifactKind says what a build produced.
type ArtifactKind string

const (
	// ArtifactExecutable is a native binary.
	ArtifactExecutable ArtifactKind = "executable"
	// ArtifactClassDir is a directory of bytecode units.
	ArtifactClassDir ArtifactKind = "class_dir"
	// ArtifactSource means the source file runs as-is.
	ArtifactSource ArtifactKind = "source"
)

// Artifact is the runnable product of one source file.
type Artifact struct {
	Role      spec.SourceRole
	Kind      ArtifactKind
	Path      string
	SrcPath   string
	ClassName string
	Lang      profile.LanguageSpec

	// SourceModTime is the source mtime recorded at build time; the
	// artifact is fresh only while the current mtime equals it exactly.
	SourceModTime time.Time
}

// RunCommand returns the argv that executes this artifact, with extra
// args appended.
func (a Artifact) RunCommand(extraArgs ...string) ([]string, error) {
	cc := profile.CommandContext{
		SrcPath:   a.SrcPath,
		BinPath:   a.Path,
		ClassName: a.ClassName,
	}
	if a.Kind == ArtifactClassDir {
		cc.ClassDir = a.Path
	}
	cmd, err := profile.ExpandCommand(a.Lang.RunCmdTpl, cc)
	if err != nil {
		return nil, err
	}
	return append(cmd, extraArgs...), nil
}

// Failure records one role's build failure with the compiler's stderr
// kept verbatim for display.
type Failure struct {
	Role   spec.SourceRole
	Stderr string
	Err    error
}

// Report aggregates the outcome of building all sources for one run.
type Report struct {
	Artifacts map[spec.SourceRole]Artifact
	Failures  []Failure
}

// OK reports whether every role built successfully.
func (r Report) OK() bool {
	return len(r.Failures) == 0
}

// Compiler builds sources concurrently and caches artifacts until the
// source file changes on disk.
type Compiler struct {
	exec   executor.Executor
	layout workspace.Layout

	mu    sync.Mutex
	cache map[spec.SourceRole]Artifact

	buildSlots int
}

// New creates a compiler writing artifacts into layout's build tree.
func New(exec executor.Executor, layout workspace.Layout) *Compiler {
	slots := runtime.NumCPU()
	if slots > 4 {
		slots = 4
	}
	if slots < 1 {
		slots = 1
	}
	return &Compiler{
		exec:       exec,
		layout:     layout,
		cache:      make(map[spec.SourceRole]Artifact),
		buildSlots: slots,
	}
}

// CompileAll builds every source that needs it, reusing cached artifacts
// whose source file is unchanged. One role's failure never cancels the
// others; all failures are collected into the report.
func (c *Compiler) CompileAll(ctx context.Context, sources []SourceFile) (Report, error) {
	report := Report{Artifacts: make(map[spec.SourceRole]Artifact)}

	sem := make(chan struct{}, c.buildSlots)
	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, src := range sources {
		wg.Add(1)
		go func(src SourceFile) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			art, failure := c.compileOne(ctx, src)
			mu.Lock()
			defer mu.Unlock()
			if failure != nil {
				report.Failures = append(report.Failures, *failure)
				return
			}
			report.Artifacts[src.Role] = art
		}(src)
	}
	wg.Wait()

	return report, nil
}

// Invalidate drops the cached artifact for one role.
func (c *Compiler) Invalidate(role spec.SourceRole) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.cache, role)
}

func (c *Compiler) compileOne(ctx context.Context, src SourceFile) (Artifact, *Failure) {
	mtime, err := sourceModTime(src.Path)
	if err != nil {
		return Artifact{}, &Failure{Role: src.Role, Err: err}
	}

	if !src.Lang.NeedsBuild() {
		return Artifact{
			Role:          src.Role,
			Kind:          ArtifactSource,
			Path:          src.Path,
			SrcPath:       src.Path,
			Lang:          src.Lang,
			SourceModTime: mtime,
		}, nil
	}

	c.mu.Lock()
	cached, ok := c.cache[src.Role]
	c.mu.Unlock()
	if ok && cached.SrcPath == src.Path && cached.SourceModTime.Equal(mtime) && fileExists(cached.Path) {
		logx.WithContext(ctx).Debugf("build cache hit: role=%s src=%s", src.Role, src.Path)
		return cached, nil
	}

	art, failure := c.build(ctx, src, mtime)
	if failure != nil {
		return Artifact{}, failure
	}

	c.mu.Lock()
	c.cache[src.Role] = art
	c.mu.Unlock()
	return art, nil
}

func (c *Compiler) build(ctx context.Context, src SourceFile, mtime time.Time) (Artifact, *Failure) {
	cc := profile.CommandContext{
		SrcPath:   src.Path,
		BinPath:   c.layout.BinaryPath(src.Role),
		ClassDir:  c.layout.ClassDir(src.Role),
		ClassName: profile.ClassNameFor(src.Path),
	}
	cmd, err := profile.ExpandCommand(src.Lang.CompileCmdTpl, cc)
	if err != nil {
		return Artifact{}, &Failure{Role: src.Role, Err: err}
	}

	if err := os.MkdirAll(c.layout.BuildDir(src.Role), 0755); err != nil {
		return Artifact{}, &Failure{Role: src.Role, Err: appErr.Wrapf(err, appErr.WorkspaceCreateFailed, "create build dir for %s failed", src.Role)}
	}
	if src.Lang.Kind == profile.KindBytecode {
		if err := os.MkdirAll(cc.ClassDir, 0755); err != nil {
			return Artifact{}, &Failure{Role: src.Role, Err: appErr.Wrapf(err, appErr.WorkspaceCreateFailed, "create class dir for %s failed", src.Role)}
		}
	}

	logx.WithContext(ctx).Infof("compiling role=%s lang=%s cmd=%v", src.Role, src.Lang.ID, cmd)
	start := time.Now()
	res, err := c.exec.Execute(ctx, spec.ExecSpec{
		Cmd:     cmd,
		Env:     src.Lang.Env,
		WorkDir: c.layout.BuildDir(src.Role),
		Limits:  spec.ResourceLimit{WallTimeMs: compileTimeoutMs},
	})
	if err != nil {
		return Artifact{}, &Failure{Role: src.Role, Err: appErr.Wrap(err, appErr.BuildFailed)}
	}
	if res.ExitCode != 0 || res.TimedOut {
		diag := strings.TrimSpace(res.Stderr)
		if diag == "" && res.TimedOut {
			diag = "compiler timed out"
		}
		return Artifact{}, &Failure{
			Role:   src.Role,
			Stderr: diag,
			Err:    appErr.Newf(appErr.BuildFailed, "compile %s failed with exit code %d", src.Role, res.ExitCode),
		}
	}

	kind := ArtifactExecutable
	path := cc.BinPath
	if src.Lang.Kind == profile.KindBytecode {
		kind = ArtifactClassDir
		path = cc.ClassDir
	}
	if !fileExists(path) {
		return Artifact{}, &Failure{
			Role: src.Role,
			Err:  appErr.Newf(appErr.ArtifactMissing, "compiler exited 0 but produced no artifact at %s", path),
		}
	}
	logx.WithContext(ctx).Infof("compiled role=%s in %dms", src.Role, time.Since(start).Milliseconds())

	return Artifact{
		Role:          src.Role,
		Kind:          kind,
		Path:          path,
		SrcPath:       src.Path,
		ClassName:     cc.ClassName,
		Lang:          src.Lang,
		SourceModTime: mtime,
	}, nil
}

func sourceModTime(path string) (time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, appErr.Wrapf(err, appErr.SourceNotFound, "source file %s not found", path)
	}
	return info.ModTime(), nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
