// Package executor spawns and supervises subprocesses with wall-clock
// and resident-memory limits enforced from userspace.
package executor

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"time"

	"github.com/shirou/gopsutil/v3/process"
	"github.com/zeromicro/go-zero/core/logx"

	"ctsuite/internal/engine/result"
	"ctsuite/internal/engine/spec"
	appErr "ctsuite/pkg/errors"
)

const (
	defaultPollInterval = 15 * time.Millisecond
	defaultKillGrace    = 250 * time.Millisecond
)

// Executor runs one subprocess to completion under resource limits.
// Non-zero exit codes, timeouts and memory kills are reported inside
// ExecutionResult; the error return is reserved for spawn failures and
// context cancellation.
type Executor interface {
	Execute(ctx context.Context, es spec.ExecSpec) (result.ExecutionResult, error)
}

// ProcessExecutor executes commands directly on the host. It polls the
// process RSS via gopsutil and kills the whole process group when a
// limit is breached.
type ProcessExecutor struct {
	pollInterval time.Duration
	killGrace    time.Duration
}

// Option customizes a ProcessExecutor.
type Option func(*ProcessExecutor)

// WithPollInterval overrides the memory sampling interval.
func WithPollInterval(d time.Duration) Option {
	return func(e *ProcessExecutor) {
		if d > 0 {
			e.pollInterval = d
		}
	}
}

// WithKillGrace overrides the SIGTERM-to-SIGKILL grace period.
func WithKillGrace(d time.Duration) Option {
	return func(e *ProcessExecutor) {
		if d > 0 {
			e.killGrace = d
		}
	}
}

// NewProcessExecutor creates an executor with default sampling settings.
func NewProcessExecutor(opts ...Option) *ProcessExecutor {
	e := &ProcessExecutor{
		pollInterval: defaultPollInterval,
		killGrace:    defaultKillGrace,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute spawns the command described by es and supervises it until it
// exits, times out, breaches its memory limit, or ctx is cancelled.
// Memory kills take precedence over timeouts when both apply.
func (e *ProcessExecutor) Execute(ctx context.Context, es spec.ExecSpec) (result.ExecutionResult, error) {
	if len(es.Cmd) == 0 {
		return result.ExecutionResult{}, appErr.New(appErr.InvalidParams).WithMessage("empty command")
	}

	cmd := exec.Command(es.Cmd[0], es.Cmd[1:]...)
	cmd.Dir = es.WorkDir
	if len(es.Env) > 0 {
		cmd.Env = append(os.Environ(), es.Env...)
	}
	setProcAttrs(cmd)

	if es.Stdin != nil {
		cmd.Stdin = es.Stdin
	} else if es.StdinPath != "" {
		in, err := os.Open(es.StdinPath)
		if err != nil {
			return result.ExecutionResult{}, appErr.Wrapf(err, appErr.SpawnFailed, "open stdin file %s failed", es.StdinPath)
		}
		defer in.Close()
		cmd.Stdin = in
	}

	var stdout bytes.Buffer
	var outFile *os.File
	if es.StdoutPath != "" {
		f, err := os.Create(es.StdoutPath)
		if err != nil {
			return result.ExecutionResult{}, appErr.Wrapf(err, appErr.SpawnFailed, "create stdout file %s failed", es.StdoutPath)
		}
		defer f.Close()
		outFile = f
		cmd.Stdout = f
	} else {
		cmd.Stdout = &stdout
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return result.ExecutionResult{}, appErr.Wrapf(err, appErr.SpawnFailed, "start command %s failed", es.Cmd[0])
	}
	pid := int32(cmd.Process.Pid)
	logx.WithContext(ctx).Debugf("spawned pid=%d cmd=%v limits={time:%dms mem:%dMB}", pid, es.Cmd, es.Limits.WallTimeMs, es.Limits.MemoryMB)

	waitCh := make(chan error, 1)
	go func() {
		waitCh <- cmd.Wait()
	}()

	var wallTimer <-chan time.Time
	if es.Limits.WallTimeMs > 0 {
		t := time.NewTimer(time.Duration(es.Limits.WallTimeMs) * time.Millisecond)
		defer t.Stop()
		wallTimer = t.C
	}
	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	var (
		peakKB      int64
		timedOut    bool
		memExceeded bool
		waitErr     error
		cancelled   bool
	)

supervise:
	for {
		select {
		case waitErr = <-waitCh:
			break supervise
		case <-ticker.C:
			rss := sampleRSS(pid)
			if rss > peakKB {
				peakKB = rss
			}
			if es.Limits.MemoryMB > 0 && rss > es.Limits.MemoryMB*1024 {
				memExceeded = true
				logx.WithContext(ctx).Infof("pid=%d exceeded memory limit: %dKB > %dMB", pid, rss, es.Limits.MemoryMB)
				waitErr = e.terminate(cmd, waitCh)
				break supervise
			}
		case <-wallTimer:
			timedOut = true
			logx.WithContext(ctx).Infof("pid=%d exceeded wall time limit %dms", pid, es.Limits.WallTimeMs)
			waitErr = e.terminate(cmd, waitCh)
			break supervise
		case <-ctx.Done():
			cancelled = true
			waitErr = e.terminate(cmd, waitCh)
			break supervise
		}
	}

	res := result.ExecutionResult{
		Stderr:       stderr.String(),
		WallTimeMs:   time.Since(start).Milliseconds(),
		PeakMemoryKB: peakKB,
		TimedOut:     timedOut,
		MemExceeded:  memExceeded,
	}
	res.ExitCode = exitCodeOf(cmd, waitErr)

	if outFile != nil {
		// The output file is re-read by later stages, so a failed
		// flush must surface instead of handing them a short file.
		if err := outFile.Sync(); err != nil {
			return res, appErr.Wrapf(err, appErr.OutputWriteFailed, "flush stdout file %s failed", es.StdoutPath)
		}
	} else {
		res.Stdout = stdout.String()
	}

	if cancelled {
		return res, appErr.Wrap(ctx.Err(), appErr.Cancelled)
	}
	return res, nil
}

// terminate asks the process group to exit, escalating to SIGKILL after
// the grace period, and returns the wait error.
func (e *ProcessExecutor) terminate(cmd *exec.Cmd, waitCh <-chan error) error {
	signalTerm(cmd)
	select {
	case err := <-waitCh:
		return err
	case <-time.After(e.killGrace):
		signalKill(cmd)
		return <-waitCh
	}
}

func sampleRSS(pid int32) int64 {
	proc, err := process.NewProcess(pid)
	if err != nil {
		// process already gone
		return 0
	}
	mem, err := proc.MemoryInfo()
	if err != nil || mem == nil {
		return 0
	}
	return int64(mem.RSS / 1024)
}

func exitCodeOf(cmd *exec.Cmd, waitErr error) int {
	if cmd.ProcessState != nil {
		return cmd.ProcessState.ExitCode()
	}
	if waitErr != nil {
		return -1
	}
	return 0
}
