package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"ctsuite/internal/engine/executor"
	"ctsuite/internal/engine/profile"
	"ctsuite/internal/engine/runner"
	"ctsuite/internal/engine/spec"
	"ctsuite/internal/engine/worker"
	"ctsuite/internal/report"
	"ctsuite/pkg/utils/logger"
)

const defaultConfigPath = "configs/ctsuite.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to config file")
	modeFlag := flag.String("mode", "", "Test mode: benchmark, compare or validate (overrides config)")
	countFlag := flag.Int("count", 0, "Number of test cases (overrides config)")
	generatorFlag := flag.String("generator", "", "Generator source path (overrides config)")
	candidateFlag := flag.String("candidate", "", "Candidate source path (overrides config)")
	referenceFlag := flag.String("reference", "", "Reference source path (overrides config)")
	validatorFlag := flag.String("validator", "", "Validator source path (overrides config)")
	flag.Parse()

	appCfg, err := loadAppConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load app config failed: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(appCfg.Logger); err != nil {
		fmt.Fprintf(os.Stderr, "init logger failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx := context.Background()

	modeName := appCfg.Run.Mode
	if *modeFlag != "" {
		modeName = *modeFlag
	}
	mode, err := parseMode(modeName)
	if err != nil {
		logger.Error(ctx, "invalid mode", zap.Error(err))
		os.Exit(1)
	}

	testCount := appCfg.Run.TestCount
	if *countFlag > 0 {
		testCount = *countFlag
	}

	sources := appCfg.Sources.toMap()
	for role, path := range map[spec.SourceRole]string{
		spec.RoleGenerator: *generatorFlag,
		spec.RoleCandidate: *candidateFlag,
		spec.RoleReference: *referenceFlag,
		spec.RoleValidator: *validatorFlag,
	} {
		if path != "" {
			sources[role] = path
		}
	}

	langs := profile.NewTable(append(profile.BuiltinLanguages(), appCfg.Language.Languages...))

	store, err := report.NewStore(appCfg.Workspace.ReportDir)
	if err != nil {
		logger.Error(ctx, "init report store failed", zap.Error(err))
		os.Exit(1)
	}

	run := runner.New(
		executor.NewProcessExecutor(),
		langs,
		appCfg.Workspace.Root,
		runner.WithReporter(consoleReporter{}),
		runner.WithSummarySink(store),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info(ctx, "stopping run", zap.String("signal", sig.String()))
		run.Stop()
	}()

	summary, err := run.Run(ctx, runner.Request{
		Mode:       mode,
		Sources:    sources,
		TestCount:  testCount,
		Limits:     spec.ResourceLimit{WallTimeMs: appCfg.Limits.WallTimeMs, MemoryMB: appCfg.Limits.MemoryMB},
		Policy:     worker.ComparePolicy(appCfg.Run.Policy),
		MaxWorkers: appCfg.Run.MaxWorkers,
	})
	if err != nil {
		logger.Error(ctx, "run failed", zap.Error(err))
		os.Exit(1)
	}

	logger.Info(ctx, "run finished",
		zap.String("run_id", summary.RunID),
		zap.String("status", string(summary.Status)),
		zap.Int("verdicts", len(summary.Verdicts)),
		zap.Bool("passed", summary.OverallPassed),
	)
	if !summary.OverallPassed {
		os.Exit(1)
	}
}
