package main

import (
	"fmt"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"

	"ctsuite/internal/engine/profile"
	"ctsuite/internal/engine/spec"
	"ctsuite/internal/engine/worker"
	"ctsuite/pkg/utils/logger"
)

const (
	defaultWallTimeMs = 1000
	defaultMemoryMB   = 256
	defaultTestCount  = 10
)

// LimitsConfig holds per-test resource limits.
type LimitsConfig struct {
	WallTimeMs int64 `yaml:"wallTimeMs"`
	MemoryMB   int64 `yaml:"memoryMB"`
}

// RunConfig holds the default run parameters; flags override them.
type RunConfig struct {
	Mode       string `yaml:"mode"`
	TestCount  int    `yaml:"testCount"`
	MaxWorkers int    `yaml:"maxWorkers"`
	Policy     string `yaml:"comparePolicy"`
}

// SourcesConfig maps roles to source file paths.
type SourcesConfig struct {
	Generator string `yaml:"generator"`
	Candidate string `yaml:"candidate"`
	Reference string `yaml:"reference"`
	Validator string `yaml:"validator"`
}

// WorkspaceConfig holds filesystem settings.
type WorkspaceConfig struct {
	Root      string `yaml:"root"`
	ReportDir string `yaml:"reportDir"`
}

// LanguageConfig holds language table overrides. Entries reusing a
// builtin ID replace it.
type LanguageConfig struct {
	Languages []profile.LanguageSpec `yaml:"languages"`
}

// AppConfig holds ctsuite config.
type AppConfig struct {
	Logger    logger.Config   `yaml:"logger"`
	Workspace WorkspaceConfig `yaml:"workspace"`
	Run       RunConfig       `yaml:"run"`
	Limits    LimitsConfig    `yaml:"limits"`
	Sources   SourcesConfig   `yaml:"sources"`
	Language  LanguageConfig  `yaml:"language"`
}

func loadYAML(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func loadAppConfig(path string) (*AppConfig, error) {
	var cfg AppConfig
	if err := loadYAML(path, &cfg); err != nil {
		return nil, err
	}
	if cfg.Workspace.Root == "" {
		return nil, fmt.Errorf("workspace root is required")
	}
	if cfg.Workspace.ReportDir == "" {
		cfg.Workspace.ReportDir = cfg.Workspace.Root + "/reports"
	}
	if cfg.Run.TestCount <= 0 {
		cfg.Run.TestCount = defaultTestCount
	}
	if cfg.Run.MaxWorkers <= 0 {
		cfg.Run.MaxWorkers = defaultRunWorkers()
	}
	if cfg.Run.Policy == "" {
		cfg.Run.Policy = string(worker.PolicyTokens)
	}
	if cfg.Limits.WallTimeMs <= 0 {
		cfg.Limits.WallTimeMs = defaultWallTimeMs
	}
	if cfg.Limits.MemoryMB <= 0 {
		cfg.Limits.MemoryMB = defaultMemoryMB
	}
	return &cfg, nil
}

func defaultRunWorkers() int {
	n := runtime.NumCPU() - 1
	if n < 1 {
		n = 1
	}
	if n > 8 {
		n = 8
	}
	return n
}

// parseMode maps CLI mode names onto engine test modes.
func parseMode(raw string) (spec.TestMode, error) {
	switch raw {
	case "benchmark":
		return spec.ModeBenchmark, nil
	case "compare":
		return spec.ModeComparison, nil
	case "validate":
		return spec.ModeValidation, nil
	default:
		return "", fmt.Errorf("unknown mode %q (want benchmark, compare or validate)", raw)
	}
}

func (s SourcesConfig) toMap() map[spec.SourceRole]string {
	m := make(map[spec.SourceRole]string)
	if s.Generator != "" {
		m[spec.RoleGenerator] = s.Generator
	}
	if s.Candidate != "" {
		m[spec.RoleCandidate] = s.Candidate
	}
	if s.Reference != "" {
		m[spec.RoleReference] = s.Reference
	}
	if s.Validator != "" {
		m[spec.RoleValidator] = s.Validator
	}
	return m
}
