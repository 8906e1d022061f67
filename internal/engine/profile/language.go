// Package profile defines language specifications: how each supported
// language is detected, built and executed.
package profile

import (
	"strings"

	"github.com/google/shlex"

	appErr "ctsuite/pkg/errors"
)

// LanguageKind distinguishes build strategies.
type LanguageKind string

const (
	// KindNative compiles to a standalone executable.
	KindNative LanguageKind = "native"
	// KindBytecode compiles to bytecode units launched by a runtime.
	KindBytecode LanguageKind = "bytecode"
	// KindInterpreted runs the source file directly.
	KindInterpreted LanguageKind = "interpreted"
)

// LanguageSpec defines how to build and run a language.
// Command templates support the placeholders {src}, {bin}, {class_dir}
// and {class}; templates are shell-split after expansion.
type LanguageSpec struct {
	ID            string       `yaml:"id"`
	Name          string       `yaml:"name"`
	Kind          LanguageKind `yaml:"kind"`
	Extensions    []string     `yaml:"extensions"`
	CompileCmdTpl string       `yaml:"compileCmdTpl"`
	RunCmdTpl     string       `yaml:"runCmdTpl"`
	Env           []string     `yaml:"env"`
}

// NeedsBuild reports whether a build step must run before execution.
func (l LanguageSpec) NeedsBuild() bool {
	return l.Kind == KindNative || l.Kind == KindBytecode
}

// CommandContext carries the concrete paths substituted into templates.
type CommandContext struct {
	SrcPath   string
	BinPath   string
	ClassDir  string
	ClassName string
}

// ExpandCommand expands a command template and splits it into argv.
func ExpandCommand(tpl string, cc CommandContext) ([]string, error) {
	if strings.TrimSpace(tpl) == "" {
		return nil, appErr.New(appErr.CommandTemplateError).WithMessage("command template is required")
	}
	expanded := tpl
	expanded = strings.ReplaceAll(expanded, "{src}", cc.SrcPath)
	expanded = strings.ReplaceAll(expanded, "{bin}", cc.BinPath)
	expanded = strings.ReplaceAll(expanded, "{class_dir}", cc.ClassDir)
	expanded = strings.ReplaceAll(expanded, "{class}", cc.ClassName)
	fields, err := shlex.Split(expanded)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.CommandTemplateError, "parse command template failed")
	}
	if len(fields) == 0 {
		return nil, appErr.New(appErr.CommandTemplateError).WithMessage("command is empty after expansion")
	}
	return fields, nil
}

// BuiltinLanguages returns the default language table. Entries can be
// overridden or extended through configuration.
func BuiltinLanguages() []LanguageSpec {
	return []LanguageSpec{
		{
			ID:            "cpp",
			Name:          "C++",
			Kind:          KindNative,
			Extensions:    []string{".cpp", ".cc", ".cxx"},
			CompileCmdTpl: "g++ -O2 -std=c++17 -Wall {src} -o {bin}",
			RunCmdTpl:     "{bin}",
		},
		{
			ID:            "java",
			Name:          "Java",
			Kind:          KindBytecode,
			Extensions:    []string{".java"},
			CompileCmdTpl: "javac -d {class_dir} {src}",
			RunCmdTpl:     "java -cp {class_dir} {class}",
		},
		{
			ID:         "python",
			Name:       "Python",
			Kind:       KindInterpreted,
			Extensions: []string{".py"},
			RunCmdTpl:  "python3 {src}",
		},
	}
}

// Table indexes language specs by ID and by extension.
type Table struct {
	byID  map[string]LanguageSpec
	byExt map[string]LanguageSpec
}

// NewTable builds a lookup table. Later entries override earlier ones,
// so config-provided specs can replace builtins by reusing an ID.
func NewTable(specs []LanguageSpec) *Table {
	t := &Table{
		byID:  make(map[string]LanguageSpec),
		byExt: make(map[string]LanguageSpec),
	}
	for _, s := range specs {
		if s.ID == "" {
			continue
		}
		t.byID[s.ID] = s
		for _, ext := range s.Extensions {
			t.byExt[strings.ToLower(ext)] = s
		}
	}
	return t
}

// Get returns the spec for a language ID.
func (t *Table) Get(id string) (LanguageSpec, error) {
	spec, ok := t.byID[id]
	if !ok {
		return LanguageSpec{}, appErr.Newf(appErr.LanguageNotSupported, "language %q is not supported", id)
	}
	return spec, nil
}
