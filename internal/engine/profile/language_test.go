package profile_test

import (
	"testing"

	"ctsuite/internal/engine/profile"
	pkgerrors "ctsuite/pkg/errors"
)

func TestExpandCommand(t *testing.T) {
	cmd, err := profile.ExpandCommand("g++ -O2 -std=c++17 -Wall {src} -o {bin}", profile.CommandContext{
		SrcPath: "/ws/main.cpp",
		BinPath: "/ws/build/main",
	})
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	want := []string{"g++", "-O2", "-std=c++17", "-Wall", "/ws/main.cpp", "-o", "/ws/build/main"}
	if len(cmd) != len(want) {
		t.Fatalf("expected %d args, got %d: %v", len(want), len(cmd), cmd)
	}
	for i := range want {
		if cmd[i] != want[i] {
			t.Fatalf("arg %d: expected %q, got %q", i, want[i], cmd[i])
		}
	}
}

func TestExpandCommandClassPlaceholders(t *testing.T) {
	cmd, err := profile.ExpandCommand("java -cp {class_dir} {class}", profile.CommandContext{
		ClassDir:  "/ws/build/classes",
		ClassName: "Main",
	})
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if cmd[1] != "-cp" || cmd[2] != "/ws/build/classes" || cmd[3] != "Main" {
		t.Fatalf("unexpected command: %v", cmd)
	}
}

func TestExpandCommandQuotedArgs(t *testing.T) {
	cmd, err := profile.ExpandCommand(`sh -c "echo hi"`, profile.CommandContext{})
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if len(cmd) != 3 || cmd[2] != "echo hi" {
		t.Fatalf("expected quoted arg preserved, got %v", cmd)
	}
}

func TestExpandCommandEmptyTemplate(t *testing.T) {
	if _, err := profile.ExpandCommand("  ", profile.CommandContext{}); !pkgerrors.Is(err, pkgerrors.CommandTemplateError) {
		t.Fatalf("expected CommandTemplateError, got %v", err)
	}
}

func TestDetectByExtension(t *testing.T) {
	table := profile.NewTable(profile.BuiltinLanguages())

	cases := []struct {
		path string
		want string
	}{
		{"/ws/solution.cpp", "cpp"},
		{"/ws/solution.cc", "cpp"},
		{"/ws/Main.java", "java"},
		{"/ws/gen.py", "python"},
	}
	for _, tc := range cases {
		lang, err := table.Detect(tc.path)
		if err != nil {
			t.Fatalf("detect %s: %v", tc.path, err)
		}
		if lang.ID != tc.want {
			t.Fatalf("detect %s: expected %s, got %s", tc.path, tc.want, lang.ID)
		}
	}
}

func TestDetectUnknownExtension(t *testing.T) {
	table := profile.NewTable(profile.BuiltinLanguages())
	if _, err := table.Detect("/ws/prog.zig"); !pkgerrors.Is(err, pkgerrors.LanguageNotSupported) {
		t.Fatalf("expected LanguageNotSupported, got %v", err)
	}
	if _, err := table.Detect("/ws/noext"); !pkgerrors.Is(err, pkgerrors.LanguageNotSupported) {
		t.Fatalf("expected LanguageNotSupported for missing extension, got %v", err)
	}
}

func TestTableOverrides(t *testing.T) {
	custom := profile.LanguageSpec{
		ID:            "cpp",
		Name:          "C++ 20",
		Kind:          profile.KindNative,
		Extensions:    []string{".cpp"},
		CompileCmdTpl: "g++ -O3 -std=c++20 {src} -o {bin}",
		RunCmdTpl:     "{bin}",
	}
	table := profile.NewTable(append(profile.BuiltinLanguages(), custom))

	lang, err := table.Get("cpp")
	if err != nil {
		t.Fatalf("get cpp: %v", err)
	}
	if lang.Name != "C++ 20" {
		t.Fatalf("expected override to win, got %s", lang.Name)
	}
}

func TestNeedsBuild(t *testing.T) {
	table := profile.NewTable(profile.BuiltinLanguages())
	cpp, _ := table.Get("cpp")
	java, _ := table.Get("java")
	py, _ := table.Get("python")

	if !cpp.NeedsBuild() || !java.NeedsBuild() {
		t.Fatal("expected native and bytecode languages to need a build")
	}
	if py.NeedsBuild() {
		t.Fatal("expected interpreted language to skip the build")
	}
}

func TestClassNameFor(t *testing.T) {
	if got := profile.ClassNameFor("/ws/src/Main.java"); got != "Main" {
		t.Fatalf("expected Main, got %s", got)
	}
}
