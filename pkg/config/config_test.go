package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestFindAndLoad_Defaults(t *testing.T) {
	cfg, path, err := FindAndLoad(t.TempDir())
	if err != nil {
		t.Fatalf("FindAndLoad: %v", err)
	}
	if path != "" {
		t.Errorf("path = %q, want none", path)
	}
	if *cfg != *DefaultConfig() {
		t.Errorf("cfg = %+v, want defaults", cfg)
	}
}

func TestFindAndLoad_WalksUp(t *testing.T) {
	root := t.TempDir()
	want := writeConfig(t, root, `
[compiler]
entry = "start"
prune = false

[vm]
max_steps = 5000
`)
	nested := filepath.Join(root, "src", "lib")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	cfg, path, err := FindAndLoad(nested)
	if err != nil {
		t.Fatalf("FindAndLoad: %v", err)
	}
	if path != want {
		t.Errorf("path = %q, want %q", path, want)
	}
	if cfg.Compiler.Entry != "start" || cfg.Compiler.Prune {
		t.Errorf("compiler = %+v", cfg.Compiler)
	}
	if cfg.VM.MaxSteps != 5000 {
		t.Errorf("max_steps = %d", cfg.VM.MaxSteps)
	}
	// keys the file leaves out keep their defaults
	if cfg.VM.StackLimit != 4096 || cfg.Output.Dir != "build" {
		t.Errorf("defaults lost: %+v", cfg)
	}
	if got := cfg.OutputDir(path, "/elsewhere"); got != filepath.Join(root, "build") {
		t.Errorf("OutputDir = %q", got)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"malformed", "[compiler\n", "config "},
		{"unknown key", "[compiler]\noptimise = true\n", "unknown key compiler.optimise"},
		{"wrong type", "[vm]\nmax_steps = \"lots\"\n", "config "},
		{"empty entry", "[compiler]\nentry = \"\"\n", "compiler.entry must not be empty"},
		{"negative limit", "[vm]\nstack_limit = -1\n", "vm.stack_limit must not be negative"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfig(t, t.TempDir(), tc.body)
			_, err := Load(path)
			if err == nil {
				t.Fatalf("expected an error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error = %q, want it to contain %q", err, tc.want)
			}
		})
	}
}

func TestOutputDirWithoutConfig(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.OutputDir("", "/src"); got != filepath.Join("/src", "build") {
		t.Errorf("OutputDir = %q", got)
	}
	cfg.Output.Dir = "/abs/out"
	if got := cfg.OutputDir("", "/src"); got != "/abs/out" {
		t.Errorf("OutputDir = %q", got)
	}
}
