package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"stackcc/pkg/config"
	"stackcc/pkg/vm"
)

func TestBuildAndRunSource(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "hello.c")
	code := `
int main() {
	print_string("hello");
	print_int(6 * 7);
	return 0;
}
`
	if err := os.WriteFile(src, []byte(code), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := config.DefaultConfig()
	c, err := build(src, cfg)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	out := filepath.Join(dir, "build", "hello.sccx")
	if err := writeContainer(out, c); err != nil {
		t.Fatalf("writeContainer: %v", err)
	}

	loaded, err := vm.ReadContainerFile(out)
	if err != nil {
		t.Fatalf("ReadContainerFile: %v", err)
	}
	var stdout bytes.Buffer
	m, err := run(context.Background(), loaded, cfg, &stdout)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stdout.String() != "hello\n42\n" {
		t.Errorf("output = %q", stdout.String())
	}
	if m.Result.I != 0 {
		t.Errorf("result = %s", m.Result)
	}
}

func TestBuildListingKeepsSource(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "five.sasm")
	listing := ".func main int\n\tPUSHI 5\n\tRET\n.end\n.entry main\n"
	if err := os.WriteFile(src, []byte(listing), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := build(src, config.DefaultConfig())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if c.Listing != listing || c.Manifest.Name != "five" {
		t.Errorf("container = %+v", c.Manifest)
	}
}

func TestRunHonoursStepBudget(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "spin.c")
	if err := os.WriteFile(src, []byte("int main() { while (1) { } return 0; }"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := config.DefaultConfig()
	cfg.VM.MaxSteps = 500
	c, err := build(src, cfg)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if _, err := run(context.Background(), c, cfg, &bytes.Buffer{}); err == nil {
		t.Errorf("expected the step budget to stop the program")
	}
}
