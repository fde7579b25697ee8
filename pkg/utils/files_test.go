package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestOutputPath(t *testing.T) {
	tests := []struct {
		src, dir, ext string
		want          string
	}{
		{"prog/fib.c", "", ContainerExt, filepath.Join("prog", "fib.sccx")},
		{"prog/fib.c", "build", ListingExt, filepath.Join("build", "fib.sasm")},
		{"noext", "out", ContainerExt, filepath.Join("out", "noext.sccx")},
	}
	for _, tc := range tests {
		if got := OutputPath(tc.src, tc.dir, tc.ext); got != tc.want {
			t.Errorf("OutputPath(%q, %q, %q) = %q, want %q", tc.src, tc.dir, tc.ext, got, tc.want)
		}
	}
}

func TestWriteFileCreatesDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "out.sccx")
	if err := WriteFile(path, []byte("x")); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "x" {
		t.Errorf("read back %q, %v", data, err)
	}
}

func TestGetPathInfo(t *testing.T) {
	full, parent, err := GetPathInfo("x/y.c")
	if err != nil {
		t.Fatal(err)
	}
	if !filepath.IsAbs(full) || filepath.Base(full) != "y.c" || filepath.Base(parent) != "x" {
		t.Errorf("GetPathInfo = %q, %q", full, parent)
	}
}
