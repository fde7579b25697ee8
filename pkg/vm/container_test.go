package vm_test

import (
	"path/filepath"
	"reflect"
	"testing"

	"stackcc/pkg/asm"
	"stackcc/pkg/vm"
)

const containerListing = `
.func helper void
	PUSHI 1
	CALL print_int
	RET
.end
.func main int
	CALL helper
	POP
	PUSHI 0
	RET
.end
.entry main
`

func TestContainerRoundTrip(t *testing.T) {
	img, err := asm.Assemble(containerListing)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	c := vm.NewContainer("demo", img, containerListing)
	if c.Manifest.Entry != "main" {
		t.Errorf("manifest entry = %q", c.Manifest.Entry)
	}
	// builtins are not listed
	if !reflect.DeepEqual(c.Manifest.Functions, []string{"helper", "main"}) {
		t.Errorf("manifest functions = %v", c.Manifest.Functions)
	}

	path := filepath.Join(t.TempDir(), "demo.sccx")
	if err := c.WriteFile(path); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	back, err := vm.ReadContainerFile(path)
	if err != nil {
		t.Fatalf("ReadContainerFile: %v", err)
	}

	if back.Manifest.Name != "demo" || back.Manifest.Compiler != vm.ContainerVersion {
		t.Errorf("manifest = %+v", back.Manifest)
	}
	if back.Listing != containerListing {
		t.Errorf("listing not preserved")
	}
	if !reflect.DeepEqual(back.Image.Code, img.Code) {
		t.Errorf("code not preserved")
	}
}

func TestContainerWithoutListing(t *testing.T) {
	img, err := asm.Assemble(containerListing)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	data, err := vm.NewContainer("demo", img, "").Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	back, err := vm.ReadContainer(data)
	if err != nil {
		t.Fatalf("ReadContainer: %v", err)
	}
	if back.Listing != "" {
		t.Errorf("unexpected listing %q", back.Listing)
	}
	if _, err := vm.ReadContainer([]byte("not a zip")); err == nil {
		t.Errorf("expected error for a non-zip container")
	}
}
