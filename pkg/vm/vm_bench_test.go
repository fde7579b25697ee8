package vm_test

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"

	"stackcc/pkg/asm"
	"stackcc/pkg/vm"
)

// mustAssemble builds an image for a benchmark, failing it on error.
func mustAssemble(b *testing.B, listing string) *vm.Image {
	b.Helper()
	img, err := asm.Assemble(listing)
	if err != nil {
		b.Fatal(err)
	}
	return img
}

// runSilent runs img to completion with output discarded.
func runSilent(b *testing.B, img *vm.Image) {
	m := vm.New(img)
	m.Output = io.Discard
	if err := m.Run(context.Background()); err != nil {
		b.Fatal(err)
	}
}

// BenchmarkVM_NOP measures the raw dispatch overhead of the Step loop by
// running a tight block of NOP instructions.
func BenchmarkVM_NOP(b *testing.B) {
	const nopCount = 1000
	body := strings.Repeat("\tNOP\n", nopCount)
	img := mustAssemble(b, ".func main void\n"+body+"\tPUSHV\n\tRET\n.end\n.entry main\n")

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		runSilent(b, img)
	}
}

// BenchmarkVM_ADD measures integer ADD throughput on the operand stack.
func BenchmarkVM_ADD(b *testing.B) {
	const addCount = 1000
	body := "\tPUSHI 0\n" + strings.Repeat("\tPUSHI 1\n\tADD\n", addCount)
	img := mustAssemble(b, ".func main int\n"+body+"\tRET\n.end\n.entry main\n")

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		runSilent(b, img)
	}
}

// BenchmarkVM_Loop counts a local down to zero, exercising branches and
// local slots.
func BenchmarkVM_Loop(b *testing.B) {
	img := mustAssemble(b, `
.func main int
.local n int
	PUSHI 10000
	STLOC 0
L0:
	LDLOC 0
	BRFALSE L1
	LDLOC 0
	PUSHI 1
	SUB
	STLOC 0
	BR L0
L1:
	LDLOC 0
	RET
.end
.entry main
`)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		runSilent(b, img)
	}
}

// BenchmarkVM_Calls measures call and return overhead with recursion depth n.
func BenchmarkVM_Calls(b *testing.B) {
	for _, depth := range []int{10, 100, 1000} {
		img := mustAssemble(b, fmt.Sprintf(`
.func down int
.param n int
	LDARG 0
	BRFALSE L0
	LDARG 0
	PUSHI 1
	SUB
	CALL down
	RET
L0:
	PUSHI 0
	RET
.end
.func main int
	PUSHI %d
	CALL down
	RET
.end
.entry main
`, depth))
		b.Run(fmt.Sprintf("depth=%d", depth), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				runSilent(b, img)
			}
		})
	}
}
