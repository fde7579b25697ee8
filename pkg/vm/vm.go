// Package vm executes assembled stackcc programs on a stack machine with
// typed values, per-call frames and a shared operand stack.
package vm

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

const DefaultStackLimit = 4096

// ErrStepBudget is returned by Run when MaxSteps instructions have executed
// without the program finishing.
var ErrStepBudget = errors.New("step budget exhausted")

// RuntimeError is a fault raised by the running program.
type RuntimeError struct {
	PC   int
	Line int // listing line, 0 when unknown
	Msg  string
	Err  error
}

func (e *RuntimeError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("pc %d (line %d): %s", e.PC, e.Line, e.Msg)
	}
	return fmt.Sprintf("pc %d: %s", e.PC, e.Msg)
}

func (e *RuntimeError) Unwrap() error { return e.Err }

type frame struct {
	fn     *FuncDef
	args   []Value
	locals []Value
	ret    int // return address, -1 for a top-level call
	base   int // operand stack height on entry
}

type VM struct {
	Image *Image

	// Output receives what the intrinsics print. If nil, os.Stdout is used.
	Output     io.Writer
	MaxSteps   int // 0 for no limit
	StackLimit int // operand stack and call depth limit

	PC      int
	Steps   int
	Halted  bool
	Result  Value
	globals []Value
	stack   []Value
	frames  []*frame
	pending []int
}

// New prepares img for execution: globals are zeroed and the init function,
// if any, is queued before the entry point.
func New(img *Image) *VM {
	v := &VM{Image: img, StackLimit: DefaultStackLimit}
	v.Reset()
	return v
}

// Reset returns the machine to its state before the first Step.
func (v *VM) Reset() {
	v.globals = make([]Value, len(v.Image.Globals))
	for i, g := range v.Image.Globals {
		v.globals[i] = v.Image.Zero(g.Type)
	}
	v.stack = v.stack[:0]
	v.frames = nil
	v.pending = nil
	if v.Image.Init >= 0 {
		v.pending = append(v.pending, v.Image.Init)
	}
	v.pending = append(v.pending, v.Image.Entry)
	v.Halted = false
	v.Result = Void()
	v.Steps = 0
	v.PC = 0
}

func (v *VM) outputSink() io.Writer {
	if v.Output != nil {
		return v.Output
	}
	return os.Stdout
}

// Global returns the current value of the global called name.
func (v *VM) Global(name string) (Value, bool) {
	for i, g := range v.Image.Globals {
		if g.Name == name {
			return v.globals[i], true
		}
	}
	return Value{}, false
}

// Run steps the machine until the entry point returns, ctx is done or the
// step budget runs out.
func (v *VM) Run(ctx context.Context) error {
	for !v.Halted {
		if v.Steps&1023 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if v.MaxSteps > 0 && v.Steps >= v.MaxSteps {
			return v.fault(ErrStepBudget, "%v after %d steps", ErrStepBudget, v.Steps)
		}
		if err := v.Step(); err != nil {
			return err
		}
	}
	return nil
}

func (v *VM) fault(err error, format string, args ...any) *RuntimeError {
	return &RuntimeError{PC: v.PC, Line: v.Image.Line(v.PC), Msg: fmt.Sprintf(format, args...), Err: err}
}

var (
	errStack    = errors.New("stack fault")
	errType     = errors.New("type fault")
	errNil      = errors.New("nil dereference")
	errIndex    = errors.New("index out of range")
	errDivision = errors.New("division by zero")
	errOpcode   = errors.New("unknown opcode")
)

func (v *VM) limit() int {
	if v.StackLimit <= 0 {
		return DefaultStackLimit
	}
	return v.StackLimit
}

func (v *VM) push(val Value) error {
	if len(v.stack) >= v.limit() {
		return v.fault(errStack, "stack overflow")
	}
	v.stack = append(v.stack, val)
	return nil
}

func (v *VM) pop() (Value, error) {
	f := v.frames[len(v.frames)-1]
	if len(v.stack) <= f.base {
		return Value{}, v.fault(errStack, "stack underflow")
	}
	val := v.stack[len(v.stack)-1]
	v.stack = v.stack[:len(v.stack)-1]
	return val, nil
}

func (v *VM) pop2() (Value, Value, error) {
	y, err := v.pop()
	if err != nil {
		return Value{}, Value{}, err
	}
	x, err := v.pop()
	return x, y, err
}

// call enters function fn with its arguments already on the stack.
func (v *VM) call(fn int, ret int) error {
	if fn < 0 || fn >= len(v.Image.Funcs) {
		return v.fault(errOpcode, "call to unknown function %d", fn)
	}
	def := &v.Image.Funcs[fn]
	n := len(def.Params)
	base := len(v.stack) - n
	if len(v.frames) > 0 && base < v.frames[len(v.frames)-1].base {
		return v.fault(errStack, "stack underflow calling %s", def.Name)
	}
	args := make([]Value, n)
	copy(args, v.stack[base:])
	v.stack = v.stack[:base]

	if def.Builtin {
		res, err := intrinsics[def.Name](v, args)
		if err != nil {
			return v.fault(err, "%s: %v", def.Name, err)
		}
		v.PC = ret
		return v.push(res)
	}

	if len(v.frames) >= v.limit() {
		return v.fault(errStack, "call stack overflow in %s", def.Name)
	}
	f := &frame{fn: def, args: args, ret: ret, base: base}
	f.locals = make([]Value, len(def.Locals))
	for i, l := range def.Locals {
		f.locals[i] = v.Image.Zero(l.Type)
	}
	v.frames = append(v.frames, f)
	v.PC = def.Addr
	return nil
}

// start enters the next queued top-level function or halts.
func (v *VM) start() error {
	if len(v.pending) == 0 {
		v.Halted = true
		return nil
	}
	fn := v.pending[0]
	v.pending = v.pending[1:]
	if v.Image.Funcs[fn].Builtin || len(v.Image.Funcs[fn].Params) > 0 {
		return v.fault(errType, "%s cannot be run directly", v.Image.Funcs[fn].Name)
	}
	return v.call(fn, -1)
}

func (v *VM) operand() int64 {
	return int64(binary.LittleEndian.Uint64(v.Image.Code[v.PC+1:]))
}

// Step executes one instruction.
func (v *VM) Step() error {
	if v.Halted {
		return nil
	}
	if len(v.frames) == 0 {
		return v.start()
	}
	code := v.Image.Code
	if v.PC < 0 || v.PC >= len(code) {
		return v.fault(errOpcode, "pc outside the code")
	}
	op := code[v.PC]
	if op >= opCount {
		return v.fault(errOpcode, "unknown opcode 0x%02x", op)
	}
	var arg int64
	if HasOperand(op) {
		if v.PC+9 > len(code) {
			return v.fault(errOpcode, "truncated %s", OpName(op))
		}
		arg = v.operand()
	}
	next := v.PC + InstrLen(op)
	v.Steps++
	f := v.frames[len(v.frames)-1]

	return v.exec(f, op, arg, next)
}

func (v *VM) exec(f *frame, op byte, arg int64, next int) error {
	jump := -1

	switch op {
	case OpNOP:

	case OpPUSHI:
		if err := v.push(Int(arg)); err != nil {
			return err
		}
	case OpPUSHF:
		if err := v.push(Float(math.Float64frombits(uint64(arg)))); err != nil {
			return err
		}
	case OpPUSHS:
		if arg < 0 || int(arg) >= len(v.Image.Strings) {
			return v.fault(errIndex, "string %d out of range", arg)
		}
		if err := v.push(String(v.Image.Strings[arg])); err != nil {
			return err
		}
	case OpPUSHV:
		if err := v.push(Void()); err != nil {
			return err
		}
	case OpPOP:
		if _, err := v.pop(); err != nil {
			return err
		}
	case OpDUP:
		x, err := v.pop()
		if err != nil {
			return err
		}
		v.stack = append(v.stack, x)
		if err := v.push(x.Clone()); err != nil {
			return err
		}
	case OpDUPX1:
		// x y -> y x y
		x, y, err := v.pop2()
		if err != nil {
			return err
		}
		v.stack = append(v.stack, y.Clone(), x)
		if err := v.push(y); err != nil {
			return err
		}

	case OpLDLOC, OpSTLOC, OpLDLOCA:
		if arg < 0 || int(arg) >= len(f.locals) {
			return v.fault(errIndex, "local %d out of range", arg)
		}
		if err := v.slot(op, &f.locals[arg], OpLDLOC, OpSTLOC); err != nil {
			return err
		}
	case OpLDARG, OpSTARG, OpLDARGA:
		if arg < 0 || int(arg) >= len(f.args) {
			return v.fault(errIndex, "argument %d out of range", arg)
		}
		if err := v.slot(op, &f.args[arg], OpLDARG, OpSTARG); err != nil {
			return err
		}
	case OpLDGLOB, OpSTGLOB, OpLDGLOBA:
		if arg < 0 || int(arg) >= len(v.globals) {
			return v.fault(errIndex, "global %d out of range", arg)
		}
		if err := v.slot(op, &v.globals[arg], OpLDGLOB, OpSTGLOB); err != nil {
			return err
		}

	case OpLDIND, OpLDOBJ:
		r, err := v.popRef()
		if err != nil {
			return err
		}
		if op == OpLDOBJ && r.Cell.Kind != KindRecord {
			return v.fault(errType, "LDOBJ of %s", r.Cell.Kind)
		}
		if err := v.push(r.Cell.Clone()); err != nil {
			return err
		}
	case OpSTIND:
		val, err := v.pop()
		if err != nil {
			return err
		}
		r, err := v.popRef()
		if err != nil {
			return err
		}
		*r.Cell = val
	case OpLDFLD:
		x, err := v.pop()
		if err != nil {
			return err
		}
		field, err := v.field(x, arg)
		if err != nil {
			return err
		}
		if err := v.push(field.Clone()); err != nil {
			return err
		}
	case OpLDFLDA:
		r, err := v.popRef()
		if err != nil {
			return err
		}
		field, err := v.field(*r.Cell, arg)
		if err != nil {
			return err
		}
		if err := v.push(RefTo(Ref{Cell: field})); err != nil {
			return err
		}
	case OpLDELEM, OpLDELEMA:
		base, idx, err := v.pop2()
		if err != nil {
			return err
		}
		r, err := v.element(base, idx)
		if err != nil {
			return err
		}
		res := RefTo(r)
		if op == OpLDELEM {
			res = r.Cell.Clone()
		}
		if err := v.push(res); err != nil {
			return err
		}

	case OpADD, OpSUB, OpMUL, OpDIV, OpMOD, OpAND, OpOR, OpXOR, OpSHL, OpSHR,
		OpCEQ, OpCNE, OpCLT, OpCLE, OpCGT, OpCGE:
		x, y, err := v.pop2()
		if err != nil {
			return err
		}
		res, err := v.arith(op, x, y)
		if err != nil {
			return err
		}
		if err := v.push(res); err != nil {
			return err
		}
	case OpNEG, OpNOT, OpLNOT, OpCONVI, OpCONVF:
		x, err := v.pop()
		if err != nil {
			return err
		}
		res, err := v.unary(op, x)
		if err != nil {
			return err
		}
		if err := v.push(res); err != nil {
			return err
		}

	case OpBR:
		jump = int(arg)
	case OpBRTRUE, OpBRFALSE:
		x, err := v.pop()
		if err != nil {
			return err
		}
		if x.Truthy() == (op == OpBRTRUE) {
			jump = int(arg)
		}
	case OpCALL:
		return v.call(int(arg), next)
	case OpRET:
		res, err := v.pop()
		if err != nil {
			return err
		}
		v.stack = v.stack[:f.base]
		v.frames = v.frames[:len(v.frames)-1]
		if f.ret < 0 {
			v.Result = res
			return v.start()
		}
		v.PC = f.ret
		return v.push(res)

	default:
		return v.fault(errOpcode, "unknown opcode 0x%02x", op)
	}

	if jump >= 0 {
		v.PC = jump
	} else {
		v.PC = next
	}
	return nil
}

// slot runs a load, store or address instruction against cell.
func (v *VM) slot(op byte, cell *Value, load, store byte) error {
	switch op {
	case load:
		return v.push(cell.Clone())
	case store:
		val, err := v.pop()
		if err != nil {
			return err
		}
		*cell = val
		return nil
	}
	return v.push(RefTo(Ref{Cell: cell}))
}

func (v *VM) popRef() (Ref, error) {
	x, err := v.pop()
	if err != nil {
		return Ref{}, err
	}
	if x.Kind != KindRef {
		return Ref{}, v.fault(errType, "%s used as a reference", x.Kind)
	}
	if x.Ref.Cell == nil {
		return Ref{}, v.fault(errNil, "nil dereference")
	}
	return x.Ref, nil
}

func (v *VM) field(x Value, n int64) (*Value, error) {
	if x.Kind != KindRecord {
		return nil, v.fault(errType, "field access on %s", x.Kind)
	}
	if n < 0 || int(n) >= len(x.R.Fields) {
		return nil, v.fault(errIndex, "field %d out of range", n)
	}
	return &x.R.Fields[n], nil
}

// element resolves base[idx]. base is an array, or a reference that is
// indexed relative to the element it points at.
func (v *VM) element(base, idx Value) (Ref, error) {
	if idx.Kind != KindInt {
		return Ref{}, v.fault(errType, "index of type %s", idx.Kind)
	}
	var arr *Array
	i := idx.I
	switch base.Kind {
	case KindArray:
		arr = base.A
	case KindRef:
		r := base.Ref
		if r.Cell == nil {
			return Ref{}, v.fault(errNil, "nil dereference")
		}
		if r.Base == nil {
			if i != 0 {
				return Ref{}, v.fault(errIndex, "index %d out of range [0:1]", i)
			}
			return r, nil
		}
		arr = r.Base
		i += int64(r.Index)
	default:
		return Ref{}, v.fault(errType, "indexing %s", base.Kind)
	}
	if i < 0 || i >= int64(len(arr.Elems)) {
		return Ref{}, v.fault(errIndex, "index %d out of range [0:%d]", i, len(arr.Elems))
	}
	return Ref{Cell: &arr.Elems[i], Base: arr, Index: int(i)}, nil
}

func (v *VM) arith(op byte, x, y Value) (Value, error) {
	switch {
	case x.Kind == KindInt && y.Kind == KindInt:
		a, b := x.I, y.I
		switch op {
		case OpADD:
			return Int(a + b), nil
		case OpSUB:
			return Int(a - b), nil
		case OpMUL:
			return Int(a * b), nil
		case OpDIV, OpMOD:
			if b == 0 {
				return Value{}, v.fault(errDivision, "division by zero")
			}
			if op == OpDIV {
				return Int(a / b), nil
			}
			return Int(a % b), nil
		case OpAND:
			return Int(a & b), nil
		case OpOR:
			return Int(a | b), nil
		case OpXOR:
			return Int(a ^ b), nil
		case OpSHL:
			return Int(a << uint64(b&63)), nil
		case OpSHR:
			return Int(a >> uint64(b&63)), nil
		case OpCEQ:
			return boolValue(a == b), nil
		case OpCNE:
			return boolValue(a != b), nil
		case OpCLT:
			return boolValue(a < b), nil
		case OpCLE:
			return boolValue(a <= b), nil
		case OpCGT:
			return boolValue(a > b), nil
		case OpCGE:
			return boolValue(a >= b), nil
		}
	case x.Kind == KindFloat && y.Kind == KindFloat:
		a, b := x.F, y.F
		switch op {
		case OpADD:
			return Float(a + b), nil
		case OpSUB:
			return Float(a - b), nil
		case OpMUL:
			return Float(a * b), nil
		case OpDIV:
			return Float(a / b), nil
		case OpCEQ:
			return boolValue(a == b), nil
		case OpCNE:
			return boolValue(a != b), nil
		case OpCLT:
			return boolValue(a < b), nil
		case OpCLE:
			return boolValue(a <= b), nil
		case OpCGT:
			return boolValue(a > b), nil
		case OpCGE:
			return boolValue(a >= b), nil
		}
	case x.Kind == KindRef && y.Kind == KindRef:
		switch op {
		case OpCEQ:
			return boolValue(x.Ref.Cell == y.Ref.Cell), nil
		case OpCNE:
			return boolValue(x.Ref.Cell != y.Ref.Cell), nil
		}
	}
	return Value{}, v.fault(errType, "%s on %s and %s", OpName(op), x.Kind, y.Kind)
}

func (v *VM) unary(op byte, x Value) (Value, error) {
	switch op {
	case OpLNOT:
		return boolValue(!x.Truthy()), nil
	case OpNEG:
		switch x.Kind {
		case KindInt:
			return Int(-x.I), nil
		case KindFloat:
			return Float(-x.F), nil
		}
	case OpNOT:
		if x.Kind == KindInt {
			return Int(^x.I), nil
		}
	case OpCONVI:
		switch x.Kind {
		case KindInt:
			return x, nil
		case KindFloat:
			return Int(int64(x.F)), nil
		}
	case OpCONVF:
		switch x.Kind {
		case KindFloat:
			return x, nil
		case KindInt:
			return Float(float64(x.I)), nil
		}
	}
	return Value{}, v.fault(errType, "%s on %s", OpName(op), x.Kind)
}
