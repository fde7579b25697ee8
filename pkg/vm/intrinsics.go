package vm

import (
	"fmt"
)

// Intrinsic implements a builtin function. It receives the call arguments
// in order and returns the value the call leaves on the stack.
type Intrinsic func(v *VM, args []Value) (Value, error)

var intrinsics = map[string]Intrinsic{
	"print_string": printString,
	"print_int":    printInt,
}

var builtinParams = map[string]string{
	"print_string": "string",
	"print_int":    "int",
}

// IsIntrinsic reports whether name is a builtin the VM implements.
func IsIntrinsic(name string) bool {
	_, ok := intrinsics[name]
	return ok
}

// BuiltinDef returns the image entry that dispatches to the builtin name.
func BuiltinDef(name string) (FuncDef, bool) {
	param, ok := builtinParams[name]
	if !ok {
		return FuncDef{}, false
	}
	return FuncDef{
		Name:    name,
		Returns: "void",
		Params:  []Field{{Name: "value", Type: param}},
		Builtin: true,
	}, true
}

func printString(v *VM, args []Value) (Value, error) {
	if args[0].Kind != KindString {
		return Value{}, fmt.Errorf("argument is %s, not string", args[0].Kind)
	}
	_, err := fmt.Fprintln(v.outputSink(), args[0].S)
	return Void(), err
}

func printInt(v *VM, args []Value) (Value, error) {
	if args[0].Kind != KindInt {
		return Value{}, fmt.Errorf("argument is %s, not int", args[0].Kind)
	}
	_, err := fmt.Fprintln(v.outputSink(), args[0].I)
	return Void(), err
}
