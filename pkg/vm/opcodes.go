package vm

// Opcodes. Every instruction is one opcode byte, followed by an 8 byte
// little-endian operand for the opcodes HasOperand reports.
const (
	OpNOP byte = iota
	OpPUSHI
	OpPUSHF
	OpPUSHS
	OpPUSHV
	OpPOP
	OpDUP
	OpDUPX1

	OpLDLOC
	OpSTLOC
	OpLDLOCA
	OpLDARG
	OpSTARG
	OpLDARGA
	OpLDGLOB
	OpSTGLOB
	OpLDGLOBA

	OpLDIND
	OpLDOBJ
	OpSTIND
	OpLDFLD
	OpLDFLDA
	OpLDELEM
	OpLDELEMA

	OpADD
	OpSUB
	OpMUL
	OpDIV
	OpMOD
	OpNEG
	OpAND
	OpOR
	OpXOR
	OpNOT
	OpLNOT
	OpSHL
	OpSHR

	OpCEQ
	OpCNE
	OpCLT
	OpCLE
	OpCGT
	OpCGE

	OpCONVI
	OpCONVF

	OpBR
	OpBRTRUE
	OpBRFALSE
	OpCALL
	OpRET

	opCount
)

var opNames = [opCount]string{
	OpNOP: "NOP", OpPUSHI: "PUSHI", OpPUSHF: "PUSHF", OpPUSHS: "PUSHS", OpPUSHV: "PUSHV",
	OpPOP: "POP", OpDUP: "DUP", OpDUPX1: "DUPX1",

	OpLDLOC: "LDLOC", OpSTLOC: "STLOC", OpLDLOCA: "LDLOCA",
	OpLDARG: "LDARG", OpSTARG: "STARG", OpLDARGA: "LDARGA",
	OpLDGLOB: "LDGLOB", OpSTGLOB: "STGLOB", OpLDGLOBA: "LDGLOBA",

	OpLDIND: "LDIND", OpLDOBJ: "LDOBJ", OpSTIND: "STIND",
	OpLDFLD: "LDFLD", OpLDFLDA: "LDFLDA", OpLDELEM: "LDELEM", OpLDELEMA: "LDELEMA",

	OpADD: "ADD", OpSUB: "SUB", OpMUL: "MUL", OpDIV: "DIV", OpMOD: "MOD", OpNEG: "NEG",
	OpAND: "AND", OpOR: "OR", OpXOR: "XOR", OpNOT: "NOT", OpLNOT: "LNOT",
	OpSHL: "SHL", OpSHR: "SHR",

	OpCEQ: "CEQ", OpCNE: "CNE", OpCLT: "CLT", OpCLE: "CLE", OpCGT: "CGT", OpCGE: "CGE",

	OpCONVI: "CONVI", OpCONVF: "CONVF",

	OpBR: "BR", OpBRTRUE: "BRTRUE", OpBRFALSE: "BRFALSE", OpCALL: "CALL", OpRET: "RET",
}

var opcodes = func() map[string]byte {
	m := make(map[string]byte, opCount)
	for op, name := range opNames {
		m[name] = byte(op)
	}
	return m
}()

// Lookup returns the opcode spelled name.
func Lookup(name string) (byte, bool) {
	op, ok := opcodes[name]
	return op, ok
}

// OpName returns the mnemonic of op.
func OpName(op byte) string {
	if op < opCount {
		return opNames[op]
	}
	return "???"
}

// HasOperand reports whether op is followed by an operand.
func HasOperand(op byte) bool {
	switch op {
	case OpPUSHI, OpPUSHF, OpPUSHS,
		OpLDLOC, OpSTLOC, OpLDLOCA,
		OpLDARG, OpSTARG, OpLDARGA,
		OpLDGLOB, OpSTGLOB, OpLDGLOBA,
		OpLDFLD, OpLDFLDA,
		OpBR, OpBRTRUE, OpBRFALSE, OpCALL:
		return true
	}
	return false
}

// InstrLen is the encoded size of an instruction with opcode op.
func InstrLen(op byte) int {
	if HasOperand(op) {
		return 9
	}
	return 1
}
