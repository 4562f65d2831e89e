package classfile

import (
	"fmt"

	"github.com/wudi/jvmcore/internal/opcodes"
)

// AsmInstr is one instruction in a textual assembly listing: a mnemonic
// plus whatever operand(s) that mnemonic needs. Branch targets are named
// labels rather than raw offsets, resolved by Assemble; this is the
// "thin test helper" boundary spec.md draws around classfile byte-layout
// parsing (no .class wire format is ever read — code arrives already
// assembled this way, or built directly as a []byte).
type AsmInstr struct {
	Op    string // mnemonic, per opcodes.ByName
	Arg   int    // local index / constant-pool index / immediate value / branch-offset override
	Arg2  int    // second operand: iinc's const, invokeinterface's count, multianewarray's dims
	Label string // defines a label at this instruction's address
	To    string // branch target label, for if*/goto/jsr/goto_w/jsr_w
}

// Assemble lowers instrs into raw bytecode. tableswitch/lookupswitch are
// not supported (their variable-length, alignment-padded encoding isn't
// worth a general assembler for the small hand-built programs this
// exists to serve); build their bytes directly when needed.
func Assemble(instrs []AsmInstr) ([]byte, error) {
	addrs := make([]int, len(instrs))
	labelAddr := map[string]int{}
	pc := 0
	for i, ins := range instrs {
		addrs[i] = pc
		if ins.Label != "" {
			labelAddr[ins.Label] = pc
		}
		op, ok := opcodes.ByName(ins.Op)
		if !ok {
			return nil, fmt.Errorf("classfile: assemble: unknown mnemonic %q", ins.Op)
		}
		width := opcodes.OperandWidth(op)
		if width < 0 {
			return nil, fmt.Errorf("classfile: assemble: %q has variable-width operands, not supported", ins.Op)
		}
		pc += 1 + width
	}

	buf := make([]byte, 0, pc)
	for i, ins := range instrs {
		op, _ := opcodes.ByName(ins.Op)
		buf = append(buf, byte(op))
		width := opcodes.OperandWidth(op)
		switch width {
		case 0:
		case 1:
			buf = append(buf, byte(int8(ins.Arg)))
		case 2:
			if ins.To != "" {
				target, ok := labelAddr[ins.To]
				if !ok {
					return nil, fmt.Errorf("classfile: assemble: %s: unknown label %q", ins.Op, ins.To)
				}
				off := int16(target - addrs[i])
				buf = append(buf, byte(off>>8), byte(off))
			} else if op == opcodes.Iinc {
				buf = append(buf, byte(int8(ins.Arg)), byte(int8(ins.Arg2)))
			} else {
				buf = append(buf, byte(ins.Arg>>8), byte(ins.Arg))
			}
		case 3: // multianewarray: cp index (2) + dims (1)
			buf = append(buf, byte(ins.Arg>>8), byte(ins.Arg), byte(ins.Arg2))
		case 4:
			if ins.To != "" {
				target, ok := labelAddr[ins.To]
				if !ok {
					return nil, fmt.Errorf("classfile: assemble: %s: unknown label %q", ins.Op, ins.To)
				}
				off := int32(target - addrs[i])
				buf = append(buf, byte(off>>24), byte(off>>16), byte(off>>8), byte(off))
			} else if op == opcodes.GotoW || op == opcodes.JsrW {
				off := int32(ins.Arg)
				buf = append(buf, byte(off>>24), byte(off>>16), byte(off>>8), byte(off))
			} else { // invokeinterface: cp index (2) + count (1) + 0
				buf = append(buf, byte(ins.Arg>>8), byte(ins.Arg), byte(ins.Arg2), 0)
			}
		}
	}
	return buf, nil
}
