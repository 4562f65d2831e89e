package vm

import (
	"encoding/binary"

	"github.com/wudi/jvmcore/internal/opcodes"
	"github.com/wudi/jvmcore/internal/values"
)

// execBranch handles the comparison-producing opcodes (lcmp/fcmpl/
// fcmpg/dcmpl/dcmpg), every conditional and unconditional branch, and the
// two switch forms. Branch offsets are always relative to the branching
// instruction's own opcode address (JVMS §3: "the target address... is
// computed by adding the... offset to the address of the opcode"), which
// is why handlers key off inst.InstrPC rather than inst.NextPC.
func (m *Machine) execBranch(t *JavaThread, frame *Frame, inst Instruction) (bool, error) {
	switch inst.Op {
	case opcodes.Lcmp:
		b, err := frame.PopCategory2()
		if err != nil {
			return false, err
		}
		a, err := frame.PopCategory2()
		if err != nil {
			return false, err
		}
		return true, frame.Push(values.Int32(cmp3(a.I64 < b.I64, a.I64 == b.I64)))
	case opcodes.Fcmpl, opcodes.Fcmpg:
		b, err := frame.Pop()
		if err != nil {
			return false, err
		}
		a, err := frame.Pop()
		if err != nil {
			return false, err
		}
		return true, frame.Push(values.Int32(cmpFloat(float64(a.F32), float64(b.F32), inst.Op == opcodes.Fcmpg)))
	case opcodes.Dcmpl, opcodes.Dcmpg:
		b, err := frame.PopCategory2()
		if err != nil {
			return false, err
		}
		a, err := frame.PopCategory2()
		if err != nil {
			return false, err
		}
		return true, frame.Push(values.Int32(cmpFloat(a.F64, b.F64, inst.Op == opcodes.Dcmpg)))

	case opcodes.Ifeq, opcodes.Ifne, opcodes.Iflt, opcodes.Ifge, opcodes.Ifgt, opcodes.Ifle:
		v, err := frame.Pop()
		if err != nil {
			return false, err
		}
		return m.branchIf(frame, inst, testInt(inst.Op, v.I32, 0))
	case opcodes.IfIcmpeq, opcodes.IfIcmpne, opcodes.IfIcmplt, opcodes.IfIcmpge,
		opcodes.IfIcmpgt, opcodes.IfIcmple:
		b, err := frame.Pop()
		if err != nil {
			return false, err
		}
		a, err := frame.Pop()
		if err != nil {
			return false, err
		}
		return m.branchIf(frame, inst, testIcmp(inst.Op, a.I32, b.I32))
	case opcodes.IfAcmpeq, opcodes.IfAcmpne:
		b, err := frame.Pop()
		if err != nil {
			return false, err
		}
		a, err := frame.Pop()
		if err != nil {
			return false, err
		}
		same := values.SameObject(a.Ref, b.Ref)
		if inst.Op == opcodes.IfAcmpne {
			same = !same
		}
		return m.branchIf(frame, inst, same)
	case opcodes.Ifnull, opcodes.Ifnonnull:
		v, err := frame.Pop()
		if err != nil {
			return false, err
		}
		isNull := v.Ref == nil
		if inst.Op == opcodes.Ifnonnull {
			isNull = !isNull
		}
		return m.branchIf(frame, inst, isNull)

	case opcodes.Goto:
		frame.PC = inst.InstrPC + s16(inst.Operands)
		return false, nil
	case opcodes.GotoW:
		frame.PC = inst.InstrPC + int(s32(inst.Operands))
		return false, nil
	case opcodes.Jsr:
		if err := frame.Push(values.Int32(int32(inst.NextPC))); err != nil {
			return false, err
		}
		frame.PC = inst.InstrPC + s16(inst.Operands)
		return false, nil
	case opcodes.JsrW:
		if err := frame.Push(values.Int32(int32(inst.NextPC))); err != nil {
			return false, err
		}
		frame.PC = inst.InstrPC + int(s32(inst.Operands))
		return false, nil
	case opcodes.Ret:
		addr, err := frame.Load(localIndex(inst))
		if err != nil {
			return false, err
		}
		frame.PC = int(addr.I32)
		return false, nil

	case opcodes.Tableswitch:
		return m.execTableswitch(frame, inst)
	case opcodes.Lookupswitch:
		return m.execLookupswitch(frame, inst)
	}
	return false, Decorate(ErrOpcodeNotImplemented, frame, inst)
}

// branchIf sets frame.PC to the branch target when taken, or leaves it
// alone (reporting advance=true) otherwise.
func (m *Machine) branchIf(frame *Frame, inst Instruction, taken bool) (bool, error) {
	if !taken {
		return true, nil
	}
	frame.PC = inst.InstrPC + s16(inst.Operands)
	return false, nil
}

func cmp3(lt, eq bool) int32 {
	switch {
	case eq:
		return 0
	case lt:
		return -1
	default:
		return 1
	}
}

// cmpFloat implements fcmpg/fcmpl/dcmpg/dcmpl: nanIsOne selects which
// direction NaN compares as, per JVMS §3.11.3 (fcmpg/dcmpg push 1 on NaN,
// fcmpl/dcmpl push -1).
func cmpFloat(a, b float64, nanIsOne bool) int32 {
	if a != a || b != b { // either is NaN
		if nanIsOne {
			return 1
		}
		return -1
	}
	return cmp3(a < b, a == b)
}

func testInt(op opcodes.Opcode, a, b int32) bool {
	switch op {
	case opcodes.Ifeq:
		return a == b
	case opcodes.Ifne:
		return a != b
	case opcodes.Iflt:
		return a < b
	case opcodes.Ifge:
		return a >= b
	case opcodes.Ifgt:
		return a > b
	case opcodes.Ifle:
		return a <= b
	}
	return false
}

func testIcmp(op opcodes.Opcode, a, b int32) bool {
	switch op {
	case opcodes.IfIcmpeq:
		return a == b
	case opcodes.IfIcmpne:
		return a != b
	case opcodes.IfIcmplt:
		return a < b
	case opcodes.IfIcmpge:
		return a >= b
	case opcodes.IfIcmpgt:
		return a > b
	case opcodes.IfIcmple:
		return a <= b
	}
	return false
}

// execTableswitch reads the decoded [default(4) low(4) high(4)
// offsets(4*n)] operand block FetchInstruction assembled (already past the
// alignment padding) and branches to the entry for the popped index, or to
// default if it falls outside [low, high].
func (m *Machine) execTableswitch(frame *Frame, inst Instruction) (bool, error) {
	key, err := frame.Pop()
	if err != nil {
		return false, err
	}
	ops := inst.Operands
	def := int32(binary.BigEndian.Uint32(ops[0:4]))
	low := int32(binary.BigEndian.Uint32(ops[4:8]))
	high := int32(binary.BigEndian.Uint32(ops[8:12]))
	offset := def
	if key.I32 >= low && key.I32 <= high {
		idx := int(key.I32-low) * 4
		offset = int32(binary.BigEndian.Uint32(ops[12+idx : 16+idx]))
	}
	frame.PC = inst.InstrPC + int(offset)
	return false, nil
}

// execLookupswitch reads [default(4) npairs(4) (match(4) offset(4))*n],
// sorted ascending by match per JVMS §3.3, and branches to the offset of
// the pair whose match equals the popped key, or to default.
func (m *Machine) execLookupswitch(frame *Frame, inst Instruction) (bool, error) {
	key, err := frame.Pop()
	if err != nil {
		return false, err
	}
	ops := inst.Operands
	def := int32(binary.BigEndian.Uint32(ops[0:4]))
	npairs := int(binary.BigEndian.Uint32(ops[4:8]))
	offset := def
	for i := 0; i < npairs; i++ {
		base := 8 + i*8
		match := int32(binary.BigEndian.Uint32(ops[base : base+4]))
		if match == key.I32 {
			offset = int32(binary.BigEndian.Uint32(ops[base+4 : base+8]))
			break
		}
	}
	frame.PC = inst.InstrPC + int(offset)
	return false, nil
}
