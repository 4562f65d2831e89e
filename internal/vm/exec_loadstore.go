package vm

import "github.com/wudi/jvmcore/internal/opcodes"

// execLoadStore handles the xload/xstore families (indexed and the _0.._3
// shorthands), iinc, and their wide-prefixed 2-byte-index variants
// (spec.md §1: "wide: doubles the index width of the single following
// load/store/iinc/ret instruction").
func (m *Machine) execLoadStore(t *JavaThread, frame *Frame, inst Instruction) (bool, error) {
	switch inst.Op {
	case opcodes.Iload, opcodes.Fload, opcodes.Aload:
		return m.loadOne(frame, localIndex(inst))
	case opcodes.Lload, opcodes.Dload:
		return m.loadTwo(frame, localIndex(inst))
	case opcodes.Iload0, opcodes.Fload0, opcodes.Aload0:
		return m.loadOne(frame, 0)
	case opcodes.Iload1, opcodes.Fload1, opcodes.Aload1:
		return m.loadOne(frame, 1)
	case opcodes.Iload2, opcodes.Fload2, opcodes.Aload2:
		return m.loadOne(frame, 2)
	case opcodes.Iload3, opcodes.Fload3, opcodes.Aload3:
		return m.loadOne(frame, 3)
	case opcodes.Lload0, opcodes.Dload0:
		return m.loadTwo(frame, 0)
	case opcodes.Lload1, opcodes.Dload1:
		return m.loadTwo(frame, 1)
	case opcodes.Lload2, opcodes.Dload2:
		return m.loadTwo(frame, 2)
	case opcodes.Lload3, opcodes.Dload3:
		return m.loadTwo(frame, 3)

	case opcodes.Istore, opcodes.Fstore, opcodes.Astore:
		return m.storeOne(frame, localIndex(inst))
	case opcodes.Lstore, opcodes.Dstore:
		return m.storeTwo(frame, localIndex(inst))
	case opcodes.Istore0, opcodes.Fstore0, opcodes.Astore0:
		return m.storeOne(frame, 0)
	case opcodes.Istore1, opcodes.Fstore1, opcodes.Astore1:
		return m.storeOne(frame, 1)
	case opcodes.Istore2, opcodes.Fstore2, opcodes.Astore2:
		return m.storeOne(frame, 2)
	case opcodes.Istore3, opcodes.Fstore3, opcodes.Astore3:
		return m.storeOne(frame, 3)
	case opcodes.Lstore0, opcodes.Dstore0:
		return m.storeTwo(frame, 0)
	case opcodes.Lstore1, opcodes.Dstore1:
		return m.storeTwo(frame, 1)
	case opcodes.Lstore2, opcodes.Dstore2:
		return m.storeTwo(frame, 2)
	case opcodes.Lstore3, opcodes.Dstore3:
		return m.storeTwo(frame, 3)

	case opcodes.Iinc:
		return m.execIinc(frame, inst)
	}
	return false, Decorate(ErrOpcodeNotImplemented, frame, inst)
}

// localIndex decodes a load/store's index operand: one byte ordinarily,
// two bytes when a wide prefix preceded it (the only difference
// FetchInstruction's width table makes for these opcodes).
func localIndex(inst Instruction) int {
	if len(inst.Operands) == 2 {
		return u16(inst.Operands)
	}
	return u8(inst.Operands)
}

func (m *Machine) loadOne(frame *Frame, idx int) (bool, error) {
	s, err := frame.Load(idx)
	if err != nil {
		return false, err
	}
	return true, frame.Push(s)
}

func (m *Machine) loadTwo(frame *Frame, idx int) (bool, error) {
	s, err := frame.LoadCategory2(idx)
	if err != nil {
		return false, err
	}
	return true, frame.PushCategory2(s)
}

func (m *Machine) storeOne(frame *Frame, idx int) (bool, error) {
	s, err := frame.Pop()
	if err != nil {
		return false, err
	}
	return true, frame.Store(idx, s)
}

func (m *Machine) storeTwo(frame *Frame, idx int) (bool, error) {
	s, err := frame.PopCategory2()
	if err != nil {
		return false, err
	}
	return true, frame.StoreCategory2(idx, s)
}

// execIinc increments a local int variable in place by a signed constant,
// without touching the operand stack. Operands are either (index u1,
// const s1) or, wide-prefixed, (index u2, const s2).
func (m *Machine) execIinc(frame *Frame, inst Instruction) (bool, error) {
	var idx int
	var delta int32
	if len(inst.Operands) == 4 {
		idx = u16(inst.Operands[0:2])
		delta = int32(s16(inst.Operands[2:4]))
	} else {
		idx = u8(inst.Operands[0:1])
		delta = int32(s8(inst.Operands[1:2]))
	}
	s, err := frame.Load(idx)
	if err != nil {
		return false, err
	}
	s.I32 += delta
	return true, frame.Store(idx, s)
}
