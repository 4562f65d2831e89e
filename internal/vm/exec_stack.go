package vm

import (
	"github.com/wudi/jvmcore/internal/opcodes"
	"github.com/wudi/jvmcore/internal/values"
)

// execStack handles pop/pop2/dup*/swap. Because category-2 values already
// occupy two adjacent stack slots in this interpreter's representation
// (the value, then a Top marker — see values.Slot), these opcodes can be
// defined purely in terms of raw stack words exactly as JVMS §3.11.3 does,
// with no separate category-2 case to special-case.
func (m *Machine) execStack(t *JavaThread, frame *Frame, inst Instruction) (bool, error) {
	switch inst.Op {
	case opcodes.Pop:
		_, err := frame.Pop()
		return true, err
	case opcodes.Pop2:
		if _, err := frame.Pop(); err != nil {
			return false, err
		}
		_, err := frame.Pop()
		return true, err
	case opcodes.Dup:
		return dupWords(frame, 1, 0)
	case opcodes.DupX1:
		return dupWords(frame, 1, 1)
	case opcodes.DupX2:
		return dupWords(frame, 1, 2)
	case opcodes.Dup2:
		return dupWords(frame, 2, 0)
	case opcodes.Dup2X1:
		return dupWords(frame, 2, 1)
	case opcodes.Dup2X2:
		return dupWords(frame, 2, 2)
	case opcodes.Swap:
		return swapWords(frame)
	}
	return false, Decorate(ErrOpcodeNotImplemented, frame, inst)
}

// dupWords implements the dup family uniformly: the top n words are
// duplicated and the copy is reinserted skip words further down the
// stack. n=1 is dup/dup_x1/dup_x2; n=2 is dup2/dup2_x1/dup2_x2; skip is
// the x1/x2 depth (0, 1, or 2).
func dupWords(frame *Frame, n, skip int) (bool, error) {
	need := n + skip
	if frame.Depth() < need {
		return false, &StackUnderflowBug{}
	}
	stack := frame.stack
	base := len(stack) - need
	top := append([]values.Slot{}, stack[len(stack)-n:]...)

	out := make([]values.Slot, 0, len(stack)+n)
	out = append(out, stack[:base]...)
	out = append(out, top...)
	out = append(out, stack[base:]...)
	frame.stack = out
	return true, nil
}

// swapWords exchanges the top two single words (swap is defined only for
// two category-1 values; applying it to a category-2 operand would
// separate a value from its Top marker, which well-formed bytecode never
// does).
func swapWords(frame *Frame) (bool, error) {
	b, err := frame.Pop()
	if err != nil {
		return false, err
	}
	a, err := frame.Pop()
	if err != nil {
		return false, err
	}
	if err := frame.Push(b); err != nil {
		return false, err
	}
	return true, frame.Push(a)
}
