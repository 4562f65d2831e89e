package vm

import "github.com/wudi/jvmcore/internal/opcodes"

// execReturn pops the current frame off the thread's frame stack and
// records its return value (if any) for the caller to unmarshal — the
// set_return step of spec.md §4.1/§4.4 step 6. Monitor release for a
// synchronized method happens one level up, in Invoke's invokeBytecode,
// once RunUntilDepth confirms the frame returned normally rather than via
// an exception unwind (which releases it in Unwind instead); duplicating
// that release here would double-unlock a reentrant monitor.
func (m *Machine) execReturn(t *JavaThread, frame *Frame, inst Instruction) (bool, error) {
	switch inst.Op {
	case opcodes.Ireturn, opcodes.Freturn, opcodes.Areturn:
		v, err := frame.Pop()
		if err != nil {
			return false, err
		}
		frame.SetReturn(v)
	case opcodes.Lreturn, opcodes.Dreturn:
		v, err := frame.PopCategory2()
		if err != nil {
			return false, err
		}
		frame.SetReturn(v)
	case opcodes.Return:
		// void: no value to carry.
	default:
		return false, Decorate(ErrOpcodeNotImplemented, frame, inst)
	}
	t.PopFrame()
	return false, nil
}
