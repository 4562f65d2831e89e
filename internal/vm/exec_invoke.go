package vm

import (
	"github.com/wudi/jvmcore/internal/classfile"
	"github.com/wudi/jvmcore/internal/opcodes"
	"github.com/wudi/jvmcore/internal/values"
)

// execInvoke handles the five invocation opcodes, resolving the
// constant-pool target and delegating the actual call protocol to
// Machine.Invoke (spec.md §4.4). The opcode only decides dispatch mode and
// unmarshals arguments off the operand stack in descriptor order.
func (m *Machine) execInvoke(t *JavaThread, frame *Frame, inst Instruction) (bool, error) {
	switch inst.Op {
	case opcodes.Invokestatic:
		target, ok := m.resolveMethodRef(t, frame, u16(inst.Operands))
		if !ok {
			return false, nil
		}
		args, err := popArgs(frame, target.Descriptor)
		if err != nil {
			return false, err
		}
		if !m.ensureInitialized(t, target.Class) {
			return false, nil
		}
		if err := m.Invoke(t, frame, target, DispatchStatic, nil, args); err != nil {
			return false, err
		}
		return !t.HasException(), nil

	case opcodes.Invokespecial:
		target, ok := m.resolveMethodRef(t, frame, u16(inst.Operands))
		if !ok {
			return false, nil
		}
		args, err := popArgs(frame, target.Descriptor)
		if err != nil {
			return false, err
		}
		recv, err := frame.Pop()
		if err != nil {
			return false, err
		}
		if err := m.Invoke(t, frame, target, DispatchSpecial, recv.Ref, args); err != nil {
			return false, err
		}
		return !t.HasException(), nil

	case opcodes.Invokevirtual:
		target, ok := m.resolveMethodRef(t, frame, u16(inst.Operands))
		if !ok {
			return false, nil
		}
		args, err := popArgs(frame, target.Descriptor)
		if err != nil {
			return false, err
		}
		recv, err := frame.Pop()
		if err != nil {
			return false, err
		}
		if err := m.Invoke(t, frame, target, DispatchVirtual, recv.Ref, args); err != nil {
			return false, err
		}
		return !t.HasException(), nil

	case opcodes.Invokeinterface:
		target, ok := m.resolveMethodRef(t, frame, u16(inst.Operands[0:2]))
		if !ok {
			return false, nil
		}
		args, err := popArgs(frame, target.Descriptor)
		if err != nil {
			return false, err
		}
		recv, err := frame.Pop()
		if err != nil {
			return false, err
		}
		if err := m.Invoke(t, frame, target, DispatchInterface, recv.Ref, args); err != nil {
			return false, err
		}
		return !t.HasException(), nil

	case opcodes.Invokedynamic:
		// Bootstrap-method linkage (JVMS §4.7.23) is inseparable from
		// classfile constant-pool byte layout, which is out of scope; no
		// bootstrap dispatch sites exist to resolve this against.
		return false, Decorate(ErrOpcodeNotImplemented, frame, inst)
	}
	return false, Decorate(ErrOpcodeNotImplemented, frame, inst)
}

// popArgs pops a call's arguments off frame's operand stack in reverse,
// reassembling them in descriptor (left-to-right) order. The receiver, if
// any, is popped separately by the caller since static calls have none.
func popArgs(frame *Frame, desc *classfile.Descriptor) ([]values.Slot, error) {
	args := make([]values.Slot, len(desc.Params))
	for i := len(desc.Params) - 1; i >= 0; i-- {
		var v values.Slot
		var err error
		if desc.Params[i].IsCategory2() {
			v, err = frame.PopCategory2()
		} else {
			v, err = frame.Pop()
		}
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return args, nil
}

// execAthrow raises the popped exception, or NullPointerException if the
// slot held null (JVMS §6.5 athrow). It never advances the pc: the thrown
// instruction's own address is what the exception table is matched
// against (spec.md §4.6).
func (m *Machine) execAthrow(t *JavaThread, frame *Frame, inst Instruction) (bool, error) {
	v, err := frame.Pop()
	if err != nil {
		return false, err
	}
	if v.Ref == nil {
		m.NullPointerException(t, "cannot throw exception because the thrown value is null")
		return false, nil
	}
	m.ThrowRef(t, v.Ref)
	return false, nil
}

// execMonitor handles the explicit monitorenter/monitorexit opcodes
// (synchronized blocks, as opposed to synchronized methods which Invoke
// handles around the call itself).
func (m *Machine) execMonitor(t *JavaThread, frame *Frame, inst Instruction) (bool, error) {
	v, err := frame.Pop()
	if err != nil {
		return false, err
	}
	if v.Ref == nil {
		m.NullPointerException(t, "cannot enter synchronized block because the object is null")
		return false, nil
	}
	switch inst.Op {
	case opcodes.Monitorenter:
		v.Ref.Object().Monitor.Enter(t.ID())
		return true, nil
	case opcodes.Monitorexit:
		if !v.Ref.Object().Monitor.Exit(t.ID()) {
			m.IllegalMonitorStateException(t, "current thread does not own the monitor")
			return false, nil
		}
		return true, nil
	}
	return false, Decorate(ErrOpcodeNotImplemented, frame, inst)
}
