package vm

import (
	"github.com/wudi/jvmcore/internal/classfile"
	"github.com/wudi/jvmcore/internal/opcodes"
	"github.com/wudi/jvmcore/internal/values"
)

// execConstants handles the iconst/lconst/fconst/dconst family, bipush,
// sipush, and the three ldc variants (spec.md §1 opcode table: push a
// literal onto the operand stack).
func (m *Machine) execConstants(t *JavaThread, frame *Frame, inst Instruction) (bool, error) {
	switch inst.Op {
	case opcodes.AconstNull:
		return true, frame.Push(values.Null())
	case opcodes.IconstM1:
		return true, frame.Push(values.Int32(-1))
	case opcodes.Iconst0:
		return true, frame.Push(values.Int32(0))
	case opcodes.Iconst1:
		return true, frame.Push(values.Int32(1))
	case opcodes.Iconst2:
		return true, frame.Push(values.Int32(2))
	case opcodes.Iconst3:
		return true, frame.Push(values.Int32(3))
	case opcodes.Iconst4:
		return true, frame.Push(values.Int32(4))
	case opcodes.Iconst5:
		return true, frame.Push(values.Int32(5))
	case opcodes.Lconst0:
		return true, frame.PushCategory2(values.Int64(0))
	case opcodes.Lconst1:
		return true, frame.PushCategory2(values.Int64(1))
	case opcodes.Fconst0:
		return true, frame.Push(values.Float32(0))
	case opcodes.Fconst1:
		return true, frame.Push(values.Float32(1))
	case opcodes.Fconst2:
		return true, frame.Push(values.Float32(2))
	case opcodes.Dconst0:
		return true, frame.PushCategory2(values.Float64(0))
	case opcodes.Dconst1:
		return true, frame.PushCategory2(values.Float64(1))
	case opcodes.Bipush:
		return true, frame.Push(values.Int32(int32(s8(inst.Operands))))
	case opcodes.Sipush:
		return true, frame.Push(values.Int32(int32(s16(inst.Operands))))
	case opcodes.Ldc:
		return m.execLdc(t, frame, u8(inst.Operands), false)
	case opcodes.LdcW:
		return m.execLdc(t, frame, u16(inst.Operands), false)
	case opcodes.Ldc2W:
		return m.execLdc(t, frame, u16(inst.Operands), true)
	}
	return false, Decorate(ErrOpcodeNotImplemented, frame, inst)
}

// execLdc pushes the resolved constant-pool entry at index. wide is true
// for ldc2_w (long/double, a category-2 push); ldc/ldc_w push a single
// category-1 slot (int, float, String reference, or Class mirror).
func (m *Machine) execLdc(t *JavaThread, frame *Frame, index int, wide bool) (bool, error) {
	entry, err := cpEntry(frame, index)
	if err != nil {
		m.ThrowNew(t, m.Builtins.NoClassDefFoundError, "malformed ldc index %d", index)
		return false, nil
	}
	switch entry.Kind {
	case classfile.ConstInteger:
		return true, frame.Push(values.Int32(entry.Int32))
	case classfile.ConstFloat:
		return true, frame.Push(values.Float32(entry.Float32))
	case classfile.ConstLong:
		return true, frame.PushCategory2(values.Int64(entry.Int64))
	case classfile.ConstDouble:
		return true, frame.PushCategory2(values.Float64(entry.Float64))
	case classfile.ConstString:
		v := entry.Resolve(func() values.Slot { return values.Ref(m.Builtins.NewString(entry.Utf8)) })
		return true, frame.Push(v)
	case classfile.ConstClass:
		cls, ok := m.resolveClassRef(t, frame, index)
		if !ok {
			return false, nil
		}
		v := entry.Resolve(func() values.Slot { return values.Ref(cls.Mirror()) })
		return true, frame.Push(v)
	}
	if wide {
		return true, frame.PushCategory2(values.Int64(0))
	}
	return true, frame.Push(values.Null())
}
