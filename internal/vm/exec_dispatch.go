package vm

import (
	"github.com/wudi/jvmcore/internal/classfile"
	"github.com/wudi/jvmcore/internal/opcodes"
)

// execute decodes and runs one instruction, per spec.md §4.2's
// switch-on-opcode interpreter core. It returns whether the caller should
// advance frame.PC to inst.NextPC: handlers that branch, return, or
// raise an exception set PC (or the current-exception register)
// themselves and report false (an invoke reports true once the call
// completes without a pending exception), so RunUntilDepth never double-advances past
// a jump and never advances past a throwing instruction (spec.md §4.1,
// §4.6: "the pc at the moment of the throw... is never advanced").
func (m *Machine) execute(t *JavaThread, frame *Frame, inst Instruction) (bool, error) {
	switch inst.Op {
	case opcodes.Nop:
		return true, nil

	case opcodes.AconstNull, opcodes.IconstM1, opcodes.Iconst0, opcodes.Iconst1, opcodes.Iconst2,
		opcodes.Iconst3, opcodes.Iconst4, opcodes.Iconst5, opcodes.Lconst0, opcodes.Lconst1,
		opcodes.Fconst0, opcodes.Fconst1, opcodes.Fconst2, opcodes.Dconst0, opcodes.Dconst1,
		opcodes.Bipush, opcodes.Sipush, opcodes.Ldc, opcodes.LdcW, opcodes.Ldc2W:
		return m.execConstants(t, frame, inst)

	case opcodes.Iload, opcodes.Lload, opcodes.Fload, opcodes.Dload, opcodes.Aload,
		opcodes.Iload0, opcodes.Iload1, opcodes.Iload2, opcodes.Iload3,
		opcodes.Lload0, opcodes.Lload1, opcodes.Lload2, opcodes.Lload3,
		opcodes.Fload0, opcodes.Fload1, opcodes.Fload2, opcodes.Fload3,
		opcodes.Dload0, opcodes.Dload1, opcodes.Dload2, opcodes.Dload3,
		opcodes.Aload0, opcodes.Aload1, opcodes.Aload2, opcodes.Aload3,
		opcodes.Istore, opcodes.Lstore, opcodes.Fstore, opcodes.Dstore, opcodes.Astore,
		opcodes.Istore0, opcodes.Istore1, opcodes.Istore2, opcodes.Istore3,
		opcodes.Lstore0, opcodes.Lstore1, opcodes.Lstore2, opcodes.Lstore3,
		opcodes.Fstore0, opcodes.Fstore1, opcodes.Fstore2, opcodes.Fstore3,
		opcodes.Dstore0, opcodes.Dstore1, opcodes.Dstore2, opcodes.Dstore3,
		opcodes.Astore0, opcodes.Astore1, opcodes.Astore2, opcodes.Astore3, opcodes.Iinc:
		return m.execLoadStore(t, frame, inst)

	case opcodes.Iadd, opcodes.Ladd, opcodes.Fadd, opcodes.Dadd,
		opcodes.Isub, opcodes.Lsub, opcodes.Fsub, opcodes.Dsub,
		opcodes.Imul, opcodes.Lmul, opcodes.Fmul, opcodes.Dmul,
		opcodes.Idiv, opcodes.Ldiv, opcodes.Fdiv, opcodes.Ddiv,
		opcodes.Irem, opcodes.Lrem, opcodes.Frem, opcodes.Drem,
		opcodes.Ineg, opcodes.Lneg, opcodes.Fneg, opcodes.Dneg,
		opcodes.Ishl, opcodes.Lshl, opcodes.Ishr, opcodes.Lshr, opcodes.Iushr, opcodes.Lushr,
		opcodes.Iand, opcodes.Land, opcodes.Ior, opcodes.Lor, opcodes.Ixor, opcodes.Lxor:
		return m.execArith(t, frame, inst)

	case opcodes.I2l, opcodes.I2f, opcodes.I2d, opcodes.L2i, opcodes.L2f, opcodes.L2d,
		opcodes.F2i, opcodes.F2l, opcodes.F2d, opcodes.D2i, opcodes.D2l, opcodes.D2f,
		opcodes.I2b, opcodes.I2c, opcodes.I2s:
		return m.execConvert(t, frame, inst)

	case opcodes.Pop, opcodes.Pop2, opcodes.Dup, opcodes.DupX1, opcodes.DupX2,
		opcodes.Dup2, opcodes.Dup2X1, opcodes.Dup2X2, opcodes.Swap:
		return m.execStack(t, frame, inst)

	case opcodes.Lcmp, opcodes.Fcmpl, opcodes.Fcmpg, opcodes.Dcmpl, opcodes.Dcmpg,
		opcodes.Ifeq, opcodes.Ifne, opcodes.Iflt, opcodes.Ifge, opcodes.Ifgt, opcodes.Ifle,
		opcodes.IfIcmpeq, opcodes.IfIcmpne, opcodes.IfIcmplt, opcodes.IfIcmpge,
		opcodes.IfIcmpgt, opcodes.IfIcmple, opcodes.IfAcmpeq, opcodes.IfAcmpne,
		opcodes.Ifnull, opcodes.Ifnonnull,
		opcodes.Goto, opcodes.GotoW, opcodes.Jsr, opcodes.JsrW, opcodes.Ret,
		opcodes.Tableswitch, opcodes.Lookupswitch:
		return m.execBranch(t, frame, inst)

	case opcodes.Ireturn, opcodes.Lreturn, opcodes.Freturn, opcodes.Dreturn,
		opcodes.Areturn, opcodes.Return:
		return m.execReturn(t, frame, inst)

	case opcodes.New, opcodes.Getstatic, opcodes.Putstatic, opcodes.Getfield, opcodes.Putfield,
		opcodes.Instanceof, opcodes.Checkcast:
		return m.execObject(t, frame, inst)

	case opcodes.Newarray, opcodes.Anewarray, opcodes.Multianewarray, opcodes.Arraylength,
		opcodes.Iaload, opcodes.Laload, opcodes.Faload, opcodes.Daload, opcodes.Aaload,
		opcodes.Baload, opcodes.Caload, opcodes.Saload,
		opcodes.Iastore, opcodes.Lastore, opcodes.Fastore, opcodes.Dastore, opcodes.Aastore,
		opcodes.Bastore, opcodes.Castore, opcodes.Sastore:
		return m.execArray(t, frame, inst)

	case opcodes.Invokevirtual, opcodes.Invokespecial, opcodes.Invokestatic,
		opcodes.Invokeinterface, opcodes.Invokedynamic:
		return m.execInvoke(t, frame, inst)

	case opcodes.Athrow:
		return m.execAthrow(t, frame, inst)

	case opcodes.Monitorenter, opcodes.Monitorexit:
		return m.execMonitor(t, frame, inst)

	default:
		return false, Decorate(ErrOpcodeNotImplemented, frame, inst)
	}
}

// cpEntry fetches the constant-pool entry at index, bounds-checked. The
// pool is a flat, zero-indexed slice (spec.md's constant-pool model omits
// JVMS's 1-based, double-wide-entry layout — see spec.md §1/§6 Non-goals).
func cpEntry(frame *Frame, index int) (*classfile.ConstantEntry, error) {
	pool := frame.Method.Class.Pool
	if index < 0 || index >= len(pool) {
		return nil, ErrMalformedBytecode
	}
	return &pool[index], nil
}

// resolveClassRef resolves a ConstClass pool entry to its live ClassRef,
// raising NoClassDefFoundError (via the class-init gate's failure path) if
// the named class cannot be found. ok is false iff an exception was
// raised and the caller must stop advancing.
func (m *Machine) resolveClassRef(t *JavaThread, frame *Frame, index int) (*classfile.ClassRef, bool) {
	entry, err := cpEntry(frame, index)
	if err != nil {
		m.ThrowNew(t, m.Builtins.NoClassDefFoundError, "malformed constant pool index %d", index)
		return nil, false
	}
	name := entry.ClassName
	if name == "" {
		name = entry.Utf8
	}
	cls, found := m.Repo.Lookup(bootstrapLoader, name)
	if !found {
		m.ThrowNew(t, m.Builtins.NoClassDefFoundError, "%s", name)
		return nil, false
	}
	return cls, true
}

// resolveField resolves a field-ref constant-pool entry to its owning
// class and Field descriptor.
func (m *Machine) resolveField(t *JavaThread, frame *Frame, index int) (*classfile.ClassRef, *classfile.Field, bool) {
	entry, err := cpEntry(frame, index)
	if err != nil {
		m.ThrowNew(t, m.Builtins.NoSuchFieldError, "malformed constant pool index %d", index)
		return nil, nil, false
	}
	owner, found := m.Repo.Lookup(bootstrapLoader, entry.ClassName)
	if !found {
		m.ThrowNew(t, m.Builtins.NoClassDefFoundError, "%s", entry.ClassName)
		return nil, nil, false
	}
	field, declClass, ok := owner.FindField(entry.MemberName)
	if !ok {
		m.ThrowNew(t, m.Builtins.NoSuchFieldError, "%s.%s", entry.ClassName, entry.MemberName)
		return nil, nil, false
	}
	return declClass, field, true
}

// resolveMethodRef resolves a method-ref or interface-method-ref
// constant-pool entry to its compile-time-bound class and MethodId
// (spec.md §4.4 step 1's "resolved (compile-time) target").
func (m *Machine) resolveMethodRef(t *JavaThread, frame *Frame, index int) (*classfile.MethodId, bool) {
	entry, err := cpEntry(frame, index)
	if err != nil {
		m.ThrowNew(t, m.Builtins.NoSuchMethodError, "malformed constant pool index %d", index)
		return nil, false
	}
	owner, found := m.Repo.Lookup(bootstrapLoader, entry.ClassName)
	if !found {
		m.ThrowNew(t, m.Builtins.NoClassDefFoundError, "%s", entry.ClassName)
		return nil, false
	}
	method, ok := owner.FindMethod(entry.MemberName, entry.MemberDesc)
	if !ok {
		m.ThrowNew(t, m.Builtins.NoSuchMethodError, "%s.%s%s", entry.ClassName, entry.MemberName, entry.MemberDesc)
		return nil, false
	}
	return method, true
}
