package vm

import (
	"github.com/wudi/jvmcore/internal/classfile"
	"github.com/wudi/jvmcore/internal/opcodes"
	"github.com/wudi/jvmcore/internal/values"
)

// execObject handles new, the static/instance field accessors, and the
// two type-check opcodes. new/getstatic/putstatic are the three "active
// use" triggers (spec.md §4.3) that pass through the class-init gate
// before touching the class; getfield/putfield/instanceof/checkcast do
// not (their receiver's class, if not already initialized, was
// initialized when it was constructed).
func (m *Machine) execObject(t *JavaThread, frame *Frame, inst Instruction) (bool, error) {
	switch inst.Op {
	case opcodes.New:
		return m.execNew(t, frame, inst)
	case opcodes.Getstatic:
		return m.execGetstatic(t, frame, inst)
	case opcodes.Putstatic:
		return m.execPutstatic(t, frame, inst)
	case opcodes.Getfield:
		return m.execGetfield(t, frame, inst)
	case opcodes.Putfield:
		return m.execPutfield(t, frame, inst)
	case opcodes.Instanceof:
		return m.execInstanceof(t, frame, inst)
	case opcodes.Checkcast:
		return m.execCheckcast(t, frame, inst)
	}
	return false, Decorate(ErrOpcodeNotImplemented, frame, inst)
}

func (m *Machine) execNew(t *JavaThread, frame *Frame, inst Instruction) (bool, error) {
	cls, ok := m.resolveClassRef(t, frame, u16(inst.Operands))
	if !ok {
		return false, nil
	}
	if !m.ensureInitialized(t, cls) {
		return false, nil
	}
	obj := values.NewInstance(cls, defaultFields(cls))
	return true, frame.Push(values.Ref(obj))
}

// defaultFields builds the zero-valued instance field map for a fresh
// object, walking cls and every superclass (static fields live on the
// class itself via Field.StaticValue, not per-instance).
func defaultFields(cls *classfile.ClassRef) map[string]*values.Slot {
	out := map[string]*values.Slot{}
	for cur := cls; cur != nil; cur = cur.Super {
		for name, f := range cur.Fields {
			if f.AccessFlags.Has(classfile.AccStatic) {
				continue
			}
			if _, exists := out[name]; exists {
				continue
			}
			v := defaultSlot(f)
			out[name] = &v
		}
	}
	return out
}

func defaultSlot(f *classfile.Field) values.Slot {
	if f.Descriptor == nil {
		return values.Null()
	}
	switch f.Descriptor.Return {
	case classfile.ParamLong:
		return values.Int64(0)
	case classfile.ParamDouble:
		return values.Float64(0)
	case classfile.ParamFloat:
		return values.Float32(0)
	case classfile.ParamObject, classfile.ParamArray:
		return values.Null()
	default:
		return values.Int32(0)
	}
}

func (m *Machine) execGetstatic(t *JavaThread, frame *Frame, inst Instruction) (bool, error) {
	owner, field, ok := m.resolveField(t, frame, u16(inst.Operands))
	if !ok {
		return false, nil
	}
	if !m.ensureInitialized(t, owner) {
		return false, nil
	}
	if field.StaticValue == nil {
		v := defaultSlot(field)
		field.StaticValue = &v
	}
	return true, pushByKind(frame, field.Descriptor, *field.StaticValue)
}

func (m *Machine) execPutstatic(t *JavaThread, frame *Frame, inst Instruction) (bool, error) {
	owner, field, ok := m.resolveField(t, frame, u16(inst.Operands))
	if !ok {
		return false, nil
	}
	v, err := popByKind(frame, field.Descriptor)
	if err != nil {
		return false, err
	}
	if !m.ensureInitialized(t, owner) {
		return false, nil
	}
	field.StaticValue = &v
	return true, nil
}

func (m *Machine) execGetfield(t *JavaThread, frame *Frame, inst Instruction) (bool, error) {
	_, field, ok := m.resolveField(t, frame, u16(inst.Operands))
	if !ok {
		return false, nil
	}
	objSlot, err := frame.Pop()
	if err != nil {
		return false, err
	}
	if objSlot.Ref == nil {
		m.NullPointerException(t, "cannot read field %q because the object is null", field.Name)
		return false, nil
	}
	v, ok := objSlot.Ref.Object().Fields[field.Name]
	if !ok || v == nil {
		d := defaultSlot(field)
		v = &d
	}
	return true, pushByKind(frame, field.Descriptor, *v)
}

func (m *Machine) execPutfield(t *JavaThread, frame *Frame, inst Instruction) (bool, error) {
	_, field, ok := m.resolveField(t, frame, u16(inst.Operands))
	if !ok {
		return false, nil
	}
	val, err := popByKind(frame, field.Descriptor)
	if err != nil {
		return false, err
	}
	objSlot, err := frame.Pop()
	if err != nil {
		return false, err
	}
	if objSlot.Ref == nil {
		m.NullPointerException(t, "cannot assign field %q because the object is null", field.Name)
		return false, nil
	}
	v := val
	objSlot.Ref.Object().Fields[field.Name] = &v
	return true, nil
}

func (m *Machine) execInstanceof(t *JavaThread, frame *Frame, inst Instruction) (bool, error) {
	v, err := frame.Pop()
	if err != nil {
		return false, err
	}
	if v.Ref == nil {
		return true, frame.Push(values.Int32(0))
	}
	target, ok := m.resolveClassRef(t, frame, u16(inst.Operands))
	if !ok {
		return false, nil
	}
	objClass, _ := v.Ref.Class.(*classfile.ClassRef)
	result := objClass != nil && objClass.IsSubclassOf(target)
	return true, frame.Push(values.Bool(result))
}

func (m *Machine) execCheckcast(t *JavaThread, frame *Frame, inst Instruction) (bool, error) {
	v, err := frame.Pop()
	if err != nil {
		return false, err
	}
	if v.Ref == nil {
		return true, frame.Push(v)
	}
	target, ok := m.resolveClassRef(t, frame, u16(inst.Operands))
	if !ok {
		return false, nil
	}
	objClass, _ := v.Ref.Class.(*classfile.ClassRef)
	if objClass == nil || !objClass.IsSubclassOf(target) {
		from := "<unknown>"
		if objClass != nil {
			from = objClass.BinaryName()
		}
		m.ClassCastException(t, from, target.BinaryName())
		return false, nil
	}
	return true, frame.Push(v)
}

// pushByKind pushes v as one or two stack slots depending on whether
// desc's type is category-2.
func pushByKind(frame *Frame, desc *classfile.Descriptor, v values.Slot) error {
	if desc != nil && desc.Return.IsCategory2() {
		return frame.PushCategory2(v)
	}
	return frame.Push(v)
}

// popByKind is pushByKind's inverse.
func popByKind(frame *Frame, desc *classfile.Descriptor) (values.Slot, error) {
	if desc != nil && desc.Return.IsCategory2() {
		return frame.PopCategory2()
	}
	return frame.Pop()
}
