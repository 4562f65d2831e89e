package vm

import (
	"github.com/wudi/jvmcore/internal/classfile"
	"github.com/wudi/jvmcore/internal/opcodes"
	"github.com/wudi/jvmcore/internal/values"
)

// newarray's atype operand values (JVMS §6.5 newarray, Table 6.5-A).
const (
	atypeBoolean = 4
	atypeChar    = 5
	atypeFloat   = 6
	atypeDouble  = 7
	atypeByte    = 8
	atypeShort   = 9
	atypeInt     = 10
	atypeLong    = 11
)

// execArray handles array creation, arraylength, and the typed
// xaload/xastore families.
func (m *Machine) execArray(t *JavaThread, frame *Frame, inst Instruction) (bool, error) {
	switch inst.Op {
	case opcodes.Newarray:
		return m.execNewarray(t, frame, inst)
	case opcodes.Anewarray:
		return m.execAnewarray(t, frame, inst)
	case opcodes.Multianewarray:
		return m.execMultianewarray(t, frame, inst)
	case opcodes.Arraylength:
		ref, err := frame.Pop()
		if err != nil {
			return false, err
		}
		if ref.Ref == nil {
			m.NullPointerException(t, "cannot read the array length because the array is null")
			return false, nil
		}
		return true, frame.Push(values.Int32(int32(ref.Ref.Len())))

	case opcodes.Iaload, opcodes.Laload, opcodes.Faload, opcodes.Daload, opcodes.Aaload,
		opcodes.Baload, opcodes.Caload, opcodes.Saload:
		return m.execArrayLoad(t, frame, inst)
	case opcodes.Iastore, opcodes.Lastore, opcodes.Fastore, opcodes.Dastore, opcodes.Aastore,
		opcodes.Bastore, opcodes.Castore, opcodes.Sastore:
		return m.execArrayStore(t, frame, inst)
	}
	return false, Decorate(ErrOpcodeNotImplemented, frame, inst)
}

func (m *Machine) execNewarray(t *JavaThread, frame *Frame, inst Instruction) (bool, error) {
	count, err := frame.Pop()
	if err != nil {
		return false, err
	}
	if count.I32 < 0 {
		m.NegativeArraySizeException(t, count.I32)
		return false, nil
	}
	arr := values.NewArray(values.OopPrimitiveArray, nil, int(count.I32))
	def := primitiveDefault(u8(inst.Operands))
	for i := range arr.Object().Elements {
		arr.Object().Elements[i] = def
	}
	return true, frame.Push(values.Ref(arr))
}

func primitiveDefault(atype int) values.Slot {
	switch atype {
	case atypeFloat:
		return values.Float32(0)
	case atypeDouble:
		return values.Float64(0)
	case atypeLong:
		return values.Int64(0)
	default: // boolean, char, byte, short, int all store as int32 slots
		return values.Int32(0)
	}
}

func (m *Machine) execAnewarray(t *JavaThread, frame *Frame, inst Instruction) (bool, error) {
	count, err := frame.Pop()
	if err != nil {
		return false, err
	}
	if count.I32 < 0 {
		m.NegativeArraySizeException(t, count.I32)
		return false, nil
	}
	elemClass, ok := m.resolveClassRef(t, frame, u16(inst.Operands))
	if !ok {
		return false, nil
	}
	arr := values.NewArray(values.OopReferenceArray, elemClass, int(count.I32))
	return true, frame.Push(values.Ref(arr))
}

// execMultianewarray allocates a dims-dimensional array of the resolved
// component type, reading each dimension's length off the stack
// (deepest dimension pushed first, per JVMS §6.5 multianewarray) and
// nesting reference arrays recursively.
func (m *Machine) execMultianewarray(t *JavaThread, frame *Frame, inst Instruction) (bool, error) {
	dims := u8(inst.Operands[2:3])
	if dims < 1 {
		return false, ErrMalformedBytecode
	}
	counts := make([]int32, dims)
	for i := dims - 1; i >= 0; i-- {
		c, err := frame.Pop()
		if err != nil {
			return false, err
		}
		if c.I32 < 0 {
			m.NegativeArraySizeException(t, c.I32)
			return false, nil
		}
		counts[i] = c.I32
	}
	elemClass, ok := m.resolveClassRef(t, frame, u16(inst.Operands[0:2]))
	if !ok {
		return false, nil
	}
	arr := buildMultiarray(elemClass, counts)
	return true, frame.Push(values.Ref(arr))
}

func buildMultiarray(elemClass *classfile.ClassRef, counts []int32) *values.OopRef {
	n := int(counts[0])
	if len(counts) == 1 {
		return values.NewArray(values.OopReferenceArray, elemClass, n)
	}
	arr := values.NewArray(values.OopReferenceArray, elemClass, n)
	for i := range arr.Object().Elements {
		sub := buildMultiarray(elemClass, counts[1:])
		arr.Object().Elements[i] = values.Ref(sub)
	}
	return arr
}

func (m *Machine) execArrayLoad(t *JavaThread, frame *Frame, inst Instruction) (bool, error) {
	idx, err := frame.Pop()
	if err != nil {
		return false, err
	}
	arr, err := frame.Pop()
	if err != nil {
		return false, err
	}
	if arr.Ref == nil {
		m.NullPointerException(t, "cannot load from array because the array is null")
		return false, nil
	}
	elems := arr.Ref.Object().Elements
	if idx.I32 < 0 || int(idx.I32) >= len(elems) {
		m.ArrayIndexOutOfBounds(t, int(idx.I32), len(elems))
		return false, nil
	}
	v := elems[idx.I32]
	switch inst.Op {
	case opcodes.Laload, opcodes.Daload:
		return true, frame.PushCategory2(v)
	default:
		return true, frame.Push(v)
	}
}

func (m *Machine) execArrayStore(t *JavaThread, frame *Frame, inst Instruction) (bool, error) {
	var v values.Slot
	var err error
	switch inst.Op {
	case opcodes.Lastore, opcodes.Dastore:
		v, err = frame.PopCategory2()
	default:
		v, err = frame.Pop()
	}
	if err != nil {
		return false, err
	}
	idx, err := frame.Pop()
	if err != nil {
		return false, err
	}
	arr, err := frame.Pop()
	if err != nil {
		return false, err
	}
	if arr.Ref == nil {
		m.NullPointerException(t, "cannot store to array because the array is null")
		return false, nil
	}
	elems := arr.Ref.Object().Elements
	if idx.I32 < 0 || int(idx.I32) >= len(elems) {
		m.ArrayIndexOutOfBounds(t, int(idx.I32), len(elems))
		return false, nil
	}
	if inst.Op == opcodes.Aastore && v.Ref != nil && arr.Ref.Object().ElemClass != nil {
		storeClass, ok := v.Ref.Class.(*classfile.ClassRef)
		elemClass, _ := arr.Ref.Object().ElemClass.(*classfile.ClassRef)
		if ok && elemClass != nil && !storeClass.IsSubclassOf(elemClass) {
			m.ArrayStoreException(t, storeClass.BinaryName())
			return false, nil
		}
	}
	elems[idx.I32] = v
	return true, nil
}
