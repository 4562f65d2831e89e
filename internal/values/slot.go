// Package values implements the tagged primitive-slot and object-reference
// model that the interpreter pushes onto operand stacks and stores in
// locals.
package values

import "fmt"

// Kind identifies what a Slot currently holds.
type Kind uint8

const (
	KindInt32 Kind = iota
	KindInt64
	KindFloat32
	KindFloat64
	KindRef
	// KindTop marks the upper half of a category-2 (long/double) value. It
	// carries no data of its own; the value lives in the slot below it.
	KindTop
)

func (k Kind) String() string {
	switch k {
	case KindInt32:
		return "int"
	case KindInt64:
		return "long"
	case KindFloat32:
		return "float"
	case KindFloat64:
		return "double"
	case KindRef:
		return "ref"
	case KindTop:
		return "top"
	default:
		return "unknown"
	}
}

// IsCategory2 reports whether k occupies two adjacent slots.
func (k Kind) IsCategory2() bool {
	return k == KindInt64 || k == KindFloat64
}

// Slot is one 32-bit-wide cell of an operand stack or locals array. Longs
// and doubles are stored whole in the first of two adjacent slots; the
// second slot carries KindTop and no payload, per JVMS category-2 layout.
type Slot struct {
	Kind Kind
	I32  int32
	I64  int64
	F32  float32
	F64  float64
	Ref  *OopRef
}

func Int32(v int32) Slot   { return Slot{Kind: KindInt32, I32: v} }
func Int64(v int64) Slot   { return Slot{Kind: KindInt64, I64: v} }
func Float32(v float32) Slot { return Slot{Kind: KindFloat32, F32: v} }
func Float64(v float64) Slot { return Slot{Kind: KindFloat64, F64: v} }
func Ref(r *OopRef) Slot   { return Slot{Kind: KindRef, Ref: r} }
func Null() Slot           { return Slot{Kind: KindRef, Ref: nil} }
func Top() Slot            { return Slot{Kind: KindTop} }
func Bool(v bool) Slot {
	if v {
		return Int32(1)
	}
	return Int32(0)
}

// IsNullRef reports whether the slot is a reference holding no object.
func (s Slot) IsNullRef() bool {
	return s.Kind == KindRef && s.Ref == nil
}

func (s Slot) String() string {
	switch s.Kind {
	case KindInt32:
		return fmt.Sprintf("int(%d)", s.I32)
	case KindInt64:
		return fmt.Sprintf("long(%d)", s.I64)
	case KindFloat32:
		return fmt.Sprintf("float(%g)", s.F32)
	case KindFloat64:
		return fmt.Sprintf("double(%g)", s.F64)
	case KindRef:
		if s.Ref == nil {
			return "ref(null)"
		}
		return fmt.Sprintf("ref(%s)", s.Ref.String())
	case KindTop:
		return "top"
	default:
		return "?"
	}
}
