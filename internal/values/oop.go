package values

import "github.com/google/uuid"

// ClassPointer is the minimal view of a class an OopRef needs: enough to
// dereference for instanceof/checkcast and virtual dispatch. The concrete
// implementation lives in package classfile; values never imports it, so
// classfile can freely hold slices of Slot (instance/static fields)
// without an import cycle.
type ClassPointer interface {
	BinaryName() string
}

// OopKind distinguishes the shapes of heap object an OopRef may denote.
type OopKind uint8

const (
	OopNull OopKind = iota
	OopInstance
	OopPrimitiveArray
	OopReferenceArray
	OopClassMirror
)

// OopRef is a shared, possibly-null handle to a heap object. Equality is
// identity: two OopRefs denote the same object iff they wrap the same
// *HeapObject pointer (or both are null). The diagnostic id is never
// consulted for identity.
type OopRef struct {
	Kind  OopKind
	Class ClassPointer
	id    uuid.UUID
	obj   *HeapObject
}

// HeapObject is the shared, mutable payload behind an OopRef: instance
// fields, array elements, or class-mirror state, plus the intrinsic
// monitor every Java object carries in its header.
type HeapObject struct {
	Fields    map[string]*Slot // instance fields, keyed by simple field name
	Elements  []Slot           // array elements (primitive or reference arrays)
	ElemClass ClassPointer     // element class, for reference-array store checks
	Monitor   Monitor

	// Native carries boxed host-language payload for the handful of
	// built-in types the interpreter core itself must represent without a
	// full classfile (java.lang.String's character data). Ordinary
	// user-defined objects leave it nil, except that
	// Throwable.fillInStackTrace stores the captured call trail here.
	Native interface{}
}

// NewInstance allocates an OopRef denoting a fresh instance of class c with
// the given field slots (already defaulted by the caller).
func NewInstance(c ClassPointer, fields map[string]*Slot) *OopRef {
	return &OopRef{
		Kind:  OopInstance,
		Class: c,
		id:    uuid.New(),
		obj:   &HeapObject{Fields: fields},
	}
}

// NewArray allocates an OopRef denoting an array of length n. elemClass is
// nil for primitive arrays.
func NewArray(kind OopKind, elemClass ClassPointer, n int) *OopRef {
	return &OopRef{
		Kind:  kind,
		Class: elemClass,
		id:    uuid.New(),
		obj:   &HeapObject{Elements: make([]Slot, n), ElemClass: elemClass},
	}
}

// NewClassMirror allocates the OopRef a class's java.lang.Class mirror
// resolves to.
func NewClassMirror(c ClassPointer) *OopRef {
	return &OopRef{Kind: OopClassMirror, Class: c, id: uuid.New(), obj: &HeapObject{}}
}

// ID is a diagnostic correlation id only; it is never used for Java `==`.
func (r *OopRef) ID() uuid.UUID {
	if r == nil {
		return uuid.Nil
	}
	return r.id
}

func (r *OopRef) Object() *HeapObject {
	if r == nil {
		return nil
	}
	return r.obj
}

func (r *OopRef) Len() int {
	if r == nil || r.obj == nil {
		return 0
	}
	return len(r.obj.Elements)
}

func (r *OopRef) String() string {
	if r == nil {
		return "null"
	}
	name := "?"
	if r.Class != nil {
		name = r.Class.BinaryName()
	}
	return name + "@" + r.id.String()[:8]
}

// SameObject reports Java reference identity between two OopRefs.
func SameObject(a, b *OopRef) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.obj == b.obj
}
