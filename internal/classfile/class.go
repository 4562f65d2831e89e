// Package classfile models the already-parsed class representation the
// interpreter core consumes: resolved classes, methods, constant pools,
// and method descriptors. Byte-layout parsing of the .class wire format is
// out of scope (see spec.md §1, §6) — callers construct Descriptors
// programmatically or via a thin test helper.
package classfile

import (
	"sync"

	"github.com/wudi/jvmcore/internal/values"
)

// InitState is a class's position in the JVMS §5.5 initialization
// lifecycle.
type InitState uint8

const (
	Loaded InitState = iota
	Linked
	InProgress
	Initialized
	Error
)

func (s InitState) String() string {
	switch s {
	case Loaded:
		return "loaded"
	case Linked:
		return "linked"
	case InProgress:
		return "in-progress"
	case Initialized:
		return "initialized"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// ExceptionTableEntry is one row of a method's exception table, tried in
// source order (never sorted or hashed — see spec.md §9).
type ExceptionTableEntry struct {
	StartPC     int
	EndPC       int
	HandlerPC   int
	CatchType   string // binary name, looked up via the bootstrap loader; "" with CatchTypeCP 0 matches any exception
	CatchTypeCP int    // constant-pool index; the unwinder does not resolve it, a non-zero value with "" CatchType matches nothing
}

// MethodId identifies one resolved method: its owning class, name, and
// descriptor, plus the code and metadata needed to execute it.
type MethodId struct {
	Class      *ClassRef
	Name       string
	Descriptor *Descriptor

	AccessFlags AccessFlags
	MaxLocals   int
	MaxStack    int
	Code        []byte
	ExceptionTable []ExceptionTableEntry

	Native        bool
	NativeHandler NativeFunc
}

// NativeFunc is the shape of a registered native method handler. Env is an
// opaque interface{} to avoid classfile depending on package vm; the vm
// package supplies a concrete *vm.Env and native handlers type-assert it.
type NativeFunc func(env interface{}, args []values.Slot) (*values.Slot, error)

// AccessFlags mirrors the JVMS access_flags bitmask subset this core
// cares about.
type AccessFlags uint16

const (
	AccPublic AccessFlags = 1 << iota
	AccPrivate
	AccProtected
	AccStatic
	AccFinal
	AccSynchronized
	AccNative
	AccAbstract
	AccInterface
)

func (f AccessFlags) Has(bit AccessFlags) bool { return f&bit != 0 }

func (m *MethodId) IsStatic() bool       { return m.AccessFlags.Has(AccStatic) }
func (m *MethodId) IsSynchronized() bool { return m.AccessFlags.Has(AccSynchronized) }
func (m *MethodId) IsAbstract() bool     { return m.AccessFlags.Has(AccAbstract) }
func (m *MethodId) IsNative() bool       { return m.AccessFlags.Has(AccNative) || m.Native }

// Field describes one instance or static field slot.
type Field struct {
	Name        string
	Descriptor  *Descriptor
	AccessFlags AccessFlags
	// StaticValue holds the live slot for a static field; nil for instance
	// fields, which live per-instance in the HeapObject.
	StaticValue *values.Slot
}

// ConstantKind tags a constant-pool entry.
type ConstantKind uint8

const (
	ConstUTF8 ConstantKind = iota
	ConstInteger
	ConstLong
	ConstFloat
	ConstDouble
	ConstString
	ConstClass
	ConstFieldRef
	ConstMethodRef
	ConstInterfaceMethodRef
	ConstNameAndType
)

// ConstantEntry is one resolved (or resolvable) constant-pool slot.
type ConstantEntry struct {
	Kind        ConstantKind
	Utf8        string
	Int32       int32
	Int64       int64
	Float32     float32
	Float64     float64
	ClassName   string // for ConstClass/Field/MethodRef: owning class binary name
	MemberName  string
	MemberDesc  string
	resolved    *values.Slot // memoized resolution for ldc of strings/classes
	resolveOnce sync.Once
}

// Resolve memoizes a ConstString/ConstClass pool entry's runtime
// resolution (the String instance or Class mirror ldc pushes), so that
// every ldc of the same constant-pool index yields the identical OopRef —
// required for `==` identity on interned string literals and class
// mirrors. compute runs at most once per entry.
func (e *ConstantEntry) Resolve(compute func() values.Slot) values.Slot {
	e.resolveOnce.Do(func() {
		v := compute()
		e.resolved = &v
	})
	return *e.resolved
}

// ClassRef is a shared, immutable-after-resolution class. Initialization
// state and static field values are the only parts that mutate after
// linking.
type ClassRef struct {
	Name       string // binary name, e.g. "java.lang.Object"
	LoaderID   string
	Super      *ClassRef
	Interfaces []*ClassRef

	Fields  map[string]*Field
	Methods map[string]*MethodId // keyed by name+descriptor, see MethodKey
	Pool    []ConstantEntry

	mu              sync.Mutex
	state           InitState
	initializerTID  uint64
	initWaiters     int
	initCond        *sync.Cond
	mirror          *values.OopRef
}

// BinaryName implements values.ClassPointer.
func (c *ClassRef) BinaryName() string {
	if c == nil {
		return "<null>"
	}
	return c.Name
}

// MethodKey is the lookup key for a class's method table.
func MethodKey(name, descriptor string) string { return name + ":" + descriptor }

// LookupMethod finds a method declared directly on c (no superclass walk).
func (c *ClassRef) LookupMethod(name, descriptor string) (*MethodId, bool) {
	m, ok := c.Methods[MethodKey(name, descriptor)]
	return m, ok
}

// ResolveVirtual walks c and its superclasses looking for the most-derived
// override of (name, descriptor) — the vtable lookup spec.md §4.4 step 1
// describes for invokevirtual.
func (c *ClassRef) ResolveVirtual(name, descriptor string) (*MethodId, bool) {
	for cur := c; cur != nil; cur = cur.Super {
		if m, ok := cur.LookupMethod(name, descriptor); ok && !m.IsAbstract() {
			return m, true
		}
	}
	return nil, false
}

// ResolveInterface walks c's superclass chain and all implemented
// interfaces (itable lookup) for (name, descriptor).
func (c *ClassRef) ResolveInterface(name, descriptor string) (*MethodId, bool) {
	if m, ok := c.ResolveVirtual(name, descriptor); ok {
		return m, true
	}
	seen := map[*ClassRef]bool{}
	var walk func(*ClassRef) (*MethodId, bool)
	walk = func(iface *ClassRef) (*MethodId, bool) {
		if iface == nil || seen[iface] {
			return nil, false
		}
		seen[iface] = true
		if m, ok := iface.LookupMethod(name, descriptor); ok {
			return m, true
		}
		for _, super := range iface.Interfaces {
			if m, ok := walk(super); ok {
				return m, true
			}
		}
		return nil, false
	}
	for cur := c; cur != nil; cur = cur.Super {
		for _, iface := range cur.Interfaces {
			if m, ok := walk(iface); ok {
				return m, true
			}
		}
	}
	return nil, false
}

// FindMethod is the constant-pool-resolution search (JVMS §5.4.3.3/.4):
// walk c's superclass chain, then its interfaces, looking for (name,
// descriptor) regardless of whether it is abstract. Distinct from
// ResolveVirtual, which is the runtime vtable lookup invokevirtual uses
// and which skips abstract entries in favor of a concrete override.
func (c *ClassRef) FindMethod(name, descriptor string) (*MethodId, bool) {
	for cur := c; cur != nil; cur = cur.Super {
		if m, ok := cur.LookupMethod(name, descriptor); ok {
			return m, true
		}
	}
	seen := map[*ClassRef]bool{}
	var walk func(*ClassRef) (*MethodId, bool)
	walk = func(iface *ClassRef) (*MethodId, bool) {
		if iface == nil || seen[iface] {
			return nil, false
		}
		seen[iface] = true
		if m, ok := iface.LookupMethod(name, descriptor); ok {
			return m, true
		}
		for _, super := range iface.Interfaces {
			if m, ok := walk(super); ok {
				return m, true
			}
		}
		return nil, false
	}
	for cur := c; cur != nil; cur = cur.Super {
		for _, iface := range cur.Interfaces {
			if m, ok := walk(iface); ok {
				return m, true
			}
		}
	}
	return nil, false
}

// FindField walks c's superclass chain for an instance or static field
// named name.
func (c *ClassRef) FindField(name string) (*Field, *ClassRef, bool) {
	for cur := c; cur != nil; cur = cur.Super {
		if f, ok := cur.Fields[name]; ok {
			return f, cur, true
		}
	}
	return nil, nil, false
}

// IsSubclassOf reports whether c is the same class as, or a (transitive)
// subclass/implementor of, target. Used for instanceof, checkcast, and
// exception-table catch-type matching.
func (c *ClassRef) IsSubclassOf(target *ClassRef) bool {
	if target == nil {
		return false
	}
	for cur := c; cur != nil; cur = cur.Super {
		if cur == target {
			return true
		}
		for _, iface := range cur.Interfaces {
			if iface.IsSubclassOf(target) {
				return true
			}
		}
	}
	return false
}

// State returns the class's current initialization state.
func (c *ClassRef) State() InitState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Lock/Unlock expose the per-class monitor described in spec.md §9 ("a
// global lock table keyed by class identity") so the classloader package
// can hold it across the small state-check-and-transition critical
// section without ever holding it across the <clinit> call itself.
func (c *ClassRef) Lock()   { c.mu.Lock() }
func (c *ClassRef) Unlock() { c.mu.Unlock() }

// InitializerThread returns the id of the thread currently running this
// class's <clinit>, valid only while State() == InProgress. Caller must
// hold the lock.
func (c *ClassRef) InitializerThread() uint64 { return c.initializerTID }

// BeginInit transitions Loaded/Linked -> InProgress(threadID). Caller
// must hold the lock; the lock is released before <clinit> runs.
func (c *ClassRef) BeginInit(threadID uint64) {
	c.state = InProgress
	c.initializerTID = threadID
}

// WaitForInit blocks the calling goroutine until the class leaves
// InProgress. Caller must hold the lock; it is released while waiting and
// reacquired before returning.
func (c *ClassRef) WaitForInit() {
	if c.initCond == nil {
		c.initCond = sync.NewCond(&c.mu)
	}
	c.initWaiters++
	c.initCond.Wait()
	c.initWaiters--
}

// FinishInit transitions InProgress -> final (Initialized or Error) and
// wakes any waiters. Acquires the lock itself.
func (c *ClassRef) FinishInit(final InitState) {
	c.mu.Lock()
	c.state = final
	if c.initCond != nil && c.initWaiters > 0 {
		c.initCond.Broadcast()
	}
	c.mu.Unlock()
}

// Mirror returns (allocating on first use) the java.lang.Class instance
// for c.
func (c *ClassRef) Mirror() *values.OopRef {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mirror == nil {
		c.mirror = values.NewClassMirror(c)
	}
	return c.mirror
}
