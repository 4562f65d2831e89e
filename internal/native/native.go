// Package native implements the Native Method Bridge named in spec.md
// §4.5: a registry of (class, name, descriptor) -> handler, looked up at
// link time for each method marked native.
package native

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/wudi/jvmcore/internal/classfile"
	"github.com/wudi/jvmcore/internal/values"
)

// Handler is the bridge's handler shape: env exposes thread access (a
// *vm.Env upcast through interface{} to avoid a native -> vm import
// cycle; handlers type-assert it), args is pre-marshalled per the
// method's descriptor, and the result is Some(slot), None (void), or an
// error that the caller places into thread.current_ex.
type Handler func(env interface{}, args []values.Slot) (*values.Slot, error)

// Registry is the VM-wide native method table.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	once     sync.Once
}

func key(class, name, descriptor string) string { return class + "." + name + descriptor }

// New constructs an empty registry.
func New() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register installs a handler for (class, name, descriptor). Re-registering
// the same key overwrites silently, matching the teacher's
// LoadOrStore-by-last-writer idiom for symbol tables.
func (r *Registry) Register(class, name, descriptor string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[key(class, name, descriptor)] = h
}

// Lookup finds the handler registered for m, if any.
func (r *Registry) Lookup(m *classfile.MethodId) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[key(m.Class.BinaryName(), m.Name, m.Descriptor.Raw)]
	return h, ok
}

// Bootstrap registers the handful of natives the interpreter core itself
// depends on to run JVMS-mandated bootstrap behavior (spec.md §4.10). It
// is safe to call repeatedly; registration happens once.
func (r *Registry) Bootstrap() {
	r.once.Do(func() {
		r.Register("java.lang.Object", "hashCode", "()I", objectHashCode)
		r.Register("java.lang.Object", "getClass", "()Ljava.lang.Class;", objectGetClass)
		r.Register("java.lang.Object", "wait", "()V", objectWait)
		r.Register("java.lang.Object", "notify", "()V", objectNotify)
		r.Register("java.lang.Object", "notifyAll", "()V", objectNotifyAll)
		r.Register("java.lang.System", "arraycopy",
			"(Ljava.lang.Object;ILjava.lang.Object;II)V", systemArraycopy)
		r.Register("java.lang.System", "nanoTime", "()J", systemNanoTime)
		r.Register("java.lang.Thread", "currentThread", "()Ljava.lang.Thread;", threadCurrentThread)
		r.Register("java.lang.Thread", "sleep", "(J)V", threadSleep)
		r.Register("java.lang.Throwable", "fillInStackTrace",
			"()Ljava.lang.Throwable;", throwableFillInStackTrace)
	})
}

// threadEnv is the narrow slice of *vm.Env a handful of natives need:
// the calling thread's interrupt flag, its Thread mirror, and its call
// trail. Declared here (rather than importing package vm, which already
// imports native) so handlers can type-assert the interface{} env
// without an import cycle.
type threadEnv interface {
	ThreadID() uint64
	JavaThreadObj() *values.OopRef
	Callers() []string
	Interrupted() bool
}

func asThreadEnv(env interface{}) (threadEnv, bool) {
	e, ok := env.(threadEnv)
	return e, ok
}

func objectHashCode(env interface{}, args []values.Slot) (*values.Slot, error) {
	if len(args) == 0 || args[0].Ref == nil {
		return nil, fmt.Errorf("native: hashCode on null receiver")
	}
	// Object.hashCode need only be stable for the object's lifetime; the
	// object's own heap-assigned diagnostic id satisfies that.
	id := args[0].Ref.ID()
	var h int32
	for i := 0; i < len(id); i++ {
		h = h*31 + int32(id[i])
	}
	s := values.Int32(h)
	return &s, nil
}

func objectGetClass(env interface{}, args []values.Slot) (*values.Slot, error) {
	if len(args) == 0 || args[0].Ref == nil {
		return nil, fmt.Errorf("native: getClass on null receiver")
	}
	cls, ok := args[0].Ref.Class.(interface{ Mirror() *values.OopRef })
	if !ok {
		return nil, fmt.Errorf("native: receiver class cannot produce a mirror")
	}
	s := values.Ref(cls.Mirror())
	return &s, nil
}

func systemArraycopy(env interface{}, args []values.Slot) (*values.Slot, error) {
	if len(args) != 5 {
		return nil, fmt.Errorf("native: arraycopy expects 5 arguments, got %d", len(args))
	}
	src, srcPos, dst, dstPos, length := args[0].Ref, args[1].I32, args[2].Ref, args[3].I32, args[4].I32
	if src == nil || dst == nil {
		return nil, fmt.Errorf("native: arraycopy with null array")
	}
	srcObj, dstObj := src.Object(), dst.Object()
	if int(srcPos+length) > len(srcObj.Elements) || int(dstPos+length) > len(dstObj.Elements) {
		return nil, fmt.Errorf("native: arraycopy out of bounds")
	}
	copy(dstObj.Elements[dstPos:dstPos+length], srcObj.Elements[srcPos:srcPos+length])
	return nil, nil
}

// nanoTimeOrigin is the fixed origin System.nanoTime() measures from.
var nanoTimeOrigin = time.Now()

// systemNanoTime backs System.nanoTime(): an arbitrary-origin monotonic
// reading, per its contract (only deltas between two calls are
// meaningful). time.Now() on Go's runtime already carries a monotonic
// component, so no further library is needed for this.
func systemNanoTime(env interface{}, args []values.Slot) (*values.Slot, error) {
	s := values.Int64(time.Since(nanoTimeOrigin).Nanoseconds())
	return &s, nil
}

// threadCurrentThread backs Thread.currentThread(): the java.lang.Thread
// mirror bound to the calling JavaThread, set once by the VM before its
// interpreter loop starts running user bytecode.
func threadCurrentThread(env interface{}, args []values.Slot) (*values.Slot, error) {
	e, ok := asThreadEnv(env)
	if !ok {
		return nil, fmt.Errorf("native: currentThread requires a thread-aware env")
	}
	obj := e.JavaThreadObj()
	if obj == nil {
		return nil, fmt.Errorf("native: no Thread mirror bound to this thread")
	}
	s := values.Ref(obj)
	return &s, nil
}

// threadSleep backs Thread.sleep(long): blocks for the requested number
// of milliseconds, checking the cooperative interrupt flag both before
// and after the blocking wait (spec.md §5).
func threadSleep(env interface{}, args []values.Slot) (*values.Slot, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("native: sleep expects a millisecond duration argument")
	}
	e, ok := asThreadEnv(env)
	if !ok {
		return nil, fmt.Errorf("native: sleep requires a thread-aware env")
	}
	if e.Interrupted() {
		return nil, fmt.Errorf("native: thread interrupted before sleep")
	}
	time.Sleep(time.Duration(args[0].I64) * time.Millisecond)
	if e.Interrupted() {
		return nil, fmt.Errorf("native: thread interrupted during sleep")
	}
	return nil, nil
}

// objectWait backs Object.wait(): releases the receiver's monitor and
// blocks until Notify/NotifyAll, then reacquires it at the same
// recursion depth, per Object.wait's contract.
func objectWait(env interface{}, args []values.Slot) (*values.Slot, error) {
	if len(args) == 0 || args[0].Ref == nil {
		return nil, fmt.Errorf("native: wait on null receiver")
	}
	e, ok := asThreadEnv(env)
	if !ok {
		return nil, fmt.Errorf("native: wait requires a thread-aware env")
	}
	if e.Interrupted() {
		return nil, fmt.Errorf("native: thread interrupted before wait")
	}
	mon := &args[0].Ref.Object().Monitor
	if !mon.Wait(e.ThreadID()) {
		return nil, fmt.Errorf("native: wait called without holding the object's monitor")
	}
	if e.Interrupted() {
		return nil, fmt.Errorf("native: thread interrupted while waiting")
	}
	return nil, nil
}

// objectNotify backs Object.notify(): wakes one thread blocked in wait()
// on the receiver's monitor, if any.
func objectNotify(env interface{}, args []values.Slot) (*values.Slot, error) {
	if len(args) == 0 || args[0].Ref == nil {
		return nil, fmt.Errorf("native: notify on null receiver")
	}
	args[0].Ref.Object().Monitor.Notify()
	return nil, nil
}

// objectNotifyAll backs Object.notifyAll(): wakes every thread blocked in
// wait() on the receiver's monitor.
func objectNotifyAll(env interface{}, args []values.Slot) (*values.Slot, error) {
	if len(args) == 0 || args[0].Ref == nil {
		return nil, fmt.Errorf("native: notifyAll on null receiver")
	}
	args[0].Ref.Object().Monitor.NotifyAll()
	return nil, nil
}

// throwableFillInStackTrace backs Throwable.fillInStackTrace(): captures
// the calling thread's current call trail (spec.md §4.10) onto the
// receiver and returns it, matching Throwable's own "return this" idiom
// so callers can chain it the way `new Foo().fillInStackTrace()` does in
// real Java.
func throwableFillInStackTrace(env interface{}, args []values.Slot) (*values.Slot, error) {
	if len(args) == 0 || args[0].Ref == nil {
		return nil, fmt.Errorf("native: fillInStackTrace on null receiver")
	}
	e, ok := asThreadEnv(env)
	if !ok {
		return nil, fmt.Errorf("native: fillInStackTrace requires a thread-aware env")
	}
	args[0].Ref.Object().Native = strings.Join(e.Callers(), "\n\tat ")
	return &args[0], nil
}
