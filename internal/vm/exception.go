package vm

import (
	"fmt"

	"github.com/wudi/jvmcore/internal/classfile"
	"github.com/wudi/jvmcore/internal/values"
)

// Thrown lets a native.Handler specify the exact exception object to
// raise, instead of having an arbitrary Go error translated into a
// generic RuntimeException.
type Thrown struct{ Ex *values.OopRef }

func (t *Thrown) Error() string { return "native method threw " + t.Ex.String() }

// ThrowRef sets t's current-exception register to an already-constructed
// Throwable instance.
func (m *Machine) ThrowRef(t *JavaThread, ex *values.OopRef) {
	t.SetException(ex)
}

// ThrowNew constructs a Throwable instance of class c with the given
// detail message and raises it.
func (m *Machine) ThrowNew(t *JavaThread, c *classfile.ClassRef, format string, args ...interface{}) {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	m.ThrowRef(t, m.Builtins.NewThrowable(c, msg))
}

func (m *Machine) NullPointerException(t *JavaThread, format string, args ...interface{}) {
	m.ThrowNew(t, m.Builtins.NullPointerException, format, args...)
}

func (m *Machine) ArithmeticException(t *JavaThread, format string, args ...interface{}) {
	m.ThrowNew(t, m.Builtins.ArithmeticException, format, args...)
}

func (m *Machine) ArrayIndexOutOfBounds(t *JavaThread, index, length int) {
	m.ThrowNew(t, m.Builtins.ArrayIndexOutOfBoundsException, "index %d out of bounds for length %d", index, length)
}

func (m *Machine) ArrayStoreException(t *JavaThread, className string) {
	m.ThrowNew(t, m.Builtins.ArrayStoreException, "%s", className)
}

func (m *Machine) ClassCastException(t *JavaThread, from, to string) {
	m.ThrowNew(t, m.Builtins.ClassCastException, "class %s cannot be cast to class %s", from, to)
}

func (m *Machine) NegativeArraySizeException(t *JavaThread, size int32) {
	m.ThrowNew(t, m.Builtins.NegativeArraySizeException, "%d", size)
}

func (m *Machine) IllegalMonitorStateException(t *JavaThread, format string, args ...interface{}) {
	m.ThrowNew(t, m.Builtins.IllegalMonitorStateException, format, args...)
}

func (m *Machine) StackOverflowError(t *JavaThread) {
	m.ThrowRef(t, m.Builtins.NewThrowable(m.Builtins.StackOverflowError, ""))
}

// Unwind implements spec.md §4.6: walk frames from the top looking for an
// exception-table entry whose range contains the throwing pc and whose
// catch type admits the pending exception. On a match it resumes
// execution in that handler and returns true. floor bounds how far this
// search may pop: frames at depth <= floor belong to an enclosing
// JavaCall (e.g. the invokestatic that triggered a <clinit>, still
// running its own RunUntilDepth loop further down the Go call stack) and
// must be left untouched — their own exception-table search happens in
// their own RunUntilDepth iteration, not this one. Returns false either
// when the search reaches floor with no match (exception stays pending,
// frame stack intact below floor) or when the whole thread stack is
// empty (top-level uncaught-exception dispatch).
func (m *Machine) Unwind(t *JavaThread, floor int) bool {
	for t.Depth() > floor {
		frame := t.CurrentFrame()
		ex := t.PeekException()
		if handlerPC, ok := m.findHandler(frame, ex); ok {
			frame.ClearStack()
			caught := t.TakeException()
			_ = frame.Push(values.Ref(caught))
			frame.PC = handlerPC
			return true
		}
		popped := t.PopFrame()
		releaseFrameMonitor(t, popped)
	}
	return false
}

// findHandler scans frame's exception table in source order (never
// sorted — spec.md §9) for the first entry whose [start_pc, end_pc) range
// contains the throwing pc and whose catch type is either "any" (index 0)
// or a superclass of ex's class.
func (m *Machine) findHandler(frame *Frame, ex *values.OopRef) (int, bool) {
	pcAtThrow := frame.PC
	exClass, _ := ex.Class.(*classfile.ClassRef)
	for _, entry := range frame.Method.ExceptionTable {
		if pcAtThrow < entry.StartPC || pcAtThrow >= entry.EndPC {
			continue
		}
		if entry.CatchTypeCP == 0 && entry.CatchType == "" {
			return entry.HandlerPC, true
		}
		target, ok := m.Repo.Lookup(bootstrapLoader, entry.CatchType)
		if !ok {
			continue
		}
		if exClass != nil && exClass.IsSubclassOf(target) {
			return entry.HandlerPC, true
		}
	}
	return 0, false
}

// HandleUncaught implements spec.md §4.7: dispatch to the thread's
// dispatchUncaughtException if it has a java_thread_obj, with a
// single-attempt re-entry guard; otherwise (or if that dispatch itself
// throws) fall back to the diagnostic channel.
func (m *Machine) HandleUncaught(t *JavaThread) {
	ex := t.PeekException()
	if ex == nil {
		return
	}
	if obj := t.JavaThreadObj(); obj != nil && t.MarkUncaughtDispatched() {
		if m.dispatchUncaughtException(t, obj, ex) {
			return
		}
	}
	exClass, _ := ex.Class.(*classfile.ClassRef)
	name := "<unknown>"
	if exClass != nil {
		name = exClass.BinaryName()
	}
	m.Log.UncaughtFallback(name, DetailMessage(ex))
}

// dispatchUncaughtException looks up dispatchUncaughtException(Throwable)
// on the thread mirror's class and invokes it via JavaCall. Returns true
// if the dispatch ran to completion without itself raising (the caller
// should not fall back); false otherwise.
func (m *Machine) dispatchUncaughtException(t *JavaThread, threadObj, ex *values.OopRef) bool {
	cls, ok := threadObj.Class.(*classfile.ClassRef)
	if !ok {
		return false
	}
	method, ok := cls.ResolveVirtual("dispatchUncaughtException", "(Ljava.lang.Throwable;)V")
	if !ok {
		return false
	}
	t.TakeException() // clear so the dispatch call itself starts clean
	err := m.Invoke(t, nil, method, DispatchVirtual, threadObj, []values.Slot{values.Ref(ex)})
	if err != nil {
		// VM-internal failure during dispatch: treat as "dispatch failed",
		// fall back, and surface the original exception again.
		t.SetException(ex)
		return false
	}
	if t.HasException() {
		// The dispatch handler itself raised: single-attempt policy says
		// fall back now rather than re-dispatching.
		return false
	}
	return true
}
