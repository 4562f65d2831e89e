package vm

import (
	"sync"
	"sync/atomic"

	"github.com/wudi/jvmcore/internal/values"
)

var threadIDSeq uint64

// JavaThread owns a frame stack and a single current-exception register,
// per spec.md §3/§4.8. One goroutine runs each JavaThread's interpreter
// loop; frames are never shared across threads.
type JavaThread struct {
	id uint64

	mu     sync.Mutex
	frames []*Frame

	currentEx *values.OopRef

	javaThreadObj *values.OopRef
	callers       []string // audit trail of "Class.method" for stack traces

	interrupted atomic.Bool

	// uncaughtDispatched guards the single-attempt policy of spec.md §9's
	// open question: dispatchUncaughtException runs at most once per
	// uncaught exception.
	uncaughtDispatched bool
}

// NewJavaThread allocates a thread with an empty frame stack.
func NewJavaThread() *JavaThread {
	return &JavaThread{id: atomic.AddUint64(&threadIDSeq, 1)}
}

// ID returns the thread's VM-internal identifier, used as the "current
// thread" token for class-init InProgress(T) and monitor ownership.
func (t *JavaThread) ID() uint64 { return t.id }

func (t *JavaThread) PushFrame(f *Frame) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.frames = append(t.frames, f)
	if f.Method != nil {
		t.callers = append(t.callers, f.Method.Class.BinaryName()+"."+f.Method.Name)
	}
}

// PopFrame removes and returns the top frame, or nil if empty.
func (t *JavaThread) PopFrame() *Frame {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.frames) == 0 {
		return nil
	}
	idx := len(t.frames) - 1
	f := t.frames[idx]
	t.frames = t.frames[:idx]
	if len(t.callers) > 0 {
		t.callers = t.callers[:len(t.callers)-1]
	}
	return f
}

// CurrentFrame returns the top frame, or nil if the stack is empty.
func (t *JavaThread) CurrentFrame() *Frame {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.frames) == 0 {
		return nil
	}
	return t.frames[len(t.frames)-1]
}

// Depth returns the current frame-stack depth.
func (t *JavaThread) Depth() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.frames)
}

// Callers returns a snapshot of the method-id audit trail, deepest call
// last, for Throwable.fillInStackTrace.
func (t *JavaThread) Callers() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.callers))
	copy(out, t.callers)
	return out
}

// SetException sets the current-exception register. Invariant (spec.md
// §4.8): set iff the interpreter is in unwinding mode.
func (t *JavaThread) SetException(ex *values.OopRef) { t.currentEx = ex }

// TakeException clears and returns the current-exception register.
func (t *JavaThread) TakeException() *values.OopRef {
	ex := t.currentEx
	t.currentEx = nil
	return ex
}

func (t *JavaThread) HasException() bool { return t.currentEx != nil }
func (t *JavaThread) PeekException() *values.OopRef { return t.currentEx }

func (t *JavaThread) SetJavaThreadObj(obj *values.OopRef) { t.javaThreadObj = obj }
func (t *JavaThread) JavaThreadObj() *values.OopRef       { return t.javaThreadObj }

// Interrupt sets the cooperative interrupt flag (spec.md §5): checked at
// blocking native calls, which throw InterruptedException.
func (t *JavaThread) Interrupt()        { t.interrupted.Store(true) }
func (t *JavaThread) Interrupted() bool { return t.interrupted.Swap(false) }

// MarkUncaughtDispatched reports whether this is the first uncaught
// dispatch attempt for the thread (single-attempt policy). Subsequent
// calls return false.
func (t *JavaThread) MarkUncaughtDispatched() bool {
	if t.uncaughtDispatched {
		return false
	}
	t.uncaughtDispatched = true
	return true
}

// releaseFrameMonitor releases the monitor a frame acquired on entry (a
// synchronized method), exactly once, balancing the single Enter call
// Invoke made for this frame — used both when a frame returns normally
// and when the exception unwinder pops it abnormally (spec.md §4.6 step
// 3: "releasing any monitor it held").
func releaseFrameMonitor(t *JavaThread, f *Frame) {
	if f == nil || f.MonitorHeld == nil {
		return
	}
	f.MonitorHeld.Object().Monitor.Exit(t.id)
	f.MonitorHeld = nil
}
