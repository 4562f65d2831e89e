package vm

import (
	"fmt"

	"github.com/wudi/jvmcore/internal/classfile"
	"github.com/wudi/jvmcore/internal/classloader"
)

// clinitName is the synthetic method name/descriptor every class's static
// initializer is stored under, by convention of the classfile package.
const clinitName = "<clinit>"
const clinitDesc = "()V"

// initializer adapts Invoke into the classloader.Initializer shape: run
// c's <clinit> (if it declares one) via a nested JavaCall. Classes with no
// static initializer trivially succeed.
func (m *Machine) initializer() classloader.Initializer {
	return func(threadID uint64, c *classfile.ClassRef) error {
		clinit, ok := c.LookupMethod(clinitName, clinitDesc)
		if !ok {
			return nil
		}
		t := m.threadByID(threadID)
		if t == nil {
			return nil
		}
		if err := m.Invoke(t, nil, clinit, DispatchStatic, nil, nil); err != nil {
			return err
		}
		if !t.HasException() {
			return nil
		}
		ex := t.TakeException()
		exClass, _ := ex.Class.(*classfile.ClassRef)
		name := "<unknown>"
		if exClass != nil {
			name = exClass.BinaryName()
		}
		return fmt.Errorf("%s: %s", name, DetailMessage(ex))
	}
}

// ensureInitialized runs the class-initialization gate (spec.md §4.3) for
// c, translating a classloader-level failure into the Java-visible
// exception it names (NoClassDefFoundError / ExceptionInInitializerError)
// and leaving it in t's current-exception register. Returns true if c is
// now initialized and execution may proceed; false if an exception was
// raised.
func (m *Machine) ensureInitialized(t *JavaThread, c *classfile.ClassRef) bool {
	if c == nil {
		return true
	}
	err := m.Repo.EnsureInitialized(t.ID(), c, m.initializer())
	if err == nil {
		return true
	}
	switch e := err.(type) {
	case *classloader.NoClassDefFoundError:
		m.ThrowNew(t, m.Builtins.NoClassDefFoundError, "%s", e.ClassName)
	case *classloader.ExceptionInInitializerError:
		m.ThrowNew(t, m.Builtins.ExceptionInInitializerError, "%s: %v", e.ClassName, e.Cause)
	default:
		m.ThrowNew(t, m.Builtins.NoClassDefFoundError, "%s", c.Name)
	}
	return false
}

// threadByID is a narrow registry so a nested <clinit> call (invoked from
// deep inside classloader.Repository, which only carries a bare thread id
// to avoid importing package vm's JavaThread) can recover its *JavaThread.
// Registered by Machine.Run's caller via RegisterThread.
func (m *Machine) threadByID(id uint64) *JavaThread {
	m.threadsMu.Lock()
	defer m.threadsMu.Unlock()
	return m.threads[id]
}

// RegisterThread makes t recoverable by its id from within a nested
// <clinit> initializer call. Callers must register every JavaThread they
// create before running it.
func (m *Machine) RegisterThread(t *JavaThread) {
	m.threadsMu.Lock()
	defer m.threadsMu.Unlock()
	if m.threads == nil {
		m.threads = map[uint64]*JavaThread{}
	}
	m.threads[t.ID()] = t
}
