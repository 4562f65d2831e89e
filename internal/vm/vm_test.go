package vm

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wudi/jvmcore/internal/classfile"
	"github.com/wudi/jvmcore/internal/classloader"
	"github.com/wudi/jvmcore/internal/diag"
	"github.com/wudi/jvmcore/internal/values"
)

func newTestMachine(maxFrameDepth int) *Machine {
	return NewMachine(diag.New(&bytes.Buffer{}, diag.LevelDebug), maxFrameDepth)
}

func asm(t *testing.T, instrs []classfile.AsmInstr) []byte {
	t.Helper()
	code, err := classfile.Assemble(instrs)
	require.NoError(t, err)
	return code
}

func descOf(t *testing.T, raw string) *classfile.Descriptor {
	t.Helper()
	d, err := classfile.ParseDescriptor(raw)
	require.NoError(t, err)
	return d
}

// newClass builds a bare class with the given super, ready to accept
// methods/pool entries.
func newClass(name string, super *classfile.ClassRef) *classfile.ClassRef {
	return &classfile.ClassRef{
		Name: name, Super: super,
		Fields: map[string]*classfile.Field{}, Methods: map[string]*classfile.MethodId{},
	}
}

// Scenario 1 (spec.md §8): a static call returns 41+1 onto its caller's
// operand stack with no exception pending.
func TestScenario_StaticCallReturnsValue(t *testing.T) {
	m := newTestMachine(64)
	c := newClass("Simple", m.Builtins.Object)
	f := &classfile.MethodId{
		Class: c, Name: "f", Descriptor: descOf(t, "()I"),
		AccessFlags: classfile.AccStatic, MaxStack: 2,
		Code: asm(t, []classfile.AsmInstr{
			{Op: "bipush", Arg: 41}, {Op: "iconst_1"}, {Op: "iadd"}, {Op: "ireturn"},
		}),
	}
	c.Methods[classfile.MethodKey("f", "()I")] = f
	m.Repo.Define("", c)

	thread := NewJavaThread()
	m.RegisterThread(thread)

	caller := NewFrame(&classfile.MethodId{Class: c, Descriptor: descOf(t, "()V"), MaxStack: 2})
	err := m.Invoke(thread, caller, f, DispatchStatic, nil, nil)
	require.NoError(t, err)
	require.False(t, thread.HasException())

	result, err := caller.Pop()
	require.NoError(t, err)
	assert.Equal(t, int32(42), result.I32)
}

// Scenario 2: int[] a = null; a.length throws an uncaught
// NullPointerException.
func TestScenario_NullArrayLengthThrowsUncaught(t *testing.T) {
	m := newTestMachine(64)
	c := newClass("NullArrayDemo", m.Builtins.Object)
	main := &classfile.MethodId{
		Class: c, Name: "main", Descriptor: descOf(t, "()V"),
		AccessFlags: classfile.AccStatic, MaxStack: 1,
		Code: asm(t, []classfile.AsmInstr{
			{Op: "aconst_null"}, {Op: "arraylength"}, {Op: "pop"}, {Op: "return"},
		}),
	}
	c.Methods[classfile.MethodKey("main", "()V")] = main
	m.Repo.Define("", c)

	thread := NewJavaThread()
	m.RegisterThread(thread)

	err := m.Invoke(thread, nil, main, DispatchStatic, nil, nil)
	require.NoError(t, err)
	require.True(t, thread.HasException())

	exClass, ok := thread.PeekException().Class.(*classfile.ClassRef)
	require.True(t, ok)
	assert.Equal(t, m.Builtins.NullPointerException, exClass)
}

// Scenario 3: a try/catch around the same null-array access recovers
// with a fixed value and leaves no pending exception.
func TestScenario_TryCatchRecovers(t *testing.T) {
	m := newTestMachine(64)
	c := newClass("TryCatchDemo", m.Builtins.Object)
	run := &classfile.MethodId{
		Class: c, Name: "run", Descriptor: descOf(t, "()I"),
		AccessFlags: classfile.AccStatic, MaxStack: 2,
		Code: asm(t, []classfile.AsmInstr{
			{Op: "aconst_null", Label: "try_start"},
			{Op: "arraylength"},
			{Op: "pop", Label: "handler"},
			{Op: "bipush", Arg: 7},
			{Op: "ireturn"},
		}),
		ExceptionTable: []classfile.ExceptionTableEntry{
			{StartPC: 0, EndPC: 2, HandlerPC: 2, CatchType: "java.lang.NullPointerException"},
		},
	}
	c.Methods[classfile.MethodKey("run", "()I")] = run
	m.Repo.Define("", c)

	thread := NewJavaThread()
	m.RegisterThread(thread)

	caller := NewFrame(&classfile.MethodId{Class: c, Descriptor: descOf(t, "()V"), MaxStack: 2})
	err := m.Invoke(thread, caller, run, DispatchStatic, nil, nil)
	require.NoError(t, err)
	require.False(t, thread.HasException())

	result, err := caller.Pop()
	require.NoError(t, err)
	assert.Equal(t, int32(7), result.I32)
}

// Scenario 4: a <clinit> that throws surfaces as
// ExceptionInInitializerError on first touch, then NoClassDefFoundError
// on every subsequent touch of the same class.
func TestScenario_ClinitFailureThenNoClassDefFound(t *testing.T) {
	m := newTestMachine(64)
	c := newClass("Bad", m.Builtins.Object)
	clinit := &classfile.MethodId{
		Class: c, Name: "<clinit>", Descriptor: descOf(t, "()V"),
		AccessFlags: classfile.AccStatic, MaxStack: 1,
		Code: asm(t, []classfile.AsmInstr{
			{Op: "aconst_null"}, {Op: "arraylength"}, {Op: "pop"}, {Op: "return"},
		}),
	}
	use := &classfile.MethodId{
		Class: c, Name: "use", Descriptor: descOf(t, "()V"),
		AccessFlags: classfile.AccStatic, MaxStack: 0,
		Code: asm(t, []classfile.AsmInstr{{Op: "return"}}),
	}
	c.Methods[classfile.MethodKey("<clinit>", "()V")] = clinit
	c.Methods[classfile.MethodKey("use", "()V")] = use
	m.Repo.Define("", c)

	// ensureInitialized is only checked by opcode handlers (invokestatic in
	// exec_invoke.go; new/getstatic/putstatic in exec_object.go), not by
	// Machine.Invoke itself (which a <clinit>'s
	// own nested call to another already-initializing class must be able
	// to bypass) — so the driver below must go through real bytecode
	// rather than call Invoke(use) directly.
	driver := newClass("Driver", m.Builtins.Object)
	driver.Pool = []classfile.ConstantEntry{
		{Kind: classfile.ConstMethodRef, ClassName: "Bad", MemberName: "use", MemberDesc: "()V"},
	}
	touch := &classfile.MethodId{
		Class: driver, Name: "touch", Descriptor: descOf(t, "()V"),
		AccessFlags: classfile.AccStatic, MaxStack: 1,
		Code: asm(t, []classfile.AsmInstr{{Op: "invokestatic", Arg: 0}, {Op: "return"}}),
	}
	driver.Methods[classfile.MethodKey("touch", "()V")] = touch
	m.Repo.Define("", driver)

	thread := NewJavaThread()
	m.RegisterThread(thread)

	err := m.Invoke(thread, nil, touch, DispatchStatic, nil, nil)
	require.NoError(t, err)
	require.True(t, thread.HasException())
	exClass1, _ := thread.TakeException().Class.(*classfile.ClassRef)
	assert.Equal(t, m.Builtins.ExceptionInInitializerError, exClass1)

	err = m.Invoke(thread, nil, touch, DispatchStatic, nil, nil)
	require.NoError(t, err)
	require.True(t, thread.HasException())
	exClass2, _ := thread.TakeException().Class.(*classfile.ClassRef)
	assert.Equal(t, m.Builtins.NoClassDefFoundError, exClass2)
}

// Scenario 5: two threads racing to touch the same class run <clinit>
// exactly once between them.
func TestScenario_ConcurrentClassInitRunsOnce(t *testing.T) {
	log := diag.New(&bytes.Buffer{}, diag.LevelDebug)
	repo := classloader.New(log)
	c := newClass("Racy", nil)
	repo.Define("", c)

	var mu sync.Mutex
	runs := 0
	init := func(threadID uint64, c *classfile.ClassRef) error {
		mu.Lock()
		runs++
		mu.Unlock()
		time.Sleep(10 * time.Millisecond) // widen the race window
		return nil
	}

	var wg sync.WaitGroup
	wg.Add(2)
	for i := uint64(1); i <= 2; i++ {
		go func(tid uint64) {
			defer wg.Done()
			_ = repo.EnsureInitialized(tid, c, init)
		}(i)
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, runs)
	assert.Equal(t, classfile.Initialized, c.State())
}

// Scenario 6: recursive fib(10) computes 55, and a call deep enough to
// exceed the configured frame-depth limit raises StackOverflowError
// instead of crashing the host process.
func TestScenario_RecursiveFib(t *testing.T) {
	m := newTestMachine(64)
	c := newClass("Fib", m.Builtins.Object)
	c.Pool = []classfile.ConstantEntry{
		{Kind: classfile.ConstMethodRef, ClassName: "Fib", MemberName: "fib", MemberDesc: "(I)I"},
	}
	fib := &classfile.MethodId{
		Class: c, Name: "fib", Descriptor: descOf(t, "(I)I"),
		AccessFlags: classfile.AccStatic, MaxLocals: 1, MaxStack: 6,
		Code: asm(t, []classfile.AsmInstr{
			{Op: "iload_0"},
			{Op: "iconst_2"},
			{Op: "if_icmpge", To: "recurse"},
			{Op: "iload_0"},
			{Op: "ireturn"},
			{Op: "iload_0", Label: "recurse"},
			{Op: "iconst_1"},
			{Op: "isub"},
			{Op: "invokestatic", Arg: 0},
			{Op: "iload_0"},
			{Op: "iconst_2"},
			{Op: "isub"},
			{Op: "invokestatic", Arg: 0},
			{Op: "iadd"},
			{Op: "ireturn"},
		}),
	}
	c.Methods[classfile.MethodKey("fib", "(I)I")] = fib
	m.Repo.Define("", c)

	thread := NewJavaThread()
	m.RegisterThread(thread)

	caller := NewFrame(&classfile.MethodId{Class: c, Descriptor: descOf(t, "()V"), MaxStack: 2})
	err := m.Invoke(thread, caller, fib, DispatchStatic, nil, []values.Slot{values.Int32(10)})
	require.NoError(t, err)
	require.False(t, thread.HasException())
	result, err := caller.Pop()
	require.NoError(t, err)
	assert.Equal(t, int32(55), result.I32)
}

func TestScenario_DeepRecursionOverflowsWithoutCrashing(t *testing.T) {
	m := newTestMachine(50) // small on purpose, so fib(100000) blows it quickly
	c := newClass("Fib", m.Builtins.Object)
	c.Pool = []classfile.ConstantEntry{
		{Kind: classfile.ConstMethodRef, ClassName: "Fib", MemberName: "fib", MemberDesc: "(I)I"},
	}
	fib := &classfile.MethodId{
		Class: c, Name: "fib", Descriptor: descOf(t, "(I)I"),
		AccessFlags: classfile.AccStatic, MaxLocals: 1, MaxStack: 6,
		Code: asm(t, []classfile.AsmInstr{
			{Op: "iload_0"},
			{Op: "iconst_2"},
			{Op: "if_icmpge", To: "recurse"},
			{Op: "iload_0"},
			{Op: "ireturn"},
			{Op: "iload_0", Label: "recurse"},
			{Op: "iconst_1"},
			{Op: "isub"},
			{Op: "invokestatic", Arg: 0},
			{Op: "iload_0"},
			{Op: "iconst_2"},
			{Op: "isub"},
			{Op: "invokestatic", Arg: 0},
			{Op: "iadd"},
			{Op: "ireturn"},
		}),
	}
	c.Methods[classfile.MethodKey("fib", "(I)I")] = fib
	m.Repo.Define("", c)

	thread := NewJavaThread()
	m.RegisterThread(thread)

	caller := NewFrame(&classfile.MethodId{Class: c, Descriptor: descOf(t, "()V"), MaxStack: 2})
	err := m.Invoke(thread, caller, fib, DispatchStatic, nil, []values.Slot{values.Int32(100000)})
	require.NoError(t, err, "a VM-internal error would mean the implementation crashed instead of raising StackOverflowError")
	require.True(t, thread.HasException())
	exClass, _ := thread.PeekException().Class.(*classfile.ClassRef)
	assert.Equal(t, m.Builtins.StackOverflowError, exClass)
}
