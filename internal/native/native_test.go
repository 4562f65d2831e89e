package native

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wudi/jvmcore/internal/classfile"
	"github.com/wudi/jvmcore/internal/values"
)

func newObjectClass() *classfile.ClassRef {
	return &classfile.ClassRef{
		Name:    "java.lang.Object",
		Fields:  map[string]*classfile.Field{},
		Methods: map[string]*classfile.MethodId{},
	}
}

func methodOf(c *classfile.ClassRef, name, desc string) *classfile.MethodId {
	return &classfile.MethodId{Class: c, Name: name, Descriptor: &classfile.Descriptor{Raw: desc}}
}

// fakeEnv stands in for *vm.Env (which this package cannot import without
// creating a cycle) so tests can exercise the handlers that type-assert
// env against the unexported threadEnv interface.
type fakeEnv struct {
	id          uint64
	threadObj   *values.OopRef
	callers     []string
	interrupted bool
}

func (e *fakeEnv) ThreadID() uint64              { return e.id }
func (e *fakeEnv) JavaThreadObj() *values.OopRef { return e.threadObj }
func (e *fakeEnv) Callers() []string             { return e.callers }
func (e *fakeEnv) Interrupted() bool             { return e.interrupted }

func TestRegistry_LookupMissReturnsFalse(t *testing.T) {
	r := New()
	_, ok := r.Lookup(methodOf(newObjectClass(), "hashCode", "()I"))
	assert.False(t, ok)
}

func TestRegistry_RegisterThenLookup(t *testing.T) {
	r := New()
	called := false
	r.Register("Foo", "bar", "()V", func(env interface{}, args []values.Slot) (*values.Slot, error) {
		called = true
		return nil, nil
	})
	h, ok := r.Lookup(methodOf(&classfile.ClassRef{Name: "Foo"}, "bar", "()V"))
	require.True(t, ok)
	_, err := h(nil, nil)
	require.NoError(t, err)
	assert.True(t, called)
}

func TestRegistry_ReRegisterOverwrites(t *testing.T) {
	r := New()
	r.Register("Foo", "bar", "()V", func(env interface{}, args []values.Slot) (*values.Slot, error) {
		return nil, nil
	})
	second := values.Int32(9)
	r.Register("Foo", "bar", "()V", func(env interface{}, args []values.Slot) (*values.Slot, error) {
		return &second, nil
	})
	h, ok := r.Lookup(methodOf(&classfile.ClassRef{Name: "Foo"}, "bar", "()V"))
	require.True(t, ok)
	result, err := h(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(9), result.I32)
}

func TestRegistry_BootstrapIsIdempotent(t *testing.T) {
	r := New()
	r.Bootstrap()
	r.Bootstrap()
	_, ok := r.Lookup(methodOf(newObjectClass(), "hashCode", "()I"))
	assert.True(t, ok)
}

func TestObjectHashCode_NullReceiverErrors(t *testing.T) {
	r := New()
	r.Bootstrap()
	h, _ := r.Lookup(methodOf(newObjectClass(), "hashCode", "()I"))
	_, err := h(nil, []values.Slot{values.Null()})
	assert.Error(t, err)
}

func TestObjectHashCode_StableForSameObject(t *testing.T) {
	r := New()
	r.Bootstrap()
	h, _ := r.Lookup(methodOf(newObjectClass(), "hashCode", "()I"))
	obj := values.NewInstance(newObjectClass(), nil)

	first, err := h(nil, []values.Slot{values.Ref(obj)})
	require.NoError(t, err)
	second, err := h(nil, []values.Slot{values.Ref(obj)})
	require.NoError(t, err)
	assert.Equal(t, first.I32, second.I32)
}

func TestObjectGetClass_ReturnsMirror(t *testing.T) {
	r := New()
	r.Bootstrap()
	h, _ := r.Lookup(methodOf(newObjectClass(), "getClass", "()Ljava.lang.Class;"))
	c := newObjectClass()
	obj := values.NewInstance(c, nil)
	result, err := h(nil, []values.Slot{values.Ref(obj)})
	require.NoError(t, err)
	assert.Equal(t, values.OopClassMirror, result.Ref.Kind)
}

func TestSystemArraycopy_CopiesRange(t *testing.T) {
	r := New()
	r.Bootstrap()
	h, _ := r.Lookup(methodOf(&classfile.ClassRef{Name: "java.lang.System"}, "arraycopy",
		"(Ljava.lang.Object;ILjava.lang.Object;II)V"))

	src := values.NewArray(values.OopPrimitiveArray, nil, 5)
	for i := range src.Object().Elements {
		src.Object().Elements[i] = values.Int32(int32(i))
	}
	dst := values.NewArray(values.OopPrimitiveArray, nil, 5)

	_, err := h(nil, []values.Slot{
		values.Ref(src), values.Int32(1),
		values.Ref(dst), values.Int32(0),
		values.Int32(3),
	})
	require.NoError(t, err)
	assert.Equal(t, int32(1), dst.Object().Elements[0].I32)
	assert.Equal(t, int32(2), dst.Object().Elements[1].I32)
	assert.Equal(t, int32(3), dst.Object().Elements[2].I32)
}

func TestSystemArraycopy_OutOfBoundsErrors(t *testing.T) {
	r := New()
	r.Bootstrap()
	h, _ := r.Lookup(methodOf(&classfile.ClassRef{Name: "java.lang.System"}, "arraycopy",
		"(Ljava.lang.Object;ILjava.lang.Object;II)V"))

	src := values.NewArray(values.OopPrimitiveArray, nil, 2)
	dst := values.NewArray(values.OopPrimitiveArray, nil, 2)
	_, err := h(nil, []values.Slot{
		values.Ref(src), values.Int32(0),
		values.Ref(dst), values.Int32(0),
		values.Int32(5),
	})
	assert.Error(t, err)
}

func TestSystemArraycopy_NullArrayErrors(t *testing.T) {
	r := New()
	r.Bootstrap()
	h, _ := r.Lookup(methodOf(&classfile.ClassRef{Name: "java.lang.System"}, "arraycopy",
		"(Ljava.lang.Object;ILjava.lang.Object;II)V"))
	_, err := h(nil, []values.Slot{
		values.Null(), values.Int32(0),
		values.Ref(values.NewArray(values.OopPrimitiveArray, nil, 2)), values.Int32(0),
		values.Int32(1),
	})
	assert.Error(t, err)
}

func TestSystemNanoTime_ReturnsIncreasingLongs(t *testing.T) {
	r := New()
	r.Bootstrap()
	h, _ := r.Lookup(methodOf(&classfile.ClassRef{Name: "java.lang.System"}, "nanoTime", "()J"))

	first, err := h(nil, nil)
	require.NoError(t, err)
	second, err := h(nil, nil)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, second.I64, first.I64)
}

func TestThreadCurrentThread_ReturnsBoundMirror(t *testing.T) {
	r := New()
	r.Bootstrap()
	h, _ := r.Lookup(methodOf(&classfile.ClassRef{Name: "java.lang.Thread"}, "currentThread", "()Ljava.lang.Thread;"))

	threadObj := values.NewInstance(&classfile.ClassRef{Name: "java.lang.Thread"}, nil)
	result, err := h(&fakeEnv{threadObj: threadObj}, nil)
	require.NoError(t, err)
	assert.True(t, values.SameObject(threadObj, result.Ref))
}

func TestThreadCurrentThread_RequiresThreadAwareEnv(t *testing.T) {
	r := New()
	r.Bootstrap()
	h, _ := r.Lookup(methodOf(&classfile.ClassRef{Name: "java.lang.Thread"}, "currentThread", "()Ljava.lang.Thread;"))
	_, err := h(nil, nil)
	assert.Error(t, err, "a nil env has no thread to bind currentThread() to")
}

func TestThreadSleep_InterruptedBeforeSleepErrorsImmediately(t *testing.T) {
	r := New()
	r.Bootstrap()
	h, _ := r.Lookup(methodOf(&classfile.ClassRef{Name: "java.lang.Thread"}, "sleep", "(J)V"))
	_, err := h(&fakeEnv{interrupted: true}, []values.Slot{values.Int64(1000)})
	assert.Error(t, err)
}

func TestThreadSleep_CompletesWithoutInterrupt(t *testing.T) {
	r := New()
	r.Bootstrap()
	h, _ := r.Lookup(methodOf(&classfile.ClassRef{Name: "java.lang.Thread"}, "sleep", "(J)V"))
	_, err := h(&fakeEnv{}, []values.Slot{values.Int64(1)})
	assert.NoError(t, err)
}

func TestObjectWait_WithoutHoldingMonitorErrors(t *testing.T) {
	r := New()
	r.Bootstrap()
	h, _ := r.Lookup(methodOf(newObjectClass(), "wait", "()V"))
	obj := values.NewInstance(newObjectClass(), nil)
	_, err := h(&fakeEnv{id: 1}, []values.Slot{values.Ref(obj)})
	assert.Error(t, err, "wait() without owning the monitor is an IllegalMonitorStateException in real Java")
}

func TestObjectWait_NotifyWakesWaiter(t *testing.T) {
	r := New()
	r.Bootstrap()
	waitFn, _ := r.Lookup(methodOf(newObjectClass(), "wait", "()V"))
	notifyFn, _ := r.Lookup(methodOf(newObjectClass(), "notify", "()V"))

	obj := values.NewInstance(newObjectClass(), nil)
	obj.Object().Monitor.Enter(1)

	done := make(chan error, 1)
	go func() {
		_, err := waitFn(&fakeEnv{id: 1}, []values.Slot{values.Ref(obj)})
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	obj.Object().Monitor.Enter(2)
	_, err := notifyFn(&fakeEnv{id: 2}, []values.Slot{values.Ref(obj)})
	require.NoError(t, err)
	obj.Object().Monitor.Exit(2)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("waiter was never woken by notify")
	}
}

func TestObjectNotifyAll_NullReceiverErrors(t *testing.T) {
	r := New()
	r.Bootstrap()
	h, _ := r.Lookup(methodOf(newObjectClass(), "notifyAll", "()V"))
	_, err := h(nil, []values.Slot{values.Null()})
	assert.Error(t, err)
}

func TestThrowableFillInStackTrace_CapturesCallers(t *testing.T) {
	r := New()
	r.Bootstrap()
	h, _ := r.Lookup(methodOf(&classfile.ClassRef{Name: "java.lang.Throwable"}, "fillInStackTrace",
		"()Ljava.lang.Throwable;"))

	ex := values.NewInstance(&classfile.ClassRef{Name: "java.lang.Throwable"}, map[string]*values.Slot{})
	result, err := h(&fakeEnv{callers: []string{"Foo.bar", "Baz.qux"}}, []values.Slot{values.Ref(ex)})
	require.NoError(t, err)
	assert.True(t, values.SameObject(ex, result.Ref), "fillInStackTrace returns the receiver")
	assert.Equal(t, "Foo.bar\n\tat Baz.qux", ex.Object().Native)
}

func TestThrowableFillInStackTrace_NullReceiverErrors(t *testing.T) {
	r := New()
	r.Bootstrap()
	h, _ := r.Lookup(methodOf(&classfile.ClassRef{Name: "java.lang.Throwable"}, "fillInStackTrace",
		"()Ljava.lang.Throwable;"))
	_, err := h(&fakeEnv{}, []values.Slot{values.Null()})
	assert.Error(t, err)
}
