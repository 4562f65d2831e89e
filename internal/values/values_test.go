package values

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type stubClass string

func (s stubClass) BinaryName() string { return string(s) }

func TestSlot_CategoryWidths(t *testing.T) {
	assert.False(t, KindInt32.IsCategory2())
	assert.True(t, KindInt64.IsCategory2())
	assert.True(t, KindFloat64.IsCategory2())
	assert.False(t, KindRef.IsCategory2())
}

func TestSlot_BoolConvertsToIntSlot(t *testing.T) {
	assert.Equal(t, Int32(1), Bool(true))
	assert.Equal(t, Int32(0), Bool(false))
}

func TestSlot_IsNullRef(t *testing.T) {
	assert.True(t, Null().IsNullRef())
	assert.False(t, Ref(NewInstance(stubClass("X"), nil)).IsNullRef())
	assert.False(t, Int32(0).IsNullRef(), "a zero int is not a null reference")
}

func TestSlot_String(t *testing.T) {
	assert.Equal(t, "int(42)", Int32(42).String())
	assert.Equal(t, "ref(null)", Null().String())
	assert.Equal(t, "top", Top().String())
}

func TestOopRef_IdentityNotEquality(t *testing.T) {
	a := NewInstance(stubClass("Foo"), map[string]*Slot{})
	b := NewInstance(stubClass("Foo"), map[string]*Slot{})
	assert.True(t, SameObject(a, a))
	assert.False(t, SameObject(a, b), "two distinct allocations of the same class are not the same object")
}

func TestOopRef_SameObjectBothNull(t *testing.T) {
	assert.True(t, SameObject(nil, nil))
}

func TestOopRef_DistinctUUIDsPerAllocation(t *testing.T) {
	a := NewInstance(stubClass("Foo"), nil)
	b := NewInstance(stubClass("Foo"), nil)
	assert.NotEqual(t, a.ID(), b.ID())
}

func TestOopRef_NewArrayTracksLength(t *testing.T) {
	arr := NewArray(OopPrimitiveArray, nil, 5)
	assert.Equal(t, 5, arr.Len())
	assert.Equal(t, 0, (*OopRef)(nil).Len())
}

func TestOopRef_StringOnNilIsNull(t *testing.T) {
	var r *OopRef
	assert.Equal(t, "null", r.String())
}

func TestMonitor_ReentrantEnterExit(t *testing.T) {
	var mon Monitor
	mon.Enter(1)
	mon.Enter(1)
	assert.True(t, mon.HeldBy(1))
	assert.True(t, mon.Exit(1))
	assert.True(t, mon.HeldBy(1), "still held after one of two Exits")
	assert.True(t, mon.Exit(1))
	assert.False(t, mon.HeldBy(1))
}

func TestMonitor_ExitByNonOwnerFails(t *testing.T) {
	var mon Monitor
	mon.Enter(1)
	assert.False(t, mon.Exit(2))
}

func TestMonitor_WaitByNonOwnerFails(t *testing.T) {
	var mon Monitor
	assert.False(t, mon.Wait(1))
}

func TestMonitor_NotifyWakesWaiter(t *testing.T) {
	var mon Monitor
	mon.Enter(1)

	var wg sync.WaitGroup
	wg.Add(1)
	woke := false
	go func() {
		defer wg.Done()
		mon.Enter(1)
		woke = mon.Wait(1)
		mon.Exit(1)
	}()

	time.Sleep(10 * time.Millisecond)
	mon.Notify()
	mon.Exit(1)
	wg.Wait()

	assert.True(t, woke)
}

func TestMonitor_BlocksOtherThreadsUntilReleased(t *testing.T) {
	var mon Monitor
	mon.Enter(1)

	acquired := make(chan struct{})
	go func() {
		mon.Enter(2)
		close(acquired)
		mon.Exit(2)
	}()

	select {
	case <-acquired:
		t.Fatal("second thread acquired the monitor while the first still held it")
	case <-time.After(20 * time.Millisecond):
	}

	mon.Exit(1)
	select {
	case <-acquired:
	case <-time.After(50 * time.Millisecond):
		t.Fatal("second thread never acquired the monitor after release")
	}
}
