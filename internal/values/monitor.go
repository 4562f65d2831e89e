package values

import "sync"

// Monitor is the intrinsic lock embedded in every heap object's header.
// It is reentrant: the owning thread may acquire it repeatedly and must
// release it the same number of times. ThreadID is an opaque identifier
// supplied by package vm (a *Slot-free integer so values stays free of a
// dependency on vm).
type Monitor struct {
	mu      sync.Mutex
	cond    *sync.Cond
	owner   uint64
	held    bool
	count   int
	waiting int
}

func (m *Monitor) init() {
	if m.cond == nil {
		m.cond = sync.NewCond(&m.mu)
	}
}

// Enter acquires the monitor for threadID, blocking if another thread
// holds it. Reentrant for the same threadID.
func (m *Monitor) Enter(threadID uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.init()
	for m.held && m.owner != threadID {
		m.cond.Wait()
	}
	m.owner = threadID
	m.held = true
	m.count++
}

// Exit releases one level of ownership. Returns false (an
// IllegalMonitorStateException in the caller's terms) if threadID does not
// hold the monitor.
func (m *Monitor) Exit(threadID uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.init()
	if !m.held || m.owner != threadID {
		return false
	}
	m.count--
	if m.count == 0 {
		m.held = false
		m.cond.Signal()
	}
	return true
}

// HeldBy reports whether threadID currently owns the monitor (any
// recursion depth).
func (m *Monitor) HeldBy(threadID uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.held && m.owner == threadID
}

// Wait releases the monitor and blocks until Notify/NotifyAll, then
// reacquires it at the same recursion depth (Object.wait semantics). A
// release by another thread's Exit can also wake it, which Object.wait
// allows as a spurious wakeup.
func (m *Monitor) Wait(threadID uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.init()
	if !m.held || m.owner != threadID {
		return false
	}
	savedCount := m.count
	m.held = false
	m.count = 0
	m.waiting++
	m.cond.Signal()
	m.cond.Wait()
	for m.held {
		m.cond.Wait()
	}
	m.waiting--
	m.owner = threadID
	m.held = true
	m.count = savedCount
	return true
}

func (m *Monitor) Notify() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.init()
	m.cond.Signal()
}

func (m *Monitor) NotifyAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.init()
	m.cond.Broadcast()
}
