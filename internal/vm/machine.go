package vm

import (
	"sync"

	"github.com/wudi/jvmcore/internal/classloader"
	"github.com/wudi/jvmcore/internal/diag"
	"github.com/wudi/jvmcore/internal/native"
	"github.com/wudi/jvmcore/internal/opcodes"
	"github.com/wudi/jvmcore/internal/values"
)

// Machine is the VM-wide state shared by every JavaThread: the class
// repository, the native method bridge, the built-in exception/String
// classes, and the diagnostic sink. It holds no per-thread execution state
// of its own, only the shared collaborators and a lookup table letting a
// nested <clinit> initializer (invoked from deep inside the classloader
// with only a bare thread id) recover its *JavaThread.
type Machine struct {
	Repo          *classloader.Repository
	Natives       *native.Registry
	Builtins      *BuiltinClasses
	Log           *diag.Logger
	MaxFrameDepth int

	threadsMu sync.Mutex
	threads   map[uint64]*JavaThread
}

// NewMachine wires the collaborators together and seeds the bootstrap
// native handlers (spec.md §4.10).
func NewMachine(log *diag.Logger, maxFrameDepth int) *Machine {
	natives := native.New()
	natives.Bootstrap()
	m := &Machine{
		Repo:          classloader.New(log),
		Natives:       natives,
		Builtins:      NewBuiltinClasses(),
		Log:           log,
		MaxFrameDepth: maxFrameDepth,
	}
	for _, c := range m.Builtins.all() {
		m.Repo.Define(bootstrapLoader, c)
	}
	return m
}

// Env is what native.Handler implementations receive as their env
// argument (upcast through interface{} to avoid an import cycle between
// package native and package vm). Handlers type-assert it back via
// vm.EnvOf.
type Env struct {
	M *Machine
	T *JavaThread
}

// EnvOf recovers the concrete *Env from the interface{} a native.Handler
// is called with.
func EnvOf(env interface{}) *Env {
	e, _ := env.(*Env)
	return e
}

// The methods below let *Env satisfy package native's unexported
// threadEnv interface, so natives that need thread context (currentThread,
// sleep, wait/notify, fillInStackTrace) can reach it without package
// native importing package vm (which already imports native).
func (e *Env) ThreadID() uint64              { return e.T.ID() }
func (e *Env) JavaThreadObj() *values.OopRef { return e.T.JavaThreadObj() }
func (e *Env) Callers() []string             { return e.T.Callers() }
func (e *Env) Interrupted() bool             { return e.T.Interrupted() }

// Run drives t's interpreter loop from its currently pushed frame(s) to
// completion (empty frame stack), dispatching an uncaught exception if
// one escapes every frame. Returns only on a VM-internal failure;
// Java-visible control flow never surfaces as a Go error here.
func (m *Machine) Run(t *JavaThread) error {
	if err := m.RunUntilDepth(t, 0); err != nil {
		return err
	}
	if t.HasException() {
		m.HandleUncaught(t)
	}
	return nil
}

// StepOne runs a single fetch-decode-execute cycle on t's current frame:
// exactly one opcode (transparently absorbing a wide prefix into the
// instruction it modifies, since that prefix carries no handler of its
// own). Used by the CLI's interactive stepper; RunUntilDepth is the same
// loop body run to a depth bound instead of a single iteration.
func (m *Machine) StepOne(t *JavaThread) error {
	if t.HasException() {
		m.Unwind(t, 0)
		return nil
	}
	frame := t.CurrentFrame()
	if frame == nil {
		return nil
	}
	for {
		inst, err := frame.FetchInstruction()
		if err != nil {
			return Decorate(err, frame, inst)
		}
		if inst.Op == opcodes.Wide {
			frame.PC = inst.NextPC
			continue
		}
		advance, err := m.execute(t, frame, inst)
		if err != nil {
			return Decorate(err, frame, inst)
		}
		if advance {
			frame.PC = inst.NextPC
		}
		return nil
	}
}

// RunUntilDepth executes t's fetch-decode-execute loop (spec.md §4.2)
// until the frame stack depth returns to depth or below — i.e. until the
// frame JavaCall most recently pushed (and everything above it) has
// either returned normally or been unwound away. It is itself called
// recursively by JavaCall, which is how the interpreter supports
// reentrancy (a native method calling back into Java calling a native
// method again): each nested call gets its own Go-stack-resident loop.
func (m *Machine) RunUntilDepth(t *JavaThread, depth int) error {
	for {
		if t.Depth() <= depth {
			return nil
		}
		if t.HasException() {
			if !m.Unwind(t, depth) {
				return nil
			}
			continue
		}
		frame := t.CurrentFrame()
		if frame == nil {
			return nil
		}
		inst, err := frame.FetchInstruction()
		if err != nil {
			return Decorate(err, frame, inst)
		}
		if inst.Op == opcodes.Wide {
			// The wide prefix carries no handler of its own; loop fetches
			// the next (now wide-flagged) instruction immediately.
			frame.PC = inst.NextPC
			continue
		}
		advance, err := m.execute(t, frame, inst)
		if err != nil {
			return Decorate(err, frame, inst)
		}
		if advance {
			frame.PC = inst.NextPC
		}
	}
}
