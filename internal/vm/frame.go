// Package vm is the interpreter core: Frame, the fetch-decode-execute
// loop, the JavaCall protocol, the exception unwinder, and JavaThread —
// spec.md §4.1-§4.8.
package vm

import (
	"encoding/binary"

	"github.com/wudi/jvmcore/internal/classfile"
	"github.com/wudi/jvmcore/internal/opcodes"
	"github.com/wudi/jvmcore/internal/values"
)

// Frame is one activation record, per spec.md §3/§4.1.
type Frame struct {
	Method     *classfile.MethodId
	Locals     []values.Slot
	stack      []values.Slot
	PC         int
	ReturnValue *values.Slot
	PendingEx  *values.OopRef

	// MonitorHeld is the object whose monitor this frame acquired on entry
	// (synchronized methods only), so the exception unwinder can release
	// it when popping the frame abnormally (spec.md §4.6 step 3).
	MonitorHeld *values.OopRef

	wide bool // set by a wide prefix; consumed by the next opcode only
}

// NewFrame allocates a frame sized to m's max_locals/max_stack.
func NewFrame(m *classfile.MethodId) *Frame {
	return &Frame{
		Method: m,
		Locals: make([]values.Slot, m.MaxLocals),
		stack:  make([]values.Slot, 0, m.MaxStack),
	}
}

// StackOverflowBug and StackUnderflowBug indicate a VM-internal invariant
// violation (not a Java-visible StackOverflowError) — spec.md §4.1 calls
// these "implementation bugs, not Java-visible".
type StackOverflowBug struct{ MaxStack int }
type StackUnderflowBug struct{}

func (e *StackOverflowBug) Error() string  { return "vm: operand stack overflow (bug)" }
func (e *StackUnderflowBug) Error() string { return "vm: operand stack underflow (bug)" }

// Push pushes one slot onto the operand stack. The bound is MaxStack
// itself, not the backing array's capacity — an opcode like dup that
// rebuilds f.stack (see exec_stack.go) can leave cap(f.stack) larger than
// MaxStack, and checking capacity alone would then silently stop catching
// overflow for the rest of the frame's life.
func (f *Frame) Push(s values.Slot) error {
	if len(f.stack) >= f.Method.MaxStack {
		return &StackOverflowBug{MaxStack: f.Method.MaxStack}
	}
	f.stack = append(f.stack, s)
	return nil
}

// Pop pops one slot off the operand stack.
func (f *Frame) Pop() (values.Slot, error) {
	if len(f.stack) == 0 {
		return values.Slot{}, &StackUnderflowBug{}
	}
	idx := len(f.stack) - 1
	s := f.stack[idx]
	f.stack = f.stack[:idx]
	return s, nil
}

// Peek returns the top slot without popping it.
func (f *Frame) Peek() (values.Slot, error) {
	if len(f.stack) == 0 {
		return values.Slot{}, &StackUnderflowBug{}
	}
	return f.stack[len(f.stack)-1], nil
}

// Depth returns the current operand-stack depth.
func (f *Frame) Depth() int { return len(f.stack) }

// StackSnapshot returns a read-only copy of the current operand stack,
// top-of-stack last, for diagnostic display (the interactive stepper).
func (f *Frame) StackSnapshot() []values.Slot {
	out := make([]values.Slot, len(f.stack))
	copy(out, f.stack)
	return out
}

// ClearStack empties the operand stack (used when dispatching to a
// handler: spec.md §4.6 step 2, "clear the frame's operand stack").
func (f *Frame) ClearStack() { f.stack = f.stack[:0] }

// PushCategory2 pushes a long/double value as two adjacent slots: the
// value itself, then a Top marker.
func (f *Frame) PushCategory2(s values.Slot) error {
	if err := f.Push(s); err != nil {
		return err
	}
	return f.Push(values.Top())
}

// PopCategory2 pops a long/double value stored as two adjacent slots,
// discarding the Top marker.
func (f *Frame) PopCategory2() (values.Slot, error) {
	if _, err := f.Pop(); err != nil { // discard Top
		return values.Slot{}, err
	}
	return f.Pop()
}

// Load reads local slot idx.
func (f *Frame) Load(idx int) (values.Slot, error) {
	if idx < 0 || idx >= len(f.Locals) {
		return values.Slot{}, &StackUnderflowBug{}
	}
	return f.Locals[idx], nil
}

// Store writes local slot idx.
func (f *Frame) Store(idx int, s values.Slot) error {
	if idx < 0 || idx >= len(f.Locals) {
		return &StackUnderflowBug{}
	}
	f.Locals[idx] = s
	return nil
}

// LoadCategory2 reads a long/double stored across locals[idx:idx+2).
func (f *Frame) LoadCategory2(idx int) (values.Slot, error) {
	return f.Load(idx)
}

// StoreCategory2 writes a long/double across locals[idx:idx+2).
func (f *Frame) StoreCategory2(idx int, s values.Slot) error {
	if err := f.Store(idx, s); err != nil {
		return err
	}
	return f.Store(idx+1, values.Top())
}

// Instruction is one decoded fetch: the opcode plus its raw operand
// bytes. NextPC points past them; the frame's own PC still equals InstrPC
// (branch targets are interpreted relative to InstrPC).
type Instruction struct {
	Op      opcodes.Opcode
	Operands []byte
	InstrPC int // pc at which this instruction started
	NextPC  int // pc of the following instruction (before any branch)
}

// FetchInstruction reads the opcode at f.PC, per spec.md §4.1
// fetch_opcode: it decodes the operands and reports the following pc as
// NextPC without moving f.PC; a pending wide prefix doubles the index
// width of the one opcode that follows it.
func (f *Frame) FetchInstruction() (Instruction, error) {
	code := f.Method.Code
	if f.PC < 0 || f.PC >= len(code) {
		return Instruction{}, &StackUnderflowBug{}
	}
	start := f.PC
	op := opcodes.Opcode(code[f.PC])
	p := f.PC + 1

	wide := f.wide
	f.wide = false

	switch op {
	case opcodes.Wide:
		f.wide = true
		return Instruction{Op: op, InstrPC: start, NextPC: p}, nil
	case opcodes.Tableswitch:
		return f.fetchTableswitch(start, p)
	case opcodes.Lookupswitch:
		return f.fetchLookupswitch(start, p)
	}

	width := opcodes.OperandWidth(op)
	if wide {
		switch op {
		case opcodes.Iload, opcodes.Lload, opcodes.Fload, opcodes.Dload, opcodes.Aload,
			opcodes.Istore, opcodes.Lstore, opcodes.Fstore, opcodes.Dstore, opcodes.Astore, opcodes.Ret:
			width = 2
		case opcodes.Iinc:
			width = 4
		}
	}
	end := p + width
	if end > len(code) {
		return Instruction{}, &StackUnderflowBug{}
	}
	operands := code[p:end]
	return Instruction{Op: op, Operands: operands, InstrPC: start, NextPC: end}, nil
}

func (f *Frame) fetchTableswitch(start, p int) (Instruction, error) {
	// Padding to the next 4-byte boundary relative to the start of the
	// method's code (JVMS §3.3 tableswitch/lookupswitch alignment).
	pad := (4 - (p % 4)) % 4
	p += pad
	code := f.Method.Code
	if p+12 > len(code) {
		return Instruction{}, &StackUnderflowBug{}
	}
	low := int32(binary.BigEndian.Uint32(code[p+4 : p+8]))
	high := int32(binary.BigEndian.Uint32(code[p+8 : p+12]))
	n := int(high - low + 1)
	end := p + 12 + n*4
	if n < 0 || end > len(code) {
		return Instruction{}, &StackUnderflowBug{}
	}
	return Instruction{Op: opcodes.Tableswitch, Operands: code[p:end], InstrPC: start, NextPC: end}, nil
}

func (f *Frame) fetchLookupswitch(start, p int) (Instruction, error) {
	pad := (4 - (p % 4)) % 4
	p += pad
	code := f.Method.Code
	if p+8 > len(code) {
		return Instruction{}, &StackUnderflowBug{}
	}
	npairs := int(binary.BigEndian.Uint32(code[p+4 : p+8]))
	end := p + 8 + npairs*8
	if npairs < 0 || end > len(code) {
		return Instruction{}, &StackUnderflowBug{}
	}
	return Instruction{Op: opcodes.Lookupswitch, Operands: code[p:end], InstrPC: start, NextPC: end}, nil
}

// SetReturn places a return value where JavaCall's caller-side unmarshal
// step (spec.md §4.1 set_return, §4.4 step 6) expects to find it.
func (f *Frame) SetReturn(s values.Slot) {
	v := s
	f.ReturnValue = &v
}
