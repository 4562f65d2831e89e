package vm

import (
	"errors"
	"fmt"

	"github.com/wudi/jvmcore/internal/opcodes"
)

// Sentinel VM-internal failure kinds. These are never placed in a
// thread's current-exception register; spec.md §7 draws a hard line
// between Java-visible exceptions (always an OopRef) and VM-internal
// failures (always a Go error).
var (
	ErrNilContext        = errors.New("vm: nil execution context")
	ErrOpcodeNotImplemented = errors.New("vm: opcode not implemented")
	ErrMalformedBytecode = errors.New("vm: malformed bytecode in verified class")
	ErrFrameStackEmpty   = errors.New("vm: frame stack is empty")
)

// InternalError wraps a VM-internal failure with the frame/opcode/pc
// context it occurred at, grounded on the teacher's VMError: a base
// sentinel plus contextual fields, with Unwrap/Is support.
type InternalError struct {
	Base    error
	Message string
	Method  string
	Opcode  opcodes.Opcode
	PC      int
}

func (e *InternalError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("vm error in %s at pc=%d (%s): %s: %s", e.Method, e.PC, e.Opcode, e.Base.Error(), e.Message)
	}
	return fmt.Sprintf("vm error in %s at pc=%d (%s): %s", e.Method, e.PC, e.Opcode, e.Base.Error())
}

func (e *InternalError) Unwrap() error { return e.Base }

func (e *InternalError) Is(target error) bool { return errors.Is(e.Base, target) }

// Decorate attaches frame/instruction context to err, wrapping it in an
// *InternalError if it isn't already one.
func Decorate(err error, f *Frame, inst Instruction) error {
	if err == nil {
		return nil
	}
	methodName := "?"
	if f != nil && f.Method != nil {
		methodName = f.Method.Class.BinaryName() + "." + f.Method.Name
	}
	var ie *InternalError
	if errors.As(err, &ie) {
		ie.Method = methodName
		ie.Opcode = inst.Op
		ie.PC = inst.InstrPC
		return ie
	}
	return &InternalError{Base: err, Method: methodName, Opcode: inst.Op, PC: inst.InstrPC}
}
