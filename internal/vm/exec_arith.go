package vm

import "github.com/wudi/jvmcore/internal/opcodes"

// execArith handles the binary and unary arithmetic/bitwise families
// (spec.md §1: add/sub/mul/div/rem/neg/shl/shr/ushr/and/or/xor across
// int/long/float/double). Integer division and remainder by zero raise
// ArithmeticException; overflow wraps silently per Java's two's-complement
// semantics, which Go's fixed-width integer arithmetic already matches.
func (m *Machine) execArith(t *JavaThread, frame *Frame, inst Instruction) (bool, error) {
	switch inst.Op {
	case opcodes.Iadd:
		return m.binInt(frame, func(a, b int32) int32 { return a + b })
	case opcodes.Isub:
		return m.binInt(frame, func(a, b int32) int32 { return a - b })
	case opcodes.Imul:
		return m.binInt(frame, func(a, b int32) int32 { return a * b })
	case opcodes.Idiv:
		return m.binIntChecked(t, frame, func(a, b int32) (int32, bool) {
			if b == 0 {
				return 0, false
			}
			return a / b, true
		})
	case opcodes.Irem:
		return m.binIntChecked(t, frame, func(a, b int32) (int32, bool) {
			if b == 0 {
				return 0, false
			}
			return a % b, true
		})
	case opcodes.Ineg:
		return m.unInt(frame, func(a int32) int32 { return -a })
	case opcodes.Ishl:
		return m.binInt(frame, func(a, b int32) int32 { return a << (uint32(b) & 31) })
	case opcodes.Ishr:
		return m.binInt(frame, func(a, b int32) int32 { return a >> (uint32(b) & 31) })
	case opcodes.Iushr:
		return m.binInt(frame, func(a, b int32) int32 { return int32(uint32(a) >> (uint32(b) & 31)) })
	case opcodes.Iand:
		return m.binInt(frame, func(a, b int32) int32 { return a & b })
	case opcodes.Ior:
		return m.binInt(frame, func(a, b int32) int32 { return a | b })
	case opcodes.Ixor:
		return m.binInt(frame, func(a, b int32) int32 { return a ^ b })

	case opcodes.Ladd:
		return m.binLong(frame, func(a, b int64) int64 { return a + b })
	case opcodes.Lsub:
		return m.binLong(frame, func(a, b int64) int64 { return a - b })
	case opcodes.Lmul:
		return m.binLong(frame, func(a, b int64) int64 { return a * b })
	case opcodes.Ldiv:
		return m.binLongChecked(t, frame, func(a, b int64) (int64, bool) {
			if b == 0 {
				return 0, false
			}
			return a / b, true
		})
	case opcodes.Lrem:
		return m.binLongChecked(t, frame, func(a, b int64) (int64, bool) {
			if b == 0 {
				return 0, false
			}
			return a % b, true
		})
	case opcodes.Lneg:
		return m.unLong(frame, func(a int64) int64 { return -a })
	case opcodes.Lshl:
		return m.shiftLong(frame, func(a int64, b uint32) int64 { return a << (b & 63) })
	case opcodes.Lshr:
		return m.shiftLong(frame, func(a int64, b uint32) int64 { return a >> (b & 63) })
	case opcodes.Lushr:
		return m.shiftLong(frame, func(a int64, b uint32) int64 { return int64(uint64(a) >> (b & 63)) })
	case opcodes.Land:
		return m.binLong(frame, func(a, b int64) int64 { return a & b })
	case opcodes.Lor:
		return m.binLong(frame, func(a, b int64) int64 { return a | b })
	case opcodes.Lxor:
		return m.binLong(frame, func(a, b int64) int64 { return a ^ b })

	case opcodes.Fadd:
		return m.binFloat(frame, func(a, b float32) float32 { return a + b })
	case opcodes.Fsub:
		return m.binFloat(frame, func(a, b float32) float32 { return a - b })
	case opcodes.Fmul:
		return m.binFloat(frame, func(a, b float32) float32 { return a * b })
	case opcodes.Fdiv:
		return m.binFloat(frame, func(a, b float32) float32 { return a / b })
	case opcodes.Frem:
		return m.binFloat(frame, func(a, b float32) float32 { return float32(fmod(float64(a), float64(b))) })
	case opcodes.Fneg:
		return m.unFloat(frame, func(a float32) float32 { return -a })

	case opcodes.Dadd:
		return m.binDouble(frame, func(a, b float64) float64 { return a + b })
	case opcodes.Dsub:
		return m.binDouble(frame, func(a, b float64) float64 { return a - b })
	case opcodes.Dmul:
		return m.binDouble(frame, func(a, b float64) float64 { return a * b })
	case opcodes.Ddiv:
		return m.binDouble(frame, func(a, b float64) float64 { return a / b })
	case opcodes.Drem:
		return m.binDouble(frame, func(a, b float64) float64 { return fmod(a, b) })
	case opcodes.Dneg:
		return m.unDouble(frame, func(a float64) float64 { return -a })
	}
	return false, Decorate(ErrOpcodeNotImplemented, frame, inst)
}
