package vm

import (
	"math"

	"github.com/wudi/jvmcore/internal/opcodes"
	"github.com/wudi/jvmcore/internal/values"
)

// execConvert handles the widening/narrowing numeric conversions (spec.md
// §1's i2l/i2f/.../d2f family). Float-to-integer narrowing follows JVMS
// §2.8.3: NaN converts to 0; values outside the target range saturate to
// the target's min/max rather than wrapping.
func (m *Machine) execConvert(t *JavaThread, frame *Frame, inst Instruction) (bool, error) {
	switch inst.Op {
	case opcodes.I2l:
		a, err := frame.Pop()
		if err != nil {
			return false, err
		}
		return true, frame.PushCategory2(values.Int64(int64(a.I32)))
	case opcodes.I2f:
		a, err := frame.Pop()
		if err != nil {
			return false, err
		}
		return true, frame.Push(values.Float32(float32(a.I32)))
	case opcodes.I2d:
		a, err := frame.Pop()
		if err != nil {
			return false, err
		}
		return true, frame.PushCategory2(values.Float64(float64(a.I32)))
	case opcodes.I2b:
		a, err := frame.Pop()
		if err != nil {
			return false, err
		}
		return true, frame.Push(values.Int32(int32(int8(a.I32))))
	case opcodes.I2c:
		a, err := frame.Pop()
		if err != nil {
			return false, err
		}
		return true, frame.Push(values.Int32(int32(uint16(a.I32))))
	case opcodes.I2s:
		a, err := frame.Pop()
		if err != nil {
			return false, err
		}
		return true, frame.Push(values.Int32(int32(int16(a.I32))))

	case opcodes.L2i:
		a, err := frame.PopCategory2()
		if err != nil {
			return false, err
		}
		return true, frame.Push(values.Int32(int32(a.I64)))
	case opcodes.L2f:
		a, err := frame.PopCategory2()
		if err != nil {
			return false, err
		}
		return true, frame.Push(values.Float32(float32(a.I64)))
	case opcodes.L2d:
		a, err := frame.PopCategory2()
		if err != nil {
			return false, err
		}
		return true, frame.PushCategory2(values.Float64(float64(a.I64)))

	case opcodes.F2i:
		a, err := frame.Pop()
		if err != nil {
			return false, err
		}
		return true, frame.Push(values.Int32(f2i(float64(a.F32))))
	case opcodes.F2l:
		a, err := frame.Pop()
		if err != nil {
			return false, err
		}
		return true, frame.PushCategory2(values.Int64(f2l(float64(a.F32))))
	case opcodes.F2d:
		a, err := frame.Pop()
		if err != nil {
			return false, err
		}
		return true, frame.PushCategory2(values.Float64(float64(a.F32)))

	case opcodes.D2i:
		a, err := frame.PopCategory2()
		if err != nil {
			return false, err
		}
		return true, frame.Push(values.Int32(f2i(a.F64)))
	case opcodes.D2l:
		a, err := frame.PopCategory2()
		if err != nil {
			return false, err
		}
		return true, frame.PushCategory2(values.Int64(f2l(a.F64)))
	case opcodes.D2f:
		a, err := frame.PopCategory2()
		if err != nil {
			return false, err
		}
		return true, frame.Push(values.Float32(float32(a.F64)))
	}
	return false, Decorate(ErrOpcodeNotImplemented, frame, inst)
}

// f2i implements JVMS §2.8.3's float/double-to-int narrowing: NaN -> 0,
// out-of-range values saturate to math.MinInt32/MaxInt32.
func f2i(v float64) int32 {
	if math.IsNaN(v) {
		return 0
	}
	if v >= math.MaxInt32 {
		return math.MaxInt32
	}
	if v <= math.MinInt32 {
		return math.MinInt32
	}
	return int32(v)
}

// f2l is f2i's int64 counterpart.
func f2l(v float64) int64 {
	if math.IsNaN(v) {
		return 0
	}
	if v >= math.MaxInt64 {
		return math.MaxInt64
	}
	if v <= math.MinInt64 {
		return math.MinInt64
	}
	return int64(v)
}
