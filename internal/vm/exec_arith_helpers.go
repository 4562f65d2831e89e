package vm

import (
	"math"

	"github.com/wudi/jvmcore/internal/values"
)

func fmod(a, b float64) float64 { return math.Mod(a, b) }

func (m *Machine) binInt(frame *Frame, f func(a, b int32) int32) (bool, error) {
	b, err := frame.Pop()
	if err != nil {
		return false, err
	}
	a, err := frame.Pop()
	if err != nil {
		return false, err
	}
	return true, frame.Push(values.Int32(f(a.I32, b.I32)))
}

// binIntChecked is binInt for idiv/irem, which may raise
// ArithmeticException("/ by zero") instead of producing a result.
func (m *Machine) binIntChecked(t *JavaThread, frame *Frame, f func(a, b int32) (int32, bool)) (bool, error) {
	b, err := frame.Pop()
	if err != nil {
		return false, err
	}
	a, err := frame.Pop()
	if err != nil {
		return false, err
	}
	res, ok := f(a.I32, b.I32)
	if !ok {
		m.ArithmeticException(t, "/ by zero")
		return false, nil
	}
	return true, frame.Push(values.Int32(res))
}

func (m *Machine) unInt(frame *Frame, f func(a int32) int32) (bool, error) {
	a, err := frame.Pop()
	if err != nil {
		return false, err
	}
	return true, frame.Push(values.Int32(f(a.I32)))
}

func (m *Machine) binLong(frame *Frame, f func(a, b int64) int64) (bool, error) {
	b, err := frame.PopCategory2()
	if err != nil {
		return false, err
	}
	a, err := frame.PopCategory2()
	if err != nil {
		return false, err
	}
	return true, frame.PushCategory2(values.Int64(f(a.I64, b.I64)))
}

func (m *Machine) binLongChecked(t *JavaThread, frame *Frame, f func(a, b int64) (int64, bool)) (bool, error) {
	b, err := frame.PopCategory2()
	if err != nil {
		return false, err
	}
	a, err := frame.PopCategory2()
	if err != nil {
		return false, err
	}
	res, ok := f(a.I64, b.I64)
	if !ok {
		m.ArithmeticException(t, "/ by zero")
		return false, nil
	}
	return true, frame.PushCategory2(values.Int64(res))
}

func (m *Machine) unLong(frame *Frame, f func(a int64) int64) (bool, error) {
	a, err := frame.PopCategory2()
	if err != nil {
		return false, err
	}
	return true, frame.PushCategory2(values.Int64(f(a.I64)))
}

// shiftLong pops the category-1 shift-distance int, then the category-2
// long to shift — lshl/lshr/lushr take an int shift amount, not a long
// (JVMS §6.5, unlike the symmetric-type arithmetic ops above).
func (m *Machine) shiftLong(frame *Frame, f func(a int64, b uint32) int64) (bool, error) {
	shift, err := frame.Pop()
	if err != nil {
		return false, err
	}
	a, err := frame.PopCategory2()
	if err != nil {
		return false, err
	}
	return true, frame.PushCategory2(values.Int64(f(a.I64, uint32(shift.I32))))
}

func (m *Machine) binFloat(frame *Frame, f func(a, b float32) float32) (bool, error) {
	b, err := frame.Pop()
	if err != nil {
		return false, err
	}
	a, err := frame.Pop()
	if err != nil {
		return false, err
	}
	return true, frame.Push(values.Float32(f(a.F32, b.F32)))
}

func (m *Machine) unFloat(frame *Frame, f func(a float32) float32) (bool, error) {
	a, err := frame.Pop()
	if err != nil {
		return false, err
	}
	return true, frame.Push(values.Float32(f(a.F32)))
}

func (m *Machine) binDouble(frame *Frame, f func(a, b float64) float64) (bool, error) {
	b, err := frame.PopCategory2()
	if err != nil {
		return false, err
	}
	a, err := frame.PopCategory2()
	if err != nil {
		return false, err
	}
	return true, frame.PushCategory2(values.Float64(f(a.F64, b.F64)))
}

func (m *Machine) unDouble(frame *Frame, f func(a float64) float64) (bool, error) {
	a, err := frame.PopCategory2()
	if err != nil {
		return false, err
	}
	return true, frame.PushCategory2(values.Float64(f(a.F64)))
}
