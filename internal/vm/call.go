package vm

import (
	"github.com/wudi/jvmcore/internal/classfile"
	"github.com/wudi/jvmcore/internal/diag"
	"github.com/wudi/jvmcore/internal/values"
)

// DispatchMode tells Invoke how to resolve the concrete target method,
// per spec.md §4.4 step 1.
type DispatchMode int

const (
	DispatchStatic DispatchMode = iota
	DispatchSpecial
	DispatchVirtual
	DispatchInterface
)

// Invoke is the JavaCall protocol of spec.md §4.4. resolved is the
// compile-time-resolved target (from the constant pool); for
// DispatchVirtual/DispatchInterface the actual target is re-resolved
// against receiver's runtime class. args are already popped from the
// caller's operand stack by the invocation opcode handler, in descriptor
// parameter order; receiver is nil for static calls. On return, if the
// call completed normally and has a non-void return type, Invoke has
// already pushed the result onto caller's operand stack; caller may be
// nil only when Invoke is used outside normal bytecode (e.g. uncaught
// dispatch, <clinit>), in which case a non-void result is simply
// discarded (callers of this path never return a value to bytecode).
func (m *Machine) Invoke(t *JavaThread, caller *Frame, resolved *classfile.MethodId, mode DispatchMode, receiver *values.OopRef, args []values.Slot) error {
	if mode != DispatchStatic && receiver == nil {
		m.NullPointerException(t, "cannot invoke %s.%s on null reference", resolved.Class.BinaryName(), resolved.Name)
		return nil
	}

	target := resolved
	switch mode {
	case DispatchVirtual:
		recvClass, _ := receiver.Class.(*classfile.ClassRef)
		found, ok := recvClass.ResolveVirtual(resolved.Name, resolved.Descriptor.Raw)
		if !ok {
			m.ThrowNew(t, m.Builtins.NoSuchMethodError, "%s.%s%s", recvClass.BinaryName(), resolved.Name, resolved.Descriptor.Raw)
			return nil
		}
		target = found
	case DispatchInterface:
		recvClass, _ := receiver.Class.(*classfile.ClassRef)
		found, ok := recvClass.ResolveInterface(resolved.Name, resolved.Descriptor.Raw)
		if !ok {
			m.ThrowNew(t, m.Builtins.IncompatibleClassChangeError, "%s does not implement %s", recvClass.BinaryName(), resolved.Name)
			return nil
		}
		target = found
	case DispatchSpecial, DispatchStatic:
		// Bypasses virtual override resolution entirely, per spec.md §4.4.
	}

	if target.IsAbstract() {
		m.ThrowNew(t, m.Builtins.AbstractMethodError, "%s.%s%s", target.Class.BinaryName(), target.Name, target.Descriptor.Raw)
		return nil
	}

	var monitorObj *values.OopRef
	if target.IsSynchronized() {
		if target.IsStatic() {
			monitorObj = target.Class.Mirror()
		} else {
			monitorObj = receiver
		}
		monitorObj.Object().Monitor.Enter(t.ID())
	}

	if target.IsNative() {
		return m.invokeNative(t, caller, target, receiver, args, monitorObj)
	}
	return m.invokeBytecode(t, caller, target, receiver, args, monitorObj)
}

func (m *Machine) invokeNative(t *JavaThread, caller *Frame, target *classfile.MethodId, receiver *values.OopRef, args []values.Slot, monitorObj *values.OopRef) error {
	handler := target.NativeHandler
	if handler == nil {
		if h, ok := m.Natives.Lookup(target); ok {
			handler = nativeBridgeFunc(h)
		}
	}
	if handler == nil {
		if monitorObj != nil {
			monitorObj.Object().Monitor.Exit(t.ID())
		}
		m.ThrowNew(t, m.Builtins.NoSuchMethodError, "native %s.%s%s not registered", target.Class.BinaryName(), target.Name, target.Descriptor.Raw)
		return nil
	}

	fullArgs := args
	if receiver != nil {
		fullArgs = append([]values.Slot{values.Ref(receiver)}, args...)
	}
	result, err := handler(&Env{M: m, T: t}, fullArgs)
	if monitorObj != nil {
		monitorObj.Object().Monitor.Exit(t.ID())
	}
	if err != nil {
		if thrown, ok := err.(*Thrown); ok {
			m.ThrowRef(t, thrown.Ex)
		} else {
			m.ThrowNew(t, m.Builtins.RuntimeException, "%v", err)
		}
		return nil
	}
	if caller != nil && target.Descriptor.Return != classfile.ParamVoid && result != nil {
		return pushReturn(caller, target.Descriptor, *result)
	}
	return nil
}

// nativeBridgeFunc adapts native.Handler (which takes interface{} env) to
// the vm-local call site.
func nativeBridgeFunc(h func(env interface{}, args []values.Slot) (*values.Slot, error)) func(env *Env, args []values.Slot) (*values.Slot, error) {
	return func(env *Env, args []values.Slot) (*values.Slot, error) {
		return h(env, args)
	}
}

func (m *Machine) invokeBytecode(t *JavaThread, caller *Frame, target *classfile.MethodId, receiver *values.OopRef, args []values.Slot, monitorObj *values.OopRef) error {
	depthBefore := t.Depth()
	if depthBefore+1 > m.MaxFrameDepth {
		if monitorObj != nil {
			monitorObj.Object().Monitor.Exit(t.ID())
		}
		m.Log.Errorf("%s", diag.StackDepth(depthBefore+1, m.MaxFrameDepth))
		m.StackOverflowError(t)
		return nil
	}

	callee := NewFrame(target)
	callee.MonitorHeld = monitorObj
	idx := 0
	if receiver != nil {
		callee.Locals[0] = values.Ref(receiver)
		idx = 1
	}
	ai := 0
	for _, p := range target.Descriptor.Params {
		if ai >= len(args) {
			break
		}
		if p.IsCategory2() {
			_ = callee.StoreCategory2(idx, args[ai])
			idx += 2
		} else {
			_ = callee.Store(idx, args[ai])
			idx++
		}
		ai++
	}

	t.PushFrame(callee)
	if err := m.RunUntilDepth(t, depthBefore); err != nil {
		return err
	}
	if t.HasException() {
		// The callee (or something it called) raised and nothing caught
		// it within [depthBefore+1, ...): Unwind already popped it and
		// released its monitor on the way past. Propagate.
		return nil
	}

	releaseFrameMonitor(t, callee)
	if caller != nil && target.Descriptor.Return != classfile.ParamVoid && callee.ReturnValue != nil {
		return pushReturn(caller, target.Descriptor, *callee.ReturnValue)
	}
	return nil
}

func pushReturn(caller *Frame, desc *classfile.Descriptor, v values.Slot) error {
	if desc.Return == classfile.ParamLong || desc.Return == classfile.ParamDouble {
		return caller.PushCategory2(v)
	}
	return caller.Push(v)
}
