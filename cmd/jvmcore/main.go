// Command jvmcore is the command-line surface spec.md §6 names: run a
// main class to completion under the interpreter core, with optional
// classpath-supplied class descriptors, a configurable frame-depth limit,
// and an interactive bytecode stepper.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"github.com/wudi/jvmcore/internal/classfile"
	"github.com/wudi/jvmcore/internal/config"
	"github.com/wudi/jvmcore/internal/diag"
	"github.com/wudi/jvmcore/internal/values"
	"github.com/wudi/jvmcore/internal/vm"
)

func main() {
	app := &cli.Command{
		Name:  "jvmcore",
		Usage: "run a class's main method under the JVM interpreter core",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "classpath", Aliases: []string{"cp"}, Usage: "directory of *.yaml class descriptors"},
			&cli.IntFlag{Name: "Xss", Value: 0, Usage: "max frame depth (overrides -config)"},
			&cli.StringFlag{Name: "config", Usage: "YAML boot configuration file"},
			&cli.StringFlag{Name: "debug", Value: "error", Usage: "diagnostic level: none|error|info|debug"},
			&cli.BoolFlag{Name: "i", Usage: "drop into an interactive bytecode stepper instead of running to completion"},
		},
		ArgsUsage: "main_class_name [program args...]",
		Action:    run,
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "jvmcore: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() < 1 {
		return fmt.Errorf("missing main_class_name (see --help)")
	}
	mainClassName := cmd.Args().First()
	programArgs := cmd.Args().Slice()[1:]

	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return err
	}
	if cmd.String("classpath") != "" {
		cfg.ClasspathRoots = append(cfg.ClasspathRoots, cmd.String("classpath"))
	}
	if cmd.IsSet("Xss") {
		cfg.MaxFrameDepth = int(cmd.Int("Xss"))
	}
	if cmd.IsSet("debug") {
		cfg.DebugLevel = cmd.String("debug")
	}

	log := diag.New(os.Stderr, diag.ParseLevel(cfg.DebugLevel))
	m := vm.NewMachine(log, cfg.MaxFrameDepth)

	for _, c := range buildDemoClasses(m.Builtins.Object) {
		m.Repo.Define("", c)
	}
	if err := loadClasspath(m, cfg.ClasspathRoots); err != nil {
		return err
	}

	mainClass, ok := m.Repo.Lookup("", mainClassName)
	if !ok {
		return fmt.Errorf("class not found: %s (checked classpath roots %v and built-in demos)", mainClassName, cfg.ClasspathRoots)
	}
	mainMethod, ok := mainClass.LookupMethod("main", "([Ljava.lang.String;)V")
	if !ok {
		return fmt.Errorf("%s has no static void main(String[]) method", mainClassName)
	}

	t := vm.NewJavaThread()
	m.RegisterThread(t)
	args := []values.Slot{stringArray(m, programArgs)}

	if cmd.Bool("i") {
		return runStepper(m, t, mainMethod, args)
	}

	// Invoke pushes main's frame and runs it (and everything it calls) to
	// completion via its own nested RunUntilDepth loop.
	if err := m.Invoke(t, nil, mainMethod, vm.DispatchStatic, nil, args); err != nil {
		return err
	}
	if t.HasException() {
		m.HandleUncaught(t)
		os.Exit(1)
	}
	os.Exit(0)
	return nil
}

// stringArray builds a java.lang.String[] operand-stack slot from argv.
func stringArray(m *vm.Machine, argv []string) values.Slot {
	arr := values.NewArray(values.OopReferenceArray, m.Builtins.String, len(argv))
	for i, a := range argv {
		arr.Object().Elements[i] = values.Ref(m.Builtins.NewString(a))
	}
	return values.Ref(arr)
}

// loadClasspath scans each root directory for *.yaml class descriptors
// and defines them under the bootstrap loader, in directory order. A
// descriptor's superclass/interfaces may reference any class already
// loaded (built-ins or an earlier file in the scan).
func loadClasspath(m *vm.Machine, roots []string) error {
	for _, root := range roots {
		entries, err := os.ReadDir(root)
		if err != nil {
			return fmt.Errorf("reading classpath root %s: %w", root, err)
		}
		for _, e := range entries {
			if e.IsDir() || filepath.Ext(e.Name()) != ".yaml" {
				continue
			}
			data, err := os.ReadFile(filepath.Join(root, e.Name()))
			if err != nil {
				return err
			}
			c, err := classfile.LoadClassYAML(data, func(name string) (*classfile.ClassRef, bool) {
				return m.Repo.Lookup("", name)
			})
			if err != nil {
				return fmt.Errorf("%s: %w", e.Name(), err)
			}
			m.Repo.Define("", c)
		}
	}
	return nil
}
