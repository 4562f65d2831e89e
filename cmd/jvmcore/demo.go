package main

import (
	"github.com/wudi/jvmcore/internal/classfile"
)

// buildDemoClasses assembles the small set of classes this CLI can run
// out of the box, with no classpath configured. Each corresponds to one
// of the scenarios the interpreter core's test suite exercises end to
// end (a static call returning a value, a null-array NPE, a try/catch
// recovery, and a recursive call) — handy fixtures for -i stepping since
// there is no classfile parser here to point at a real .class file.
func buildDemoClasses(object *classfile.ClassRef) []*classfile.ClassRef {
	return []*classfile.ClassRef{
		buildSimple(object),
		buildNullArrayDemo(object),
		buildTryCatchDemo(object),
		buildFib(object),
	}
}

func mustAssemble(instrs []classfile.AsmInstr) []byte {
	code, err := classfile.Assemble(instrs)
	if err != nil {
		panic(err) // demo fixtures are fixed at compile time; a bad one is a programming error
	}
	return code
}

func mustDescriptor(raw string) *classfile.Descriptor {
	d, err := classfile.ParseDescriptor(raw)
	if err != nil {
		panic(err)
	}
	return d
}

// buildSimple: static int f() { return 41 + 1; } called from main, whose
// own return value is discarded (spec.md §8 scenario 1).
func buildSimple(object *classfile.ClassRef) *classfile.ClassRef {
	c := &classfile.ClassRef{Name: "Simple", Super: object, Fields: map[string]*classfile.Field{}, Methods: map[string]*classfile.MethodId{}}
	c.Pool = []classfile.ConstantEntry{
		{Kind: classfile.ConstMethodRef, ClassName: "Simple", MemberName: "f", MemberDesc: "()I"},
	}
	f := &classfile.MethodId{
		Class: c, Name: "f", Descriptor: mustDescriptor("()I"),
		AccessFlags: classfile.AccStatic, MaxLocals: 0, MaxStack: 2,
		Code: mustAssemble([]classfile.AsmInstr{
			{Op: "bipush", Arg: 41},
			{Op: "iconst_1"},
			{Op: "iadd"},
			{Op: "ireturn"},
		}),
	}
	main := &classfile.MethodId{
		Class: c, Name: "main", Descriptor: mustDescriptor("([Ljava.lang.String;)V"),
		AccessFlags: classfile.AccStatic, MaxLocals: 1, MaxStack: 2,
		Code: mustAssemble([]classfile.AsmInstr{
			{Op: "invokestatic", Arg: 0},
			{Op: "pop"},
			{Op: "return"},
		}),
	}
	c.Methods[classfile.MethodKey("f", "()I")] = f
	c.Methods[classfile.MethodKey("main", "([Ljava.lang.String;)V")] = main
	return c
}

// buildNullArrayDemo: int[] a = null; a.length — NullPointerException,
// uncaught, exit 1 (spec.md §8 scenario 2).
func buildNullArrayDemo(object *classfile.ClassRef) *classfile.ClassRef {
	c := &classfile.ClassRef{Name: "NullArrayDemo", Super: object, Fields: map[string]*classfile.Field{}, Methods: map[string]*classfile.MethodId{}}
	main := &classfile.MethodId{
		Class: c, Name: "main", Descriptor: mustDescriptor("([Ljava.lang.String;)V"),
		AccessFlags: classfile.AccStatic, MaxLocals: 1, MaxStack: 1,
		Code: mustAssemble([]classfile.AsmInstr{
			{Op: "aconst_null"},
			{Op: "arraylength"},
			{Op: "pop"},
			{Op: "return"},
		}),
	}
	c.Methods[classfile.MethodKey("main", "([Ljava.lang.String;)V")] = main
	return c
}

// buildTryCatchDemo: a try/catch around a null-array access, recovering
// with a fixed return value (spec.md §8 scenario 3).
func buildTryCatchDemo(object *classfile.ClassRef) *classfile.ClassRef {
	c := &classfile.ClassRef{Name: "TryCatchDemo", Super: object, Fields: map[string]*classfile.Field{}, Methods: map[string]*classfile.MethodId{}}
	c.Pool = []classfile.ConstantEntry{
		{Kind: classfile.ConstMethodRef, ClassName: "TryCatchDemo", MemberName: "run", MemberDesc: "()I"},
	}
	run := &classfile.MethodId{
		Class: c, Name: "run", Descriptor: mustDescriptor("()I"),
		AccessFlags: classfile.AccStatic, MaxLocals: 0, MaxStack: 2,
		Code: mustAssemble([]classfile.AsmInstr{
			{Op: "aconst_null", Label: "try_start"},
			{Op: "arraylength"},
			{Op: "pop", Label: "handler"},
			{Op: "bipush", Arg: 7},
			{Op: "ireturn"},
		}),
		ExceptionTable: []classfile.ExceptionTableEntry{
			{StartPC: 0, EndPC: 2, HandlerPC: 2, CatchType: "java.lang.NullPointerException"},
		},
	}
	main := &classfile.MethodId{
		Class: c, Name: "main", Descriptor: mustDescriptor("([Ljava.lang.String;)V"),
		AccessFlags: classfile.AccStatic, MaxLocals: 1, MaxStack: 2,
		Code: mustAssemble([]classfile.AsmInstr{
			{Op: "invokestatic", Arg: 0},
			{Op: "pop"},
			{Op: "return"},
		}),
	}
	c.Methods[classfile.MethodKey("run", "()I")] = run
	c.Methods[classfile.MethodKey("main", "([Ljava.lang.String;)V")] = main
	return c
}

// buildFib: recursive int fib(int n) { return n < 2 ? n : fib(n-1) +
// fib(n-2); }, called from main with n = 10 (spec.md §8 scenario 6).
func buildFib(object *classfile.ClassRef) *classfile.ClassRef {
	c := &classfile.ClassRef{Name: "Fib", Super: object, Fields: map[string]*classfile.Field{}, Methods: map[string]*classfile.MethodId{}}
	c.Pool = []classfile.ConstantEntry{
		{Kind: classfile.ConstMethodRef, ClassName: "Fib", MemberName: "fib", MemberDesc: "(I)I"},
	}
	fib := &classfile.MethodId{
		Class: c, Name: "fib", Descriptor: mustDescriptor("(I)I"),
		AccessFlags: classfile.AccStatic, MaxLocals: 1, MaxStack: 6,
		Code: mustAssemble([]classfile.AsmInstr{
			{Op: "iload_0"},
			{Op: "iconst_2"},
			{Op: "if_icmpge", To: "recurse"},
			{Op: "iload_0"},
			{Op: "ireturn"},
			{Op: "iload_0", Label: "recurse"},
			{Op: "iconst_1"},
			{Op: "isub"},
			{Op: "invokestatic", Arg: 0},
			{Op: "iload_0"},
			{Op: "iconst_2"},
			{Op: "isub"},
			{Op: "invokestatic", Arg: 0},
			{Op: "iadd"},
			{Op: "ireturn"},
		}),
	}
	main := &classfile.MethodId{
		Class: c, Name: "main", Descriptor: mustDescriptor("([Ljava.lang.String;)V"),
		AccessFlags: classfile.AccStatic, MaxLocals: 1, MaxStack: 2,
		Code: mustAssemble([]classfile.AsmInstr{
			{Op: "bipush", Arg: 10},
			{Op: "invokestatic", Arg: 0},
			{Op: "pop"},
			{Op: "return"},
		}),
	}
	c.Methods[classfile.MethodKey("fib", "(I)I")] = fib
	c.Methods[classfile.MethodKey("main", "([Ljava.lang.String;)V")] = main
	return c
}
