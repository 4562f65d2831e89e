package vm

import (
	"github.com/wudi/jvmcore/internal/classfile"
	"github.com/wudi/jvmcore/internal/values"
)

// bootstrapLoader is the loader id under which every built-in class
// (java.lang.*) is defined — the bootstrap class loader in JVM terms.
const bootstrapLoader = ""

// builtinClass constructs a minimal ClassRef for a built-in class: no
// bytecode methods, just identity and a superclass link, sufficient for
// instanceof/checkcast/exception-table matching and Throwable field
// access. Real user classes arrive fully formed from the classfile
// package; these exist only because spec.md's taxonomy of Java-visible
// exceptions (§7) must be constructible without a .class file to parse.
func builtinClass(name string, super *classfile.ClassRef) *classfile.ClassRef {
	return &classfile.ClassRef{
		Name:    name,
		Super:   super,
		Fields:  map[string]*classfile.Field{},
		Methods: map[string]*classfile.MethodId{},
	}
}

// BuiltinClasses holds the exception/Throwable hierarchy and java.lang.String
// that ensure_initialized-free interpreter bootstrap needs.
type BuiltinClasses struct {
	Object    *classfile.ClassRef
	Class     *classfile.ClassRef
	String    *classfile.ClassRef
	Throwable *classfile.ClassRef

	Exception          *classfile.ClassRef
	RuntimeException    *classfile.ClassRef
	Error               *classfile.ClassRef

	NullPointerException          *classfile.ClassRef
	ArithmeticException           *classfile.ClassRef
	ArrayIndexOutOfBoundsException *classfile.ClassRef
	ArrayStoreException            *classfile.ClassRef
	ClassCastException              *classfile.ClassRef
	NegativeArraySizeException       *classfile.ClassRef
	IllegalMonitorStateException     *classfile.ClassRef
	InterruptedException              *classfile.ClassRef
	ClassNotFoundException            *classfile.ClassRef

	OutOfMemoryError            *classfile.ClassRef
	StackOverflowError           *classfile.ClassRef
	NoClassDefFoundError          *classfile.ClassRef
	NoSuchMethodError              *classfile.ClassRef
	NoSuchFieldError                 *classfile.ClassRef
	AbstractMethodError               *classfile.ClassRef
	ExceptionInInitializerError        *classfile.ClassRef
	IncompatibleClassChangeError         *classfile.ClassRef
}

// NewBuiltinClasses constructs the fixed hierarchy spec.md §7 names.
func NewBuiltinClasses() *BuiltinClasses {
	b := &BuiltinClasses{}
	b.Object = builtinClass("java.lang.Object", nil)
	b.Class = builtinClass("java.lang.Class", b.Object)
	b.String = builtinClass("java.lang.String", b.Object)
	b.Throwable = builtinClass("java.lang.Throwable", b.Object)
	b.Throwable.Fields["detailMessage"] = &classfile.Field{Name: "detailMessage"}

	b.Exception = builtinClass("java.lang.Exception", b.Throwable)
	b.RuntimeException = builtinClass("java.lang.RuntimeException", b.Exception)
	b.Error = builtinClass("java.lang.Error", b.Throwable)

	b.NullPointerException = builtinClass("java.lang.NullPointerException", b.RuntimeException)
	b.ArithmeticException = builtinClass("java.lang.ArithmeticException", b.RuntimeException)
	b.ArrayIndexOutOfBoundsException = builtinClass("java.lang.ArrayIndexOutOfBoundsException",
		builtinClass("java.lang.IndexOutOfBoundsException", b.RuntimeException))
	b.ArrayStoreException = builtinClass("java.lang.ArrayStoreException", b.RuntimeException)
	b.ClassCastException = builtinClass("java.lang.ClassCastException", b.RuntimeException)
	b.NegativeArraySizeException = builtinClass("java.lang.NegativeArraySizeException", b.RuntimeException)
	b.IllegalMonitorStateException = builtinClass("java.lang.IllegalMonitorStateException", b.RuntimeException)
	b.InterruptedException = builtinClass("java.lang.InterruptedException", b.Exception)
	b.ClassNotFoundException = builtinClass("java.lang.ClassNotFoundException", b.Exception)

	b.OutOfMemoryError = builtinClass("java.lang.OutOfMemoryError", b.Error)
	b.StackOverflowError = builtinClass("java.lang.StackOverflowError", b.Error)
	b.NoClassDefFoundError = builtinClass("java.lang.NoClassDefFoundError", b.Error)
	b.NoSuchMethodError = builtinClass("java.lang.NoSuchMethodError", b.Error)
	b.NoSuchFieldError = builtinClass("java.lang.NoSuchFieldError", b.Error)
	b.AbstractMethodError = builtinClass("java.lang.AbstractMethodError", b.Error)
	b.ExceptionInInitializerError = builtinClass("java.lang.ExceptionInInitializerError", b.Error)
	b.IncompatibleClassChangeError = builtinClass("java.lang.IncompatibleClassChangeError", b.Error)

	return b
}

func (b *BuiltinClasses) all() []*classfile.ClassRef {
	return []*classfile.ClassRef{
		b.Object, b.Class, b.String, b.Throwable, b.Exception, b.RuntimeException, b.Error,
		b.NullPointerException, b.ArithmeticException, b.ArrayIndexOutOfBoundsException,
		b.ArrayStoreException, b.ClassCastException, b.NegativeArraySizeException,
		b.IllegalMonitorStateException, b.InterruptedException, b.ClassNotFoundException,
		b.OutOfMemoryError, b.StackOverflowError, b.NoClassDefFoundError, b.NoSuchMethodError,
		b.NoSuchFieldError, b.AbstractMethodError, b.ExceptionInInitializerError,
		b.IncompatibleClassChangeError,
	}
}

// NewString allocates a java.lang.String instance wrapping s.
func (b *BuiltinClasses) NewString(s string) *values.OopRef {
	ref := values.NewInstance(b.String, map[string]*values.Slot{})
	ref.Object().Native = s
	return ref
}

// StringValue extracts the Go string backing a java.lang.String instance,
// or "" if ref is nil/not a String.
func StringValue(ref *values.OopRef) string {
	if ref == nil || ref.Object() == nil {
		return ""
	}
	if s, ok := ref.Object().Native.(string); ok {
		return s
	}
	return ""
}

// NewThrowable allocates an instance of class c (expected to be c or a
// subclass of Throwable) with the given detail message.
func (b *BuiltinClasses) NewThrowable(c *classfile.ClassRef, message string) *values.OopRef {
	msgSlot := values.Ref(b.NewString(message))
	ref := values.NewInstance(c, map[string]*values.Slot{
		"detailMessage": &msgSlot,
	})
	return ref
}

// DetailMessage reads a Throwable's detailMessage field, per spec.md §4.7
// fallback path.
func DetailMessage(ex *values.OopRef) string {
	if ex == nil || ex.Object() == nil {
		return ""
	}
	slot, ok := ex.Object().Fields["detailMessage"]
	if !ok || slot == nil {
		return ""
	}
	return StringValue(slot.Ref)
}
