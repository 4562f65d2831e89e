package classloader

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wudi/jvmcore/internal/classfile"
	"github.com/wudi/jvmcore/internal/diag"
)

func newRepo() *Repository {
	return New(diag.New(&bytes.Buffer{}, diag.LevelDebug))
}

func newClass(name string) *classfile.ClassRef {
	return &classfile.ClassRef{Name: name, Fields: map[string]*classfile.Field{}, Methods: map[string]*classfile.MethodId{}}
}

func TestRepository_DefineThenLookup(t *testing.T) {
	r := newRepo()
	c := newClass("Foo")
	r.Define("app", c)

	got, ok := r.Lookup("app", "Foo")
	require.True(t, ok)
	assert.Same(t, c, got)
}

func TestRepository_LookupMissReturnsFalse(t *testing.T) {
	r := newRepo()
	_, ok := r.Lookup("app", "Foo")
	assert.False(t, ok)
}

func TestRepository_DelegatesToParentOnMiss(t *testing.T) {
	r := newRepo()
	boot := newClass("java.lang.Object")
	r.Define("", boot)
	r.SetParent("app", "")

	got, ok := r.Lookup("app", "java.lang.Object")
	require.True(t, ok)
	assert.Same(t, boot, got)
}

func TestRepository_ChildDefinitionShadowsParent(t *testing.T) {
	r := newRepo()
	parentFoo := newClass("Foo")
	childFoo := newClass("Foo")
	r.Define("", parentFoo)
	r.Define("app", childFoo)
	r.SetParent("app", "")

	got, ok := r.Lookup("app", "Foo")
	require.True(t, ok)
	assert.Same(t, childFoo, got)
}

func TestRepository_DelegationCycleTerminates(t *testing.T) {
	r := newRepo()
	r.SetParent("a", "b")
	r.SetParent("b", "a")
	_, ok := r.Lookup("a", "Nowhere")
	assert.False(t, ok)
}

func TestEnsureInitialized_RunsOnceAndMarksInitialized(t *testing.T) {
	r := newRepo()
	c := newClass("Foo")
	runs := 0
	err := r.EnsureInitialized(1, c, func(threadID uint64, c *classfile.ClassRef) error {
		runs++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, runs)
	assert.Equal(t, classfile.Initialized, c.State())
}

func TestEnsureInitialized_AlreadyInitializedSkipsInit(t *testing.T) {
	r := newRepo()
	c := newClass("Foo")
	require.NoError(t, r.EnsureInitialized(1, c, func(uint64, *classfile.ClassRef) error { return nil }))

	called := false
	err := r.EnsureInitialized(2, c, func(uint64, *classfile.ClassRef) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.False(t, called)
}

func TestEnsureInitialized_SuperclassInitializesFirst(t *testing.T) {
	r := newRepo()
	super := newClass("Super")
	sub := newClass("Sub")
	sub.Super = super

	var order []string
	init := func(threadID uint64, c *classfile.ClassRef) error {
		order = append(order, c.Name)
		return nil
	}
	require.NoError(t, r.EnsureInitialized(1, sub, init))
	assert.Equal(t, []string{"Super", "Sub"}, order)
}

func TestEnsureInitialized_FailurePermanentlyMarksError(t *testing.T) {
	r := newRepo()
	c := newClass("Bad")
	err := r.EnsureInitialized(1, c, func(uint64, *classfile.ClassRef) error {
		return assertErr{"boom"}
	})
	require.Error(t, err)
	var initErr *ExceptionInInitializerError
	require.ErrorAs(t, err, &initErr)
	assert.Equal(t, "Bad", initErr.ClassName)
	assert.Equal(t, classfile.Error, c.State())

	// A second attempt on the permanently-failed class must not re-run
	// init; it must short-circuit to NoClassDefFoundError.
	called := false
	err = r.EnsureInitialized(2, c, func(uint64, *classfile.ClassRef) error {
		called = true
		return nil
	})
	require.Error(t, err)
	var notFound *NoClassDefFoundError
	require.ErrorAs(t, err, &notFound)
	assert.False(t, called)
}

func TestEnsureInitialized_RecursiveCallFromSameThreadProceeds(t *testing.T) {
	r := newRepo()
	c := newClass("Self")
	var nestedErr error
	err := r.EnsureInitialized(1, c, func(threadID uint64, c *classfile.ClassRef) error {
		// Simulate <clinit> recursively touching its own class, as the
		// JVMS allows (e.g. a static factory method called from <clinit>
		// that references the class being initialized).
		nestedErr = r.EnsureInitialized(threadID, c, func(uint64, *classfile.ClassRef) error {
			t.Fatal("nested recursive init must not re-run the initializer")
			return nil
		})
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, nestedErr)
}

type assertErr struct{ msg string }

func (e assertErr) Error() string { return e.msg }
