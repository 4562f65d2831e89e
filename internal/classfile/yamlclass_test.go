package classfile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resolverOf(classes ...*ClassRef) Resolver {
	byName := map[string]*ClassRef{}
	for _, c := range classes {
		byName[c.Name] = c
	}
	return func(name string) (*ClassRef, bool) {
		c, ok := byName[name]
		return c, ok
	}
}

func TestLoadClassYAML_MethodAndPool(t *testing.T) {
	object := &ClassRef{Name: "java.lang.Object", Fields: map[string]*Field{}, Methods: map[string]*MethodId{}}
	doc := `
name: Greeter
super: java.lang.Object
pool:
  - kind: method
    className: Greeter
    memberName: f
    memberDesc: "()I"
methods:
  - name: f
    descriptor: "()I"
    static: true
    maxLocals: 0
    maxStack: 2
    code:
      - op: bipush
        arg: 41
      - op: iconst_1
      - op: iadd
      - op: ireturn
`
	c, err := LoadClassYAML([]byte(doc), resolverOf(object))
	require.NoError(t, err)
	assert.Equal(t, "Greeter", c.Name)
	assert.Same(t, object, c.Super)
	require.Len(t, c.Pool, 1)
	assert.Equal(t, ConstMethodRef, c.Pool[0].Kind)
	assert.Equal(t, "f", c.Pool[0].MemberName)

	m, ok := c.LookupMethod("f", "()I")
	require.True(t, ok)
	assert.True(t, m.IsStatic())
	assert.NotEmpty(t, m.Code)
}

func TestLoadClassYAML_UnresolvedSuper(t *testing.T) {
	doc := `
name: Orphan
super: does.not.Exist
`
	_, err := LoadClassYAML([]byte(doc), resolverOf())
	assert.Error(t, err)
}

func TestLoadClassYAML_MissingName(t *testing.T) {
	_, err := LoadClassYAML([]byte("super: java.lang.Object"), resolverOf())
	assert.Error(t, err)
}

func TestLoadClassYAML_FieldFlags(t *testing.T) {
	object := &ClassRef{Name: "java.lang.Object", Fields: map[string]*Field{}, Methods: map[string]*MethodId{}}
	doc := `
name: Box
super: java.lang.Object
fields:
  - name: count
    descriptor: "I"
    static: true
    private: true
`
	c, err := LoadClassYAML([]byte(doc), resolverOf(object))
	require.NoError(t, err)
	f, ok := c.Fields["count"]
	require.True(t, ok)
	assert.True(t, f.AccessFlags.Has(AccStatic))
	assert.True(t, f.AccessFlags.Has(AccPrivate))
}

func TestLoadClassYAML_NativeMethodHasNoCode(t *testing.T) {
	object := &ClassRef{Name: "java.lang.Object", Fields: map[string]*Field{}, Methods: map[string]*MethodId{}}
	doc := `
name: Sys
super: java.lang.Object
methods:
  - name: nativeCall
    descriptor: "()V"
    static: true
    native: true
`
	c, err := LoadClassYAML([]byte(doc), resolverOf(object))
	require.NoError(t, err)
	m, ok := c.LookupMethod("nativeCall", "()V")
	require.True(t, ok)
	assert.True(t, m.IsNative())
	assert.Empty(t, m.Code)
}

func TestLoadClassYAML_ExceptionTable(t *testing.T) {
	object := &ClassRef{Name: "java.lang.Object", Fields: map[string]*Field{}, Methods: map[string]*MethodId{}}
	doc := `
name: Recovers
super: java.lang.Object
methods:
  - name: run
    descriptor: "()I"
    static: true
    maxLocals: 0
    maxStack: 2
    code:
      - op: aconst_null
      - op: arraylength
      - op: pop
      - op: bipush
        arg: 7
      - op: ireturn
    exceptionTable:
      - startPC: 0
        endPC: 2
        handlerPC: 2
        catchType: java.lang.NullPointerException
`
	c, err := LoadClassYAML([]byte(doc), resolverOf(object))
	require.NoError(t, err)
	m, ok := c.LookupMethod("run", "()I")
	require.True(t, ok)
	require.Len(t, m.ExceptionTable, 1)
	assert.Equal(t, "java.lang.NullPointerException", m.ExceptionTable[0].CatchType)
}
