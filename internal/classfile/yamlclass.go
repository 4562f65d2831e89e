package classfile

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// yamlPoolEntry is one constant-pool row in a YAML class descriptor.
// This is the "already-parsed class representation" spec.md §6 describes
// as the core's input boundary: a resolved, typed constant table, never
// the raw .class constant_pool byte layout (ConstantKind tags, variable
// widths, the 1-based/double-wide-entry indexing JVMS mandates).
type yamlPoolEntry struct {
	Kind       string  `yaml:"kind"`
	Utf8       string  `yaml:"utf8"`
	Int32      int32   `yaml:"int32"`
	Int64      int64   `yaml:"int64"`
	Float32    float32 `yaml:"float32"`
	Float64    float64 `yaml:"float64"`
	ClassName  string  `yaml:"className"`
	MemberName string  `yaml:"memberName"`
	MemberDesc string  `yaml:"memberDesc"`
}

var poolKindNames = map[string]ConstantKind{
	"utf8": ConstUTF8, "integer": ConstInteger, "long": ConstLong,
	"float": ConstFloat, "double": ConstDouble, "string": ConstString,
	"class": ConstClass, "field": ConstFieldRef, "method": ConstMethodRef,
	"interfaceMethod": ConstInterfaceMethodRef, "nameAndType": ConstNameAndType,
}

type yamlField struct {
	Name        string `yaml:"name"`
	Descriptor  string `yaml:"descriptor"`
	Static      bool   `yaml:"static"`
	Public      bool   `yaml:"public"`
	Private     bool   `yaml:"private"`
	Protected   bool   `yaml:"protected"`
	Final       bool   `yaml:"final"`
}

type yamlInstr struct {
	Op    string `yaml:"op"`
	Arg   int    `yaml:"arg"`
	Arg2  int    `yaml:"arg2"`
	Label string `yaml:"label"`
	To    string `yaml:"to"`
}

type yamlExcEntry struct {
	StartPC   int    `yaml:"startPC"`
	EndPC     int    `yaml:"endPC"`
	HandlerPC int    `yaml:"handlerPC"`
	CatchType string `yaml:"catchType"`
}

type yamlMethod struct {
	Name           string         `yaml:"name"`
	Descriptor     string         `yaml:"descriptor"`
	Static         bool           `yaml:"static"`
	Public         bool           `yaml:"public"`
	Private        bool           `yaml:"private"`
	Synchronized   bool           `yaml:"synchronized"`
	Native         bool           `yaml:"native"`
	MaxLocals      int            `yaml:"maxLocals"`
	MaxStack       int            `yaml:"maxStack"`
	Code           []yamlInstr    `yaml:"code"`
	ExceptionTable []yamlExcEntry `yaml:"exceptionTable"`
}

type yamlClass struct {
	Name       string          `yaml:"name"`
	Super      string          `yaml:"super"`
	Interfaces []string        `yaml:"interfaces"`
	Pool       []yamlPoolEntry `yaml:"pool"`
	Fields     []yamlField     `yaml:"fields"`
	Methods    []yamlMethod    `yaml:"methods"`
}

// Resolver looks up an already-loaded class by binary name (superclass or
// implemented interface). Exception catch types stay as names.
type Resolver func(binaryName string) (*ClassRef, bool)

// LoadClassYAML parses one YAML class descriptor and builds the
// corresponding ClassRef, resolving its superclass/interfaces against
// resolve (typically the classpath loader's running set plus the
// built-in java.lang hierarchy).
func LoadClassYAML(data []byte, resolve Resolver) (*ClassRef, error) {
	var yc yamlClass
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return nil, fmt.Errorf("classfile: parsing class descriptor: %w", err)
	}
	if yc.Name == "" {
		return nil, fmt.Errorf("classfile: class descriptor missing name")
	}

	c := &ClassRef{
		Name:    yc.Name,
		Fields:  map[string]*Field{},
		Methods: map[string]*MethodId{},
	}

	if yc.Super != "" {
		super, ok := resolve(yc.Super)
		if !ok {
			return nil, fmt.Errorf("classfile: %s: unresolved superclass %s", yc.Name, yc.Super)
		}
		c.Super = super
	}
	for _, ifaceName := range yc.Interfaces {
		iface, ok := resolve(ifaceName)
		if !ok {
			return nil, fmt.Errorf("classfile: %s: unresolved interface %s", yc.Name, ifaceName)
		}
		c.Interfaces = append(c.Interfaces, iface)
	}

	c.Pool = make([]ConstantEntry, len(yc.Pool))
	for i, p := range yc.Pool {
		kind, ok := poolKindNames[p.Kind]
		if !ok {
			return nil, fmt.Errorf("classfile: %s: pool[%d]: unknown kind %q", yc.Name, i, p.Kind)
		}
		c.Pool[i] = ConstantEntry{
			Kind: kind, Utf8: p.Utf8, Int32: p.Int32, Int64: p.Int64,
			Float32: p.Float32, Float64: p.Float64,
			ClassName: p.ClassName, MemberName: p.MemberName, MemberDesc: p.MemberDesc,
		}
	}

	for _, yf := range yc.Fields {
		desc, err := ParseDescriptor(yf.Descriptor)
		if err != nil {
			return nil, fmt.Errorf("classfile: %s: field %s: %w", yc.Name, yf.Name, err)
		}
		var flags AccessFlags
		if yf.Static {
			flags |= AccStatic
		}
		if yf.Public {
			flags |= AccPublic
		}
		if yf.Private {
			flags |= AccPrivate
		}
		if yf.Protected {
			flags |= AccProtected
		}
		if yf.Final {
			flags |= AccFinal
		}
		c.Fields[yf.Name] = &Field{Name: yf.Name, Descriptor: desc, AccessFlags: flags}
	}

	for _, ym := range yc.Methods {
		desc, err := ParseDescriptor(ym.Descriptor)
		if err != nil {
			return nil, fmt.Errorf("classfile: %s: method %s: %w", yc.Name, ym.Name, err)
		}
		var flags AccessFlags
		if ym.Static {
			flags |= AccStatic
		}
		if ym.Public {
			flags |= AccPublic
		}
		if ym.Private {
			flags |= AccPrivate
		}
		if ym.Synchronized {
			flags |= AccSynchronized
		}
		if ym.Native {
			flags |= AccNative
		}

		id := &MethodId{
			Class: c, Name: ym.Name, Descriptor: desc,
			AccessFlags: flags, MaxLocals: ym.MaxLocals, MaxStack: ym.MaxStack,
			Native: ym.Native,
		}
		if !ym.Native {
			asm := make([]AsmInstr, len(ym.Code))
			for i, yi := range ym.Code {
				asm[i] = AsmInstr{Op: yi.Op, Arg: yi.Arg, Arg2: yi.Arg2, Label: yi.Label, To: yi.To}
			}
			code, err := Assemble(asm)
			if err != nil {
				return nil, fmt.Errorf("classfile: %s: method %s: %w", yc.Name, ym.Name, err)
			}
			id.Code = code
		}
		for _, e := range ym.ExceptionTable {
			id.ExceptionTable = append(id.ExceptionTable, ExceptionTableEntry{
				StartPC: e.StartPC, EndPC: e.EndPC, HandlerPC: e.HandlerPC, CatchType: e.CatchType,
			})
		}
		c.Methods[MethodKey(ym.Name, ym.Descriptor)] = id
	}

	return c, nil
}
