package classfile

import (
	"fmt"
	"strings"
)

// ParamKind classifies a single parameter or return slot derived from a
// JVMS method descriptor.
type ParamKind uint8

const (
	ParamByte ParamKind = iota
	ParamChar
	ParamDouble
	ParamFloat
	ParamInt
	ParamLong
	ParamShort
	ParamBoolean
	ParamVoid
	ParamObject
	ParamArray
)

// IsCategory2 reports whether this parameter occupies two locals/stack
// slots (long or double).
func (k ParamKind) IsCategory2() bool {
	return k == ParamLong || k == ParamDouble
}

// Descriptor is a parsed JVMS method descriptor: "(params)ret".
type Descriptor struct {
	Raw    string
	Params []ParamKind
	Return ParamKind
	// ParamClassNames holds, for each Params[i] that is ParamObject or
	// ParamArray, the object/array type name; "" otherwise.
	ParamClassNames []string
	ReturnClassName string
}

// ParseDescriptor parses a JVMS method descriptor of the form
// "(<params>)<ret>". Field descriptors (no parens) are also accepted and
// returned with an empty Params slice and the single parsed type in
// Return.
func ParseDescriptor(raw string) (*Descriptor, error) {
	d := &Descriptor{Raw: raw}
	s := raw
	if strings.HasPrefix(s, "(") {
		end := strings.IndexByte(s, ')')
		if end < 0 {
			return nil, fmt.Errorf("classfile: malformed descriptor %q: no closing paren", raw)
		}
		params := s[1:end]
		for len(params) > 0 {
			kind, className, n, err := parseOne(params)
			if err != nil {
				return nil, fmt.Errorf("classfile: malformed descriptor %q: %w", raw, err)
			}
			d.Params = append(d.Params, kind)
			d.ParamClassNames = append(d.ParamClassNames, className)
			params = params[n:]
		}
		s = s[end+1:]
	}
	kind, className, n, err := parseOne(s)
	if err != nil {
		return nil, fmt.Errorf("classfile: malformed descriptor %q: %w", raw, err)
	}
	if n != len(s) {
		return nil, fmt.Errorf("classfile: malformed descriptor %q: trailing data after return type", raw)
	}
	d.Return = kind
	d.ReturnClassName = className
	return d, nil
}

// parseOne parses a single field-descriptor prefix of s, returning the
// kind, the (possibly empty) class/array name, and how many bytes of s it
// consumed.
func parseOne(s string) (ParamKind, string, int, error) {
	if len(s) == 0 {
		return 0, "", 0, fmt.Errorf("empty type")
	}
	switch s[0] {
	case 'B':
		return ParamByte, "", 1, nil
	case 'C':
		return ParamChar, "", 1, nil
	case 'D':
		return ParamDouble, "", 1, nil
	case 'F':
		return ParamFloat, "", 1, nil
	case 'I':
		return ParamInt, "", 1, nil
	case 'J':
		return ParamLong, "", 1, nil
	case 'S':
		return ParamShort, "", 1, nil
	case 'Z':
		return ParamBoolean, "", 1, nil
	case 'V':
		return ParamVoid, "", 1, nil
	case 'L':
		end := strings.IndexByte(s, ';')
		if end < 0 {
			return 0, "", 0, fmt.Errorf("unterminated object type in %q", s)
		}
		return ParamObject, strings.ReplaceAll(s[1:end], "/", "."), end + 1, nil
	case '[':
		kind, className, n, err := parseOne(s[1:])
		if err != nil {
			return 0, "", 0, err
		}
		elem := "["
		if className != "" {
			elem += className
		}
		_ = kind
		return ParamArray, elem, n + 1, nil
	default:
		return 0, "", 0, fmt.Errorf("unrecognized type tag %q", s[0])
	}
}

// Arity returns the number of argument slots (longs/doubles counting as
// two), not counting an implicit receiver.
func (d *Descriptor) Arity() int {
	n := 0
	for _, p := range d.Params {
		if p.IsCategory2() {
			n += 2
		} else {
			n++
		}
	}
	return n
}

// ParamCount returns the number of logical parameters (category-2 types
// counted once).
func (d *Descriptor) ParamCount() int {
	return len(d.Params)
}
