// Package element models the structural identities classvis reasons about:
// classes, methods and fields as they appear in compiled class files.
package element

import (
	"sort"
	"strings"
)

// Element is a class, method or field that can carry a marker annotation.
// All implementations are comparable value types, so two independently parsed
// elements with the same owner/name/descriptor are equal and hash the same.
type Element interface {
	DeclaringClass() Class
	Kind() Kind
	String() string
	isElement()
}

type Kind int

const (
	KindClass Kind = iota
	KindMethod
	KindField
)

func (k Kind) String() string {
	switch k {
	case KindClass:
		return "class"
	case KindMethod:
		return "method"
	case KindField:
		return "field"
	default:
		return "unknown"
	}
}

type Class struct {
	Owner string // internal name, e.g. com/acme/Widget
}

type Method struct {
	Owner      Class
	Name       string
	Descriptor string // e.g. (ILjava/lang/String;)V
}

type Field struct {
	Owner Class
	Name  string
}

func NewClass(internalName string) Class {
	return Class{Owner: internalName}
}

func NewMethod(owner, name, descriptor string) Method {
	return Method{Owner: Class{Owner: owner}, Name: name, Descriptor: descriptor}
}

func NewField(owner, name string) Field {
	return Field{Owner: Class{Owner: owner}, Name: name}
}

func (c Class) DeclaringClass() Class { return c }
func (c Class) Kind() Kind            { return KindClass }
func (c Class) String() string        { return QualifiedName(c.Owner) }
func (Class) isElement()              {}

func (m Method) DeclaringClass() Class { return m.Owner }
func (m Method) Kind() Kind            { return KindMethod }
func (m Method) String() string {
	return m.Owner.String() + "#" + m.Name + m.Descriptor
}
func (Method) isElement() {}

func (f Field) DeclaringClass() Class { return f.Owner }
func (f Field) Kind() Kind            { return KindField }
func (f Field) String() string        { return f.Owner.String() + "#" + f.Name }
func (Field) isElement()              {}

// QualifiedName renders an internal class name (a/b/C$D) as a.b.C$D.
func QualifiedName(internal string) string {
	return strings.ReplaceAll(internal, "/", ".")
}

// InternalName is the inverse of QualifiedName.
func InternalName(qualified string) string {
	return strings.ReplaceAll(qualified, ".", "/")
}

// Set is a set of elements keyed by structural identity.
type Set struct {
	items map[Element]struct{}
}

func NewSet() *Set {
	return &Set{items: make(map[Element]struct{})}
}

// Add inserts e and reports whether it was not already present.
func (s *Set) Add(e Element) bool {
	if _, ok := s.items[e]; ok {
		return false
	}
	s.items[e] = struct{}{}
	return true
}

func (s *Set) Contains(e Element) bool {
	if s == nil {
		return false
	}
	_, ok := s.items[e]
	return ok
}

func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}

// Elements returns the members ordered by their rendered form.
func (s *Set) Elements() []Element {
	if s == nil {
		return nil
	}
	out := make([]Element, 0, len(s.items))
	for e := range s.items {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].String() < out[j].String()
	})
	return out
}

// SimpleName returns the unqualified name of a class given in qualified,
// internal or descriptor form: com.acme.Outer$Inner -> Inner.
func SimpleName(name string) string {
	if strings.HasPrefix(name, "L") && strings.HasSuffix(name, ";") {
		name = name[1 : len(name)-1]
	}
	if i := strings.LastIndexAny(name, "./"); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.LastIndex(name, "$"); i >= 0 && i < len(name)-1 {
		name = name[i+1:]
	}
	return name
}
