package visibility

import (
	"classvis/internal/engine/classfile"
	"classvis/internal/engine/element"
)

// memberKind is what the indexer is currently inside of.
type memberKind int

const (
	memberNone memberKind = iota // class level, before any member
	memberField
	memberMethod
	memberConstructor
	memberInitializer
)

// memberState is the open member. method is set only for memberMethod and
// field only for memberField.
type memberState struct {
	kind   memberKind
	method element.Method
	field  element.Field
}

// indexer is the first pass. It records every element that directly carries
// the marker annotation. One indexer traverses one class.
type indexer struct {
	descriptor string
	annotated  *element.Set

	class    element.Class
	hasClass bool

	// Every member start replaces open.
	open memberState
}

var _ classfile.Visitor = (*indexer)(nil)

func newIndexer(descriptor string, annotated *element.Set) *indexer {
	return &indexer{descriptor: descriptor, annotated: annotated}
}

func (i *indexer) OnClass(name string) {
	i.class = element.NewClass(name)
	i.hasClass = true
	i.open = memberState{}
}

func (i *indexer) OnFieldStart(name, _ string) {
	i.open = memberState{kind: memberField, field: element.NewField(i.class.Owner, name)}
}

func (i *indexer) OnMethodStart(name, descriptor string) {
	if name == classfile.InitializerName {
		i.open = memberState{kind: memberInitializer}
		return
	}
	i.open = memberState{kind: memberMethod, method: element.NewMethod(i.class.Owner, name, descriptor)}
}

func (i *indexer) OnConstructorStart(string) {
	i.open = memberState{kind: memberConstructor}
}

func (i *indexer) OnAnnotation(descriptor string, _ bool) {
	if descriptor != i.descriptor {
		return
	}
	switch i.open.kind {
	case memberField:
		i.annotated.Add(i.open.field)
	case memberMethod:
		i.annotated.Add(i.open.method)
	case memberConstructor, memberInitializer:
		// Annotated constructors and initializers are not tracked.
	case memberNone:
		if i.hasClass {
			i.annotated.Add(i.class)
		}
	}
}

func (i *indexer) OnMethodReference(string, string, string) {}
func (i *indexer) OnFieldReference(string, string, string)  {}
