package visibility

import (
	"strings"

	"classvis/internal/engine/element"
)

// Exceptions is the allow-list of referencing classes for one rule. It tracks
// which entries were actually needed to suppress a violation.
type Exceptions struct {
	declared []string
	names    map[string]struct{}
	spurious map[string]struct{}
}

// NewExceptions keeps the first occurrence of each class name. Internal
// (slash) names are accepted and stored in qualified form.
func NewExceptions(names []string) *Exceptions {
	e := &Exceptions{
		names:    make(map[string]struct{}, len(names)),
		spurious: make(map[string]struct{}, len(names)),
	}
	for _, name := range names {
		name = element.QualifiedName(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		if _, dup := e.names[name]; dup {
			continue
		}
		e.declared = append(e.declared, name)
		e.names[name] = struct{}{}
		e.spurious[name] = struct{}{}
	}
	return e
}

func (e *Exceptions) Contains(className string) bool {
	_, ok := e.names[className]
	return ok
}

// Suppress reports whether className is allowed to violate the rule and marks
// the entry as used.
func (e *Exceptions) Suppress(className string) bool {
	if !e.Contains(className) {
		return false
	}
	delete(e.spurious, className)
	return true
}

// Unused lists entries that never suppressed anything, in declaration order.
func (e *Exceptions) Unused() []string {
	out := make([]string, 0, len(e.spurious))
	for _, name := range e.declared {
		if _, ok := e.spurious[name]; ok {
			out = append(out, name)
		}
	}
	return out
}

func (e *Exceptions) Len() int {
	return len(e.declared)
}
