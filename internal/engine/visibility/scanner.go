package visibility

import (
	"classvis/internal/engine/classfile"
	"classvis/internal/engine/element"
)

// scanner is the second pass. It judges every class, method and field
// reference against the annotated set built by the indexer.
type scanner struct {
	classfile.BaseVisitor

	rule       *ruleState
	class      element.Class
	methodName string
	err        error
}

func newScanner(rule *ruleState) *scanner {
	return &scanner{rule: rule}
}

func (s *scanner) OnClass(name string) {
	s.class = element.NewClass(name)
	s.methodName = ""
}

func (s *scanner) OnMethodStart(name, _ string) {
	s.methodName = name
}

func (s *scanner) OnConstructorStart(string) {
	s.methodName = classfile.ConstructorName
}

func (s *scanner) OnMethodReference(owner, name, descriptor string) {
	s.check(element.NewClass(owner))
	switch name {
	case classfile.InitializerName, classfile.ConstructorName:
		// Constructor calls are only checked at the class level.
	default:
		s.check(element.NewMethod(owner, name, descriptor))
	}
}

func (s *scanner) OnFieldReference(owner, name, _ string) {
	s.check(element.NewClass(owner))
	s.check(element.NewField(owner, name))
}

func (s *scanner) check(target element.Element) {
	if s.err != nil || !s.rule.annotated.Contains(target) {
		return
	}
	visible, err := IsVisible(target, s.class, s.rule.intent)
	if err != nil {
		s.err = err
		return
	}
	if visible {
		return
	}
	if s.rule.exceptions.Suppress(s.class.String()) {
		s.rule.stats.Suppressed++
		return
	}
	s.rule.stats.Violations++
	s.rule.aggregator.AddViolation(s.rule.check, s.rule.annotation, s.class, s.methodName, target)
}

// done surfaces the first policy error seen while visiting the class.
func (s *scanner) done() error {
	return s.err
}
