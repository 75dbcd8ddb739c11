// Package visibility checks that elements carrying a marker annotation are only
// referenced from where the annotation's intent allows. A rule is analyzed in
// two sweeps over the same class binaries: the first indexes every annotated
// element, the second judges every symbolic reference against that index.
package visibility

import (
	"fmt"
	"strings"

	domainerrors "classvis/internal/core/errors"
	"classvis/internal/engine/element"
)

// Intent is the access rule a marker annotation stands for.
type Intent int

const (
	IntentPrivate Intent = iota
	IntentDefault
	IntentProtected
)

func (i Intent) String() string {
	switch i {
	case IntentPrivate:
		return "PRIVATE"
	case IntentDefault:
		return "DEFAULT"
	case IntentProtected:
		return "PROTECTED"
	default:
		return fmt.Sprintf("Intent(%d)", int(i))
	}
}

// ParseIntent accepts private, default and protected in any case. An empty
// string means private.
func ParseIntent(raw string) (Intent, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "private":
		return IntentPrivate, nil
	case "default":
		return IntentDefault, nil
	case "protected":
		return IntentProtected, nil
	default:
		return 0, domainerrors.Newf(domainerrors.CodeValidationError, "unknown intent %q", raw)
	}
}

// CheckIntent fails for intents that are declared but not enforced.
func CheckIntent(intent Intent) error {
	if intent == IntentPrivate {
		return nil
	}
	return domainerrors.Newf(domainerrors.CodeUnsupportedIntent,
		"intent %s is not supported; PRIVATE is the only supported intent", intent)
}

// IsVisible reports whether from may reference e under intent.
// PRIVATE allows references from the exact declaring class only.
func IsVisible(e element.Element, from element.Class, intent Intent) (bool, error) {
	if err := CheckIntent(intent); err != nil {
		return false, err
	}
	return e.DeclaringClass() == from, nil
}
