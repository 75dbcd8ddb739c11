package config

import (
	"fmt"
	"strings"

	"classvis/internal/engine/element"
)

// AnnotationDescriptor turns a configured annotation name into the descriptor
// found in class files: com.acme.Private becomes Lcom/acme/Private;. Names
// already in descriptor or internal (slash) form are accepted as is. Nested
// annotation types must use $ (com.acme.Outer$Marker).
func AnnotationDescriptor(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("annotation name is empty")
	}
	if strings.HasPrefix(name, "L") && strings.HasSuffix(name, ";") && len(name) > 2 {
		if strings.Contains(name, ".") {
			return "", fmt.Errorf("descriptor %q must use / separators", name)
		}
		return name, nil
	}
	if strings.ContainsAny(name, " ;[<>") {
		return "", fmt.Errorf("%q is not a qualified type name", name)
	}
	internal := element.InternalName(name)
	if strings.HasPrefix(internal, "/") || strings.HasSuffix(internal, "/") || strings.Contains(internal, "//") {
		return "", fmt.Errorf("%q is not a qualified type name", name)
	}
	return "L" + internal + ";", nil
}

// AnnotationName renders a descriptor or internal name in dotted form, which is
// how annotations appear in messages.
func AnnotationName(name string) string {
	name = strings.TrimSpace(name)
	if strings.HasPrefix(name, "L") && strings.HasSuffix(name, ";") && len(name) > 2 {
		name = name[1 : len(name)-1]
	}
	return element.QualifiedName(name)
}
