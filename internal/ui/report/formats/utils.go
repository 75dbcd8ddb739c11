package formats

import (
	"strings"

	"classvis/internal/engine/element"
)

func nonEmpty(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}

func codeOrDash(s string) string {
	if s == "" {
		return "-"
	}
	return "`" + escapeCell(s) + "`"
}

func simpleAnnotation(name string) string {
	return element.SimpleName(name)
}
