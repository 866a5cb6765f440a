package utils

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// NameKey folds a visitor-entered name into the key used for matching:
// NFC-normalized, Unicode case-folded, trimmed, inner whitespace collapsed.
// "  Anna  de Vries" and "anna de vries" share a key.
func NameKey(name string) string {
	fields := strings.Fields(norm.NFC.String(name))
	if len(fields) == 0 {
		return ""
	}
	return cases.Fold().String(strings.Join(fields, " "))
}

// CleanName trims surrounding whitespace and collapses inner runs, keeping case.
func CleanName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}
