// Package util provides common utility functions.
package util

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// NormalizeTagTitle converts user input to a canonical tag title.
// The normalized title is the source of truth for tag identity.
//
// Normalization rules:
//  1. Trim surrounding whitespace
//  2. Collapse inner whitespace runs to one space
//  3. Upper-case (Unicode aware)
//
// Examples:
//
//	"go"            → "GO"
//	"  Go  "        → "GO"
//	"machine  learning" → "MACHINE LEARNING"
//	"straße"        → "STRASSE"
func NormalizeTagTitle(input string) string {
	s := strings.Join(strings.Fields(input), " ")
	if s == "" {
		return ""
	}
	// cases.Caser is stateful, so each call gets its own.
	return cases.Upper(language.Und).String(s)
}
