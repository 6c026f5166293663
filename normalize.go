/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// normalizeWord produces the canonical form used for all equality and tally
// comparisons: lower-cased, NFKD-decomposed with combining marks stripped,
// surrounding whitespace trimmed. Raw input is always kept for display.
func normalizeWord(s string) string {
	lowered := strings.ToLower(s)

	stripped, _, err := transform.String(
		transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn))),
		lowered,
	)
	if err != nil {
		stripped = lowered
	}

	return strings.TrimSpace(stripped)
}

// promptTokens splits an already-normalized prompt into its words, treating
// whitespace, hyphens and underscores as separators.
func promptTokens(normalizedPrompt string) []string {
	return strings.FieldsFunc(normalizedPrompt, func(r rune) bool {
		return unicode.IsSpace(r) || r == '-' || r == '_'
	})
}
