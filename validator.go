/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"strings"
	"unicode/utf8"
)

// Minimum normalized candidate length before the prefix/suffix rule applies.
// Tuned for German compounds ("Dachziegel" vs "Dach"), not a universal law.
const minAffixLength = 4

var (
	errEmptyWord     = errors.New("empty input")
	errExactPrompt   = errors.New("exact prompt match")
	errPromptToken   = errors.New("matches a word of the prompt")
	errPromptAffix   = errors.New("contained in the prompt")
	errNoActiveRound = errors.New("no round is collecting submissions")
)

// validateWord decides whether a candidate word is too close to the prompt.
// Both strings are normalized identically first; the first matching rule wins:
//
//  1. empty candidate → reject
//  2. candidate equals prompt → reject
//  3. multi-word prompt: candidate equals any single word → reject
//  4. single-word prompt: candidate of at least minAffixLength runes that the
//     prompt starts or ends with → reject
//
// Anything else is accepted.
func validateWord(prompt, candidate string) error {
	cand := normalizeWord(candidate)
	if cand == "" {
		return errEmptyWord
	}

	norm := normalizeWord(prompt)
	if cand == norm {
		return errExactPrompt
	}

	tokens := promptTokens(norm)
	if len(tokens) > 1 {
		for _, token := range tokens {
			if cand == token {
				return errPromptToken
			}
		}

		return nil
	}

	if utf8.RuneCountInString(cand) >= minAffixLength &&
		(strings.HasPrefix(norm, cand) || strings.HasSuffix(norm, cand)) {
		return errPromptAffix
	}

	return nil
}
