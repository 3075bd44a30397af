// Package textnorm normalises user text before keyword matching.
//
// Chat clients on macOS frequently send Hangul in decomposed (NFD) form, which
// makes a plain substring search for "왜" or "/문제해결" miss. Everything that
// matches keywords goes through Lower first.
package textnorm

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NFC returns s in Unicode normalisation form C.
func NFC(s string) string {
	return norm.NFC.String(s)
}

// Lower returns the NFC, lower-cased form of s.
func Lower(s string) string {
	return strings.ToLower(norm.NFC.String(s))
}

// Contains reports whether the normalised text contains the normalised keyword.
// text is expected to already be the output of Lower.
func Contains(text, keyword string) bool {
	if keyword == "" {
		return false
	}
	return strings.Contains(text, Lower(keyword))
}

// Count returns the number of non-overlapping occurrences of keyword in text.
// text is expected to already be the output of Lower.
func Count(text, keyword string) int {
	if keyword == "" {
		return 0
	}
	return strings.Count(text, Lower(keyword))
}
