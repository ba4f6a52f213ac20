// Package dedup provides author-name normalization and similarity scoring
// used to treat author identities consistently across paper sources.
package dedup

import (
	"strings"
	"unicode"
)

// NormalizeName normalizes an author name for comparison:
//   - Converts to lowercase
//   - Detects and reorders "Last, First" format to "First Last"
//   - Removes all non-letter, non-space characters (apostrophes, periods, hyphens, etc.)
//   - Collapses multiple spaces to a single space
//   - Trims leading and trailing whitespace
//
// The result is the visited-set membership key used during network expansion.
func NormalizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}

	// Convert to lowercase first.
	name = strings.ToLower(name)

	// Handle "Last, First" format: split on comma, swap parts.
	if idx := strings.Index(name, ","); idx >= 0 {
		last := strings.TrimSpace(name[:idx])
		first := strings.TrimSpace(name[idx+1:])
		if first != "" {
			name = first + " " + last
		} else {
			name = last
		}
	}

	// Remove non-letter, non-space characters.
	var sb strings.Builder
	sb.Grow(len(name))
	prevSpace := false

	for _, r := range name {
		if unicode.IsLetter(r) {
			sb.WriteRune(r)
			prevSpace = false
		} else if unicode.IsSpace(r) {
			if !prevSpace && sb.Len() > 0 {
				sb.WriteRune(' ')
				prevSpace = true
			}
		}
		// All other characters (apostrophes, periods, hyphens) are dropped.
	}

	result := sb.String()
	return strings.TrimRight(result, " ")
}

// Similarity compares two normalized author names and returns a similarity
// score between 0.0 and 1.0. Inputs are expected to be NormalizeName output.
//
// Scoring rules:
//   - Exact match: 1.0
//   - Same last name, same first name: 1.0
//   - Same last name, one first name is an initial that matches: 0.9
//   - Same last name, one or both have only a last name: 0.7
//   - Same last name, different first names: 0.3
//   - Different last names: 0.0
func Similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0.0
	}

	partsA := strings.Fields(a)
	partsB := strings.Fields(b)

	// Extract last name (last token) and first name parts (everything before).
	lastA := partsA[len(partsA)-1]
	lastB := partsB[len(partsB)-1]

	if lastA != lastB {
		return 0.0
	}

	// Same last name -- compare first name parts.
	firstA := partsA[:len(partsA)-1]
	firstB := partsB[:len(partsB)-1]

	// If either has no first name, return 0.7 (last-name-only match).
	if len(firstA) == 0 || len(firstB) == 0 {
		return 0.7
	}

	// Compare first name tokens. Use the first token of each for primary comparison.
	fA := strings.Join(firstA, " ")
	fB := strings.Join(firstB, " ")

	// Exact first name match.
	if fA == fB {
		return 1.0
	}

	// Check if one is an initial of the other.
	// An initial is a single character that matches the first character of the other name.
	if isInitialMatch(firstA[0], firstB[0]) {
		return 0.9
	}

	// Same last name but different first names.
	return 0.3
}

// isInitialMatch returns true if one token is a single-character initial that
// matches the first character of the other token.
func isInitialMatch(a, b string) bool {
	if len(a) == 1 && len(b) > 1 && a[0] == b[0] {
		return true
	}
	if len(b) == 1 && len(a) > 1 && b[0] == a[0] {
		return true
	}
	return false
}
