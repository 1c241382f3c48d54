package kb

import (
	"strings"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldMarks strips combining marks after canonical decomposition, so
// "José" sanitizes to "jose" rather than "jos_".
var foldMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Atomize maps arbitrary text to a solver-safe atom: diacritics folded,
// lower-cased, anything outside [a-z0-9_] replaced with an underscore, a
// leading digit prefixed with an underscore, and runs of underscores
// collapsed. Deterministic: equal input always yields an equal atom.
func Atomize(s string) string {
	if folded, _, err := transform.String(foldMarks, s); err == nil {
		s = folded
	}
	s = strings.ToLower(s)

	mapped := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			return r
		}
		return '_'
	}, s)

	if mapped == "" {
		return "_"
	}
	if mapped[0] >= '0' && mapped[0] <= '9' {
		mapped = "_" + mapped
	}

	var b strings.Builder
	b.Grow(len(mapped))
	lastUnderscore := false
	for i := 0; i < len(mapped); i++ {
		c := mapped[i]
		if c == '_' {
			if lastUnderscore {
				continue
			}
			lastUnderscore = true
		} else {
			lastUnderscore = false
		}
		b.WriteByte(c)
	}
	return b.String()
}

// AtomizeEntity derives the atom for a named entity. First name, last name
// and the unique identifier are concatenated before sanitizing, which keeps
// atoms collision-free within a world even when two characters share a
// full name.
func AtomizeEntity(firstName, lastName string, id uuid.UUID) string {
	return Atomize(firstName + "_" + lastName + "_" + id.String())
}

// QuoteString renders free-form text as a quoted solver literal:
// backslashes doubled, single quotes escaped.
func QuoteString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return "'" + s + "'"
}
