package kb

import (
	"testing"

	"github.com/google/uuid"
)

func TestAtomize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "simple lowercase", input: "alice", want: "alice"},
		{name: "uppercase folded", input: "Alice", want: "alice"},
		{name: "spaces replaced", input: "Ada Lovelace", want: "ada_lovelace"},
		{name: "punctuation replaced", input: "O'Brien-Smith", want: "o_brien_smith"},
		{name: "diacritics folded", input: "José Núñez", want: "jose_nunez"},
		{name: "leading digit prefixed", input: "3rd Street Bakery", want: "_3rd_street_bakery"},
		{name: "repeated underscores collapsed", input: "a -- b", want: "a_b"},
		{name: "leading underscore kept", input: "_private", want: "_private"},
		{name: "empty input", input: "", want: "_"},
		{name: "only punctuation", input: "!!!", want: "_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Atomize(tt.input); got != tt.want {
				t.Errorf("Atomize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestAtomize_Deterministic(t *testing.T) {
	input := "Märta Ögren-Dübois 3rd"
	first := Atomize(input)
	for i := 0; i < 10; i++ {
		if got := Atomize(input); got != first {
			t.Fatalf("Atomize not deterministic: %q then %q", first, got)
		}
	}
}

func TestAtomizeEntity_CollisionResistant(t *testing.T) {
	idA := uuid.New()
	idB := uuid.New()

	// Same full name, distinct identities.
	atomA := AtomizeEntity("John", "Smith", idA)
	atomB := AtomizeEntity("John", "Smith", idB)

	if atomA == atomB {
		t.Errorf("expected distinct atoms for distinct IDs, both were %q", atomA)
	}
	if atomA != AtomizeEntity("John", "Smith", idA) {
		t.Error("entity atom not stable across calls")
	}
}

func TestQuoteString(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain", input: "hello", want: "'hello'"},
		{name: "single quote escaped", input: "it's fine", want: `'it\'s fine'`},
		{name: "backslash doubled", input: `a\b`, want: `'a\\b'`},
		{name: "both", input: `don't \ stop`, want: `'don\'t \\ stop'`},
		{name: "empty", input: "", want: "''"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := QuoteString(tt.input); got != tt.want {
				t.Errorf("QuoteString(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
