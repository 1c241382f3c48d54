package grammar

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/google/uuid"
)

// OriginSymbol is the entry point every grammar expands from.
const OriginSymbol = "origin"

// maxDepth bounds recursive symbol expansion so a self-referencing
// grammar cannot loop forever.
const maxDepth = 16

// Grammar is a symbol-substitution template for narrative text. Each
// symbol maps to one or more alternative templates; templates reference
// other symbols as #symbol#.
type Grammar struct {
	Name    string              `json:"name"`
	WorldID uuid.UUID           `json:"world_id"`
	Symbols map[string][]string `json:"symbols"`
}

// Validate checks a grammar for authoring mistakes.
func (g *Grammar) Validate() error {
	if g.Name == "" {
		return fmt.Errorf("grammar is missing a name")
	}
	if len(g.Symbols[OriginSymbol]) == 0 {
		return fmt.Errorf("grammar %q has no %s symbol", g.Name, OriginSymbol)
	}
	for symbol, alts := range g.Symbols {
		if len(alts) == 0 {
			return fmt.Errorf("grammar %q symbol %q has no templates", g.Name, symbol)
		}
	}
	return nil
}

// Expand renders the grammar's origin symbol with the given variables,
// choosing among alternative templates with the default random source.
// Variables take precedence over grammar symbols of the same name.
func Expand(g *Grammar, vars map[string]string) (string, error) {
	return ExpandWith(g, vars, nil)
}

// ExpandWith is Expand with an explicit random source, for deterministic
// output in tests and replays.
func ExpandWith(g *Grammar, vars map[string]string, rng *rand.Rand) (string, error) {
	if g == nil {
		return "", fmt.Errorf("grammar is nil")
	}
	if len(g.Symbols[OriginSymbol]) == 0 {
		return "", fmt.Errorf("grammar %q has no %s symbol", g.Name, OriginSymbol)
	}
	template := pick(g.Symbols[OriginSymbol], rng)
	return expand(g, template, vars, rng, 0), nil
}

// expand substitutes every #symbol# reference in the template. Unknown
// symbols are left verbatim so missing data is visible in the output.
func expand(g *Grammar, template string, vars map[string]string, rng *rand.Rand, depth int) string {
	if depth >= maxDepth || !strings.Contains(template, "#") {
		return template
	}

	var b strings.Builder
	rest := template
	for {
		open := strings.IndexByte(rest, '#')
		if open < 0 {
			b.WriteString(rest)
			break
		}
		close := strings.IndexByte(rest[open+1:], '#')
		if close < 0 {
			b.WriteString(rest)
			break
		}
		close += open + 1

		b.WriteString(rest[:open])
		symbol := rest[open+1 : close]
		rest = rest[close+1:]

		if value, ok := vars[symbol]; ok {
			b.WriteString(value)
			continue
		}
		if alts := g.Symbols[symbol]; len(alts) > 0 {
			b.WriteString(expand(g, pick(alts, rng), vars, rng, depth+1))
			continue
		}
		// No variable and no symbol: keep the reference visible.
		b.WriteString("#" + symbol + "#")
	}
	return b.String()
}

func pick(alts []string, rng *rand.Rand) string {
	if len(alts) == 1 {
		return alts[0]
	}
	if rng != nil {
		return alts[rng.Intn(len(alts))]
	}
	return alts[rand.Intn(len(alts))]
}
