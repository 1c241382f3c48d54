package kb

import (
	"fmt"
	"strconv"
	"strings"
)

// Terminator ends every statement.
const Terminator = "."

// ImplicationMarker separates a rule's head from its body.
const ImplicationMarker = ":-"

// Kind distinguishes stored facts from rules.
type Kind string

const (
	KindFact Kind = "fact"
	KindRule Kind = "rule"
)

// Statement is one validated fact or rule, stored as terminated text.
type Statement struct {
	Text string `json:"text"`
	Kind Kind   `json:"kind"`
}

// Normalize trims whitespace and appends the terminator if absent.
func Normalize(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return text
	}
	if !strings.HasSuffix(text, Terminator) {
		text += Terminator
	}
	return text
}

// Validate performs permissive syntactic validation: a terminator, balanced
// parentheses and brackets, and a restricted character set outside quoted
// spans. It cannot know whether a statement is true, only whether it is
// well-formed enough to hand to the solver.
func Validate(text string) error {
	if text == "" {
		return fmt.Errorf("statement is empty")
	}
	if !strings.HasSuffix(text, Terminator) {
		return fmt.Errorf("statement does not end with %q", Terminator)
	}

	var parens, brackets int
	var quote rune // active quote delimiter, 0 when outside
	escaped := false

	for _, r := range text {
		if quote != 0 {
			if escaped {
				escaped = false
				continue
			}
			switch r {
			case '\\':
				escaped = true
			case quote:
				quote = 0
			}
			continue
		}

		switch {
		case r == '\'' || r == '"':
			quote = r
		case r == '(':
			parens++
		case r == ')':
			parens--
			if parens < 0 {
				return fmt.Errorf("unbalanced parentheses")
			}
		case r == '[':
			brackets++
		case r == ']':
			brackets--
			if brackets < 0 {
				return fmt.Errorf("unbalanced brackets")
			}
		case !allowedRune(r):
			return fmt.Errorf("statement contains disallowed character %q", r)
		}
	}

	if quote != 0 {
		return fmt.Errorf("unterminated quote")
	}
	if parens != 0 {
		return fmt.Errorf("unbalanced parentheses")
	}
	if brackets != 0 {
		return fmt.Errorf("unbalanced brackets")
	}
	return nil
}

// allowedRune is the character allow-list for statement text outside quoted
// spans: identifiers, numbers, and the punctuation the solver syntax needs.
func allowedRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	}
	switch r {
	case '_', ' ', '\t', ',', '.', ':', '-', '\\', '+', '<', '>', '=', '*', '/', '!', '?', '|', ';', '@':
		return true
	}
	return false
}

// TermKind enumerates the argument shapes a clause can carry.
type TermKind int

const (
	TermAtom TermKind = iota
	TermString
	TermInt
	TermFloat
	TermVariable
)

// Term is one clause argument. Build terms with the constructors below;
// rendering happens in exactly one place so sanitization and escaping
// never operate on concatenated strings.
type Term struct {
	kind TermKind
	text string
	i    int64
	f    float64
}

// Atom wraps a solver-safe identifier. Callers sanitize names with
// Atomize before wrapping them.
func Atom(name string) Term { return Term{kind: TermAtom, text: name} }

// Str wraps free-form text, rendered as an escaped quoted literal.
func Str(s string) Term { return Term{kind: TermString, text: s} }

// Int wraps an integer argument.
func Int(v int) Term { return Term{kind: TermInt, i: int64(v)} }

// Float wraps a floating-point argument.
func Float(v float64) Term { return Term{kind: TermFloat, f: v} }

// Var wraps a solver variable; names must start with an uppercase letter
// or underscore.
func Var(name string) Term { return Term{kind: TermVariable, text: name} }

// String renders the term in solver syntax.
func (t Term) String() string {
	switch t.kind {
	case TermString:
		return QuoteString(t.text)
	case TermInt:
		return strconv.FormatInt(t.i, 10)
	case TermFloat:
		return strconv.FormatFloat(t.f, 'f', -1, 64)
	default:
		return t.text
	}
}

// Clause is a structured statement: a predicate applied to zero or more
// argument terms.
type Clause struct {
	Predicate string
	Args      []Term
}

// NewClause builds a clause from a predicate name and arguments.
func NewClause(predicate string, args ...Term) Clause {
	return Clause{Predicate: predicate, Args: args}
}

// String renders the clause in solver syntax, without a terminator.
func (c Clause) String() string {
	if len(c.Args) == 0 {
		return c.Predicate
	}
	parts := make([]string, len(c.Args))
	for i, a := range c.Args {
		parts[i] = a.String()
	}
	return c.Predicate + "(" + strings.Join(parts, ", ") + ")"
}

// FactText renders a clause as a terminated fact statement.
func FactText(c Clause) string {
	return c.String() + Terminator
}

// RuleText renders a head clause and body clauses as a terminated rule.
func RuleText(head Clause, body ...Clause) string {
	if len(body) == 0 {
		return FactText(head)
	}
	parts := make([]string, len(body))
	for i, b := range body {
		parts[i] = b.String()
	}
	return head.String() + " " + ImplicationMarker + " " + strings.Join(parts, ", ") + Terminator
}
