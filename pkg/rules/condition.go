package rules

import "fmt"

// Condition kinds.
const (
	ConditionLogic     = "logic"     // knowledge-base query must yield at least one solution
	ConditionAttribute = "attribute" // character attribute must equal a value
)

// Condition gates a rule. A rule with no conditions always fires.
type Condition struct {
	Kind      string `json:"kind"`
	Query     string `json:"query,omitempty"`     // logic: query text, e.g. "sibling_of(X, Y)"
	Character string `json:"character,omitempty"` // attribute: character first name or ID
	Attribute string `json:"attribute,omitempty"` // attribute: attribute name, e.g. "mood"
	Equals    string `json:"equals,omitempty"`    // attribute: required value
}

// Validate checks the condition is well-formed for its kind.
func (c Condition) Validate() error {
	switch c.Kind {
	case ConditionLogic:
		if c.Query == "" {
			return fmt.Errorf("logic condition is missing a query")
		}
	case ConditionAttribute:
		if c.Character == "" {
			return fmt.Errorf("attribute condition is missing a character")
		}
		if c.Attribute == "" {
			return fmt.Errorf("attribute condition is missing an attribute name")
		}
	default:
		return fmt.Errorf("unknown condition kind %q", c.Kind)
	}
	return nil
}

// CharacterView is the minimal lookup needed to evaluate attribute
// conditions. This keeps the rules package free of world imports.
type CharacterView interface {
	// AttributeValue returns the named attribute for the character
	// identified by ID or first name, and whether both were found.
	AttributeValue(character, attribute string) (string, bool)
}

// EvaluateAttribute checks an attribute condition against a character view.
// Missing characters or attributes evaluate false.
func EvaluateAttribute(c Condition, view CharacterView) bool {
	if c.Kind != ConditionAttribute {
		return false
	}
	value, ok := view.AttributeValue(c.Character, c.Attribute)
	if !ok {
		return false
	}
	return value == c.Equals
}
