package rules

import "encoding/json"

// EffectKind is the closed set of effect variants the simulation executes.
type EffectKind string

const (
	EffectGenerateText    EffectKind = "generate_text"
	EffectModifyAttribute EffectKind = "modify_attribute"
	EffectCreateEntity    EffectKind = "create_entity"
	EffectTriggerEvent    EffectKind = "trigger_event"

	// EffectUnknown marks an unrecognized type tag. Unknown effects are
	// logged and skipped at runtime without failing the rule.
	EffectUnknown EffectKind = "unknown"
)

// Effect is one action a rule performs when it fires.
type Effect struct {
	Kind      EffectKind        `json:"type"`
	Target    string            `json:"target,omitempty"`    // character or entity the effect applies to
	Action    string            `json:"action,omitempty"`    // variant-specific verb, e.g. event type or attribute name
	Grammar   string            `json:"grammar,omitempty"`   // generate_text: grammar to expand
	Variables map[string]string `json:"variables,omitempty"` // substitutions passed to the handler

	// RawKind preserves the original type tag when Kind is EffectUnknown,
	// so skip logs can name what the author wrote.
	RawKind string `json:"-"`
}

// UnmarshalJSON maps unrecognized type tags to EffectUnknown instead of
// failing, keeping one bad effect from sinking a whole rule file.
func (e *Effect) UnmarshalJSON(data []byte) error {
	type Alias Effect
	aux := &struct{ *Alias }{Alias: (*Alias)(e)}
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}
	switch e.Kind {
	case EffectGenerateText, EffectModifyAttribute, EffectCreateEntity, EffectTriggerEvent:
	default:
		e.RawKind = string(e.Kind)
		e.Kind = EffectUnknown
	}
	return nil
}
