package rules

import "testing"

func TestRule_Validate(t *testing.T) {
	tests := []struct {
		name      string
		rule      Rule
		expectErr bool
	}{
		{
			name: "valid rule",
			rule: Rule{
				Name: "friendly_gossip",
				Effects: []Effect{
					{Kind: EffectGenerateText, Grammar: "gossip"},
				},
			},
		},
		{
			name:      "missing name",
			rule:      Rule{Effects: []Effect{{Kind: EffectTriggerEvent}}},
			expectErr: true,
		},
		{
			name:      "no effects",
			rule:      Rule{Name: "empty"},
			expectErr: true,
		},
		{
			name: "unknown effect kind",
			rule: Rule{
				Name:    "typo",
				Effects: []Effect{{Kind: EffectUnknown, RawKind: "generate_txt"}},
			},
			expectErr: true,
		},
		{
			name: "bad condition",
			rule: Rule{
				Name:       "gated",
				Conditions: []Condition{{Kind: ConditionLogic}},
				Effects:    []Effect{{Kind: EffectTriggerEvent}},
			},
			expectErr: true,
		},
		{
			name: "valid conditions",
			rule: Rule{
				Name: "gated",
				Conditions: []Condition{
					{Kind: ConditionLogic, Query: "sibling_of(X, Y)"},
					{Kind: ConditionAttribute, Character: "Ada", Attribute: "mood", Equals: "sad"},
				},
				Effects: []Effect{{Kind: EffectTriggerEvent, Action: "consolation"}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rule.Validate()
			if tt.expectErr && err == nil {
				t.Error("expected validation error, got nil")
			}
			if !tt.expectErr && err != nil {
				t.Errorf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestSort(t *testing.T) {
	rs := []*Rule{
		{Name: "beta", Priority: 1},
		{Name: "alpha", Priority: 1},
		{Name: "urgent", Priority: 10},
		{Name: "background", Priority: -5},
	}
	Sort(rs)

	want := []string{"urgent", "alpha", "beta", "background"}
	for i, name := range want {
		if rs[i].Name != name {
			t.Errorf("position %d: expected %q, got %q", i, name, rs[i].Name)
		}
	}
}

func TestRule_IsEnabled(t *testing.T) {
	enabled := true
	disabled := false

	if r := (&Rule{Name: "default"}); !r.IsEnabled() {
		t.Error("rule without enabled field should be enabled")
	}
	if r := (&Rule{Name: "on", Enabled: &enabled}); !r.IsEnabled() {
		t.Error("explicitly enabled rule should be enabled")
	}
	if r := (&Rule{Name: "off", Enabled: &disabled}); r.IsEnabled() {
		t.Error("explicitly disabled rule should not be enabled")
	}
}

type fakeView struct {
	values map[string]string
}

func (f fakeView) AttributeValue(character, attribute string) (string, bool) {
	v, ok := f.values[character+"/"+attribute]
	return v, ok
}

func TestEvaluateAttribute(t *testing.T) {
	view := fakeView{values: map[string]string{
		"Ada/mood": "cheerful",
	}}

	tests := []struct {
		name string
		cond Condition
		want bool
	}{
		{
			name: "match",
			cond: Condition{Kind: ConditionAttribute, Character: "Ada", Attribute: "mood", Equals: "cheerful"},
			want: true,
		},
		{
			name: "value mismatch",
			cond: Condition{Kind: ConditionAttribute, Character: "Ada", Attribute: "mood", Equals: "sad"},
			want: false,
		},
		{
			name: "unknown character",
			cond: Condition{Kind: ConditionAttribute, Character: "Brom", Attribute: "mood", Equals: "cheerful"},
			want: false,
		},
		{
			name: "wrong kind",
			cond: Condition{Kind: ConditionLogic, Query: "alive(ada)"},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EvaluateAttribute(tt.cond, view); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}
