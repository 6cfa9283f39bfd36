package model

import (
	"encoding/json"
	"strings"
)

// Condition is the tagged-variant condition expression rules match with.
// Exactly one shape is active per node: a compound conjunction (All), a
// compound disjunction (Any), or a single field comparison. One level of
// all/any wrapping around simple conditions is the supported contract;
// a compound nested inside a compound never matches.
type Condition struct {
	Value    any
	Field    string
	Operator string
	All      []Condition
	Any      []Condition
}

// MarshalJSON reproduces the declarative shape the user authored so the
// explanation trail shows conditions the way they were written. The default
// encoding would drop empty all/any lists and zero-valued literals.
func (c Condition) MarshalJSON() ([]byte, error) {
	if c.IsAll() {
		return json.Marshal(map[string][]Condition{"all": c.All})
	}
	if c.IsAny() {
		return json.Marshal(map[string][]Condition{"any": c.Any})
	}
	return json.Marshal(map[string]any{
		"field":    c.Field,
		"operator": c.Operator,
		"value":    c.Value,
	})
}

// IsAll reports whether the node is a conjunction. An empty conjunction is
// vacuously true, so the nil/empty distinction matters and All is only
// non-nil when the user supplied an "all" list.
func (c Condition) IsAll() bool { return c.All != nil }

// IsAny reports whether the node is a disjunction.
func (c Condition) IsAny() bool { return c.Any != nil }

// DecodeConditions parses a stored conditions value. Anything that is not a
// JSON object decodes to the zero Condition, which matches nothing.
func DecodeConditions(raw string) Condition {
	m, ok := decodeObject(raw)
	if !ok {
		return Condition{}
	}
	return conditionFromMap(m)
}

func conditionFromMap(m map[string]any) Condition {
	if list, ok := m["all"].([]any); ok {
		return Condition{All: conditionList(list)}
	}
	if list, ok := m["any"].([]any); ok {
		return Condition{Any: conditionList(list)}
	}

	var c Condition
	if f, ok := m["field"].(string); ok {
		c.Field = f
	}
	if op, ok := m["operator"].(string); ok {
		c.Operator = op
	}
	c.Value = m["value"]
	return c
}

func conditionList(list []any) []Condition {
	out := make([]Condition, 0, len(list))
	for _, entry := range list {
		m, ok := entry.(map[string]any)
		if !ok {
			// Non-object entries become the zero Condition, which fails
			// to match and therefore poisons an "all" but not an "any".
			out = append(out, Condition{})
			continue
		}
		out = append(out, conditionFromMap(m))
	}
	return out
}

// decodeObject tolerantly decodes a JSON object from stored text.
func decodeObject(raw string) (map[string]any, bool) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil, false
	}

	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return nil, false
	}

	m, ok := v.(map[string]any)
	return m, ok
}
