package model

import "encoding/json"

// Actions is the action expression applied when a rule matches. Set fields
// are last-rule-wins in priority order; AppendTags accumulates across every
// matching rule.
type Actions struct {
	Set        *ActionSet
	AppendTags []any
}

// ActionSet carries the recognized keys under "set". Category and Notes are
// applied only when the user stored a string. Tags keeps the raw value
// (comma string or list) because a set replaces the whole tag set after
// normalization, even when the value normalizes to nothing.
type ActionSet struct {
	Tags     any
	Category *string
	Notes    *string
	HasTags  bool
}

// IsZero reports whether the actions carry no effect at all.
func (a Actions) IsZero() bool {
	return a.Set == nil && a.AppendTags == nil
}

// DecodeActions parses a stored actions value. Anything that is not a JSON
// object decodes to the zero Actions, a no-op.
func DecodeActions(raw string) Actions {
	m, ok := decodeObject(raw)
	if !ok {
		return Actions{}
	}

	var a Actions

	if set, ok := m["set"].(map[string]any); ok {
		s := &ActionSet{}
		if v, ok := set["category"].(string); ok {
			s.Category = &v
		}
		if v, ok := set["notes"].(string); ok {
			s.Notes = &v
		}
		if v, present := set["tags"]; present {
			s.Tags = v
			s.HasTags = true
		}
		// Unknown keys under "set" are ignored.
		a.Set = s
	}

	if list, ok := m["append_tags"].([]any); ok {
		a.AppendTags = list
	}

	return a
}

// MarshalJSON reproduces the stored action shape for the explanation trail.
func (a Actions) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, 2)
	if a.Set != nil {
		set := make(map[string]any, 3)
		if a.Set.Category != nil {
			set["category"] = *a.Set.Category
		}
		if a.Set.Notes != nil {
			set["notes"] = *a.Set.Notes
		}
		if a.Set.HasTags {
			set["tags"] = a.Set.Tags
		}
		out["set"] = set
	}
	if a.AppendTags != nil {
		out["append_tags"] = a.AppendTags
	}
	return json.Marshal(out)
}
