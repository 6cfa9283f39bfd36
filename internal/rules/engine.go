// Package rules evaluates a receipt snapshot against user-authored
// reclassification rules. The engine is pure: it reads a field map and an
// ordered rule list and produces an updated classification triple plus an
// explanation entry per matched rule. Nothing in here can fail; malformed
// rules decode to no-ops so one broken rule never blocks processing.
package rules

import (
	"sort"
	"strconv"
	"strings"

	"github.com/pocketfold/pocketfold/internal/model"
	"github.com/pocketfold/pocketfold/internal/normalize"
)

// fallbackRuleName labels rules stored without a name in the explanation
// trail.
const fallbackRuleName = "Unnamed Rule"

// Result is the rule engine's output: the classification triple after all
// matching rules applied, plus one explanation stage per match.
type Result struct {
	Category *string
	Notes    *string
	Stages   []model.RuleStage
	Tags     []string
}

// Apply evaluates every rule against the snapshot in the order given.
// Callers supply rules already ordered by priority (ties broken by id);
// set actions are last-rule-wins while append_tags accumulates.
func Apply(snapshot map[string]any, ruleList []model.Rule) Result {
	result := Result{
		Category: snapshotString(snapshot, "category"),
		Notes:    snapshotString(snapshot, "notes"),
		Tags:     normalize.Tags(snapshot["tags"]),
	}

	for _, rule := range ruleList {
		conditions := model.DecodeConditions(rule.Conditions)
		actions := model.DecodeActions(rule.Actions)

		if !Matches(snapshot, conditions) {
			continue
		}

		if actions.Set != nil {
			if actions.Set.Category != nil {
				result.Category = actions.Set.Category
			}
			if actions.Set.Notes != nil {
				result.Notes = actions.Set.Notes
			}
			if actions.Set.HasTags {
				result.Tags = normalize.Tags(actions.Set.Tags)
			}
		}

		if actions.AppendTags != nil {
			result.Tags = unionTags(result.Tags, normalize.Tags(actions.AppendTags))
		}

		name := strings.TrimSpace(rule.Name)
		if name == "" {
			name = fallbackRuleName
		}

		result.Stages = append(result.Stages, model.RuleStage{
			Stage:          model.StageRuleEngine,
			RuleID:         rule.ID,
			RuleName:       name,
			Matched:        true,
			Conditions:     conditions,
			ActionsApplied: actions,
		})
	}

	return result
}

// Matches evaluates a condition expression against the snapshot. A non-empty
// "all" list requires every member to match as a simple condition; an "any"
// list requires at least one. An empty "all" is vacuously true, an empty
// "any" is false. Compound members inside a compound never match.
func Matches(snapshot map[string]any, cond model.Condition) bool {
	switch {
	case cond.IsAll():
		for _, child := range cond.All {
			if !matchSimple(snapshot, child) {
				return false
			}
		}
		return true
	case cond.IsAny():
		for _, child := range cond.Any {
			if matchSimple(snapshot, child) {
				return true
			}
		}
		return false
	default:
		return matchSimple(snapshot, cond)
	}
}

func matchSimple(snapshot map[string]any, cond model.Condition) bool {
	if cond.Field == "" {
		return false
	}
	actual, present := snapshot[cond.Field]
	if !present {
		return false
	}

	operator := strings.ToLower(strings.TrimSpace(cond.Operator))
	if operator == "" {
		operator = "equals"
	}

	switch operator {
	case "equals":
		return equalsMatch(actual, cond.Value)
	case "not_equals":
		return !equalsMatch(actual, cond.Value)
	case "contains":
		return containsMatch(actual, cond.Value)
	case "not_contains":
		return !containsMatch(actual, cond.Value)
	case "starts_with":
		want := fold(cond.Value)
		return want != "" && strings.HasPrefix(fold(actual), want)
	case "ends_with":
		want := fold(cond.Value)
		return want != "" && strings.HasSuffix(fold(actual), want)
	case "gt":
		return toNumber(actual) > toNumber(cond.Value)
	case "gte":
		return toNumber(actual) >= toNumber(cond.Value)
	case "lt":
		return toNumber(actual) < toNumber(cond.Value)
	case "lte":
		return toNumber(actual) <= toNumber(cond.Value)
	case "in":
		return inMatch(actual, cond.Value)
	default:
		return false
	}
}

// equalsMatch compares case-insensitively with whitespace trimmed. An
// array-valued actual compares as a sorted multiset when the literal is also
// an array, and as a membership test otherwise.
func equalsMatch(actual, value any) bool {
	actualList, actualIsList := asList(actual)
	if actualIsList {
		if valueList, ok := asList(value); ok {
			return multisetEqual(actualList, valueList)
		}
		return listHas(actualList, fold(value))
	}
	return fold(actual) == fold(value)
}

// containsMatch is a substring test, or a membership test when the actual
// value is an array.
func containsMatch(actual, value any) bool {
	if actualList, ok := asList(actual); ok {
		return listHas(actualList, fold(value))
	}
	return strings.Contains(fold(actual), fold(value))
}

// inMatch requires the rule literal to be an array. An array-valued actual
// matches when any of its elements matches any literal element.
func inMatch(actual, value any) bool {
	valueList, ok := asList(value)
	if !ok {
		return false
	}

	actualList, actualIsList := asList(actual)
	if !actualIsList {
		actualList = []any{actual}
	}

	for _, a := range actualList {
		if listHas(valueList, fold(a)) {
			return true
		}
	}
	return false
}

func multisetEqual(a, b []any) bool {
	if len(a) != len(b) {
		return false
	}
	left := foldedSorted(a)
	right := foldedSorted(b)
	for i := range left {
		if left[i] != right[i] {
			return false
		}
	}
	return true
}

func foldedSorted(list []any) []string {
	out := make([]string, 0, len(list))
	for _, v := range list {
		out = append(out, fold(v))
	}
	sort.Strings(out)
	return out
}

func listHas(list []any, want string) bool {
	for _, v := range list {
		if fold(v) == want {
			return true
		}
	}
	return false
}

// fold renders a scalar for case-insensitive comparison: stringified,
// trimmed, lowercased. Non-scalars fold to the empty string.
func fold(v any) string {
	var s string
	switch t := v.(type) {
	case nil:
		s = ""
	case string:
		s = t
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		s = strconv.Itoa(t)
	case int64:
		s = strconv.FormatInt(t, 10)
	case bool:
		s = strconv.FormatBool(t)
	default:
		s = ""
	}
	return strings.ToLower(strings.TrimSpace(s))
}

// toNumber coerces for the ordering operators. Coercion failures behave as
// zero so a bad literal compares predictably instead of erroring.
func toNumber(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case bool:
		if t {
			return 1
		}
		return 0
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

func asList(v any) ([]any, bool) {
	switch t := v.(type) {
	case []any:
		return t, true
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out, true
	default:
		return nil, false
	}
}

func unionTags(existing, extra []string) []string {
	out := make([]string, 0, len(existing)+len(extra))
	seen := make(map[string]struct{}, len(existing)+len(extra))
	for _, t := range existing {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	for _, t := range extra {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func snapshotString(snapshot map[string]any, key string) *string {
	if s, ok := snapshot[key].(string); ok {
		return &s
	}
	return nil
}
