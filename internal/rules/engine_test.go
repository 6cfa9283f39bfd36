package rules

import (
	"testing"

	"github.com/pocketfold/pocketfold/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSnapshot() map[string]any {
	return map[string]any{
		"merchant":       "STARBUCKS #4021",
		"category":       "Uncategorized",
		"notes":          nil,
		"total":          14.75,
		"currency":       "USD",
		"payment_method": nil,
		"tags":           []string{"morning"},
	}
}

func TestMatchesCombinators(t *testing.T) {
	snap := testSnapshot()

	t.Run("empty all is vacuously true", func(t *testing.T) {
		assert.True(t, Matches(snap, model.DecodeConditions(`{"all": []}`)))
	})

	t.Run("empty any is false", func(t *testing.T) {
		assert.False(t, Matches(snap, model.DecodeConditions(`{"any": []}`)))
	})

	t.Run("all requires every member", func(t *testing.T) {
		cond := model.DecodeConditions(`{"all": [
			{"field": "merchant", "operator": "contains", "value": "starbucks"},
			{"field": "total", "operator": "gt", "value": 100}
		]}`)
		assert.False(t, Matches(snap, cond))
	})

	t.Run("any requires one member", func(t *testing.T) {
		cond := model.DecodeConditions(`{"any": [
			{"field": "merchant", "operator": "contains", "value": "dunkin"},
			{"field": "total", "operator": "lt", "value": 20}
		]}`)
		assert.True(t, Matches(snap, cond))
	})

	t.Run("compound nested in compound never matches", func(t *testing.T) {
		cond := model.DecodeConditions(`{"any": [
			{"all": [{"field": "merchant", "operator": "contains", "value": "starbucks"}]}
		]}`)
		assert.False(t, Matches(snap, cond))
	})
}

func TestMatchSimpleOperators(t *testing.T) {
	snap := testSnapshot()

	tests := []struct {
		name string
		cond string
		want bool
	}{
		{name: "equals case-insensitive trimmed", cond: `{"field": "currency", "operator": "equals", "value": " usd "}`, want: true},
		{name: "equals mismatch", cond: `{"field": "currency", "operator": "equals", "value": "EUR"}`, want: false},
		{name: "missing operator defaults to equals", cond: `{"field": "currency", "value": "usd"}`, want: true},
		{name: "not_equals", cond: `{"field": "currency", "operator": "not_equals", "value": "EUR"}`, want: true},
		{name: "contains", cond: `{"field": "merchant", "operator": "contains", "value": "starbucks"}`, want: true},
		{name: "not_contains", cond: `{"field": "merchant", "operator": "not_contains", "value": "dunkin"}`, want: true},
		{name: "starts_with", cond: `{"field": "merchant", "operator": "starts_with", "value": "star"}`, want: true},
		{name: "starts_with empty value is false", cond: `{"field": "merchant", "operator": "starts_with", "value": ""}`, want: false},
		{name: "ends_with", cond: `{"field": "merchant", "operator": "ends_with", "value": "#4021"}`, want: true},
		{name: "ends_with empty value is false", cond: `{"field": "merchant", "operator": "ends_with", "value": ""}`, want: false},
		{name: "gt", cond: `{"field": "total", "operator": "gt", "value": 10}`, want: true},
		{name: "gte boundary", cond: `{"field": "total", "operator": "gte", "value": 14.75}`, want: true},
		{name: "lt", cond: `{"field": "total", "operator": "lt", "value": 10}`, want: false},
		{name: "lte", cond: `{"field": "total", "operator": "lte", "value": 14.75}`, want: true},
		{name: "numeric coercion failure acts as zero", cond: `{"field": "merchant", "operator": "gt", "value": -1}`, want: true},
		{name: "in", cond: `{"field": "currency", "operator": "in", "value": ["eur", "USD"]}`, want: true},
		{name: "in non-array literal is false", cond: `{"field": "currency", "operator": "in", "value": "USD"}`, want: false},
		{name: "unknown operator", cond: `{"field": "currency", "operator": "matches", "value": "USD"}`, want: false},
		{name: "empty field", cond: `{"field": "", "operator": "equals", "value": "x"}`, want: false},
		{name: "absent field", cond: `{"field": "vendor", "operator": "equals", "value": "x"}`, want: false},
		{name: "present nil field equals empty", cond: `{"field": "payment_method", "operator": "equals", "value": ""}`, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Matches(snap, model.DecodeConditions(tt.cond)))
		})
	}
}

func TestMatchArraySemantics(t *testing.T) {
	snap := map[string]any{
		"tags": []string{"Coffee", " food "},
	}

	tests := []struct {
		name string
		cond string
		want bool
	}{
		{name: "equals array vs array multiset", cond: `{"field": "tags", "operator": "equals", "value": ["food", "COFFEE"]}`, want: true},
		{name: "equals array vs array order irrelevant", cond: `{"field": "tags", "operator": "equals", "value": ["coffee", "food"]}`, want: true},
		{name: "equals array vs array length mismatch", cond: `{"field": "tags", "operator": "equals", "value": ["coffee"]}`, want: false},
		{name: "equals array vs scalar is membership", cond: `{"field": "tags", "operator": "equals", "value": "coffee"}`, want: true},
		{name: "contains on array is membership", cond: `{"field": "tags", "operator": "contains", "value": "food"}`, want: true},
		{name: "contains on array no substring semantics", cond: `{"field": "tags", "operator": "contains", "value": "cof"}`, want: false},
		{name: "in with array actual", cond: `{"field": "tags", "operator": "in", "value": ["tea", "coffee"]}`, want: true},
		{name: "in with array actual no overlap", cond: `{"field": "tags", "operator": "in", "value": ["tea", "juice"]}`, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Matches(snap, model.DecodeConditions(tt.cond)))
		})
	}
}

func TestApplyStarbucksScenario(t *testing.T) {
	snap := testSnapshot()
	ruleList := []model.Rule{
		{
			ID:         7,
			Name:       "Coffee shops",
			Conditions: `{"all": [{"field": "merchant", "operator": "contains", "value": "Starbucks"}]}`,
			Actions:    `{"set": {"category": "Coffee"}, "append_tags": ["coffee"]}`,
		},
	}

	result := Apply(snap, ruleList)

	require.NotNil(t, result.Category)
	assert.Equal(t, "Coffee", *result.Category)
	assert.Contains(t, result.Tags, "coffee")

	require.Len(t, result.Stages, 1)
	stage := result.Stages[0]
	assert.Equal(t, model.StageRuleEngine, stage.Stage)
	assert.Equal(t, int64(7), stage.RuleID)
	assert.Equal(t, "Coffee shops", stage.RuleName)
	assert.True(t, stage.Matched)
}

func TestApplyPriorityAndPrecedence(t *testing.T) {
	snap := testSnapshot()
	ruleList := []model.Rule{
		{
			ID:         1,
			Name:       "First",
			Conditions: `{"all": []}`,
			Actions:    `{"set": {"category": "A", "notes": "from first"}}`,
		},
		{
			ID:         2,
			Name:       "Second",
			Conditions: `{"all": []}`,
			Actions:    `{"set": {"category": "B"}}`,
		},
		{
			ID:         3,
			Name:       "Never",
			Conditions: `{"field": "merchant", "operator": "equals", "value": "nope"}`,
			Actions:    `{"set": {"category": "C"}}`,
		},
	}

	result := Apply(snap, ruleList)

	require.NotNil(t, result.Category)
	assert.Equal(t, "B", *result.Category, "later rule wins the set")
	require.NotNil(t, result.Notes)
	assert.Equal(t, "from first", *result.Notes, "unset fields keep earlier values")
	require.Len(t, result.Stages, 2, "non-matching rules leave no explanation entry")
}

func TestApplyTagActions(t *testing.T) {
	snap := testSnapshot()
	ruleList := []model.Rule{
		{
			ID:         1,
			Name:       "Replace tags",
			Conditions: `{"all": []}`,
			Actions:    `{"set": {"tags": "work, travel , work"}}`,
		},
		{
			ID:         2,
			Name:       "Append tags",
			Conditions: `{"all": []}`,
			Actions:    `{"append_tags": [" travel ", "reimbursable", ""]}`,
		},
	}

	result := Apply(snap, ruleList)
	assert.Equal(t, []string{"work", "travel", "reimbursable"}, result.Tags)
}

func TestApplyTagInvariant(t *testing.T) {
	snap := testSnapshot()
	snap["tags"] = []string{" morning ", "morning", "", "coffee"}
	ruleList := []model.Rule{
		{
			ID:         1,
			Conditions: `{"all": []}`,
			Actions:    `{"append_tags": ["coffee", " coffee", ""]}`,
		},
	}

	result := Apply(snap, ruleList)

	seen := make(map[string]bool)
	for _, tag := range result.Tags {
		assert.NotEmpty(t, tag)
		assert.False(t, seen[tag], "duplicate tag %q", tag)
		seen[tag] = true
	}
	assert.Equal(t, []string{"morning", "coffee"}, result.Tags)
}

func TestApplyTolerantDecoding(t *testing.T) {
	snap := testSnapshot()
	ruleList := []model.Rule{
		{ID: 1, Name: "garbage conditions", Conditions: `not json at all`, Actions: `{"set": {"category": "X"}}`},
		{ID: 2, Name: "garbage actions", Conditions: `{"all": []}`, Actions: `[1, 2, 3]`},
		{ID: 3, Name: "non-string set ignored", Conditions: `{"all": []}`, Actions: `{"set": {"category": 42, "notes": true}}`},
	}

	result := Apply(snap, ruleList)

	// Rule 1 never matches (zero condition), rules 2 and 3 match but apply
	// nothing meaningful.
	require.NotNil(t, result.Category)
	assert.Equal(t, "Uncategorized", *result.Category)
	assert.Nil(t, result.Notes)
	require.Len(t, result.Stages, 2)
	assert.Equal(t, int64(2), result.Stages[0].RuleID)
}

func TestApplyUnnamedRule(t *testing.T) {
	result := Apply(testSnapshot(), []model.Rule{
		{ID: 9, Name: "  ", Conditions: `{"all": []}`, Actions: `{}`},
	})
	require.Len(t, result.Stages, 1)
	assert.Equal(t, "Unnamed Rule", result.Stages[0].RuleName)
}
