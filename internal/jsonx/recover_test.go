package jsonx

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecover(t *testing.T) {
	tests := []struct {
		want  map[string]any
		name  string
		input string
		ok    bool
	}{
		{
			name:  "plain JSON object",
			input: `{"merchant": "Starbucks", "total": 12.5}`,
			want:  map[string]any{"merchant": "Starbucks", "total": 12.5},
			ok:    true,
		},
		{
			name:  "leading and trailing whitespace",
			input: "\n\t  {\"a\": 1}  \n",
			want:  map[string]any{"a": 1.0},
			ok:    true,
		},
		{
			name:  "json fenced block",
			input: "Here is the result:\n```json\n{\"a\": 1}\n```\nDone.",
			want:  map[string]any{"a": 1.0},
			ok:    true,
		},
		{
			name:  "bare fenced block",
			input: "```\n{\"a\": \"b\"}\n```",
			want:  map[string]any{"a": "b"},
			ok:    true,
		},
		{
			name:  "fence marker uppercase",
			input: "```JSON\n{\"a\": true}\n```",
			want:  map[string]any{"a": true},
			ok:    true,
		},
		{
			name:  "object buried in prose",
			input: `The receipt parsed as {"total": 9.99} according to the model.`,
			want:  map[string]any{"total": 9.99},
			ok:    true,
		},
		{
			name:  "braces inside string do not affect depth",
			input: `prefix text {"a": "}{"} suffix`,
			want:  map[string]any{"a": "}{"},
			ok:    true,
		},
		{
			name:  "escaped quote inside string",
			input: `noise {"a": "say \"}\" loudly", "b": 2} tail`,
			want:  map[string]any{"a": `say "}" loudly`, "b": 2.0},
			ok:    true,
		},
		{
			name:  "nested objects",
			input: `x {"a": {"b": {"c": 1}}} y`,
			want:  map[string]any{"a": map[string]any{"b": map[string]any{"c": 1.0}}},
			ok:    true,
		},
		{
			name:  "truncated object",
			input: `{"a": 1, "b": `,
			ok:    false,
		},
		{
			name:  "no object at all",
			input: "the model refused to answer",
			ok:    false,
		},
		{
			name:  "top-level array is not an object",
			input: `[1, 2, 3]`,
			ok:    false,
		},
		{
			name:  "empty input",
			input: "",
			ok:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Recover(tt.input)
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestRecoverRoundTrip(t *testing.T) {
	obj := map[string]any{
		"merchant": "Trader Joe's",
		"total":    42.17,
		"tags":     []any{"groceries", "weekly"},
		"nested":   map[string]any{"a": "}{", "b": nil},
	}

	encoded, err := json.Marshal(obj)
	require.NoError(t, err)

	direct, ok := Recover(string(encoded))
	require.True(t, ok)
	assert.Equal(t, obj, direct)

	fenced, ok := Recover("```json\n" + string(encoded) + "\n```")
	require.True(t, ok)
	assert.Equal(t, obj, fenced)
}
