package normalize

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string   { return &s }
func numPtr(f float64) *float64 { return &f }

func TestString(t *testing.T) {
	tests := []struct {
		input any
		want  *string
		name  string
	}{
		{name: "plain string", input: "Starbucks", want: strPtr("Starbucks")},
		{name: "whitespace trimmed", input: "  Cafe Roma  ", want: strPtr("Cafe Roma")},
		{name: "empty after trim", input: "   ", want: nil},
		{name: "number becomes text", input: 42.0, want: strPtr("42")},
		{name: "bool becomes text", input: true, want: strPtr("true")},
		{name: "nil", input: nil, want: nil},
		{name: "object is not scalar", input: map[string]any{"a": 1}, want: nil},
		{name: "list is not scalar", input: []any{"a"}, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, String(tt.input))
		})
	}
}

func TestDate(t *testing.T) {
	tests := []struct {
		input any
		want  *string
		name  string
	}{
		{name: "valid date", input: "2024-03-15", want: strPtr("2024-03-15")},
		{name: "padded", input: " 2024-03-15 ", want: strPtr("2024-03-15")},
		{name: "wrong format", input: "03/15/2024", want: nil},
		{name: "datetime rejected", input: "2024-03-15T10:00:00", want: nil},
		{name: "not a calendar date", input: "2024-02-30", want: nil},
		{name: "month out of range", input: "2024-13-01", want: nil},
		{name: "nil", input: nil, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Date(tt.input))
		})
	}
}

func TestCurrency(t *testing.T) {
	tests := []struct {
		input any
		want  *string
		name  string
	}{
		{name: "iso code", input: "USD", want: strPtr("USD")},
		{name: "lowercase", input: "eur", want: strPtr("EUR")},
		{name: "extra text truncated", input: "USD Dollars", want: strPtr("USD")},
		{name: "too short", input: "US", want: nil},
		{name: "symbol", input: "$", want: nil},
		{name: "digits", input: "123", want: nil},
		{name: "nil", input: nil, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Currency(tt.input))
		})
	}
}

func TestMoney(t *testing.T) {
	tests := []struct {
		input any
		want  *float64
		name  string
	}{
		{name: "number rounded", input: 12.345, want: numPtr(12.35)},
		{name: "integer", input: 10.0, want: numPtr(10.0)},
		{name: "currency junk stripped", input: "$1,234.56", want: numPtr(1234.56)},
		{name: "negative", input: "-5.5", want: numPtr(-5.5)},
		{name: "plain word", input: "free", want: nil},
		{name: "double decimal", input: "1.2.3", want: nil},
		{name: "nan rejected", input: math.NaN(), want: nil},
		{name: "inf rejected", input: math.Inf(1), want: nil},
		{name: "nil", input: nil, want: nil},
		{name: "bool", input: true, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Money(tt.input))
		})
	}
}

func TestMoneyIdempotent(t *testing.T) {
	for _, v := range []float64{0, 12.34, -0.5, 1999.99} {
		once := Money(v)
		require.NotNil(t, once)
		twice := Money(*once)
		require.NotNil(t, twice)
		assert.Equal(t, *once, *twice)
	}
}

func TestConfidence(t *testing.T) {
	tests := []struct {
		input any
		want  *float64
		name  string
	}{
		{name: "in range", input: 0.87654, want: numPtr(0.8765)},
		{name: "clamped high", input: 1.5, want: numPtr(1.0)},
		{name: "clamped low", input: -0.2, want: numPtr(0.0)},
		{name: "numeric string", input: "0.9", want: numPtr(0.9)},
		{name: "garbage", input: "high", want: nil},
		{name: "nil", input: nil, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Confidence(tt.input))
		})
	}
}

func TestLast4(t *testing.T) {
	tests := []struct {
		input any
		want  *string
		name  string
	}{
		{name: "masked card", input: "**** **** **** 4021", want: strPtr("4021")},
		{name: "short", input: "42", want: strPtr("42")},
		{name: "no digits", input: "VISA", want: nil},
		{name: "long digit run", input: "4111111111111111", want: strPtr("1111")},
		{name: "nil", input: nil, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Last4(tt.input))
		})
	}
}

func TestTags(t *testing.T) {
	tests := []struct {
		input any
		name  string
		want  []string
	}{
		{name: "comma separated string", input: "coffee, food ,coffee", want: []string{"coffee", "food"}},
		{name: "list", input: []any{"a", " b ", "", "a"}, want: []string{"a", "b"}},
		{name: "string slice", input: []string{"x", "x", "y"}, want: []string{"x", "y"}},
		{name: "mixed scalars", input: []any{"a", 1.0, true}, want: []string{"a", "1", "true"}},
		{name: "non-scalar entries dropped", input: []any{"a", map[string]any{}, []any{"b"}}, want: []string{"a"}},
		{name: "case sensitive dedupe", input: []any{"Coffee", "coffee"}, want: []string{"Coffee", "coffee"}},
		{name: "nil", input: nil, want: []string{}},
		{name: "number", input: 5.0, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Tags(tt.input))
		})
	}
}

func TestTagsIdempotent(t *testing.T) {
	once := Tags([]any{" a ", "b", "a", ""})
	twice := Tags(once)
	assert.Equal(t, once, twice)
}

func TestLineItems(t *testing.T) {
	input := []any{
		map[string]any{"name": "Latte", "quantity": 2.0, "unit_price": "3.50", "total_price": 7.0, "category": "drinks"},
		map[string]any{"name": "  ", "quantity": 1.0},
		map[string]any{"quantity": 1.0},
		map[string]any{"name": "Muffin", "unit_price": "n/a"},
		"not an object",
	}

	items := LineItems(input)
	require.Len(t, items, 2)

	assert.Equal(t, "Latte", items[0].Name)
	require.NotNil(t, items[0].Quantity)
	assert.Equal(t, 2.0, *items[0].Quantity)
	require.NotNil(t, items[0].UnitPrice)
	assert.Equal(t, 3.5, *items[0].UnitPrice)
	require.NotNil(t, items[0].Category)
	assert.Equal(t, "drinks", *items[0].Category)

	assert.Equal(t, "Muffin", items[1].Name)
	assert.Nil(t, items[1].UnitPrice)

	assert.Empty(t, LineItems("nope"))
	assert.Empty(t, LineItems(nil))
}
