package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserError(t *testing.T) {
	t.Run("formats message with cause", func(t *testing.T) {
		cause := errors.New("row missing")
		err := NewUserError("receipt not found", cause)

		assert.Equal(t, "receipt not found: row missing", err.Error())
		assert.ErrorIs(t, err, cause, "the cause must stay reachable through Unwrap")
	})

	t.Run("message only without cause", func(t *testing.T) {
		err := &UserError{UserMessage: "rule not found"}
		assert.Equal(t, "rule not found", err.Error())
	})

	t.Run("sentinel survives wrapping", func(t *testing.T) {
		err := NewUserError("receipt not found", ErrNotFound)
		assert.ErrorIs(t, err, ErrNotFound)

		var userErr *UserError
		require.ErrorAs(t, err, &userErr)
		assert.Equal(t, "receipt not found", userErr.UserMessage)
	})
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		err  error
		name string
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "plain error", err: errors.New("boom"), want: false},
		{name: "rate limit", err: ErrRateLimit, want: true},
		{name: "wrapped rate limit", err: fmt.Errorf("%w (status 429)", ErrRateLimit), want: true},
		{name: "retryable wrapper", err: &RetryableError{Err: errors.New("transient"), Retryable: true}, want: true},
		{name: "non-retryable wrapper", err: &RetryableError{Err: errors.New("fatal"), Retryable: false}, want: false},
		{name: "sentinel not found", err: ErrNotFound, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}
