package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/pocketfold/pocketfold/internal/model"
)

// Validation errors.
var (
	ErrNilContext    = errors.New("context cannot be nil")
	ErrEmptyString   = errors.New("string parameter cannot be empty")
	ErrNilParameter  = errors.New("parameter cannot be nil")
	ErrInvalidRule   = errors.New("invalid rule")
	ErrInvalidUserID = errors.New("user id must be positive")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

func validateUserID(userID int64) error {
	if userID <= 0 {
		return ErrInvalidUserID
	}
	return nil
}

// validateReceipt checks the fields storage itself depends on. Field content
// is the pipeline's business; storage only needs identity and ownership.
func validateReceipt(receipt *model.Receipt) error {
	if receipt == nil {
		return fmt.Errorf("%w: receipt", ErrNilParameter)
	}
	if err := validateString(receipt.ID, "receipt.ID"); err != nil {
		return err
	}
	return validateUserID(receipt.UserID)
}

// validateRule requires well-formed JSON for conditions and actions at write
// time. Evaluation stays tolerant of whatever is stored, but there is no
// reason to accept garbage on the way in.
func validateRule(rule *model.Rule) error {
	if rule == nil {
		return fmt.Errorf("%w: rule", ErrNilParameter)
	}
	if err := validateUserID(rule.UserID); err != nil {
		return err
	}
	if !json.Valid([]byte(rule.Conditions)) {
		return fmt.Errorf("%w: conditions must be valid JSON", ErrInvalidRule)
	}
	if !json.Valid([]byte(rule.Actions)) {
		return fmt.Errorf("%w: actions must be valid JSON", ErrInvalidRule)
	}
	return nil
}
