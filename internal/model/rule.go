package model

import "time"

// Rule is a user-authored reclassification rule. Conditions and Actions hold
// the JSON text exactly as the user stored it; the rule engine decodes them
// tolerantly on every run, so a malformed rule degrades to a no-op instead
// of breaking processing.
type Rule struct {
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	Name       string    `json:"name"`
	Conditions string    `json:"conditions"`
	Actions    string    `json:"actions"`
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	Priority   int       `json:"priority"`
	IsActive   bool      `json:"is_active"`
}
