package model

import "encoding/json"

// Stage discriminators stored with every explanation entry.
const (
	StageAIExtraction = "ai_extraction"
	StageRuleEngine   = "rule_engine"
)

// AI extraction stage statuses.
const (
	StatusSuccess = "success"
	StatusSkipped = "skipped"
	StatusFailed  = "failed"
)

// AIStage records what the extraction adapter did. Exactly one appears per
// processing run, always first in the trail.
type AIStage struct {
	Stage           string   `json:"stage"`
	Status          string   `json:"status"`
	Provider        string   `json:"provider"`
	Model           string   `json:"model"`
	Reason          string   `json:"reason"`
	FieldsExtracted []string `json:"fields_extracted"`
}

// RuleStage records one rule that matched, in evaluation order. Rules that
// do not match leave no trace.
type RuleStage struct {
	Stage          string    `json:"stage"`
	RuleName       string    `json:"rule_name"`
	Conditions     Condition `json:"conditions"`
	ActionsApplied Actions   `json:"actions_applied"`
	RuleID         int64     `json:"rule_id"`
	Matched        bool      `json:"matched"`
}

// Explanation is the full audit trail of a single processing run. Each run
// replaces the prior trail; it never appends across runs.
type Explanation struct {
	AI    AIStage
	Rules []RuleStage
}

// MarshalJSON flattens the trail into the persisted array form: the AI stage
// first, then one entry per matched rule.
func (e Explanation) MarshalJSON() ([]byte, error) {
	entries := make([]any, 0, len(e.Rules)+1)
	ai := e.AI
	ai.Stage = StageAIExtraction
	if ai.FieldsExtracted == nil {
		ai.FieldsExtracted = []string{}
	}
	entries = append(entries, ai)

	for _, r := range e.Rules {
		r.Stage = StageRuleEngine
		entries = append(entries, r)
	}

	return json.Marshal(entries)
}
