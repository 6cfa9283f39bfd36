// Package engine sequences a full processing run for one receipt: AI
// extraction, merge, rule evaluation, merge again, explanation assembly,
// and a single atomic write-back.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pocketfold/pocketfold/internal/ai"
	"github.com/pocketfold/pocketfold/internal/model"
	"github.com/pocketfold/pocketfold/internal/normalize"
	"github.com/pocketfold/pocketfold/internal/rules"
)

// defaultCurrency backfills receipts whose currency never resolved.
const defaultCurrency = "USD"

// Pipeline is the merge/persistence orchestrator. It owns no state beyond
// its collaborators, so concurrent Process calls for different receipts are
// safe.
type Pipeline struct {
	storage   Storage
	extractor Extractor
}

// New creates a processing pipeline.
func New(storage Storage, extractor Extractor) *Pipeline {
	return &Pipeline{
		storage:   storage,
		extractor: extractor,
	}
}

// Process runs the full pipeline for one receipt. AI failures and rules
// that do not match degrade gracefully: the run still completes and
// persists whatever was achieved, with the explanation trail documenting
// what happened. Only a failed lookup or a failed write aborts the run.
func (p *Pipeline) Process(ctx context.Context, receiptID string, userID int64) (*model.Receipt, model.Explanation, error) {
	receipt, err := p.storage.GetReceipt(ctx, receiptID, userID)
	if err != nil {
		return nil, model.Explanation{}, fmt.Errorf("failed to load receipt: %w", err)
	}

	aiResult := p.extractor.Extract(ctx, receipt)
	slog.Info("AI extraction finished",
		"receipt_id", receiptID,
		"status", aiResult.Status,
		"provider", aiResult.Provider,
		"reason", aiResult.Reason)

	mergeAIFields(receipt, aiResult.Fields)

	ruleList, err := p.storage.GetActiveRules(ctx, userID)
	if err != nil {
		return nil, model.Explanation{}, fmt.Errorf("failed to load rules: %w", err)
	}

	ruleResult := rules.Apply(receipt.Snapshot(), ruleList)

	// Rules are the final authority on classification: their triple wins
	// over both the AI output and the existing record.
	receipt.Category = ruleResult.Category
	receipt.Notes = ruleResult.Notes
	receipt.Tags = ruleResult.Tags

	explanation := model.Explanation{
		AI: model.AIStage{
			Stage:           model.StageAIExtraction,
			Status:          aiResult.Status,
			Provider:        aiResult.Provider,
			Model:           aiResult.Model,
			Reason:          aiResult.Reason,
			FieldsExtracted: aiResult.Fields.ExtractedKeys(),
		},
		Rules: ruleResult.Stages,
	}

	if modelName := strings.TrimSpace(aiResult.Model); modelName != "" {
		receipt.AIModel = &modelName
	}

	if receipt.Currency == nil || strings.TrimSpace(*receipt.Currency) == "" {
		currency := defaultCurrency
		receipt.Currency = &currency
	} else {
		currency := strings.ToUpper(strings.TrimSpace(*receipt.Currency))
		receipt.Currency = &currency
	}

	now := time.Now().UTC()
	receipt.ProcessedAt = &now

	saved, err := p.storage.SaveProcessedReceipt(ctx, receipt, explanation)
	if err != nil {
		return nil, model.Explanation{}, fmt.Errorf("failed to persist processed receipt: %w", err)
	}

	slog.Info("Receipt processed",
		"receipt_id", receiptID,
		"matched_rules", len(ruleResult.Stages),
		"ai_status", aiResult.Status)

	return saved, explanation, nil
}

// mergeAIFields folds normalized extraction output into the receipt.
// Scalars overwrite only when the extraction produced a value; tags only
// when non-empty; line items replace whenever the extraction has some, or
// when the receipt had none to begin with.
func mergeAIFields(receipt *model.Receipt, fields *ai.Fields) {
	if fields == nil {
		return
	}

	setString(&receipt.Merchant, fields.Merchant)
	setString(&receipt.MerchantAddress, fields.MerchantAddress)
	setString(&receipt.ReceiptNumber, fields.ReceiptNumber)
	setString(&receipt.PurchasedAt, fields.PurchasedAt)
	setString(&receipt.PurchasedTime, fields.PurchasedTime)
	setString(&receipt.Currency, fields.Currency)
	setString(&receipt.PaymentMethod, fields.PaymentMethod)
	setString(&receipt.PaymentLast4, fields.PaymentLast4)
	setString(&receipt.Category, fields.Category)
	setString(&receipt.Notes, fields.Notes)
	setString(&receipt.RawText, fields.RawText)

	setNumber(&receipt.Subtotal, fields.Subtotal)
	setNumber(&receipt.Tax, fields.Tax)
	setNumber(&receipt.Tip, fields.Tip)
	setNumber(&receipt.Total, fields.Total)
	setNumber(&receipt.AIConfidence, fields.Confidence)

	if len(fields.Tags) > 0 {
		receipt.Tags = normalize.Tags(fields.Tags)
	}

	if len(fields.LineItems) > 0 || len(receipt.LineItems) == 0 {
		receipt.LineItems = fields.LineItems
	}
}

func setString(dst **string, src *string) {
	if src == nil {
		return
	}
	trimmed := strings.TrimSpace(*src)
	if trimmed == "" {
		return
	}
	*dst = &trimmed
}

func setNumber(dst **float64, src *float64) {
	if src == nil {
		return
	}
	v := *src
	*dst = &v
}
