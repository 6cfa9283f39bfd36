// Package model defines the core data structures for pocketfold.
package model

import (
	"encoding/json"
	"time"
)

// LineItem is a single purchased item extracted from a receipt. Line items
// are replaced wholesale whenever an extraction run supplies them; they are
// never merged field by field.
type LineItem struct {
	Quantity   *float64 `json:"quantity"`
	UnitPrice  *float64 `json:"unit_price"`
	TotalPrice *float64 `json:"total_price"`
	Category   *string  `json:"category"`
	Name       string   `json:"name"`
}

// Receipt is the unit of work for the processing pipeline. Nullable fields
// are pointers; a nil pointer is the stored NULL.
type Receipt struct {
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
	ProcessedAt          *time.Time      `json:"processed_at"`
	Merchant             *string         `json:"merchant"`
	MerchantAddress      *string         `json:"merchant_address"`
	ReceiptNumber        *string         `json:"receipt_number"`
	PurchasedAt          *string         `json:"purchased_at"`
	PurchasedTime        *string         `json:"purchased_time"`
	Currency             *string         `json:"currency"`
	Subtotal             *float64        `json:"subtotal"`
	Tax                  *float64        `json:"tax"`
	Tip                  *float64        `json:"tip"`
	Total                *float64        `json:"total"`
	PaymentMethod        *string         `json:"payment_method"`
	PaymentLast4         *string         `json:"payment_last4"`
	Category             *string         `json:"category"`
	Notes                *string         `json:"notes"`
	RawText              *string         `json:"raw_text"`
	FilePath             *string         `json:"file_path,omitempty"`
	AIConfidence         *float64        `json:"ai_confidence"`
	AIModel              *string         `json:"ai_model"`
	ID                   string          `json:"id"`
	Tags                 []string        `json:"tags"`
	LineItems            []LineItem      `json:"line_items"`
	ProcessingExplanation json.RawMessage `json:"processing_explanation,omitempty"`
	UserID               int64           `json:"user_id"`
}

// Snapshot flattens the receipt into the field map the rule engine matches
// against. Every matchable field is present as a key; unset fields carry nil
// so rules can distinguish "field exists but empty" from typos in the field
// name.
func (r *Receipt) Snapshot() map[string]any {
	snap := map[string]any{
		"merchant":         strOrNil(r.Merchant),
		"merchant_address": strOrNil(r.MerchantAddress),
		"receipt_number":   strOrNil(r.ReceiptNumber),
		"purchased_at":     strOrNil(r.PurchasedAt),
		"purchased_time":   strOrNil(r.PurchasedTime),
		"currency":         strOrNil(r.Currency),
		"subtotal":         numOrNil(r.Subtotal),
		"tax":              numOrNil(r.Tax),
		"tip":              numOrNil(r.Tip),
		"total":            numOrNil(r.Total),
		"payment_method":   strOrNil(r.PaymentMethod),
		"payment_last4":    strOrNil(r.PaymentLast4),
		"category":         strOrNil(r.Category),
		"notes":            strOrNil(r.Notes),
		"raw_text":         strOrNil(r.RawText),
		"ai_confidence":    numOrNil(r.AIConfidence),
	}

	tags := make([]string, len(r.Tags))
	copy(tags, r.Tags)
	snap["tags"] = tags

	// Line items surface as their names so membership and substring
	// operators have scalars to compare.
	items := make([]string, 0, len(r.LineItems))
	for _, item := range r.LineItems {
		items = append(items, item.Name)
	}
	snap["line_items"] = items

	return snap
}

func strOrNil(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

func numOrNil(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
