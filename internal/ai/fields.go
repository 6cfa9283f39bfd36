package ai

import (
	"github.com/pocketfold/pocketfold/internal/model"
	"github.com/pocketfold/pocketfold/internal/normalize"
)

// Fields is the canonical typed field set produced by a successful
// extraction. Field names match the receipt columns they merge into.
type Fields struct {
	Merchant        *string
	MerchantAddress *string
	ReceiptNumber   *string
	PurchasedAt     *string
	PurchasedTime   *string
	Currency        *string
	Subtotal        *float64
	Tax             *float64
	Tip             *float64
	Total           *float64
	PaymentMethod   *string
	PaymentLast4    *string
	Category        *string
	Notes           *string
	RawText         *string
	Confidence      *float64
	Tags            []string
	LineItems       []model.LineItem
}

// NormalizeFields runs every key of the parsed extraction object through the
// normalizer. Unknown or malformed values degrade to nil; the result is
// always usable.
func NormalizeFields(parsed map[string]any) *Fields {
	return &Fields{
		Merchant:        normalize.String(parsed["merchant_name"]),
		MerchantAddress: normalize.String(parsed["merchant_address"]),
		ReceiptNumber:   normalize.String(parsed["receipt_number"]),
		PurchasedAt:     normalize.Date(parsed["purchase_date"]),
		PurchasedTime:   normalize.String(parsed["purchase_time"]),
		Currency:        normalize.Currency(parsed["currency"]),
		Subtotal:        normalize.Money(parsed["subtotal"]),
		Tax:             normalize.Money(parsed["tax"]),
		Tip:             normalize.Money(parsed["tip"]),
		Total:           normalize.Money(parsed["total"]),
		PaymentMethod:   normalize.String(parsed["payment_method"]),
		PaymentLast4:    normalize.Last4(parsed["payment_last4"]),
		Category:        normalize.String(parsed["category"]),
		Notes:           normalize.String(parsed["summary_notes"]),
		RawText:         normalize.String(parsed["raw_text"]),
		Confidence:      normalize.Confidence(parsed["confidence"]),
		Tags:            normalize.Tags(parsed["tags"]),
		LineItems:       normalize.LineItems(parsed["line_items"]),
	}
}

// ExtractedKeys lists the receipt field names that carry a value, in
// canonical column order. The explanation trail records this list so users
// can see what the model actually found.
func (f *Fields) ExtractedKeys() []string {
	if f == nil {
		return []string{}
	}

	keys := make([]string, 0, 18)
	add := func(name string, set bool) {
		if set {
			keys = append(keys, name)
		}
	}

	add("merchant", f.Merchant != nil)
	add("merchant_address", f.MerchantAddress != nil)
	add("receipt_number", f.ReceiptNumber != nil)
	add("purchased_at", f.PurchasedAt != nil)
	add("purchased_time", f.PurchasedTime != nil)
	add("currency", f.Currency != nil)
	add("subtotal", f.Subtotal != nil)
	add("tax", f.Tax != nil)
	add("tip", f.Tip != nil)
	add("total", f.Total != nil)
	add("payment_method", f.PaymentMethod != nil)
	add("payment_last4", f.PaymentLast4 != nil)
	add("category", f.Category != nil)
	add("tags", len(f.Tags) > 0)
	add("notes", f.Notes != nil)
	add("raw_text", f.RawText != nil)
	add("ai_confidence", f.Confidence != nil)
	add("line_items", len(f.LineItems) > 0)

	return keys
}
