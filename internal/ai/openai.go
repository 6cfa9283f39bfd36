package ai

import (
	"context"
	"strings"

	"github.com/pocketfold/pocketfold/internal/jsonx"
)

const systemPrompt = "You are an expert receipt parser for accounting systems."

const extractionPrompt = `Extract all receipt fields with best effort.
Rules:
- Return valid JSON only using the provided schema.
- purchase_date must be YYYY-MM-DD when known.
- currency should be ISO code like USD.
- line_items must include each purchased item.
- confidence must be between 0 and 1.
- Keep unknown values as null.
- raw_text should contain OCR-style full receipt text.
`

func userPrompt(existingRawText string) string {
	if existingRawText == "" {
		return extractionPrompt
	}
	return extractionPrompt + "\nExisting raw text from user/system:\n" + existingRawText
}

// receiptSchema is the strict JSON schema the provider must satisfy. Every
// property is required with a nullable type so the model cannot omit keys.
func receiptSchema() map[string]any {
	nullable := func(kind string) map[string]any {
		return map[string]any{"type": []string{kind, "null"}}
	}

	lineItem := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"name":        map[string]any{"type": "string"},
			"quantity":    nullable("number"),
			"unit_price":  nullable("number"),
			"total_price": nullable("number"),
			"category":    nullable("string"),
		},
		"required": []string{"name", "quantity", "unit_price", "total_price", "category"},
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"merchant_name":    nullable("string"),
			"merchant_address": nullable("string"),
			"receipt_number":   nullable("string"),
			"purchase_date":    nullable("string"),
			"purchase_time":    nullable("string"),
			"currency":         nullable("string"),
			"subtotal":         nullable("number"),
			"tax":              nullable("number"),
			"tip":              nullable("number"),
			"total":            nullable("number"),
			"payment_method":   nullable("string"),
			"payment_last4":    nullable("string"),
			"category":         nullable("string"),
			"tags": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
			"summary_notes": nullable("string"),
			"raw_text":      nullable("string"),
			"confidence":    nullable("number"),
			"line_items": map[string]any{
				"type":  "array",
				"items": lineItem,
			},
		},
		"required": []string{
			"merchant_name", "merchant_address", "receipt_number",
			"purchase_date", "purchase_time", "currency",
			"subtotal", "tax", "tip", "total",
			"payment_method", "payment_last4", "category",
			"tags", "summary_notes", "raw_text", "confidence", "line_items",
		},
	}
}

// completeOpenAI calls the OpenAI Responses API with a schema-constrained
// vision request and classifies the outcome. A non-empty second return is
// the failure reason.
func (e *Extractor) completeOpenAI(ctx context.Context, img imageData, rawText string) (map[string]any, string) {
	payload := map[string]any{
		"model": e.cfg.Model,
		"input": []map[string]any{
			{
				"role": "system",
				"content": []map[string]any{
					{"type": "input_text", "text": systemPrompt},
				},
			},
			{
				"role": "user",
				"content": []map[string]any{
					{"type": "input_text", "text": userPrompt(rawText)},
					{"type": "input_image", "image_url": img.dataURL()},
				},
			},
		},
		"text": map[string]any{
			"format": map[string]any{
				"type":   "json_schema",
				"name":   "receipt_extraction",
				"strict": true,
				"schema": receiptSchema(),
			},
		},
		"max_output_tokens": e.cfg.MaxOutputTokens,
	}

	headers := map[string]string{
		"Authorization": "Bearer " + e.cfg.APIKey,
	}

	status, decoded, err := e.postJSON(ctx, e.cfg.BaseURL+"/responses", headers, payload)
	if err != nil {
		return nil, "OpenAI HTTP request failed: " + err.Error()
	}
	if decoded == nil {
		return nil, "OpenAI response was not valid JSON."
	}

	if status < 200 || status >= 300 {
		if msg := errorMessage(decoded); msg != "" {
			return nil, msg
		}
		return nil, "OpenAI request failed."
	}

	if obj := openAIOutputObject(decoded); obj != nil {
		return obj, ""
	}

	text := openAIOutputText(decoded)
	if text == "" {
		return nil, "OpenAI response did not include structured output."
	}

	if obj, ok := jsonx.Recover(text); ok {
		return obj, ""
	}

	return nil, openAIInvalidJSONReason(decoded)
}

// openAIOutputObject finds a structured object anywhere the Responses API
// may have put one: output_parsed at the top level, or parsed/json chunks
// inside the output content list.
func openAIOutputObject(decoded map[string]any) map[string]any {
	if parsed, ok := decoded["output_parsed"].(map[string]any); ok {
		return parsed
	}

	output, ok := decoded["output"].([]any)
	if !ok {
		return nil
	}

	for _, entry := range output {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		content, ok := m["content"].([]any)
		if !ok {
			continue
		}
		for _, chunk := range content {
			c, ok := chunk.(map[string]any)
			if !ok {
				continue
			}
			if parsed, ok := c["parsed"].(map[string]any); ok {
				return parsed
			}
			switch j := c["json"].(type) {
			case map[string]any:
				return j
			case string:
				if obj, ok := jsonx.Recover(j); ok {
					return obj
				}
			}
		}
	}

	return nil
}

// openAIOutputText collects the first free-text chunk for recovery parsing.
func openAIOutputText(decoded map[string]any) string {
	if text, ok := decoded["output_text"].(string); ok && strings.TrimSpace(text) != "" {
		return text
	}

	output, ok := decoded["output"].([]any)
	if !ok {
		return ""
	}

	for _, entry := range output {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		content, ok := m["content"].([]any)
		if !ok {
			continue
		}
		for _, chunk := range content {
			c, ok := chunk.(map[string]any)
			if !ok {
				continue
			}
			if text, ok := c["text"].(string); ok && strings.TrimSpace(text) != "" {
				return text
			}
		}
	}

	return ""
}

// openAIInvalidJSONReason distinguishes truncated output, which the user can
// fix by raising the token budget, from plain bad JSON.
func openAIInvalidJSONReason(decoded map[string]any) string {
	respStatus, _ := decoded["status"].(string)
	if strings.ToLower(strings.TrimSpace(respStatus)) == "incomplete" {
		if details, ok := decoded["incomplete_details"].(map[string]any); ok {
			if reason, ok := details["reason"].(string); ok && strings.TrimSpace(reason) != "" {
				return "OpenAI output was incomplete (" + strings.TrimSpace(reason) + "). Increase max_output_tokens."
			}
		}
		return "OpenAI output was incomplete. Increase max_output_tokens."
	}
	return "OpenAI returned invalid JSON."
}
