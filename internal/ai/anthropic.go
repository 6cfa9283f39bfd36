package ai

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/pocketfold/pocketfold/internal/jsonx"
)

// completeAnthropic calls the Anthropic Messages API. Anthropic has no
// schema-constrained output mode, so the schema travels inside the prompt
// and the reply goes through the recovery parser.
func (e *Extractor) completeAnthropic(ctx context.Context, img imageData, rawText string) (map[string]any, string) {
	schemaJSON, err := json.Marshal(receiptSchema())
	if err != nil {
		return nil, "Anthropic request could not be built: " + err.Error()
	}

	prompt := userPrompt(rawText) +
		"\nRespond with a single JSON object matching this schema exactly:\n" +
		string(schemaJSON)

	payload := map[string]any{
		"model":      e.cfg.Model,
		"max_tokens": e.cfg.MaxOutputTokens,
		"system":     systemPrompt,
		"messages": []map[string]any{
			{
				"role": "user",
				"content": []map[string]any{
					{
						"type": "image",
						"source": map[string]any{
							"type":       "base64",
							"media_type": img.mime,
							"data":       img.b64,
						},
					},
					{"type": "text", "text": prompt},
				},
			},
		},
	}

	headers := map[string]string{
		"x-api-key":         e.cfg.APIKey,
		"anthropic-version": "2023-06-01",
	}

	status, decoded, err := e.postJSON(ctx, e.cfg.BaseURL+"/messages", headers, payload)
	if err != nil {
		return nil, "Anthropic HTTP request failed: " + err.Error()
	}
	if decoded == nil {
		return nil, "Anthropic response was not valid JSON."
	}

	if status < 200 || status >= 300 {
		if msg := errorMessage(decoded); msg != "" {
			return nil, msg
		}
		return nil, "Anthropic request failed."
	}

	text := anthropicText(decoded)
	if text == "" {
		return nil, "Anthropic response did not include any text output."
	}

	if obj, ok := jsonx.Recover(text); ok {
		return obj, ""
	}

	if stop, _ := decoded["stop_reason"].(string); stop == "max_tokens" {
		return nil, "Anthropic output was incomplete (max_tokens). Increase max_output_tokens."
	}
	return nil, "Anthropic returned invalid JSON."
}

func anthropicText(decoded map[string]any) string {
	content, ok := decoded["content"].([]any)
	if !ok {
		return ""
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
	return ""
}
