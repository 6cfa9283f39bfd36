package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pocketfold/pocketfold/internal/common"
	"github.com/pocketfold/pocketfold/internal/model"
)

// maxResponseBytes bounds how much of a provider response we are willing to
// read; well above any schema-constrained output but finite.
const maxResponseBytes = 4 << 20

// Extractor orchestrates one vision extraction call. It holds no cross-call
// state beyond read-only configuration, so a single instance is safe for
// concurrent use.
type Extractor struct {
	httpClient *http.Client
	cfg        Config
}

// NewExtractor creates an extraction adapter from configuration. Defaults
// and clamps are applied here so callers can pass config straight from file.
func NewExtractor(cfg Config) *Extractor {
	cfg = cfg.normalized()
	return &Extractor{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// Extract runs the extraction for one receipt. The result is always a typed
// outcome: skipped when a precondition rules the call out, failed when the
// provider misbehaves, success with normalized fields otherwise.
func (e *Extractor) Extract(ctx context.Context, receipt *model.Receipt) Result {
	cfg := e.cfg

	if !cfg.Enabled {
		return e.skipped("AI extraction disabled in config.")
	}

	if cfg.Provider != ProviderOpenAI && cfg.Provider != ProviderAnthropic {
		return Result{
			Status:   model.StatusSkipped,
			Provider: cfg.Provider,
			Reason:   "Unsupported AI provider configured.",
		}
	}

	if cfg.APIKey == "" {
		return e.skipped(providerLabel(cfg.Provider) + " API key is missing.")
	}

	var filePath string
	if receipt.FilePath != nil {
		filePath = *receipt.FilePath
	}
	img, ok := loadImage(filePath)
	if !ok {
		return e.skipped("Receipt image is missing or unreadable.")
	}

	var rawText string
	if receipt.RawText != nil {
		rawText = strings.TrimSpace(*receipt.RawText)
	}

	var parsed map[string]any
	var failReason string
	switch cfg.Provider {
	case ProviderAnthropic:
		parsed, failReason = e.completeAnthropic(ctx, img, rawText)
	default:
		parsed, failReason = e.completeOpenAI(ctx, img, rawText)
	}

	if failReason != "" {
		return e.failed(failReason)
	}

	return Result{
		Status:   model.StatusSuccess,
		Provider: cfg.Provider,
		Model:    cfg.Model,
		Fields:   NormalizeFields(parsed),
	}
}

func (e *Extractor) skipped(reason string) Result {
	return Result{
		Status:   model.StatusSkipped,
		Provider: e.cfg.Provider,
		Model:    e.cfg.Model,
		Reason:   reason,
	}
}

func (e *Extractor) failed(reason string) Result {
	return Result{
		Status:   model.StatusFailed,
		Provider: e.cfg.Provider,
		Model:    e.cfg.Model,
		Reason:   reason,
	}
}

// postJSON sends one JSON request and decodes the response body. Transport
// failures surface as errors; a body that is not a JSON object leaves the
// decoded map nil with the status still set. Rate-limited attempts retry
// with backoff, every other failure is terminal.
func (e *Extractor) postJSON(ctx context.Context, url string, headers map[string]string, payload any) (int, map[string]any, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var status int
	var decoded map[string]any

	operation := func() error {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if reqErr != nil {
			return &common.RetryableError{Err: reqErr, Retryable: false}
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, doErr := e.httpClient.Do(req)
		if doErr != nil {
			return &common.RetryableError{Err: doErr, Retryable: false}
		}
		defer func() { _ = resp.Body.Close() }()

		raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if readErr != nil {
			return &common.RetryableError{Err: readErr, Retryable: false}
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("%w (status 429)", common.ErrRateLimit)
		}

		status = resp.StatusCode
		decoded = nil
		var v any
		if jsonErr := json.Unmarshal(raw, &v); jsonErr == nil {
			if m, ok := v.(map[string]any); ok {
				decoded = m
			}
		}
		return nil
	}

	retryOpts := common.RetryOptions{
		MaxAttempts:  2,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     2 * time.Second,
	}
	if err := common.WithRetry(ctx, operation, retryOpts); err != nil {
		return 0, nil, err
	}

	return status, decoded, nil
}

// errorMessage digs the provider's human-readable error out of an error
// payload, if there is one.
func errorMessage(decoded map[string]any) string {
	errObj, ok := decoded["error"].(map[string]any)
	if !ok {
		return ""
	}
	msg, _ := errObj["message"].(string)
	return strings.TrimSpace(msg)
}
