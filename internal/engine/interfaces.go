package engine

import (
	"context"

	"github.com/pocketfold/pocketfold/internal/ai"
	"github.com/pocketfold/pocketfold/internal/model"
)

// Storage is the receipt store the pipeline reads from and writes to.
type Storage interface {
	// GetReceipt loads a receipt by id scoped to its owner. A missing or
	// foreign receipt is common.ErrNotFound.
	GetReceipt(ctx context.Context, id string, userID int64) (*model.Receipt, error)

	// GetActiveRules returns the owner's active rules ordered by priority
	// ascending, ties broken by rule id ascending.
	GetActiveRules(ctx context.Context, userID int64) ([]model.Rule, error)

	// SaveProcessedReceipt persists the merged snapshot together with its
	// explanation trail in a single atomic write, replacing any prior
	// trail. Ownership mismatch is common.ErrNotFound.
	SaveProcessedReceipt(ctx context.Context, receipt *model.Receipt, explanation model.Explanation) (*model.Receipt, error)
}

// Extractor is the AI extraction adapter. Its result is always a typed
// outcome; it never returns an error because extraction failures must not
// fail the pipeline.
type Extractor interface {
	Extract(ctx context.Context, receipt *model.Receipt) ai.Result
}
