package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/pocketfold/pocketfold/internal/ai"
	"github.com/pocketfold/pocketfold/internal/common"
	"github.com/pocketfold/pocketfold/internal/engine"
	"github.com/pocketfold/pocketfold/internal/model"
)

func processCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "process [receipt-id]",
		Short: "Run the extraction and rule pipeline for receipts",
		Long: `Process runs the full pipeline for a receipt: AI field extraction,
normalization, rule evaluation, and an atomic write-back of the merged
result together with its explanation trail.

Pass a receipt ID to process one receipt, or --all to process every
receipt belonging to the user.`,
		RunE: runProcess,
	}

	cmd.Flags().Int64("user", 1, "user ID owning the receipts")
	cmd.Flags().Bool("all", false, "process every receipt for the user")
	cmd.Flags().Bool("json", false, "print the processed receipt as JSON")

	return cmd
}

func runProcess(cmd *cobra.Command, args []string) error {
	userID, _ := cmd.Flags().GetInt64("user")
	all, _ := cmd.Flags().GetBool("all")
	asJSON, _ := cmd.Flags().GetBool("json")

	if !all && len(args) != 1 {
		return fmt.Errorf("expected a receipt ID (or --all)")
	}
	if all && len(args) > 0 {
		return fmt.Errorf("--all cannot be combined with a receipt ID")
	}

	ctx := cmd.Context()
	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	pipeline := engine.New(store, ai.NewExtractor(aiConfigFromViper()))

	if !all {
		receipt, explanation, procErr := pipeline.Process(ctx, args[0], userID)
		if procErr != nil {
			return userFacing(procErr, "receipt "+args[0])
		}
		return printProcessed(receipt, explanation, asJSON)
	}

	receipts, err := store.ListReceipts(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to list receipts: %w", err)
	}
	if len(receipts) == 0 {
		slog.Info("No receipts to process", "user", userID)
		return nil
	}

	bar := progressbar.NewOptions(len(receipts),
		progressbar.OptionSetDescription("Processing receipts"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	var failed int
	for _, receipt := range receipts {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if _, _, procErr := pipeline.Process(ctx, receipt.ID, userID); procErr != nil {
			// One bad receipt should not sink the batch.
			failed++
			common.LogError(procErr, "Failed to process receipt", common.Fields{
				"receipt_id": receipt.ID,
				"user":       userID,
			})
		}
		_ = bar.Add(1)
	}

	common.LogInfo("Batch processing complete", common.Fields{
		"total":     len(receipts),
		"succeeded": len(receipts) - failed,
		"failed":    failed,
	})
	return nil
}

func printProcessed(receipt *model.Receipt, explanation model.Explanation, asJSON bool) error {
	if asJSON {
		out, err := json.MarshalIndent(receipt, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode receipt: %w", err)
		}
		fmt.Println(string(out))
		return nil
	}

	trail, err := json.Marshal(explanation)
	if err != nil {
		return fmt.Errorf("failed to encode explanation: %w", err)
	}
	slog.Info("Receipt processed", "receipt_id", receipt.ID)
	fmt.Println(string(trail))
	return nil
}
