package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pocketfold/pocketfold/internal/model"
)

func receiptsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "receipts",
		Short: "Manage stored receipts",
	}

	cmd.AddCommand(receiptsAddCmd())
	cmd.AddCommand(receiptsListCmd())
	cmd.AddCommand(receiptsShowCmd())

	return cmd
}

func receiptsAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a receipt for later processing",
		RunE:  runReceiptsAdd,
	}

	cmd.Flags().Int64("user", 1, "user ID owning the receipt")
	cmd.Flags().String("image", "", "path to the receipt image")
	cmd.Flags().String("merchant", "", "merchant name")
	cmd.Flags().Float64("total", 0, "receipt total")
	cmd.Flags().String("currency", "", "ISO currency code")
	cmd.Flags().String("raw-text", "", "OCR or user-supplied receipt text")

	return cmd
}

func runReceiptsAdd(cmd *cobra.Command, _ []string) error {
	userID, _ := cmd.Flags().GetInt64("user")

	receipt := &model.Receipt{UserID: userID}

	if image, _ := cmd.Flags().GetString("image"); strings.TrimSpace(image) != "" {
		path := expandPath(strings.TrimSpace(image))
		receipt.FilePath = &path
	}
	if merchant, _ := cmd.Flags().GetString("merchant"); strings.TrimSpace(merchant) != "" {
		trimmed := strings.TrimSpace(merchant)
		receipt.Merchant = &trimmed
	}
	if cmd.Flags().Changed("total") {
		total, _ := cmd.Flags().GetFloat64("total")
		receipt.Total = &total
	}
	if currency, _ := cmd.Flags().GetString("currency"); strings.TrimSpace(currency) != "" {
		trimmed := strings.ToUpper(strings.TrimSpace(currency))
		receipt.Currency = &trimmed
	}
	if rawText, _ := cmd.Flags().GetString("raw-text"); strings.TrimSpace(rawText) != "" {
		trimmed := strings.TrimSpace(rawText)
		receipt.RawText = &trimmed
	}

	ctx := cmd.Context()
	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	if err := store.CreateReceipt(ctx, receipt); err != nil {
		return fmt.Errorf("failed to create receipt: %w", err)
	}

	fmt.Println(receipt.ID)
	return nil
}

func receiptsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List receipts, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			userID, _ := cmd.Flags().GetInt64("user")

			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer func() { _ = store.Close() }()

			receipts, err := store.ListReceipts(ctx, userID)
			if err != nil {
				return fmt.Errorf("failed to list receipts: %w", err)
			}

			for _, r := range receipts {
				merchant := "(unknown merchant)"
				if r.Merchant != nil {
					merchant = *r.Merchant
				}
				status := "pending"
				if r.ProcessedAt != nil {
					status = "processed"
				}
				total := ""
				if r.Total != nil {
					total = fmt.Sprintf("%.2f", *r.Total)
				}
				fmt.Printf("%s\t%s\t%s\t%s\n", r.ID, merchant, total, status)
			}
			return nil
		},
	}

	cmd.Flags().Int64("user", 1, "user ID owning the receipts")
	return cmd
}

func receiptsShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <receipt-id>",
		Short: "Print one receipt as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, _ := cmd.Flags().GetInt64("user")

			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer func() { _ = store.Close() }()

			receipt, err := store.GetReceipt(ctx, args[0], userID)
			if err != nil {
				return userFacing(err, "receipt "+args[0])
			}

			out, err := json.MarshalIndent(receipt, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode receipt: %w", err)
			}
			fmt.Println(string(out))
			return nil
		},
	}

	cmd.Flags().Int64("user", 1, "user ID owning the receipt")
	return cmd
}
