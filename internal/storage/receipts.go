package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/pocketfold/pocketfold/internal/common"
	"github.com/pocketfold/pocketfold/internal/model"
)

const receiptColumns = `id, user_id, merchant, merchant_address, receipt_number,
	purchased_at, purchased_time, currency, subtotal, tax, tip, total,
	payment_method, payment_last4, category, notes, raw_text, file_path,
	tags, line_items, ai_confidence, ai_model, processing_explanation,
	processed_at, created_at, updated_at`

// CreateReceipt inserts a new receipt. A missing ID gets a fresh UUID;
// timestamps are set here so callers never have to.
func (s *SQLiteStorage) CreateReceipt(ctx context.Context, receipt *model.Receipt) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if receipt == nil {
		return fmt.Errorf("%w: receipt", ErrNilParameter)
	}
	if receipt.ID == "" {
		receipt.ID = uuid.New().String()
	}
	if err := validateReceipt(receipt); err != nil {
		return err
	}

	now := time.Now().UTC()
	receipt.CreatedAt = now
	receipt.UpdatedAt = now

	tagsJSON, err := marshalJSONColumn(receipt.Tags)
	if err != nil {
		return fmt.Errorf("failed to encode tags: %w", err)
	}
	itemsJSON, err := marshalJSONColumn(receipt.LineItems)
	if err != nil {
		return fmt.Errorf("failed to encode line items: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO receipts (
			id, user_id, merchant, merchant_address, receipt_number,
			purchased_at, purchased_time, currency, subtotal, tax, tip, total,
			payment_method, payment_last4, category, notes, raw_text, file_path,
			tags, line_items, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		receipt.ID, receipt.UserID, receipt.Merchant, receipt.MerchantAddress,
		receipt.ReceiptNumber, receipt.PurchasedAt, receipt.PurchasedTime,
		receipt.Currency, receipt.Subtotal, receipt.Tax, receipt.Tip, receipt.Total,
		receipt.PaymentMethod, receipt.PaymentLast4, receipt.Category, receipt.Notes,
		receipt.RawText, receipt.FilePath, tagsJSON, itemsJSON,
		receipt.CreatedAt, receipt.UpdatedAt)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return fmt.Errorf("receipt %s: %w", receipt.ID, common.ErrDuplicateEntry)
		}
		return fmt.Errorf("failed to insert receipt: %w", err)
	}

	return nil
}

// GetReceipt loads one receipt scoped to its owner. A receipt that does not
// exist or belongs to someone else is common.ErrNotFound either way; callers
// cannot tell which.
func (s *SQLiteStorage) GetReceipt(ctx context.Context, id string, userID int64) (*model.Receipt, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+receiptColumns+` FROM receipts WHERE id = ? AND user_id = ?`,
		id, userID)

	receipt, err := scanReceipt(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load receipt: %w", err)
	}
	return receipt, nil
}

// ListReceipts returns the owner's receipts, newest first.
func (s *SQLiteStorage) ListReceipts(ctx context.Context, userID int64) ([]model.Receipt, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+receiptColumns+` FROM receipts WHERE user_id = ? ORDER BY created_at DESC, id`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query receipts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var receipts []model.Receipt
	for rows.Next() {
		receipt, scanErr := scanReceipt(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan receipt: %w", scanErr)
		}
		receipts = append(receipts, *receipt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate receipts: %w", err)
	}

	return receipts, nil
}

// SaveProcessedReceipt writes the merged snapshot and its explanation trail
// in a single statement: either everything lands or nothing does. The prior
// trail is replaced, never appended to.
func (s *SQLiteStorage) SaveProcessedReceipt(ctx context.Context, receipt *model.Receipt, explanation model.Explanation) (*model.Receipt, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateReceipt(receipt); err != nil {
		return nil, err
	}

	explJSON, err := json.Marshal(explanation)
	if err != nil {
		return nil, fmt.Errorf("failed to encode explanation: %w", err)
	}
	tagsJSON, err := marshalJSONColumn(receipt.Tags)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tags: %w", err)
	}
	itemsJSON, err := marshalJSONColumn(receipt.LineItems)
	if err != nil {
		return nil, fmt.Errorf("failed to encode line items: %w", err)
	}

	receipt.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE receipts SET
			merchant = ?, merchant_address = ?, receipt_number = ?,
			purchased_at = ?, purchased_time = ?, currency = ?,
			subtotal = ?, tax = ?, tip = ?, total = ?,
			payment_method = ?, payment_last4 = ?, category = ?, notes = ?,
			raw_text = ?, tags = ?, line_items = ?,
			ai_confidence = ?, ai_model = ?, processing_explanation = ?,
			processed_at = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		receipt.Merchant, receipt.MerchantAddress, receipt.ReceiptNumber,
		receipt.PurchasedAt, receipt.PurchasedTime, receipt.Currency,
		receipt.Subtotal, receipt.Tax, receipt.Tip, receipt.Total,
		receipt.PaymentMethod, receipt.PaymentLast4, receipt.Category, receipt.Notes,
		receipt.RawText, tagsJSON, itemsJSON,
		receipt.AIConfidence, receipt.AIModel, string(explJSON),
		receipt.ProcessedAt, receipt.UpdatedAt,
		receipt.ID, receipt.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to update receipt: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return nil, common.ErrNotFound
	}

	return s.GetReceipt(ctx, receipt.ID, receipt.UserID)
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanReceipt(row scanner) (*model.Receipt, error) {
	var r model.Receipt
	var (
		merchant, merchantAddress, receiptNumber sql.NullString
		purchasedAt, purchasedTime, currency     sql.NullString
		paymentMethod, paymentLast4, category    sql.NullString
		notes, rawText, filePath, aiModel        sql.NullString
		tagsJSON, itemsJSON, explJSON            sql.NullString
		subtotal, tax, tip, total, aiConfidence  sql.NullFloat64
		processedAt                              sql.NullTime
	)

	err := row.Scan(
		&r.ID, &r.UserID, &merchant, &merchantAddress, &receiptNumber,
		&purchasedAt, &purchasedTime, &currency, &subtotal, &tax, &tip, &total,
		&paymentMethod, &paymentLast4, &category, &notes, &rawText, &filePath,
		&tagsJSON, &itemsJSON, &aiConfidence, &aiModel, &explJSON,
		&processedAt, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}

	r.Merchant = nullStr(merchant)
	r.MerchantAddress = nullStr(merchantAddress)
	r.ReceiptNumber = nullStr(receiptNumber)
	r.PurchasedAt = nullStr(purchasedAt)
	r.PurchasedTime = nullStr(purchasedTime)
	r.Currency = nullStr(currency)
	r.PaymentMethod = nullStr(paymentMethod)
	r.PaymentLast4 = nullStr(paymentLast4)
	r.Category = nullStr(category)
	r.Notes = nullStr(notes)
	r.RawText = nullStr(rawText)
	r.FilePath = nullStr(filePath)
	r.AIModel = nullStr(aiModel)
	r.Subtotal = nullNum(subtotal)
	r.Tax = nullNum(tax)
	r.Tip = nullNum(tip)
	r.Total = nullNum(total)
	r.AIConfidence = nullNum(aiConfidence)

	if processedAt.Valid {
		t := processedAt.Time
		r.ProcessedAt = &t
	}

	r.Tags = []string{}
	if tagsJSON.Valid && tagsJSON.String != "" {
		if err := json.Unmarshal([]byte(tagsJSON.String), &r.Tags); err != nil {
			return nil, fmt.Errorf("failed to decode tags: %w", err)
		}
	}

	r.LineItems = nil
	if itemsJSON.Valid && itemsJSON.String != "" {
		if err := json.Unmarshal([]byte(itemsJSON.String), &r.LineItems); err != nil {
			return nil, fmt.Errorf("failed to decode line items: %w", err)
		}
	}

	if explJSON.Valid && explJSON.String != "" {
		r.ProcessingExplanation = json.RawMessage(explJSON.String)
	}

	return &r, nil
}

// marshalJSONColumn renders a slice for a JSON text column; nil encodes as
// the empty array so the column never holds SQL NULL.
func marshalJSONColumn(v any) (string, error) {
	switch t := v.(type) {
	case []string:
		if t == nil {
			return "[]", nil
		}
	case []model.LineItem:
		if t == nil {
			return "[]", nil
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func nullStr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func nullNum(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
