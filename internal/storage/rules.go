package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pocketfold/pocketfold/internal/common"
	"github.com/pocketfold/pocketfold/internal/model"
)

const ruleColumns = `id, user_id, name, conditions, actions, priority, is_active, created_at, updated_at`

// CreateRule inserts a new rule and backfills its generated ID.
func (s *SQLiteStorage) CreateRule(ctx context.Context, rule *model.Rule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRule(rule); err != nil {
		return err
	}

	now := time.Now().UTC()
	rule.CreatedAt = now
	rule.UpdatedAt = now

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO rules (user_id, name, conditions, actions, priority, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rule.UserID, rule.Name, rule.Conditions, rule.Actions,
		rule.Priority, rule.IsActive, rule.CreatedAt, rule.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert rule: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read rule id: %w", err)
	}
	rule.ID = id

	return nil
}

// GetActiveRules returns the owner's active rules in evaluation order:
// priority ascending, ties broken by id ascending.
func (s *SQLiteStorage) GetActiveRules(ctx context.Context, userID int64) ([]model.Rule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	return s.queryRules(ctx,
		`SELECT `+ruleColumns+` FROM rules WHERE user_id = ? AND is_active = 1 ORDER BY priority ASC, id ASC`,
		userID)
}

// ListRules returns all of the owner's rules, active or not, in evaluation
// order.
func (s *SQLiteStorage) ListRules(ctx context.Context, userID int64) ([]model.Rule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	return s.queryRules(ctx,
		`SELECT `+ruleColumns+` FROM rules WHERE user_id = ? ORDER BY priority ASC, id ASC`,
		userID)
}

// GetRule loads one rule scoped to its owner.
func (s *SQLiteStorage) GetRule(ctx context.Context, id int64, userID int64) (*model.Rule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+ruleColumns+` FROM rules WHERE id = ? AND user_id = ?`,
		id, userID)

	var rule model.Rule
	err := row.Scan(&rule.ID, &rule.UserID, &rule.Name, &rule.Conditions,
		&rule.Actions, &rule.Priority, &rule.IsActive, &rule.CreatedAt, &rule.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load rule: %w", err)
	}
	return &rule, nil
}

// SetRuleActive flips a rule's active flag.
func (s *SQLiteStorage) SetRuleActive(ctx context.Context, id int64, userID int64, active bool) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE rules SET is_active = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		active, time.Now().UTC(), id, userID)
	if err != nil {
		return fmt.Errorf("failed to update rule: %w", err)
	}
	return checkAffected(result)
}

// DeleteRule removes a rule permanently.
func (s *SQLiteStorage) DeleteRule(ctx context.Context, id int64, userID int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM rules WHERE id = ? AND user_id = ?`,
		id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}
	return checkAffected(result)
}

func (s *SQLiteStorage) queryRules(ctx context.Context, query string, args ...any) ([]model.Rule, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var rules []model.Rule
	for rows.Next() {
		var rule model.Rule
		if err := rows.Scan(&rule.ID, &rule.UserID, &rule.Name, &rule.Conditions,
			&rule.Actions, &rule.Priority, &rule.IsActive, &rule.CreatedAt, &rule.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rules: %w", err)
	}

	return rules, nil
}

func checkAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return common.ErrNotFound
	}
	return nil
}
