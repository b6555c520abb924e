package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/the-fines-must-flow/internal/common"
	"github.com/Veraticus/the-fines-must-flow/internal/model"
)

// GetCategories returns the registry ordered by code.
func (s *queries) GetCategories(ctx context.Context) ([]model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.q.QueryContext(ctx, `
		SELECT code, description, default_amount, created_at
		FROM categories
		ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var categories []model.Category
	for rows.Next() {
		var cat model.Category
		if err := rows.Scan(&cat.Code, &cat.Description, &cat.DefaultAmount, &cat.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, cat)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	slog.Debug("retrieved categories", "count", len(categories))
	return categories, nil
}

// GetCategory returns a category by code or common.ErrNotFound.
func (s *queries) GetCategory(ctx context.Context, code string) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(code, "code"); err != nil {
		return nil, err
	}

	var cat model.Category
	err := s.q.QueryRowContext(ctx, `
		SELECT code, description, default_amount, created_at
		FROM categories
		WHERE code = ?`, code,
	).Scan(&cat.Code, &cat.Description, &cat.DefaultAmount, &cat.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NotFoundf("category %q", code)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query category: %w", err)
	}

	return &cat, nil
}

// UpsertCategory creates a category or updates its description and amount.
// The code itself never changes.
func (s *queries) UpsertCategory(ctx context.Context, cat *model.Category) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateCategory(cat); err != nil {
		return err
	}

	if cat.CreatedAt.IsZero() {
		cat.CreatedAt = time.Now().UTC()
	}

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO categories (code, description, default_amount, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(code) DO UPDATE SET
			description = excluded.description,
			default_amount = excluded.default_amount`,
		cat.Code, cat.Description, cat.DefaultAmount, cat.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save category %q: %w", cat.Code, err)
	}

	return nil
}

// UpdateCategoryAmount changes a category's default penalty.
func (s *queries) UpdateCategoryAmount(ctx context.Context, code string, amount int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(code, "code"); err != nil {
		return err
	}
	if amount < 0 {
		return fmt.Errorf("%w: default amount cannot be negative", ErrInvalidCategory)
	}

	result, err := s.q.ExecContext(ctx, `UPDATE categories SET default_amount = ? WHERE code = ?`, amount, code)
	if err != nil {
		return fmt.Errorf("failed to update category %q: %w", code, err)
	}
	if err := requireAffected(result); err != nil {
		return common.NotFoundf("category %q", code)
	}

	slog.Info("updated category default", "code", code, "amount", amount)
	return nil
}

// SeedDefaultCategories fills an empty registry and reports how many rows
// were inserted. A registry with any rows is left alone.
func (s *queries) SeedDefaultCategories(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	var count int
	if err := s.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM categories`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count categories: %w", err)
	}
	if count > 0 {
		return 0, nil
	}

	defaults := model.DefaultCategories()
	for i := range defaults {
		if err := s.UpsertCategory(ctx, &defaults[i]); err != nil {
			return i, err
		}
	}

	return len(defaults), nil
}
