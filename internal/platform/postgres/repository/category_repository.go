package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/finbook/finbook/internal/domain/category"
)

// PostgresCategoryRepository implements the category.Repository interface
type PostgresCategoryRepository struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

// NewPostgresCategoryRepository creates a new PostgresCategoryRepository
func NewPostgresCategoryRepository(pool *pgxpool.Pool, log *zap.Logger) *PostgresCategoryRepository {
	return &PostgresCategoryRepository{pool: pool, log: log}
}

// ListActive returns the active categories visible to the user: system-wide
// rows (user_id IS NULL) plus the user's own, in name order.
func (r *PostgresCategoryRepository) ListActive(ctx context.Context, userID string) ([]category.Category, error) {
	query := `
	SELECT id, COALESCE(user_id::text, ''), name, category_type, is_active,
	       keywords, merchant_patterns, created_at, updated_at
	FROM categories
	WHERE is_active
	  AND (user_id IS NULL OR user_id = $1)
	ORDER BY name, id;`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("error querying categories: %w", err)
	}
	defer rows.Close()

	var categories []category.Category
	for rows.Next() {
		var c category.Category
		if err := rows.Scan(
			&c.ID, &c.UserID, &c.Name, &c.Type, &c.IsActive,
			&c.Keywords, &c.MerchantPatterns, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("error scanning category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over categories: %w", err)
	}

	return categories, nil
}
