package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureSchema creates the tables and constraints the import pipeline relies
// on. Account, category and user CRUD live elsewhere; the tables exist here
// so the named constraints the error classifier keys on are in one place.
//
// The partial unique index on (user_id, folded fit_id) is the second line of
// defense behind the pre-insert duplicate check: concurrent imports for the
// same user surface as duplicate-key errors instead of duplicate rows.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL,
			name TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE TABLE IF NOT EXISTS categories (
			id UUID PRIMARY KEY,
			user_id UUID,
			name TEXT NOT NULL,
			category_type TEXT NOT NULL
				CONSTRAINT ck_categories_type CHECK (category_type IN ('income', 'expense', 'transfer')),
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			keywords TEXT[] NOT NULL DEFAULT '{}',
			merchant_patterns TEXT[] NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL,
			account_id UUID NOT NULL
				CONSTRAINT fk_transactions_account REFERENCES accounts(id),
			category_id UUID
				CONSTRAINT fk_transactions_category REFERENCES categories(id),
			fit_id TEXT,
			amount NUMERIC(18, 2) NOT NULL,
			currency CHAR(3) NOT NULL DEFAULT 'USD',
			transaction_date TIMESTAMPTZ NOT NULL,
			description TEXT NOT NULL
				CONSTRAINT ck_transactions_description CHECK (length(trim(description)) > 0),
			merchant_name TEXT,
			memo TEXT,
			tags TEXT[] NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			deleted_at TIMESTAMPTZ
		);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_transactions_user_fitid
			ON transactions (user_id, lower(trim(fit_id)))
			WHERE fit_id IS NOT NULL AND deleted_at IS NULL;`,
		`CREATE INDEX IF NOT EXISTS ix_transactions_signature
			ON transactions (user_id, account_id, transaction_date)
			WHERE deleted_at IS NULL;`,
		`CREATE INDEX IF NOT EXISTS ix_transactions_uncategorized
			ON transactions (user_id, transaction_date)
			WHERE category_id IS NULL AND deleted_at IS NULL;`,
	}

	for _, query := range queries {
		if _, err := pool.Exec(ctx, query); err != nil {
			return fmt.Errorf("error ensuring schema: %w", err)
		}
	}

	return nil
}
