package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	commonErrors "github.com/finbook/finbook/internal/domain/errors"
	"github.com/finbook/finbook/internal/domain/transaction"
)

// PostgresTransactionRepository implements the transaction.Repository
// interface
type PostgresTransactionRepository struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

// NewPostgresTransactionRepository creates a new PostgresTransactionRepository
func NewPostgresTransactionRepository(pool *pgxpool.Pool, log *zap.Logger) *PostgresTransactionRepository {
	return &PostgresTransactionRepository{pool: pool, log: log}
}

// Create inserts a single transaction row. Constraint violations come back
// as *transaction.ConstraintError so the importer can recover per record.
func (r *PostgresTransactionRepository) Create(ctx context.Context, tx *transaction.Transaction) error {
	query := `
	INSERT INTO transactions (
		id, user_id, account_id, category_id, fit_id, amount, currency,
		transaction_date, description, merchant_name, memo, tags,
		created_at, updated_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14);`

	_, err := r.pool.Exec(ctx, query,
		tx.ID,
		tx.UserID,
		tx.AccountID,
		nilIfEmpty(tx.CategoryID),
		nilIfEmpty(tx.FitID),
		tx.Amount.StringFixed(2),
		tx.Currency,
		tx.Date,
		tx.Description,
		nilIfEmpty(tx.MerchantName),
		nilIfEmpty(tx.Memo),
		tags(tx.Tags),
		tx.CreatedAt,
		tx.UpdatedAt,
	)
	if err != nil {
		return classifyError(err)
	}
	return nil
}

// FindActiveFitIDs returns which of the given normalized FitIDs already
// exist among the user's non-deleted transactions.
func (r *PostgresTransactionRepository) FindActiveFitIDs(ctx context.Context, userID string, normalizedFitIDs []string) (map[string]struct{}, error) {
	found := make(map[string]struct{}, len(normalizedFitIDs))
	if len(normalizedFitIDs) == 0 {
		return found, nil
	}

	query := `
	SELECT lower(trim(fit_id))
	FROM transactions
	WHERE user_id = $1
	  AND deleted_at IS NULL
	  AND fit_id IS NOT NULL
	  AND lower(trim(fit_id)) = ANY($2);`

	rows, err := r.pool.Query(ctx, query, userID, normalizedFitIDs)
	if err != nil {
		return nil, fmt.Errorf("error querying fit ids: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var fitID string
		if err := rows.Scan(&fitID); err != nil {
			return nil, fmt.Errorf("error scanning fit id: %w", err)
		}
		found[fitID] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over fit ids: %w", err)
	}

	return found, nil
}

// ExistsBySignature reports whether a non-deleted row matches the signature:
// same user and account, amount within the epsilon, exact date, folded
// description equal.
func (r *PostgresTransactionRepository) ExistsBySignature(ctx context.Context, q transaction.SignatureQuery) (bool, error) {
	query := `
	SELECT EXISTS (
		SELECT 1
		FROM transactions
		WHERE user_id = $1
		  AND account_id = $2
		  AND deleted_at IS NULL
		  AND abs(amount - $3::numeric) < $4::numeric
		  AND transaction_date = $5
		  AND lower(trim(description)) = $6
	);`

	var exists bool
	err := r.pool.QueryRow(ctx, query,
		q.UserID,
		q.AccountID,
		q.Amount.StringFixed(2),
		transaction.SignatureEpsilon.String(),
		q.Date,
		q.Description,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("error checking signature: %w", err)
	}
	return exists, nil
}

// ListUncategorized lists non-deleted transactions without a category,
// oldest first.
func (r *PostgresTransactionRepository) ListUncategorized(ctx context.Context, userID string, limit int) ([]transaction.Transaction, error) {
	query := `
	SELECT id, user_id, account_id, fit_id, amount::text, currency,
	       transaction_date, description, merchant_name, memo, tags,
	       created_at, updated_at
	FROM transactions
	WHERE user_id = $1
	  AND category_id IS NULL
	  AND deleted_at IS NULL
	ORDER BY transaction_date, id
	LIMIT $2;`

	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("error querying uncategorized transactions: %w", err)
	}
	defer rows.Close()

	var txs []transaction.Transaction
	for rows.Next() {
		var (
			tx                    transaction.Transaction
			fitID, merchant, memo *string
			amount                string
		)
		if err := rows.Scan(
			&tx.ID, &tx.UserID, &tx.AccountID, &fitID, &amount, &tx.Currency,
			&tx.Date, &tx.Description, &merchant, &memo, &tx.Tags,
			&tx.CreatedAt, &tx.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("error scanning transaction: %w", err)
		}
		tx.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("error parsing amount %q: %w", amount, err)
		}
		tx.FitID = deref(fitID)
		tx.MerchantName = deref(merchant)
		tx.Memo = deref(memo)
		tx.Currency = strings.TrimSpace(tx.Currency)
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over transactions: %w", err)
	}

	return txs, nil
}

// AssignCategory sets the category on a non-deleted transaction owned by the
// user.
func (r *PostgresTransactionRepository) AssignCategory(ctx context.Context, userID, transactionID, categoryID string) error {
	query := `
	UPDATE transactions
	SET category_id = $1,
	    updated_at = $2
	WHERE id = $3
	  AND user_id = $4
	  AND deleted_at IS NULL;`

	tag, err := r.pool.Exec(ctx, query, categoryID, time.Now().UTC(), transactionID, userID)
	if err != nil {
		return classifyError(err)
	}
	if tag.RowsAffected() == 0 {
		return commonErrors.NewNotFoundError("transaction not found")
	}
	return nil
}

// SQLSTATE class 23 (integrity constraint violation) codes
const (
	pgNotNullViolation    = "23502"
	pgForeignKeyViolation = "23503"
	pgUniqueViolation     = "23505"
	pgCheckViolation      = "23514"
)

// classifyError maps a driver error onto the import error taxonomy. The
// mapping is keyed on SQLSTATE and constraint names, never on message text.
func classifyError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case pgUniqueViolation:
		return &transaction.ConstraintError{
			Kind:       transaction.ConstraintDuplicateKey,
			Constraint: pgErr.ConstraintName,
			Err:        err,
		}
	case pgForeignKeyViolation:
		kind := transaction.ConstraintForeignKey
		switch {
		case strings.Contains(pgErr.ConstraintName, "account"):
			kind = transaction.ConstraintInvalidAccount
		case strings.Contains(pgErr.ConstraintName, "category"):
			kind = transaction.ConstraintInvalidCategory
		}
		return &transaction.ConstraintError{
			Kind:       kind,
			Constraint: pgErr.ConstraintName,
			Err:        err,
		}
	case pgNotNullViolation:
		return &transaction.ConstraintError{
			Kind:       transaction.ConstraintMissingField,
			Constraint: pgErr.ColumnName,
			Err:        err,
		}
	case pgCheckViolation:
		return &transaction.ConstraintError{
			Kind:       transaction.ConstraintCheckViolation,
			Constraint: pgErr.ConstraintName,
			Err:        err,
		}
	}

	if strings.HasPrefix(pgErr.Code, "23") {
		return &transaction.ConstraintError{
			Kind:       transaction.ConstraintGeneric,
			Constraint: pgErr.ConstraintName,
			Err:        err,
		}
	}

	return err
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func tags(t []string) []string {
	if t == nil {
		return []string{}
	}
	return t
}
