package transaction

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// SignatureEpsilon is the amount tolerance for signature-based duplicate
// comparison, in currency units.
var SignatureEpsilon = decimal.RequireFromString("0.01")

// SignatureQuery describes a signature lookup for one candidate: same user
// and account, amount within SignatureEpsilon, exact date, description equal
// after trimming and case-folding.
type SignatureQuery struct {
	UserID      string
	AccountID   string
	Amount      decimal.Decimal
	Date        time.Time
	Description string // already trimmed and case-folded
}

// Repository defines the interface for ledger transaction data operations.
// All lookups see only non-deleted rows.
type Repository interface {
	// Insert a single transaction row
	Create(ctx context.Context, tx *Transaction) error

	// Find which of the given normalized FitIDs already exist for the user
	FindActiveFitIDs(ctx context.Context, userID string, normalizedFitIDs []string) (map[string]struct{}, error)

	// Report whether a row matching the signature exists
	ExistsBySignature(ctx context.Context, q SignatureQuery) (bool, error)

	// List non-deleted transactions without an assigned category
	ListUncategorized(ctx context.Context, userID string, limit int) ([]Transaction, error)

	// Assign a category to an existing transaction
	AssignCategory(ctx context.Context, userID, transactionID, categoryID string) error
}

// ConstraintKind identifies which storage constraint an insert violated
type ConstraintKind string

const (
	ConstraintDuplicateKey    ConstraintKind = "duplicate-key"
	ConstraintInvalidAccount  ConstraintKind = "invalid-account"
	ConstraintInvalidCategory ConstraintKind = "invalid-category"
	ConstraintForeignKey      ConstraintKind = "foreign-key"
	ConstraintMissingField    ConstraintKind = "missing-field"
	ConstraintCheckViolation  ConstraintKind = "check-violation"
	ConstraintGeneric         ConstraintKind = "generic"
)

// ConstraintError is returned by Repository.Create when the store rejects a
// row. The importer recovers it per-record; anything else aborts the batch.
type ConstraintError struct {
	Kind       ConstraintKind
	Constraint string // constraint or column name when the store reports one
	Err        error
}

func (e *ConstraintError) Error() string {
	if e.Constraint != "" {
		return fmt.Sprintf("constraint violation (%s, %s): %v", e.Kind, e.Constraint, e.Err)
	}
	return fmt.Sprintf("constraint violation (%s): %v", e.Kind, e.Err)
}

func (e *ConstraintError) Unwrap() error {
	return e.Err
}

// Reason returns a short human-readable cause for import error reporting
func (e *ConstraintError) Reason() string {
	switch e.Kind {
	case ConstraintDuplicateKey:
		return "duplicate record"
	case ConstraintInvalidAccount:
		return "account does not exist"
	case ConstraintInvalidCategory:
		return "category does not exist"
	case ConstraintForeignKey:
		return "referenced record does not exist"
	case ConstraintMissingField:
		return "missing required field"
	case ConstraintCheckViolation:
		return "value rejected by storage rules"
	default:
		return "storage rejected the record"
	}
}
