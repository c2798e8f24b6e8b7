package transaction

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/finbook/finbook/internal/domain/errors"
)

// DefaultCurrency is used when the statement feed does not carry one
const DefaultCurrency = "USD"

// Normalizer prepares a candidate for persistence: fills defaults, trims
// identifiers and rejects structurally invalid records.
type Normalizer struct {
	log *zap.Logger
}

// NewNormalizer creates a new Normalizer
func NewNormalizer(log *zap.Logger) *Normalizer {
	return &Normalizer{log: log}
}

// Normalize converts a candidate into a transaction ready for insert.
// Returns a validation error when the account is missing or the description
// is empty after trimming.
func (n *Normalizer) Normalize(c Candidate, userID string) (*Transaction, error) {
	if c.AccountID == "" {
		return nil, errors.NewValidationError("transaction must have an account")
	}

	description := strings.TrimSpace(c.Description)
	if description == "" {
		return nil, errors.NewValidationError("transaction must have a description")
	}

	tx := &Transaction{
		ID:           c.ID,
		UserID:       userID,
		AccountID:    c.AccountID,
		Amount:       c.Amount,
		Date:         c.Date,
		Description:  description,
		MerchantName: strings.TrimSpace(c.MerchantName),
		Memo:         c.Memo,
		Tags:         c.Tags,
		Currency:     c.Currency,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}

	if tx.ID == "" {
		tx.ID = uuid.New().String()
	}

	// An all-whitespace FitID is the same as no FitID, so downstream dedup
	// never sees an empty-string identifier.
	if fitID := strings.TrimSpace(c.FitID); fitID != "" {
		tx.FitID = fitID
	}

	now := time.Now().UTC()
	if tx.Date.IsZero() {
		tx.Date = now
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = now
	}
	if tx.UpdatedAt.IsZero() {
		tx.UpdatedAt = now
	}
	if tx.Currency == "" {
		tx.Currency = DefaultCurrency
	}

	// Zero amounts are unusual but legitimate (fee reversals, voided holds).
	if tx.Amount.IsZero() {
		n.log.Warn("transaction has zero amount",
			zap.String("transactionId", tx.ID),
			zap.String("description", tx.Description))
	}

	return tx, nil
}

// NormalizeFitID folds an external identifier for duplicate comparison.
// The original casing and whitespace are preserved everywhere else.
func NormalizeFitID(fitID string) string {
	return strings.ToLower(strings.TrimSpace(fitID))
}

// NormalizeDescription folds a description for signature comparison
func NormalizeDescription(description string) string {
	return strings.ToLower(strings.TrimSpace(description))
}
