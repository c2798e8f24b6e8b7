package transaction

import (
	"time"

	"github.com/shopspring/decimal"
)

// Candidate represents one incoming statement transaction before persistence.
// Candidates come from a statement feed (CSV export, OFX download) and carry
// whatever the feed supplied; normalization fills the rest.
type Candidate struct {
	ID           string          `json:"id,omitempty"`
	UserID       string          `json:"userId"`
	AccountID    string          `json:"accountId"`
	FitID        string          `json:"fitId,omitempty"` // stable identifier from the feed, may be empty
	Amount       decimal.Decimal `json:"amount"`
	Date         time.Time       `json:"date"`
	Description  string          `json:"description"`
	MerchantName string          `json:"merchantName,omitempty"`
	Memo         string          `json:"memo,omitempty"`
	Tags         []string        `json:"tags,omitempty"`
	Currency     string          `json:"currency,omitempty"`
	CreatedAt    time.Time       `json:"createdAt,omitempty"`
	UpdatedAt    time.Time       `json:"updatedAt,omitempty"`
}

// Transaction represents a persisted ledger transaction
type Transaction struct {
	ID           string          `json:"id"`
	UserID       string          `json:"userId"`
	AccountID    string          `json:"accountId"`
	CategoryID   string          `json:"categoryId,omitempty"`
	FitID        string          `json:"fitId,omitempty"`
	Amount       decimal.Decimal `json:"amount"`
	Date         time.Time       `json:"date"`
	Description  string          `json:"description"`
	MerchantName string          `json:"merchantName,omitempty"`
	Memo         string          `json:"memo,omitempty"`
	Tags         []string        `json:"tags,omitempty"`
	Currency     string          `json:"currency"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
	DeletedAt    *time.Time      `json:"deletedAt,omitempty"`
}

// Deleted reports whether the transaction is soft-deleted. Deleted rows never
// participate in duplicate comparisons.
func (t *Transaction) Deleted() bool {
	return t.DeletedAt != nil
}

// ImportResult represents the aggregate outcome of one import batch
type ImportResult struct {
	ImportID   string   `json:"importId"`
	Total      int      `json:"total"`
	Created    int      `json:"created"`
	Skipped    int      `json:"skipped"`
	CreatedIDs []string `json:"createdIds,omitempty"`
	Duplicates []string `json:"duplicates,omitempty"`
	Errors     []string `json:"errors,omitempty"`
}

// PreviewItem is the suggested categorization for a single candidate
type PreviewItem struct {
	Index             int     `json:"index"`
	Description       string  `json:"description"`
	MerchantName      string  `json:"merchantName,omitempty"`
	CategoryID        string  `json:"categoryId,omitempty"`
	CategoryName      string  `json:"categoryName,omitempty"`
	Confidence        float64 `json:"confidence,omitempty"`
	Method            string  `json:"method,omitempty"`
	WillBeCategorized bool    `json:"willBeCategorized"`
}

// PreviewResult represents a dry-run categorization over a candidate batch
type PreviewResult struct {
	Total          int           `json:"total"`
	WillCategorize int           `json:"willCategorize"`
	SuccessRate    float64       `json:"successRate"`
	Items          []PreviewItem `json:"items"`
}
