package category

import (
	"time"
)

// Type classifies a category. The type system rules out invalid values that
// a free-form string would allow.
type Type string

const (
	TypeIncome   Type = "income"
	TypeExpense  Type = "expense"
	TypeTransfer Type = "transfer"
)

// Valid reports whether t is one of the enumerated category types
func (t Type) Valid() bool {
	switch t {
	case TypeIncome, TypeExpense, TypeTransfer:
		return true
	}
	return false
}

// Category represents a spending classification target. UserID is empty for
// system-wide categories, which are read-only for the import pipeline.
type Category struct {
	ID               string    `json:"id"`
	UserID           string    `json:"userId,omitempty"` // empty = system-wide
	Name             string    `json:"name"`
	Type             Type      `json:"type"`
	IsActive         bool      `json:"isActive"`
	Keywords         []string  `json:"keywords,omitempty"`
	MerchantPatterns []string  `json:"merchantPatterns,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// System reports whether the category is system-wide
func (c *Category) System() bool {
	return c.UserID == ""
}

// Method identifies how a merchant name matched a category term
type Method string

const (
	MethodKeywordExact    Method = "keyword-exact"
	MethodKeywordContains Method = "keyword-contains"
	MethodKeywordFuzzy    Method = "keyword-fuzzy"
	MethodPatternExact    Method = "pattern-exact"
	MethodPatternContains Method = "pattern-contains"
	MethodPatternFuzzy    Method = "pattern-fuzzy"
)

// Match represents the best category found for a merchant name
type Match struct {
	CategoryID   string  `json:"categoryId"`
	CategoryName string  `json:"categoryName"`
	MatchedText  string  `json:"matchedText"`
	Confidence   float64 `json:"confidence"` // 0..1
	Method       Method  `json:"method"`
}

// MethodStats aggregates matching outcomes for one method
type MethodStats struct {
	BestScore    float64 `json:"bestScore"`
	Count        int     `json:"count"`
	BestCategory string  `json:"bestCategory"`
}

// MatchingStats reports per-method outcomes for one merchant name, used for
// diagnostics and rule tuning rather than for the match decision itself.
type MatchingStats map[Method]*MethodStats
