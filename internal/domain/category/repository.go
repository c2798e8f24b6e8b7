package category

import (
	"context"
)

// Repository defines the interface for category lookups. Category CRUD is
// owned elsewhere; the matcher only reads.
type Repository interface {
	// List active categories visible to the user: system-wide plus their own
	ListActive(ctx context.Context, userID string) ([]Category, error)
}
