package repository

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/finbook/finbook/internal/domain/category"
	"github.com/finbook/finbook/internal/domain/transaction"
)

// Factory creates repository instances
type Factory struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

// NewFactory creates a new repository factory
func NewFactory(pool *pgxpool.Pool, log *zap.Logger) *Factory {
	return &Factory{
		pool: pool,
		log:  log,
	}
}

// TransactionRepository returns an implementation of the
// transaction.Repository interface
func (f *Factory) TransactionRepository() transaction.Repository {
	return NewPostgresTransactionRepository(f.pool, f.log)
}

// CategoryRepository returns an implementation of the category.Repository
// interface
func (f *Factory) CategoryRepository() category.Repository {
	return NewPostgresCategoryRepository(f.pool, f.log)
}
