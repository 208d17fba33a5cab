package repositories

import (
	"context"

	"gorm.io/gorm"
)

type txKey struct{}

// TxRunner executes a function inside one database transaction. Repository
// calls made with the context it passes to fn join that transaction.
type TxRunner interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// gormTxRunner implements TxRunner on a gorm connection
type gormTxRunner struct {
	db *gorm.DB
}

// NewTxRunner creates a TxRunner backed by the given connection
func NewTxRunner(db *gorm.DB) TxRunner {
	return &gormTxRunner{db: db}
}

// Transaction runs fn inside a transaction; any error rolls the whole unit
// back.
func (r *gormTxRunner) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// dbFrom returns the transaction carried by ctx, or the repository's own
// connection when no transaction is open.
func dbFrom(ctx context.Context, fallback *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok && tx != nil {
		return tx
	}
	return fallback
}
