package repository

import (
	"context"

	"gorm.io/gorm"
)

type txKey struct{}

// withTxContext returns a context carrying the given transaction handle.
// Every gorm-backed gateway resolves its handle through DBFromContext, so
// a registry or stock call made inside a repository transaction joins it
// automatically.
func withTxContext(ctx context.Context, tx *gorm.DB) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// DBFromContext returns the transaction bound to ctx, or fallback when the
// call happens outside any transaction.
func DBFromContext(ctx context.Context, fallback *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return fallback.WithContext(ctx)
}
