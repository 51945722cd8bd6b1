package database

import (
	"context"

	"gorm.io/gorm"
)

// txKey is the context key under which the ambient transaction travels.
// An unexported struct type cannot collide with keys from other packages.
type txKey struct{}

// ContextWithTx returns a child context carrying tx as the ambient
// transaction for the current unit of work. The parent context is left
// untouched, so the installation unwinds naturally when the child
// context goes out of scope.
func ContextWithTx(ctx context.Context, tx *gorm.DB) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// TxFromContext returns the ambient transaction installed by a
// surrounding Transactional call, or false if none is active.
func TxFromContext(ctx context.Context) (*gorm.DB, bool) {
	tx, ok := ctx.Value(txKey{}).(*gorm.DB)
	return tx, ok
}

// Conn resolves the connection a data-access call should run on: the
// ambient transaction when one is active, the base handle otherwise.
// Every repository routes its queries through this, which is what makes
// all reads and writes of a unit of work land in the same transaction
// without passing it explicitly.
func Conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := TxFromContext(ctx); ok {
		return tx
	}
	return db.WithContext(ctx)
}
