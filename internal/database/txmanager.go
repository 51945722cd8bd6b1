package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"gorm.io/gorm"
)

// TxManager opens and closes the database transaction around a unit of
// work. It is the only place commits and rollbacks happen for order
// mutations; service methods never commit themselves.
type TxManager struct {
	db        *gorm.DB
	isolation sql.IsolationLevel
}

// NewTxManager creates a TxManager that begins transactions at
// read-committed isolation unless overridden per call.
func NewTxManager(db *gorm.DB) *TxManager {
	return &TxManager{
		db:        db,
		isolation: sql.LevelReadCommitted,
	}
}

// TxOption configures a single Transactional call.
type TxOption func(*txOptions)

type txOptions struct {
	isolation sql.IsolationLevel
}

// WithIsolation overrides the isolation level for one unit of work.
func WithIsolation(level sql.IsolationLevel) TxOption {
	return func(o *txOptions) {
		o.isolation = level
	}
}

// Transactional runs fn inside exactly one database transaction.
//
// If the context already carries an ambient transaction (a nested
// service call), fn joins it and commit/rollback remain with the
// outermost caller, so nested mutating calls form one atomic unit.
// Otherwise a new transaction is begun, installed into the context for
// the duration of fn, committed when fn returns nil and rolled back
// when fn returns an error or panics.
func (m *TxManager) Transactional(ctx context.Context, fn func(ctx context.Context) error, opts ...TxOption) error {
	if _, ok := TxFromContext(ctx); ok {
		return fn(ctx)
	}

	o := txOptions{isolation: m.isolation}
	for _, opt := range opts {
		opt(&o)
	}

	tx := m.db.WithContext(ctx).Begin(m.beginOptions(o.isolation))
	if tx.Error != nil {
		return fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}

	var finished bool
	defer func() {
		if !finished {
			// Reached only when fn panicked; roll back before the
			// panic continues up the stack.
			if err := tx.Rollback().Error; err != nil {
				log.Printf("Failed to roll back transaction after panic: %v", err)
			}
		}
	}()

	if err := fn(ContextWithTx(ctx, tx)); err != nil {
		finished = true
		if rbErr := tx.Rollback().Error; rbErr != nil {
			log.Printf("Failed to roll back transaction: %v", rbErr)
		}
		return err
	}

	finished = true
	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("transaction commit failed: %w", err)
	}
	return nil
}

// beginOptions maps the requested isolation level to driver options.
// sqlite rejects explicit isolation levels, so it keeps the driver
// default there.
func (m *TxManager) beginOptions(level sql.IsolationLevel) *sql.TxOptions {
	if m.db.Dialector.Name() == "sqlite" {
		return &sql.TxOptions{}
	}
	return &sql.TxOptions{Isolation: level}
}
