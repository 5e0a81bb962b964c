package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type contextKey string

const txKey contextKey = "gorm_tx"

// TransactionManager manages database transactions via context injection.
// Calling RunInTx with a context that already carries a transaction opens a
// savepoint inside it: a failing fn rolls back only its own writes.
type TransactionManager interface {
	RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error
	// CaptureWatermark waits until no outermost transaction is open and reads
	// now while new ones are held back. Rows stamped by a transaction that is
	// still uncommitted therefore always carry a time after the watermark.
	CaptureWatermark(ctx context.Context, now func() time.Time) (time.Time, error)
}

// syncBarrier is the advisory lock every outermost transaction holds shared
// and CaptureWatermark takes exclusively.
const syncBarrier = "sync_watermark"

type transactionManager struct {
	db *gorm.DB
}

func NewTransactionManager(db *gorm.DB) TransactionManager {
	return &transactionManager{db: db}
}

func (t *transactionManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	_, nested := ctx.Value(txKey).(*gorm.DB)
	return GetDB(ctx, t.db).Transaction(func(tx *gorm.DB) error {
		if !nested && t.advisoryLocks() {
			if err := tx.Exec("SELECT pg_advisory_xact_lock_shared(hashtext(?))", syncBarrier).Error; err != nil {
				return err
			}
		}
		txCtx := context.WithValue(ctx, txKey, tx)
		return fn(txCtx)
	})
}

func (t *transactionManager) CaptureWatermark(ctx context.Context, now func() time.Time) (time.Time, error) {
	// SQLite runs one writer at a time and has no advisory locks.
	if !t.advisoryLocks() {
		return now(), nil
	}
	var at time.Time
	err := t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", syncBarrier).Error; err != nil {
			return err
		}
		at = now()
		return nil
	})
	return at, err
}

func (t *transactionManager) advisoryLocks() bool {
	return t.db.Dialector.Name() == "postgres"
}

// GetDB extracts the transaction DB from context if present, otherwise returns root DB.
func GetDB(ctx context.Context, rootDB *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey).(*gorm.DB); ok {
		return tx.WithContext(ctx)
	}
	return rootDB.WithContext(ctx)
}

// onConflictIDDoNothing turns an insert into insert-or-ignore keyed on the
// primary key. Conflicts on any other unique column still fail.
var onConflictIDDoNothing = clause.OnConflict{
	Columns:   []clause.Column{{Name: "id"}},
	DoNothing: true,
}

// IsNotFound reports whether err means the row does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// IsDuplicate reports whether err is a unique constraint violation.
func IsDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
