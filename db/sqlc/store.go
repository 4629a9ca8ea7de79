package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/SwiftFiat/SwiftFiat-Cards/internal/common/execution"
)

type Store struct {
	*Queries
	DB *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		DB:      db,
		Queries: New(db),
	}
}

type txContextKey struct{}

// sqlTx is the handle handed to the Atomic decorator. The *sql.Tx travels in
// its context so repositories can join it through QueriesFor.
type sqlTx struct {
	ctx    context.Context
	cancel context.CancelFunc
	tx     *sql.Tx
}

func (t *sqlTx) Context() context.Context { return t.ctx }

var _ execution.TransactionManager = (*Store)(nil)

func (s *Store) Begin(ctx context.Context, opts execution.TxOptions) (execution.Tx, error) {
	txCtx, cancel := ctx, context.CancelFunc(func() {})
	if opts.Timeout > 0 {
		txCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
	}

	tx, err := s.DB.BeginTx(txCtx, &sql.TxOptions{ReadOnly: opts.ReadOnly})
	if err != nil {
		cancel()
		return nil, err
	}

	handle := &sqlTx{tx: tx, cancel: cancel}
	handle.ctx = context.WithValue(txCtx, txContextKey{}, tx)
	return handle, nil
}

func (s *Store) Commit(tx execution.Tx) error {
	t, ok := tx.(*sqlTx)
	if !ok {
		return fmt.Errorf("unexpected transaction type %T", tx)
	}
	defer t.cancel()
	return t.tx.Commit()
}

func (s *Store) MarkRollbackOnly(tx execution.Tx) error {
	t, ok := tx.(*sqlTx)
	if !ok {
		return fmt.Errorf("unexpected transaction type %T", tx)
	}
	defer t.cancel()
	if err := t.tx.Rollback(); err != nil && err != sql.ErrTxDone {
		return fmt.Errorf("encountered rollback error: %v", err)
	}
	return nil
}

// QueriesFor returns queries bound to the transaction opened by Begin when
// ctx carries one, and the plain pool otherwise.
func (s *Store) QueriesFor(ctx context.Context) *Queries {
	if tx, ok := ctx.Value(txContextKey{}).(*sql.Tx); ok && tx != nil {
		return s.Queries.WithTx(tx)
	}
	return s.Queries
}
