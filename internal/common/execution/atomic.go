package execution

import (
	"context"
	"fmt"
	"time"

	"github.com/SwiftFiat/SwiftFiat-Cards/services/monitoring/logging"
	"github.com/sirupsen/logrus"
)

type TxOptions struct {
	Timeout  time.Duration
	ReadOnly bool
}

// Tx is an open transaction. Its context must be used for every store call
// that should take part in the transaction.
type Tx interface {
	Context() context.Context
}

// TransactionManager opens and ends transactions for the Atomic decorator.
// MarkRollbackOnly ends the transaction without applying its writes.
type TransactionManager interface {
	Begin(ctx context.Context, opts TxOptions) (Tx, error)
	Commit(tx Tx) error
	MarkRollbackOnly(tx Tx) error
}

// Atomic runs next inside a transaction. On success the transaction is
// committed exactly once; on failure it is marked rollback-only and next's
// error is returned unchanged.
func Atomic[In, Out any](manager TransactionManager, opts TxOptions, log *logging.Logger) Decorator[In, Out] {
	if log == nil {
		log = logging.NewDiscardLogger()
	}
	return func(name string, next Handler[In, Out]) Handler[In, Out] {
		return func(ctx context.Context, in In) (Out, error) {
			var zero Out
			tx, err := manager.Begin(ctx, opts)
			if err != nil {
				return zero, fmt.Errorf("%s: begin transaction: %w", name, err)
			}

			rollback := func() {
				if rbErr := manager.MarkRollbackOnly(tx); rbErr != nil {
					log.WithFields(logrus.Fields{
						"operation": name,
						"error":     rbErr,
					}).Error("rollback failed")
				}
			}
			defer func() {
				if r := recover(); r != nil {
					rollback()
					panic(r)
				}
			}()

			out, err := next(tx.Context(), in)
			if err != nil {
				rollback()
				return zero, err
			}

			if err := manager.Commit(tx); err != nil {
				return zero, fmt.Errorf("%s: commit transaction: %w", name, err)
			}
			return out, nil
		}
	}
}

// NoopTransactionManager only enforces the timeout. It backs stores that
// have no transactions of their own.
type NoopTransactionManager struct{}

type noopTx struct {
	ctx    context.Context
	cancel context.CancelFunc
}

func (t *noopTx) Context() context.Context { return t.ctx }

func (NoopTransactionManager) Begin(ctx context.Context, opts TxOptions) (Tx, error) {
	if opts.Timeout > 0 {
		txCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
		return &noopTx{ctx: txCtx, cancel: cancel}, nil
	}
	return &noopTx{ctx: ctx, cancel: func() {}}, nil
}

func (NoopTransactionManager) Commit(tx Tx) error {
	t, ok := tx.(*noopTx)
	if !ok {
		return fmt.Errorf("unexpected transaction type %T", tx)
	}
	defer t.cancel()
	return t.ctx.Err()
}

func (NoopTransactionManager) MarkRollbackOnly(tx Tx) error {
	if t, ok := tx.(*noopTx); ok {
		t.cancel()
	}
	return nil
}
