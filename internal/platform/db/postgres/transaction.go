package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

type txContextKey struct{}

// txStarter は *pgxpool.Pool と pgxmock が満たすトランザクション開始インターフェースです。
type txStarter interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// TransactionManager は pgx のトランザクションをコンテキスト経由でリポジトリへ渡します。
// 既にトランザクションを持つコンテキストでは新たに開始せず、外側のものを再利用します。
type TransactionManager struct {
	pool   txStarter
	logger *zap.Logger
}

// TransactionOption は TransactionManager の任意設定です。
type TransactionOption func(*TransactionManager)

// WithTxLogger はロールバック失敗などを記録するロガーを設定します。
func WithTxLogger(l *zap.Logger) TransactionOption {
	return func(m *TransactionManager) {
		if l != nil {
			m.logger = l.Named("tx")
		}
	}
}

// NewTransactionManager は TransactionManager を生成します。pool が nil の場合は nil を返し、
// その場合の WithinReadOnly / WithinReadWrite はトランザクションなしで fn を実行します。
func NewTransactionManager(pool txStarter, opts ...TransactionOption) *TransactionManager {
	if pool == nil {
		return nil
	}
	m := &TransactionManager{pool: pool, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// WithinReadOnly は読み取り専用トランザクション内で fn を実行します。
func (m *TransactionManager) WithinReadOnly(ctx context.Context, fn func(context.Context) error) error {
	return m.run(ctx, pgx.ReadOnly, fn)
}

// WithinReadWrite は読み書きトランザクション内で fn を実行します。
func (m *TransactionManager) WithinReadWrite(ctx context.Context, fn func(context.Context) error) error {
	return m.run(ctx, pgx.ReadWrite, fn)
}

func (m *TransactionManager) run(ctx context.Context, mode pgx.TxAccessMode, fn func(context.Context) error) (err error) {
	if fn == nil {
		return fmt.Errorf("postgres: transaction function is required")
	}
	if m == nil {
		return fn(ctx)
	}
	if _, ok := txFromContext(ctx); ok {
		return fn(ctx)
	}

	tx, err := m.pool.BeginTx(ctx, pgx.TxOptions{AccessMode: mode})
	if err != nil {
		return fmt.Errorf("postgres: begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			m.rollback(ctx, tx)
			panic(p)
		}
	}()

	if fnErr := fn(context.WithValue(ctx, txContextKey{}, tx)); fnErr != nil {
		if rbErr := m.rollback(ctx, tx); rbErr != nil {
			return errors.Join(fnErr, rbErr)
		}
		return fnErr
	}

	if commitErr := tx.Commit(ctx); commitErr != nil {
		commitErr = fmt.Errorf("postgres: commit: %w", commitErr)
		if rbErr := m.rollback(ctx, tx); rbErr != nil {
			return errors.Join(commitErr, rbErr)
		}
		return commitErr
	}
	return nil
}

// rollback は既に閉じたトランザクションに対するエラーを無視します。
func (m *TransactionManager) rollback(ctx context.Context, tx pgx.Tx) error {
	err := tx.Rollback(ctx)
	if err == nil || errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	m.logger.Warn("rollback failed", zap.Error(err))
	return fmt.Errorf("postgres: rollback: %w", err)
}

func txFromContext(ctx context.Context) (pgx.Tx, bool) {
	if ctx == nil {
		return nil, false
	}
	tx, ok := ctx.Value(txContextKey{}).(pgx.Tx)
	return tx, ok
}

// QueryerFromContext はコンテキスト内のトランザクションを返し、なければ fallback を返します。
func QueryerFromContext(ctx context.Context, fallback Queryer) Queryer {
	if tx, ok := txFromContext(ctx); ok {
		return tx
	}
	return fallback
}

// Queryer は pgx.Tx と *pgxpool.Pool に共通するクエリ実行インターフェースです。
type Queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}
