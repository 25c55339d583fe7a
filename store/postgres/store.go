package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/bulkpay"
	"github.com/xraph/bulkpay/paylist"
	bulkpaystore "github.com/xraph/bulkpay/store"
)

// compile-time interface check
var _ bulkpaystore.Store = (*Store)(nil)

// Store implements store.Store using PostgreSQL via Grove ORM.
//
// Credit balances are BIGINT columns, so a single balance is bounded by
// math.MaxInt64.
type Store struct {
	db *grove.DB
	pg *pgdriver.PgDB
}

// New creates a new PostgreSQL store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db: db,
		pg: pgdriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pg)
	if err != nil {
		return fmt.Errorf("bulkpay/postgres: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("bulkpay/postgres: migration failed: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Payment list Store ====================

func (s *Store) CreateList(ctx context.Context, l *paylist.List) error {
	m, err := toListModel(l)
	if err != nil {
		return fmt.Errorf("bulkpay/postgres: create list: %w", err)
	}
	res, err := s.pg.NewInsert(m).
		OnConflict("(id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("bulkpay/postgres: create list: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return bulkpay.ErrListExists
	}
	return nil
}

func (s *Store) GetList(ctx context.Context, listID string) (*paylist.List, error) {
	m := new(listModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", listID).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, bulkpay.ErrListNotFound
		}
		return nil, fmt.Errorf("bulkpay/postgres: get list: %w", err)
	}
	return fromListModel(m)
}

func (s *Store) UpdateList(ctx context.Context, l *paylist.List) error {
	m, err := toListModel(l)
	if err != nil {
		return fmt.Errorf("bulkpay/postgres: update list: %w", err)
	}
	m.UpdatedAt = now()
	res, err := s.pg.NewUpdate(m).WherePK().Exec(ctx)
	if err != nil {
		return fmt.Errorf("bulkpay/postgres: update list: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return bulkpay.ErrListNotFound
	}
	return nil
}

func (s *Store) ListLists(ctx context.Context, opts paylist.ListOpts) ([]*paylist.List, error) {
	var models []listModel
	q := s.pg.NewSelect(&models)

	argIdx := 0
	if opts.Status != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("status = $%d", argIdx), string(opts.Status))
	}
	if opts.Submitter != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("submitter = $%d", argIdx), opts.Submitter)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("created_at ASC, id ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("bulkpay/postgres: list lists: %w", err)
	}

	result := make([]*paylist.List, len(models))
	for i := range models {
		l, err := fromListModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = l
	}
	return result, nil
}

// ==================== Credit Store ====================

func (s *Store) GetCredits(ctx context.Context, account string) (uint64, error) {
	m := new(creditModel)
	err := s.pg.NewSelect(m).
		Where("account = $1", account).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("bulkpay/postgres: get credits: %w", err)
	}
	return uint64(m.Credits), nil
}

// AddCredits upserts the balance in one statement. The WHERE clause on the
// conflict branch refuses an addition that would leave BIGINT range.
func (s *Store) AddCredits(ctx context.Context, account string, n uint64) (uint64, error) {
	if n > math.MaxInt64 {
		return 0, fmt.Errorf("%w: credits of %s", bulkpay.ErrOverflow, account)
	}

	var balance int64
	t := now()
	err := s.pg.NewRaw(`
		INSERT INTO bulkpay_credits (account, credits, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (account) DO UPDATE
		SET credits = bulkpay_credits.credits + EXCLUDED.credits, updated_at = EXCLUDED.updated_at
		WHERE bulkpay_credits.credits <= $4 - EXCLUDED.credits
		RETURNING credits
	`, account, int64(n), t, int64(math.MaxInt64)).Scan(ctx, &balance)
	if err != nil {
		if isNoRows(err) {
			return 0, fmt.Errorf("%w: credits of %s", bulkpay.ErrOverflow, account)
		}
		return 0, fmt.Errorf("bulkpay/postgres: add credits: %w", err)
	}
	return uint64(balance), nil
}

// DebitCredits subtracts n only while the balance covers it, so concurrent
// debits can never drive a balance negative.
func (s *Store) DebitCredits(ctx context.Context, account string, n uint64) (uint64, error) {
	available, err := s.GetCredits(ctx, account)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return available, nil
	}
	if n > math.MaxInt64 || available < n {
		return available, &bulkpay.CreditShortfallError{Account: account, Required: n, Available: available}
	}

	var balance int64
	err = s.pg.NewRaw(`
		UPDATE bulkpay_credits
		SET credits = credits - $1, updated_at = $2
		WHERE account = $3 AND credits >= $1
		RETURNING credits
	`, int64(n), now(), account).Scan(ctx, &balance)
	if err != nil {
		if isNoRows(err) {
			current, getErr := s.GetCredits(ctx, account)
			if getErr != nil {
				return 0, getErr
			}
			return current, &bulkpay.CreditShortfallError{Account: account, Required: n, Available: current}
		}
		return 0, fmt.Errorf("bulkpay/postgres: debit credits: %w", err)
	}
	return uint64(balance), nil
}

// ==================== Helpers ====================

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
