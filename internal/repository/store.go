package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrVersionConflict is returned when a ticket update loses a compare-and-swap.
	ErrVersionConflict = errors.New("repository: version conflict")
	// ErrDuplicate is returned when a unique constraint rejects a write.
	ErrDuplicate = errors.New("repository: duplicate key")
	// ErrReferenced is returned when a delete is blocked by dependent rows.
	ErrReferenced = errors.New("repository: row is still referenced")
)

// Not-found lookups return pgx.ErrNoRows in every Store implementation.

// DBTX is the query surface shared by pgxpool.Pool, pgx.Tx and pgxmock.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Pool is a DBTX that can open transactions.
type Pool interface {
	DBTX
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
}

// Repositories groups the repositories bound to one connection or transaction.
type Repositories struct {
	Organizations OrganizationRepository
	Users         UserRepository
	Tickets       TicketRepository
	Responses     ResponseRepository
	History       TicketHistoryRepository
	Plans         PlanRepository
	Subscriptions SubscriptionRepository
}

// Store is the tenant store. WithinTx commits everything fn wrote, or nothing.
type Store interface {
	Repositories() Repositories
	WithinTx(ctx context.Context, fn func(repos Repositories) error) error
	Ping(ctx context.Context) error
}

// PostgresStore implements Store on a pgx pool.
type PostgresStore struct {
	pool  Pool
	repos Repositories
}

// NewPostgresStore wires repositories onto pool.
func NewPostgresStore(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool, repos: bind(pool)}
}

func bind(db DBTX) Repositories {
	return Repositories{
		Organizations: NewOrganizationRepository(db),
		Users:         NewUserRepository(db),
		Tickets:       NewTicketRepository(db),
		Responses:     NewResponseRepository(db),
		History:       NewTicketHistoryRepository(db),
		Plans:         NewPlanRepository(db),
		Subscriptions: NewSubscriptionRepository(db),
	}
}

// Repositories returns pool-bound repositories for non-transactional reads.
func (s *PostgresStore) Repositories() Repositories {
	return s.repos
}

// WithinTx runs fn inside a single database transaction.
func (s *PostgresStore) WithinTx(ctx context.Context, fn func(repos Repositories) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(bind(tx)); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// translate maps constraint violations onto repository sentinels. A malformed
// id can never match a row, so invalid text input reads as pgx.ErrNoRows.
func translate(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "22P02":
			return fmt.Errorf("%w: %s", pgx.ErrNoRows, pgErr.Message)
		case "23505":
			return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
		case "23503":
			return fmt.Errorf("%w: %s", ErrReferenced, pgErr.ConstraintName)
		}
	}
	return err
}

func normalizeLimit(limit, offset int) (int, int) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
