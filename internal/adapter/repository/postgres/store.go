package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/srgjo27/bookingcore/internal/core/ports"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

type Store struct {
	db          *sql.DB
	lockTimeout time.Duration
	repos
}

func NewStore(db *sql.DB, lockTimeout time.Duration) *Store {
	return &Store{
		db:          db,
		lockTimeout: lockTimeout,
		repos:       repos{q: db},
	}
}

// WithinTx runs fn in one transaction. Every lock taken inside it waits at
// most lockTimeout before the statement fails with ErrLockTimeout.
func (s *Store) WithinTx(ctx context.Context, fn func(repos ports.Repositories) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return mapError("begin transaction", err)
	}

	defer tx.Rollback()

	if s.lockTimeout > 0 {
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.lockTimeout.Milliseconds())
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return mapError("set lock timeout", err)
		}
	}

	if err := fn(repos{q: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return mapError("commit transaction", err)
	}

	return nil
}

type repos struct {
	q DBTX
}

func (r repos) Events() ports.EventRepository       { return NewEventRepository(r.q) }
func (r repos) Bookings() ports.BookingRepository   { return NewBookingRepository(r.q) }
func (r repos) Orders() ports.OrderRepository       { return NewOrderRepository(r.q) }
func (r repos) Grants() ports.AccessGrantRepository { return NewAccessGrantRepository(r.q) }

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

func uuidPtr(n uuid.NullUUID) *uuid.UUID {
	if !n.Valid {
		return nil
	}
	id := n.UUID
	return &id
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	t := n.Time
	return &t
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
