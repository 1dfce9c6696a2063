package repositories

import (
	"context"
	"database/sql"
	"errors"
	"math/rand"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Postgres SQLSTATEs after which the whole transaction may simply be run again.
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// DefaultTxAttempts bounds how often a transaction is run when Postgres
// aborts it with a serialization failure or a deadlock.
const DefaultTxAttempts = 3

// Tx exposes repositories bound to one open transaction.
type Tx struct {
	Products ProductRepository
	Carts    CartRepository
	Orders   OrderRepository
}

// Store runs units of work inside a single database transaction.
type Store struct {
	db        *gorm.DB
	isolation sql.IsolationLevel
	attempts  int
	backoff   time.Duration
}

// NewStore creates a Store whose transactions run at repeatable read and are
// retried up to DefaultTxAttempts times on serialization failures.
func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:        db,
		isolation: sql.LevelRepeatableRead,
		attempts:  DefaultTxAttempts,
		backoff:   10 * time.Millisecond,
	}
}

// Transaction runs fn in a transaction. It commits when fn returns nil and
// rolls back every write made through tx otherwise. When the database
// aborts the transaction as a serialization failure, fn runs again in a
// fresh transaction, so fn must not keep state across calls.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Tx) error) error {
	var err error
	for attempt := 1; ; attempt++ {
		err = s.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
			return fn(&Tx{
				Products: NewGORMProductRepository(db),
				Carts:    NewGORMCartRepository(db),
				Orders:   NewGORMOrderRepository(db),
			})
		}, &sql.TxOptions{Isolation: s.isolation})
		if err == nil || !IsRetryable(err) || attempt >= s.attempts {
			return err
		}

		// Jittered so that colliding buyers do not collide again.
		wait := s.backoff*time.Duration(attempt) + time.Duration(rand.Int63n(int64(s.backoff)+1))
		select {
		case <-ctx.Done():
			return errors.Join(err, ctx.Err())
		case <-time.After(wait):
		}
	}
}

// IsRetryable reports whether err is a Postgres serialization failure or
// deadlock, after which the transaction can be run again from the start.
func IsRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgSerializationFailure || pgErr.Code == pgDeadlockDetected
}
