package repository

import (
	"context"
	"time"

	ctxutil "github.com/Payphone-Digital/socialhub/pkg/context"
	"github.com/Payphone-Digital/socialhub/pkg/logger"
	"gorm.io/gorm"
)

const moduleName = "repository"

// Store hands out repositories bound to one gorm handle, either the pool or
// an open transaction.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Users() *UserRepository {
	return NewUserRepository(s.db)
}

func (s *Store) Pending() *UnconfirmedUserRepository {
	return NewUnconfirmedUserRepository(s.db)
}

func (s *Store) Sessions() *RefreshTokenRepository {
	return NewRefreshTokenRepository(s.db)
}

// Transaction runs fn with a Store whose repositories share one transaction.
// Returning an error (or panicking) from fn rolls everything back.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	ctx = ctxutil.WithFunction(ctx, moduleName, "Transaction")
	start := time.Now()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})

	if err != nil {
		logger.DebugWithContext(ctx, "Transaction rolled back").
			Duration(time.Since(start)).
			Err(err).
			Log()
		return err
	}

	logger.DebugWithContext(ctx, "Transaction committed").
		Duration(time.Since(start)).
		Log()
	return nil
}

func withFunction(ctx context.Context, function string) context.Context {
	return ctxutil.WithFunction(ctx, moduleName, function)
}
