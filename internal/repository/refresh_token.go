package repository

import (
	"context"
	"time"

	"github.com/Payphone-Digital/socialhub/internal/model"
	"github.com/Payphone-Digital/socialhub/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RefreshTokenRepository is the session store
type RefreshTokenRepository struct {
	db *gorm.DB
}

func NewRefreshTokenRepository(db *gorm.DB) *RefreshTokenRepository {
	return &RefreshTokenRepository{db: db}
}

func (r *RefreshTokenRepository) Create(ctx context.Context, token *model.RefreshToken) error {
	ctx = withFunction(ctx, "CreateSession")

	start := time.Now()
	err := r.db.WithContext(ctx).Omit(clause.Associations).Create(token).Error
	duration := time.Since(start)

	if err != nil {
		logger.ErrorWithContext(ctx, "Failed to store refresh session").
			Uint("user_id", token.UserID).
			Duration(duration).
			Err(err).
			Log()
		return err
	}

	logger.DebugWithContext(ctx, "Refresh session stored").
		Uint("session_id", token.ID).
		Uint("user_id", token.UserID).
		Duration(duration).
		Log()

	return nil
}

// FindActive loads every session that is neither revoked nor expired at now
func (r *RefreshTokenRepository) FindActive(ctx context.Context, now time.Time) ([]model.RefreshToken, error) {
	return r.find(withFunction(ctx, "FindActiveSessions"),
		r.db.Where("revoked_at IS NULL AND expires_at >= ?", now))
}

// FindUnrevoked loads every session that has not been revoked, expired or not
func (r *RefreshTokenRepository) FindUnrevoked(ctx context.Context) ([]model.RefreshToken, error) {
	return r.find(withFunction(ctx, "FindUnrevokedSessions"),
		r.db.Where("revoked_at IS NULL"))
}

// FindRevokedUnexpired loads sessions already consumed but still inside their
// lifetime. A match against one of these means a secret was replayed.
func (r *RefreshTokenRepository) FindRevokedUnexpired(ctx context.Context, now time.Time) ([]model.RefreshToken, error) {
	return r.find(withFunction(ctx, "FindRevokedSessions"),
		r.db.Where("revoked_at IS NOT NULL AND expires_at >= ?", now))
}

// ListByUser returns all sessions of one user, newest first
func (r *RefreshTokenRepository) ListByUser(ctx context.Context, userID uint) ([]model.RefreshToken, error) {
	return r.find(withFunction(ctx, "ListUserSessions"),
		r.db.Where("user_id = ?", userID).Order("id DESC"))
}

func (r *RefreshTokenRepository) find(ctx context.Context, query *gorm.DB) ([]model.RefreshToken, error) {
	start := time.Now()
	var tokens []model.RefreshToken

	err := query.WithContext(ctx).Order("id").Find(&tokens).Error
	duration := time.Since(start)

	if err != nil {
		logger.ErrorWithContext(ctx, "Failed to load refresh sessions").
			Duration(duration).
			Err(err).
			Log()
		return nil, err
	}

	logger.DebugWithContext(ctx, "Refresh sessions loaded").
		Int("count", len(tokens)).
		Duration(duration).
		Log()

	return tokens, nil
}

// Revoke marks one session revoked if nobody else has. It returns false when
// the row was already revoked, which is how a lost rotation race shows up.
func (r *RefreshTokenRepository) Revoke(ctx context.Context, id uint, at time.Time) (bool, error) {
	ctx = withFunction(ctx, "RevokeSession")

	start := time.Now()
	result := r.db.WithContext(ctx).
		Model(&model.RefreshToken{}).
		Where("id = ? AND revoked_at IS NULL", id).
		Update("revoked_at", at)
	duration := time.Since(start)

	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to revoke refresh session").
			Uint("session_id", id).
			Duration(duration).
			Err(result.Error).
			Log()
		return false, result.Error
	}

	logger.DebugWithContext(ctx, "Refresh session revoke attempted").
		Uint("session_id", id).
		Int64("rows_affected", result.RowsAffected).
		Duration(duration).
		Log()

	return result.RowsAffected == 1, nil
}

// RevokeAllForUser revokes every still-open session of a user
func (r *RefreshTokenRepository) RevokeAllForUser(ctx context.Context, userID uint, at time.Time) (int64, error) {
	ctx = withFunction(ctx, "RevokeAllSessions")

	start := time.Now()
	result := r.db.WithContext(ctx).
		Model(&model.RefreshToken{}).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Update("revoked_at", at)

	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to revoke user sessions").
			Uint("user_id", userID).
			Duration(time.Since(start)).
			Err(result.Error).
			Log()
		return 0, result.Error
	}

	logger.WarnWithContext(ctx, "All refresh sessions revoked for user").
		Uint("user_id", userID).
		Int64("rows_affected", result.RowsAffected).
		Log()

	return result.RowsAffected, nil
}
