package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Payphone-Digital/socialhub/internal/model"
	"github.com/Payphone-Digital/socialhub/pkg/logger"
	"gorm.io/gorm"
)

// UnconfirmedUserRepository stores pending registrations
type UnconfirmedUserRepository struct {
	db *gorm.DB
}

func NewUnconfirmedUserRepository(db *gorm.DB) *UnconfirmedUserRepository {
	return &UnconfirmedUserRepository{db: db}
}

func (r *UnconfirmedUserRepository) Create(ctx context.Context, pending *model.UnconfirmedUser) error {
	ctx = withFunction(ctx, "CreatePending")

	start := time.Now()
	err := r.db.WithContext(ctx).Create(pending).Error
	duration := time.Since(start)

	if err != nil {
		logger.WarnWithContext(ctx, "Failed to create pending registration").
			String("username", pending.Username).
			Duration(duration).
			Err(err).
			Log()
		return err
	}

	logger.DebugWithContext(ctx, "Pending registration created").
		String("pending_id", pending.ID).
		Duration(duration).
		Log()

	return nil
}

func (r *UnconfirmedUserRepository) GetByID(ctx context.Context, id string) (*model.UnconfirmedUser, error) {
	ctx = withFunction(ctx, "GetPendingByID")

	start := time.Now()
	var pending model.UnconfirmedUser

	err := r.db.WithContext(ctx).Where("id = ?", id).First(&pending).Error
	duration := time.Since(start)

	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.ErrorWithContext(ctx, "Failed to get pending registration").
				String("pending_id", id).
				Duration(duration).
				Err(err).
				Log()
		}
		return nil, err
	}

	return &pending, nil
}

// DeleteByID removes one pending row and returns how many rows went away
func (r *UnconfirmedUserRepository) DeleteByID(ctx context.Context, id string) (int64, error) {
	ctx = withFunction(ctx, "DeletePendingByID")

	start := time.Now()
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.UnconfirmedUser{})

	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to delete pending registration").
			String("pending_id", id).
			Duration(time.Since(start)).
			Err(result.Error).
			Log()
		return 0, result.Error
	}

	return result.RowsAffected, nil
}

// DeleteByEmailOrUsername clears pending rows that collide with a new attempt
func (r *UnconfirmedUserRepository) DeleteByEmailOrUsername(ctx context.Context, email, username string) (int64, error) {
	ctx = withFunction(ctx, "DeletePendingByIdentity")

	start := time.Now()
	result := r.db.WithContext(ctx).
		Where("email = ? OR username = ?", email, username).
		Delete(&model.UnconfirmedUser{})
	duration := time.Since(start)

	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to delete superseded pending registrations").
			Duration(duration).
			Err(result.Error).
			Log()
		return 0, result.Error
	}

	if result.RowsAffected > 0 {
		logger.InfoWithContext(ctx, "Superseded pending registrations removed").
			Int64("rows_affected", result.RowsAffected).
			Duration(duration).
			Log()
	}

	return result.RowsAffected, nil
}

// DeleteCreatedBefore purges pending rows whose confirmation window has closed
func (r *UnconfirmedUserRepository) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx = withFunction(ctx, "DeletePendingCreatedBefore")

	start := time.Now()
	result := r.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&model.UnconfirmedUser{})

	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to purge expired pending registrations").
			Duration(time.Since(start)).
			Err(result.Error).
			Log()
		return 0, result.Error
	}

	return result.RowsAffected, nil
}
