package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Payphone-Digital/socialhub/internal/model"
	"github.com/Payphone-Digital/socialhub/pkg/logger"
	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id uint) (*model.User, error) {
	ctx = withFunction(ctx, "GetByID")

	if err := ctx.Err(); err != nil {
		logger.WarnWithContext(ctx, "Context cancelled before query").
			Err(err).
			Log()
		return nil, err
	}

	start := time.Now()
	var user model.User

	result := r.db.WithContext(ctx).Where("id = ?", id).First(&user)
	duration := time.Since(start)

	if result.Error != nil {
		if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
			logger.ErrorWithContext(ctx, "Failed to get user by ID").
				Uint("user_id", id).
				Duration(duration).
				Err(result.Error).
				Log()
		}
		return nil, result.Error
	}

	logger.DebugWithContext(ctx, "User retrieved successfully").
		Uint("user_id", id).
		Duration(duration).
		Log()

	return &user, nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	ctx = withFunction(ctx, "GetByUsername")

	start := time.Now()
	var user model.User

	result := r.db.WithContext(ctx).Where("username = ?", username).First(&user)
	duration := time.Since(start)

	if result.Error != nil {
		if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
			logger.ErrorWithContext(ctx, "Failed to get user by username").
				String("username", username).
				Duration(duration).
				Err(result.Error).
				Log()
		}
		return nil, result.Error
	}

	logger.DebugWithContext(ctx, "User retrieved successfully").
		Uint("user_id", user.ID).
		Duration(duration).
		Log()

	return &user, nil
}

// FindByEmailOrUsername returns the first user matching either field, in
// primary key order.
func (r *UserRepository) FindByEmailOrUsername(ctx context.Context, email, username string) (*model.User, error) {
	ctx = withFunction(ctx, "FindByEmailOrUsername")

	start := time.Now()
	var user model.User

	result := r.db.WithContext(ctx).
		Where("email = ? OR username = ?", email, username).
		Order("id").
		First(&user)
	duration := time.Since(start)

	if result.Error != nil {
		if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
			logger.ErrorWithContext(ctx, "Failed to look up user").
				Duration(duration).
				Err(result.Error).
				Log()
		}
		return nil, result.Error
	}

	logger.DebugWithContext(ctx, "User found").
		Uint("user_id", user.ID).
		Duration(duration).
		Log()

	return &user, nil
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	ctx = withFunction(ctx, "Create")

	start := time.Now()
	err := r.db.WithContext(ctx).Create(user).Error
	duration := time.Since(start)

	if err != nil {
		logger.WarnWithContext(ctx, "Failed to create user").
			String("username", user.Username).
			Duration(duration).
			Err(err).
			Log()
		return err
	}

	logger.InfoWithContext(ctx, "User created").
		Uint("user_id", user.ID).
		String("username", user.Username).
		Duration(duration).
		Log()

	return nil
}

// UpdateSettings writes the given columns for one user and reports whether
// the row existed.
func (r *UserRepository) UpdateSettings(ctx context.Context, id uint, updates map[string]interface{}) (bool, error) {
	ctx = withFunction(ctx, "UpdateSettings")

	start := time.Now()
	result := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", id).
		Updates(updates)
	duration := time.Since(start)

	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to update user settings").
			Uint("user_id", id).
			Duration(duration).
			Err(result.Error).
			Log()
		return false, result.Error
	}

	logger.DebugWithContext(ctx, "User settings updated").
		Uint("user_id", id).
		Int64("rows_affected", result.RowsAffected).
		Duration(duration).
		Log()

	return result.RowsAffected > 0, nil
}
