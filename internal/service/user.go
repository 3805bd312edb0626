package service

import (
	"context"
	"errors"

	"github.com/Payphone-Digital/socialhub/internal/constants"
	"github.com/Payphone-Digital/socialhub/internal/dto"
	apperrors "github.com/Payphone-Digital/socialhub/internal/errors"
	"github.com/Payphone-Digital/socialhub/internal/model"
	"github.com/Payphone-Digital/socialhub/internal/repository"
	ctxutil "github.com/Payphone-Digital/socialhub/pkg/context"
	"github.com/Payphone-Digital/socialhub/pkg/logger"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type UserService struct {
	repoUser *repository.UserRepository
}

func NewUserService(repo *repository.UserRepository) *UserService {
	return &UserService{repoUser: repo}
}

func (s *UserService) getUser(ctx context.Context, id uint) (*model.User, error) {
	user, err := s.repoUser.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.InfoWithContext(ctx, "User not found").
				Uint("user_id", id).
				Log()
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}
	return user, nil
}

// GetMe returns the bearer's own account
func (s *UserService) GetMe(ctx context.Context, id uint) (*dto.SafeUser, error) {
	ctx = ctxutil.WithFunction(ctx, moduleName, "GetMe")

	user, err := s.getUser(ctx, id)
	if err != nil {
		return nil, err
	}

	safe := dto.NewSafeUser(user)
	return &safe, nil
}

// GetPublicProfile returns a user's profile. Private profiles are reported
// as missing to everyone but their owner. viewerID is 0 for anonymous callers.
func (s *UserService) GetPublicProfile(ctx context.Context, viewerID, id uint) (*dto.PublicProfile, error) {
	ctx = ctxutil.WithFunction(ctx, moduleName, "GetPublicProfile")

	user, err := s.getUser(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.profileFor(ctx, viewerID, user)
}

// GetProfileByUsername is GetPublicProfile keyed by username
func (s *UserService) GetProfileByUsername(ctx context.Context, viewerID uint, username string) (*dto.PublicProfile, error) {
	ctx = ctxutil.WithFunction(ctx, moduleName, "GetProfileByUsername")

	user, err := s.repoUser.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.InfoWithContext(ctx, "User not found").
				String("username", username).
				Log()
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}
	return s.profileFor(ctx, viewerID, user)
}

func (s *UserService) profileFor(ctx context.Context, viewerID uint, user *model.User) (*dto.PublicProfile, error) {
	if user.ProfileVisibility == constants.VisibilityPrivate && viewerID != user.ID {
		logger.DebugWithContext(ctx, "Private profile hidden from viewer").
			Uint("user_id", user.ID).
			Uint("viewer_id", viewerID).
			Log()
		return nil, apperrors.ErrUserNotFound
	}

	profile := dto.NewPublicProfile(user)
	return &profile, nil
}

func (s *UserService) GetSettings(ctx context.Context, id uint) (*dto.SettingsResponse, error) {
	ctx = ctxutil.WithFunction(ctx, moduleName, "GetSettings")

	user, err := s.getUser(ctx, id)
	if err != nil {
		return nil, err
	}

	settings := dto.NewSettingsResponse(user)
	return &settings, nil
}

// UpdateSettings applies a partial settings update and returns the result
func (s *UserService) UpdateSettings(ctx context.Context, id uint, req *dto.UpdateSettingsRequest) (*dto.SettingsResponse, error) {
	ctx = ctxutil.WithFunction(ctx, moduleName, "UpdateSettings")

	user, err := s.getUser(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.ProfileVisibility != nil {
		switch *req.ProfileVisibility {
		case constants.VisibilityPublic, constants.VisibilityFollowers, constants.VisibilityPrivate:
			user.ProfileVisibility = *req.ProfileVisibility
			updates["profile_visibility"] = user.ProfileVisibility
		default:
			return nil, apperrors.ErrInvalidInput
		}
	}
	if req.NotificationPreferences != nil {
		prefs := req.NotificationPreferences.Apply(user.NotificationPreferences.Data())
		user.NotificationPreferences = datatypes.NewJSONType(prefs)
		updates["notification_preferences"] = user.NotificationPreferences
	}

	if len(updates) > 0 {
		found, err := s.repoUser.UpdateSettings(ctx, id, updates)
		if err != nil {
			return nil, apperrors.WrapError(apperrors.ErrInternal, err)
		}
		if !found {
			return nil, apperrors.ErrUserNotFound
		}

		logger.InfoWithContext(ctx, "User settings updated").
			Uint("user_id", id).
			Int("fields", len(updates)).
			Log()
	}

	settings := dto.NewSettingsResponse(user)
	return &settings, nil
}
