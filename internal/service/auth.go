package service

import (
	"context"
	"errors"
	"time"

	"github.com/Payphone-Digital/socialhub/internal/constants"
	apperrors "github.com/Payphone-Digital/socialhub/internal/errors"
	"github.com/Payphone-Digital/socialhub/internal/model"
	"github.com/Payphone-Digital/socialhub/internal/repository"
	ctxutil "github.com/Payphone-Digital/socialhub/pkg/context"
	"github.com/Payphone-Digital/socialhub/pkg/logger"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const moduleName = "service"

// RefreshTokenLifetime is how long a refresh session stays usable
const RefreshTokenLifetime = 30 * 24 * time.Hour

type AuthConfig struct {
	ConfirmationWindow time.Duration
	// RevokeOnReuse revokes every session of a user when an already rotated
	// refresh secret is presented again.
	RevokeOnReuse bool
	Now           func() time.Time
}

type RegisterInput struct {
	Email    string
	Username string
	Name     string
	Password string
}

type LoginResult struct {
	User         *model.User
	AccessToken  string
	RefreshToken string
}

type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// AuthService drives the registration, confirmation and session lifecycle
type AuthService struct {
	store  *repository.Store
	codec  *CredentialCodec
	tokens *TokenIssuer
	cfg    AuthConfig
}

func NewAuthService(store *repository.Store, codec *CredentialCodec, tokens *TokenIssuer, cfg AuthConfig) *AuthService {
	if cfg.ConfirmationWindow <= 0 {
		cfg.ConfirmationWindow = constants.ConfirmationWindow
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &AuthService{store: store, codec: codec, tokens: tokens, cfg: cfg}
}

// ConfirmationWindow is how long a pending registration can be confirmed
func (s *AuthService) ConfirmationWindow() time.Duration {
	return s.cfg.ConfirmationWindow
}

func (s *AuthService) now() time.Time {
	return s.cfg.Now().UTC()
}

// Register stores a pending registration. Earlier pending rows for the same
// email or username are replaced; confirmed users are never touched.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*model.UnconfirmedUser, error) {
	ctx = ctxutil.WithFunction(ctx, moduleName, "Register")
	start := time.Now()

	logger.InfoWithContext(ctx, "Register attempt").
		String("username", in.Username).
		Log()

	_, err := s.store.Users().FindByEmailOrUsername(ctx, in.Email, in.Username)
	switch {
	case err == nil:
		logger.InfoWithContext(ctx, "Registration rejected, user exists").
			String("username", in.Username).
			Log()
		return nil, apperrors.ErrConflict
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	if _, err := s.store.Pending().DeleteByEmailOrUsername(ctx, in.Email, in.Username); err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	hash, err := s.codec.HashPassword(in.Password)
	if err != nil {
		logger.ErrorWithContext(ctx, "Failed to hash password").Err(err).Log()
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	pending := &model.UnconfirmedUser{
		ID:           uuid.NewString(),
		Email:        in.Email,
		Username:     in.Username,
		Name:         in.Name,
		PasswordHash: hash,
		CreatedAt:    s.now(),
	}

	// The unique indexes decide between two registrations racing past the
	// checks above.
	if err := s.store.Pending().Create(ctx, pending); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.WrapError(apperrors.ErrConflict, err)
		}
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	logger.InfoWithContext(ctx, "Pending registration stored").
		String("pending_id", pending.ID).
		String("username", pending.Username).
		Duration(time.Since(start)).
		Log()

	return pending, nil
}

// ConfirmEmail turns a pending registration into a verified user
func (s *AuthService) ConfirmEmail(ctx context.Context, pendingID string) (*model.User, error) {
	ctx = ctxutil.WithFunction(ctx, moduleName, "ConfirmEmail")
	start := time.Now()

	pending, err := s.store.Pending().GetByID(ctx, pendingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.InfoWithContext(ctx, "Confirmation for unknown registration").
				String("pending_id", pendingID).
				Log()
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	now := s.now()
	if now.After(pending.ExpiresAt(s.cfg.ConfirmationWindow)) {
		if _, err := s.store.Pending().DeleteByID(ctx, pending.ID); err != nil {
			return nil, apperrors.WrapError(apperrors.ErrInternal, err)
		}
		logger.InfoWithContext(ctx, "Confirmation link expired").
			String("pending_id", pending.ID).
			Log()
		return nil, apperrors.ErrExpired
	}

	user := &model.User{
		Email:                   pending.Email,
		Username:                pending.Username,
		Name:                    pending.Name,
		PasswordHash:            pending.PasswordHash,
		EmailVerified:           true,
		EmailVerifiedAt:         &now,
		ProfileVisibility:       constants.VisibilityPublic,
		NotificationPreferences: datatypes.NewJSONType(model.DefaultNotificationPreferences()),
		CreatedAt:               now,
		UpdatedAt:               now,
	}

	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		if err := tx.Users().Create(ctx, user); err != nil {
			return err
		}
		deleted, err := tx.Pending().DeleteByID(ctx, pending.ID)
		if err != nil {
			return err
		}
		if deleted != 1 {
			// someone else confirmed or purged it first
			return apperrors.ErrNotFound
		}
		return nil
	})
	if err != nil {
		switch {
		case apperrors.IsDomainError(err):
			return nil, err
		case errors.Is(err, gorm.ErrDuplicatedKey):
			return nil, apperrors.WrapError(apperrors.ErrConflict, err)
		default:
			return nil, apperrors.WrapError(apperrors.ErrInternal, err)
		}
	}

	logger.InfoWithContext(ctx, "Email confirmed").
		Uint("user_id", user.ID).
		String("username", user.Username).
		Duration(time.Since(start)).
		Log()

	return user, nil
}

// Login checks credentials and opens a new refresh session
func (s *AuthService) Login(ctx context.Context, identifier, password string) (*LoginResult, error) {
	ctx = ctxutil.WithFunction(ctx, moduleName, "Login")
	start := time.Now()

	user, err := s.store.Users().FindByEmailOrUsername(ctx, identifier, identifier)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.LogAuth(identifier, "login", false)
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	if !s.codec.VerifyPassword(user.PasswordHash, password) {
		logger.LogAuth(user.Username, "login", false)
		return nil, apperrors.ErrInvalidCredentials
	}

	access, err := s.tokens.IssueAccessToken(user.ID, user.Username)
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	secret, session, err := s.newSession(user.ID)
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}
	if err := s.store.Sessions().Create(ctx, session); err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	logger.LogAuth(user.Username, "login", true)
	logger.InfoWithContext(ctx, "Login succeeded").
		Uint("user_id", user.ID).
		Uint("session_id", session.ID).
		Duration(time.Since(start)).
		Log()

	return &LoginResult{User: user, AccessToken: access, RefreshToken: secret}, nil
}

// RefreshAccessToken rotates a refresh session: the presented secret is
// revoked and a new pair is returned.
func (s *AuthService) RefreshAccessToken(ctx context.Context, secret string) (*TokenPair, error) {
	ctx = ctxutil.WithFunction(ctx, moduleName, "RefreshAccessToken")
	start := time.Now()
	now := s.now()

	logger.DebugWithContext(ctx, "Refresh attempt").
		Int("token_length", len(secret)).
		Log()

	active, err := s.store.Sessions().FindActive(ctx, now)
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	current := s.match(active, secret)
	if current == nil {
		if s.cfg.RevokeOnReuse {
			if err := s.revokeOnReuse(ctx, secret, now); err != nil {
				return nil, apperrors.WrapError(apperrors.ErrInternal, err)
			}
		}
		return nil, apperrors.ErrInvalidOrExpiredToken
	}

	nextSecret, next, err := s.newSession(current.UserID)
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	var access string
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		revoked, err := tx.Sessions().Revoke(ctx, current.ID, now)
		if err != nil {
			return err
		}
		if !revoked {
			// lost a race with another rotation or a logout
			return apperrors.ErrInvalidOrExpiredToken
		}

		user, err := tx.Users().GetByID(ctx, current.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrInvalidOrExpiredToken
			}
			return err
		}

		if err := tx.Sessions().Create(ctx, next); err != nil {
			return err
		}

		access, err = s.tokens.IssueAccessToken(user.ID, user.Username)
		return err
	})
	if err != nil {
		if apperrors.IsDomainError(err) {
			return nil, err
		}
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	logger.InfoWithContext(ctx, "Refresh session rotated").
		Uint("user_id", current.UserID).
		Uint("revoked_session_id", current.ID).
		Uint("session_id", next.ID).
		Duration(time.Since(start)).
		Log()

	return &TokenPair{AccessToken: access, RefreshToken: nextSecret}, nil
}

// Logout revokes the session behind secret. It reports false when nothing
// was revoked.
func (s *AuthService) Logout(ctx context.Context, secret string) (bool, error) {
	ctx = ctxutil.WithFunction(ctx, moduleName, "Logout")

	sessions, err := s.store.Sessions().FindUnrevoked(ctx)
	if err != nil {
		return false, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	current := s.match(sessions, secret)
	if current == nil {
		logger.InfoWithContext(ctx, "Logout with unknown refresh token").Log()
		return false, nil
	}

	revoked, err := s.store.Sessions().Revoke(ctx, current.ID, s.now())
	if err != nil {
		return false, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	logger.InfoWithContext(ctx, "Logout processed").
		Uint("user_id", current.UserID).
		Uint("session_id", current.ID).
		Bool("revoked", revoked).
		Log()

	return revoked, nil
}

func (s *AuthService) newSession(userID uint) (string, *model.RefreshToken, error) {
	secret, err := s.tokens.IssueRefreshSecret()
	if err != nil {
		return "", nil, err
	}
	hash, err := s.codec.HashRefreshSecret(secret)
	if err != nil {
		return "", nil, err
	}

	now := s.now()
	return secret, &model.RefreshToken{
		UserID:    userID,
		TokenHash: hash,
		ExpiresAt: now.Add(RefreshTokenLifetime),
		CreatedAt: now,
	}, nil
}

// match is a linear scan; refresh hashes are salted so they cannot be looked
// up by value.
func (s *AuthService) match(sessions []model.RefreshToken, secret string) *model.RefreshToken {
	if secret == "" {
		return nil
	}
	for i := range sessions {
		if s.codec.VerifyRefreshSecret(secret, sessions[i].TokenHash) {
			return &sessions[i]
		}
	}
	return nil
}

func (s *AuthService) revokeOnReuse(ctx context.Context, secret string, now time.Time) error {
	consumed, err := s.store.Sessions().FindRevokedUnexpired(ctx, now)
	if err != nil {
		return err
	}

	replayed := s.match(consumed, secret)
	if replayed == nil {
		return nil
	}

	n, err := s.store.Sessions().RevokeAllForUser(ctx, replayed.UserID, now)
	if err != nil {
		return err
	}

	logger.WarnWithContext(ctx, "Rotated refresh token presented again, sessions revoked").
		Uint("user_id", replayed.UserID).
		Uint("session_id", replayed.ID).
		Int64("revoked_sessions", n).
		Log()
	return nil
}
