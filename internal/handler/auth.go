package handler

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Payphone-Digital/socialhub/internal/constants"
	"github.com/Payphone-Digital/socialhub/internal/dto"
	apperrors "github.com/Payphone-Digital/socialhub/internal/errors"
	"github.com/Payphone-Digital/socialhub/internal/middleware"
	"github.com/Payphone-Digital/socialhub/internal/service"
	ctxutil "github.com/Payphone-Digital/socialhub/pkg/context"
	"github.com/Payphone-Digital/socialhub/pkg/events"
	"github.com/Payphone-Digital/socialhub/pkg/logger"
	"github.com/gin-gonic/gin"
)

const moduleName = "handler"

type AuthHandler struct {
	authService     *service.AuthService
	userService     *service.UserService
	notifier        *service.Notifier
	publisher       events.Publisher
	frontendBaseURL string
}

func NewAuthHandler(
	authService *service.AuthService,
	userService *service.UserService,
	notifier *service.Notifier,
	publisher events.Publisher,
	frontendBaseURL string,
) *AuthHandler {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &AuthHandler{
		authService:     authService,
		userService:     userService,
		notifier:        notifier,
		publisher:       publisher,
		frontendBaseURL: strings.TrimRight(frontendBaseURL, "/"),
	}
}

type userRegisteredEvent struct {
	PendingID string    `json:"pendingId"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type userConfirmedEvent struct {
	UserID   uint   `json:"userId"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

type userLoggedInEvent struct {
	UserID   uint   `json:"userId"`
	Username string `json:"username"`
	ClientIP string `json:"clientIp"`
}

// Register stores a pending registration and mails its confirmation link
func (h *AuthHandler) Register(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, moduleName, "Register")

	req, ok := middleware.ValidatedBody[dto.RegisterRequest](c)
	if !ok {
		c.JSON(http.StatusBadRequest, constants.BuildErrorResponse(constants.MsgBadRequest, nil))
		return
	}

	pending, err := h.authService.Register(ctx, service.RegisterInput{
		Email:    req.Email,
		Username: req.Username,
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		respondError(ctx, c, constants.MsgRegisterFailed, err)
		return
	}

	if err := h.notifier.SendConfirmation(ctx, pending); err != nil {
		logger.ErrorWithContext(ctx, "Confirmation mail not sent, pending registration kept").
			String("pending_id", pending.ID).
			Err(err).
			Log()
	}
	h.publish(ctx, constants.EventUserRegistered, userRegisteredEvent{
		PendingID: pending.ID,
		Email:     pending.Email,
		Username:  pending.Username,
		ExpiresAt: pending.ExpiresAt(h.authService.ConfirmationWindow()),
	})

	c.JSON(http.StatusAccepted, dto.RegisterResponse{
		Message: constants.MsgRegistrationAccepted,
		Email:   pending.Email,
	})
}

// ConfirmEmail follows the mailed link and redirects to the frontend
func (h *AuthHandler) ConfirmEmail(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, moduleName, "ConfirmEmail")

	pendingID := strings.TrimSpace(c.Query("user_id"))
	if pendingID == "" {
		h.redirectConfirmationError(ctx, c, apperrors.ErrNotFound)
		return
	}

	user, err := h.authService.ConfirmEmail(ctx, pendingID)
	if err != nil {
		h.redirectConfirmationError(ctx, c, err)
		return
	}

	if err := h.notifier.SendWelcome(ctx, user); err != nil {
		logger.ErrorWithContext(ctx, "Welcome mail not sent").
			Uint("user_id", user.ID).
			Err(err).
			Log()
	}
	h.publish(ctx, constants.EventUserConfirmed, userConfirmedEvent{
		UserID:   user.ID,
		Email:    user.Email,
		Username: user.Username,
	})

	c.Redirect(http.StatusFound, h.frontendBaseURL+constants.FrontendPathEmailConfirmed)
}

// Login exchanges credentials for an access token and a refresh token
func (h *AuthHandler) Login(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, moduleName, "Login")

	req, ok := middleware.ValidatedBody[dto.LoginRequest](c)
	if !ok {
		c.JSON(http.StatusBadRequest, constants.BuildErrorResponse(constants.MsgBadRequest, nil))
		return
	}

	result, err := h.authService.Login(ctx, req.EmailOrUsername, req.Password)
	if err != nil {
		respondError(ctx, c, constants.MsgAuthFailed, err)
		return
	}

	h.publish(ctx, constants.EventUserLoggedIn, userLoggedInEvent{
		UserID:   result.User.ID,
		Username: result.User.Username,
		ClientIP: c.ClientIP(),
	})

	c.JSON(http.StatusOK, dto.LoginResponse{
		User:         dto.NewSafeUser(result.User),
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
	})
}

// RefreshToken rotates the presented refresh token
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, moduleName, "RefreshToken")

	req, ok := middleware.ValidatedBody[dto.RefreshTokenRequest](c)
	if !ok {
		c.JSON(http.StatusBadRequest, constants.BuildErrorResponse(constants.MsgBadRequest, nil))
		return
	}

	logger.InfoWithContext(ctx, "Token refresh attempt").
		Int("token_length", len(req.RefreshToken)).
		Log()

	pair, err := h.authService.RefreshAccessToken(ctx, req.RefreshToken)
	if err != nil {
		respondError(ctx, c, constants.MsgRefreshFailed, err)
		return
	}

	c.JSON(http.StatusOK, dto.RefreshTokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

// Logout revokes the presented refresh token. Unknown tokens report false.
func (h *AuthHandler) Logout(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, moduleName, "Logout")

	req, ok := middleware.ValidatedBody[dto.LogoutRequest](c)
	if !ok {
		c.JSON(http.StatusBadRequest, constants.BuildErrorResponse(constants.MsgBadRequest, nil))
		return
	}

	revoked, err := h.authService.Logout(ctx, req.RefreshToken)
	if err != nil {
		respondError(ctx, c, constants.MsgLogoutFailed, err)
		return
	}

	c.JSON(http.StatusOK, dto.LogoutResponse{Success: revoked})
}

// Me returns the authenticated user
func (h *AuthHandler) Me(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, moduleName, "Me")

	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, constants.BuildErrorResponse(constants.MsgUnauthorized, nil))
		return
	}

	user, err := h.userService.GetMe(ctx, userID)
	if err != nil {
		// A valid token for a deleted user is treated as unauthenticated.
		if apperrors.ToHTTPStatus(err) == http.StatusNotFound {
			c.JSON(http.StatusUnauthorized, constants.BuildErrorResponse(constants.MsgUnauthorized, nil))
			return
		}
		respondError(ctx, c, "Failed to load user", err)
		return
	}

	c.JSON(http.StatusOK, dto.MeResponse{User: *user})
}

func (h *AuthHandler) redirectConfirmationError(ctx context.Context, c *gin.Context, err error) {
	logger.WarnWithContext(ctx, "Email confirmation failed").
		Err(err).
		Log()

	target := h.frontendBaseURL + constants.FrontendPathConfirmationError +
		"?message=" + url.QueryEscape(apperrors.GetErrorMessage(err))
	c.Redirect(http.StatusFound, target)
}

func (h *AuthHandler) publish(ctx context.Context, subject string, payload any) {
	if err := h.publisher.Publish(ctx, subject, payload); err != nil {
		logger.WarnWithContext(ctx, "Event not published").
			String("subject", subject).
			Err(err).
			Log()
	}
}
