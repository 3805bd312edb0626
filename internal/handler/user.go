package handler

import (
	"net/http"
	"strconv"

	"github.com/Payphone-Digital/socialhub/internal/constants"
	"github.com/Payphone-Digital/socialhub/internal/dto"
	"github.com/Payphone-Digital/socialhub/internal/middleware"
	"github.com/Payphone-Digital/socialhub/internal/service"
	ctxutil "github.com/Payphone-Digital/socialhub/pkg/context"
	"github.com/Payphone-Digital/socialhub/pkg/logger"
	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	userService *service.UserService
}

func NewUserHandler(service *service.UserService) *UserHandler {
	return &UserHandler{userService: service}
}

// GetProfile returns the public profile of the user in the path
func (h *UserHandler) GetProfile(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, moduleName, "GetProfile")

	// anonymous viewers get 0, which matches no user
	viewerID, _ := middleware.UserID(c)

	id := c.Param("id")
	userID, err := strconv.ParseUint(id, 10, 64)
	if err != nil || userID == 0 {
		logger.WarnWithContext(ctx, "Invalid user ID format").
			String("raw_id", id).
			Log()
		c.JSON(http.StatusBadRequest, constants.BuildErrorResponse("Invalid user ID", nil))
		return
	}

	profile, err := h.userService.GetPublicProfile(ctx, viewerID, uint(userID))
	if err != nil {
		respondError(ctx, c, "Failed to fetch profile", err)
		return
	}

	c.JSON(http.StatusOK, profile)
}

// GetProfileByUsername returns the public profile of the named user
func (h *UserHandler) GetProfileByUsername(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, moduleName, "GetProfileByUsername")

	viewerID, _ := middleware.UserID(c)

	profile, err := h.userService.GetProfileByUsername(ctx, viewerID, c.Param("username"))
	if err != nil {
		respondError(ctx, c, "Failed to fetch profile", err)
		return
	}

	c.JSON(http.StatusOK, profile)
}

// GetSettings returns the caller's privacy and notification settings
func (h *UserHandler) GetSettings(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, moduleName, "GetSettings")

	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, constants.BuildErrorResponse(constants.MsgUnauthorized, nil))
		return
	}

	settings, err := h.userService.GetSettings(ctx, userID)
	if err != nil {
		respondError(ctx, c, "Failed to fetch settings", err)
		return
	}

	c.JSON(http.StatusOK, settings)
}

// UpdateSettings applies a partial settings update
func (h *UserHandler) UpdateSettings(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, moduleName, "UpdateSettings")

	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, constants.BuildErrorResponse(constants.MsgUnauthorized, nil))
		return
	}

	req, ok := middleware.ValidatedBody[dto.UpdateSettingsRequest](c)
	if !ok {
		c.JSON(http.StatusBadRequest, constants.BuildErrorResponse(constants.MsgBadRequest, nil))
		return
	}

	settings, err := h.userService.UpdateSettings(ctx, userID, req)
	if err != nil {
		respondError(ctx, c, "Failed to update settings", err)
		return
	}

	logger.InfoWithContext(ctx, "Settings updated").
		Uint("user_id", userID).
		Log()

	c.JSON(http.StatusOK, settings)
}
