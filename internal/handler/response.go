package handler

import (
	"context"
	"net/http"

	"github.com/Payphone-Digital/socialhub/internal/constants"
	apperrors "github.com/Payphone-Digital/socialhub/internal/errors"
	"github.com/Payphone-Digital/socialhub/pkg/logger"
	"github.com/gin-gonic/gin"
)

// respondError writes the client-safe message for err. Server-side failures
// are logged with their cause, client errors only at warn.
func respondError(ctx context.Context, c *gin.Context, msg string, err error) {
	status := apperrors.ToHTTPStatus(err)

	if status >= http.StatusInternalServerError {
		logger.ErrorWithContext(ctx, msg).
			Int("http_status", status).
			Err(err).
			Log()
	} else {
		logger.WarnWithContext(ctx, msg).
			Int("http_status", status).
			String("error", apperrors.GetErrorMessage(err)).
			Log()
	}

	c.JSON(status, constants.BuildErrorResponse(apperrors.GetErrorMessage(err), nil))
}
