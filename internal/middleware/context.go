package middleware

import (
	"context"
	"time"

	"github.com/Payphone-Digital/socialhub/internal/constants"
	ctxutil "github.com/Payphone-Digital/socialhub/pkg/context"
	"github.com/Payphone-Digital/socialhub/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ContextMiddleware seeds the request context with tracing values and a deadline
func ContextMiddleware(module string, timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(constants.HeaderXRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		correlationID := c.GetHeader(constants.HeaderXCorrelationID)
		if correlationID == "" {
			correlationID = requestID
		}

		ctx := c.Request.Context()
		ctx = ctxutil.WithValue(ctx, ctxutil.RequestIDKey, requestID)
		ctx = ctxutil.WithValue(ctx, ctxutil.CorrelationIDKey, correlationID)
		ctx = ctxutil.WithValue(ctx, ctxutil.ClientIPKey, c.ClientIP())
		ctx = ctxutil.WithValue(ctx, ctxutil.StartTimeKey, time.Now())
		ctx = ctxutil.NewContextWithRequest(ctx, c.Request, module, c.FullPath())

		var cancel context.CancelFunc
		if timeout > 0 {
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		c.Request = c.Request.WithContext(ctx)
		c.Header(constants.HeaderXRequestID, requestID)
		c.Header(constants.HeaderXCorrelationID, correlationID)

		c.Next()

		if ctx.Err() == context.DeadlineExceeded {
			logger.WarnWithContext(ctx, "Request exceeded its deadline").
				String("method", c.Request.Method).
				String("path", c.Request.URL.Path).
				Duration(timeout).
				Log()
		}
	}
}
