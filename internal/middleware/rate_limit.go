package middleware

import (
	"math"
	"net/http"
	"strconv"

	"github.com/Payphone-Digital/socialhub/internal/constants"
	"github.com/Payphone-Digital/socialhub/pkg/logger"
	"github.com/Payphone-Digital/socialhub/pkg/ratelimit"
	"github.com/gin-gonic/gin"
)

// RateLimit throttles requests per client IP within the given bucket.
// Limiter errors fail open so a redis outage does not take the API down.
func RateLimit(limiter ratelimit.Limiter, bucket string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		ip := c.ClientIP()

		decision, err := limiter.Allow(ctx, bucket, ip)
		if err != nil {
			logger.ErrorWithContext(ctx, "Rate limiter unavailable, allowing request").
				String("bucket", bucket).
				String("client_ip", ip).
				Err(err).
				Log()
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))

		if !decision.Allowed {
			retryAfter := int(math.Ceil(decision.RetryAfter.Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}

			logger.WarnWithContext(ctx, "Rate limit exceeded").
				String("bucket", bucket).
				String("client_ip", ip).
				String("path", c.Request.URL.Path).
				Int("limit", decision.Limit).
				Duration(decision.RetryAfter).
				Log()

			c.Header(constants.HeaderRetryAfter, strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, constants.BuildErrorResponse(constants.MsgTooManyRequest, gin.H{
				"retryAfter": retryAfter,
			}))
			return
		}

		c.Next()
	}
}
