package middleware

import (
	"net/http"
	"strings"

	"github.com/Payphone-Digital/socialhub/internal/constants"
	"github.com/Payphone-Digital/socialhub/internal/service"
	ctxutil "github.com/Payphone-Digital/socialhub/pkg/context"
	"github.com/Payphone-Digital/socialhub/pkg/logger"
	"github.com/gin-gonic/gin"
)

type JWTMiddleware struct {
	tokens *service.TokenIssuer
}

func NewJWTMiddleware(tokens *service.TokenIssuer) *JWTMiddleware {
	return &JWTMiddleware{tokens: tokens}
}

// RequireAuth validates the bearer access token and sets the caller in context
func (m *JWTMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !m.authenticate(c) {
			unauthorized(c)
			return
		}
		c.Next()
	}
}

// OptionalAuth lets anonymous requests through. A bearer token, when sent,
// must still be valid.
func (m *JWTMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader(constants.HeaderAuthorization) == "" {
			c.Next()
			return
		}
		if !m.authenticate(c) {
			unauthorized(c)
			return
		}
		c.Next()
	}
}

func (m *JWTMiddleware) authenticate(c *gin.Context) bool {
	ctx := c.Request.Context()

	tokenString, ok := bearerToken(c.GetHeader(constants.HeaderAuthorization))
	if !ok {
		logger.WarnWithContext(ctx, "Missing or malformed Authorization header").
			String("path", c.Request.URL.Path).
			String("method", c.Request.Method).
			Log()
		return false
	}

	claims, err := m.tokens.VerifyAccessToken(tokenString)
	if err != nil {
		logger.WarnWithContext(ctx, "Invalid or expired access token").
			String("path", c.Request.URL.Path).
			String("method", c.Request.Method).
			Err(err).
			Log()
		return false
	}

	c.Set(constants.GinKeyUserID, claims.ID)
	c.Set(constants.GinKeyUsername, claims.Username)
	ctx = ctxutil.WithUserID(ctx, claims.ID)
	ctx = ctxutil.WithValue(ctx, ctxutil.UsernameKey, claims.Username)
	c.Request = c.Request.WithContext(ctx)

	logger.DebugWithContext(ctx, "User authenticated").
		Uint("user_id", claims.ID).
		String("path", c.Request.URL.Path).
		Log()
	return true
}

// UserID returns the authenticated caller set by RequireAuth or OptionalAuth
func UserID(c *gin.Context) (uint, bool) {
	v, ok := c.Get(constants.GinKeyUserID)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, constants.BuildErrorResponse(constants.MsgUnauthorized, nil))
}
