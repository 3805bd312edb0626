package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/Payphone-Digital/socialhub/internal/constants"
	"github.com/Payphone-Digital/socialhub/pkg/logger"
	"github.com/Payphone-Digital/socialhub/pkg/validation"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

const (
	validatedBodyKey = "validated_body"
	maxBodyBytes     = 64 << 10
)

type ValidationMiddleware struct {
	validate *validator.Validate
}

func NewValidationMiddleware() (*ValidationMiddleware, error) {
	validate := validator.New()
	validate.SetTagName("binding")
	if err := validation.RegisterValidators(validate); err != nil {
		return nil, err
	}
	return &ValidationMiddleware{validate: validate}, nil
}

// ValidateRequestBody decodes the JSON body into a fresh value from factory,
// validates its binding tags and hands it to the handler via ValidatedBody.
func (m *ValidationMiddleware) ValidateRequestBody(factory func() interface{}) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		var bodyBytes []byte
		if c.Request.Body != nil {
			var err error
			bodyBytes, err = io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes+1))
			if err != nil {
				logger.WarnWithContext(ctx, "Failed to read request body").
					String("path", c.Request.URL.Path).
					Err(err).
					Log()
				c.AbortWithStatusJSON(http.StatusBadRequest, constants.BuildErrorResponse(constants.MsgBadRequest, nil))
				return
			}
			if len(bodyBytes) > maxBodyBytes {
				c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, constants.BuildErrorResponse(constants.MsgBadRequest, nil))
				return
			}
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(bodyBytes))

		request := factory()
		if err := json.Unmarshal(bodyBytes, request); err != nil {
			logger.WarnWithContext(ctx, "Request body is not valid JSON").
				String("path", c.Request.URL.Path).
				Int("body_size", len(bodyBytes)).
				Err(err).
				Log()
			c.AbortWithStatusJSON(http.StatusBadRequest, constants.BuildErrorResponse(constants.MsgBadRequest, validation.FormatErrors(err)))
			return
		}

		if err := m.validate.Struct(request); err != nil {
			details := validation.FormatErrors(err)
			logger.WarnWithContext(ctx, "Request validation failed").
				String("path", c.Request.URL.Path).
				Int("error_count", len(details)).
				Any("validation_errors", details).
				Log()
			c.AbortWithStatusJSON(http.StatusBadRequest, constants.BuildErrorResponse(constants.MsgValidation, details))
			return
		}

		c.Set(validatedBodyKey, request)
		c.Next()
	}
}

// ValidatedBody returns the request stored by ValidateRequestBody
func ValidatedBody[T any](c *gin.Context) (*T, bool) {
	v, ok := c.Get(validatedBodyKey)
	if !ok {
		return nil, false
	}
	req, ok := v.(*T)
	return req, ok
}
