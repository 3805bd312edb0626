package validation

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var customMessages = map[string]map[string]string{
	"email": {
		"required": "email is required",
		"email":    "email must be a valid email address",
	},
	"username": {
		"username": "username may only contain letters, numbers and underscores",
	},
	"emailOrUsername": {
		"required": "email or username is required",
	},
	"refreshToken": {
		"required": "refresh token is required",
	},
	"profileVisibility": {
		"oneof": "profileVisibility must be one of public, followers, private",
	},
}

// CustomMessage returns the field-specific messages, if any
func CustomMessage(field string) map[string]string {
	return customMessages[field]
}

func DefaultMessage(field, tag, param string) string {
	switch tag {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, param)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, param)
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// FormatErrors turns a binding error into client-facing messages
func FormatErrors(err error) []string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		messages := make([]string, 0, len(verrs))
		for _, e := range verrs {
			if msg, ok := CustomMessage(e.Field())[e.Tag()]; ok {
				messages = append(messages, msg)
				continue
			}
			messages = append(messages, DefaultMessage(e.Field(), e.Tag(), e.Param()))
		}
		return messages
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr):
		return []string{"request body is not valid JSON"}
	case errors.As(err, &typeErr):
		return []string{fmt.Sprintf("%s has the wrong type", typeErr.Field)}
	}

	return []string{"request body is invalid"}
}
