package validation

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/Payphone-Digital/socialhub/internal/constants"
	"github.com/go-playground/validator/v10"
)

var usernameRegex = regexp.MustCompile(constants.UsernamePattern)

// RegisterValidators adds the custom tags used by request DTOs and reports
// fields by their JSON names.
func RegisterValidators(v *validator.Validate) error {
	v.RegisterTagNameFunc(jsonFieldName)
	return v.RegisterValidation("username", validateUsername)
}

func validateUsername(fl validator.FieldLevel) bool {
	return usernameRegex.MatchString(fl.Field().String())
}

func jsonFieldName(field reflect.StructField) string {
	name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return field.Name
	}
	return name
}
