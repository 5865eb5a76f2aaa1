package validator

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	once     sync.Once
	validate *validator.Validate
)

// udidPattern accepts the classic 40-hex form and the newer
// 8-16 hyphenated form Apple devices report
var udidPattern = regexp.MustCompile(`^(?:[0-9a-fA-F]{40}|[0-9A-F]{8}-[0-9A-F]{16})$`)

// Validator represents a validator instance
type Validator struct {
	validate *validator.Validate
}

// New creates a new validator instance
func New() *Validator {
	once.Do(func() {
		validate = validator.New()

		// Register custom validation functions
		validate.RegisterValidation("udid", validateUDID)
		validate.RegisterValidation("command_uuid", validateCommandUUID)

		// Use JSON tag names in error messages
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})

	return &Validator{
		validate: validate,
	}
}

// Struct validates a struct
func (v *Validator) Struct(s any) error {
	if err := v.validate.Struct(s); err != nil {
		if _, ok := err.(*validator.InvalidValidationError); ok {
			return fmt.Errorf("invalid validation error: %w", err)
		}

		var errMsgs []string
		for _, err := range err.(validator.ValidationErrors) {
			errMsgs = append(errMsgs, formatError(err))
		}
		return fmt.Errorf("validation failed: %s", strings.Join(errMsgs, "; "))
	}
	return nil
}

// Var validates a single variable
func (v *Validator) Var(field any, tag string) error {
	return v.validate.Var(field, tag)
}

// Engine returns the underlying validator engine
func (v *Validator) Engine() any {
	return v.validate
}

// formatError formats a validation error
func formatError(err validator.FieldError) string {
	field := err.Field()
	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, err.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, err.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", field, err.Param())
	case "udid":
		return fmt.Sprintf("%s must be a valid device UDID", field)
	case "command_uuid":
		return fmt.Sprintf("%s must be a valid command UUID", field)
	default:
		return fmt.Sprintf("%s failed on tag %s", field, err.Tag())
	}
}

// Custom validation functions
func validateUDID(fl validator.FieldLevel) bool {
	udid := fl.Field().String()
	if udid == "" {
		return true
	}
	return udidPattern.MatchString(udid)
}

// Custom validation functions
func validateCommandUUID(fl validator.FieldLevel) bool {
	id := fl.Field().String()
	if id == "" {
		return true
	}

	parts := strings.Split(id, "-")
	if len(parts) != 5 {
		return false
	}

	for _, part := range parts {
		if part == "" {
			return false
		}
	}

	return true
}
