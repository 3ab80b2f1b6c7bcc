package utils

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"squadreg/models"
)

var validate = newValidator()

// contactIDPattern: 5 to 15 digits, no leading zero.
var contactIDPattern = regexp.MustCompile(`^[1-9][0-9]{4,14}$`)

func newValidator() *validator.Validate {
	v := validator.New()

	_ = v.RegisterValidation("contactid", func(fl validator.FieldLevel) bool {
		return contactIDPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("slotcolor", func(fl validator.FieldLevel) bool {
		return models.ValidColor(fl.Field().String())
	})
	_ = v.RegisterValidation("slotjob", func(fl validator.FieldLevel) bool {
		return models.ValidJob(fl.Field().String())
	})

	return v
}

// FieldError is one failed validation, named so responses can point at the
// offending field.
type FieldError struct {
	Field   string
	Message string
}

// ValidateStruct runs the validator over s and reports the first failure, or
// nil when everything passes.
func ValidateStruct(s interface{}) *FieldError {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	for _, verr := range err.(validator.ValidationErrors) {
		return &FieldError{
			Field:   snakeCase(verr.Field()),
			Message: describe(verr),
		}
	}
	return &FieldError{Field: "", Message: "invalid input"}
}

// ValidateVar checks a single value against a tag, reporting under the given
// field name.
func ValidateVar(field string, value interface{}, tag string) *FieldError {
	err := validate.Var(value, tag)
	if err == nil {
		return nil
	}
	for _, verr := range err.(validator.ValidationErrors) {
		fe := FieldError{Field: field, Message: describe(verr)}
		return &fe
	}
	return &FieldError{Field: field, Message: field + " is invalid"}
}

func describe(err validator.FieldError) string {
	field := snakeCase(err.Field())
	switch err.Tag() {
	case "required":
		return field + " is required"
	case "min":
		return field + " must be at least " + err.Param() + " characters"
	case "max":
		return field + " must be at most " + err.Param() + " characters"
	case "len":
		return field + " must be exactly " + err.Param() + " characters"
	case "numeric":
		return field + " must be numeric"
	case "contactid":
		return field + " must be 5 to 15 digits with no leading zero"
	case "slotcolor":
		return field + " must be one of red, green, blue"
	case "slotjob":
		return field + " must be one of attacker, defender, supporter"
	default:
		return field + " is invalid"
	}
}

// snakeCase turns a struct field name like GameAccountID into
// game_account_id for client-facing messages.
func snakeCase(name string) string {
	if name == "" {
		return name
	}
	var b strings.Builder
	runes := []rune(name)
	for i, r := range runes {
		if r >= 'A' && r <= 'Z' {
			if i > 0 && (runes[i-1] < 'A' || runes[i-1] > 'Z') {
				b.WriteByte('_')
			} else if i > 0 && i+1 < len(runes) && runes[i+1] >= 'a' && runes[i+1] <= 'z' {
				b.WriteByte('_')
			}
			b.WriteRune(r - 'A' + 'a')
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
