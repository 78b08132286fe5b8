package http

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

// Reusable error payload
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}
type ErrorResponse struct {
	Error   string       `json:"error"`
	Details []FieldError `json:"details,omitempty"`
}

var (
	reHex32  = regexp.MustCompile(`^[a-f0-9]{32}$`)
	reWallet = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
	reDec2   = regexp.MustCompile(`^[0-9]+(\.[0-9]{1,2})?$`)
)

type CustomValidator struct{ v *validator.Validate }

func NewValidator() *CustomValidator {
	v := validator.New()

	// entity ids = 32-char lowercase hex
	_ = v.RegisterValidation("hex32", func(fl validator.FieldLevel) bool {
		return reHex32.MatchString(fl.Field().String())
	})
	// wallet = 0x + 40 hex chars, any casing (normalized downstream)
	_ = v.RegisterValidation("wallet", func(fl validator.FieldLevel) bool {
		return reWallet.MatchString(fl.Field().String())
	})
	// money amounts travel as strings: digits with at most 2 decimal places
	_ = v.RegisterValidation("dec2", func(fl validator.FieldLevel) bool {
		return reDec2.MatchString(fl.Field().String())
	})

	return &CustomValidator{v: v}
}

func (cv *CustomValidator) Validate(i any) error { return cv.v.Struct(i) }

// Map validator.ValidationErrors → []FieldError with readable messages.
func ToFieldErrors(err error) []FieldError {
	ve, ok := err.(validator.ValidationErrors)
	if !ok {
		return []FieldError{{Field: "_", Message: err.Error()}}
	}
	out := make([]FieldError, 0, len(ve))
	for _, e := range ve {
		field := e.Field()
		switch e.Tag() {
		case "required":
			out = append(out, FieldError{Field: field, Message: "is required"})
		case "hex32":
			out = append(out, FieldError{Field: field, Message: "must be 32-char lowercase hex"})
		case "wallet":
			out = append(out, FieldError{Field: field, Message: "must be 0x followed by 40 hex chars"})
		case "dec2":
			out = append(out, FieldError{Field: field, Message: "must be a positive amount with at most 2 decimal places"})
		case "oneof":
			out = append(out, FieldError{Field: field, Message: "must be one of " + e.Param()})
		case "gte":
			out = append(out, FieldError{Field: field, Message: "must be greater than or equal to " + e.Param()})
		case "lte":
			out = append(out, FieldError{Field: field, Message: "must be less than or equal to " + e.Param()})
		default:
			out = append(out, FieldError{Field: field, Message: e.Tag() + " validation failed"})
		}
	}
	return out
}
