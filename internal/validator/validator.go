package validator

import (
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
)

var (
	seatIDRgx   = regexp.MustCompile(`^\s*[A-Za-z0-9][A-Za-z0-9\-]{0,15}\s*$`)
	showtimeRgx = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)
)

func NewValidator() *validator.Validate {
	validator := validator.New(validator.WithRequiredStructEnabled())

	validator.RegisterValidation("seat_id", validateSeatID)
	validator.RegisterValidation("showtime", validateShowtime)

	return validator
}

func validateSeatID(fl validator.FieldLevel) bool {
	return seatIDRgx.MatchString(fl.Field().String())
}

// validateShowtime accepts 24h "HH:MM" wall-clock times.
func validateShowtime(fl validator.FieldLevel) bool {
	return showtimeRgx.MatchString(fl.Field().String())
}

// ValidationMessage converts validator errors into readable messages
func ValidationMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must contain at least %s item(s)", err.Param())
	case "max":
		return fmt.Sprintf("must contain at most %s item(s)", err.Param())
	case "seat_id":
		return "must be an alphanumeric seat id (e.g. A1)"
	case "showtime":
		return "must be a 24h time in HH:MM format"
	default:
		return "is invalid"
	}
}
