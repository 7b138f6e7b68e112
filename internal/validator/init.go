package validator

import (
	"ctchen222/Chess-Room/internal/game"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	// Initialize validation
	validate = validator.New(validator.WithRequiredStructEnabled())
	_ = validate.RegisterValidation("square", validateSquare)
	_ = validate.RegisterValidation("promotion", validatePromotion)
	_ = validate.RegisterValidation("room", validateRoomID)
}

func GetValidator() *validator.Validate {
	return validate
}

// validateSquare accepts lowercase board coordinates a1..h8.
func validateSquare(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	sq, err := game.ParseSquare(s)
	return err == nil && string(sq) == s
}

// validateRoomID accepts 1 to 64 letters, digits, '-' or '_'.
func validateRoomID(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if len(s) == 0 || len(s) > 64 {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

func validatePromotion(fl validator.FieldLevel) bool {
	return game.PieceKind(fl.Field().String()).IsPromotion()
}
