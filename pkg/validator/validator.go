package validator

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/salonhq/booking-api/internal/model"
)

// RegisterCustomValidations installs domain validations on gin's binding
// engine. Must run once before the router starts serving.
func RegisterCustomValidations() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	if err := v.RegisterValidation("hhmm", validHHMM); err != nil {
		panic(err)
	}
	if err := v.RegisterValidation("weekday", validWeekday); err != nil {
		panic(err)
	}
}

// validHHMM accepts 24-hour "HH:mm" strings.
func validHHMM(fl validator.FieldLevel) bool {
	_, err := model.ParseClock(fl.Field().String())
	return err == nil
}

// validWeekday accepts lowercase weekday names as used in operating hours.
func validWeekday(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday":
		return true
	}
	return false
}
