package validator

import (
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salonhq/booking-api/internal/model"
)

func engine(t *testing.T) *validator.Validate {
	t.Helper()
	RegisterCustomValidations()
	v, ok := binding.Validator.Engine().(*validator.Validate)
	require.True(t, ok)
	return v
}

func TestHHMMValidation(t *testing.T) {
	v := engine(t)

	type row struct {
		Start string `binding:"omitempty,hhmm"`
	}

	assert.NoError(t, v.Struct(row{Start: "09:30"}))
	assert.NoError(t, v.Struct(row{}))
	assert.Error(t, v.Struct(row{Start: "9am"}))
	assert.Error(t, v.Struct(row{Start: "25:00"}))
}

func TestWeekdayValidationOnOperatingHours(t *testing.T) {
	v := engine(t)

	valid := model.CreateVendorRequest{
		Name: "Shear Genius",
		OperatingHours: model.OperatingHours{
			"monday": {Open: "09:00", Close: "17:00"},
			"sunday": {IsClosed: true},
		},
	}
	assert.NoError(t, v.Struct(valid))

	misspelt := model.CreateVendorRequest{
		Name: "Shear Genius",
		OperatingHours: model.OperatingHours{
			"mondy": {Open: "09:00", Close: "17:00"},
		},
	}
	assert.Error(t, v.Struct(misspelt), "unknown weekday keys are rejected at binding time")
}
