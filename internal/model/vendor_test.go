package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperatingHoursValidate(t *testing.T) {
	valid := OperatingHours{
		"monday":  {Open: "09:00", Close: "17:00"},
		"tuesday": {IsClosed: true},
	}
	assert.NoError(t, valid.Validate())

	assert.Error(t, OperatingHours{"funday": {Open: "09:00", Close: "17:00"}}.Validate())
	assert.Error(t, OperatingHours{"monday": {Open: "9am", Close: "17:00"}}.Validate())
	assert.Error(t, OperatingHours{"monday": {Open: "17:00", Close: "09:00"}}.Validate())
	assert.Error(t, OperatingHours{"monday": {Open: "09:00", Close: "09:00"}}.Validate())

	// Closed days skip window validation entirely.
	assert.NoError(t, OperatingHours{"monday": {IsClosed: true}}.Validate())
}

func TestOperatingHoursScan(t *testing.T) {
	var h OperatingHours
	require.NoError(t, h.Scan([]byte(`{"monday":{"open":"09:00","close":"17:00"}}`)))
	assert.Equal(t, "09:00", h["monday"].Open)

	var empty OperatingHours
	require.NoError(t, empty.Scan(nil))
	assert.NotNil(t, empty)

	assert.Error(t, (&OperatingHours{}).Scan(42))
}

func TestWeekdayKey(t *testing.T) {
	// 2026-03-09 is a Monday.
	assert.Equal(t, "monday", WeekdayKey(time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "sunday", WeekdayKey(time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)))
}
