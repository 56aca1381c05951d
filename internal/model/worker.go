package model

import (
	"time"

	"github.com/google/uuid"
)

type Worker struct {
	Base
	VendorID  uuid.UUID  `db:"vendor_id" json:"vendor_id"`
	UserID    *uuid.UUID `db:"user_id" json:"user_id,omitempty"`
	Name      string     `db:"name" json:"name"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`

	// ServiceIDs is the set of services the worker can perform.
	ServiceIDs []uuid.UUID `db:"-" json:"service_ids,omitempty"`
}

// WorkerAvailability is one weekly availability rule. At most one row
// exists per (worker, day_of_week); schedule updates replace all rows.
type WorkerAvailability struct {
	Base
	WorkerID    uuid.UUID `db:"worker_id" json:"worker_id"`
	DayOfWeek   int       `db:"day_of_week" json:"day_of_week"` // 0 = Sunday .. 6 = Saturday
	StartTime   string    `db:"start_time" json:"start_time"`   // "HH:mm"
	EndTime     string    `db:"end_time" json:"end_time"`       // "HH:mm"
	IsAvailable bool      `db:"is_available" json:"is_available"`
}

// WorkerScheduleOverride is a date-specific exception that takes
// precedence over the weekly rule for the same date.
type WorkerScheduleOverride struct {
	Base
	WorkerID  uuid.UUID `db:"worker_id" json:"worker_id"`
	Date      time.Time `db:"date" json:"date"`
	IsDayOff  bool      `db:"is_day_off" json:"is_day_off"`
	StartTime string    `db:"start_time" json:"start_time"`
	EndTime   string    `db:"end_time" json:"end_time"`
	Note      string    `db:"note" json:"note,omitempty"`
}

type CreateWorkerRequest struct {
	Name       string      `json:"name" binding:"required,max=200"`
	UserID     *uuid.UUID  `json:"user_id"`
	ServiceIDs []uuid.UUID `json:"service_ids"`
}

type UpdateWorkerRequest struct {
	Name       *string      `json:"name"`
	UserID     *uuid.UUID   `json:"user_id"`
	ServiceIDs *[]uuid.UUID `json:"service_ids"`
}

type WeeklyRuleInput struct {
	DayOfWeek   int    `json:"day_of_week" binding:"min=0,max=6"`
	StartTime   string `json:"start_time" binding:"omitempty,hhmm"`
	EndTime     string `json:"end_time" binding:"omitempty,hhmm"`
	IsAvailable bool   `json:"is_available"`
}

type OverrideInput struct {
	Date      string `json:"date" binding:"required"` // "2006-01-02"
	IsDayOff  bool   `json:"is_day_off"`
	StartTime string `json:"start_time" binding:"omitempty,hhmm"`
	EndTime   string `json:"end_time" binding:"omitempty,hhmm"`
	Note      string `json:"note" binding:"max=500"`
}

type UpdateScheduleRequest struct {
	Weekly    []WeeklyRuleInput `json:"weekly"`
	Overrides []OverrideInput   `json:"overrides"`
}
