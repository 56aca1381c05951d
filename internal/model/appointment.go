package model

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusPending           AppointmentStatus = "pending"
	AppointmentStatusConfirmed         AppointmentStatus = "confirmed"
	AppointmentStatusRejected          AppointmentStatus = "rejected"
	AppointmentStatusCancelledByUser   AppointmentStatus = "cancelled_by_user"
	AppointmentStatusCancelledByVendor AppointmentStatus = "cancelled_by_vendor"
	AppointmentStatusCompleted         AppointmentStatus = "completed"
	AppointmentStatusNoShow            AppointmentStatus = "no_show"
)

func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentStatusPending, AppointmentStatusConfirmed, AppointmentStatusRejected,
		AppointmentStatusCancelledByUser, AppointmentStatusCancelledByVendor,
		AppointmentStatusCompleted, AppointmentStatusNoShow:
		return true
	}
	return false
}

// Live reports whether the status occupies the worker's calendar.
// Only live appointments participate in conflict detection.
func (s AppointmentStatus) Live() bool {
	return s == AppointmentStatusPending || s == AppointmentStatusConfirmed
}

// Terminal reports whether no further transition is allowed.
func (s AppointmentStatus) Terminal() bool {
	switch s {
	case AppointmentStatusRejected, AppointmentStatusCancelledByUser,
		AppointmentStatusCancelledByVendor, AppointmentStatusCompleted,
		AppointmentStatusNoShow:
		return true
	}
	return false
}

// allowedTransitions encodes the lifecycle state machine. NO_SHOW is an
// administrative override reachable from any non-terminal state and is
// handled separately.
var allowedTransitions = map[AppointmentStatus][]AppointmentStatus{
	AppointmentStatusPending: {
		AppointmentStatusConfirmed,
		AppointmentStatusRejected,
		AppointmentStatusCancelledByUser,
		AppointmentStatusCancelledByVendor,
	},
	AppointmentStatusConfirmed: {
		AppointmentStatusCancelledByUser,
		AppointmentStatusCancelledByVendor,
		AppointmentStatusCompleted,
	},
}

// CanTransition reports whether from → to is a legal lifecycle move.
func CanTransition(from, to AppointmentStatus) bool {
	if to == AppointmentStatusNoShow {
		return !from.Terminal()
	}
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type Appointment struct {
	Base
	CustomerID uuid.UUID         `db:"customer_id" json:"customer_id"`
	VendorID   uuid.UUID         `db:"vendor_id" json:"vendor_id"`
	ServiceID  uuid.UUID         `db:"service_id" json:"service_id"`
	WorkerID   *uuid.UUID        `db:"worker_id" json:"worker_id,omitempty"`
	StartTime  time.Time         `db:"start_time" json:"start_time"`
	EndTime    time.Time         `db:"end_time" json:"end_time"`
	Status     AppointmentStatus `db:"status" json:"status"`
	Notes      string            `db:"notes" json:"notes,omitempty"`
	CreatedAt  time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time         `db:"updated_at" json:"updated_at"`
}

// EffectiveStatus derives COMPLETED for confirmed appointments whose end
// time has passed, so every consumer sees a consistent status regardless
// of whether the persisted transition has run yet.
func (a *Appointment) EffectiveStatus(now time.Time) AppointmentStatus {
	if a.Status == AppointmentStatusConfirmed && a.EndTime.Before(now) {
		return AppointmentStatusCompleted
	}
	return a.Status
}

type CreateAppointmentRequest struct {
	VendorID  uuid.UUID  `json:"vendor_id" binding:"required"`
	ServiceID uuid.UUID  `json:"service_id" binding:"required"`
	StartTime time.Time  `json:"start_time" binding:"required"`
	WorkerID  *uuid.UUID `json:"worker_id"`
	Notes     string     `json:"notes" binding:"max=1000"`
}

// WorkerRef identifies a worker inside a slot annotation.
type WorkerRef struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// Slot is one bookable time-of-day position for a service/date.
type Slot struct {
	Time             string      `json:"time"` // "HH:mm"
	AvailableWorkers []WorkerRef `json:"available_workers"`
}

// SlotsResult is the slot discovery response. Message explains an empty
// slot list ("closed", "no workers", "fully booked").
type SlotsResult struct {
	Slots   []Slot `json:"slots"`
	Message string `json:"message,omitempty"`
}

type AppointmentFilters struct {
	VendorID   *uuid.UUID
	WorkerID   *uuid.UUID
	CustomerID *uuid.UUID
	Status     *AppointmentStatus
	From       *time.Time
	To         *time.Time
}
