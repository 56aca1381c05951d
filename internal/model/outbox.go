package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "pending"
	OutboxStatusProcessed OutboxStatus = "processed"
	OutboxStatusFailed    OutboxStatus = "failed"
)

// Outbox event types emitted by the booking engine.
const (
	EventAppointmentCreated   = "appointment.created"
	EventAppointmentConfirmed = "appointment.confirmed"
	EventAppointmentRejected  = "appointment.rejected"
	EventAppointmentCancelled = "appointment.cancelled"
	EventAppointmentNoShow    = "appointment.no_show"
)

type OutboxEvent struct {
	Base
	EventType   string          `db:"event_type" json:"event_type"`
	Payload     json.RawMessage `db:"payload" json:"payload"`
	Status      OutboxStatus    `db:"status" json:"status"`
	Error       *string         `db:"error" json:"error,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	ProcessedAt *time.Time      `db:"processed_at" json:"processed_at,omitempty"`
}

// AppointmentEventPayload is the outbox payload for lifecycle events.
type AppointmentEventPayload struct {
	AppointmentID uuid.UUID         `json:"appointment_id"`
	CustomerID    uuid.UUID         `json:"customer_id"`
	VendorID      uuid.UUID         `json:"vendor_id"`
	ServiceID     uuid.UUID         `json:"service_id"`
	WorkerID      *uuid.UUID        `json:"worker_id,omitempty"`
	StartTime     time.Time         `json:"start_time"`
	Status        AppointmentStatus `json:"status"`
	Reason        string            `json:"reason,omitempty"`
}
