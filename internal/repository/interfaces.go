package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/salonhq/booking-api/internal/model"
)

// Sentinel errors the service layer maps to typed application errors.
var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrSlotTaken is returned when a conflict-checked write loses to an
	// overlapping live appointment for the same worker.
	ErrSlotTaken = errors.New("slot taken")
	// ErrStatusChanged is returned when a status-conditioned update finds
	// the appointment no longer in the expected state.
	ErrStatusChanged = errors.New("status changed")
)

// All repository interfaces in one file
type (
	UserRepository interface {
		Create(ctx context.Context, user *model.User) error
		Get(ctx context.Context, id uuid.UUID) (*model.User, error)
		GetByEmail(ctx context.Context, email string) (*model.User, error)
	}

	VendorRepository interface {
		Create(ctx context.Context, vendor *model.Vendor) error
		Get(ctx context.Context, id uuid.UUID) (*model.Vendor, error)
		Update(ctx context.Context, vendor *model.Vendor) error
		List(ctx context.Context, status *model.VendorStatus) ([]*model.Vendor, error)

		CreateService(ctx context.Context, service *model.Service) error
		GetService(ctx context.Context, id uuid.UUID) (*model.Service, error)
		UpdateService(ctx context.Context, service *model.Service) error
		ListServices(ctx context.Context, vendorID uuid.UUID, activeOnly bool) ([]*model.Service, error)
	}

	WorkerRepository interface {
		Create(ctx context.Context, worker *model.Worker) error
		Get(ctx context.Context, id uuid.UUID) (*model.Worker, error)
		Update(ctx context.Context, worker *model.Worker) error
		Delete(ctx context.Context, id uuid.UUID) error
		// ListByVendor returns workers in creation order; booking relies on
		// this order for the deterministic worker pick.
		ListByVendor(ctx context.Context, vendorID uuid.UUID) ([]*model.Worker, error)
		ListQualified(ctx context.Context, vendorID, serviceID uuid.UUID) ([]*model.Worker, error)
		SetServices(ctx context.Context, workerID uuid.UUID, serviceIDs []uuid.UUID) error

		ListWeekly(ctx context.Context, workerID uuid.UUID) ([]*model.WorkerAvailability, error)
		GetOverride(ctx context.Context, workerID uuid.UUID, date time.Time) (*model.WorkerScheduleOverride, error)
		ListOverrides(ctx context.Context, workerID uuid.UUID, from, to time.Time) ([]*model.WorkerScheduleOverride, error)
		// ReplaceSchedule atomically replaces all weekly rules and overrides
		// for the worker, enforcing the one-row-per-weekday invariant.
		ReplaceSchedule(ctx context.Context, workerID uuid.UUID, weekly []*model.WorkerAvailability, overrides []*model.WorkerScheduleOverride) error
	}

	AppointmentRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error)
		// ListLiveForWorker returns PENDING/CONFIRMED appointments whose
		// interval intersects [from, to).
		ListLiveForWorker(ctx context.Context, workerID uuid.UUID, from, to time.Time) ([]*model.Appointment, error)
		HasConflict(ctx context.Context, workerID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (bool, error)
		// CreateIfFree serializes the conflict check and the insert for the
		// appointment's worker inside one transaction. Returns ErrSlotTaken
		// when an overlapping live appointment exists.
		CreateIfFree(ctx context.Context, appointment *model.Appointment) error
		// UpdateStatus transitions the appointment only if its current status
		// is one of from; otherwise returns ErrStatusChanged. A non-empty
		// note is appended to the notes field.
		UpdateStatus(ctx context.Context, id uuid.UUID, from []model.AppointmentStatus, to model.AppointmentStatus, note string) (*model.Appointment, error)
		// ConfirmWithWorker confirms a pending appointment and assigns the
		// worker, conflict-checking the worker's calendar under the same
		// serialization as CreateIfFree.
		ConfirmWithWorker(ctx context.Context, id, workerID uuid.UUID) (*model.Appointment, error)
		// SetWorker assigns or clears the worker on a live appointment,
		// conflict-checking when a worker is set.
		SetWorker(ctx context.Context, id uuid.UUID, workerID *uuid.UUID) (*model.Appointment, error)
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		GetPendingEventsWithLock(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		MarkProcessed(ctx context.Context, id uuid.UUID) error
		MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error
	}
)
