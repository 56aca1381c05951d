package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/salonhq/booking-api/internal/model"
	"github.com/salonhq/booking-api/internal/repository"
	"github.com/salonhq/booking-api/internal/service/availability"
	"github.com/salonhq/booking-api/internal/service/event"
	apperrors "github.com/salonhq/booking-api/pkg/errors"
	"github.com/salonhq/booking-api/pkg/metrics"
)

type Config struct {
	// MinLeadTime is the minimum gap between booking (or customer
	// cancellation) and the appointment start.
	MinLeadTime time.Duration
}

// Service implements the booking transaction and the appointment
// lifecycle. All precondition checks read the authoritative store; the
// final conflict check and insert are serialized per worker inside the
// repository.
type Service struct {
	vendorRepo   repository.VendorRepository
	workerRepo   repository.WorkerRepository
	apptRepo     repository.AppointmentRepository
	availability *availability.Service
	events       *event.Service
	metrics      *metrics.Metrics
	cfg          Config
	now          func() time.Time
}

func NewService(
	vendorRepo repository.VendorRepository,
	workerRepo repository.WorkerRepository,
	apptRepo repository.AppointmentRepository,
	availabilitySvc *availability.Service,
	events *event.Service,
	m *metrics.Metrics,
	cfg Config,
) *Service {
	if cfg.MinLeadTime <= 0 {
		cfg.MinLeadTime = time.Hour
	}
	return &Service{
		vendorRepo:   vendorRepo,
		workerRepo:   workerRepo,
		apptRepo:     apptRepo,
		availability: availabilitySvc,
		events:       events,
		metrics:      m,
		cfg:          cfg,
		now:          time.Now,
	}
}

// CreateAppointment books a PENDING appointment for the acting customer.
// Preconditions run in a fixed order so clients get stable error
// messages: vendor, service, lead time, operating hours, worker. The
// insert itself is conflict-checked atomically in the repository, so two
// racing requests for the same worker and time can never both succeed.
func (s *Service) CreateAppointment(ctx context.Context, actor model.Actor, req *model.CreateAppointmentRequest) (*model.Appointment, error) {
	vendor, err := s.vendorRepo.Get(ctx, req.VendorID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("vendor")
	}
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if vendor.Status != model.VendorStatusActive {
		return nil, apperrors.NotFound("vendor")
	}

	service, err := s.vendorRepo.GetService(ctx, req.ServiceID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("service")
	}
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if service.VendorID != vendor.ID || !service.Active {
		return nil, apperrors.NotFound("service")
	}
	if service.Duration <= 0 {
		return nil, apperrors.Validation("service has a non-positive duration")
	}

	start := req.StartTime
	end := start.Add(time.Duration(service.Duration) * time.Minute)

	if start.Before(s.now().Add(s.cfg.MinLeadTime)) {
		return nil, apperrors.Validationf("appointments must be booked at least %s in advance", s.cfg.MinLeadTime)
	}

	open := availability.OperatingWindow(vendor.OperatingHours, start)
	if !open.Contains(start, end) {
		return nil, apperrors.Conflict("vendor is closed at the requested time")
	}

	appointment := &model.Appointment{
		CustomerID: actor.UserID,
		VendorID:   vendor.ID,
		ServiceID:  service.ID,
		StartTime:  start,
		EndTime:    end,
		Status:     model.AppointmentStatusPending,
		Notes:      req.Notes,
	}

	if req.WorkerID != nil {
		if err := s.bookWithWorker(ctx, appointment, *req.WorkerID); err != nil {
			return nil, err
		}
	} else {
		if err := s.bookAnyWorker(ctx, appointment); err != nil {
			return nil, err
		}
	}

	if s.metrics != nil {
		s.metrics.BookingsCreated.WithLabelValues(vendor.ID.String()).Inc()
	}
	s.emit(ctx, model.EventAppointmentCreated, appointment, "")
	return appointment, nil
}

func (s *Service) bookWithWorker(ctx context.Context, appointment *model.Appointment, workerID uuid.UUID) error {
	worker, err := s.workerRepo.Get(ctx, workerID)
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NotFound("worker")
	}
	if err != nil {
		return apperrors.Internal(err)
	}
	if worker.VendorID != appointment.VendorID {
		return apperrors.NotFound("worker")
	}
	if !offersService(worker, appointment.ServiceID) {
		return apperrors.Validation("worker does not offer this service")
	}

	window, err := s.availability.WorkerWindowFor(ctx, worker.ID, appointment.StartTime)
	if err != nil {
		return err
	}
	if !window.Contains(appointment.StartTime, appointment.EndTime) {
		s.countConflict("worker_unavailable")
		return apperrors.Conflict("worker is not available at the requested time")
	}

	appointment.WorkerID = &worker.ID
	err = s.apptRepo.CreateIfFree(ctx, appointment)
	if errors.Is(err, repository.ErrSlotTaken) {
		s.countConflict("slot_taken")
		return apperrors.Conflict("worker is not available at the requested time")
	}
	if err != nil {
		return apperrors.Internal(err)
	}
	return nil
}

// bookAnyWorker tries qualified workers in creation order so the pick is
// deterministic. A worker losing the conflict check is skipped, not
// fatal; the request fails only when no worker can take the slot.
func (s *Service) bookAnyWorker(ctx context.Context, appointment *model.Appointment) error {
	workers, err := s.workerRepo.ListQualified(ctx, appointment.VendorID, appointment.ServiceID)
	if err != nil {
		return apperrors.Internal(err)
	}

	for _, worker := range workers {
		window, err := s.availability.WorkerWindowFor(ctx, worker.ID, appointment.StartTime)
		if err != nil {
			return err
		}
		if !window.Contains(appointment.StartTime, appointment.EndTime) {
			continue
		}

		appointment.WorkerID = &worker.ID
		err = s.apptRepo.CreateIfFree(ctx, appointment)
		if errors.Is(err, repository.ErrSlotTaken) {
			continue
		}
		if err != nil {
			return apperrors.Internal(err)
		}
		return nil
	}

	appointment.WorkerID = nil
	s.countConflict("no_worker")
	return apperrors.Conflict("no worker is available at the requested time")
}

// Approve confirms a pending appointment. The assigned worker's calendar
// is re-verified under the same serialization as booking, so approval
// can never confirm an appointment into a conflict. An appointment that
// has no worker yet gets one here: the first qualified worker whose
// calendar can take the slot, in the same creation order booking uses.
func (s *Service) Approve(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Appointment, error) {
	appointment, err := s.getForVendorAction(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if appointment.Status != model.AppointmentStatusPending {
		return nil, apperrors.Conflictf("appointment is %s, not pending", appointment.EffectiveStatus(s.now()))
	}

	var confirmed *model.Appointment
	if appointment.WorkerID != nil {
		confirmed, err = s.apptRepo.ConfirmWithWorker(ctx, id, *appointment.WorkerID)
	} else {
		confirmed, err = s.confirmAnyWorker(ctx, appointment)
	}
	if errors.Is(err, repository.ErrStatusChanged) {
		return nil, apperrors.Conflict("appointment is no longer pending")
	}
	if errors.Is(err, repository.ErrSlotTaken) {
		s.countConflict("approve_conflict")
		if appointment.WorkerID != nil {
			return nil, apperrors.Conflict("worker is no longer available at this time")
		}
		return nil, apperrors.Conflict("no worker is available at the appointment time")
	}
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("appointment")
	}
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	s.emit(ctx, model.EventAppointmentConfirmed, confirmed, "")
	return confirmed, nil
}

// confirmAnyWorker confirms an unassigned appointment against the first
// qualified worker free for its interval, trying workers in creation
// order. Workers losing the atomic conflict check are skipped; sentinel
// errors pass through for the caller to map.
func (s *Service) confirmAnyWorker(ctx context.Context, appointment *model.Appointment) (*model.Appointment, error) {
	workers, err := s.workerRepo.ListQualified(ctx, appointment.VendorID, appointment.ServiceID)
	if err != nil {
		return nil, err
	}

	for _, worker := range workers {
		window, err := s.availability.WorkerWindowFor(ctx, worker.ID, appointment.StartTime)
		if err != nil {
			return nil, err
		}
		if !window.Contains(appointment.StartTime, appointment.EndTime) {
			continue
		}

		confirmed, err := s.apptRepo.ConfirmWithWorker(ctx, appointment.ID, worker.ID)
		if errors.Is(err, repository.ErrSlotTaken) {
			continue
		}
		return confirmed, err
	}

	return nil, repository.ErrSlotTaken
}

// Reject declines a pending appointment, recording the reason.
func (s *Service) Reject(ctx context.Context, actor model.Actor, id uuid.UUID, reason string) (*model.Appointment, error) {
	appointment, err := s.getForVendorAction(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if appointment.Status != model.AppointmentStatusPending {
		return nil, apperrors.Conflictf("appointment is %s, not pending", appointment.EffectiveStatus(s.now()))
	}

	updated, err := s.apptRepo.UpdateStatus(ctx, id,
		[]model.AppointmentStatus{model.AppointmentStatusPending},
		model.AppointmentStatusRejected, reason)
	if errors.Is(err, repository.ErrStatusChanged) {
		return nil, apperrors.Conflict("appointment is no longer pending")
	}
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("appointment")
	}
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	s.emit(ctx, model.EventAppointmentRejected, updated, reason)
	return updated, nil
}

// Cancel moves a live appointment to a cancelled state. Customers may
// cancel only their own appointments and only up to the minimum lead
// time before the start; vendor staff may cancel any live appointment of
// their vendor at any time.
func (s *Service) Cancel(ctx context.Context, actor model.Actor, id uuid.UUID, reason string) (*model.Appointment, error) {
	appointment, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	var target model.AppointmentStatus
	switch {
	case actor.Role == model.RoleCustomer:
		if appointment.CustomerID != actor.UserID {
			return nil, apperrors.NotFound("appointment")
		}
		if s.now().Add(s.cfg.MinLeadTime).After(appointment.StartTime) {
			return nil, apperrors.Conflictf("appointments can only be cancelled up to %s before the start time", s.cfg.MinLeadTime)
		}
		target = model.AppointmentStatusCancelledByUser
	case actor.CanManageVendor(appointment.VendorID):
		target = model.AppointmentStatusCancelledByVendor
	default:
		return nil, apperrors.Forbidden("not allowed to cancel this appointment")
	}

	effective := appointment.EffectiveStatus(s.now())
	if !model.CanTransition(effective, target) {
		return nil, apperrors.Conflictf("appointment is %s and cannot be cancelled", effective)
	}

	updated, err := s.apptRepo.UpdateStatus(ctx, id,
		[]model.AppointmentStatus{model.AppointmentStatusPending, model.AppointmentStatusConfirmed},
		target, reason)
	if errors.Is(err, repository.ErrStatusChanged) {
		return nil, apperrors.Conflict("appointment can no longer be cancelled")
	}
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("appointment")
	}
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	s.emit(ctx, model.EventAppointmentCancelled, updated, reason)
	return updated, nil
}

// MarkNoShow records that the customer did not appear. It is an
// administrative override: any live appointment can be marked regardless
// of the derived completion state.
func (s *Service) MarkNoShow(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Appointment, error) {
	if _, err := s.getForVendorAction(ctx, actor, id); err != nil {
		return nil, err
	}

	updated, err := s.apptRepo.UpdateStatus(ctx, id,
		[]model.AppointmentStatus{model.AppointmentStatusPending, model.AppointmentStatusConfirmed},
		model.AppointmentStatusNoShow, "")
	if errors.Is(err, repository.ErrStatusChanged) {
		return nil, apperrors.Conflict("appointment is already in a terminal state")
	}
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("appointment")
	}
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	s.emit(ctx, model.EventAppointmentNoShow, updated, "")
	return updated, nil
}

// AssignWorker reassigns (or clears) the worker on a live appointment.
// The new worker must belong to the vendor, offer the service and have
// the appointment's interval inside their working window; the final
// conflict check runs in the repository.
func (s *Service) AssignWorker(ctx context.Context, actor model.Actor, id uuid.UUID, workerID *uuid.UUID) (*model.Appointment, error) {
	appointment, err := s.getForVendorAction(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if workerID != nil {
		worker, err := s.workerRepo.Get(ctx, *workerID)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("worker")
		}
		if err != nil {
			return nil, apperrors.Internal(err)
		}
		if worker.VendorID != appointment.VendorID {
			return nil, apperrors.NotFound("worker")
		}
		if !offersService(worker, appointment.ServiceID) {
			return nil, apperrors.Validation("worker does not offer this service")
		}

		window, err := s.availability.WorkerWindowFor(ctx, worker.ID, appointment.StartTime)
		if err != nil {
			return nil, err
		}
		if !window.Contains(appointment.StartTime, appointment.EndTime) {
			return nil, apperrors.Conflict("worker is not available at the appointment time")
		}
	}

	updated, err := s.apptRepo.SetWorker(ctx, id, workerID)
	if errors.Is(err, repository.ErrSlotTaken) {
		s.countConflict("reassign_conflict")
		return nil, apperrors.Conflict("worker is not available at the appointment time")
	}
	if errors.Is(err, repository.ErrStatusChanged) {
		return nil, apperrors.Conflict("only live appointments can be reassigned")
	}
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("appointment")
	}
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return updated, nil
}

// Get returns an appointment visible to the actor, with the completion
// transition persisted opportunistically when the end time has passed.
func (s *Service) Get(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Appointment, error) {
	appointment, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	switch actor.Role {
	case model.RoleCustomer:
		if appointment.CustomerID != actor.UserID {
			return nil, apperrors.NotFound("appointment")
		}
	case model.RoleVendorOwner:
		if !actor.CanManageVendor(appointment.VendorID) {
			return nil, apperrors.NotFound("appointment")
		}
	}

	return s.settleCompletion(ctx, appointment), nil
}

// List returns appointments scoped to the actor: customers see their
// own, vendor owners their vendor's, super admins whatever the filters
// select. Statuses are reported as derived.
func (s *Service) List(ctx context.Context, actor model.Actor, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	if filters == nil {
		filters = &model.AppointmentFilters{}
	}

	switch actor.Role {
	case model.RoleCustomer:
		filters.CustomerID = &actor.UserID
	case model.RoleVendorOwner:
		if actor.VendorID == nil {
			return nil, apperrors.Forbidden("vendor owner has no vendor")
		}
		filters.VendorID = actor.VendorID
	case model.RoleSuperAdmin:
	default:
		return nil, apperrors.Forbidden("unknown role")
	}

	appointments, err := s.apptRepo.List(ctx, filters)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	now := s.now()
	for _, appointment := range appointments {
		appointment.Status = appointment.EffectiveStatus(now)
	}
	return appointments, nil
}

func (s *Service) get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	appointment, err := s.apptRepo.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("appointment")
	}
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return appointment, nil
}

func (s *Service) getForVendorAction(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Appointment, error) {
	appointment, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanManageVendor(appointment.VendorID) {
		return nil, apperrors.Forbidden("not allowed to manage this appointment")
	}
	return appointment, nil
}

// settleCompletion persists the confirmed → completed transition once
// the end time has passed. Best effort: a lost race just means the next
// reader persists it instead.
func (s *Service) settleCompletion(ctx context.Context, appointment *model.Appointment) *model.Appointment {
	if appointment.EffectiveStatus(s.now()) != model.AppointmentStatusCompleted ||
		appointment.Status == model.AppointmentStatusCompleted {
		return appointment
	}

	updated, err := s.apptRepo.UpdateStatus(ctx, appointment.ID,
		[]model.AppointmentStatus{model.AppointmentStatusConfirmed},
		model.AppointmentStatusCompleted, "")
	if err != nil {
		if !errors.Is(err, repository.ErrStatusChanged) {
			log.Warn().Err(err).Str("appointment_id", appointment.ID.String()).Msg("failed to persist completion")
		}
		appointment.Status = model.AppointmentStatusCompleted
		return appointment
	}
	return updated
}

func (s *Service) emit(ctx context.Context, eventType string, appointment *model.Appointment, reason string) {
	err := s.events.Emit(ctx, eventType, &model.AppointmentEventPayload{
		AppointmentID: appointment.ID,
		CustomerID:    appointment.CustomerID,
		VendorID:      appointment.VendorID,
		ServiceID:     appointment.ServiceID,
		WorkerID:      appointment.WorkerID,
		StartTime:     appointment.StartTime,
		Status:        appointment.Status,
		Reason:        reason,
	})
	if err != nil {
		log.Error().Err(err).Str("event_type", eventType).Str("appointment_id", appointment.ID.String()).Msg("failed to emit event")
	}
}

func (s *Service) countConflict(reason string) {
	if s.metrics != nil {
		s.metrics.BookingConflicts.WithLabelValues(reason).Inc()
	}
}

func offersService(worker *model.Worker, serviceID uuid.UUID) bool {
	for _, id := range worker.ServiceIDs {
		if id == serviceID {
			return true
		}
	}
	return false
}
