package booking

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salonhq/booking-api/internal/model"
	"github.com/salonhq/booking-api/internal/repository/repositorytest"
	"github.com/salonhq/booking-api/internal/service/availability"
	"github.com/salonhq/booking-api/internal/service/event"
	apperrors "github.com/salonhq/booking-api/pkg/errors"
)

type fixture struct {
	svc      *Service
	vendors  *repositorytest.VendorRepo
	workers  *repositorytest.WorkerRepo
	appts    *repositorytest.AppointmentRepo
	outbox   *repositorytest.OutboxRepo
	vendor   *model.Vendor
	service  *model.Service
	owner    model.Actor
	clockNow time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	vendors := repositorytest.NewVendorRepo()
	workers := repositorytest.NewWorkerRepo()
	appts := repositorytest.NewAppointmentRepo()
	outbox := repositorytest.NewOutboxRepo()

	ownerID := uuid.New()
	vendor := &model.Vendor{
		OwnerID: ownerID,
		Name:    "Shear Genius",
		Status:  model.VendorStatusActive,
		OperatingHours: model.OperatingHours{
			"monday": {Open: "09:00", Close: "17:00"},
		},
	}
	require.NoError(t, vendors.Create(context.Background(), vendor))

	service := &model.Service{
		VendorID: vendor.ID,
		Name:     "Haircut",
		Duration: 30,
		Active:   true,
	}
	require.NoError(t, vendors.CreateService(context.Background(), service))

	f := &fixture{
		vendors:  vendors,
		workers:  workers,
		appts:    appts,
		outbox:   outbox,
		vendor:   vendor,
		service:  service,
		owner:    model.Actor{UserID: ownerID, Role: model.RoleVendorOwner, VendorID: &vendor.ID},
		clockNow: time.Date(2026, 3, 9, 6, 0, 0, 0, time.UTC),
	}

	availabilitySvc := availability.NewService(vendors, workers, appts, nil, availability.Config{MinLeadTime: time.Hour})
	f.svc = NewService(vendors, workers, appts, availabilitySvc, event.NewService(outbox), nil, Config{MinLeadTime: time.Hour})
	f.svc.now = func() time.Time { return f.clockNow }
	return f
}

func (f *fixture) addWorker(t *testing.T, name string) *model.Worker {
	t.Helper()
	worker := &model.Worker{
		VendorID:   f.vendor.ID,
		Name:       name,
		ServiceIDs: []uuid.UUID{f.service.ID},
	}
	require.NoError(t, f.workers.Create(context.Background(), worker))
	f.workers.SetWeekly(worker.ID, &model.WorkerAvailability{
		WorkerID: worker.ID, DayOfWeek: 1, StartTime: "09:00", EndTime: "17:00", IsAvailable: true,
	})
	return worker
}

func customer() model.Actor {
	return model.Actor{UserID: uuid.New(), Role: model.RoleCustomer}
}

func (f *fixture) createAt(t *testing.T, actor model.Actor, hour, min int, workerID *uuid.UUID) *model.Appointment {
	t.Helper()
	appointment, err := f.svc.CreateAppointment(context.Background(), actor, &model.CreateAppointmentRequest{
		VendorID:  f.vendor.ID,
		ServiceID: f.service.ID,
		StartTime: time.Date(2026, 3, 9, hour, min, 0, 0, time.UTC),
		WorkerID:  workerID,
	})
	require.NoError(t, err)
	return appointment
}

func TestCreateAppointment(t *testing.T) {
	f := newFixture(t)
	worker := f.addWorker(t, "Dana")
	actor := customer()

	appointment := f.createAt(t, actor, 10, 0, &worker.ID)

	assert.Equal(t, model.AppointmentStatusPending, appointment.Status)
	assert.Equal(t, actor.UserID, appointment.CustomerID)
	require.NotNil(t, appointment.WorkerID)
	assert.Equal(t, worker.ID, *appointment.WorkerID)
	assert.Equal(t, time.Date(2026, 3, 9, 10, 30, 0, 0, time.UTC), appointment.EndTime)
	assert.Equal(t, []string{model.EventAppointmentCreated}, f.outbox.EventTypes())
}

func TestCreateAppointmentLeadTime(t *testing.T) {
	f := newFixture(t)
	worker := f.addWorker(t, "Dana")
	f.clockNow = time.Date(2026, 3, 9, 9, 45, 0, 0, time.UTC)

	_, err := f.svc.CreateAppointment(context.Background(), customer(), &model.CreateAppointmentRequest{
		VendorID:  f.vendor.ID,
		ServiceID: f.service.ID,
		StartTime: time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC),
		WorkerID:  &worker.ID,
	})
	assert.True(t, apperrors.IsValidation(err), "starts inside the minimum lead time")
}

func TestCreateAppointmentOutsideOperatingHours(t *testing.T) {
	f := newFixture(t)
	worker := f.addWorker(t, "Dana")

	// 16:45 + 30min spills past the 17:00 close.
	_, err := f.svc.CreateAppointment(context.Background(), customer(), &model.CreateAppointmentRequest{
		VendorID:  f.vendor.ID,
		ServiceID: f.service.ID,
		StartTime: time.Date(2026, 3, 9, 16, 45, 0, 0, time.UTC),
		WorkerID:  &worker.ID,
	})
	assert.True(t, apperrors.IsConflict(err))

	// Sunday has no operating hours at all.
	_, err = f.svc.CreateAppointment(context.Background(), customer(), &model.CreateAppointmentRequest{
		VendorID:  f.vendor.ID,
		ServiceID: f.service.ID,
		StartTime: time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC),
		WorkerID:  &worker.ID,
	})
	assert.True(t, apperrors.IsConflict(err))
}

func TestCreateAppointmentSlotTaken(t *testing.T) {
	f := newFixture(t)
	worker := f.addWorker(t, "Dana")
	f.createAt(t, customer(), 10, 0, &worker.ID)

	_, err := f.svc.CreateAppointment(context.Background(), customer(), &model.CreateAppointmentRequest{
		VendorID:  f.vendor.ID,
		ServiceID: f.service.ID,
		StartTime: time.Date(2026, 3, 9, 10, 15, 0, 0, time.UTC),
		WorkerID:  &worker.ID,
	})
	assert.True(t, apperrors.IsConflict(err), "overlapping booking for the same worker must lose")
}

func TestCreateAppointmentConcurrentSameSlot(t *testing.T) {
	f := newFixture(t)
	worker := f.addWorker(t, "Dana")

	const attempts = 16
	start := make(chan struct{})
	errs := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := f.svc.CreateAppointment(context.Background(), customer(), &model.CreateAppointmentRequest{
				VendorID:  f.vendor.ID,
				ServiceID: f.service.ID,
				StartTime: time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC),
				WorkerID:  &worker.ID,
			})
			errs <- err
		}()
	}
	close(start)
	wg.Wait()
	close(errs)

	var won, lost int
	for err := range errs {
		switch {
		case err == nil:
			won++
		case apperrors.IsConflict(err):
			lost++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, won, "exactly one booking may win the slot")
	assert.Equal(t, attempts-1, lost)
}

func TestCreateAppointmentUnqualifiedWorker(t *testing.T) {
	f := newFixture(t)
	worker := f.addWorker(t, "Dana")
	worker.ServiceIDs = nil

	_, err := f.svc.CreateAppointment(context.Background(), customer(), &model.CreateAppointmentRequest{
		VendorID:  f.vendor.ID,
		ServiceID: f.service.ID,
		StartTime: time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC),
		WorkerID:  &worker.ID,
	})
	assert.True(t, apperrors.IsValidation(err))
}

func TestCreateAppointmentAutoAssign(t *testing.T) {
	f := newFixture(t)
	first := f.addWorker(t, "Dana")
	second := f.addWorker(t, "Eli")

	// With both free the earliest-created worker is picked.
	appointment := f.createAt(t, customer(), 10, 0, nil)
	require.NotNil(t, appointment.WorkerID)
	assert.Equal(t, first.ID, *appointment.WorkerID)

	// With the first booked, the next qualified worker takes it.
	appointment = f.createAt(t, customer(), 10, 0, nil)
	require.NotNil(t, appointment.WorkerID)
	assert.Equal(t, second.ID, *appointment.WorkerID)

	// With everyone booked the request fails with a conflict.
	_, err := f.svc.CreateAppointment(context.Background(), customer(), &model.CreateAppointmentRequest{
		VendorID:  f.vendor.ID,
		ServiceID: f.service.ID,
		StartTime: time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC),
	})
	assert.True(t, apperrors.IsConflict(err))
}

func TestApprove(t *testing.T) {
	f := newFixture(t)
	worker := f.addWorker(t, "Dana")
	appointment := f.createAt(t, customer(), 10, 0, &worker.ID)

	confirmed, err := f.svc.Approve(context.Background(), f.owner, appointment.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusConfirmed, confirmed.Status)
	assert.Contains(t, f.outbox.EventTypes(), model.EventAppointmentConfirmed)

	// Approving twice fails: the appointment is no longer pending.
	_, err = f.svc.Approve(context.Background(), f.owner, appointment.ID)
	assert.True(t, apperrors.IsConflict(err))
}

func TestApproveAutoAssignsWorker(t *testing.T) {
	f := newFixture(t)
	worker := f.addWorker(t, "Dana")
	appointment := f.createAt(t, customer(), 10, 0, &worker.ID)

	// The vendor can park an appointment without a worker; approval then
	// assigns the first qualified worker free for the slot.
	_, err := f.svc.AssignWorker(context.Background(), f.owner, appointment.ID, nil)
	require.NoError(t, err)

	confirmed, err := f.svc.Approve(context.Background(), f.owner, appointment.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusConfirmed, confirmed.Status)
	require.NotNil(t, confirmed.WorkerID)
	assert.Equal(t, worker.ID, *confirmed.WorkerID)
}

func TestApproveAutoAssignSkipsBusyWorker(t *testing.T) {
	f := newFixture(t)
	first := f.addWorker(t, "Dana")
	second := f.addWorker(t, "Eli")
	appointment := f.createAt(t, customer(), 10, 0, &first.ID)
	_, err := f.svc.AssignWorker(context.Background(), f.owner, appointment.ID, nil)
	require.NoError(t, err)

	// Dana gets booked elsewhere while the appointment sits unassigned.
	f.createAt(t, customer(), 10, 0, &first.ID)

	confirmed, err := f.svc.Approve(context.Background(), f.owner, appointment.ID)
	require.NoError(t, err)
	require.NotNil(t, confirmed.WorkerID)
	assert.Equal(t, second.ID, *confirmed.WorkerID)

	// With every qualified worker busy, approval conflicts.
	parked := f.createAt(t, customer(), 11, 0, &first.ID)
	_, err = f.svc.AssignWorker(context.Background(), f.owner, parked.ID, nil)
	require.NoError(t, err)
	f.createAt(t, customer(), 11, 0, &first.ID)
	f.createAt(t, customer(), 11, 0, &second.ID)
	_, err = f.svc.Approve(context.Background(), f.owner, parked.ID)
	assert.True(t, apperrors.IsConflict(err))
}

func TestApproveForbiddenForCustomer(t *testing.T) {
	f := newFixture(t)
	worker := f.addWorker(t, "Dana")
	actor := customer()
	appointment := f.createAt(t, actor, 10, 0, &worker.ID)

	_, err := f.svc.Approve(context.Background(), actor, appointment.ID)
	assert.True(t, apperrors.IsForbidden(err))
}

func TestApproveRechecksWorkerCalendar(t *testing.T) {
	f := newFixture(t)
	worker := f.addWorker(t, "Dana")
	appointment := f.createAt(t, customer(), 10, 0, &worker.ID)

	// Seed a confirmed booking that landed on the same slot out of band,
	// e.g. through a reassignment that raced this approval.
	conflicting := &model.Appointment{
		Base:       model.Base{ID: uuid.New()},
		CustomerID: uuid.New(),
		VendorID:   f.vendor.ID,
		ServiceID:  f.service.ID,
		WorkerID:   &worker.ID,
		StartTime:  appointment.StartTime,
		EndTime:    appointment.EndTime,
		Status:     model.AppointmentStatusConfirmed,
	}
	f.appts.Appointments[conflicting.ID] = conflicting

	_, err := f.svc.Approve(context.Background(), f.owner, appointment.ID)
	assert.True(t, apperrors.IsConflict(err), "approval must re-verify the worker's calendar")
}

func TestReject(t *testing.T) {
	f := newFixture(t)
	worker := f.addWorker(t, "Dana")
	appointment := f.createAt(t, customer(), 10, 0, &worker.ID)

	rejected, err := f.svc.Reject(context.Background(), f.owner, appointment.ID, "double booked in person")
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusRejected, rejected.Status)
	assert.Contains(t, rejected.Notes, "double booked in person")
	assert.Contains(t, f.outbox.EventTypes(), model.EventAppointmentRejected)
}

func TestCancelByCustomer(t *testing.T) {
	f := newFixture(t)
	worker := f.addWorker(t, "Dana")
	actor := customer()
	appointment := f.createAt(t, actor, 14, 0, &worker.ID)

	cancelled, err := f.svc.Cancel(context.Background(), actor, appointment.ID, "")
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCancelledByUser, cancelled.Status)
	assert.Contains(t, f.outbox.EventTypes(), model.EventAppointmentCancelled)
}

func TestCancelByCustomerInsideLeadTime(t *testing.T) {
	f := newFixture(t)
	worker := f.addWorker(t, "Dana")
	actor := customer()
	appointment := f.createAt(t, actor, 14, 0, &worker.ID)

	f.clockNow = time.Date(2026, 3, 9, 13, 30, 0, 0, time.UTC)
	_, err := f.svc.Cancel(context.Background(), actor, appointment.ID, "")
	assert.True(t, apperrors.IsConflict(err), "customer cancellation blocked inside lead time")

	// The vendor can still cancel late.
	cancelled, err := f.svc.Cancel(context.Background(), f.owner, appointment.ID, "stylist ill")
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCancelledByVendor, cancelled.Status)
}

func TestCancelSomeoneElsesAppointment(t *testing.T) {
	f := newFixture(t)
	worker := f.addWorker(t, "Dana")
	appointment := f.createAt(t, customer(), 14, 0, &worker.ID)

	_, err := f.svc.Cancel(context.Background(), customer(), appointment.ID, "")
	assert.True(t, apperrors.IsNotFound(err), "foreign appointments stay invisible")
}

func TestMarkNoShow(t *testing.T) {
	f := newFixture(t)
	worker := f.addWorker(t, "Dana")
	appointment := f.createAt(t, customer(), 10, 0, &worker.ID)
	_, err := f.svc.Approve(context.Background(), f.owner, appointment.ID)
	require.NoError(t, err)

	// No-show is typically recorded after the slot has passed.
	f.clockNow = time.Date(2026, 3, 9, 11, 0, 0, 0, time.UTC)
	marked, err := f.svc.MarkNoShow(context.Background(), f.owner, appointment.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusNoShow, marked.Status)

	_, err = f.svc.MarkNoShow(context.Background(), f.owner, appointment.ID)
	assert.True(t, apperrors.IsConflict(err), "terminal states cannot be overridden")
}

func TestAssignWorker(t *testing.T) {
	f := newFixture(t)
	first := f.addWorker(t, "Dana")
	second := f.addWorker(t, "Eli")
	appointment := f.createAt(t, customer(), 10, 0, &first.ID)

	updated, err := f.svc.AssignWorker(context.Background(), f.owner, appointment.ID, &second.ID)
	require.NoError(t, err)
	require.NotNil(t, updated.WorkerID)
	assert.Equal(t, second.ID, *updated.WorkerID)

	// Reassigning onto a busy worker conflicts.
	f.createAt(t, customer(), 10, 0, &first.ID)
	_, err = f.svc.AssignWorker(context.Background(), f.owner, appointment.ID, &first.ID)
	assert.True(t, apperrors.IsConflict(err))
}

func TestGetSettlesCompletion(t *testing.T) {
	f := newFixture(t)
	worker := f.addWorker(t, "Dana")
	actor := customer()
	appointment := f.createAt(t, actor, 10, 0, &worker.ID)
	_, err := f.svc.Approve(context.Background(), f.owner, appointment.ID)
	require.NoError(t, err)

	f.clockNow = time.Date(2026, 3, 9, 11, 0, 0, 0, time.UTC)
	got, err := f.svc.Get(context.Background(), actor, appointment.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCompleted, got.Status)

	// The transition is persisted, not just derived.
	assert.Equal(t, model.AppointmentStatusCompleted, f.appts.Appointments[appointment.ID].Status)
}

func TestListScoping(t *testing.T) {
	f := newFixture(t)
	worker := f.addWorker(t, "Dana")
	alice := customer()
	bob := customer()
	f.createAt(t, alice, 10, 0, &worker.ID)
	f.createAt(t, bob, 11, 0, &worker.ID)

	mine, err := f.svc.List(context.Background(), alice, nil)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, alice.UserID, mine[0].CustomerID)

	all, err := f.svc.List(context.Background(), f.owner, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
