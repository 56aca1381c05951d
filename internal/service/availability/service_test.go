package availability

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salonhq/booking-api/internal/model"
	"github.com/salonhq/booking-api/internal/repository/repositorytest"
	apperrors "github.com/salonhq/booking-api/pkg/errors"
)

type fixture struct {
	svc      *Service
	vendors  *repositorytest.VendorRepo
	workers  *repositorytest.WorkerRepo
	appts    *repositorytest.AppointmentRepo
	vendor   *model.Vendor
	service  *model.Service
	clockNow time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	vendors := repositorytest.NewVendorRepo()
	workers := repositorytest.NewWorkerRepo()
	appts := repositorytest.NewAppointmentRepo()

	vendor := &model.Vendor{
		Name:   "Shear Genius",
		Status: model.VendorStatusActive,
		OperatingHours: model.OperatingHours{
			"monday": {Open: "09:00", Close: "17:00"},
			"sunday": {IsClosed: true},
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
		vendor:   vendor,
		service:  service,
		clockNow: time.Date(2026, 3, 9, 6, 0, 0, 0, time.UTC),
	}
	f.svc = NewService(vendors, workers, appts, nil, Config{MinLeadTime: time.Hour})
	f.svc.now = func() time.Time { return f.clockNow }
	return f
}

func (f *fixture) addWorker(t *testing.T, name string, rules ...*model.WorkerAvailability) *model.Worker {
	t.Helper()
	worker := &model.Worker{
		VendorID:   f.vendor.ID,
		Name:       name,
		ServiceIDs: []uuid.UUID{f.service.ID},
	}
	require.NoError(t, f.workers.Create(context.Background(), worker))
	for _, rule := range rules {
		rule.WorkerID = worker.ID
	}
	f.workers.SetWeekly(worker.ID, rules...)
	return worker
}

func allDay() *model.WorkerAvailability {
	return &model.WorkerAvailability{DayOfWeek: 1, StartTime: "09:00", EndTime: "17:00", IsAvailable: true}
}

func (f *fixture) book(t *testing.T, workerID uuid.UUID, startHour, startMin, minutes int) {
	t.Helper()
	start := time.Date(2026, 3, 9, startHour, startMin, 0, 0, time.UTC)
	err := f.appts.CreateIfFree(context.Background(), &model.Appointment{
		CustomerID: uuid.New(),
		VendorID:   f.vendor.ID,
		ServiceID:  f.service.ID,
		WorkerID:   &workerID,
		StartTime:  start,
		EndTime:    start.Add(time.Duration(minutes) * time.Minute),
		Status:     model.AppointmentStatusConfirmed,
	})
	require.NoError(t, err)
}

func TestGetAvailableSlotsFullDay(t *testing.T) {
	f := newFixture(t)
	f.addWorker(t, "Dana", allDay())

	result, err := f.svc.GetAvailableSlots(context.Background(), f.vendor.ID, f.service.ID, monday, nil)
	require.NoError(t, err)
	require.Len(t, result.Slots, 16, "30-minute slots from 09:00 to 16:30")
	assert.Equal(t, "09:00", result.Slots[0].Time)
	assert.Equal(t, "16:30", result.Slots[len(result.Slots)-1].Time)
	assert.Len(t, result.Slots[0].AvailableWorkers, 1)
	assert.Empty(t, result.Message)
}

func TestGetAvailableSlotsExcludesBookedInterval(t *testing.T) {
	f := newFixture(t)
	worker := f.addWorker(t, "Dana", allDay())
	f.book(t, worker.ID, 10, 0, 30)

	result, err := f.svc.GetAvailableSlots(context.Background(), f.vendor.ID, f.service.ID, monday, nil)
	require.NoError(t, err)
	for _, slot := range result.Slots {
		assert.NotEqual(t, "10:00", slot.Time)
	}
	require.Len(t, result.Slots, 15)
}

func TestGetAvailableSlotsSecondWorkerCoversBooking(t *testing.T) {
	f := newFixture(t)
	busy := f.addWorker(t, "Dana", allDay())
	f.addWorker(t, "Eli", allDay())
	f.book(t, busy.ID, 10, 0, 30)

	result, err := f.svc.GetAvailableSlots(context.Background(), f.vendor.ID, f.service.ID, monday, nil)
	require.NoError(t, err)

	var found bool
	for _, slot := range result.Slots {
		if slot.Time == "10:00" {
			found = true
			require.Len(t, slot.AvailableWorkers, 1)
			assert.Equal(t, "Eli", slot.AvailableWorkers[0].Name)
		}
	}
	assert.True(t, found, "slot stays open while another worker is free")
}

func TestGetAvailableSlotsWorkerWindowLimits(t *testing.T) {
	f := newFixture(t)
	f.addWorker(t, "Dana", &model.WorkerAvailability{
		DayOfWeek: 1, StartTime: "12:00", EndTime: "14:00", IsAvailable: true,
	})

	result, err := f.svc.GetAvailableSlots(context.Background(), f.vendor.ID, f.service.ID, monday, nil)
	require.NoError(t, err)
	require.Len(t, result.Slots, 4)
	assert.Equal(t, "12:00", result.Slots[0].Time)
	assert.Equal(t, "13:30", result.Slots[3].Time)
}

func TestGetAvailableSlotsOverridePrecedence(t *testing.T) {
	f := newFixture(t)
	worker := f.addWorker(t, "Dana", allDay())
	f.workers.SetOverride(worker.ID, &model.WorkerScheduleOverride{
		WorkerID: worker.ID, Date: monday, StartTime: "13:00", EndTime: "15:00",
	})

	result, err := f.svc.GetAvailableSlots(context.Background(), f.vendor.ID, f.service.ID, monday, nil)
	require.NoError(t, err)
	require.Len(t, result.Slots, 4)
	assert.Equal(t, "13:00", result.Slots[0].Time)
}

func TestGetAvailableSlotsDayOffOverride(t *testing.T) {
	f := newFixture(t)
	worker := f.addWorker(t, "Dana", allDay())
	f.workers.SetOverride(worker.ID, &model.WorkerScheduleOverride{
		WorkerID: worker.ID, Date: monday, IsDayOff: true,
	})

	result, err := f.svc.GetAvailableSlots(context.Background(), f.vendor.ID, f.service.ID, monday, nil)
	require.NoError(t, err)
	assert.Empty(t, result.Slots)
	assert.Equal(t, msgFullyBooked, result.Message)
}

func TestGetAvailableSlotsLeadTime(t *testing.T) {
	f := newFixture(t)
	f.addWorker(t, "Dana", allDay())
	f.clockNow = time.Date(2026, 3, 9, 9, 30, 0, 0, time.UTC)

	result, err := f.svc.GetAvailableSlots(context.Background(), f.vendor.ID, f.service.ID, monday, nil)
	require.NoError(t, err)
	require.NotEmpty(t, result.Slots)
	// earliest bookable start is now + 1h; 10:30 is exactly on the cutoff
	assert.Equal(t, "10:30", result.Slots[0].Time)
}

func TestGetAvailableSlotsClosedDay(t *testing.T) {
	f := newFixture(t)
	f.addWorker(t, "Dana", allDay())

	sunday := monday.AddDate(0, 0, 6)
	result, err := f.svc.GetAvailableSlots(context.Background(), f.vendor.ID, f.service.ID, sunday, nil)
	require.NoError(t, err)
	assert.Empty(t, result.Slots)
	assert.Equal(t, msgClosed, result.Message)
}

func TestGetAvailableSlotsNoQualifiedWorkers(t *testing.T) {
	f := newFixture(t)

	result, err := f.svc.GetAvailableSlots(context.Background(), f.vendor.ID, f.service.ID, monday, nil)
	require.NoError(t, err)
	assert.Empty(t, result.Slots)
	assert.Equal(t, msgNoWorkers, result.Message)
}

func TestGetAvailableSlotsPreferredWorker(t *testing.T) {
	f := newFixture(t)
	preferred := f.addWorker(t, "Dana", &model.WorkerAvailability{
		DayOfWeek: 1, StartTime: "09:00", EndTime: "12:00", IsAvailable: true,
	})
	f.addWorker(t, "Eli", allDay())

	result, err := f.svc.GetAvailableSlots(context.Background(), f.vendor.ID, f.service.ID, monday, &preferred.ID)
	require.NoError(t, err)
	require.Len(t, result.Slots, 6, "slots limited to the preferred worker's window")
	for _, slot := range result.Slots {
		require.Len(t, slot.AvailableWorkers, 1)
		assert.Equal(t, preferred.ID, slot.AvailableWorkers[0].ID)
	}
}

func TestGetAvailableSlotsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.addWorker(t, "Dana", allDay())

	first, err := f.svc.GetAvailableSlots(context.Background(), f.vendor.ID, f.service.ID, monday, nil)
	require.NoError(t, err)
	second, err := f.svc.GetAvailableSlots(context.Background(), f.vendor.ID, f.service.ID, monday, nil)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestGetAvailableSlotsInactiveVendor(t *testing.T) {
	f := newFixture(t)
	f.addWorker(t, "Dana", allDay())
	f.vendor.Status = model.VendorStatusSuspended

	_, err := f.svc.GetAvailableSlots(context.Background(), f.vendor.ID, f.service.ID, monday, nil)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestGetAvailableSlotsForeignService(t *testing.T) {
	f := newFixture(t)
	f.addWorker(t, "Dana", allDay())

	other := &model.Service{VendorID: uuid.New(), Name: "Massage", Duration: 60, Active: true}
	require.NoError(t, f.vendors.CreateService(context.Background(), other))

	_, err := f.svc.GetAvailableSlots(context.Background(), f.vendor.ID, other.ID, monday, nil)
	assert.True(t, apperrors.IsNotFound(err))
}
