package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salonhq/booking-api/internal/model"
	"github.com/salonhq/booking-api/internal/repository/repositorytest"
	"github.com/salonhq/booking-api/internal/service/availability"
	apperrors "github.com/salonhq/booking-api/pkg/errors"
)

type fixture struct {
	svc     *Service
	workers *repositorytest.WorkerRepo
	worker  *model.Worker
	owner   model.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	vendors := repositorytest.NewVendorRepo()
	workers := repositorytest.NewWorkerRepo()
	appts := repositorytest.NewAppointmentRepo()

	vendorID := uuid.New()
	worker := &model.Worker{VendorID: vendorID, Name: "Dana"}
	require.NoError(t, workers.Create(context.Background(), worker))

	availabilitySvc := availability.NewService(vendors, workers, appts, nil, availability.Config{})
	return &fixture{
		svc:     NewService(workers, availabilitySvc),
		workers: workers,
		worker:  worker,
		owner:   model.Actor{UserID: uuid.New(), Role: model.RoleVendorOwner, VendorID: &vendorID},
	}
}

func TestUpdateScheduleReplacesAll(t *testing.T) {
	f := newFixture(t)
	f.workers.SetWeekly(f.worker.ID,
		&model.WorkerAvailability{WorkerID: f.worker.ID, DayOfWeek: 1, StartTime: "09:00", EndTime: "17:00", IsAvailable: true},
		&model.WorkerAvailability{WorkerID: f.worker.ID, DayOfWeek: 2, StartTime: "09:00", EndTime: "17:00", IsAvailable: true},
	)

	updated, err := f.svc.Update(context.Background(), f.owner, f.worker.ID, &model.UpdateScheduleRequest{
		Weekly: []model.WeeklyRuleInput{
			{DayOfWeek: 3, StartTime: "10:00", EndTime: "16:00", IsAvailable: true},
		},
		Overrides: []model.OverrideInput{
			{Date: "2026-03-09", IsDayOff: true, Note: "public holiday"},
		},
	})
	require.NoError(t, err)
	require.Len(t, updated.Weekly, 1)
	assert.Equal(t, 3, updated.Weekly[0].DayOfWeek)
	require.Len(t, updated.Overrides, 1)
	assert.True(t, updated.Overrides[0].IsDayOff)

	// The old rules are gone, not merged.
	weekly, err := f.workers.ListWeekly(context.Background(), f.worker.ID)
	require.NoError(t, err)
	assert.Len(t, weekly, 1)

	override, err := f.workers.GetOverride(context.Background(), f.worker.ID, time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "public holiday", override.Note)
}

func TestUpdateScheduleValidation(t *testing.T) {
	f := newFixture(t)

	cases := []struct {
		name string
		req  *model.UpdateScheduleRequest
	}{
		{"day out of range", &model.UpdateScheduleRequest{
			Weekly: []model.WeeklyRuleInput{{DayOfWeek: 7, StartTime: "09:00", EndTime: "17:00", IsAvailable: true}},
		}},
		{"duplicate weekday", &model.UpdateScheduleRequest{
			Weekly: []model.WeeklyRuleInput{
				{DayOfWeek: 1, StartTime: "09:00", EndTime: "12:00", IsAvailable: true},
				{DayOfWeek: 1, StartTime: "13:00", EndTime: "17:00", IsAvailable: true},
			},
		}},
		{"inverted window", &model.UpdateScheduleRequest{
			Weekly: []model.WeeklyRuleInput{{DayOfWeek: 1, StartTime: "17:00", EndTime: "09:00", IsAvailable: true}},
		}},
		{"malformed time", &model.UpdateScheduleRequest{
			Weekly: []model.WeeklyRuleInput{{DayOfWeek: 1, StartTime: "9am", EndTime: "17:00", IsAvailable: true}},
		}},
		{"bad override date", &model.UpdateScheduleRequest{
			Overrides: []model.OverrideInput{{Date: "09/03/2026", IsDayOff: true}},
		}},
		{"duplicate override date", &model.UpdateScheduleRequest{
			Overrides: []model.OverrideInput{
				{Date: "2026-03-09", IsDayOff: true},
				{Date: "2026-03-09", StartTime: "10:00", EndTime: "12:00"},
			},
		}},
		{"override missing window", &model.UpdateScheduleRequest{
			Overrides: []model.OverrideInput{{Date: "2026-03-09"}},
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Update(context.Background(), f.owner, f.worker.ID, tc.req)
			assert.True(t, apperrors.IsValidation(err))
		})
	}
}

func TestUpdateScheduleUnavailableDayNeedsNoWindow(t *testing.T) {
	f := newFixture(t)

	updated, err := f.svc.Update(context.Background(), f.owner, f.worker.ID, &model.UpdateScheduleRequest{
		Weekly: []model.WeeklyRuleInput{{DayOfWeek: 1, IsAvailable: false}},
	})
	require.NoError(t, err)
	require.Len(t, updated.Weekly, 1)
	assert.False(t, updated.Weekly[0].IsAvailable)
}

func TestUpdateScheduleAuthz(t *testing.T) {
	f := newFixture(t)

	otherVendor := uuid.New()
	stranger := model.Actor{UserID: uuid.New(), Role: model.RoleVendorOwner, VendorID: &otherVendor}
	_, err := f.svc.Update(context.Background(), stranger, f.worker.ID, &model.UpdateScheduleRequest{})
	assert.True(t, apperrors.IsForbidden(err))

	_, err = f.svc.Update(context.Background(), f.owner, uuid.New(), &model.UpdateScheduleRequest{})
	assert.True(t, apperrors.IsNotFound(err))
}

func TestGetSchedule(t *testing.T) {
	f := newFixture(t)
	f.workers.SetWeekly(f.worker.ID,
		&model.WorkerAvailability{WorkerID: f.worker.ID, DayOfWeek: 1, StartTime: "09:00", EndTime: "17:00", IsAvailable: true},
	)
	f.workers.SetOverride(f.worker.ID, &model.WorkerScheduleOverride{
		WorkerID: f.worker.ID,
		Date:     time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC),
		IsDayOff: true,
	})

	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
	sched, err := f.svc.Get(context.Background(), f.worker.ID, from, to)
	require.NoError(t, err)
	assert.Len(t, sched.Weekly, 1)
	assert.Len(t, sched.Overrides, 1)

	// Overrides outside the window are filtered out.
	sched, err = f.svc.Get(context.Background(), f.worker.ID, to, to.AddDate(0, 1, 0))
	require.NoError(t, err)
	assert.Empty(t, sched.Overrides)
}
