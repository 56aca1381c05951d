package schedule

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/salonhq/booking-api/internal/model"
	"github.com/salonhq/booking-api/internal/repository"
	"github.com/salonhq/booking-api/internal/service/availability"
	apperrors "github.com/salonhq/booking-api/pkg/errors"
)

const dateLayout = "2006-01-02"

// Schedule is a worker's full schedule definition: the weekly rules plus
// date overrides.
type Schedule struct {
	Weekly    []*model.WorkerAvailability     `json:"weekly"`
	Overrides []*model.WorkerScheduleOverride `json:"overrides"`
}

// Service manages worker schedules. Updates replace the whole schedule
// atomically, so a partially applied week can never be observed.
type Service struct {
	workerRepo   repository.WorkerRepository
	availability *availability.Service
}

func NewService(workerRepo repository.WorkerRepository, availabilitySvc *availability.Service) *Service {
	return &Service{workerRepo: workerRepo, availability: availabilitySvc}
}

// Get returns the worker's weekly rules and the overrides falling in
// [from, to].
func (s *Service) Get(ctx context.Context, workerID uuid.UUID, from, to time.Time) (*Schedule, error) {
	worker, err := s.getWorker(ctx, workerID)
	if err != nil {
		return nil, err
	}

	weekly, err := s.workerRepo.ListWeekly(ctx, worker.ID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	overrides, err := s.workerRepo.ListOverrides(ctx, worker.ID, from, to)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return &Schedule{Weekly: weekly, Overrides: overrides}, nil
}

// Update validates and replaces the worker's entire schedule. Existing
// appointments are not touched: shrinking a window does not cancel
// bookings already inside it, it only stops new ones.
func (s *Service) Update(ctx context.Context, actor model.Actor, workerID uuid.UUID, req *model.UpdateScheduleRequest) (*Schedule, error) {
	worker, err := s.getWorker(ctx, workerID)
	if err != nil {
		return nil, err
	}
	if !actor.CanManageVendor(worker.VendorID) {
		return nil, apperrors.Forbidden("not allowed to manage this worker's schedule")
	}

	weekly, err := buildWeekly(worker.ID, req.Weekly)
	if err != nil {
		return nil, err
	}
	overrides, err := buildOverrides(worker.ID, req.Overrides)
	if err != nil {
		return nil, err
	}

	if err := s.workerRepo.ReplaceSchedule(ctx, worker.ID, weekly, overrides); err != nil {
		return nil, apperrors.Internal(err)
	}
	s.availability.Invalidate(worker.VendorID)
	return &Schedule{Weekly: weekly, Overrides: overrides}, nil
}

func (s *Service) getWorker(ctx context.Context, workerID uuid.UUID) (*model.Worker, error) {
	worker, err := s.workerRepo.Get(ctx, workerID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("worker")
	}
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return worker, nil
}

func buildWeekly(workerID uuid.UUID, inputs []model.WeeklyRuleInput) ([]*model.WorkerAvailability, error) {
	seen := make(map[int]bool, len(inputs))
	rules := make([]*model.WorkerAvailability, 0, len(inputs))
	for _, in := range inputs {
		if in.DayOfWeek < 0 || in.DayOfWeek > 6 {
			return nil, apperrors.Validationf("day_of_week %d out of range", in.DayOfWeek)
		}
		if seen[in.DayOfWeek] {
			return nil, apperrors.Validationf("duplicate weekly rule for day %d", in.DayOfWeek)
		}
		seen[in.DayOfWeek] = true

		if in.IsAvailable {
			if err := checkWindow(in.StartTime, in.EndTime); err != nil {
				return nil, apperrors.Validationf("weekly rule for day %d: %v", in.DayOfWeek, err)
			}
		}
		rules = append(rules, &model.WorkerAvailability{
			WorkerID:    workerID,
			DayOfWeek:   in.DayOfWeek,
			StartTime:   in.StartTime,
			EndTime:     in.EndTime,
			IsAvailable: in.IsAvailable,
		})
	}
	return rules, nil
}

func buildOverrides(workerID uuid.UUID, inputs []model.OverrideInput) ([]*model.WorkerScheduleOverride, error) {
	seen := make(map[string]bool, len(inputs))
	overrides := make([]*model.WorkerScheduleOverride, 0, len(inputs))
	for _, in := range inputs {
		date, err := time.Parse(dateLayout, in.Date)
		if err != nil {
			return nil, apperrors.Validationf("invalid override date %q", in.Date)
		}
		if seen[in.Date] {
			return nil, apperrors.Validationf("duplicate override for date %s", in.Date)
		}
		seen[in.Date] = true

		if !in.IsDayOff {
			if err := checkWindow(in.StartTime, in.EndTime); err != nil {
				return nil, apperrors.Validationf("override for %s: %v", in.Date, err)
			}
		}
		overrides = append(overrides, &model.WorkerScheduleOverride{
			WorkerID:  workerID,
			Date:      date,
			IsDayOff:  in.IsDayOff,
			StartTime: in.StartTime,
			EndTime:   in.EndTime,
			Note:      in.Note,
		})
	}
	return overrides, nil
}

func checkWindow(startStr, endStr string) error {
	start, err := model.ParseClock(startStr)
	if err != nil {
		return err
	}
	end, err := model.ParseClock(endStr)
	if err != nil {
		return err
	}
	if start >= end {
		return errors.New("start time must be before end time")
	}
	return nil
}
