package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/salonhq/booking-api/internal/model"
	"github.com/salonhq/booking-api/internal/repository"
	apperrors "github.com/salonhq/booking-api/pkg/errors"
	"github.com/salonhq/booking-api/pkg/metrics"
)

// Messages returned alongside empty slot lists so callers can tell a
// closed vendor from a fully booked one.
const (
	msgClosed      = "vendor is closed on this date"
	msgNoWorkers   = "no workers offer this service"
	msgFullyBooked = "fully booked on this date"
)

type Config struct {
	// MinLeadTime excludes slots starting before now + MinLeadTime.
	MinLeadTime time.Duration
	// CacheTTL bounds staleness of vendor/worker lookups during slot
	// discovery. Booking re-reads the authoritative store and never
	// consults this cache.
	CacheTTL time.Duration
}

type Service struct {
	vendorRepo repository.VendorRepository
	workerRepo repository.WorkerRepository
	apptRepo   repository.AppointmentRepository
	cache      *gocache.Cache
	metrics    *metrics.Metrics
	cfg        Config
	now        func() time.Time
}

func NewService(
	vendorRepo repository.VendorRepository,
	workerRepo repository.WorkerRepository,
	apptRepo repository.AppointmentRepository,
	m *metrics.Metrics,
	cfg Config,
) *Service {
	if cfg.MinLeadTime <= 0 {
		cfg.MinLeadTime = time.Hour
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 30 * time.Second
	}
	return &Service{
		vendorRepo: vendorRepo,
		workerRepo: workerRepo,
		apptRepo:   apptRepo,
		cache:      gocache.New(cfg.CacheTTL, 2*cfg.CacheTTL),
		metrics:    m,
		cfg:        cfg,
		now:        time.Now,
	}
}

// GetAvailableSlots computes the bookable slots for a vendor, service
// and date. Candidate starts are service-duration-aligned: every
// `duration` minutes from open to close-duration inclusive. Each slot
// lists the workers free for the full interval; slots with no free
// worker are omitted. When preferredWorkerID is set the result is
// filtered to slots that worker can take, matching the worker-selection
// default used at booking time.
func (s *Service) GetAvailableSlots(ctx context.Context, vendorID, serviceID uuid.UUID, date time.Time, preferredWorkerID *uuid.UUID) (*model.SlotsResult, error) {
	if s.metrics != nil {
		s.metrics.SlotQueries.Inc()
		start := time.Now()
		defer func() {
			s.metrics.SlotQueryLatency.Observe(time.Since(start).Seconds())
		}()
	}

	vendor, err := s.getVendor(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	if vendor.Status != model.VendorStatusActive {
		return nil, apperrors.NotFound("vendor")
	}

	service, err := s.getService(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	if service.VendorID != vendorID {
		return nil, apperrors.NotFound("service")
	}
	if !service.Active {
		return nil, apperrors.NotFound("service")
	}
	if service.Duration <= 0 {
		return nil, apperrors.Validation("service has a non-positive duration")
	}

	open := OperatingWindow(vendor.OperatingHours, date)
	if open == nil {
		return &model.SlotsResult{Message: msgClosed}, nil
	}

	workers, err := s.getQualifiedWorkers(ctx, vendorID, serviceID)
	if err != nil {
		return nil, err
	}
	if preferredWorkerID != nil {
		workers = filterWorker(workers, *preferredWorkerID)
	}
	if len(workers) == 0 {
		return &model.SlotsResult{Message: msgNoWorkers}, nil
	}

	duration := time.Duration(service.Duration) * time.Minute
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	dayEnd := dayStart.Add(24 * time.Hour)

	// Resolve each worker's window and live appointments up front; the
	// per-slot check is then pure in-memory interval math.
	type workerDay struct {
		worker   *model.Worker
		window   *Window
		occupied []*model.Appointment
	}
	days := make([]workerDay, 0, len(workers))
	for _, worker := range workers {
		window, err := s.resolveWorkerWindow(ctx, worker.ID, date)
		if err != nil {
			return nil, err
		}
		if window == nil {
			continue
		}
		occupied, err := s.apptRepo.ListLiveForWorker(ctx, worker.ID, dayStart, dayEnd)
		if err != nil {
			return nil, apperrors.Internal(err)
		}
		days = append(days, workerDay{worker: worker, window: window, occupied: occupied})
	}

	earliest := s.now().Add(s.cfg.MinLeadTime)

	var slots []model.Slot
	for start := open.Start; !start.Add(duration).After(open.End); start = start.Add(duration) {
		end := start.Add(duration)
		if start.Before(earliest) {
			continue
		}

		var free []model.WorkerRef
		for _, day := range days {
			if !day.window.Contains(start, end) {
				continue
			}
			if hasOverlap(day.occupied, start, end) {
				continue
			}
			free = append(free, model.WorkerRef{ID: day.worker.ID, Name: day.worker.Name})
		}
		if len(free) > 0 {
			slots = append(slots, model.Slot{Time: model.ClockOf(start).String(), AvailableWorkers: free})
		}
	}

	if len(slots) == 0 {
		return &model.SlotsResult{Message: msgFullyBooked}, nil
	}
	return &model.SlotsResult{Slots: slots}, nil
}

// WorkerWindowFor resolves the effective working window for a worker on
// a date (override first, weekly rule second). Used by both slot
// discovery and the booking transaction so the two can never disagree.
func (s *Service) WorkerWindowFor(ctx context.Context, workerID uuid.UUID, date time.Time) (*Window, error) {
	return s.resolveWorkerWindow(ctx, workerID, date)
}

// Invalidate drops all cached lookups after a management write. The
// cache is small and short-lived, so a full flush is cheaper than
// tracking which qualified-worker lists a change touches.
func (s *Service) Invalidate(vendorID uuid.UUID) {
	s.cache.Flush()
}

func (s *Service) resolveWorkerWindow(ctx context.Context, workerID uuid.UUID, date time.Time) (*Window, error) {
	override, err := s.workerRepo.GetOverride(ctx, workerID, date)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.Internal(err)
	}

	var weekly []*model.WorkerAvailability
	if override == nil {
		weekly, err = s.workerRepo.ListWeekly(ctx, workerID)
		if err != nil {
			return nil, apperrors.Internal(err)
		}
	}

	return WorkerWindow(weekly, override, date), nil
}

func (s *Service) getVendor(ctx context.Context, vendorID uuid.UUID) (*model.Vendor, error) {
	key := vendorCacheKey(vendorID)
	if cached, ok := s.cache.Get(key); ok {
		return cached.(*model.Vendor), nil
	}

	vendor, err := s.vendorRepo.Get(ctx, vendorID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("vendor")
	}
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	s.cache.Set(key, vendor, gocache.DefaultExpiration)
	return vendor, nil
}

func (s *Service) getService(ctx context.Context, serviceID uuid.UUID) (*model.Service, error) {
	key := "service:" + serviceID.String()
	if cached, ok := s.cache.Get(key); ok {
		return cached.(*model.Service), nil
	}

	service, err := s.vendorRepo.GetService(ctx, serviceID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("service")
	}
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	s.cache.Set(key, service, gocache.DefaultExpiration)
	return service, nil
}

func (s *Service) getQualifiedWorkers(ctx context.Context, vendorID, serviceID uuid.UUID) ([]*model.Worker, error) {
	key := fmt.Sprintf("qualified:%s:%s", vendorID, serviceID)
	if cached, ok := s.cache.Get(key); ok {
		return cached.([]*model.Worker), nil
	}

	workers, err := s.workerRepo.ListQualified(ctx, vendorID, serviceID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	s.cache.Set(key, workers, gocache.DefaultExpiration)
	return workers, nil
}

func vendorCacheKey(vendorID uuid.UUID) string {
	return "vendor:" + vendorID.String()
}

func filterWorker(workers []*model.Worker, id uuid.UUID) []*model.Worker {
	for _, worker := range workers {
		if worker.ID == id {
			return []*model.Worker{worker}
		}
	}
	return nil
}

func hasOverlap(appointments []*model.Appointment, start, end time.Time) bool {
	for _, appointment := range appointments {
		if model.Overlaps(start, end, appointment.StartTime, appointment.EndTime) {
			return true
		}
	}
	return false
}
