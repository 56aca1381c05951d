// Package repositorytest provides in-memory repository implementations
// for service-level tests. They honor the same sentinel-error contract
// as the postgres implementations.
package repositorytest

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/salonhq/booking-api/internal/model"
	"github.com/salonhq/booking-api/internal/repository"
)

type UserRepo struct {
	mu    sync.Mutex
	Users map[uuid.UUID]*model.User
}

func NewUserRepo() *UserRepo {
	return &UserRepo{Users: make(map[uuid.UUID]*model.User)}
}

func (r *UserRepo) Create(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	r.Users[user.ID] = user
	return nil
}

func (r *UserRepo) Get(_ context.Context, id uuid.UUID) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.Users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return user, nil
}

func (r *UserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.Users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, repository.ErrNotFound
}

type VendorRepo struct {
	mu       sync.Mutex
	Vendors  map[uuid.UUID]*model.Vendor
	Services map[uuid.UUID]*model.Service
}

func NewVendorRepo() *VendorRepo {
	return &VendorRepo{
		Vendors:  make(map[uuid.UUID]*model.Vendor),
		Services: make(map[uuid.UUID]*model.Service),
	}
}

func (r *VendorRepo) Create(_ context.Context, vendor *model.Vendor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if vendor.ID == uuid.Nil {
		vendor.ID = uuid.New()
	}
	r.Vendors[vendor.ID] = vendor
	return nil
}

func (r *VendorRepo) Get(_ context.Context, id uuid.UUID) (*model.Vendor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	vendor, ok := r.Vendors[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return vendor, nil
}

func (r *VendorRepo) Update(_ context.Context, vendor *model.Vendor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.Vendors[vendor.ID]; !ok {
		return repository.ErrNotFound
	}
	r.Vendors[vendor.ID] = vendor
	return nil
}

func (r *VendorRepo) List(_ context.Context, status *model.VendorStatus) ([]*model.Vendor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Vendor
	for _, vendor := range r.Vendors {
		if status == nil || vendor.Status == *status {
			out = append(out, vendor)
		}
	}
	return out, nil
}

func (r *VendorRepo) CreateService(_ context.Context, service *model.Service) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if service.ID == uuid.Nil {
		service.ID = uuid.New()
	}
	r.Services[service.ID] = service
	return nil
}

func (r *VendorRepo) GetService(_ context.Context, id uuid.UUID) (*model.Service, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	service, ok := r.Services[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return service, nil
}

func (r *VendorRepo) UpdateService(_ context.Context, service *model.Service) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.Services[service.ID]; !ok {
		return repository.ErrNotFound
	}
	r.Services[service.ID] = service
	return nil
}

func (r *VendorRepo) ListServices(_ context.Context, vendorID uuid.UUID, activeOnly bool) ([]*model.Service, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Service
	for _, service := range r.Services {
		if service.VendorID != vendorID {
			continue
		}
		if activeOnly && !service.Active {
			continue
		}
		out = append(out, service)
	}
	return out, nil
}

type WorkerRepo struct {
	mu        sync.Mutex
	Workers   map[uuid.UUID]*model.Worker
	order     []uuid.UUID
	Weekly    map[uuid.UUID][]*model.WorkerAvailability
	Overrides map[uuid.UUID]map[string]*model.WorkerScheduleOverride
}

func NewWorkerRepo() *WorkerRepo {
	return &WorkerRepo{
		Workers:   make(map[uuid.UUID]*model.Worker),
		Weekly:    make(map[uuid.UUID][]*model.WorkerAvailability),
		Overrides: make(map[uuid.UUID]map[string]*model.WorkerScheduleOverride),
	}
}

const overrideDateLayout = "2006-01-02"

func (r *WorkerRepo) Create(_ context.Context, worker *model.Worker) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if worker.ID == uuid.Nil {
		worker.ID = uuid.New()
	}
	r.Workers[worker.ID] = worker
	r.order = append(r.order, worker.ID)
	return nil
}

func (r *WorkerRepo) Get(_ context.Context, id uuid.UUID) (*model.Worker, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	worker, ok := r.Workers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return worker, nil
}

func (r *WorkerRepo) Update(_ context.Context, worker *model.Worker) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.Workers[worker.ID]; !ok {
		return repository.ErrNotFound
	}
	r.Workers[worker.ID] = worker
	return nil
}

func (r *WorkerRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.Workers[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.Workers, id)
	for i, wid := range r.order {
		if wid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

func (r *WorkerRepo) ListByVendor(_ context.Context, vendorID uuid.UUID) ([]*model.Worker, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Worker
	for _, id := range r.order {
		if worker, ok := r.Workers[id]; ok && worker.VendorID == vendorID {
			out = append(out, worker)
		}
	}
	return out, nil
}

func (r *WorkerRepo) ListQualified(_ context.Context, vendorID, serviceID uuid.UUID) ([]*model.Worker, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Worker
	for _, id := range r.order {
		worker, ok := r.Workers[id]
		if !ok || worker.VendorID != vendorID {
			continue
		}
		for _, sid := range worker.ServiceIDs {
			if sid == serviceID {
				out = append(out, worker)
				break
			}
		}
	}
	return out, nil
}

func (r *WorkerRepo) SetServices(_ context.Context, workerID uuid.UUID, serviceIDs []uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	worker, ok := r.Workers[workerID]
	if !ok {
		return repository.ErrNotFound
	}
	worker.ServiceIDs = serviceIDs
	return nil
}

func (r *WorkerRepo) ListWeekly(_ context.Context, workerID uuid.UUID) ([]*model.WorkerAvailability, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Weekly[workerID], nil
}

func (r *WorkerRepo) GetOverride(_ context.Context, workerID uuid.UUID, date time.Time) (*model.WorkerScheduleOverride, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	override, ok := r.Overrides[workerID][date.Format(overrideDateLayout)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return override, nil
}

func (r *WorkerRepo) ListOverrides(_ context.Context, workerID uuid.UUID, from, to time.Time) ([]*model.WorkerScheduleOverride, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.WorkerScheduleOverride
	for _, override := range r.Overrides[workerID] {
		if !override.Date.Before(from) && !override.Date.After(to) {
			out = append(out, override)
		}
	}
	return out, nil
}

func (r *WorkerRepo) ReplaceSchedule(_ context.Context, workerID uuid.UUID, weekly []*model.WorkerAvailability, overrides []*model.WorkerScheduleOverride) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Weekly[workerID] = weekly
	byDate := make(map[string]*model.WorkerScheduleOverride, len(overrides))
	for _, override := range overrides {
		byDate[override.Date.Format(overrideDateLayout)] = override
	}
	r.Overrides[workerID] = byDate
	return nil
}

// SetWeekly is a test helper for seeding a weekly rule.
func (r *WorkerRepo) SetWeekly(workerID uuid.UUID, rules ...*model.WorkerAvailability) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Weekly[workerID] = rules
}

// SetOverride is a test helper for seeding a date override.
func (r *WorkerRepo) SetOverride(workerID uuid.UUID, override *model.WorkerScheduleOverride) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Overrides[workerID] == nil {
		r.Overrides[workerID] = make(map[string]*model.WorkerScheduleOverride)
	}
	r.Overrides[workerID][override.Date.Format(overrideDateLayout)] = override
}

type AppointmentRepo struct {
	mu           sync.Mutex
	Appointments map[uuid.UUID]*model.Appointment
	order        []uuid.UUID
}

func NewAppointmentRepo() *AppointmentRepo {
	return &AppointmentRepo{Appointments: make(map[uuid.UUID]*model.Appointment)}
}

func (r *AppointmentRepo) Get(_ context.Context, id uuid.UUID) (*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	appointment, ok := r.Appointments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *appointment
	return &copied, nil
}

func (r *AppointmentRepo) List(_ context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Appointment
	for _, id := range r.order {
		appointment := r.Appointments[id]
		if filters != nil {
			if filters.VendorID != nil && appointment.VendorID != *filters.VendorID {
				continue
			}
			if filters.CustomerID != nil && appointment.CustomerID != *filters.CustomerID {
				continue
			}
			if filters.WorkerID != nil && (appointment.WorkerID == nil || *appointment.WorkerID != *filters.WorkerID) {
				continue
			}
			if filters.Status != nil && appointment.Status != *filters.Status {
				continue
			}
			if filters.From != nil && appointment.StartTime.Before(*filters.From) {
				continue
			}
			if filters.To != nil && !appointment.StartTime.Before(*filters.To) {
				continue
			}
		}
		copied := *appointment
		out = append(out, &copied)
	}
	return out, nil
}

func (r *AppointmentRepo) ListLiveForWorker(_ context.Context, workerID uuid.UUID, from, to time.Time) ([]*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Appointment
	for _, id := range r.order {
		appointment := r.Appointments[id]
		if appointment.WorkerID == nil || *appointment.WorkerID != workerID {
			continue
		}
		if !appointment.Status.Live() {
			continue
		}
		if model.Overlaps(from, to, appointment.StartTime, appointment.EndTime) {
			copied := *appointment
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *AppointmentRepo) HasConflict(_ context.Context, workerID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hasConflictLocked(workerID, start, end, excludeID), nil
}

func (r *AppointmentRepo) hasConflictLocked(workerID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) bool {
	for _, appointment := range r.Appointments {
		if appointment.WorkerID == nil || *appointment.WorkerID != workerID {
			continue
		}
		if !appointment.Status.Live() {
			continue
		}
		if excludeID != nil && appointment.ID == *excludeID {
			continue
		}
		if model.Overlaps(start, end, appointment.StartTime, appointment.EndTime) {
			return true
		}
	}
	return false
}

func (r *AppointmentRepo) CreateIfFree(_ context.Context, appointment *model.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if appointment.WorkerID == nil {
		return repository.ErrNotFound
	}
	if r.hasConflictLocked(*appointment.WorkerID, appointment.StartTime, appointment.EndTime, nil) {
		return repository.ErrSlotTaken
	}
	if appointment.ID == uuid.Nil {
		appointment.ID = uuid.New()
	}
	now := time.Now()
	appointment.CreatedAt = now
	appointment.UpdatedAt = now
	copied := *appointment
	r.Appointments[appointment.ID] = &copied
	r.order = append(r.order, appointment.ID)
	return nil
}

func (r *AppointmentRepo) UpdateStatus(_ context.Context, id uuid.UUID, from []model.AppointmentStatus, to model.AppointmentStatus, note string) (*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	appointment, ok := r.Appointments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	allowed := false
	for _, status := range from {
		if appointment.Status == status {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, repository.ErrStatusChanged
	}
	appointment.Status = to
	if note != "" {
		if appointment.Notes != "" {
			appointment.Notes += "\n"
		}
		appointment.Notes += note
	}
	appointment.UpdatedAt = time.Now()
	copied := *appointment
	return &copied, nil
}

func (r *AppointmentRepo) ConfirmWithWorker(_ context.Context, id, workerID uuid.UUID) (*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	appointment, ok := r.Appointments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if appointment.Status != model.AppointmentStatusPending {
		return nil, repository.ErrStatusChanged
	}
	if r.hasConflictLocked(workerID, appointment.StartTime, appointment.EndTime, &id) {
		return nil, repository.ErrSlotTaken
	}
	appointment.WorkerID = &workerID
	appointment.Status = model.AppointmentStatusConfirmed
	appointment.UpdatedAt = time.Now()
	copied := *appointment
	return &copied, nil
}

func (r *AppointmentRepo) SetWorker(_ context.Context, id uuid.UUID, workerID *uuid.UUID) (*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	appointment, ok := r.Appointments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if !appointment.Status.Live() {
		return nil, repository.ErrStatusChanged
	}
	if workerID != nil && r.hasConflictLocked(*workerID, appointment.StartTime, appointment.EndTime, &id) {
		return nil, repository.ErrSlotTaken
	}
	appointment.WorkerID = workerID
	appointment.UpdatedAt = time.Now()
	copied := *appointment
	return &copied, nil
}

type OutboxRepo struct {
	mu     sync.Mutex
	Events []*model.OutboxEvent
}

func NewOutboxRepo() *OutboxRepo {
	return &OutboxRepo{}
}

func (r *OutboxRepo) Create(_ context.Context, event *model.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	event.Status = model.OutboxStatusPending
	event.CreatedAt = time.Now()
	r.Events = append(r.Events, event)
	return nil
}

func (r *OutboxRepo) GetPendingEventsWithLock(_ context.Context, limit int) ([]*model.OutboxEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.OutboxEvent
	for _, event := range r.Events {
		if event.Status == model.OutboxStatusPending {
			out = append(out, event)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (r *OutboxRepo) MarkProcessed(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, event := range r.Events {
		if event.ID == id {
			event.Status = model.OutboxStatusProcessed
			now := time.Now()
			event.ProcessedAt = &now
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *OutboxRepo) MarkFailed(_ context.Context, id uuid.UUID, errMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, event := range r.Events {
		if event.ID == id {
			event.Status = model.OutboxStatusFailed
			event.Error = &errMsg
			return nil
		}
	}
	return repository.ErrNotFound
}

// EventTypes lists the recorded event types in creation order.
func (r *OutboxRepo) EventTypes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]string, 0, len(r.Events))
	for _, event := range r.Events {
		types = append(types, event.EventType)
	}
	return types
}
