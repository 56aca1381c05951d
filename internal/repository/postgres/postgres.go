package postgres

import (
	"github.com/jmoiron/sqlx"

	"github.com/salonhq/booking-api/internal/repository"
)

type userRepository struct {
	db *sqlx.DB
}

type vendorRepository struct {
	db *sqlx.DB
}

type workerRepository struct {
	db *sqlx.DB
}

type appointmentRepository struct {
	db *sqlx.DB
}

type outboxRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) repository.UserRepository {
	return &userRepository{db: db}
}

func NewVendorRepository(db *sqlx.DB) repository.VendorRepository {
	return &vendorRepository{db: db}
}

func NewWorkerRepository(db *sqlx.DB) repository.WorkerRepository {
	return &workerRepository{db: db}
}

func NewAppointmentRepository(db *sqlx.DB) repository.AppointmentRepository {
	return &appointmentRepository{db: db}
}

func NewOutboxRepository(db *sqlx.DB) repository.OutboxRepository {
	return &outboxRepository{db: db}
}
