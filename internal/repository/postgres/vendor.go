package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/salonhq/booking-api/internal/model"
	"github.com/salonhq/booking-api/internal/repository"
)

func (r *vendorRepository) Create(ctx context.Context, vendor *model.Vendor) error {
	query := `
		INSERT INTO vendors (
			id, owner_id, name, description, address,
			status, operating_hours, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	vendor.ID = uuid.New()
	vendor.CreatedAt = time.Now()
	vendor.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		vendor.ID,
		vendor.OwnerID,
		vendor.Name,
		vendor.Description,
		vendor.Address,
		vendor.Status,
		vendor.OperatingHours,
		vendor.CreatedAt,
		vendor.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create vendor: %w", err)
	}
	return nil
}

func (r *vendorRepository) Get(ctx context.Context, id uuid.UUID) (*model.Vendor, error) {
	query := `
		SELECT id, owner_id, name, description, address,
			   status, operating_hours, created_at, updated_at
		FROM vendors
		WHERE id = $1
	`
	var vendor model.Vendor
	err := r.db.GetContext(ctx, &vendor, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get vendor: %w", err)
	}
	return &vendor, nil
}

func (r *vendorRepository) Update(ctx context.Context, vendor *model.Vendor) error {
	query := `
		UPDATE vendors
		SET name = $1, description = $2, address = $3,
			status = $4, operating_hours = $5, updated_at = $6
		WHERE id = $7
	`
	vendor.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		vendor.Name,
		vendor.Description,
		vendor.Address,
		vendor.Status,
		vendor.OperatingHours,
		vendor.UpdatedAt,
		vendor.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update vendor: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *vendorRepository) List(ctx context.Context, status *model.VendorStatus) ([]*model.Vendor, error) {
	query := `
		SELECT id, owner_id, name, description, address,
			   status, operating_hours, created_at, updated_at
		FROM vendors
	`
	args := []interface{}{}
	if status != nil {
		query += " WHERE status = $1"
		args = append(args, *status)
	}
	query += " ORDER BY created_at ASC"

	var vendors []*model.Vendor
	err := r.db.SelectContext(ctx, &vendors, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list vendors: %w", err)
	}
	return vendors, nil
}

func (r *vendorRepository) CreateService(ctx context.Context, service *model.Service) error {
	query := `
		INSERT INTO services (
			id, vendor_id, name, description, duration,
			price, active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	service.ID = uuid.New()
	service.CreatedAt = time.Now()
	service.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		service.ID,
		service.VendorID,
		service.Name,
		service.Description,
		service.Duration,
		service.Price,
		service.Active,
		service.CreatedAt,
		service.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}
	return nil
}

func (r *vendorRepository) GetService(ctx context.Context, id uuid.UUID) (*model.Service, error) {
	query := `
		SELECT id, vendor_id, name, description, duration,
			   price, active, created_at, updated_at
		FROM services
		WHERE id = $1
	`
	var service model.Service
	err := r.db.GetContext(ctx, &service, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get service: %w", err)
	}
	return &service, nil
}

func (r *vendorRepository) UpdateService(ctx context.Context, service *model.Service) error {
	query := `
		UPDATE services
		SET name = $1, description = $2, duration = $3,
			price = $4, active = $5, updated_at = $6
		WHERE id = $7
	`
	service.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		service.Name,
		service.Description,
		service.Duration,
		service.Price,
		service.Active,
		service.UpdatedAt,
		service.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update service: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *vendorRepository) ListServices(ctx context.Context, vendorID uuid.UUID, activeOnly bool) ([]*model.Service, error) {
	query := `
		SELECT id, vendor_id, name, description, duration,
			   price, active, created_at, updated_at
		FROM services
		WHERE vendor_id = $1
	`
	if activeOnly {
		query += " AND active = true"
	}
	query += " ORDER BY created_at ASC"

	var services []*model.Service
	err := r.db.SelectContext(ctx, &services, query, vendorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	return services, nil
}
