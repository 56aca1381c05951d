package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/salonhq/booking-api/internal/model"
	"github.com/salonhq/booking-api/internal/repository"
)

func (r *workerRepository) Create(ctx context.Context, worker *model.Worker) error {
	worker.ID = uuid.New()
	worker.CreatedAt = time.Now()
	worker.UpdatedAt = time.Now()

	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO workers (
				id, vendor_id, user_id, name, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6)
		`
		_, err := tx.ExecContext(ctx, query,
			worker.ID,
			worker.VendorID,
			worker.UserID,
			worker.Name,
			worker.CreatedAt,
			worker.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create worker: %w", err)
		}
		return setWorkerServices(ctx, tx, worker.ID, worker.ServiceIDs)
	})
}

func (r *workerRepository) Get(ctx context.Context, id uuid.UUID) (*model.Worker, error) {
	query := `
		SELECT id, vendor_id, user_id, name, created_at, updated_at
		FROM workers
		WHERE id = $1
	`
	var worker model.Worker
	err := r.db.GetContext(ctx, &worker, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get worker: %w", err)
	}

	if err := r.db.SelectContext(ctx, &worker.ServiceIDs, `
		SELECT service_id FROM worker_services WHERE worker_id = $1
	`, id); err != nil {
		return nil, fmt.Errorf("failed to get worker services: %w", err)
	}
	return &worker, nil
}

func (r *workerRepository) Update(ctx context.Context, worker *model.Worker) error {
	query := `
		UPDATE workers
		SET name = $1, user_id = $2, updated_at = $3
		WHERE id = $4
	`
	worker.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		worker.Name,
		worker.UserID,
		worker.UpdatedAt,
		worker.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update worker: %w", err)
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

func (r *workerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM workers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete worker: %w", err)
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

func (r *workerRepository) ListByVendor(ctx context.Context, vendorID uuid.UUID) ([]*model.Worker, error) {
	query := `
		SELECT id, vendor_id, user_id, name, created_at, updated_at
		FROM workers
		WHERE vendor_id = $1
		ORDER BY created_at ASC
	`
	var workers []*model.Worker
	err := r.db.SelectContext(ctx, &workers, query, vendorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list workers: %w", err)
	}
	return workers, nil
}

func (r *workerRepository) ListQualified(ctx context.Context, vendorID, serviceID uuid.UUID) ([]*model.Worker, error) {
	query := `
		SELECT w.id, w.vendor_id, w.user_id, w.name, w.created_at, w.updated_at
		FROM workers w
		JOIN worker_services ws ON ws.worker_id = w.id
		WHERE w.vendor_id = $1 AND ws.service_id = $2
		ORDER BY w.created_at ASC
	`
	var workers []*model.Worker
	err := r.db.SelectContext(ctx, &workers, query, vendorID, serviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list qualified workers: %w", err)
	}
	return workers, nil
}

func setWorkerServices(ctx context.Context, tx *sqlx.Tx, workerID uuid.UUID, serviceIDs []uuid.UUID) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM worker_services WHERE worker_id = $1`, workerID); err != nil {
		return fmt.Errorf("failed to clear worker services: %w", err)
	}
	for _, serviceID := range serviceIDs {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO worker_services (worker_id, service_id) VALUES ($1, $2)
		`, workerID, serviceID)
		if err != nil {
			return fmt.Errorf("failed to add worker service: %w", err)
		}
	}
	return nil
}

func (r *workerRepository) SetServices(ctx context.Context, workerID uuid.UUID, serviceIDs []uuid.UUID) error {
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		return setWorkerServices(ctx, tx, workerID, serviceIDs)
	})
}

func (r *workerRepository) ListWeekly(ctx context.Context, workerID uuid.UUID) ([]*model.WorkerAvailability, error) {
	query := `
		SELECT id, worker_id, day_of_week, start_time, end_time, is_available
		FROM worker_availability
		WHERE worker_id = $1
		ORDER BY day_of_week ASC
	`
	var rules []*model.WorkerAvailability
	err := r.db.SelectContext(ctx, &rules, query, workerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list weekly availability: %w", err)
	}
	return rules, nil
}

func (r *workerRepository) GetOverride(ctx context.Context, workerID uuid.UUID, date time.Time) (*model.WorkerScheduleOverride, error) {
	query := `
		SELECT id, worker_id, date, is_day_off, start_time, end_time, note
		FROM worker_schedule_overrides
		WHERE worker_id = $1 AND date = $2
	`
	var override model.WorkerScheduleOverride
	err := r.db.GetContext(ctx, &override, query, workerID, date.Format("2006-01-02"))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get schedule override: %w", err)
	}
	return &override, nil
}

func (r *workerRepository) ListOverrides(ctx context.Context, workerID uuid.UUID, from, to time.Time) ([]*model.WorkerScheduleOverride, error) {
	query := `
		SELECT id, worker_id, date, is_day_off, start_time, end_time, note
		FROM worker_schedule_overrides
		WHERE worker_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date ASC
	`
	var overrides []*model.WorkerScheduleOverride
	err := r.db.SelectContext(ctx, &overrides, query, workerID,
		from.Format("2006-01-02"), to.Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("failed to list schedule overrides: %w", err)
	}
	return overrides, nil
}

// ReplaceSchedule deletes and reinserts the worker's weekly rules and
// overrides in one transaction. The one-row-per-weekday invariant holds
// because the caller validates uniqueness and the table carries a
// UNIQUE(worker_id, day_of_week) constraint as a backstop.
func (r *workerRepository) ReplaceSchedule(ctx context.Context, workerID uuid.UUID, weekly []*model.WorkerAvailability, overrides []*model.WorkerScheduleOverride) error {
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM worker_availability WHERE worker_id = $1`, workerID); err != nil {
			return fmt.Errorf("failed to clear weekly availability: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM worker_schedule_overrides WHERE worker_id = $1`, workerID); err != nil {
			return fmt.Errorf("failed to clear schedule overrides: %w", err)
		}

		for _, rule := range weekly {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO worker_availability (
					id, worker_id, day_of_week, start_time, end_time, is_available
				) VALUES ($1, $2, $3, $4, $5, $6)
			`, uuid.New(), workerID, rule.DayOfWeek, rule.StartTime, rule.EndTime, rule.IsAvailable)
			if err != nil {
				return fmt.Errorf("failed to insert weekly availability: %w", err)
			}
		}

		for _, override := range overrides {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO worker_schedule_overrides (
					id, worker_id, date, is_day_off, start_time, end_time, note
				) VALUES ($1, $2, $3, $4, $5, $6, $7)
			`, uuid.New(), workerID, override.Date.Format("2006-01-02"),
				override.IsDayOff, override.StartTime, override.EndTime, override.Note)
			if err != nil {
				return fmt.Errorf("failed to insert schedule override: %w", err)
			}
		}
		return nil
	})
}
