package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/salonhq/booking-api/internal/model"
	"github.com/salonhq/booking-api/internal/repository"
)

const appointmentColumns = `
	id, customer_id, vendor_id, service_id, worker_id,
	start_time, end_time, status, notes,
	created_at, updated_at
`

// conflictExistsQuery is the half-open interval overlap test against the
// worker's live appointments: existing.start < candidate.end AND
// existing.end > candidate.start.
const conflictExistsQuery = `
	SELECT EXISTS (
		SELECT 1 FROM appointments
		WHERE worker_id = $1
		AND status IN ('pending', 'confirmed')
		AND start_time < $3
		AND end_time > $2
		AND ($4::uuid IS NULL OR id != $4)
	)
`

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE id = $1
	`
	var appointment model.Appointment
	err := r.db.GetContext(ctx, &appointment, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return &appointment, nil
}

func (r *appointmentRepository) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE 1=1
	`
	args := []interface{}{}
	argCount := 1

	addFilter := func(clause string, value interface{}) {
		query += fmt.Sprintf(" AND %s = $%d", clause, argCount)
		args = append(args, value)
		argCount++
	}

	if filters != nil {
		if filters.VendorID != nil {
			addFilter("vendor_id", *filters.VendorID)
		}
		if filters.WorkerID != nil {
			addFilter("worker_id", *filters.WorkerID)
		}
		if filters.CustomerID != nil {
			addFilter("customer_id", *filters.CustomerID)
		}
		if filters.Status != nil {
			addFilter("status", *filters.Status)
		}
		if filters.From != nil {
			query += fmt.Sprintf(" AND end_time > $%d", argCount)
			args = append(args, *filters.From)
			argCount++
		}
		if filters.To != nil {
			query += fmt.Sprintf(" AND start_time < $%d", argCount)
			args = append(args, *filters.To)
			argCount++
		}
	}

	query += " ORDER BY start_time ASC"

	var appointments []*model.Appointment
	err := r.db.SelectContext(ctx, &appointments, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) ListLiveForWorker(ctx context.Context, workerID uuid.UUID, from, to time.Time) ([]*model.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE worker_id = $1
		AND status IN ('pending', 'confirmed')
		AND start_time < $3
		AND end_time > $2
		ORDER BY start_time ASC
	`
	var appointments []*model.Appointment
	err := r.db.SelectContext(ctx, &appointments, query, workerID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list worker appointments: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) HasConflict(ctx context.Context, workerID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (bool, error) {
	var hasConflict bool
	err := r.db.GetContext(ctx, &hasConflict, conflictExistsQuery, workerID, start, end, excludeID)
	if err != nil {
		return false, fmt.Errorf("failed to check conflicts: %w", err)
	}
	return hasConflict, nil
}

// lockWorkerCalendar serializes conflict-checked writes per worker. An
// advisory transaction lock covers the check-then-insert gap including
// the case where the worker has no existing rows to lock.
func lockWorkerCalendar(ctx context.Context, tx *sqlx.Tx, workerID uuid.UUID) error {
	_, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1::text))`, workerID.String())
	if err != nil {
		return fmt.Errorf("failed to lock worker calendar: %w", err)
	}
	return nil
}

func (r *appointmentRepository) CreateIfFree(ctx context.Context, appointment *model.Appointment) error {
	if appointment.WorkerID == nil {
		return fmt.Errorf("appointment worker is required for conflict-checked insert")
	}

	appointment.ID = uuid.New()
	appointment.CreatedAt = time.Now()
	appointment.UpdatedAt = time.Now()

	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := lockWorkerCalendar(ctx, tx, *appointment.WorkerID); err != nil {
			return err
		}

		var hasConflict bool
		err := tx.GetContext(ctx, &hasConflict, conflictExistsQuery,
			*appointment.WorkerID, appointment.StartTime, appointment.EndTime, nil)
		if err != nil {
			return fmt.Errorf("failed to check conflicts: %w", err)
		}
		if hasConflict {
			return repository.ErrSlotTaken
		}

		query := `
			INSERT INTO appointments (
				id, customer_id, vendor_id, service_id, worker_id,
				start_time, end_time, status, notes,
				created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`
		_, err = tx.ExecContext(ctx, query,
			appointment.ID,
			appointment.CustomerID,
			appointment.VendorID,
			appointment.ServiceID,
			appointment.WorkerID,
			appointment.StartTime,
			appointment.EndTime,
			appointment.Status,
			appointment.Notes,
			appointment.CreatedAt,
			appointment.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create appointment: %w", err)
		}
		return nil
	})
}

func (r *appointmentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from []model.AppointmentStatus, to model.AppointmentStatus, note string) (*model.Appointment, error) {
	fromValues := make([]string, len(from))
	for i, s := range from {
		fromValues[i] = string(s)
	}

	query := `
		UPDATE appointments
		SET status = $1,
			notes = CASE WHEN $2 = '' THEN notes ELSE TRIM(notes || E'\n' || $2) END,
			updated_at = $3
		WHERE id = $4 AND status = ANY($5)
		RETURNING ` + appointmentColumns

	var appointment model.Appointment
	err := r.db.GetContext(ctx, &appointment, query, to, note, time.Now(), id, pq.StringArray(fromValues))
	if errors.Is(err, sql.ErrNoRows) {
		// Either missing or already moved to a different status.
		if _, getErr := r.Get(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, repository.ErrStatusChanged
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update appointment status: %w", err)
	}
	return &appointment, nil
}

func (r *appointmentRepository) ConfirmWithWorker(ctx context.Context, id, workerID uuid.UUID) (*model.Appointment, error) {
	var confirmed model.Appointment

	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := lockWorkerCalendar(ctx, tx, workerID); err != nil {
			return err
		}

		var appointment model.Appointment
		err := tx.GetContext(ctx, &appointment, `
			SELECT `+appointmentColumns+`
			FROM appointments
			WHERE id = $1
			FOR UPDATE
		`, id)
		if errors.Is(err, sql.ErrNoRows) {
			return repository.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to get appointment: %w", err)
		}
		if appointment.Status != model.AppointmentStatusPending {
			return repository.ErrStatusChanged
		}

		var hasConflict bool
		err = tx.GetContext(ctx, &hasConflict, conflictExistsQuery,
			workerID, appointment.StartTime, appointment.EndTime, id)
		if err != nil {
			return fmt.Errorf("failed to check conflicts: %w", err)
		}
		if hasConflict {
			return repository.ErrSlotTaken
		}

		err = tx.GetContext(ctx, &confirmed, `
			UPDATE appointments
			SET worker_id = $1, status = $2, updated_at = $3
			WHERE id = $4
			RETURNING `+appointmentColumns,
			workerID, model.AppointmentStatusConfirmed, time.Now(), id)
		if err != nil {
			return fmt.Errorf("failed to confirm appointment: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &confirmed, nil
}

func (r *appointmentRepository) SetWorker(ctx context.Context, id uuid.UUID, workerID *uuid.UUID) (*model.Appointment, error) {
	var updated model.Appointment

	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		// Same lock order as CreateIfFree/ConfirmWithWorker: advisory
		// worker lock first, then the appointment row.
		if workerID != nil {
			if err := lockWorkerCalendar(ctx, tx, *workerID); err != nil {
				return err
			}
		}

		var appointment model.Appointment
		err := tx.GetContext(ctx, &appointment, `
			SELECT `+appointmentColumns+`
			FROM appointments
			WHERE id = $1
			FOR UPDATE
		`, id)
		if errors.Is(err, sql.ErrNoRows) {
			return repository.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to get appointment: %w", err)
		}
		if !appointment.Status.Live() {
			return repository.ErrStatusChanged
		}

		if workerID != nil {
			var hasConflict bool
			err = tx.GetContext(ctx, &hasConflict, conflictExistsQuery,
				*workerID, appointment.StartTime, appointment.EndTime, id)
			if err != nil {
				return fmt.Errorf("failed to check conflicts: %w", err)
			}
			if hasConflict {
				return repository.ErrSlotTaken
			}
		}

		err = tx.GetContext(ctx, &updated, `
			UPDATE appointments
			SET worker_id = $1, updated_at = $2
			WHERE id = $3
			RETURNING `+appointmentColumns,
			workerID, time.Now(), id)
		if err != nil {
			return fmt.Errorf("failed to assign worker: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}
