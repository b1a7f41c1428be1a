package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	pgUniqueViolation  = "23505"
	activeSlotIndex    = "appointments_active_slot_uq"
	appointmentColumns = `id::text, user_id, hospital_id, hospital_name, category_id, category_name,
		doctor_id, doctor_name, date, time, status, created_at`
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment

	err := row.Scan(
		&a.ID,
		&a.UserID,
		&a.HospitalID,
		&a.HospitalName,
		&a.CategoryID,
		&a.CategoryName,
		&a.DoctorID,
		&a.DoctorName,
		&a.Date,
		&a.Time,
		&a.Status,
		&a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	return &a, nil
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	defer rows.Close()

	result := []Appointment{}
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func isActiveSlotViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == activeSlotIndex
	}
	return false
}

// parseID rejects ids that could never exist so callers see not-found instead
// of a cast error from Postgres.
func parseID(id string) (uuid.UUID, bool) {
	u, err := uuid.Parse(id)
	return u, err == nil
}

// buildListQuery renders the SELECT used by FindAll. Only set filter fields
// become predicates.
func buildListQuery(filter Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		conds = append(conds, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	add("status", string(filter.Status))
	add("hospital_id", filter.HospitalID)
	add("doctor_id", filter.DoctorID)
	add("date", filter.Date)

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(appointmentColumns)
	b.WriteString(" FROM appointments")
	if len(conds) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(conds, " AND "))
	}
	b.WriteString(" ORDER BY date ASC, time ASC, seq ASC")
	return b.String(), args
}

// Interface methods

func (r *PgRepository) Insert(ctx context.Context, appt Appointment) (*Appointment, error) {
	if appt.Status == "" {
		appt.Status = StatusPending
	}
	if err := validateForInsert(appt); err != nil {
		return nil, err
	}

	id := uuid.New()

	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (id, user_id, hospital_id, hospital_name, category_id, category_name,
			doctor_id, doctor_name, date, time, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now())
		RETURNING `+appointmentColumns,
		id, appt.UserID, appt.HospitalID, appt.HospitalName, appt.CategoryID, appt.CategoryName,
		appt.DoctorID, appt.DoctorName, appt.Date, appt.Time, appt.Status)

	created, err := scanAppointment(row)
	if err != nil {
		if isActiveSlotViolation(err) {
			return nil, ErrSlotTaken
		}
		return nil, fmt.Errorf("insert appointment: %w", err)
	}
	return created, nil
}

func (r *PgRepository) FindConflict(ctx context.Context, slot Slot) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE doctor_id = $1 AND date = $2 AND time = $3 AND status <> 'cancelled'
		ORDER BY seq ASC
		LIMIT 1
	`, slot.DoctorID, slot.Date, slot.Time)
	return scanAppointment(row)
}

func (r *PgRepository) FindByID(ctx context.Context, id string) (*Appointment, error) {
	uid, ok := parseID(id)
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, uid)
	return scanAppointment(row)
}

func (r *PgRepository) FindByUser(ctx context.Context, userID string) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE user_id = $1
		ORDER BY date ASC, time ASC, seq ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query appointments by user: %w", err)
	}
	return collectAppointments(rows)
}

func (r *PgRepository) FindAll(ctx context.Context, filter Filter) ([]Appointment, error) {
	query, args := buildListQuery(filter)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query appointments: %w", err)
	}
	return collectAppointments(rows)
}

func (r *PgRepository) UpdateStatus(ctx context.Context, id string, from []AppointmentStatus, to AppointmentStatus) (*Appointment, error) {
	uid, ok := parseID(id)
	if !ok {
		return nil, ErrAppointmentNotFound
	}

	allowed := make([]string, 0, len(from))
	for _, s := range from {
		allowed = append(allowed, string(s))
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2
		WHERE id = $1
		  AND status = ANY($3)
		RETURNING `+appointmentColumns,
		uid, to, allowed)

	updated, err := scanAppointment(row)
	if err == nil {
		return updated, nil
	}
	if isActiveSlotViolation(err) {
		return nil, ErrSlotTaken
	}
	if !errors.Is(err, ErrAppointmentNotFound) {
		return nil, fmt.Errorf("update appointment status: %w", err)
	}

	// Nothing matched: either the id is unknown or the status guard failed.
	if _, err := r.FindByID(ctx, id); err != nil {
		return nil, err
	}
	return nil, ErrInvalidStatusTransition
}

func (r *PgRepository) Delete(ctx context.Context, id string) error {
	uid, ok := parseID(id)
	if !ok {
		return ErrAppointmentNotFound
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM appointments WHERE id = $1`, uid)
	if err != nil {
		return fmt.Errorf("delete appointment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

func (r *PgRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}
