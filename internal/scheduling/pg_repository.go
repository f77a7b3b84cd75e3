package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	var email *string

	err := row.Scan(
		&p.ID,
		&p.Name,
		&email,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}

	p.Email = email
	return &p, nil
}

func scanTherapist(row pgx.Row) (*Therapist, error) {
	var t Therapist
	var specialty *string

	err := row.Scan(
		&t.ID,
		&t.Name,
		&specialty,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTherapistNotFound
		}
		return nil, err
	}

	t.Specialty = specialty
	return &t, nil
}

func scanSchedule(row pgx.Row) (*WorkingSchedule, error) {
	var ws WorkingSchedule
	var weekday int

	err := row.Scan(
		&ws.ID,
		&ws.TherapistID,
		&weekday,
		&ws.StartTime,
		&ws.EndTime,
		&ws.BreakStart,
		&ws.BreakEnd,
		&ws.Active,
		&ws.CreatedAt,
		&ws.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrScheduleNotFound
		}
		return nil, err
	}

	ws.Weekday = time.Weekday(weekday)
	return &ws, nil
}

func scanSession(row pgx.Row) (*BookedSession, error) {
	var s BookedSession

	err := row.Scan(
		&s.ID,
		&s.PatientID,
		&s.TherapistID,
		&s.ServiceID,
		&s.ScheduledDate,
		&s.ScheduledTime,
		&s.DurationMinutes,
		&s.Status,
		&s.Notes,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	return &s, nil
}

const sessionColumns = `id, patient_id, therapist_id, service_id, scheduled_date, scheduled_time, duration_minutes, status, notes, created_at, updated_at`

// Interface methods

func (r *PgRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, email, created_at, updated_at
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row)
}

func (r *PgRepository) GetTherapistByID(ctx context.Context, id uuid.UUID) (*Therapist, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, specialty, created_at, updated_at
		FROM therapists
		WHERE id = $1
	`, id)
	return scanTherapist(row)
}

func (r *PgRepository) GetWorkingSchedule(ctx context.Context, therapistID uuid.UUID, weekday time.Weekday) (*WorkingSchedule, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, therapist_id, weekday, start_time, end_time, break_start, break_end, is_active, created_at, updated_at
		FROM working_schedules
		WHERE therapist_id = $1 AND weekday = $2
	`, therapistID, int(weekday))
	return scanSchedule(row)
}

func (r *PgRepository) ListActiveSessions(ctx context.Context, therapistID uuid.UUID, date time.Time) ([]BookedSession, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+sessionColumns+`
		FROM booked_sessions
		WHERE therapist_id = $1
		  AND scheduled_date = $2
		  AND status = ANY($3)
	`, therapistID, date, statusStrings(ActiveStatuses))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []BookedSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) GetSessionByID(ctx context.Context, id uuid.UUID) (*BookedSession, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+sessionColumns+`
		FROM booked_sessions
		WHERE id = $1
	`, id)
	return scanSession(row)
}

func (r *PgRepository) CreateSession(ctx context.Context, sess BookedSession) (*BookedSession, error) {
	id := uuid.New()

	row := r.pool.QueryRow(ctx, `
		INSERT INTO booked_sessions (id, patient_id, therapist_id, service_id, scheduled_date, scheduled_time, duration_minutes, status, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
		RETURNING `+sessionColumns+`
	`, id, sess.PatientID, sess.TherapistID, sess.ServiceID, sess.ScheduledDate, sess.ScheduledTime, sess.DurationMinutes, sess.Status, sess.Notes)

	return scanSession(row)
}

func (r *PgRepository) UpdateSessionTime(ctx context.Context, id uuid.UUID, date time.Time, hhmm string, notes string) (*BookedSession, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE booked_sessions
		SET scheduled_date = $2,
		    scheduled_time = $3,
		    notes = $4,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+sessionColumns+`
	`, id, date, hhmm, notes)

	return scanSession(row)
}

func (r *PgRepository) GetPolicyOverride(ctx context.Context, scope PolicyScope, id uuid.UUID) (*PolicyOverride, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT allow_weekends, allow_holidays, min_advance_days, max_advance_days, preferred_slots, avoided_slots
		FROM policy_overrides
		WHERE scope = $1 AND subject_id = $2
	`, string(scope), id)

	var o PolicyOverride
	err := row.Scan(
		&o.AllowWeekends,
		&o.AllowHolidays,
		&o.MinAdvanceDays,
		&o.MaxAdvanceDays,
		&o.PreferredSlots,
		&o.AvoidedSlots,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &o, nil
}

func (r *PgRepository) FindSessionsStartingBetween(ctx context.Context, from, to time.Time) ([]BookedSession, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+sessionColumns+`
		FROM booked_sessions
		WHERE status = ANY($3)
		  AND scheduled_date + scheduled_time::time >= $1
		  AND scheduled_date + scheduled_time::time < $2
	`, from, to, statusStrings(ActiveStatuses))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []BookedSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO event_logs (event_type, session_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.SessionID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}

	return nil
}

func statusStrings(statuses []SessionStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
