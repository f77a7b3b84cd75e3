package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicware/session-scheduler/internal/db"
	"github.com/clinicware/session-scheduler/internal/scheduling"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	therapistIDs, err := seedTherapists(context.Background(), pool, 50)
	if err != nil {
		log.Fatalf("seed therapists: %v", err)
	}
	if err := seedSchedules(context.Background(), pool, therapistIDs); err != nil {
		log.Fatalf("seed schedules: %v", err)
	}
	patientIDs, err := seedPatients(context.Background(), pool, 2000)
	if err != nil {
		log.Fatalf("seed patients: %v", err)
	}
	if err := seedSessions(context.Background(), pool, therapistIDs, patientIDs, 500); err != nil {
		log.Fatalf("seed sessions: %v", err)
	}

	log.Println("seed complete")
}

func seedTherapists(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d therapists", count)

	specialties := []string{
		"Cognitive Behavioral Therapy",
		"Family Therapy",
		"Child & Adolescent",
		"Trauma & PTSD",
		"Couples Counseling",
		"Addiction Recovery",
		"Group Therapy",
		"Occupational Therapy",
		"Speech Therapy",
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		name := gofakeit.Name()
		specialty := specialties[gofakeit.Number(0, len(specialties)-1)]

		_, err := tx.Exec(ctx, `
			INSERT INTO therapists (id, name, specialty, created_at, updated_at)
			VALUES ($1, $2, $3, now(), now())
		`, id, name, specialty)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Println("therapists seeded")
	return ids, nil
}

func seedSchedules(ctx context.Context, pool *pgxpool.Pool, therapistIDs []uuid.UUID) error {
	log.Printf("seeding weekly schedules for %d therapists", len(therapistIDs))

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	breakStart := "12:00"
	breakEnd := "13:00"

	for _, tid := range therapistIDs {
		// Monday through Friday; roughly a third also work Saturday mornings.
		for weekday := 1; weekday <= 5; weekday++ {
			_, err := tx.Exec(ctx, `
				INSERT INTO working_schedules (id, therapist_id, weekday, start_time, end_time, break_start, break_end, is_active, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, true, now(), now())
			`, uuid.New(), tid, weekday, "09:00", "17:00", breakStart, breakEnd)
			if err != nil {
				return err
			}
		}

		if gofakeit.Number(0, 2) == 0 {
			_, err := tx.Exec(ctx, `
				INSERT INTO working_schedules (id, therapist_id, weekday, start_time, end_time, break_start, break_end, is_active, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, NULL, NULL, true, now(), now())
			`, uuid.New(), tid, 6, "09:00", "13:00")
			if err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("schedules seeded")
	return nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d patients", count)

	const batchSize = 500

	ids := make([]uuid.UUID, 0, count)
	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return nil, err
		}

		for i := offset; i < end; i++ {
			id := uuid.New()
			name := gofakeit.Name()
			email := gofakeit.Email()

			_, err := tx.Exec(ctx, `
				INSERT INTO patients (id, name, email, created_at, updated_at)
				VALUES ($1, $2, $3, now(), now())
			`, id, name, email)
			if err != nil {
				_ = tx.Rollback(ctx)
				return nil, err
			}
			ids = append(ids, id)
		}

		if err := tx.Commit(ctx); err != nil {
			return nil, err
		}
	}

	log.Println("patients seeded")
	return ids, nil
}

func seedSessions(ctx context.Context, pool *pgxpool.Pool, therapistIDs, patientIDs []uuid.UUID, count int) error {
	log.Printf("seeding %d booked sessions", count)

	durations := []int{30, 45, 60, 90}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i := 0; i < count; i++ {
		tid := therapistIDs[gofakeit.Number(0, len(therapistIDs)-1)]
		pid := patientIDs[gofakeit.Number(0, len(patientIDs)-1)]

		// Weekday within the next two weeks, on the slot grid.
		date := time.Now().AddDate(0, 0, gofakeit.Number(1, 14))
		for date.Weekday() == time.Saturday || date.Weekday() == time.Sunday {
			date = date.AddDate(0, 0, 1)
		}
		day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)

		startMinutes := 9*60 + scheduling.SlotStep*gofakeit.Number(0, 28)

		_, err := tx.Exec(ctx, `
			INSERT INTO booked_sessions (id, patient_id, therapist_id, service_id, scheduled_date, scheduled_time, duration_minutes, status, notes, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, 'scheduled', '', now(), now())
		`, uuid.New(), pid, tid, uuid.New(), day, scheduling.FromMinutes(startMinutes),
			durations[gofakeit.Number(0, len(durations)-1)])
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("sessions seeded")
	return nil
}
