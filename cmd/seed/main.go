package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinova/clinic-scheduling/internal/db"
	"github.com/clinova/clinic-scheduling/internal/schedule"
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

	if err := seedPractitioners(context.Background(), pool, 40); err != nil {
		log.Fatalf("seed practitioners: %v", err)
	}
	if err := seedPatients(context.Background(), pool, 2000); err != nil {
		log.Fatalf("seed patients: %v", err)
	}

	log.Println("seed complete")
}

// seedPractitioners creates practitioners with a standard working week
// (morning and afternoon blocks Monday to Friday), a recurring lunch break,
// and the occasional full-day closure a couple of weeks out.
func seedPractitioners(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d practitioners", count)

	specialties := []string{
		"Dermatology",
		"Cardiology",
		"General Practice",
		"Orthopedics",
		"Endocrinology",
		"Neurology",
		"Pediatrics",
		"Psychiatry",
		"Ophthalmology",
		"ENT",
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	morning := schedule.Interval{Start: schedule.MustClock("09:00"), End: schedule.MustClock("12:00")}
	afternoon := schedule.Interval{Start: schedule.MustClock("14:00"), End: schedule.MustClock("17:00")}
	lunch := schedule.Interval{Start: schedule.MustClock("12:00"), End: schedule.MustClock("14:00")}

	for i := 0; i < count; i++ {
		id := uuid.New()
		name := gofakeit.Name()
		spec := specialties[gofakeit.Number(0, len(specialties)-1)]

		_, err := tx.Exec(ctx, `
			INSERT INTO practitioners (id, name, specialty, created_at, updated_at)
			VALUES ($1, $2, $3, now(), now())
		`, id, name, spec)
		if err != nil {
			return err
		}

		for day := time.Monday; day <= time.Friday; day++ {
			for _, iv := range []schedule.Interval{morning, afternoon} {
				_, err := tx.Exec(ctx, `
					INSERT INTO weekly_availability (practitioner_id, weekday, start_min, end_min)
					VALUES ($1, $2, $3, $4)
				`, id, int(day), int(iv.Start), int(iv.End))
				if err != nil {
					return err
				}
			}

			_, err := tx.Exec(ctx, `
				INSERT INTO schedule_breaks (id, practitioner_id, weekday, date, start_min, end_min, label)
				VALUES ($1, $2, $3, NULL, $4, $5, 'lunch')
			`, uuid.New(), id, int(day), int(lunch.Start), int(lunch.End))
			if err != nil {
				return err
			}
		}

		// Roughly one in five practitioners gets a full-day closure soon.
		if gofakeit.Number(0, 4) == 0 {
			closure := schedule.DateOnly(time.Now().AddDate(0, 0, gofakeit.Number(7, 21)))
			_, err := tx.Exec(ctx, `
				INSERT INTO schedule_exceptions (id, practitioner_id, date, closed, hours, label)
				VALUES ($1, $2, $3, true, NULL, 'conference')
			`, uuid.New(), id, closure)
			if err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("practitioners seeded")
	return nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d patients", count)

	const batchSize = 500

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
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
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		log.Printf("patients seeded: %d/%d", end, count)
	}

	log.Println("patients seeded")
	return nil
}
