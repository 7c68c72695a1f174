package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinova/clinic-scheduling/internal/config"
	"github.com/clinova/clinic-scheduling/internal/db"
	"github.com/clinova/clinic-scheduling/internal/schedule"
)

// simulate hammers one practitioner's day with racing booking requests and
// then verifies in Postgres that the no-double-booking invariant held. Every
// worker fetches the live slot list and tries to grab a random slot, so most
// requests collide on purpose.

type simConfig struct {
	APIBaseURL     string
	Workers        int
	Requests       int
	PractitionerID uuid.UUID
	Date           time.Time
	PostgresDSN    string
}

type tally struct {
	Created  int64
	Conflict int64
	Busy     int64
	Errors   int64
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	sim, err := loadSimConfig(cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("simulate config error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, sim.PostgresDSN)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	patients, err := loadPatientIDs(ctx, pool, 200)
	if err != nil {
		log.Fatalf("load patients: %v", err)
	}
	if sim.PractitionerID == uuid.Nil {
		sim.PractitionerID, err = anyPractitionerID(ctx, pool)
		if err != nil {
			log.Fatalf("load practitioner: %v", err)
		}
	}

	log.Printf("simulating %d requests across %d workers against practitioner %s on %s",
		sim.Requests, sim.Workers, sim.PractitionerID, schedule.FormatDate(sim.Date))

	var t tally
	var wg sync.WaitGroup
	jobs := make(chan struct{})

	client := &http.Client{Timeout: 10 * time.Second}

	for w := 0; w < sim.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rng := rand.New(rand.NewSource(time.Now().UnixNano() ^ int64(rand.Int())))
			for range jobs {
				bookOnce(client, sim, patients[rng.Intn(len(patients))], rng, &t)
			}
		}()
	}

	for i := 0; i < sim.Requests; i++ {
		jobs <- struct{}{}
	}
	close(jobs)
	wg.Wait()

	log.Printf("done: created=%d conflict=%d busy=%d errors=%d",
		t.Created, t.Conflict, t.Busy, t.Errors)

	overlaps, err := countOverlaps(ctx, pool, sim.PractitionerID, sim.Date)
	if err != nil {
		log.Fatalf("verify overlaps: %v", err)
	}
	if overlaps > 0 {
		log.Fatalf("INVARIANT VIOLATED: %d overlapping occupied appointment pairs", overlaps)
	}
	log.Println("invariant held: no overlapping occupied appointments")
}

func loadSimConfig(dsn string) (simConfig, error) {
	sim := simConfig{
		APIBaseURL:  getEnv("SIM_API_URL", "http://127.0.0.1:8080"),
		Workers:     getEnvInt("SIM_WORKERS", 20),
		Requests:    getEnvInt("SIM_REQUESTS", 500),
		Date:        schedule.DateOnly(time.Now().AddDate(0, 0, 7)),
		PostgresDSN: dsn,
	}
	if v := os.Getenv("SIM_PRACTITIONER_ID"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return simConfig{}, fmt.Errorf("invalid SIM_PRACTITIONER_ID: %w", err)
		}
		sim.PractitionerID = id
	}
	if v := os.Getenv("SIM_DATE"); v != "" {
		d, err := schedule.ParseDate(v)
		if err != nil {
			return simConfig{}, fmt.Errorf("invalid SIM_DATE: %w", err)
		}
		sim.Date = d
	}
	return sim, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func loadPatientIDs(ctx context.Context, pool *pgxpool.Pool, limit int) ([]uuid.UUID, error) {
	rows, err := pool.Query(ctx, `SELECT id FROM patients LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no patients seeded")
	}
	return out, rows.Err()
}

func anyPractitionerID(ctx context.Context, pool *pgxpool.Pool) (uuid.UUID, error) {
	var id uuid.UUID
	err := pool.QueryRow(ctx, `SELECT id FROM practitioners LIMIT 1`).Scan(&id)
	return id, err
}

func bookOnce(client *http.Client, sim simConfig, patientID uuid.UUID, rng *rand.Rand, t *tally) {
	slots, err := fetchSlots(client, sim)
	if err != nil || len(slots) == 0 {
		atomic.AddInt64(&t.Conflict, 1)
		return
	}

	body, _ := json.Marshal(map[string]any{
		"practitioner_id": sim.PractitionerID.String(),
		"patient_id":      patientID.String(),
		"date":            schedule.FormatDate(sim.Date),
		"start":           slots[rng.Intn(len(slots))],
	})

	req, err := http.NewRequest(http.MethodPost, sim.APIBaseURL+"/appointments", bytes.NewReader(body))
	if err != nil {
		atomic.AddInt64(&t.Errors, 1)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Actor-Role", "staff")
	req.Header.Set("X-Actor-ID", uuid.NewString())

	resp, err := client.Do(req)
	if err != nil {
		atomic.AddInt64(&t.Errors, 1)
		return
	}
	respBody, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusCreated:
		atomic.AddInt64(&t.Created, 1)
	case http.StatusConflict:
		// Both losing outcomes are 409; the error code tells them apart.
		var e struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(respBody, &e)
		if e.Error == "schedule_busy" {
			atomic.AddInt64(&t.Busy, 1)
		} else {
			atomic.AddInt64(&t.Conflict, 1)
		}
	default:
		atomic.AddInt64(&t.Errors, 1)
	}
}

func fetchSlots(client *http.Client, sim simConfig) ([]string, error) {
	url := fmt.Sprintf("%s/practitioners/%s/slots?date=%s",
		sim.APIBaseURL, sim.PractitionerID, schedule.FormatDate(sim.Date))

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Actor-Role", "staff")
	req.Header.Set("X-Actor-ID", uuid.NewString())

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("slots request returned %d", resp.StatusCode)
	}

	var payload struct {
		Slots []string `json:"slots"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	return payload.Slots, nil
}

// countOverlaps reports pairs of occupying appointments on the target day
// whose half-open spans intersect. Anything above zero means the lock failed
// to serialize the write path.
func countOverlaps(ctx context.Context, pool *pgxpool.Pool, practitionerID uuid.UUID, date time.Time) (int, error) {
	var n int
	err := pool.QueryRow(ctx, `
		SELECT count(*)
		FROM appointments a
		JOIN appointments b
		  ON a.practitioner_id = b.practitioner_id
		 AND a.date = b.date
		 AND a.id < b.id
		 AND a.status <> 'cancelled'
		 AND b.status <> 'cancelled'
		 AND a.start_min < b.start_min + b.duration_min
		 AND b.start_min < a.start_min + a.duration_min
		WHERE a.practitioner_id = $1 AND a.date = $2
	`, practitionerID, schedule.DateOnly(date)).Scan(&n)
	return n, err
}
