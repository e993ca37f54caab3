// simulate hammers one practitioner's schedule with concurrent booking
// requests to demonstrate that exactly one of N racing patients wins a slot
// and everyone else gets a conflict telling them to regenerate slots.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/zelo-saude/agendamento/internal/config"
	"github.com/zelo-saude/agendamento/internal/db"
)

type simConfig struct {
	apiBaseURL string
	workers    int
	rounds     int
	jwtSecret  string
}

type outcomeTally struct {
	mu        sync.Mutex
	created   int
	conflict  int
	invalid   int
	errored   int
	latencies []time.Duration
}

func (t *outcomeTally) record(status int, latency time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch {
	case status == http.StatusCreated:
		t.created++
	case status == http.StatusConflict:
		t.conflict++
	case status == http.StatusBadRequest:
		t.invalid++
	default:
		t.errored++
	}
	t.latencies = append(t.latencies, latency)
}

func (t *outcomeTally) percentile(p int) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.latencies) == 0 {
		return 0
	}
	sorted := make([]time.Duration, len(t.latencies))
	copy(sorted, t.latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	idx := len(sorted) * p / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func main() {
	log := zerolog.New(os.Stderr).With().Timestamp().Str("service", "simulate").Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load error")
	}

	sim := simConfig{
		apiBaseURL: getenv("SIM_API_URL", "http://127.0.0.1:"+cfg.HTTPPort),
		workers:    getenvInt("SIM_WORKERS", 20),
		rounds:     getenvInt("SIM_ROUNDS", 10),
		jwtSecret:  cfg.JWTSecret,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	practitioner, patients, err := loadActors(context.Background(), pool, sim.workers)
	if err != nil {
		log.Fatal().Err(err).Msg("load simulation actors")
	}

	log.Info().
		Int("workers", sim.workers).
		Int("rounds", sim.rounds).
		Str("practitioner", practitioner.String()).
		Msg("simulation starting")

	tally := &outcomeTally{}
	client := &http.Client{Timeout: 10 * time.Second}

	// Each round targets one fresh future slot; all workers race for it.
	start := nextMonday9h(time.Now().In(cfg.Scheduling.Timezone))
	for round := 0; round < sim.rounds; round++ {
		slotStart := start.Add(time.Duration(round) * time.Hour)

		var wg sync.WaitGroup
		for w := 0; w < sim.workers; w++ {
			wg.Add(1)
			go func(patientID uuid.UUID) {
				defer wg.Done()
				status, latency := book(client, sim, practitioner, patientID, slotStart)
				tally.record(status, latency)
			}(patients[w%len(patients)])
		}
		wg.Wait()
	}

	fmt.Printf("rounds=%d workers=%d\n", sim.rounds, sim.workers)
	fmt.Printf("created=%d conflict=%d invalid=%d errored=%d\n",
		tally.created, tally.conflict, tally.invalid, tally.errored)
	fmt.Printf("latency p50=%s p95=%s\n", tally.percentile(50), tally.percentile(95))

	if tally.created != sim.rounds {
		log.Warn().
			Int("expected", sim.rounds).
			Int("created", tally.created).
			Msg("winners != rounds: double booking or unavailable slots")
	}
}

func book(client *http.Client, sim simConfig, practitionerID, patientID uuid.UUID, slotStart time.Time) (int, time.Duration) {
	body, _ := json.Marshal(map[string]any{
		"practitioner_id": practitionerID.String(),
		"start_at":        slotStart.Format(time.RFC3339),
		"kind":            "online",
	})

	req, err := http.NewRequest(http.MethodPost, sim.apiBaseURL+"/appointments", bytes.NewReader(body))
	if err != nil {
		return 0, 0
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+mintToken(sim.jwtSecret, patientID, "patient"))

	begin := time.Now()
	resp, err := client.Do(req)
	latency := time.Since(begin)
	if err != nil {
		return 0, latency
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	return resp.StatusCode, latency
}

// mintToken forges a dev identity token the way the identity service would.
func mintToken(secret string, id uuid.UUID, role string) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  id.String(),
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, _ := token.SignedString([]byte(secret))
	return signed
}

// loadActors picks a practitioner with Monday availability plus a pool of
// patients to race against each other.
func loadActors(ctx context.Context, pool *pgxpool.Pool, patientCount int) (uuid.UUID, []uuid.UUID, error) {
	var practitioner uuid.UUID
	err := pool.QueryRow(ctx, `
		SELECT p.id
		FROM practitioners p
		JOIN weekly_availability wa ON wa.practitioner_id = p.id
		WHERE wa.day_of_week = 1 AND wa.active
		LIMIT 1
	`).Scan(&practitioner)
	if err != nil {
		return uuid.Nil, nil, fmt.Errorf("pick practitioner: %w", err)
	}

	rows, err := pool.Query(ctx, `SELECT id FROM patients LIMIT $1`, patientCount)
	if err != nil {
		return uuid.Nil, nil, fmt.Errorf("list patients: %w", err)
	}
	defer rows.Close()

	var patients []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return uuid.Nil, nil, err
		}
		patients = append(patients, id)
	}
	if err := rows.Err(); err != nil {
		return uuid.Nil, nil, err
	}
	if len(patients) == 0 {
		return uuid.Nil, nil, fmt.Errorf("no patients seeded")
	}

	return practitioner, patients, nil
}

func nextMonday9h(now time.Time) time.Time {
	day := now.AddDate(0, 0, 1)
	for day.Weekday() != time.Monday {
		day = day.AddDate(0, 0, 1)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), 9, 0, 0, 0, now.Location())
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
			return n
		}
	}
	return def
}
