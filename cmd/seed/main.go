package main

import (
	"context"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/zelo-saude/agendamento/internal/db"
)

var log = zerolog.New(os.Stderr).With().Timestamp().Str("service", "seed").Logger()

func main() {
	log.Info().Msg("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal().Msg("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	practitioners, err := seedPractitioners(context.Background(), pool, 50)
	if err != nil {
		log.Fatal().Err(err).Msg("seed practitioners")
	}
	if err := seedPatients(context.Background(), pool, 2000); err != nil {
		log.Fatal().Err(err).Msg("seed patients")
	}
	if err := seedAvailability(context.Background(), pool, practitioners); err != nil {
		log.Fatal().Err(err).Msg("seed availability")
	}

	log.Info().Msg("seed complete")
}

func seedPractitioners(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Info().Int("count", count).Msg("seeding practitioners")

	specialties := []string{
		"Clínica Geral",
		"Psicologia",
		"Nutrição",
		"Fisioterapia",
		"Dermatologia",
		"Cardiologia",
	}

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		specialty := specialties[gofakeit.Number(0, len(specialties)-1)]
		_, err := pool.Exec(ctx, `
			INSERT INTO practitioners (id, name, specialty, created_at, updated_at)
			VALUES ($1, $2, $3, now(), now())
		`, id, gofakeit.Name(), specialty)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Info().Int("count", count).Msg("seeding patients")

	for i := 0; i < count; i++ {
		email := gofakeit.Email()
		_, err := pool.Exec(ctx, `
			INSERT INTO patients (id, name, email, created_at, updated_at)
			VALUES ($1, $2, $3, now(), now())
		`, uuid.New(), gofakeit.Name(), email)
		if err != nil {
			return err
		}
	}
	return nil
}

// seedAvailability gives every practitioner a plausible working week:
// weekdays active with a morning start, weekends mostly off.
func seedAvailability(ctx context.Context, pool *pgxpool.Pool, practitioners []uuid.UUID) error {
	log.Info().Int("practitioners", len(practitioners)).Msg("seeding availability")

	for _, id := range practitioners {
		for day := 0; day < 7; day++ {
			active := day >= 1 && day <= 5
			if active && gofakeit.Number(0, 9) == 0 {
				active = false // the occasional day off
			}
			startMin := 8 * 60
			endMin := 18 * 60
			if active {
				startMin = gofakeit.Number(7, 10) * 60
				endMin = gofakeit.Number(16, 20) * 60
			}
			_, err := pool.Exec(ctx, `
				INSERT INTO weekly_availability
					(practitioner_id, day_of_week, active, start_minute, end_minute, updated_at)
				VALUES ($1, $2, $3, $4, $5, now())
			`, id, day, active, startMin, endMin)
			if err != nil {
				return err
			}
		}
	}
	return nil
}
