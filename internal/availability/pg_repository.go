package availability

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/zelo-saude/agendamento/internal/db"
)

// PgRepository persists weekly availability as one row per (practitioner, weekday).
type PgRepository struct {
	pool db.Pool
}

func NewPgRepository(pool db.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func (r *PgRepository) GetWeekly(ctx context.Context, practitionerID uuid.UUID) (WeeklyAvailability, bool, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT day_of_week, active, start_minute, end_minute
		FROM weekly_availability
		WHERE practitioner_id = $1
		ORDER BY day_of_week
	`, practitionerID)
	if err != nil {
		return WeeklyAvailability{}, false, err
	}
	defer rows.Close()

	var week WeeklyAvailability
	found := false
	for rows.Next() {
		var day, startMin, endMin int
		var active bool
		if err := rows.Scan(&day, &active, &startMin, &endMin); err != nil {
			return WeeklyAvailability{}, false, err
		}
		if day < 0 || day > 6 {
			return WeeklyAvailability{}, false, fmt.Errorf("corrupt day_of_week %d for practitioner %s", day, practitionerID)
		}
		week[day] = DayWindow{
			Active: active,
			Start:  TimeOfDay(startMin),
			End:    TimeOfDay(endMin),
		}
		found = true
	}
	if err := rows.Err(); err != nil {
		return WeeklyAvailability{}, false, err
	}

	return week, found, nil
}

func (r *PgRepository) ReplaceWeekly(ctx context.Context, practitionerID uuid.UUID, week WeeklyAvailability) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin replace weekly: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	for day, window := range week {
		_, err := tx.Exec(ctx, `
			INSERT INTO weekly_availability (practitioner_id, day_of_week, active, start_minute, end_minute, updated_at)
			VALUES ($1, $2, $3, $4, $5, now())
			ON CONFLICT (practitioner_id, day_of_week)
			DO UPDATE SET active = EXCLUDED.active,
			              start_minute = EXCLUDED.start_minute,
			              end_minute = EXCLUDED.end_minute,
			              updated_at = now()
		`, practitionerID, day, window.Active, int(window.Start), int(window.End))
		if err != nil {
			return fmt.Errorf("upsert day %d: %w", day, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit replace weekly: %w", err)
	}
	return nil
}
