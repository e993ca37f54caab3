package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/zelo-saude/agendamento/internal/db"
)

type PgRepository struct {
	pool db.Pool
}

func NewPgRepository(pool db.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func (r *PgRepository) InsertBatch(ctx context.Context, events []Event) error {
	for _, ev := range events {
		_, err := r.pool.Exec(ctx, `
			INSERT INTO reminder_events
				(id, appointment_id, recipient_id, practitioner_id, appointment_start, appointment_kind,
				 channel, kind, scheduled_for, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now(), now())
		`, ev.ID, ev.AppointmentID, ev.RecipientID, ev.PractitionerID, ev.AppointmentStart, ev.AppointmentKind,
			ev.Channel, ev.Kind, ev.ScheduledFor, ev.Status)
		if err != nil {
			return fmt.Errorf("insert reminder %s: %w", ev.Kind, err)
		}
	}
	return nil
}

func (r *PgRepository) VoidPending(ctx context.Context, appointmentID uuid.UUID) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE reminder_events
		SET status = 'void',
		    updated_at = now()
		WHERE appointment_id = $1
		  AND status = 'pending'
	`, appointmentID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *PgRepository) FindDue(ctx context.Context, now time.Time, limit int) ([]Event, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, appointment_id, recipient_id, practitioner_id, appointment_start, appointment_kind,
		       channel, kind, scheduled_for, status, created_at, updated_at
		FROM reminder_events
		WHERE status = 'pending'
		  AND scheduled_for <= $1
		ORDER BY scheduled_for
		LIMIT $2
	`, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Event
	for rows.Next() {
		var ev Event
		err := rows.Scan(
			&ev.ID,
			&ev.AppointmentID,
			&ev.RecipientID,
			&ev.PractitionerID,
			&ev.AppointmentStart,
			&ev.AppointmentKind,
			&ev.Channel,
			&ev.Kind,
			&ev.ScheduledFor,
			&ev.Status,
			&ev.CreatedAt,
			&ev.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		result = append(result, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PgRepository) MarkOutcome(ctx context.Context, id uuid.UUID, to Status) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE reminder_events
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = 'pending'
	`, id, to)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PgRepository) MarkRemindersSent(ctx context.Context, appointmentID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE appointments
		SET reminders_sent = true,
		    updated_at = now()
		WHERE id = $1
	`, appointmentID)
	return err
}
