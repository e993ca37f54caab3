package availability

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zelo-saude/agendamento/internal/config"
)

// Days shorter than this cannot host even one consultation plus slack, so the
// configuration UI rejects them before they poison slot generation.
const minWindowMinutes = 60

// InvalidAvailabilityError reports every offending day of a rejected weekly
// configuration, one message per day.
type InvalidAvailabilityError struct {
	Problems []string
}

func (e *InvalidAvailabilityError) Error() string {
	return "invalid availability: " + strings.Join(e.Problems, "; ")
}

// Store is the single authority for a practitioner's recurring weekly
// availability. Reads are total over all seven days; writes validate and then
// replace the whole week.
type Store struct {
	repo  Repository
	rules config.SchedulingRules
}

func NewStore(repo Repository, rules config.SchedulingRules) *Store {
	return &Store{repo: repo, rules: rules}
}

// Get returns the practitioner's full 7-day map. Unconfigured practitioners
// get an all-inactive week, never an error.
func (s *Store) Get(ctx context.Context, practitionerID uuid.UUID) (WeeklyAvailability, error) {
	week, found, err := s.repo.GetWeekly(ctx, practitionerID)
	if err != nil {
		return WeeklyAvailability{}, fmt.Errorf("load weekly availability: %w", err)
	}
	if !found {
		return WeeklyAvailability{}, nil
	}
	return week, nil
}

// Set validates every active day and atomically replaces the stored week.
// All violations are collected and returned together.
func (s *Store) Set(ctx context.Context, practitionerID uuid.UUID, week WeeklyAvailability) error {
	if err := s.Validate(week); err != nil {
		return err
	}
	if err := s.repo.ReplaceWeekly(ctx, practitionerID, week); err != nil {
		return fmt.Errorf("replace weekly availability: %w", err)
	}
	return nil
}

// Validate checks each active day against the window rules without touching
// persistence.
func (s *Store) Validate(week WeeklyAvailability) error {
	open := TimeOfDay(s.rules.DayOpenMinute)
	latest := TimeOfDay(s.rules.AvailCloseMin)

	var problems []string
	for i, d := range week {
		if !d.Active {
			continue
		}
		day := strings.ToLower(time.Weekday(i).String())
		switch {
		case d.End <= d.Start:
			problems = append(problems, fmt.Sprintf("%s: window end %s must be after start %s", day, d.End, d.Start))
		case d.End-d.Start < minWindowMinutes:
			problems = append(problems, fmt.Sprintf("%s: window must be at least %d minutes", day, minWindowMinutes))
		case d.Start < open || d.End > latest:
			problems = append(problems, fmt.Sprintf("%s: window must fall within [%s, %s)", day, open, latest))
		}
	}
	if len(problems) > 0 {
		return &InvalidAvailabilityError{Problems: problems}
	}
	return nil
}

// HasAnyActiveDay reports whether the practitioner is bookable at all.
func (s *Store) HasAnyActiveDay(ctx context.Context, practitionerID uuid.UUID) (bool, error) {
	week, err := s.Get(ctx, practitionerID)
	if err != nil {
		return false, err
	}
	return week.HasAnyActiveDay(), nil
}

// ActiveDays lists the practitioner's bookable weekdays.
func (s *Store) ActiveDays(ctx context.Context, practitionerID uuid.UUID) ([]time.Weekday, error) {
	week, err := s.Get(ctx, practitionerID)
	if err != nil {
		return nil, err
	}
	return week.ActiveDays(), nil
}
