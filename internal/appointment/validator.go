package appointment

import (
	"fmt"
	"time"

	"github.com/zelo-saude/agendamento/internal/availability"
	"github.com/zelo-saude/agendamento/internal/config"
)

// ValidationResult collects every rule violation for a booking candidate.
// Warnings are advisory and never make the candidate invalid.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`

	// Conflict distinguishes an overlap with an existing appointment from
	// plain rule violations, so callers can answer 409 instead of 400.
	Conflict bool `json:"-"`
}

func (r *ValidationResult) addError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) addWarning(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Validate runs every booking rule against a candidate start time. All checks
// run and all failures are reported; the function is pure so the slot
// generator and the booking endpoint share one conflict rule.
func Validate(candidate time.Time, duration time.Duration, week availability.WeeklyAvailability, existing []Appointment, now time.Time, rules config.SchedulingRules) ValidationResult {
	res := ValidationResult{}
	loc := rules.Timezone
	local := candidate.In(loc)
	localNow := now.In(loc)

	if candidate.Before(now) {
		res.addError("start time %s is in the past", local.Format(time.RFC3339))
	}

	if lead := candidate.Sub(now); lead < rules.MinimumLead {
		res.addError("bookings need at least %s of lead time", rules.MinimumLead)
	} else if lead > rules.MaximumHorizon {
		res.addError("bookings may be at most %s ahead", rules.MaximumHorizon)
	}

	minuteOfDay := local.Hour()*60 + local.Minute()
	if minuteOfDay < rules.DayOpenMinute || minuteOfDay >= rules.DayCloseMinute {
		res.addError("start time %s is outside operating hours [%s, %s)",
			local.Format("15:04"),
			availability.TimeOfDay(rules.DayOpenMinute),
			availability.TimeOfDay(rules.DayCloseMinute))
	}

	if !insideActiveWindow(local, duration, week, loc) {
		res.addError("practitioner has no availability covering %s on %s",
			local.Format("15:04"), local.Weekday())
	}

	end := candidate.Add(duration)
	for i := range existing {
		appt := &existing[i]
		if !appt.Status.Blocking() {
			continue
		}
		// Half-open overlap with the buffer added on both sides: back-to-back
		// bookings always keep the configured gap, touching edges do not clash.
		if candidate.Before(appt.EndAt.Add(rules.Buffer)) && appt.StartAt.Before(end.Add(rules.Buffer)) {
			res.Conflict = true
			res.addError("conflicts with an existing appointment from %s to %s",
				appt.StartAt.In(loc).Format("15:04"), appt.EndAt.In(loc).Format("15:04"))
		}
	}

	sameDay := local.Year() == localNow.Year() && local.YearDay() == localNow.YearDay()
	if sameDay {
		res.addWarning("same-day booking: confirm with the practitioner that the slot is truly open")
	}

	res.Valid = len(res.Errors) == 0
	return res
}

// insideActiveWindow reports whether [candidate, candidate+duration) fits
// entirely inside one of the weekday's active windows.
func insideActiveWindow(local time.Time, duration time.Duration, week availability.WeeklyAvailability, loc *time.Location) bool {
	for _, window := range dayWindows(week, local.Weekday()) {
		windowStart := window.Start.At(local, loc)
		windowEnd := window.End.At(local, loc)
		if !local.Before(windowStart) && !local.Add(duration).After(windowEnd) {
			return true
		}
	}
	return false
}

// dayWindows lists the active windows configured for a weekday. The weekly
// model carries one window per day today; callers iterate so that multiple
// windows per day stay a data-model change, not an algorithm change.
func dayWindows(week availability.WeeklyAvailability, day time.Weekday) []availability.DayWindow {
	w := week.Window(day)
	if !w.Active {
		return nil
	}
	return []availability.DayWindow{w}
}
