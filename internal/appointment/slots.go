package appointment

import (
	"sort"
	"time"

	"github.com/zelo-saude/agendamento/internal/availability"
	"github.com/zelo-saude/agendamento/internal/config"
)

// GenerateSlots expands a practitioner's availability for one calendar date
// into the ordered list of candidate slots. It is the single source of truth
// for what can be booked: each slot's Available flag comes from the same
// validator the booking endpoint runs.
//
// A day with no active window yields an empty list, not an error. Windows
// shorter than one slot contribute nothing. Steps advance by
// duration+buffer so consecutive slots keep the configured gap.
func GenerateSlots(week availability.WeeklyAvailability, date time.Time, duration, buffer time.Duration, existing []Appointment, now time.Time, rules config.SchedulingRules) []Slot {
	if duration <= 0 {
		duration = rules.SlotDuration
	}
	if buffer < 0 {
		buffer = rules.Buffer
	}

	// The date's year/month/day name the calendar day. The instant's own zone
	// is ignored, so a date-only value parsed as UTC midnight still means that
	// day in the canonical zone rather than the evening before.
	loc := rules.Timezone
	local := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, loc)

	// Per-slot validation must apply the requested buffer, not the default.
	rules.Buffer = buffer

	seen := make(map[int64]struct{})
	var slots []Slot
	for _, window := range dayWindows(week, local.Weekday()) {
		windowEnd := window.End.At(local, loc)
		step := duration + buffer
		for t := window.Start.At(local, loc); !t.Add(duration).After(windowEnd); t = t.Add(step) {
			if _, dup := seen[t.Unix()]; dup {
				continue
			}
			seen[t.Unix()] = struct{}{}
			res := Validate(t, duration, week, existing, now, rules)
			slots = append(slots, Slot{
				Start:     t,
				End:       t.Add(duration),
				Available: res.Valid,
			})
		}
	}

	sort.Slice(slots, func(i, j int) bool {
		return slots[i].Start.Before(slots[j].Start)
	})

	return slots
}
