package availability

import (
	"fmt"
	"time"
)

// TimeOfDay is a wall-clock time expressed as minutes since midnight in the
// platform's canonical timezone.
type TimeOfDay int

// ParseTimeOfDay parses "HH:MM" (24-hour clock).
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	return TimeOfDay(h*60 + m), nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// At anchors the time of day on a calendar date in the given location.
func (t TimeOfDay) At(date time.Time, loc *time.Location) time.Time {
	y, m, d := date.In(loc).Date()
	return time.Date(y, m, d, int(t)/60, int(t)%60, 0, 0, loc)
}

// Minutes returns the value as a duration from midnight.
func (t TimeOfDay) Minutes() time.Duration {
	return time.Duration(t) * time.Minute
}

// DayWindow is one day's recurring availability. An inactive day keeps its
// last configured window but is never bookable.
type DayWindow struct {
	Active bool      `json:"active"`
	Start  TimeOfDay `json:"start"`
	End    TimeOfDay `json:"end"`
}

// WeeklyAvailability maps every day of the week (Sunday=0) to its window.
// The zero value is a fully inactive week, which is also what unconfigured
// practitioners get: callers never see missing days.
type WeeklyAvailability [7]DayWindow

// Window returns the configured window for a weekday.
func (w WeeklyAvailability) Window(day time.Weekday) DayWindow {
	return w[int(day)]
}

// HasAnyActiveDay reports whether at least one day is bookable.
func (w WeeklyAvailability) HasAnyActiveDay() bool {
	for _, d := range w {
		if d.Active {
			return true
		}
	}
	return false
}

// ActiveDays lists the bookable weekdays in Sunday-first order.
func (w WeeklyAvailability) ActiveDays() []time.Weekday {
	var days []time.Weekday
	for i, d := range w {
		if d.Active {
			days = append(days, time.Weekday(i))
		}
	}
	return days
}
