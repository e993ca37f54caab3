package appointment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zelo-saude/agendamento/internal/availability"
)

func TestGenerateSlotsEmptyWeek(t *testing.T) {
	var week availability.WeeklyAvailability
	slots := GenerateSlots(week, testMonday, 50*time.Minute, 10*time.Minute, nil, testNow, testRules())
	assert.Empty(t, slots)
}

func TestGenerateSlotsMondayScenario(t *testing.T) {
	// Monday 09:00-17:00, 50-minute consultations, 10-minute buffer.
	week := mondayWeek(9*60, 17*60)
	slots := GenerateSlots(week, testMonday, 50*time.Minute, 10*time.Minute, nil, testNow, testRules())

	require.NotEmpty(t, slots)
	assert.Equal(t, at(testMonday, 9, 0), slots[0].Start)
	assert.Equal(t, at(testMonday, 10, 0), slots[1].Start)
	assert.Equal(t, at(testMonday, 11, 0), slots[2].Start)

	// 09:00 through 16:00 inclusive, hourly steps.
	assert.Len(t, slots, 8)
	last := slots[len(slots)-1]
	assert.Equal(t, at(testMonday, 16, 0), last.Start)
	assert.Equal(t, at(testMonday, 16, 50), last.End)
}

func TestGenerateSlotsStayInsideWindow(t *testing.T) {
	week := mondayWeek(9*60, 17*60)
	windowStart := at(testMonday, 9, 0)
	windowEnd := at(testMonday, 17, 0)

	slots := GenerateSlots(week, testMonday, 50*time.Minute, 10*time.Minute, nil, testNow, testRules())
	for _, s := range slots {
		assert.False(t, s.Start.Before(windowStart), "slot %s before window", s.Start)
		assert.False(t, s.End.After(windowEnd), "slot ending %s after window", s.End)
	}
}

func TestGenerateSlotsWindowShorterThanOneSlot(t *testing.T) {
	// 30-minute window cannot host a 50-minute consultation. The store would
	// reject this config, but the generator must not emit anything either.
	week := mondayWeek(9*60, 9*60+30)
	slots := GenerateSlots(week, testMonday, 50*time.Minute, 10*time.Minute, nil, testNow, testRules())
	assert.Empty(t, slots)
}

func TestGenerateSlotsChronologicalOrder(t *testing.T) {
	week := mondayWeek(9*60, 17*60)
	slots := GenerateSlots(week, testMonday, 50*time.Minute, 10*time.Minute, nil, testNow, testRules())

	for i := 1; i < len(slots); i++ {
		assert.True(t, slots[i-1].Start.Before(slots[i].Start))
	}
}

func TestGenerateSlotsIdempotent(t *testing.T) {
	week := mondayWeek(9*60, 17*60)
	existing := []Appointment{blocking(at(testMonday, 10, 0), at(testMonday, 10, 50))}

	first := GenerateSlots(week, testMonday, 50*time.Minute, 10*time.Minute, existing, testNow, testRules())
	second := GenerateSlots(week, testMonday, 50*time.Minute, 10*time.Minute, existing, testNow, testRules())
	assert.Equal(t, first, second)
}

func TestGenerateSlotsMarksConflictsUnavailable(t *testing.T) {
	week := mondayWeek(9*60, 17*60)
	existing := []Appointment{blocking(at(testMonday, 10, 0), at(testMonday, 10, 50))}

	slots := GenerateSlots(week, testMonday, 50*time.Minute, 10*time.Minute, existing, testNow, testRules())
	require.Len(t, slots, 8)

	for _, s := range slots {
		if s.Start.Equal(at(testMonday, 10, 0)) {
			assert.False(t, s.Available, "slot over an existing booking must be unavailable")
		} else {
			assert.True(t, s.Available, "slot %s expected available", s.Start)
		}
	}
}

func TestAvailableSlotsRoundTripThroughValidator(t *testing.T) {
	week := mondayWeek(9*60, 17*60)
	existing := []Appointment{blocking(at(testMonday, 13, 0), at(testMonday, 13, 50))}
	rules := testRules()

	slots := GenerateSlots(week, testMonday, 50*time.Minute, 10*time.Minute, existing, testNow, rules)
	for _, s := range slots {
		if !s.Available {
			continue
		}
		res := Validate(s.Start, 50*time.Minute, week, existing, testNow, rules)
		assert.True(t, res.Valid, "available slot %s must validate cleanly: %v", s.Start, res.Errors)
	}
}

func TestGenerateSlotsAnchorDateInConfiguredZone(t *testing.T) {
	// A date-only value arrives as UTC midnight. With Sao Paulo rules that
	// instant is still Sunday evening, but the slots must belong to the
	// Monday the date names, not the day before.
	saoPaulo, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)
	rules := testRules()
	rules.Timezone = saoPaulo

	monday := time.Date(2026, time.August, 31, 0, 0, 0, 0, time.UTC)
	week := mondayWeek(9*60, 17*60)

	slots := GenerateSlots(week, monday, 50*time.Minute, 10*time.Minute, nil, testNow, rules)
	require.Len(t, slots, 8)
	// Monday 09:00 in Sao Paulo (UTC-3) is 12:00 UTC.
	assert.Equal(t, time.Date(2026, time.August, 31, 12, 0, 0, 0, time.UTC), slots[0].Start.UTC())

	// A week with only a Sunday window yields nothing for that Monday date.
	var sundayWeek availability.WeeklyAvailability
	sundayWeek[0] = week[1]
	assert.Empty(t, GenerateSlots(sundayWeek, monday, 50*time.Minute, 10*time.Minute, nil, testNow, rules))
}

func TestGenerateSlotsDefaultsFromRules(t *testing.T) {
	week := mondayWeek(9*60, 17*60)
	// duration<=0 and buffer<0 fall back to the configured 50m/10m.
	explicit := GenerateSlots(week, testMonday, 50*time.Minute, 10*time.Minute, nil, testNow, testRules())
	defaulted := GenerateSlots(week, testMonday, 0, -1, nil, testNow, testRules())
	assert.Equal(t, explicit, defaulted)
}
