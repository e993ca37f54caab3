package availability

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetWeeklyUnconfigured(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	mock.ExpectQuery("SELECT day_of_week, active, start_minute, end_minute").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"day_of_week", "active", "start_minute", "end_minute"}))

	week, found, err := NewPgRepository(mock).GetWeekly(context.Background(), id)
	require.NoError(t, err)
	assert.False(t, found)
	assert.False(t, week.HasAnyActiveDay())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetWeeklyMapsRows(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	rows := pgxmock.NewRows([]string{"day_of_week", "active", "start_minute", "end_minute"}).
		AddRow(int(time.Monday), true, 9*60, 17*60).
		AddRow(int(time.Sunday), false, 0, 0)
	mock.ExpectQuery("SELECT day_of_week, active, start_minute, end_minute").
		WithArgs(id).
		WillReturnRows(rows)

	week, found, err := NewPgRepository(mock).GetWeekly(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, DayWindow{Active: true, Start: 9 * 60, End: 17 * 60}, week.Window(time.Monday))
	assert.False(t, week.Window(time.Sunday).Active)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceWeeklyUpsertsAllSevenDaysInOneTx(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	var week WeeklyAvailability
	week[int(time.Monday)] = DayWindow{Active: true, Start: 9 * 60, End: 17 * 60}

	mock.ExpectBegin()
	for day := 0; day < 7; day++ {
		mock.ExpectExec("INSERT INTO weekly_availability").
			WithArgs(id, day, week[day].Active, int(week[day].Start), int(week[day].End)).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}
	mock.ExpectCommit()

	require.NoError(t, NewPgRepository(mock).ReplaceWeekly(context.Background(), id, week))
	assert.NoError(t, mock.ExpectationsWereMet())
}
