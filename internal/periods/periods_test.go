package periods

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"runClubAPI/internal/types/leaderboard"
)

func TestStart(t *testing.T) {
	// A Thursday mid-afternoon.
	now := time.Date(2026, time.August, 27, 15, 30, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
		Start(leaderboard.PeriodYear, now))
	assert.Equal(t, time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC),
		Start(leaderboard.PeriodMonth, now))
	assert.Equal(t, time.Date(2026, time.August, 24, 0, 0, 0, 0, time.UTC),
		Start(leaderboard.PeriodWeek, now), "week starts on the most recent Monday")
	assert.Equal(t, time.Unix(0, 0).UTC(),
		Start(leaderboard.PeriodAllTime, now))
}

func TestStartOnMonday(t *testing.T) {
	monday := time.Date(2026, time.August, 24, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, time.August, 24, 0, 0, 0, 0, time.UTC),
		Start(leaderboard.PeriodWeek, monday), "Monday's week starts that same day")
}
