package periods

import (
	"time"

	"runClubAPI/internal/types/leaderboard"
)

// Start returns the inclusive lower bound for a leaderboard period.
// Week starts on the most recent Monday; all_time is epoch zero.
func Start(p leaderboard.Period, now time.Time) time.Time {
	now = now.UTC()
	switch p {
	case leaderboard.PeriodYear:
		return time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	case leaderboard.PeriodMonth:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	case leaderboard.PeriodWeek:
		daysSinceMonday := (int(now.Weekday()) + 6) % 7
		monday := now.AddDate(0, 0, -daysSinceMonday)
		return time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, time.UTC)
	default:
		return time.Unix(0, 0).UTC()
	}
}
