package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"runClubAPI/internal/types/leaderboard"
	"runClubAPI/internal/types/stats"
	"runClubAPI/internal/types/user"
)

func TestCacheFresh(t *testing.T) {
	now := time.Date(2026, time.August, 28, 12, 0, 0, 0, time.UTC)
	assert.True(t, cacheFresh(now.Add(-29*time.Minute), now))
	assert.False(t, cacheFresh(now.Add(-30*time.Minute), now))
	assert.False(t, cacheFresh(now.Add(-2*time.Hour), now))
}

func TestSortEntriesKmThenPace(t *testing.T) {
	entries := []leaderboard.Entry{
		{Slug: "slow", TotalKm: 50, AvgPace: 360},
		{Slug: "far", TotalKm: 80, AvgPace: 400},
		{Slug: "fast", TotalKm: 50, AvgPace: 300},
	}

	sortEntries(entries)

	assert.Equal(t, "far", entries[0].Slug)
	assert.Equal(t, "fast", entries[1].Slug, "equal distance breaks ties on the faster pace")
	assert.Equal(t, "slow", entries[2].Slug)
}

func statsFor(u *user.User, days []stats.DailyActivity, totalKm, avgPace float64) *stats.UserStats {
	return &stats.UserStats{
		UserID:        u.ID,
		TotalKm:       totalKm,
		AvgPace:       avgPace,
		DailyActivity: days,
	}
}

func TestBuildEntriesAllTimeUsesStoredTotals(t *testing.T) {
	u := testUser("runner")
	allStats := []*stats.UserStats{
		statsFor(u, []stats.DailyActivity{{Date: "2026-08-01", Km: 5, DurationSeconds: 1500}}, 1200.5, 295),
	}

	entries := buildEntries(allStats, map[uuid.UUID]*user.User{u.ID: u},
		leaderboard.PeriodAllTime, time.Unix(0, 0))

	require.Len(t, entries, 1)
	assert.Equal(t, 1200.5, entries[0].TotalKm)
	assert.Equal(t, 295.0, entries[0].AvgPace)
	assert.Equal(t, u.Slug, entries[0].Slug)
}

func TestBuildEntriesPeriodReaggregatesDailyActivity(t *testing.T) {
	u := testUser("runner")
	periodStart := time.Date(2026, time.August, 24, 0, 0, 0, 0, time.UTC)

	allStats := []*stats.UserStats{
		statsFor(u, []stats.DailyActivity{
			{Date: "2026-08-20", Km: 10, DurationSeconds: 3000}, // before the window
			{Date: "2026-08-24", Km: 5, DurationSeconds: 1500},  // period start, inclusive
			{Date: "2026-08-26", Km: 7, DurationSeconds: 2100},
		}, 1200.5, 295),
	}

	entries := buildEntries(allStats, map[uuid.UUID]*user.User{u.ID: u},
		leaderboard.PeriodWeek, periodStart)

	require.Len(t, entries, 1)
	assert.Equal(t, 12.0, entries[0].TotalKm)
	assert.InDelta(t, 300.0, entries[0].AvgPace, 0.01)
}

func TestBuildEntriesDropsStatsWithoutProfile(t *testing.T) {
	u := testUser("known")
	orphan := &stats.UserStats{UserID: uuid.New(), TotalKm: 999}

	entries := buildEntries(
		[]*stats.UserStats{statsFor(u, nil, 10, 300), orphan},
		map[uuid.UUID]*user.User{u.ID: u},
		leaderboard.PeriodAllTime, time.Unix(0, 0))

	require.Len(t, entries, 1)
	assert.Equal(t, u.ID, entries[0].UserID)
}

func TestBuildEntriesCapsAtLeaderboardSize(t *testing.T) {
	allStats := make([]*stats.UserStats, 0, leaderboardSize+10)
	usersByID := make(map[uuid.UUID]*user.User)
	for i := 0; i < leaderboardSize+10; i++ {
		u := testUser(fmt.Sprintf("runner-%d", i))
		usersByID[u.ID] = u
		allStats = append(allStats, statsFor(u, nil, float64(i), 300))
	}

	entries := buildEntries(allStats, usersByID, leaderboard.PeriodAllTime, time.Unix(0, 0))

	require.Len(t, entries, leaderboardSize)
	assert.Equal(t, float64(leaderboardSize+9), entries[0].TotalKm, "the cap keeps the top of the ranking")
}
