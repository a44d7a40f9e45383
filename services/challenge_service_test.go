package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"runClubAPI/internal/ruleset"
	"runClubAPI/internal/strava"
	"runClubAPI/internal/types/challenge"
	"runClubAPI/internal/types/user"
)

func testChallenge(rt challenge.RulesetType, cfg challenge.RulesetConfig, start, end string) *challenge.Challenge {
	return &challenge.Challenge{
		ID:            uuid.New(),
		Title:         "September miles",
		RulesetType:   rt,
		RulesetConfig: cfg,
		StartDate:     mustDate(start),
		EndDate:       mustDate(end),
	}
}

func mustDate(s string) time.Time {
	t, err := time.Parse(ruleset.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestAttemptsByDateWindowsAndAggregates(t *testing.T) {
	activities := []strava.Activity{
		activity(1, "2026-09-01T07:00:00Z", 5000, 1500),
		activity(2, "2026-09-01T19:00:00Z", 3000, 950), // same date, second run
		activity(3, "2026-08-31T07:00:00Z", 8000, 2400), // day before the window
		activity(4, "2026-09-30T23:30:00Z", 4000, 1200), // last day, inclusive
		activity(5, "2026-10-01T00:10:00Z", 4000, 1200), // day after
		activity(6, "garbage", 4000, 1200),
	}

	attempts := attemptsByDate(activities, mustDate("2026-09-01"), mustDate("2026-09-30"))

	require.Len(t, attempts, 2)
	day1 := attempts["2026-09-01"]
	assert.InDelta(t, 8.0, day1.Km, 0.001)
	// Minutes floor per activity: 1500s is 25min, 950s is 15min.
	assert.Equal(t, 40, day1.Minutes)

	last := attempts["2026-09-30"]
	assert.InDelta(t, 4.0, last.Km, 0.001)
}

func TestEvaluateParticipantDistanceTotal(t *testing.T) {
	ch := testChallenge(challenge.DistanceTotal, challenge.RulesetConfig{TargetKm: 60}, "2026-09-01", "2026-09-30")
	now := mustDate("2026-09-20")

	activities := []strava.Activity{
		activity(1, "2026-09-02T07:00:00Z", 30000, 9000),
		activity(2, "2026-09-10T07:00:00Z", 35000, 10500),
		activity(3, "2026-08-20T07:00:00Z", 40000, 12000), // before the window
	}

	progress, completed, err := evaluateParticipant(ch, activities, now)
	require.NoError(t, err)

	assert.True(t, completed, "65 km beats the 60 km target")
	assert.InDelta(t, 65.0, progress.KmCompleted, 0.001)
	assert.Len(t, progress.AttemptsLog, 2)
	assert.Nil(t, progress.DailyStatus)
}

func TestEvaluateParticipantRecurringBackAnnotates(t *testing.T) {
	ch := testChallenge(challenge.DistanceRecurring,
		challenge.RulesetConfig{PerDayKm: 5, IntervalDays: 2}, "2026-09-01", "2026-09-05")
	now := mustDate("2026-09-10")

	activities := []strava.Activity{
		activity(1, "2026-09-01T07:00:00Z", 6000, 1800),
		activity(2, "2026-09-02T07:00:00Z", 10000, 3000), // off-schedule day
		activity(3, "2026-09-03T07:00:00Z", 3000, 900),   // required day, under target
	}

	progress, completed, err := evaluateParticipant(ch, activities, now)
	require.NoError(t, err)

	assert.False(t, completed)
	assert.Equal(t, map[string]bool{
		"2026-09-01": true,
		"2026-09-03": false,
		"2026-09-05": false,
	}, progress.DailyStatus)

	require.Len(t, progress.AttemptsLog, 3)
	// Attempts come back date-sorted; only required days carry a verdict.
	assert.Equal(t, "2026-09-01", progress.AttemptsLog[0].Date)
	require.NotNil(t, progress.AttemptsLog[0].Completed)
	assert.True(t, *progress.AttemptsLog[0].Completed)
	assert.Nil(t, progress.AttemptsLog[1].Completed, "off-schedule attempts carry no verdict")
	require.NotNil(t, progress.AttemptsLog[2].Completed)
	assert.False(t, *progress.AttemptsLog[2].Completed)
}

func TestEvaluateParticipantUnknownRuleset(t *testing.T) {
	ch := testChallenge("swim_total", challenge.RulesetConfig{}, "2026-09-01", "2026-09-30")
	_, _, err := evaluateParticipant(ch, nil, mustDate("2026-09-10"))
	assert.Error(t, err)
}

func strPtr(s string) *string { return &s }

func testUser(name string) *user.User {
	return &user.User{
		ID:          uuid.New(),
		Name:        name,
		Slug:        name,
		StartupName: strPtr(name + " Inc"),
	}
}

func TestRankParticipantsCompletedFirst(t *testing.T) {
	ch := testChallenge(challenge.DistanceTotal, challenge.RulesetConfig{TargetKm: 100}, "2026-09-01", "2026-09-30")

	leader := testUser("leader")
	grinder := testUser("grinder")
	finisher := testUser("finisher")

	participants := []*challenge.Participant{
		{ChallengeID: ch.ID, UserID: leader.ID, Progress: challenge.Progress{KmCompleted: 80}},
		{ChallengeID: ch.ID, UserID: finisher.ID, Progress: challenge.Progress{KmCompleted: 101}, Completed: true},
		{ChallengeID: ch.ID, UserID: grinder.ID, Progress: challenge.Progress{KmCompleted: 40}},
	}
	usersByID := map[uuid.UUID]*user.User{
		leader.ID:   leader,
		grinder.ID:  grinder,
		finisher.ID: finisher,
	}

	entries, err := rankParticipants(ch, participants, usersByID)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, finisher.ID, entries[0].UserID, "completed always outranks in-progress")
	assert.Equal(t, leader.ID, entries[1].UserID)
	assert.Equal(t, grinder.ID, entries[2].UserID)
	assert.Equal(t, 101.0, entries[0].ProgressMetric)
}

func TestRankParticipantsDropsMissingUsers(t *testing.T) {
	ch := testChallenge(challenge.DistanceTotal, challenge.RulesetConfig{TargetKm: 100}, "2026-09-01", "2026-09-30")
	known := testUser("known")

	participants := []*challenge.Participant{
		{ChallengeID: ch.ID, UserID: known.ID, Progress: challenge.Progress{KmCompleted: 10}},
		{ChallengeID: ch.ID, UserID: uuid.New(), Progress: challenge.Progress{KmCompleted: 99}},
	}

	entries, err := rankParticipants(ch, participants, map[uuid.UUID]*user.User{known.ID: known})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, known.ID, entries[0].UserID)
}
