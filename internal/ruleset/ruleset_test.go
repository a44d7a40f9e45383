package ruleset

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"runClubAPI/internal/apperr"
	"runClubAPI/internal/types/challenge"
)

func day(s string) time.Time {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestParseUnknownType(t *testing.T) {
	_, err := Parse("swim_total", challenge.RulesetConfig{})
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestValidateRequiredFields(t *testing.T) {
	tests := []struct {
		name    string
		rt      challenge.RulesetType
		cfg     challenge.RulesetConfig
		wantErr bool
	}{
		{"distance total ok", challenge.DistanceTotal, challenge.RulesetConfig{TargetKm: 60}, false},
		{"distance total missing target", challenge.DistanceTotal, challenge.RulesetConfig{}, true},
		{"distance recurring ok", challenge.DistanceRecurring, challenge.RulesetConfig{PerDayKm: 5, IntervalDays: 2}, false},
		{"distance recurring missing interval", challenge.DistanceRecurring, challenge.RulesetConfig{PerDayKm: 5}, true},
		{"duration total ok", challenge.DurationTotal, challenge.RulesetConfig{TargetMinutes: 300}, false},
		{"duration recurring missing per day", challenge.DurationRecurring, challenge.RulesetConfig{IntervalDays: 1}, true},
		{"frequency ok", challenge.FrequencyBased, challenge.RulesetConfig{RequiredFrequency: 3}, false},
		{"frequency missing", challenge.FrequencyBased, challenge.RulesetConfig{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.rt, tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDistanceTotalCompletion(t *testing.T) {
	rs, err := Parse(challenge.DistanceTotal, challenge.RulesetConfig{TargetKm: 60})
	require.NoError(t, err)

	attempts := map[string]DayTotals{
		"2026-09-01": {Km: 25},
		"2026-09-05": {Km: 30},
	}
	outcome := rs.Evaluate(attempts, day("2026-09-01"), day("2026-09-30"), day("2026-09-10"))
	assert.False(t, outcome.Completed, "55 of 60 km is not done")
	assert.Nil(t, outcome.DailyStatus)

	attempts["2026-09-08"] = DayTotals{Km: 5}
	outcome = rs.Evaluate(attempts, day("2026-09-01"), day("2026-09-30"), day("2026-09-10"))
	assert.True(t, outcome.Completed)
}

func TestDurationTotalCompletion(t *testing.T) {
	rs, err := Parse(challenge.DurationTotal, challenge.RulesetConfig{TargetMinutes: 100})
	require.NoError(t, err)

	attempts := map[string]DayTotals{
		"2026-09-01": {Minutes: 40},
		"2026-09-02": {Minutes: 60},
	}
	outcome := rs.Evaluate(attempts, day("2026-09-01"), day("2026-09-30"), day("2026-09-03"))
	assert.True(t, outcome.Completed)
}

func TestRecurringRequiredDays(t *testing.T) {
	rs, err := Parse(challenge.DistanceRecurring, challenge.RulesetConfig{PerDayKm: 5, IntervalDays: 3})
	require.NoError(t, err)

	start := day("2026-09-01")
	end := day("2026-09-08")
	now := day("2026-09-20") // past the end, so the window is fully evaluated

	attempts := map[string]DayTotals{
		"2026-09-01": {Km: 6},
		"2026-09-04": {Km: 5},
		"2026-09-07": {Km: 5.2},
		"2026-09-02": {Km: 12}, // not a required day, must not appear
	}
	outcome := rs.Evaluate(attempts, start, end, now)

	// Required days are the exact interval multiples from the start.
	assert.Equal(t, map[string]bool{
		"2026-09-01": true,
		"2026-09-04": true,
		"2026-09-07": true,
	}, outcome.DailyStatus)
	assert.True(t, outcome.Completed)
}

func TestRecurringMissedDayIsPresentAndFalse(t *testing.T) {
	rs, err := Parse(challenge.DurationRecurring, challenge.RulesetConfig{PerDayMinutes: 30, IntervalDays: 2})
	require.NoError(t, err)

	start := day("2026-09-01")
	end := day("2026-09-05")
	now := day("2026-09-10")

	attempts := map[string]DayTotals{
		"2026-09-01": {Minutes: 45},
		"2026-09-05": {Minutes: 30},
		// 2026-09-03 has no run at all
	}
	outcome := rs.Evaluate(attempts, start, end, now)

	met, ok := outcome.DailyStatus["2026-09-03"]
	require.True(t, ok, "a required day with no attempt must still be reported")
	assert.False(t, met)
	assert.False(t, outcome.Completed)
}

func TestRecurringNeverExtendsPastToday(t *testing.T) {
	rs, err := Parse(challenge.DistanceRecurring, challenge.RulesetConfig{PerDayKm: 5, IntervalDays: 1})
	require.NoError(t, err)

	start := day("2026-09-01")
	end := day("2026-09-30")
	now := day("2026-09-03")

	outcome := rs.Evaluate(map[string]DayTotals{}, start, end, now)

	assert.Len(t, outcome.DailyStatus, 3, "only days up to today are evaluated")
	_, future := outcome.DailyStatus["2026-09-04"]
	assert.False(t, future)
}

func TestRecurringNoRequiredDaysIsIncomplete(t *testing.T) {
	rs, err := Parse(challenge.DistanceRecurring, challenge.RulesetConfig{PerDayKm: 5, IntervalDays: 3})
	require.NoError(t, err)

	// The challenge has not started yet, so nothing has been evaluated.
	outcome := rs.Evaluate(map[string]DayTotals{}, day("2026-09-10"), day("2026-09-20"), day("2026-09-01"))
	assert.Empty(t, outcome.DailyStatus)
	assert.False(t, outcome.Completed, "an empty evaluation never counts as completed")
}

func TestFrequencyBasedCompletion(t *testing.T) {
	rs, err := Parse(challenge.FrequencyBased, challenge.RulesetConfig{RequiredFrequency: 3})
	require.NoError(t, err)

	start := day("2026-09-07")
	end := day("2026-09-21") // exactly two weeks, so 6 runs required

	attempts := map[string]DayTotals{
		"2026-09-07": {Km: 5}, "2026-09-09": {Km: 5}, "2026-09-11": {Km: 5},
		"2026-09-14": {Km: 5}, "2026-09-16": {Km: 5},
	}
	outcome := rs.Evaluate(attempts, start, end, end)
	assert.False(t, outcome.Completed, "5 distinct run dates is short of 6")

	attempts["2026-09-18"] = DayTotals{Km: 5}
	outcome = rs.Evaluate(attempts, start, end, end)
	assert.True(t, outcome.Completed)
}

func TestFrequencyBasedPartialWeekRoundsUp(t *testing.T) {
	rs := FrequencyBased{RequiredFrequency: 2}
	// 10 days round up to two weeks.
	assert.Equal(t, 4, rs.requiredRuns(day("2026-09-01"), day("2026-09-11")))
}

func TestProgressMetricPerType(t *testing.T) {
	p := challenge.Progress{
		KmCompleted:      42.5,
		MinutesCompleted: 310,
		AttemptsLog: []challenge.AttemptLog{
			{Date: "2026-09-01"}, {Date: "2026-09-03"}, {Date: "2026-09-05"},
		},
	}
	start, end := day("2026-09-01"), day("2026-09-08")

	dt, _ := Parse(challenge.DistanceTotal, challenge.RulesetConfig{TargetKm: 100})
	assert.Equal(t, 42.5, dt.ProgressMetric(p, start, end))

	dur, _ := Parse(challenge.DurationRecurring, challenge.RulesetConfig{PerDayMinutes: 30, IntervalDays: 1})
	assert.Equal(t, 310.0, dur.ProgressMetric(p, start, end))

	// One week at 3 runs per week: 3 of 3 attempts is 100%.
	freq, _ := Parse(challenge.FrequencyBased, challenge.RulesetConfig{RequiredFrequency: 3})
	assert.InDelta(t, 100.0, freq.ProgressMetric(p, start, end), 0.001)
}

func TestProgressMetricZeroRequiredRuns(t *testing.T) {
	freq := FrequencyBased{RequiredFrequency: 0}
	p := challenge.Progress{AttemptsLog: []challenge.AttemptLog{{Date: "2026-09-01"}}}
	assert.Equal(t, 0.0, freq.ProgressMetric(p, day("2026-09-01"), day("2026-09-08")))
}
