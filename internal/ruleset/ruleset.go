// Package ruleset turns a challenge's (type, config) pair into a concrete
// goal evaluator. Each of the five ruleset types is its own struct carrying
// only the fields it actually uses, so a config field that is missing for
// the wrong type cannot be read by accident.
package ruleset

import (
	"math"
	"time"

	"runClubAPI/internal/apperr"
	"runClubAPI/internal/types/challenge"
)

const DateLayout = "2006-01-02"

// DayTotals is the per-date rollup of a participant's qualifying runs
// inside the challenge window.
type DayTotals struct {
	Km      float64
	Minutes int
}

// Outcome is the result of evaluating a participant's attempts against a
// ruleset. DailyStatus is nil for non-recurring rulesets; for recurring
// ones it maps every required day evaluated so far (never future days) to
// whether that day's target was met.
type Outcome struct {
	DailyStatus map[string]bool
	Completed   bool
}

type Ruleset interface {
	Type() challenge.RulesetType
	Evaluate(attempts map[string]DayTotals, start, end, now time.Time) Outcome
	// ProgressMetric is the ranking metric for challenge leaderboards:
	// km for distance rulesets, minutes for duration rulesets, and a
	// percentage of the required run count for frequency rulesets.
	ProgressMetric(p challenge.Progress, start, end time.Time) float64
}

// Parse narrows a stored config into the ruleset for its type. Missing
// numeric fields are carried as zero; creation-time validation is the place
// that rejects them (Validate), the engine itself stays lenient.
func Parse(rt challenge.RulesetType, cfg challenge.RulesetConfig) (Ruleset, error) {
	switch rt {
	case challenge.DistanceTotal:
		return DistanceTotal{TargetKm: cfg.TargetKm}, nil
	case challenge.DistanceRecurring:
		return DistanceRecurring{PerDayKm: cfg.PerDayKm, IntervalDays: cfg.IntervalDays}, nil
	case challenge.DurationTotal:
		return DurationTotal{TargetMinutes: cfg.TargetMinutes}, nil
	case challenge.DurationRecurring:
		return DurationRecurring{PerDayMinutes: cfg.PerDayMinutes, IntervalDays: cfg.IntervalDays}, nil
	case challenge.FrequencyBased:
		return FrequencyBased{RequiredFrequency: cfg.RequiredFrequency}, nil
	default:
		return nil, apperr.Newf(apperr.KindValidation, "unknown ruleset type %q", rt)
	}
}

// Validate enforces the per-type required config fields at creation time.
func Validate(rt challenge.RulesetType, cfg challenge.RulesetConfig) error {
	switch rt {
	case challenge.DistanceTotal:
		if cfg.TargetKm <= 0 {
			return apperr.New(apperr.KindValidation, "target_km is required for distance_total")
		}
	case challenge.DistanceRecurring:
		if cfg.PerDayKm <= 0 || cfg.IntervalDays <= 0 {
			return apperr.New(apperr.KindValidation, "per_day_km and interval_days are required for distance_recurring")
		}
	case challenge.DurationTotal:
		if cfg.TargetMinutes <= 0 {
			return apperr.New(apperr.KindValidation, "target_minutes is required for duration_total")
		}
	case challenge.DurationRecurring:
		if cfg.PerDayMinutes <= 0 || cfg.IntervalDays <= 0 {
			return apperr.New(apperr.KindValidation, "per_day_minutes and interval_days are required for duration_recurring")
		}
	case challenge.FrequencyBased:
		if cfg.RequiredFrequency <= 0 {
			return apperr.New(apperr.KindValidation, "required_frequency is required for frequency_based")
		}
	default:
		return apperr.Newf(apperr.KindValidation, "unknown ruleset type %q", rt)
	}
	return nil
}

type DistanceTotal struct {
	TargetKm float64
}

func (r DistanceTotal) Type() challenge.RulesetType { return challenge.DistanceTotal }

func (r DistanceTotal) Evaluate(attempts map[string]DayTotals, _, _, _ time.Time) Outcome {
	return Outcome{Completed: sumKm(attempts) >= r.TargetKm}
}

func (r DistanceTotal) ProgressMetric(p challenge.Progress, _, _ time.Time) float64 {
	return p.KmCompleted
}

type DistanceRecurring struct {
	PerDayKm     float64
	IntervalDays int
}

func (r DistanceRecurring) Type() challenge.RulesetType { return challenge.DistanceRecurring }

func (r DistanceRecurring) Evaluate(attempts map[string]DayTotals, start, end, now time.Time) Outcome {
	status := requiredDayStatus(attempts, start, end, now, r.IntervalDays, func(d DayTotals) bool {
		return d.Km >= r.PerDayKm
	})
	return Outcome{DailyStatus: status, Completed: allMet(status)}
}

func (r DistanceRecurring) ProgressMetric(p challenge.Progress, _, _ time.Time) float64 {
	return p.KmCompleted
}

type DurationTotal struct {
	TargetMinutes float64
}

func (r DurationTotal) Type() challenge.RulesetType { return challenge.DurationTotal }

func (r DurationTotal) Evaluate(attempts map[string]DayTotals, _, _, _ time.Time) Outcome {
	return Outcome{Completed: float64(sumMinutes(attempts)) >= r.TargetMinutes}
}

func (r DurationTotal) ProgressMetric(p challenge.Progress, _, _ time.Time) float64 {
	return float64(p.MinutesCompleted)
}

type DurationRecurring struct {
	PerDayMinutes float64
	IntervalDays  int
}

func (r DurationRecurring) Type() challenge.RulesetType { return challenge.DurationRecurring }

func (r DurationRecurring) Evaluate(attempts map[string]DayTotals, start, end, now time.Time) Outcome {
	status := requiredDayStatus(attempts, start, end, now, r.IntervalDays, func(d DayTotals) bool {
		return float64(d.Minutes) >= r.PerDayMinutes
	})
	return Outcome{DailyStatus: status, Completed: allMet(status)}
}

func (r DurationRecurring) ProgressMetric(p challenge.Progress, _, _ time.Time) float64 {
	return float64(p.MinutesCompleted)
}

type FrequencyBased struct {
	RequiredFrequency int // runs per week
}

func (r FrequencyBased) Type() challenge.RulesetType { return challenge.FrequencyBased }

func (r FrequencyBased) Evaluate(attempts map[string]DayTotals, start, end, _ time.Time) Outcome {
	return Outcome{Completed: len(attempts) >= r.requiredRuns(start, end)}
}

func (r FrequencyBased) ProgressMetric(p challenge.Progress, start, end time.Time) float64 {
	required := r.requiredRuns(start, end)
	if required == 0 {
		return 0
	}
	return float64(len(p.AttemptsLog)) / float64(required) * 100
}

func (r FrequencyBased) requiredRuns(start, end time.Time) int {
	weeks := int(math.Ceil(end.Sub(start).Hours() / (7 * 24)))
	return r.RequiredFrequency * weeks
}

// requiredDayStatus walks every required day between start and
// min(end, today) inclusive. Required days are the exact multiples of
// intervalDays counted from start; day zero is always required. A required
// day with no attempt is present and false, never absent.
func requiredDayStatus(attempts map[string]DayTotals, start, end, now time.Time, intervalDays int, met func(DayTotals) bool) map[string]bool {
	if intervalDays <= 0 {
		intervalDays = 1
	}
	last := truncateDay(end)
	if today := truncateDay(now); today.Before(last) {
		last = today
	}
	status := make(map[string]bool)
	for day := truncateDay(start); !day.After(last); day = day.AddDate(0, 0, 1) {
		daysSinceStart := int(day.Sub(truncateDay(start)).Hours() / 24)
		if daysSinceStart%intervalDays != 0 {
			continue
		}
		key := day.Format(DateLayout)
		d, ok := attempts[key]
		status[key] = ok && met(d)
	}
	return status
}

// allMet reports recurring completion: at least one required day evaluated
// and none of them missed.
func allMet(status map[string]bool) bool {
	if len(status) == 0 {
		return false
	}
	for _, ok := range status {
		if !ok {
			return false
		}
	}
	return true
}

func sumKm(attempts map[string]DayTotals) float64 {
	var total float64
	for _, d := range attempts {
		total += d.Km
	}
	return total
}

func sumMinutes(attempts map[string]DayTotals) int {
	var total int
	for _, d := range attempts {
		total += d.Minutes
	}
	return total
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
