package leaderboard

import (
	"time"

	"github.com/google/uuid"
)

type Period string

const (
	PeriodAllTime Period = "all_time"
	PeriodYear    Period = "year"
	PeriodMonth   Period = "month"
	PeriodWeek    Period = "week"
)

var Periods = []Period{PeriodAllTime, PeriodYear, PeriodMonth, PeriodWeek}

func ValidPeriod(p Period) bool {
	for _, known := range Periods {
		if p == known {
			return true
		}
	}
	return false
}

type Entry struct {
	UserID       uuid.UUID `json:"user_id"`
	Slug         string    `json:"slug"`
	Name         string    `json:"name"`
	StartupName  *string   `json:"startup_name,omitempty"`
	ProfileImage *string   `json:"profile_image,omitempty"`
	TotalKm      float64   `json:"total_km"`
	AvgPace      float64   `json:"avg_pace"`
}

// Cache is a derived, rebuildable view. Never a source of truth.
type Cache struct {
	Period    Period    `json:"period"`
	Entries   []Entry   `json:"entries"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ChallengeEntry struct {
	UserID         uuid.UUID       `json:"user_id"`
	Slug           string          `json:"slug"`
	Name           string          `json:"name"`
	StartupName    *string         `json:"startup_name,omitempty"`
	ProfileImage   *string         `json:"profile_image,omitempty"`
	ProgressMetric float64         `json:"progress_metric"`
	Completed      bool            `json:"completed"`
	DailyStatus    map[string]bool `json:"daily_status,omitempty"`
}
