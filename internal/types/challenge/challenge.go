package challenge

import (
	"time"

	"github.com/google/uuid"
)

type RulesetType string

const (
	DistanceTotal     RulesetType = "distance_total"
	DistanceRecurring RulesetType = "distance_recurring"
	DurationTotal     RulesetType = "duration_total"
	DurationRecurring RulesetType = "duration_recurring"
	FrequencyBased    RulesetType = "frequency_based"
)

// RulesetConfig is the stored wire shape. Which fields are meaningful
// depends on RulesetType; internal/ruleset narrows this into one concrete
// ruleset per type.
type RulesetConfig struct {
	TargetKm          float64 `json:"target_km,omitempty"`
	TargetMinutes     float64 `json:"target_minutes,omitempty"`
	IntervalDays      int     `json:"interval_days,omitempty"`
	PerDayKm          float64 `json:"per_day_km,omitempty"`
	PerDayMinutes     float64 `json:"per_day_minutes,omitempty"`
	RequiredFrequency int     `json:"required_frequency,omitempty"`
}

type Sponsor struct {
	Name             string `json:"name,omitempty"`
	LogoURL          string `json:"logo_url,omitempty"`
	Link             string `json:"link,omitempty"`
	PrizeDescription string `json:"prize_description,omitempty"`
}

type Challenge struct {
	ID            uuid.UUID     `json:"id"`
	CreatorUserID uuid.UUID     `json:"creator_user_id"`
	Title         string        `json:"title"`
	Description   string        `json:"description"`
	RulesetType   RulesetType   `json:"ruleset_type"`
	RulesetConfig RulesetConfig `json:"ruleset_config"`
	StartDate     time.Time     `json:"start_date"` // date-only, UTC midnight
	EndDate       time.Time     `json:"end_date"`
	Sponsor       *Sponsor      `json:"sponsor,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
}

type CreateRequest struct {
	CreatorUserID string        `json:"creator_user_id" validate:"required,uuid"`
	Title         string        `json:"title" validate:"required,max=200"`
	Description   string        `json:"description" validate:"max=1000"`
	RulesetType   RulesetType   `json:"ruleset_type" validate:"required"`
	RulesetConfig RulesetConfig `json:"ruleset_config"`
	StartDate     string        `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate       string        `json:"end_date" validate:"required,datetime=2006-01-02"`
	Sponsor       *Sponsor      `json:"sponsor,omitempty"`
}

// AttemptLog is one date with at least one qualifying run, carrying that
// date's summed distance and floored minutes. Completed is set only on
// required days of recurring rulesets.
type AttemptLog struct {
	Date      string  `json:"date"`
	Km        float64 `json:"km"`
	Minutes   int     `json:"minutes"`
	Completed *bool   `json:"completed,omitempty"`
}

type Progress struct {
	KmCompleted      float64         `json:"km_completed"`
	MinutesCompleted int             `json:"minutes_completed"`
	AttemptsLog      []AttemptLog    `json:"attempts_log"`
	DailyStatus      map[string]bool `json:"daily_status,omitempty"`
}

type Participant struct {
	ChallengeID uuid.UUID `json:"challenge_id"`
	UserID      uuid.UUID `json:"user_id"`
	JoinedAt    time.Time `json:"joined_at"`
	Progress    Progress  `json:"progress"`
	Completed   bool      `json:"completed"`
}

// WithParticipantCount decorates a challenge for listing endpoints.
type WithParticipantCount struct {
	Challenge
	ParticipantCount int `json:"participant_count"`
}

// SyncResult is the per-participant outcome of a batch sync.
type SyncResult struct {
	UserID    uuid.UUID `json:"user_id"`
	Success   bool      `json:"success"`
	Completed bool      `json:"completed,omitempty"`
	Error     string    `json:"error,omitempty"`
}

type SyncReport struct {
	Synced  int          `json:"synced"`
	Failed  int          `json:"failed"`
	Results []SyncResult `json:"results"`
}
