package stats

import (
	"time"

	"github.com/google/uuid"
)

// DailyActivity is one synced run. Multiple entries may share a date; the
// sequence is append-only and sorted by local start time.
type DailyActivity struct {
	Date            string  `json:"date"` // YYYY-MM-DD, athlete-local
	StartTimeLocal  string  `json:"start_time_local,omitempty"`
	Km              float64 `json:"km"`
	DurationSeconds int     `json:"duration_seconds"`
}

// UserStats is the per-user aggregate view. The heatmap is always rebuilt
// from DailyActivity so the two can never drift apart.
type UserStats struct {
	UserID            uuid.UUID       `json:"user_id"`
	TotalKm           float64         `json:"total_km"`
	AvgPace           float64         `json:"avg_pace"` // seconds per km
	Last30dKm         float64         `json:"last_30d_km"`
	Last30dAvgPace    float64         `json:"last_30d_avg_pace"`
	DailyActivity     []DailyActivity `json:"daily_activity"`
	Heatmap           [7][24]float64  `json:"activity_heatmap"` // weekday x hour, km
	SyncedActivityIDs []int64         `json:"synced_activity_ids"`
	ComputedAt        time.Time       `json:"computed_at"`
}
