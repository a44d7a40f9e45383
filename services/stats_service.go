package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"runClubAPI/internal/strava"
	"runClubAPI/internal/types/stats"
)

const dateLayout = "2006-01-02"

type StatsService struct {
	db *pgxpool.Pool
}

func NewStatsService(db *pgxpool.Pool) *StatsService {
	return &StatsService{db: db}
}

// GetStatsForUser returns nil without error when the user has never been
// synced; absence is the normal first-sync state, not a failure.
func (s *StatsService) GetStatsForUser(ctx context.Context, userID uuid.UUID) (*stats.UserStats, error) {
	row := s.db.QueryRow(ctx, `
		SELECT user_id, total_km, avg_pace, last_30d_km, last_30d_avg_pace,
		       daily_activity, activity_heatmap, synced_activity_ids, computed_at
		FROM stats WHERE user_id = $1`, userID)
	st, err := scanStats(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting stats: %w", err)
	}
	return st, nil
}

// ListAllStats loads every stats row for leaderboard hydration.
func (s *StatsService) ListAllStats(ctx context.Context) ([]*stats.UserStats, error) {
	rows, err := s.db.Query(ctx, `
		SELECT user_id, total_km, avg_pace, last_30d_km, last_30d_avg_pace,
		       daily_activity, activity_heatmap, synced_activity_ids, computed_at
		FROM stats`)
	if err != nil {
		return nil, fmt.Errorf("listing stats: %w", err)
	}
	defer rows.Close()

	var all []*stats.UserStats
	for rows.Next() {
		st, err := scanStats(rows)
		if err != nil {
			return nil, err
		}
		all = append(all, st)
	}
	return all, rows.Err()
}

func scanStats(row pgx.Row) (*stats.UserStats, error) {
	st := &stats.UserStats{}
	var dailyJSON, heatmapJSON, idsJSON []byte
	err := row.Scan(
		&st.UserID,
		&st.TotalKm,
		&st.AvgPace,
		&st.Last30dKm,
		&st.Last30dAvgPace,
		&dailyJSON,
		&heatmapJSON,
		&idsJSON,
		&st.ComputedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(dailyJSON, &st.DailyActivity); err != nil {
		return nil, fmt.Errorf("decoding daily activity: %w", err)
	}
	if len(heatmapJSON) > 0 {
		if err := json.Unmarshal(heatmapJSON, &st.Heatmap); err != nil {
			return nil, fmt.Errorf("decoding heatmap: %w", err)
		}
	}
	if err := json.Unmarshal(idsJSON, &st.SyncedActivityIDs); err != nil {
		return nil, fmt.Errorf("decoding synced ids: %w", err)
	}
	return st, nil
}

func (s *StatsService) UpsertStats(ctx context.Context, st *stats.UserStats) error {
	dailyJSON, err := json.Marshal(st.DailyActivity)
	if err != nil {
		return fmt.Errorf("encoding daily activity: %w", err)
	}
	heatmapJSON, err := json.Marshal(st.Heatmap)
	if err != nil {
		return fmt.Errorf("encoding heatmap: %w", err)
	}
	idsJSON, err := json.Marshal(st.SyncedActivityIDs)
	if err != nil {
		return fmt.Errorf("encoding synced ids: %w", err)
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO stats (user_id, total_km, avg_pace, last_30d_km, last_30d_avg_pace,
		                   daily_activity, activity_heatmap, synced_activity_ids, computed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id) DO UPDATE SET
			total_km = EXCLUDED.total_km,
			avg_pace = EXCLUDED.avg_pace,
			last_30d_km = EXCLUDED.last_30d_km,
			last_30d_avg_pace = EXCLUDED.last_30d_avg_pace,
			daily_activity = EXCLUDED.daily_activity,
			activity_heatmap = EXCLUDED.activity_heatmap,
			synced_activity_ids = EXCLUDED.synced_activity_ids,
			computed_at = EXCLUDED.computed_at`,
		st.UserID, st.TotalKm, st.AvgPace, st.Last30dKm, st.Last30dAvgPace,
		dailyJSON, heatmapJSON, idsJSON, st.ComputedAt,
	)
	if err != nil {
		return fmt.Errorf("upserting stats: %w", err)
	}
	return nil
}

// BuildStats merges newly fetched activities into existing stats. Already
// synced activity ids are skipped, which makes the merge idempotent: the
// same batch applied twice changes nothing.
func BuildStats(userID uuid.UUID, activities []strava.Activity, existing *stats.UserStats) *stats.UserStats {
	return buildStatsAt(userID, activities, existing, time.Now().UTC())
}

func buildStatsAt(userID uuid.UUID, activities []strava.Activity, existing *stats.UserStats, now time.Time) *stats.UserStats {
	seen := make(map[int64]bool)
	var entries []stats.DailyActivity
	var syncedIDs []int64
	if existing != nil {
		entries = append(entries, existing.DailyActivity...)
		for _, id := range existing.SyncedActivityIDs {
			seen[id] = true
			syncedIDs = append(syncedIDs, id)
		}
	}

	for _, a := range activities {
		if seen[a.ID] || !strava.IsRun(a.Type) {
			continue
		}
		start, err := a.LocalStart()
		if err != nil {
			log.Printf("BuildStats: skipping activity %d with bad local timestamp %q: %v", a.ID, a.StartDateLocal, err)
			continue
		}
		seen[a.ID] = true
		syncedIDs = append(syncedIDs, a.ID)
		entries = append(entries, stats.DailyActivity{
			Date:            start.Format(dateLayout),
			StartTimeLocal:  a.StartDateLocal,
			Km:              round2(a.Distance / 1000),
			DurationSeconds: a.MovingTime,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].StartTimeLocal < entries[j].StartTimeLocal
	})

	// The heatmap is rebuilt from the whole merged sequence every time so
	// it cannot drift from the entries it is derived from.
	var heatmap [7][24]float64
	var totalKm, last30Km float64
	var totalDur, last30Dur int
	for _, e := range entries {
		if start, err := strava.ParseLocalTime(e.StartTimeLocal); err == nil {
			day := int(start.Weekday())
			hour := start.Hour()
			heatmap[day][hour] = round2(heatmap[day][hour] + e.Km)
		}
		totalKm += e.Km
		totalDur += e.DurationSeconds
		if date, err := time.Parse(dateLayout, e.Date); err == nil {
			if now.Sub(date) <= 30*24*time.Hour {
				last30Km += e.Km
				last30Dur += e.DurationSeconds
			}
		}
	}

	return &stats.UserStats{
		UserID:            userID,
		TotalKm:           round2(totalKm),
		AvgPace:           pace(totalDur, totalKm),
		Last30dKm:         round2(last30Km),
		Last30dAvgPace:    pace(last30Dur, last30Km),
		DailyActivity:     entries,
		Heatmap:           heatmap,
		SyncedActivityIDs: syncedIDs,
		ComputedAt:        now,
	}
}

// pace is seconds per km, zero when there is no distance.
func pace(durationSeconds int, km float64) float64 {
	if km <= 0 {
		return 0
	}
	return round2(float64(durationSeconds) / km)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
