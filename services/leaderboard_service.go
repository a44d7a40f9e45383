package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"runClubAPI/internal/periods"
	"runClubAPI/internal/types/leaderboard"
	"runClubAPI/internal/types/stats"
	"runClubAPI/internal/types/user"
)

const (
	cacheTTL        = 30 * time.Minute
	leaderboardSize = 200
)

type LeaderboardService struct {
	db    *pgxpool.Pool
	users *UserService
	stats *StatsService
}

func NewLeaderboardService(db *pgxpool.Pool, users *UserService, statsService *StatsService) *LeaderboardService {
	return &LeaderboardService{db: db, users: users, stats: statsService}
}

// GetLeaderboard serves the cached ranking for a period, rebuilding it
// when the cache is stale, empty or missing.
func (s *LeaderboardService) GetLeaderboard(ctx context.Context, period leaderboard.Period) ([]leaderboard.Entry, error) {
	cache, err := s.getCache(ctx, period)
	if err != nil {
		return nil, err
	}
	if cache != nil && cacheFresh(cache.UpdatedAt, time.Now()) && len(cache.Entries) > 0 {
		return cache.Entries, nil
	}

	entries, err := s.hydrate(ctx, period)
	if err != nil {
		return nil, err
	}
	if err := s.writeCache(ctx, period, entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// RebuildAll refreshes every period's cache. Per-period failures are
// logged and skipped so one bad period cannot starve the rest.
func (s *LeaderboardService) RebuildAll(ctx context.Context) {
	for _, period := range leaderboard.Periods {
		entries, err := s.hydrate(ctx, period)
		if err != nil {
			log.Printf("RebuildAll: hydrating %s: %v", period, err)
			continue
		}
		if err := s.writeCache(ctx, period, entries); err != nil {
			log.Printf("RebuildAll: caching %s: %v", period, err)
		}
	}
}

func cacheFresh(updatedAt, now time.Time) bool {
	return now.Sub(updatedAt) < cacheTTL
}

func (s *LeaderboardService) getCache(ctx context.Context, period leaderboard.Period) (*leaderboard.Cache, error) {
	var entriesJSON []byte
	cache := &leaderboard.Cache{Period: period}
	err := s.db.QueryRow(ctx, `SELECT entries, updated_at FROM leaderboard_cache WHERE period = $1`, string(period)).
		Scan(&entriesJSON, &cache.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading leaderboard cache: %w", err)
	}
	if err := json.Unmarshal(entriesJSON, &cache.Entries); err != nil {
		return nil, fmt.Errorf("decoding leaderboard cache: %w", err)
	}
	return cache, nil
}

func (s *LeaderboardService) writeCache(ctx context.Context, period leaderboard.Period, entries []leaderboard.Entry) error {
	entriesJSON, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encoding leaderboard cache: %w", err)
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO leaderboard_cache (period, entries, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (period) DO UPDATE SET entries = EXCLUDED.entries, updated_at = EXCLUDED.updated_at`,
		string(period), entriesJSON,
	)
	if err != nil {
		return fmt.Errorf("writing leaderboard cache: %w", err)
	}
	return nil
}

func (s *LeaderboardService) hydrate(ctx context.Context, period leaderboard.Period) ([]leaderboard.Entry, error) {
	allStats, err := s.stats.ListAllStats(ctx)
	if err != nil {
		return nil, err
	}
	if len(allStats) == 0 {
		return []leaderboard.Entry{}, nil
	}

	ids := make([]uuid.UUID, 0, len(allStats))
	for _, st := range allStats {
		ids = append(ids, st.UserID)
	}
	usersByID, err := s.users.ListUsersByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	periodStart := periods.Start(period, time.Now())
	return buildEntries(allStats, usersByID, period, periodStart), nil
}

// buildEntries joins stats to profiles and aggregates the period window.
// all_time reads stored totals; other periods re-aggregate the daily
// entries on or after the period start. Stat rows without a profile are
// dropped.
func buildEntries(allStats []*stats.UserStats, usersByID map[uuid.UUID]*user.User, period leaderboard.Period, periodStart time.Time) []leaderboard.Entry {
	entries := []leaderboard.Entry{}
	for _, st := range allStats {
		u, ok := usersByID[st.UserID]
		if !ok {
			log.Printf("leaderboard: dropping stats for unknown user %s", st.UserID)
			continue
		}

		totalKm := st.TotalKm
		avgPace := st.AvgPace
		if period != leaderboard.PeriodAllTime {
			var km float64
			var dur int
			for _, day := range st.DailyActivity {
				date, err := time.Parse(dateLayout, day.Date)
				if err != nil {
					continue
				}
				if !date.Before(periodStart) {
					km += day.Km
					dur += day.DurationSeconds
				}
			}
			totalKm = round2(km)
			avgPace = pace(dur, km)
		}

		entries = append(entries, leaderboard.Entry{
			UserID:       st.UserID,
			Slug:         u.Slug,
			Name:         u.Name,
			StartupName:  u.StartupName,
			ProfileImage: u.ProfileImage,
			TotalKm:      totalKm,
			AvgPace:      avgPace,
		})
	}

	sortEntries(entries)
	if len(entries) > leaderboardSize {
		entries = entries[:leaderboardSize]
	}
	return entries
}

// sortEntries ranks by km descending, breaking ties by ascending pace.
func sortEntries(entries []leaderboard.Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].TotalKm != entries[j].TotalKm {
			return entries[i].TotalKm > entries[j].TotalKm
		}
		return entries[i].AvgPace < entries[j].AvgPace
	})
}
