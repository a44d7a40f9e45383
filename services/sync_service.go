package services

import (
	"context"
	"log"

	"github.com/google/uuid"

	"runClubAPI/internal/strava"
	"runClubAPI/internal/types/stats"
	"runClubAPI/middleware"
)

// SyncService drives a user's global stats sync: ensure a valid token,
// fetch activities, merge them into stored stats.
type SyncService struct {
	users  *UserService
	stats  *StatsService
	strava *strava.Client
}

func NewSyncService(users *UserService, statsService *StatsService, stravaClient *strava.Client) *SyncService {
	return &SyncService{users: users, stats: statsService, strava: stravaClient}
}

// SyncUser fetches the user's activities and merges them into their stats.
// Permission failures propagate typed so the handler can tell the client to
// re-authorize instead of retrying.
func (s *SyncService) SyncUser(ctx context.Context, userID uuid.UUID) (*stats.UserStats, error) {
	u, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	accessToken, err := s.users.EnsureValidToken(ctx, u)
	if err != nil {
		middleware.RecordSync("user", "error")
		return nil, err
	}

	existing, err := s.stats.GetStatsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	activities, err := s.strava.FetchActivities(ctx, accessToken, nil)
	if err != nil {
		middleware.RecordSync("user", "error")
		return nil, err
	}
	middleware.RecordActivitiesFetched(len(activities))

	built := BuildStats(userID, activities, existing)
	if err := s.stats.UpsertStats(ctx, built); err != nil {
		middleware.RecordSync("user", "error")
		return nil, err
	}

	middleware.RecordSync("user", "ok")
	log.Printf("SyncUser: user %s now has %d activities, %.2f km total", userID, len(built.DailyActivity), built.TotalKm)
	return built, nil
}

// EnsureUserStats returns stored stats, triggering a first sync when the
// user has none yet.
func (s *SyncService) EnsureUserStats(ctx context.Context, userID uuid.UUID) (*stats.UserStats, error) {
	existing, err := s.stats.GetStatsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}
	return s.SyncUser(ctx, userID)
}
