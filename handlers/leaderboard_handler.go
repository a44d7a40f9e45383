package handlers

import (
	"context"
	"net/http"
	"time"

	"runClubAPI/internal/types/leaderboard"
	"runClubAPI/services"
)

type LeaderboardHandler struct {
	leaderboardService *services.LeaderboardService
}

func NewLeaderboardHandler(leaderboardService *services.LeaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{
		leaderboardService: leaderboardService,
	}
}

func (h *LeaderboardHandler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	period := leaderboard.Period(r.URL.Query().Get("period"))
	if period == "" {
		period = leaderboard.PeriodAllTime
	}
	if !leaderboard.ValidPeriod(period) {
		respondWithError(w, http.StatusBadRequest, "Unknown leaderboard period")
		return
	}

	entries, err := h.leaderboardService.GetLeaderboard(ctx, period)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"period":  period,
		"entries": entries,
	})
}
