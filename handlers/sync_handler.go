package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"runClubAPI/services"
)

type SyncHandler struct {
	syncService        *services.SyncService
	challengeService   *services.ChallengeService
	leaderboardService *services.LeaderboardService
}

func NewSyncHandler(syncService *services.SyncService, challengeService *services.ChallengeService, leaderboardService *services.LeaderboardService) *SyncHandler {
	return &SyncHandler{
		syncService:        syncService,
		challengeService:   challengeService,
		leaderboardService: leaderboardService,
	}
}

// SyncUser refreshes one user's global stats from the provider.
func (h *SyncHandler) SyncUser(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid user id")
		return
	}

	stats, err := h.syncService.SyncUser(ctx, id)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{"stats": stats})
}

// GetUserStats returns stored stats, running a first sync when absent.
func (h *SyncHandler) GetUserStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid user id")
		return
	}

	stats, err := h.syncService.EnsureUserStats(ctx, id)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{"stats": stats})
}

// Scheduler is the periodic-job entry point: rebuild every leaderboard
// period and sync all active challenges' participants. Both operations are
// idempotent and isolate per-unit failures, so the endpoint always
// answers ok once it ran.
func (h *SyncHandler) Scheduler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Minute)
	defer cancel()

	h.leaderboardService.RebuildAll(ctx)

	if err := h.challengeService.SyncAllActiveChallenges(ctx); err != nil {
		log.Printf("Scheduler: syncing active challenges: %v", err)
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
