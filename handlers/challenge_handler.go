package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"runClubAPI/internal/types/challenge"
	"runClubAPI/services"
)

type ChallengeHandler struct {
	challengeService *services.ChallengeService
	validate         *validator.Validate
}

func NewChallengeHandler(challengeService *services.ChallengeService) *ChallengeHandler {
	return &ChallengeHandler{
		challengeService: challengeService,
		validate:         validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *ChallengeHandler) CreateChallenge(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var req challenge.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	ch, err := h.challengeService.CreateChallenge(ctx, &req)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, map[string]interface{}{"challenge": ch})
}

func (h *ChallengeHandler) ListChallenges(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	list, err := h.challengeService.ListChallenges(ctx, r.URL.Query().Get("status"))
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{"challenges": list})
}

func (h *ChallengeHandler) GetChallenge(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id, ok := challengeID(w, r)
	if !ok {
		return
	}

	ch, err := h.challengeService.GetChallenge(ctx, id)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{"challenge": ch})
}

func (h *ChallengeHandler) JoinChallenge(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id, ok := challengeID(w, r)
	if !ok {
		return
	}
	userID, ok := bodyUserID(w, r)
	if !ok {
		return
	}

	participant, err := h.challengeService.Join(ctx, id, userID)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{"participant": participant})
}

// SyncParticipant refreshes one participant's challenge progress.
func (h *ChallengeHandler) SyncParticipant(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	id, ok := challengeID(w, r)
	if !ok {
		return
	}
	userID, ok := bodyUserID(w, r)
	if !ok {
		return
	}

	progress, completed, err := h.challengeService.SyncParticipant(ctx, id, userID)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"progress":  progress,
		"completed": completed,
	})
}

// SyncAllParticipants runs the batch sync; partial failure is reported
// per participant, never as a batch failure.
func (h *ChallengeHandler) SyncAllParticipants(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Minute)
	defer cancel()

	id, ok := challengeID(w, r)
	if !ok {
		return
	}

	report, err := h.challengeService.SyncAllParticipants(ctx, id)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"ok":      true,
		"synced":  report.Synced,
		"failed":  report.Failed,
		"results": report.Results,
	})
}

func (h *ChallengeHandler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	id, ok := challengeID(w, r)
	if !ok {
		return
	}

	entries, err := h.challengeService.ChallengeLeaderboard(ctx, id)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{"leaderboard": entries})
}

func (h *ChallengeHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id, ok := challengeID(w, r)
	if !ok {
		return
	}
	userID, err := uuid.Parse(mux.Vars(r)["userId"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid user id")
		return
	}

	participant, err := h.challengeService.GetParticipant(ctx, id, userID)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"progress":  participant.Progress,
		"completed": participant.Completed,
	})
}

func challengeID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid challenge id")
		return uuid.Nil, false
	}
	return id, true
}

func bodyUserID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	var req struct {
		UserID string `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return uuid.Nil, false
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid user id")
		return uuid.Nil, false
	}
	return userID, true
}
