package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"runClubAPI/internal/strava"
	"runClubAPI/services"
)

type OAuthHandler struct {
	stravaClient *strava.Client
	userService  *services.UserService
}

func NewOAuthHandler(stravaClient *strava.Client, userService *services.UserService) *OAuthHandler {
	return &OAuthHandler{
		stravaClient: stravaClient,
		userService:  userService,
	}
}

// GetAuthorizeURL hands the frontend the provider consent URL.
func (h *OAuthHandler) GetAuthorizeURL(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")
	respondWithJSON(w, http.StatusOK, map[string]string{
		"authorize_url": h.stravaClient.AuthorizeURL(state),
	})
}

// Callback exchanges the authorization code and upserts the user with the
// fresh credential triple and athlete profile.
func (h *OAuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		respondWithError(w, http.StatusBadRequest, "Missing authorization code")
		return
	}

	grant, err := h.stravaClient.ExchangeCode(ctx, req.Code)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	u, err := h.userService.UpsertFromGrant(ctx, grant)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{"user": u})
}
