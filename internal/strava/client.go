package strava

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"runClubAPI/internal/apperr"
)

const (
	BaseURL  = "https://www.strava.com/api/v3"
	authURL  = "https://www.strava.com/oauth/authorize"
	tokenURL = "https://www.strava.com/oauth/token"

	perPage = 200
)

// TimeFilter optionally bounds an activity fetch by epoch seconds.
type TimeFilter struct {
	AfterEpoch  int64
	BeforeEpoch int64
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	oauth      *oauth2.Config
	limiter    *rate.Limiter
}

func NewClient(clientID, clientSecret, redirectURL string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    BaseURL,
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:  authURL,
				TokenURL: tokenURL,
			},
			RedirectURL: redirectURL,
			Scopes:      []string{"read,activity:read_all"},
		},
		// Strava allows 100 requests per 15 minutes on the default tier.
		limiter: rate.NewLimiter(rate.Every(9*time.Second), 10),
	}
}

// AuthorizeURL returns the provider consent URL for the browser flow.
func (c *Client) AuthorizeURL(state string) string {
	return c.oauth.AuthCodeURL(state, oauth2.SetAuthURLParam("approval_prompt", "auto"))
}

// ExchangeCode trades an authorization code for a token grant.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*TokenGrant, error) {
	tok, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindExternalService, "exchanging authorization code", err)
	}
	return grantFromToken(tok), nil
}

// RefreshToken trades a refresh token for a fresh grant. The caller owns
// persisting the new triple.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*TokenGrant, error) {
	src := c.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindExternalService, "refreshing access token", err)
	}
	return grantFromToken(tok), nil
}

func grantFromToken(tok *oauth2.Token) *TokenGrant {
	grant := &TokenGrant{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.Expiry.Unix(),
	}
	// Strava embeds the athlete profile in the token response.
	if raw, ok := tok.Extra("athlete").(map[string]interface{}); ok {
		if buf, err := json.Marshal(raw); err == nil {
			_ = json.Unmarshal(buf, &grant.Athlete)
		}
	}
	return grant
}

// FetchActivities pages through the athlete's activities, keeping only
// running kinds and deduplicating by activity id across pages.
//
// A 401 mid-pagination means the token lacks the private-activity scope.
// With nothing collected that is fatal (the account must re-authorize);
// with partial results the public activities already fetched are returned
// as a success.
func (c *Client) FetchActivities(ctx context.Context, accessToken string, filter *TimeFilter) ([]Activity, error) {
	var runs []Activity
	seen := make(map[int64]bool)

	for page := 1; ; page++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		params := url.Values{}
		params.Set("per_page", strconv.Itoa(perPage))
		params.Set("page", strconv.Itoa(page))
		if filter != nil {
			if filter.AfterEpoch > 0 {
				params.Set("after", strconv.FormatInt(filter.AfterEpoch, 10))
			}
			if filter.BeforeEpoch > 0 {
				params.Set("before", strconv.FormatInt(filter.BeforeEpoch, 10))
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/athlete/activities?"+params.Encode(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+accessToken)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindExternalService, fmt.Sprintf("fetching activities page %d", page), err)
		}

		if resp.StatusCode == http.StatusUnauthorized {
			resp.Body.Close()
			if len(runs) == 0 {
				return nil, apperr.New(apperr.KindPrivateDataPermission, "activity read scope not granted")
			}
			return runs, nil
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, apperr.Newf(apperr.KindExternalService, "fetching activities page %d: status %d", page, resp.StatusCode)
		}

		var pageActivities []Activity
		if err := json.NewDecoder(resp.Body).Decode(&pageActivities); err != nil {
			resp.Body.Close()
			return nil, apperr.Wrap(apperr.KindExternalService, "decoding activities", err)
		}
		resp.Body.Close()

		if len(pageActivities) == 0 {
			break
		}

		for _, a := range pageActivities {
			// Non-run kinds are not marked seen: a true run with the
			// same id arriving on a later page would still be counted.
			if !IsRun(a.Type) || seen[a.ID] {
				continue
			}
			seen[a.ID] = true
			runs = append(runs, a)
		}

		if len(pageActivities) < perPage {
			break
		}
	}

	return runs, nil
}
