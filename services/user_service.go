package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"runClubAPI/internal/apperr"
	"runClubAPI/internal/strava"
	"runClubAPI/internal/types/user"
	"runClubAPI/utils"
)

// tokenExpiryMargin treats tokens about to expire as already expired so a
// request never goes out with a token that dies mid-flight.
const tokenExpiryMargin = 60 * time.Second

type UserService struct {
	db     *pgxpool.Pool
	strava *strava.Client
}

func NewUserService(db *pgxpool.Pool, stravaClient *strava.Client) *UserService {
	return &UserService{db: db, strava: stravaClient}
}

const userColumns = `id, strava_id, name, slug, startup_name, profile_image, country, socials,
	COALESCE(access_token, ''), COALESCE(refresh_token, ''), COALESCE(token_expires_at, 0),
	created_at, updated_at`

func scanUser(row pgx.Row) (*user.User, error) {
	u := &user.User{}
	var socialsJSON []byte
	err := row.Scan(
		&u.ID,
		&u.StravaID,
		&u.Name,
		&u.Slug,
		&u.StartupName,
		&u.ProfileImage,
		&u.Country,
		&socialsJSON,
		&u.AccessToken,
		&u.RefreshToken,
		&u.TokenExpiresAt,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(socialsJSON) > 0 {
		u.Socials = &user.Socials{}
		if err := json.Unmarshal(socialsJSON, u.Socials); err != nil {
			return nil, fmt.Errorf("decoding socials: %w", err)
		}
	}
	return u, nil
}

// UpsertFromGrant creates or updates a user from an OAuth token grant,
// storing the credential triple and regenerating the slug when the
// athlete's name changed.
func (s *UserService) UpsertFromGrant(ctx context.Context, grant *strava.TokenGrant) (*user.User, error) {
	athlete := grant.Athlete
	if athlete.ID == 0 {
		return nil, apperr.New(apperr.KindExternalService, "token grant carried no athlete profile")
	}
	stravaID := fmt.Sprintf("%d", athlete.ID)
	name := strings.TrimSpace(athlete.FirstName + " " + athlete.LastName)

	existing, err := s.GetUserByStravaID(ctx, stravaID)
	if err != nil && !apperr.IsKind(err, apperr.KindNotFound) {
		return nil, err
	}

	slug := ""
	if existing != nil && existing.Name == name {
		slug = existing.Slug
	} else {
		var excludeID uuid.UUID
		if existing != nil {
			excludeID = existing.ID
		}
		slug, err = utils.UniqueSlug(utils.NameToSlug(name), func(candidate string) (bool, error) {
			var id uuid.UUID
			err := s.db.QueryRow(ctx, `SELECT id FROM users WHERE slug = $1`, candidate).Scan(&id)
			if errors.Is(err, pgx.ErrNoRows) {
				return false, nil
			}
			if err != nil {
				return false, err
			}
			return id != excludeID, nil
		})
		if err != nil {
			return nil, fmt.Errorf("generating slug: %w", err)
		}
	}

	var profileImage, country *string
	if athlete.Profile != "" {
		profileImage = &athlete.Profile
	}
	if athlete.Country != "" {
		country = &athlete.Country
	}

	id := uuid.New()
	if existing != nil {
		id = existing.ID
	}

	query := `
	INSERT INTO users (id, strava_id, name, slug, profile_image, country, access_token, refresh_token, token_expires_at, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
	ON CONFLICT (strava_id) DO UPDATE SET
		name = EXCLUDED.name,
		slug = EXCLUDED.slug,
		profile_image = EXCLUDED.profile_image,
		country = EXCLUDED.country,
		access_token = EXCLUDED.access_token,
		refresh_token = EXCLUDED.refresh_token,
		token_expires_at = EXCLUDED.token_expires_at,
		updated_at = now()
	RETURNING ` + userColumns

	u, err := scanUser(s.db.QueryRow(ctx, query,
		id, stravaID, name, slug, profileImage, country,
		grant.AccessToken, grant.RefreshToken, grant.ExpiresAt,
	))
	if err != nil {
		return nil, fmt.Errorf("upserting user: %w", err)
	}
	return u, nil
}

func (s *UserService) GetUserByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	u, err := scanUser(s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.New(apperr.KindNotFound, "user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return u, nil
}

func (s *UserService) GetUserByStravaID(ctx context.Context, stravaID string) (*user.User, error) {
	u, err := scanUser(s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE strava_id = $1`, stravaID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.New(apperr.KindNotFound, "user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return u, nil
}

func (s *UserService) GetUserBySlug(ctx context.Context, slug string) (*user.User, error) {
	u, err := scanUser(s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE slug = $1`, slug))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.New(apperr.KindNotFound, "user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return u, nil
}

// ListUsersByIDs loads users keyed by id; absent ids are simply missing
// from the map so callers can drop orphaned rows.
func (s *UserService) ListUsersByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*user.User, error) {
	byID := make(map[uuid.UUID]*user.User, len(ids))
	if len(ids) == 0 {
		return byID, nil
	}
	rows, err := s.db.Query(ctx, `SELECT `+userColumns+` FROM users WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		byID[u.ID] = u
	}
	return byID, rows.Err()
}

func (s *UserService) UpdateSocials(ctx context.Context, id uuid.UUID, req *user.UpdateSocialsRequest) (*user.User, error) {
	socialsJSON, err := json.Marshal(req.Socials)
	if err != nil {
		return nil, fmt.Errorf("encoding socials: %w", err)
	}
	query := `
	UPDATE users SET socials = $2, startup_name = COALESCE($3, startup_name), updated_at = now()
	WHERE id = $1
	RETURNING ` + userColumns
	u, err := scanUser(s.db.QueryRow(ctx, query, id, socialsJSON, req.StartupName))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.New(apperr.KindNotFound, "user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("updating socials: %w", err)
	}
	return u, nil
}

func tokenExpired(expiresAt int64, now time.Time) bool {
	if expiresAt == 0 {
		return true
	}
	return expiresAt <= now.Add(tokenExpiryMargin).Unix()
}

// EnsureValidToken returns a usable access token for the user, refreshing
// and persisting the credential triple when the stored one is expired.
// The read-only path performs no writes.
func (s *UserService) EnsureValidToken(ctx context.Context, u *user.User) (string, error) {
	if u.AccessToken != "" && !tokenExpired(u.TokenExpiresAt, time.Now()) {
		return u.AccessToken, nil
	}
	if u.RefreshToken == "" {
		return "", apperr.New(apperr.KindMissingCredential, "no refresh token on record")
	}

	grant, err := s.strava.RefreshToken(ctx, u.RefreshToken)
	if err != nil {
		return "", err
	}

	_, err = s.db.Exec(ctx, `
		UPDATE users SET access_token = $2, refresh_token = $3, token_expires_at = $4, updated_at = now()
		WHERE id = $1`,
		u.ID, grant.AccessToken, grant.RefreshToken, grant.ExpiresAt,
	)
	if err != nil {
		return "", fmt.Errorf("persisting refreshed token: %w", err)
	}

	u.AccessToken = grant.AccessToken
	u.RefreshToken = grant.RefreshToken
	u.TokenExpiresAt = grant.ExpiresAt
	return grant.AccessToken, nil
}
