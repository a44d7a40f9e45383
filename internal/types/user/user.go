package user

import (
	"time"

	"github.com/google/uuid"
)

type Socials struct {
	XHandle   string `json:"x_handle,omitempty"`
	LinkedIn  string `json:"linkedin,omitempty"`
	Instagram string `json:"instagram,omitempty"`
	Website   string `json:"website,omitempty"`
}

// User is the founder profile. The Strava credential triple lives on the
// user record but is never serialized in API responses.
type User struct {
	ID           uuid.UUID `json:"id"`
	StravaID     string    `json:"strava_id"`
	Name         string    `json:"name"`
	Slug         string    `json:"slug"`
	StartupName  *string   `json:"startup_name,omitempty"`
	ProfileImage *string   `json:"profile_image,omitempty"`
	Country      *string   `json:"country,omitempty"`
	Socials      *Socials  `json:"socials,omitempty"`

	AccessToken    string `json:"-"`
	RefreshToken   string `json:"-"`
	TokenExpiresAt int64  `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type UpdateSocialsRequest struct {
	Socials     Socials `json:"socials"`
	StartupName *string `json:"startup_name,omitempty"`
}
