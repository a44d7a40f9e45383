package strava

import (
	"strings"
	"time"
)

type Athlete struct {
	ID        int64  `json:"id"`
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
	Profile   string `json:"profile"`
	City      string `json:"city,omitempty"`
	State     string `json:"state,omitempty"`
	Country   string `json:"country,omitempty"`
}

// TokenGrant is the credential triple plus athlete profile returned by both
// the code exchange and the refresh grant.
type TokenGrant struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    int64 // epoch seconds
	Athlete      Athlete
}

type Activity struct {
	ID             int64   `json:"id"`
	Name           string  `json:"name"`
	Type           string  `json:"type"`
	Distance       float64 `json:"distance"`    // meters
	MovingTime     int     `json:"moving_time"` // seconds
	StartDate      string  `json:"start_date"`
	StartDateLocal string  `json:"start_date_local"`
}

// runKinds is the allow-list of activity types that count as runs.
var runKinds = map[string]bool{
	"Run":        true,
	"VirtualRun": true,
}

func IsRun(kind string) bool { return runKinds[kind] }

// LocalStart parses start_date_local. Strava reports it as
// "2006-01-02T15:04:05Z" where the clock time is the athlete's wall clock,
// so it must be read as-is and never shifted through the server's zone.
func (a Activity) LocalStart() (time.Time, error) {
	return ParseLocalTime(a.StartDateLocal)
}

func ParseLocalTime(s string) (time.Time, error) {
	s = strings.TrimSuffix(s, "Z")
	return time.Parse("2006-01-02T15:04:05", s)
}
