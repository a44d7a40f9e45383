package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTokenExpired(t *testing.T) {
	now := time.Date(2026, time.August, 28, 12, 0, 0, 0, time.UTC)

	// Inside the 60 second safety margin counts as expired.
	assert.True(t, tokenExpired(now.Add(30*time.Second).Unix(), now))
	assert.True(t, tokenExpired(now.Add(60*time.Second).Unix(), now))
	assert.True(t, tokenExpired(now.Add(-time.Hour).Unix(), now))

	assert.False(t, tokenExpired(now.Add(90*time.Second).Unix(), now))
	assert.False(t, tokenExpired(now.Add(6*time.Hour).Unix(), now))
}

func TestTokenExpiredZeroMeansNeverIssued(t *testing.T) {
	assert.True(t, tokenExpired(0, time.Now()))
}
