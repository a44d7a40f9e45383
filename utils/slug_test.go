package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNameToSlug(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Leo Nagano", "leo-nagano"},
		{"  Ada   Lovelace  ", "ada-lovelace"},
		{"Jörg O'Brien!", "jrg-obrien"},
		{"---", ""},
		{"Run Club 2026", "run-club-2026"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NameToSlug(tt.name), "input %q", tt.name)
	}
}

func TestUniqueSlugFirstFree(t *testing.T) {
	slug, err := UniqueSlug("leo-nagano", func(string) (bool, error) { return false, nil })
	require.NoError(t, err)
	assert.Equal(t, "leo-nagano", slug)
}

func TestUniqueSlugAppendsCounter(t *testing.T) {
	taken := map[string]bool{"leo-nagano": true, "leo-nagano-2": true}
	slug, err := UniqueSlug("leo-nagano", func(s string) (bool, error) { return taken[s], nil })
	require.NoError(t, err)
	assert.Equal(t, "leo-nagano-3", slug)
}
