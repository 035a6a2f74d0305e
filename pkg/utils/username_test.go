package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateUsername(t *testing.T) {
	tests := []struct {
		name     string
		username string
		wantErr  bool
	}{
		{"valid simple", "alice", false},
		{"valid with digits", "bob42", false},
		{"valid with underscore", "carol_d", false},
		{"valid mixed case", "Alice", false},
		{"too short", "ab", true},
		{"too long", strings.Repeat("a", 21), true},
		{"empty", "", true},
		{"spaces", "ali ce", true},
		{"punctuation", "alice!", true},
		{"leading underscore", "_alice", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUsername(tt.username)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNormalizeUsername(t *testing.T) {
	assert.Equal(t, "alice", NormalizeUsername("  alice  "))
	assert.Equal(t, "alice", NormalizeUsername("alice\n"))
	assert.Equal(t, "Alice", NormalizeUsername(" Alice "), "case is preserved")
	assert.Equal(t, "alice", NormalizeUsername("alice"))
}

func TestNormalizeThenValidate(t *testing.T) {
	// Validation accepts padded input because it trims internally; the
	// normalized form must be the name that passes, so storing it keeps
	// lookups by the bare name working.
	padded := "  alice  "
	assert.NoError(t, ValidateUsername(padded))
	assert.Equal(t, "alice", NormalizeUsername(padded))
	assert.NoError(t, ValidateUsername(NormalizeUsername(padded)))
}
