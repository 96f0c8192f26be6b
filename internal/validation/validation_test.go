package validation

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
		{"valid simple", "madotsuki", false},
		{"valid with digits", "urotsuki2", false},
		{"valid with underscore", "dream_walker", false},
		{"valid with hyphen", "dream-walker", false},
		{"too short", "ab", true},
		{"too long", strings.Repeat("a", 31), true},
		{"spaces", "dream walker", true},
		{"special chars", "mado!suki", true},
		{"leading underscore", "_mado", true},
		{"trailing hyphen", "mado-", true},
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

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"valid mix", "dreamland42", false},
		{"valid long", "hunter2hunter2", false},
		{"too short", "abc123", true},
		{"too long", strings.Repeat("a1", 65), true},
		{"letters only", "dreamlandxyz", true},
		{"digits only", "123456789012", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
