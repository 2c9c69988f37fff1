package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateLinkingCode(t *testing.T) {
	const charset = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		code := GenerateLinkingCode()
		assert.Len(t, code, 8)
		for _, r := range code {
			assert.True(t, strings.ContainsRune(charset, r), "ambiguous character %q in code", r)
		}
		seen[code] = true
	}
	// 50 draws from a 31^8 space colliding would mean a broken generator.
	assert.Greater(t, len(seen), 45)
}

func TestTruncateString(t *testing.T) {
	tests := []struct {
		name  string
		input string
		max   int
		want  string
	}{
		{"short untouched", "hello", 10, "hello"},
		{"exact length untouched", "hello", 5, "hello"},
		{"truncated with ellipsis", "hello world", 8, "hello..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TruncateString(tt.input, tt.max))
		})
	}
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "45s", FormatDuration(45*time.Second))
	assert.Equal(t, "15m", FormatDuration(15*time.Minute))
	assert.Equal(t, "1.5h", FormatDuration(90*time.Minute))
}

func TestFormatDistance(t *testing.T) {
	assert.Equal(t, "250m", FormatDistance(250))
	assert.Equal(t, "1.2km", FormatDistance(1234))
}

func TestCalculateDistance(t *testing.T) {
	// Times Square to the Empire State Building, roughly 1.1km.
	d := CalculateDistance(40.758, -73.9855, 40.7484, -73.9857)
	assert.InDelta(t, 1067, d, 50)

	assert.Zero(t, CalculateDistance(40.758, -73.9855, 40.758, -73.9855))
}

func TestIsValidCoordinate(t *testing.T) {
	assert.True(t, IsValidCoordinate(40.758, -73.9855))
	assert.True(t, IsValidCoordinate(-90, 180))
	assert.False(t, IsValidCoordinate(90.1, 0))
	assert.False(t, IsValidCoordinate(0, -180.1))
}

func TestDeviceTokenRoundTrip(t *testing.T) {
	svc := NewJWTService("test-secret")

	token, err := svc.GenerateDeviceToken("u1", "d1", "device")
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "d1", claims.DeviceID)
	assert.Equal(t, "device", claims.TokenType)
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	token, err := NewJWTService("secret-a").GenerateDeviceToken("u1", "d1", "device")
	require.NoError(t, err)

	_, err = NewJWTService("secret-b").ValidateToken(token)
	assert.Error(t, err)
}
