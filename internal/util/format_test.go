package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d        time.Duration
		expected string
	}{
		{7*time.Hour + 5*time.Minute, "7h 05m"},
		{time.Hour, "1h 00m"},
		{42*time.Minute + 10*time.Second, "42m 10s"},
		{12 * time.Second, "12s"},
		{0, "0s"},
		{-time.Minute, "0s"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, FormatDuration(tt.d))
	}
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "0a1b2c3d", ShortID("0a1b2c3d-4e5f-6789-abcd-ef0123456789"))
	assert.Equal(t, "short", ShortID("short"))
}
