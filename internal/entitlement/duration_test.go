package entitlement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fkhayef/rentguard/internal/domain"
)

func TestParseDuration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  time.Duration
	}{
		{"1d", 24 * time.Hour},
		{"2w", 14 * 24 * time.Hour},
		{"1m", 30 * 24 * time.Hour},
		{"1y", 365 * 24 * time.Hour},
		{" 3D ", 72 * time.Hour},
		{"36h", 36 * time.Hour},
		{"1h30m", 90 * time.Minute},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			got, err := ParseDuration(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDuration_Rejects(t *testing.T) {
	t.Parallel()

	for _, input := range []string{"", "0d", "-1d", "-5h", "0s", "abc", "1x", "d", "99999999999999y"} {
		t.Run(input, func(t *testing.T) {
			t.Parallel()
			_, err := ParseDuration(input)
			require.ErrorIs(t, err, domain.ErrInvalidDuration)
		})
	}
}

func TestFormatRemaining(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "expired", FormatRemaining(0))
	assert.Equal(t, "expired", FormatRemaining(-time.Minute))
	assert.Equal(t, "5m", FormatRemaining(5*time.Minute+30*time.Second))
	assert.Equal(t, "2h 0m", FormatRemaining(2*time.Hour))
	assert.Equal(t, "3d 4h 12m", FormatRemaining(3*day+4*time.Hour+12*time.Minute))
}
