package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRateForHourWithinBand(t *testing.T) {
	cfg := NodeConfig{
		Bands: []RateLimitBand{
			{BeginHour: 9, EndHour: 17, RateBytesPerSec: 1000},
		},
		DefaultRateBytesPerSec: 100,
	}
	require.EqualValues(t, 1000, cfg.RateForHour(10))
	require.EqualValues(t, 100, cfg.RateForHour(20))
}

func TestRateForHourWrappingBand(t *testing.T) {
	cfg := NodeConfig{
		Bands: []RateLimitBand{
			{BeginHour: 22, EndHour: 2, RateBytesPerSec: 50},
		},
		DefaultRateBytesPerSec: 500,
	}
	require.EqualValues(t, 50, cfg.RateForHour(23))
	require.EqualValues(t, 50, cfg.RateForHour(1))
	require.EqualValues(t, 500, cfg.RateForHour(12))
}

func TestNextTransitionHour(t *testing.T) {
	cfg := NodeConfig{
		Bands: []RateLimitBand{
			{BeginHour: 9, EndHour: 17, RateBytesPerSec: 1000},
		},
	}
	next, ok := cfg.nextTransitionHour(10)
	require.True(t, ok)
	require.Equal(t, 17, next)

	next, ok = cfg.nextTransitionHour(20)
	require.True(t, ok)
	require.Equal(t, 9, next, "past the last boundary of the day wraps to the first boundary tomorrow")
}

func TestNextTransitionHourNoBands(t *testing.T) {
	cfg := NodeConfig{}
	_, ok := cfg.nextTransitionHour(10)
	require.False(t, ok)
}
