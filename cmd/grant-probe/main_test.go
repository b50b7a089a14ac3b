package main

import (
	"errors"
	"fmt"
	"testing"
	"time"

	goAuthWeb "github.com/MrEthical07/goAuthWeb"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	require.Equal(t, "authenticated", classify(nil))
	require.Equal(t, "rate_limited", classify(fmt.Errorf("wrap: %w", goAuthWeb.ErrLoginRateLimited)))
	require.Equal(t, "invalid_credentials", classify(goAuthWeb.ErrInvalidCredentials))
	require.Equal(t, "configuration_error", classify(goAuthWeb.ErrConfiguration))
	require.Equal(t, "grant_exchange_failed", classify(errors.New("connection refused")))
}

func TestComputeStats(t *testing.T) {
	samples := make([]time.Duration, 0, 100)
	for i := 100; i >= 1; i-- {
		samples = append(samples, time.Duration(i)*time.Millisecond)
	}
	s := computeStats(time.Second, samples, 3)
	require.Equal(t, 100, s.ops)
	require.EqualValues(t, 3, s.failures)
	require.Equal(t, 50*time.Millisecond, s.p50)
	require.Equal(t, 95*time.Millisecond, s.p95)
	require.Equal(t, 99*time.Millisecond, s.p99)
	require.InDelta(t, 100.0, s.opsPerS, 0.001)

	empty := computeStats(time.Second, nil, 0)
	require.Zero(t, empty.ops)
}
