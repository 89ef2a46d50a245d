package provider

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goquant/internal/errors"
)

func TestCircuitOpensAfterFailureThreshold(t *testing.T) {
	registry := NewRegistry()
	registry.RegisterWithBreaker(
		FailPaperProvider("flaky", "connection refused"),
		CircuitBreakerConfig{FailureThreshold: 3, SuccessThreshold: 1, Timeout: time.Hour},
	)

	p, err := registry.Get("flaky")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = p.CalcMulti(context.Background(), nil)
		require.Error(t, err)
		assert.NotErrorIs(t, err, errors.ErrCircuitOpen, "failures pass through until the threshold")
	}

	_, err = p.CalcMulti(context.Background(), nil)
	assert.ErrorIs(t, err, errors.ErrCircuitOpen)

	_, err = p.GetResults(context.Background(), nil)
	assert.ErrorIs(t, err, errors.ErrCircuitOpen, "the open circuit also rejects polls")
}

func TestCircuitRecoversThroughHalfOpen(t *testing.T) {
	cb := NewCircuitBreaker("gs", CircuitBreakerConfig{
		FailureThreshold: 1,
		SuccessThreshold: 2,
		Timeout:          10 * time.Millisecond,
	})

	fail := func() (int, error) { return 0, errors.ErrTimeout }
	ok := func() (int, error) { return 1, nil }

	_, err := execute(cb, fail)
	require.Error(t, err)
	assert.Equal(t, CircuitOpen, cb.State())

	_, err = execute(cb, ok)
	assert.ErrorIs(t, err, errors.ErrCircuitOpen, "requests are rejected while the circuit is open")

	time.Sleep(20 * time.Millisecond)

	// After the timeout the breaker probes in half-open state and closes
	// once enough successes accumulate.
	_, err = execute(cb, ok)
	require.NoError(t, err)
	assert.Equal(t, CircuitHalfOpen, cb.State())

	_, err = execute(cb, ok)
	require.NoError(t, err)
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestCircuitReopensOnHalfOpenFailure(t *testing.T) {
	cb := NewCircuitBreaker("gs", CircuitBreakerConfig{
		FailureThreshold: 1,
		SuccessThreshold: 2,
		Timeout:          5 * time.Millisecond,
	})

	_, err := execute(cb, func() (int, error) { return 0, errors.ErrTimeout })
	require.Error(t, err)
	time.Sleep(10 * time.Millisecond)

	_, err = execute(cb, func() (int, error) { return 0, errors.ErrTimeout })
	require.Error(t, err)
	assert.NotErrorIs(t, err, errors.ErrCircuitOpen)
	assert.Equal(t, CircuitOpen, cb.State())
}
