package breaker

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

var errFail = errors.New("fail")

func fail() error { return errFail }
func pass() error { return nil }

func TestCircuitBreaker_Trips(t *testing.T) {
	t.Parallel()
	cb := New(4, time.Hour, 0.5, 1)

	require.ErrorIs(t, cb.Call(fail), errFail)
	require.ErrorIs(t, cb.Call(fail), errFail)

	// half the window failed, breaker rejects without calling
	called := false
	err := cb.Call(func() error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, ErrOpen)
	require.False(t, called)
}

func TestCircuitBreaker_StaysClosedBelowThreshold(t *testing.T) {
	t.Parallel()
	cb := New(4, time.Hour, 0.5, 1)

	require.NoError(t, cb.Call(pass))
	require.NoError(t, cb.Call(pass))
	require.NoError(t, cb.Call(pass))
	require.ErrorIs(t, cb.Call(fail), errFail)
	require.NoError(t, cb.Call(pass))
}

func TestCircuitBreaker_Recovers(t *testing.T) {
	t.Parallel()
	cb := New(2, time.Millisecond, 0.5, 1)

	require.ErrorIs(t, cb.Call(fail), errFail)
	require.ErrorIs(t, cb.Call(pass), ErrOpen)

	time.Sleep(5 * time.Millisecond)

	// half-open probes go through; enough successes close the breaker
	require.NoError(t, cb.Call(pass))
	require.NoError(t, cb.Call(pass))
	require.NoError(t, cb.Call(pass))
	require.NoError(t, cb.Call(pass))
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	t.Parallel()
	cb := New(2, time.Millisecond, 0.5, 1)

	require.ErrorIs(t, cb.Call(fail), errFail)

	time.Sleep(5 * time.Millisecond)
	require.ErrorIs(t, cb.Call(fail), errFail)
	require.ErrorIs(t, cb.Call(pass), ErrOpen)
}

func TestCircuitBreaker_Reset(t *testing.T) {
	t.Parallel()
	cb := New(2, time.Hour, 0.5, 1)

	require.ErrorIs(t, cb.Call(fail), errFail)
	require.ErrorIs(t, cb.Call(pass), ErrOpen)

	cb.Reset()
	require.NoError(t, cb.Call(pass))
}
