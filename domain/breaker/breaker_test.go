package breaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreakerOpensAfterThreshold(t *testing.T) {
	b := New("vector-store", Config{Threshold: 3, ResetTimeout: time.Minute})
	failing := func() error { return errors.New("boom") }

	for i := 0; i < 3; i++ {
		err := b.Call(failing)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrOpen)
	}

	assert.Equal(t, StateOpen, b.State())

	err := b.Call(func() error { return nil })
	assert.ErrorIs(t, err, ErrOpen)
}

func TestBreakerHalfOpenRecoversToClosedOnSuccess(t *testing.T) {
	b := New("meta-store", Config{Threshold: 1, ResetTimeout: 10 * time.Millisecond})
	require.Error(t, b.Call(func() error { return errors.New("boom") }))
	assert.Equal(t, StateOpen, b.State())

	time.Sleep(15 * time.Millisecond)
	assert.Equal(t, StateHalfOpen, b.State())

	require.NoError(t, b.Call(func() error { return nil }))
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerHalfOpenReopensOnFailure(t *testing.T) {
	b := New("graph-store", Config{Threshold: 1, ResetTimeout: 10 * time.Millisecond})
	require.Error(t, b.Call(func() error { return errors.New("boom") }))
	time.Sleep(15 * time.Millisecond)
	require.Equal(t, StateHalfOpen, b.State())

	err := b.Call(func() error { return errors.New("still broken") })
	require.Error(t, err)
	assert.Equal(t, StateOpen, b.State())
}
