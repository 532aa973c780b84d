package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gaius-Lex/CV-voting/internal/logging"
	"github.com/Gaius-Lex/CV-voting/internal/model"
)

func TestSweeper_SweepOnce(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m, _ := newTestManager(now)
	ctx := context.Background()

	_, err := m.Upsert(ctx, alice, model.Credentials{Token: "at", Expiry: ptrTime(now.Add(-time.Hour))})
	require.NoError(t, err)

	s := NewSweeper(m, NewMockLocker(), time.Minute, logging.NewSilent())
	removed, ran, err := s.SweepOnce(ctx)
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, 1, removed)
}

func TestSweeper_SkipsWhenLeaseHeldElsewhere(t *testing.T) {
	m, _ := newTestManager(time.Now())
	locker := NewMockLocker()
	require.NoError(t, locker.Acquire(context.Background(), sweepLeaseName, "other-instance"))

	s := NewSweeper(m, locker, time.Minute, logging.NewSilent())
	_, ran, err := s.SweepOnce(context.Background())
	require.NoError(t, err)
	assert.False(t, ran)
}

func TestSweeper_DoesNotOverlapItself(t *testing.T) {
	m, _ := newTestManager(time.Now())
	s := NewSweeper(m, nil, time.Minute, logging.NewSilent())

	s.mu.Lock()
	_, ran, err := s.SweepOnce(context.Background())
	s.mu.Unlock()

	require.NoError(t, err)
	assert.False(t, ran)
}

func TestSweeper_RunStopsOnCancel(t *testing.T) {
	m, _ := newTestManager(time.Now())
	s := NewSweeper(m, nil, 5*time.Millisecond, logging.NewSilent())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
