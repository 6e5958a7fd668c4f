package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingIdempotencyGC struct {
	fakeIdempotency
	mu        sync.Mutex
	deletions []time.Duration
}

func (r *recordingIdempotencyGC) DeleteExpired(ctx context.Context, retention time.Duration) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deletions = append(r.deletions, retention)
	return 3, nil
}

func TestCleanupRunNowUsesConfiguredRetention(t *testing.T) {
	repo := &recordingIdempotencyGC{}
	s := NewCleanupScheduler(repo, CleanupConfig{Retention: 48 * time.Hour, Interval: time.Hour})

	deleted, err := s.RunNow()
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)

	require.Len(t, repo.deletions, 1)
	assert.Equal(t, 48*time.Hour, repo.deletions[0])
}

func TestCleanupConfigDefaults(t *testing.T) {
	repo := &recordingIdempotencyGC{}
	s := NewCleanupScheduler(repo, CleanupConfig{})

	assert.Equal(t, 48*time.Hour, s.config.Retention)
	assert.Equal(t, time.Hour, s.config.Interval)
}

func TestCleanupStartStopIdempotent(t *testing.T) {
	repo := &recordingIdempotencyGC{}
	s := NewCleanupScheduler(repo, CleanupConfig{Interval: time.Hour})

	s.Start()
	s.Start() // second start is a no-op
	s.Stop()
	s.Stop() // double stop is safe
}
