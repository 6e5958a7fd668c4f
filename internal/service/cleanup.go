package service

import (
	"context"
	"log"
	"sync"
	"time"

	"mediahub-credits-api/internal/repository"
)

// CleanupConfig holds configuration for the idempotency-key retention
// scheduler.
type CleanupConfig struct {
	// Retention is how long completed idempotency keys stay replayable.
	// Default: 48 hours.
	Retention time.Duration

	// Interval is how often the purge runs.
	// Default: 1 hour.
	Interval time.Duration
}

// DefaultCleanupConfig returns default cleanup configuration.
func DefaultCleanupConfig() CleanupConfig {
	return CleanupConfig{
		Retention: 48 * time.Hour,
		Interval:  1 * time.Hour,
	}
}

// CleanupScheduler periodically garbage-collects idempotency keys that are
// past the retention window. Grants and sale records are never purged; they
// are audit history.
type CleanupScheduler struct {
	repo      repository.IdempotencyRepository
	config    CleanupConfig
	ticker    *time.Ticker
	stopCh    chan struct{}
	stopOnce  sync.Once
	isRunning bool
	mu        sync.Mutex
}

// NewCleanupScheduler creates a new cleanup scheduler.
func NewCleanupScheduler(repo repository.IdempotencyRepository, config CleanupConfig) *CleanupScheduler {
	if config.Retention == 0 {
		config.Retention = 48 * time.Hour
	}
	if config.Interval == 0 {
		config.Interval = 1 * time.Hour
	}

	return &CleanupScheduler{
		repo:   repo,
		config: config,
		stopCh: make(chan struct{}),
	}
}

// Start begins the cleanup scheduler.
func (s *CleanupScheduler) Start() {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	s.ticker = time.NewTicker(s.config.Interval)
	s.mu.Unlock()

	log.Printf("[CleanupScheduler] Started - Interval: %v, Retention: %v",
		s.config.Interval, s.config.Retention)

	go s.run()
}

func (s *CleanupScheduler) run() {
	for {
		select {
		case <-s.ticker.C:
			s.runCleanup()
		case <-s.stopCh:
			log.Printf("[CleanupScheduler] Stopped")
			return
		}
	}
}

func (s *CleanupScheduler) runCleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
	defer cancel()

	deleted, err := s.repo.DeleteExpired(ctx, s.config.Retention)
	if err != nil {
		log.Printf("[CleanupScheduler] Error during cleanup: %v", err)
		return
	}

	if deleted > 0 {
		log.Printf("[CleanupScheduler] Purged %d idempotency keys past retention", deleted)
	}
}

// Stop stops the cleanup scheduler.
func (s *CleanupScheduler) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		if s.ticker != nil {
			s.ticker.Stop()
		}
		close(s.stopCh)
		s.isRunning = false
	})
}

// RunNow triggers an immediate purge.
func (s *CleanupScheduler) RunNow() (int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
	defer cancel()

	return s.repo.DeleteExpired(ctx, s.config.Retention)
}
