package config

import (
	"sync"
	"time"

	"github.com/algo-data-platform/laser/pkg/log"
)

// RateLimiterScheduler reprograms an I/O rate limiter at each hour boundary
// of a NodeConfig's time-banded schedule, using a one-shot timer that
// reschedules itself rather than a ticking loop (spec.md §4.7 "at boundary
// hours the factory reprograms the I/O rate limiter and schedules the next
// transition").
type RateLimiterScheduler struct {
	mu      sync.Mutex
	watcher *Watcher
	apply   func(rateBytesPerSec int64)
	timer   *time.Timer
	now     func() time.Time
	stopped bool
}

// NewRateLimiterScheduler builds a scheduler that calls apply with the
// active rate every time the schedule transitions, sourcing the schedule
// from watcher's current NodeConfig.
func NewRateLimiterScheduler(watcher *Watcher, apply func(rateBytesPerSec int64)) *RateLimiterScheduler {
	return &RateLimiterScheduler{watcher: watcher, apply: apply, now: time.Now}
}

// Start applies the rate for the current hour and schedules the next
// transition. Safe to call once; a later PushNodeConfig does not need to
// call Start again since Reschedule can be wired as a subscriber.
func (s *RateLimiterScheduler) Start() {
	s.reprogram()
}

// Reschedule cancels any pending timer and reprograms from the current
// NodeConfig; wire this as a Watcher subscriber so a pushed NodeConfig with
// a different schedule takes effect immediately.
func (s *RateLimiterScheduler) Reschedule() {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()
	s.reprogram()
}

// Stop cancels any pending timer permanently.
func (s *RateLimiterScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	if s.timer != nil {
		s.timer.Stop()
	}
}

func (s *RateLimiterScheduler) reprogram() {
	now := s.now()
	cfg := s.watcher.NodeConfig()
	rate := cfg.RateForHour(now.Hour())
	s.apply(rate)
	log.Logger.Debug().Str("component", "config").Int64("rate_bytes_per_sec", rate).Msg("rate limiter reprogrammed")

	nextHour, ok := cfg.nextTransitionHour(now.Hour())
	if !ok {
		return
	}
	next := time.Date(now.Year(), now.Month(), now.Day(), nextHour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.timer = time.AfterFunc(next.Sub(now), s.reprogram)
}
