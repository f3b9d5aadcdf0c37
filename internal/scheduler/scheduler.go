// Package scheduler updates per-word practice statistics with a simplified
// SM-2 rule and schedules the next review.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/kpauljoseph/spellbee/internal/store"
	"github.com/kpauljoseph/spellbee/pkg/logger"
	"github.com/kpauljoseph/spellbee/pkg/models"
)

const (
	easinessGain    = 0.1
	easinessPenalty = 0.2
)

// Apply returns stats after one attempt at now. It is pure.
//
// Correct raises easiness by 0.1 (capped at 2.5) and multiplies the interval
// by it, rounding up. Incorrect lowers easiness by 0.2 (floored at 1.3) and
// resets the interval to one day. SeenOnly only counts the view. The next
// due time is always now plus the interval in days.
func Apply(s models.Stats, outcome models.Outcome, now time.Time) models.Stats {
	if s.Easiness == 0 {
		s.Easiness = models.DefaultEasiness
	}
	if s.Interval < models.DefaultInterval {
		s.Interval = models.DefaultInterval
	}

	s.Seen++
	s.LastSeen = &now

	switch outcome {
	case models.OutcomeCorrect:
		s.Correct++
		s.Easiness = math.Min(models.MaxEasiness, s.Easiness+easinessGain)
		s.Interval = int(math.Ceil(float64(s.Interval) * s.Easiness))
	case models.OutcomeIncorrect:
		s.Wrong++
		s.Easiness = math.Max(models.MinEasiness, s.Easiness-easinessPenalty)
		s.Interval = models.DefaultInterval
	}

	due := now.AddDate(0, 0, s.Interval)
	s.NextDue = &due
	return s
}

// StatsUpdater is the part of the word store the scheduler writes through.
type StatsUpdater interface {
	UpdateStats(ctx context.Context, id string, now time.Time, fn func(models.Stats) models.Stats) (models.Word, error)
}

type Scheduler struct {
	words  StatsUpdater
	logger *logger.Logger
	now    func() time.Time
}

type Option func(*Scheduler)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		s.now = now
	}
}

func New(words StatsUpdater, log *logger.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{words: words, logger: logger.OrDiscard(log), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RecordAttempt applies outcome to the word. A word that no longer exists is
// ignored: attempts can arrive after the word was deleted.
func (s *Scheduler) RecordAttempt(ctx context.Context, wordID string, outcome models.Outcome) error {
	now := s.now()
	w, err := s.words.UpdateStats(ctx, wordID, now, func(st models.Stats) models.Stats {
		return Apply(st, outcome, now)
	})
	if errors.Is(err, store.ErrNotFound) {
		s.logger.Debug("Ignoring %s attempt for missing word %s", outcome, wordID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to record attempt for %s: %w", wordID, err)
	}
	s.logger.Trace("Recorded %s for %q: easiness %.2f, interval %d", outcome, w.Text, w.Stats.Easiness, w.Stats.Interval)
	return nil
}
