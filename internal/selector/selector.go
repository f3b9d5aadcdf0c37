// Package selector picks the next words to practice.
package selector

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/kpauljoseph/spellbee/pkg/models"
)

// WordSource is the read side of the word store used for selection.
type WordSource interface {
	GetAll(ctx context.Context) ([]models.Word, error)
	GetDue(ctx context.Context, asOf time.Time) ([]models.Word, error)
}

type Selector struct {
	words WordSource

	mu  sync.Mutex
	rng *rand.Rand
}

func New(words WordSource, seed int64) *Selector {
	return &Selector{words: words, rng: rand.New(rand.NewSource(seed))}
}

// PickRandom returns a uniformly random word whose id is not excluded, or
// false when every word is excluded.
func (s *Selector) PickRandom(ctx context.Context, exclude map[string]struct{}) (models.Word, bool, error) {
	all, err := s.words.GetAll(ctx)
	if err != nil {
		return models.Word{}, false, fmt.Errorf("failed to load words: %w", err)
	}

	candidates := make([]models.Word, 0, len(all))
	for _, w := range all {
		if _, skip := exclude[w.ID]; !skip {
			candidates = append(candidates, w)
		}
	}
	if len(candidates) == 0 {
		return models.Word{}, false, nil
	}

	s.mu.Lock()
	i := s.rng.Intn(len(candidates))
	s.mu.Unlock()
	return candidates[i], true, nil
}

// All returns every word in listing order.
func (s *Selector) All(ctx context.Context) ([]models.Word, error) {
	all, err := s.words.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load words: %w", err)
	}
	return all, nil
}

// PickDue returns the words due at asOf.
func (s *Selector) PickDue(ctx context.Context, asOf time.Time) ([]models.Word, error) {
	due, err := s.words.GetDue(ctx, asOf)
	if err != nil {
		return nil, fmt.Errorf("failed to load due words: %w", err)
	}
	return due, nil
}

// Shuffle returns a uniformly shuffled copy of words.
func (s *Selector) Shuffle(words []models.Word) []models.Word {
	out := make([]models.Word, len(words))
	copy(out, words)

	s.mu.Lock()
	defer s.mu.Unlock()
	// Fisher-Yates
	for i := len(out) - 1; i > 0; i-- {
		j := s.rng.Intn(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Order arranges words for consumption in one session: shuffled for random
// mode, unchanged otherwise.
func (s *Selector) Order(words []models.Word, mode models.PracticeMode) []models.Word {
	if mode == models.ModeRandom {
		return s.Shuffle(words)
	}
	out := make([]models.Word, len(words))
	copy(out, words)
	return out
}

// Cycle draws random words without repeats until the collection is
// exhausted, then starts over.
type Cycle struct {
	sel  *Selector
	seen map[string]struct{}
}

func NewCycle(sel *Selector) *Cycle {
	return &Cycle{sel: sel, seen: make(map[string]struct{})}
}

// Next returns false only when there are no words at all.
func (c *Cycle) Next(ctx context.Context) (models.Word, bool, error) {
	w, ok, err := c.sel.PickRandom(ctx, c.seen)
	if err != nil {
		return models.Word{}, false, err
	}
	if !ok && len(c.seen) > 0 {
		c.Reset()
		w, ok, err = c.sel.PickRandom(ctx, c.seen)
		if err != nil {
			return models.Word{}, false, err
		}
	}
	if ok {
		c.seen[w.ID] = struct{}{}
	}
	return w, ok, nil
}

func (c *Cycle) Reset() {
	c.seen = make(map[string]struct{})
}

// Drawn is how many words were drawn since the last reset.
func (c *Cycle) Drawn() int {
	return len(c.seen)
}
