// Package transfer reads and writes the portable JSON word file and merges
// imported words into the store.
package transfer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/kpauljoseph/spellbee/internal/store"
	"github.com/kpauljoseph/spellbee/pkg/logger"
	"github.com/kpauljoseph/spellbee/pkg/models"
	"github.com/kpauljoseph/spellbee/pkg/normalize"
	"github.com/kpauljoseph/spellbee/pkg/version"
)

var ErrMalformed = errors.New("malformed import file")

const DefaultSource = "SpellBee"

type WordStore interface {
	GetAll(ctx context.Context) ([]models.Word, error)
	Merge(ctx context.Context, incoming []models.Word, decide store.MergeFunc) (store.MergeResult, error)
}

type Result struct {
	Imported int `json:"imported"`
	Updated  int `json:"updated"`
	Skipped  int `json:"skipped"`
}

type Codec struct {
	words  WordStore
	source string
	logger *logger.Logger
	now    func() time.Time
}

type Option func(*Codec)

// WithSource sets the source label written into exports.
func WithSource(source string) Option {
	return func(c *Codec) {
		c.source = source
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Codec) {
		c.now = now
	}
}

func New(words WordStore, log *logger.Logger, opts ...Option) *Codec {
	c := &Codec{words: words, source: DefaultSource, logger: logger.OrDiscard(log), now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Export snapshots the whole collection.
func (c *Codec) Export(ctx context.Context) (models.ExportEnvelope, error) {
	words, err := c.words.GetAll(ctx)
	if err != nil {
		return models.ExportEnvelope{}, fmt.Errorf("failed to load words: %w", err)
	}
	return models.ExportEnvelope{
		Words: words,
		Metadata: models.ExportMetadata{
			ExportedAt: c.now(),
			Version:    version.ExportFormat,
			Source:     c.source,
		},
	}, nil
}

func (c *Codec) WriteJSON(ctx context.Context, w io.Writer) (int, error) {
	env, err := c.Export(ctx)
	if err != nil {
		return 0, err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(env); err != nil {
		return 0, fmt.Errorf("failed to write export: %w", err)
	}
	return len(env.Words), nil
}

// Decode parses and validates an export file. Nothing is written.
func Decode(r io.Reader) (models.ExportEnvelope, error) {
	var raw struct {
		Words    *[]json.RawMessage     `json:"words"`
		Metadata *models.ExportMetadata `json:"metadata"`
	}
	dec := json.NewDecoder(r)
	if err := dec.Decode(&raw); err != nil {
		return models.ExportEnvelope{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if raw.Words == nil {
		return models.ExportEnvelope{}, fmt.Errorf("%w: missing words", ErrMalformed)
	}

	env := models.ExportEnvelope{Words: make([]models.Word, 0, len(*raw.Words))}
	if raw.Metadata != nil {
		env.Metadata = *raw.Metadata
	}
	for i, msg := range *raw.Words {
		var w models.Word
		if err := json.Unmarshal(msg, &w); err != nil {
			return models.ExportEnvelope{}, fmt.Errorf("%w: word %d: %v", ErrMalformed, i, err)
		}
		if normalize.Normalize(w.Text) == "" {
			return models.ExportEnvelope{}, fmt.Errorf("%w: word %d has no text", ErrMalformed, i)
		}
		env.Words = append(env.Words, w)
	}
	return env, nil
}

// Import merges env into the store. A word whose key is new is inserted; an
// existing word is overwritten (keeping its id) only when the incoming
// modification time is strictly newer.
func (c *Codec) Import(ctx context.Context, env models.ExportEnvelope) (Result, error) {
	now := c.now()
	incoming := make([]models.Word, 0, len(env.Words))
	for _, w := range env.Words {
		incoming = append(incoming, prepare(w, now))
	}

	merged, err := c.words.Merge(ctx, incoming, func(existing *models.Word, in models.Word) (store.MergeAction, models.Word) {
		if existing == nil {
			return store.MergeInsert, in
		}
		if in.LastModified().After(existing.LastModified()) {
			in.UpdatedAt = &now
			return store.MergeReplace, in
		}
		return store.MergeSkip, in
	})
	if err != nil {
		return Result{}, fmt.Errorf("failed to import words: %w", err)
	}

	res := Result{Imported: merged.Inserted, Updated: merged.Replaced, Skipped: merged.Skipped}
	c.logger.Info("Imported %d words, updated %d, skipped %d", res.Imported, res.Updated, res.Skipped)
	return res, nil
}

// ReadJSON decodes r and imports it.
func (c *Codec) ReadJSON(ctx context.Context, r io.Reader) (Result, error) {
	env, err := Decode(r)
	if err != nil {
		return Result{}, err
	}
	return c.Import(ctx, env)
}

// prepare fills defaults and clamps stats into their invariants.
func prepare(w models.Word, now time.Time) models.Word {
	if w.AddedAt.IsZero() {
		w.AddedAt = now
	}
	s := w.Stats
	if s.Easiness == 0 {
		s.Easiness = models.DefaultEasiness
	}
	if s.Easiness < models.MinEasiness {
		s.Easiness = models.MinEasiness
	}
	if s.Easiness > models.MaxEasiness {
		s.Easiness = models.MaxEasiness
	}
	if s.Interval < models.DefaultInterval {
		s.Interval = models.DefaultInterval
	}
	if s.Correct < 0 {
		s.Correct = 0
	}
	if s.Wrong < 0 {
		s.Wrong = 0
	}
	if s.Seen < s.Correct+s.Wrong {
		s.Seen = s.Correct + s.Wrong
	}
	w.Stats = s
	return w
}
