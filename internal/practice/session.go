// Package practice runs an interactive spelling session: it draws words,
// speaks them, checks answers and feeds outcomes to the scheduler.
package practice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kpauljoseph/spellbee/internal/selector"
	"github.com/kpauljoseph/spellbee/internal/speech"
	"github.com/kpauljoseph/spellbee/pkg/logger"
	"github.com/kpauljoseph/spellbee/pkg/models"
)

var (
	ErrNoWords       = errors.New("no words available for practice")
	ErrNoCurrentWord = errors.New("no word is being practiced")
	ErrEmptyAnswer   = errors.New("answer is empty")
	ErrNotStarted    = errors.New("session not started")
)

// slowRate scales the voice rate when slow playback is on.
const slowRate = 0.6

type Recorder interface {
	RecordAttempt(ctx context.Context, wordID string, outcome models.Outcome) error
}

type SessionSaver interface {
	Save(ctx context.Context, s models.PracticeSession) error
}

type Deps struct {
	Selector  *selector.Selector
	Scheduler Recorder
	Speaker   speech.Speaker
	Sessions  SessionSaver
	Logger    *logger.Logger
	Now       func() time.Time
}

// Prompt is a word handed to the learner. SpeechErr is set when the word
// could not be spoken; the session carries on regardless.
type Prompt struct {
	Word      models.Word
	SpeechErr error
}

type AttemptResult struct {
	Correct  bool
	Expected string
	Answer   string
	Streak   int
}

type Session struct {
	deps     Deps
	settings models.Settings
	mode     models.PracticeMode

	record  models.PracticeSession
	started bool
	current *models.Word

	cycle *selector.Cycle
	queue []models.Word
	pos   int
}

func NewSession(deps Deps, settings models.Settings) *Session {
	deps.Logger = logger.OrDiscard(deps.Logger)
	if deps.Now == nil {
		deps.Now = time.Now
	}
	mode := settings.Practice.Mode
	if mode == "" {
		mode = models.ModeRandom
	}
	return &Session{deps: deps, settings: settings, mode: mode}
}

func (s *Session) Mode() models.PracticeMode { return s.mode }

func (s *Session) Settings() models.Settings { return s.settings }

// Start prepares the word supply. It fails with ErrNoWords when there is
// nothing to practice in the chosen mode.
func (s *Session) Start(ctx context.Context) error {
	if s.mode == models.ModeRandom {
		all, err := s.deps.Selector.All(ctx)
		if err != nil {
			return err
		}
		if len(all) == 0 {
			return ErrNoWords
		}
		s.cycle = selector.NewCycle(s.deps.Selector)
	} else {
		if err := s.refill(ctx); err != nil {
			return err
		}
		if len(s.queue) == 0 {
			return ErrNoWords
		}
	}

	s.record = models.PracticeSession{ID: uuid.NewString(), StartTime: s.deps.Now()}
	s.started = true
	s.deps.Logger.Debug("Started %s session %s", s.mode, s.record.ID)
	return nil
}

func (s *Session) refill(ctx context.Context) error {
	var (
		words []models.Word
		err   error
	)
	switch s.mode {
	case models.ModeSpacedRepetition:
		words, err = s.deps.Selector.PickDue(ctx, s.deps.Now())
		words = s.deps.Selector.Order(words, models.ModeRandom)
	default:
		words, err = s.deps.Selector.All(ctx)
		words = s.deps.Selector.Order(words, models.ModeSequential)
	}
	if err != nil {
		return err
	}
	s.queue, s.pos = words, 0
	return nil
}

// Next draws the next word and speaks it.
func (s *Session) Next(ctx context.Context) (Prompt, error) {
	if !s.started {
		return Prompt{}, ErrNotStarted
	}

	w, err := s.draw(ctx)
	if err != nil {
		return Prompt{}, err
	}
	s.current = &w
	return Prompt{Word: w, SpeechErr: s.say(ctx, w.Text)}, nil
}

func (s *Session) draw(ctx context.Context) (models.Word, error) {
	if s.mode == models.ModeRandom {
		w, ok, err := s.cycle.Next(ctx)
		if err != nil {
			return models.Word{}, err
		}
		if !ok {
			return models.Word{}, ErrNoWords
		}
		return w, nil
	}

	if s.pos >= len(s.queue) {
		if err := s.refill(ctx); err != nil {
			return models.Word{}, err
		}
		if len(s.queue) == 0 {
			return models.Word{}, ErrNoWords
		}
	}
	w := s.queue[s.pos]
	s.pos++
	return w, nil
}

// Repeat speaks the current word again.
func (s *Session) Repeat(ctx context.Context) error {
	if s.current == nil {
		return ErrNoCurrentWord
	}
	return s.say(ctx, s.current.Text)
}

func (s *Session) say(ctx context.Context, text string) error {
	if s.deps.Speaker == nil {
		return speech.ErrUnavailable
	}
	v := s.settings.Voice
	opts := speech.Options{Rate: v.Rate, Pitch: v.Pitch, Volume: v.Volume, Voice: v.PreferredVoice, Lang: "en"}
	if s.settings.Practice.SlowPlayback {
		opts.Rate *= slowRate
	}
	if err := s.deps.Speaker.Speak(ctx, text, opts); err != nil {
		s.deps.Logger.Warn("Failed to pronounce word: %v", err)
		return err
	}
	return nil
}

// Submit checks answer against the current word. The comparison ignores
// surrounding whitespace and, unless case-sensitive, letter case.
func (s *Session) Submit(ctx context.Context, answer string) (AttemptResult, error) {
	if s.current == nil {
		return AttemptResult{}, ErrNoCurrentWord
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return AttemptResult{}, ErrEmptyAnswer
	}

	w := *s.current
	correct := answer == w.Text
	if !s.settings.Practice.CaseSensitive {
		correct = strings.EqualFold(answer, w.Text)
	}

	outcome := models.OutcomeIncorrect
	if correct {
		outcome = models.OutcomeCorrect
	}
	if err := s.deps.Scheduler.RecordAttempt(ctx, w.ID, outcome); err != nil {
		return AttemptResult{}, err
	}

	s.record.WordsAttempted++
	if correct {
		s.record.WordsCorrect++
		s.record.Streak++
		if s.record.Streak > s.record.MaxStreak {
			s.record.MaxStreak = s.record.Streak
		}
	} else {
		s.record.Streak = 0
	}
	s.current = nil

	return AttemptResult{Correct: correct, Expected: w.Text, Answer: answer, Streak: s.record.Streak}, nil
}

// Skip marks the current word as seen without an answer and breaks the
// streak.
func (s *Session) Skip(ctx context.Context) error {
	if s.current == nil {
		return ErrNoCurrentWord
	}
	if err := s.deps.Scheduler.RecordAttempt(ctx, s.current.ID, models.OutcomeSeenOnly); err != nil {
		return err
	}
	s.record.Streak = 0
	s.current = nil
	return nil
}

// Current returns the word awaiting an answer, if any.
func (s *Session) Current() (models.Word, bool) {
	if s.current == nil {
		return models.Word{}, false
	}
	return *s.current, true
}

// Stats returns the running session record.
func (s *Session) Stats() models.PracticeSession {
	return s.record
}

// Finish stops speech, stamps the end time and saves the session.
func (s *Session) Finish(ctx context.Context) (models.PracticeSession, error) {
	if !s.started {
		return models.PracticeSession{}, ErrNotStarted
	}
	if s.deps.Speaker != nil {
		s.deps.Speaker.Stop()
	}
	end := s.deps.Now()
	s.record.EndTime = &end
	s.current = nil
	s.started = false

	if s.deps.Sessions != nil {
		if err := s.deps.Sessions.Save(ctx, s.record); err != nil {
			return s.record, fmt.Errorf("failed to save session: %w", err)
		}
	}
	s.deps.Logger.Info("Session finished: %d/%d correct, best streak %d",
		s.record.WordsCorrect, s.record.WordsAttempted, s.record.MaxStreak)
	return s.record, nil
}
