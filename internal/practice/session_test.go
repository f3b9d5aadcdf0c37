package practice_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kpauljoseph/spellbee/internal/practice"
	"github.com/kpauljoseph/spellbee/internal/selector"
	"github.com/kpauljoseph/spellbee/internal/speech"
	"github.com/kpauljoseph/spellbee/pkg/models"
)

type memoryWords struct {
	words []models.Word
}

func (m *memoryWords) GetAll(context.Context) ([]models.Word, error) {
	out := make([]models.Word, len(m.words))
	copy(out, m.words)
	return out, nil
}

func (m *memoryWords) GetDue(_ context.Context, asOf time.Time) ([]models.Word, error) {
	var due []models.Word
	for _, w := range m.words {
		if w.IsDue(asOf) {
			due = append(due, w)
		}
	}
	return due, nil
}

type attempt struct {
	wordID  string
	outcome models.Outcome
}

type fakeRecorder struct {
	attempts []attempt
	err      error
}

func (f *fakeRecorder) RecordAttempt(_ context.Context, wordID string, outcome models.Outcome) error {
	if f.err != nil {
		return f.err
	}
	f.attempts = append(f.attempts, attempt{wordID, outcome})
	return nil
}

type fakeSpeaker struct {
	spoken  []string
	options []speech.Options
	err     error
	stopped bool
}

func (f *fakeSpeaker) Init(context.Context) error { return nil }
func (f *fakeSpeaker) Speak(_ context.Context, text string, opts speech.Options) error {
	if f.err != nil {
		return f.err
	}
	f.spoken = append(f.spoken, text)
	f.options = append(f.options, opts)
	return nil
}
func (f *fakeSpeaker) Stop() { f.stopped = true }
func (f *fakeSpeaker) ListVoices(context.Context) ([]speech.Voice, error) { return nil, nil }
func (f *fakeSpeaker) IsAvailable() bool { return f.err == nil }
func (f *fakeSpeaker) Dispose() {}

type fakeSaver struct {
	saved []models.PracticeSession
}

func (f *fakeSaver) Save(_ context.Context, s models.PracticeSession) error {
	f.saved = append(f.saved, s)
	return nil
}

func wordList(texts ...string) []models.Word {
	words := make([]models.Word, len(texts))
	for i, t := range texts {
		words[i] = models.Word{ID: fmt.Sprintf("id-%d", i), Text: t, Stats: models.NewStats()}
	}
	return words
}

var _ = Describe("Session", func() {
	var (
		ctx      context.Context
		source   *memoryWords
		recorder *fakeRecorder
		speaker  *fakeSpeaker
		saver    *fakeSaver
		settings models.Settings
		now      time.Time
	)

	newSession := func() *practice.Session {
		return practice.NewSession(practice.Deps{
			Selector:  selector.New(source, 7),
			Scheduler: recorder,
			Speaker:   speaker,
			Sessions:  saver,
			Logger:    practiceTestLogger(),
			Now:       func() time.Time { return now },
		}, settings)
	}

	started := func() *practice.Session {
		s := newSession()
		Expect(s.Start(ctx)).To(Succeed())
		return s
	}

	BeforeEach(func() {
		ctx = context.Background()
		now = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
		source = &memoryWords{words: wordList("beautiful", "necessary", "separate")}
		recorder = &fakeRecorder{}
		speaker = &fakeSpeaker{}
		saver = &fakeSaver{}
		settings = models.Settings{
			Voice:    models.VoiceSettings{Rate: 1, Pitch: 1, Volume: 1},
			Practice: models.PracticeSettings{Mode: models.ModeRandom},
		}
	})

	It("refuses to start without words", func() {
		source.words = nil
		Expect(newSession().Start(ctx)).To(MatchError(practice.ErrNoWords))
	})

	It("requires Start before Next", func() {
		_, err := newSession().Next(ctx)
		Expect(err).To(MatchError(practice.ErrNotStarted))
	})

	It("speaks each drawn word", func() {
		s := started()
		prompt, err := s.Next(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(prompt.SpeechErr).NotTo(HaveOccurred())
		Expect(speaker.spoken).To(Equal([]string{prompt.Word.Text}))

		Expect(s.Repeat(ctx)).To(Succeed())
		Expect(speaker.spoken).To(HaveLen(2))
	})

	It("slows the voice when slow playback is on", func() {
		settings.Practice.SlowPlayback = true
		s := started()
		_, err := s.Next(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(speaker.options[0].Rate).To(BeNumerically("<", 1))
	})

	It("keeps going when speech fails", func() {
		speaker.err = errors.New("no audio device")
		s := started()
		prompt, err := s.Next(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(prompt.SpeechErr).To(MatchError("no audio device"))

		result, err := s.Submit(ctx, prompt.Word.Text)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Correct).To(BeTrue())
	})

	Context("in random mode", func() {
		It("draws every word once before repeating", func() {
			s := started()
			seen := map[string]int{}
			for i := 0; i < 3; i++ {
				prompt, err := s.Next(ctx)
				Expect(err).NotTo(HaveOccurred())
				seen[prompt.Word.ID]++
			}
			Expect(seen).To(HaveLen(3))

			_, err := s.Next(ctx)
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Context("in sequential mode", func() {
		BeforeEach(func() {
			settings.Practice.Mode = models.ModeSequential
		})

		It("walks the list in order and wraps around", func() {
			s := started()
			var texts []string
			for i := 0; i < 4; i++ {
				prompt, err := s.Next(ctx)
				Expect(err).NotTo(HaveOccurred())
				texts = append(texts, prompt.Word.Text)
			}
			Expect(texts).To(Equal([]string{"beautiful", "necessary", "separate", "beautiful"}))
		})
	})

	Context("in spaced-repetition mode", func() {
		BeforeEach(func() {
			settings.Practice.Mode = models.ModeSpacedRepetition
		})

		It("only offers due words", func() {
			later := now.AddDate(0, 0, 5)
			source.words[0].Stats.NextDue = &later
			source.words[1].Stats.NextDue = &later

			s := started()
			for i := 0; i < 2; i++ {
				prompt, err := s.Next(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(prompt.Word.Text).To(Equal("separate"))
			}
		})

		It("refuses to start when nothing is due", func() {
			later := now.AddDate(0, 0, 1)
			for i := range source.words {
				source.words[i].Stats.NextDue = &later
			}
			Expect(newSession().Start(ctx)).To(MatchError(practice.ErrNoWords))
		})
	})

	Describe("answering", func() {
		var s *practice.Session

		BeforeEach(func() {
			settings.Practice.Mode = models.ModeSequential
			s = started()
		})

		next := func() models.Word {
			prompt, err := s.Next(ctx)
			Expect(err).NotTo(HaveOccurred())
			return prompt.Word
		}

		It("accepts answers regardless of case and surrounding space", func() {
			w := next()
			result, err := s.Submit(ctx, "  BEAUTIFUL ")
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Correct).To(BeTrue())
			Expect(result.Expected).To(Equal("beautiful"))
			Expect(recorder.attempts).To(Equal([]attempt{{w.ID, models.OutcomeCorrect}}))
		})

		It("compares case when asked to", func() {
			settings.Practice.CaseSensitive = true
			s = started()
			next()
			result, err := s.Submit(ctx, "Beautiful")
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Correct).To(BeFalse())
		})

		It("rejects an empty answer without recording it", func() {
			next()
			_, err := s.Submit(ctx, "   ")
			Expect(err).To(MatchError(practice.ErrEmptyAnswer))
			Expect(recorder.attempts).To(BeEmpty())
			Expect(s.Stats().WordsAttempted).To(BeZero())

			_, ok := s.Current()
			Expect(ok).To(BeTrue())
		})

		It("requires a current word", func() {
			_, err := s.Submit(ctx, "beautiful")
			Expect(err).To(MatchError(practice.ErrNoCurrentWord))
			Expect(s.Skip(ctx)).To(MatchError(practice.ErrNoCurrentWord))
			Expect(s.Repeat(ctx)).To(MatchError(practice.ErrNoCurrentWord))
		})

		It("tracks the streak", func() {
			next()
			_, err := s.Submit(ctx, "beautiful")
			Expect(err).NotTo(HaveOccurred())
			next()
			result, err := s.Submit(ctx, "necessary")
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Streak).To(Equal(2))

			next()
			result, err = s.Submit(ctx, "seperate")
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Correct).To(BeFalse())
			Expect(result.Streak).To(BeZero())

			stats := s.Stats()
			Expect(stats.WordsAttempted).To(Equal(3))
			Expect(stats.WordsCorrect).To(Equal(2))
			Expect(stats.MaxStreak).To(Equal(2))
		})

		It("records a skip as seen and breaks the streak", func() {
			next()
			_, err := s.Submit(ctx, "beautiful")
			Expect(err).NotTo(HaveOccurred())
			w := next()
			Expect(s.Skip(ctx)).To(Succeed())

			Expect(recorder.attempts[1]).To(Equal(attempt{w.ID, models.OutcomeSeenOnly}))
			Expect(s.Stats().Streak).To(BeZero())
			Expect(s.Stats().WordsAttempted).To(Equal(1))
		})

		It("does not count an attempt the scheduler rejected", func() {
			recorder.err = errors.New("disk full")
			next()
			_, err := s.Submit(ctx, "beautiful")
			Expect(err).To(MatchError("disk full"))
			Expect(s.Stats().WordsAttempted).To(BeZero())
		})
	})

	It("saves the session when finished", func() {
		settings.Practice.Mode = models.ModeSequential
		s := started()
		_, err := s.Next(ctx)
		Expect(err).NotTo(HaveOccurred())
		_, err = s.Submit(ctx, "beautiful")
		Expect(err).NotTo(HaveOccurred())

		now = now.Add(10 * time.Minute)
		record, err := s.Finish(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(speaker.stopped).To(BeTrue())
		Expect(record.ID).NotTo(BeEmpty())
		Expect(record.EndTime).NotTo(BeNil())
		Expect(record.EndTime.Sub(record.StartTime)).To(Equal(10 * time.Minute))
		Expect(saver.saved).To(Equal([]models.PracticeSession{record}))

		_, err = s.Finish(ctx)
		Expect(err).To(MatchError(practice.ErrNotStarted))
	})
})
