package selector_test

import (
	"context"
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kpauljoseph/spellbee/internal/selector"
	"github.com/kpauljoseph/spellbee/pkg/models"
)

type memoryWords struct {
	words []models.Word
	err   error
}

func (m *memoryWords) GetAll(context.Context) ([]models.Word, error) {
	out := make([]models.Word, len(m.words))
	copy(out, m.words)
	return out, m.err
}

func (m *memoryWords) GetDue(_ context.Context, asOf time.Time) ([]models.Word, error) {
	var due []models.Word
	for _, w := range m.words {
		if w.IsDue(asOf) {
			due = append(due, w)
		}
	}
	return due, m.err
}

// sharedWords hands out its own backing slice, like a cache would.
type sharedWords struct {
	words []models.Word
}

func (m *sharedWords) GetAll(context.Context) ([]models.Word, error) {
	return m.words, nil
}

func (m *sharedWords) GetDue(context.Context, time.Time) ([]models.Word, error) {
	return m.words, nil
}

func makeWords(n int) []models.Word {
	words := make([]models.Word, n)
	for i := range words {
		words[i] = models.Word{ID: fmt.Sprintf("id-%d", i), Text: fmt.Sprintf("word%d", i), Stats: models.NewStats()}
	}
	return words
}

func idsOf(words []models.Word) []string {
	ids := make([]string, len(words))
	for i, w := range words {
		ids[i] = w.ID
	}
	return ids
}

var _ = Describe("Selector", func() {
	var (
		ctx    context.Context
		source *memoryWords
		sel    *selector.Selector
	)

	BeforeEach(func() {
		ctx = context.Background()
		source = &memoryWords{words: makeWords(5)}
		sel = selector.New(source, 42)
	})

	Describe("PickRandom", func() {
		It("never returns an excluded word", func() {
			exclude := map[string]struct{}{"id-0": {}, "id-1": {}, "id-2": {}, "id-3": {}}
			for i := 0; i < 20; i++ {
				w, ok, err := sel.PickRandom(ctx, exclude)
				Expect(err).NotTo(HaveOccurred())
				Expect(ok).To(BeTrue())
				Expect(w.ID).To(Equal("id-4"))
			}
		})

		It("returns nothing when all words are excluded", func() {
			exclude := map[string]struct{}{}
			for _, w := range source.words {
				exclude[w.ID] = struct{}{}
			}
			_, ok, err := sel.PickRandom(ctx, exclude)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())
		})

		It("leaves the words it was handed untouched", func() {
			shared := &sharedWords{words: makeWords(4)}
			before := idsOf(shared.words)
			sel := selector.New(shared, 7)

			_, ok, err := sel.PickRandom(ctx, map[string]struct{}{"id-0": {}, "id-2": {}})
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
			Expect(idsOf(shared.words)).To(Equal(before))
		})

		It("returns nothing for an empty store", func() {
			source.words = nil
			_, ok, err := sel.PickRandom(ctx, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())
		})

		It("reaches every word", func() {
			hits := map[string]int{}
			for i := 0; i < 500; i++ {
				w, _, err := sel.PickRandom(ctx, nil)
				Expect(err).NotTo(HaveOccurred())
				hits[w.ID]++
			}
			Expect(hits).To(HaveLen(5))
		})
	})

	Describe("PickDue", func() {
		It("returns unscheduled and overdue words", func() {
			now := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
			past, future := now.Add(-time.Minute), now.Add(time.Minute)
			source.words[0].Stats.NextDue = &past
			source.words[1].Stats.NextDue = &future
			source.words[2].Stats.NextDue = &now

			due, err := sel.PickDue(ctx, now)
			Expect(err).NotTo(HaveOccurred())
			Expect(idsOf(due)).To(ConsistOf("id-0", "id-2", "id-3", "id-4"))
		})
	})

	Describe("Shuffle", func() {
		It("permutes without losing or duplicating words", func() {
			words := makeWords(20)
			shuffled := sel.Shuffle(words)
			Expect(idsOf(shuffled)).To(ConsistOf(idsOf(words)))
			Expect(idsOf(words)[0]).To(Equal("id-0"))
		})

		It("puts every word in every position roughly equally often", func() {
			words := makeWords(3)
			counts := map[string]int{}
			const rounds = 6000
			for i := 0; i < rounds; i++ {
				counts[sel.Shuffle(words)[0].ID]++
			}
			for _, id := range idsOf(words) {
				Expect(counts[id]).To(BeNumerically("~", rounds/3, rounds/10))
			}
		})
	})

	Describe("Order", func() {
		It("keeps sequential order", func() {
			words := makeWords(6)
			Expect(idsOf(sel.Order(words, models.ModeSequential))).To(Equal(idsOf(words)))
		})

		It("shuffles random order", func() {
			words := makeWords(6)
			Expect(idsOf(sel.Order(words, models.ModeRandom))).To(ConsistOf(idsOf(words)))
		})
	})

	Describe("Cycle", func() {
		It("draws every word once before repeating", func() {
			cycle := selector.NewCycle(sel)
			drawn := map[string]bool{}
			for i := 0; i < 5; i++ {
				w, ok, err := cycle.Next(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(ok).To(BeTrue())
				Expect(drawn).NotTo(HaveKey(w.ID))
				drawn[w.ID] = true
			}
			Expect(cycle.Drawn()).To(Equal(5))

			_, ok, err := cycle.Next(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
			Expect(cycle.Drawn()).To(Equal(1))
		})

		It("reports an empty collection", func() {
			source.words = nil
			_, ok, err := selector.NewCycle(sel).Next(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())
		})

		It("passes store errors through", func() {
			source.err = fmt.Errorf("disk gone")
			_, _, err := selector.NewCycle(sel).Next(ctx)
			Expect(err).To(MatchError(ContainSubstring("disk gone")))
		})
	})
})
