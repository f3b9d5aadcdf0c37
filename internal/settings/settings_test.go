package settings_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kpauljoseph/spellbee/internal/settings"
	"github.com/kpauljoseph/spellbee/internal/store"
	"github.com/kpauljoseph/spellbee/pkg/models"
)

var _ = Describe("Service", func() {
	var (
		ctx     context.Context
		service *settings.Service
	)

	BeforeEach(func() {
		ctx = context.Background()
		db, err := store.Open(ctx, store.MemoryPath, nil)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(db.Close)
		service = settings.NewService(db.Settings(), nil)
	})

	It("returns defaults before anything is saved", func() {
		s, err := service.Load(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(s).To(Equal(settings.Defaults()))
		Expect(s.Voice.Rate).To(Equal(0.9))
		Expect(s.Practice.ShowDefinitions).To(BeTrue())
	})

	It("persists saved settings", func() {
		s := settings.Defaults()
		s.Voice.Rate = 0.6
		s.Practice.CaseSensitive = true
		s.Practice.Mode = models.ModeSpacedRepetition

		saved, err := service.Save(ctx, s)
		Expect(err).NotTo(HaveOccurred())
		Expect(saved.Updated).NotTo(BeZero())

		loaded, err := service.Load(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded.Voice.Rate).To(Equal(0.6))
		Expect(loaded.Practice.CaseSensitive).To(BeTrue())
		Expect(loaded.Practice.Mode).To(Equal(models.ModeSpacedRepetition))
	})

	DescribeTable("rejects out of range values",
		func(mutate func(*models.Settings)) {
			s := settings.Defaults()
			mutate(&s)
			_, err := service.Save(ctx, s)
			Expect(err).To(MatchError(settings.ErrInvalid))

			loaded, err := service.Load(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(Equal(settings.Defaults()))
		},
		Entry("zero rate", func(s *models.Settings) { s.Voice.Rate = 0 }),
		Entry("loud volume", func(s *models.Settings) { s.Voice.Volume = 1.5 }),
		Entry("high pitch", func(s *models.Settings) { s.Voice.Pitch = 3 }),
		Entry("unknown mode", func(s *models.Settings) { s.Practice.Mode = "alphabetical" }),
	)
})
