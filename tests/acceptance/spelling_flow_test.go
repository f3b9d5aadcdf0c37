package acceptance_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kpauljoseph/spellbee/internal/app"
	"github.com/kpauljoseph/spellbee/internal/config"
	"github.com/kpauljoseph/spellbee/internal/speech"
	"github.com/kpauljoseph/spellbee/pkg/logger"
	"github.com/kpauljoseph/spellbee/pkg/models"
	"github.com/kpauljoseph/spellbee/tests/acceptance"
)

type mutedSpeaker struct{}

func (mutedSpeaker) Init(context.Context) error { return nil }
func (mutedSpeaker) Speak(context.Context, string, speech.Options) error { return nil }
func (mutedSpeaker) Stop() {}
func (mutedSpeaker) ListVoices(context.Context) ([]speech.Voice, error) { return nil, nil }
func (mutedSpeaker) IsAvailable() bool { return true }
func (mutedSpeaker) Dispose() {}

var _ = Describe("SpellBee End-to-End", Ordered, func() {
	var (
		ctx        context.Context
		listDir    string
		dataDir    string
		testLogger *logger.Logger
	)

	openApp := func(dbName string) *app.App {
		cfg, err := config.Load("")
		Expect(err).NotTo(HaveOccurred())
		cfg.Database.Path = filepath.Join(dataDir, dbName)
		cfg.OCR.Disabled = true

		a, err := app.New(ctx, cfg, testLogger, app.WithSpeaker(mutedSpeaker{}))
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(a.Close)
		return a
	}

	BeforeAll(func() {
		ctx = context.Background()
		testLogger = logger.New(logger.WithOutput(GinkgoWriter), logger.WithPrefix("[test] "))
		dataDir = GinkgoT().TempDir()
		listDir = GinkgoT().TempDir()

		Expect(os.MkdirAll(filepath.Join(listDir, "term1"), 0755)).To(Succeed())
		Expect(acceptance.WritePDF(filepath.Join(listDir, "term1", "week1.pdf"), [][]string{
			{"Spelling Words", "Beautiful necessary", "Page 1"},
			{"rhythm separate", "Page 2"},
		})).To(Succeed())
		Expect(acceptance.WritePDF(filepath.Join(listDir, "term1", "weekly-homework_3.pdf"), [][]string{{}})).To(Succeed())
		Expect(os.WriteFile(filepath.Join(listDir, "extra.txt"), []byte("Queue\nnecessary\n"), 0644)).To(Succeed())
	})

	It("imports a folder of word lists", Label("happy-path"), func() {
		a := openApp("words.db")

		By("Extracting the text layer of a multi-page PDF")
		result, err := a.ExtractFile(ctx, filepath.Join(listDir, "term1", "week1.pdf"))
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Metadata.Method).To(Equal(models.MethodTextExtraction))
		Expect(result.Metadata.PageCount).To(Equal(2))
		Expect(result.Words).To(ContainElements("beautiful", "necessary", "rhythm", "separate"))

		By("Falling back to the file name for a PDF without text")
		blank, err := a.ExtractFile(ctx, filepath.Join(listDir, "term1", "weekly-homework_3.pdf"))
		Expect(err).NotTo(HaveOccurred())
		Expect(blank.Metadata.Method).To(Equal(models.MethodFilename))
		Expect(blank.Words).To(Equal([]string{"homework", "weekly"}))

		By("Importing the whole directory")
		report, err := a.ImportDirectory(ctx, listDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(report.Failed).To(BeZero())
		Expect(report.Files).To(HaveLen(3))
		Expect(report.Duplicates).To(Equal(1))

		sources, err := a.Words.ListSources(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(sources).To(ConsistOf("extra.txt", "term1/week1.pdf", "term1/weekly-homework_3.pdf"))

		queue, err := a.Words.GetByKey(ctx, "queue")
		Expect(err).NotTo(HaveOccurred())
		Expect(queue.SourceList).To(Equal("extra.txt"))
	})

	It("practices and carries progress through an export", func() {
		a := openApp("words.db")

		session, err := a.NewPractice(ctx, models.ModeSequential)
		Expect(err).NotTo(HaveOccurred())
		Expect(session.Start(ctx)).To(Succeed())

		prompt, err := session.Next(ctx)
		Expect(err).NotTo(HaveOccurred())
		_, err = session.Submit(ctx, prompt.Word.Text)
		Expect(err).NotTo(HaveOccurred())
		_, err = session.Finish(ctx)
		Expect(err).NotTo(HaveOccurred())

		var exported bytes.Buffer
		n, err := a.Transfer.WriteJSON(ctx, &exported)
		Expect(err).NotTo(HaveOccurred())

		By("Importing into an empty collection")
		fresh := openApp("copy.db")
		res, err := fresh.Transfer.ReadJSON(ctx, &exported)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Imported).To(Equal(n))

		practiced, err := fresh.Words.GetByKey(ctx, prompt.Word.Key)
		Expect(err).NotTo(HaveOccurred())
		Expect(practiced.Stats.Correct).To(Equal(1))
		Expect(practiced.Stats.NextDue).NotTo(BeNil())
		Expect(practiced.Stats.NextDue.After(time.Now())).To(BeTrue())

		due, err := fresh.Selector.PickDue(ctx, time.Now())
		Expect(err).NotTo(HaveOccurred())
		Expect(due).To(HaveLen(n - 1))
	})
})
