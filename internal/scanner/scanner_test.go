package scanner_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kpauljoseph/spellbee/internal/scanner"
	"github.com/kpauljoseph/spellbee/pkg/logger"
)

var _ = Describe("Scanner", func() {
	var (
		testDir    string
		testLogger *logger.Logger
		ctx        context.Context
	)

	writeFile := func(path, content string) {
		Expect(os.MkdirAll(filepath.Dir(path), 0755)).To(Succeed())
		Expect(os.WriteFile(path, []byte(content), 0644)).To(Succeed())
	}

	relPaths := func(found []scanner.Found) []string {
		var out []string
		for _, f := range found {
			out = append(out, f.RelativePath)
		}
		return out
	}

	BeforeEach(func() {
		testDir = GinkgoT().TempDir()
		testLogger = logger.New(logger.WithOutput(GinkgoWriter), logger.WithPrefix("[test] "))
		testLogger.SetLevel(logger.LevelDebug)
		ctx = context.Background()
	})

	Context("when scanning an empty directory", func() {
		It("should return an error", func() {
			s := scanner.New(testLogger)
			_, err := s.FindDocuments(ctx, testDir)
			Expect(err).To(MatchError(scanner.ErrNoDocuments))
		})
	})

	Context("when scanning a directory with mixed files", func() {
		BeforeEach(func() {
			for i := 1; i <= 3; i++ {
				writeFile(filepath.Join(testDir, fmt.Sprintf("list%d.pdf", i)), "dummy pdf content")
			}
			writeFile(filepath.Join(testDir, "words.txt"), "apple")
			writeFile(filepath.Join(testDir, "page.HTML"), "<p>zebra</p>")
			writeFile(filepath.Join(testDir, "photo.jpg"), "not a list")
			writeFile(filepath.Join(testDir, ".hidden.pdf"), "skip")
		})

		It("should find only supported documents", func() {
			s := scanner.New(testLogger)
			found, err := s.FindDocuments(ctx, testDir)

			Expect(err).NotTo(HaveOccurred())
			Expect(relPaths(found)).To(Equal([]string{"list1.pdf", "list2.pdf", "list3.pdf", "page.HTML", "words.txt"}))
			for _, f := range found {
				Expect(filepath.IsAbs(f.AbsolutePath)).To(BeTrue())
			}
		})
	})

	Context("when scanning nested directories", func() {
		BeforeEach(func() {
			writeFile(filepath.Join(testDir, "root.pdf"), "dummy pdf content")
			writeFile(filepath.Join(testDir, "week1", "nested.pdf"), "dummy pdf content")
			writeFile(filepath.Join(testDir, ".git", "ignored.txt"), "ref")
		})

		It("should label documents by their path under the root", func() {
			s := scanner.New(testLogger)
			found, err := s.FindDocuments(ctx, testDir)

			Expect(err).NotTo(HaveOccurred())
			Expect(relPaths(found)).To(Equal([]string{"root.pdf", "week1/nested.pdf"}))
			Expect(found[1].AbsolutePath).To(Equal(filepath.Join(testDir, "week1", "nested.pdf")))
		})
	})

	Context("when context is cancelled", func() {
		It("should stop scanning", func() {
			deepDir := filepath.Join(testDir, "deep", "deeper", "deepest")
			Expect(os.MkdirAll(deepDir, 0755)).To(Succeed())

			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			s := scanner.New(testLogger)
			_, err := s.FindDocuments(ctx, testDir)

			Expect(err).To(Equal(context.Canceled))
		})
	})
})
