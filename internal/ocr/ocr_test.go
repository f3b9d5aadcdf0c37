package ocr_test

import (
	"context"
	"image"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kpauljoseph/spellbee/internal/ocr"
)

var _ = Describe("Tesseract", func() {
	var t *ocr.Tesseract

	BeforeEach(func() {
		t = ocr.NewTesseract(ocr.Options{Command: "spellbee-no-such-ocr-engine", StartupTimeout: time.Second}, nil)
	})

	It("reports a missing engine as unavailable", func() {
		Expect(t.Init(context.Background())).To(MatchError(ocr.ErrUnavailable))
	})

	It("does not recognise without an engine", func() {
		_, err := t.Recognize(context.Background(), image.NewGray(image.Rect(0, 0, 2, 2)))
		Expect(err).To(MatchError(ocr.ErrUnavailable))
	})

	It("can be disposed before use", func() {
		t.Dispose()
		Expect(t.Init(context.Background())).To(HaveOccurred())
	})
})
