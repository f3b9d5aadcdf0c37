package extract_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kpauljoseph/spellbee/internal/extract"
)

var _ = Describe("Lines", func() {
	Describe("GroupLines", func() {
		It("joins runs sharing a rounded row from left to right", func() {
			lines := extract.GroupLines([]extract.TextRun{
				{Text: "world", X: 50, Y: 10.2},
				{Text: "next", X: 0, Y: 30},
				{Text: "hello", X: 5, Y: 9.8},
				{Text: "   ", X: 1, Y: 50},
			})
			Expect(lines).To(Equal([]string{"hello world", "next"}))
		})

		It("returns nothing for an empty page", func() {
			Expect(extract.GroupLines(nil)).To(BeEmpty())
		})
	})

	DescribeTable("IsNoiseLine",
		func(line string, noise bool) {
			Expect(extract.IsNoiseLine(line)).To(Equal(noise))
		},
		Entry("single character", "x", true),
		Entry("blank", "   ", true),
		Entry("bare page number", "12", true),
		Entry("dashed page number", "- 3 -", true),
		Entry("page of total", "Page 4 of 10", true),
		Entry("chapter number", "Chapter 7", true),
		Entry("roman chapter", "Chapter IV: Animals", true),
		Entry("copyright word", "Copyright 2020 Acme Press", true),
		Entry("copyright sign", "© Acme Press", true),
		Entry("rights reserved", "All rights reserved.", true),
		Entry("numeric date", "12/05/2023", true),
		Entry("month date", "March 3, 2024", true),
		Entry("day month date", "3rd March 2024", true),
		Entry("contents heading", "Table of Contents", true),
		Entry("dotted leader", "Introduction ........ 5", true),
		Entry("content line", "Beautiful butterflies", false),
		Entry("page as a word", "Page turner words", false),
		Entry("chapter as a word", "Chapterhouse", false),
	)

	Describe("Tokenize", func() {
		It("folds ligatures and curly apostrophes", func() {
			Expect(extract.Tokenize("ﬁsh don’t co-op 42")).To(Equal([]string{"fish", "don't", "co-op"}))
		})

		It("splits letters from digits", func() {
			Expect(extract.Tokenize("test123 abc")).To(Equal([]string{"test", "abc"}))
		})
	})
})
