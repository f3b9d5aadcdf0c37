package speech_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kpauljoseph/spellbee/internal/speech"
)

const voicesTable = `Pty Language       Age/Gender VoiceName          File                 Other Languages
 5  af              --/M      Afrikaans          gmw/af
 5  en-gb           --/M      English_(Great_Britain) gmw/en        (en 2)
 2  en-us           --/M      English_(America)  gmw/en-US            (en 3)
 5  fr-fr           --/M      French_(France)    roa/fr
`

var _ = Describe("ESpeak", func() {
	It("parses the voice table", func() {
		voices := speech.ParseVoices([]byte(voicesTable))
		Expect(voices).To(HaveLen(4))
		Expect(voices[1]).To(Equal(speech.Voice{Language: "en-gb", Name: "English_(Great_Britain)"}))
	})

	It("keeps only English voices", func() {
		english := speech.FilterEnglish(speech.ParseVoices([]byte(voicesTable)))
		Expect(english).To(HaveLen(2))
		Expect(english[0].Language).To(Equal("en-gb"))
		Expect(english[1].Language).To(Equal("en-us"))
	})

	Context("when the engine is missing", func() {
		var e *speech.ESpeak

		BeforeEach(func() {
			e = speech.NewESpeak("spellbee-no-such-speech-engine", "en", nil)
		})

		It("fails to initialise", func() {
			Expect(e.Init(context.Background())).To(MatchError(speech.ErrUnavailable))
			Expect(e.IsAvailable()).To(BeFalse())
		})

		It("refuses to speak", func() {
			err := e.Speak(context.Background(), "hello", speech.Options{Rate: 1, Volume: 1})
			Expect(err).To(MatchError(speech.ErrUnavailable))
		})

		It("can be stopped and disposed safely", func() {
			e.Stop()
			e.Dispose()
			Expect(e.IsAvailable()).To(BeFalse())
		})
	})

	Context("while a word is being spoken", func() {
		var e *speech.ESpeak

		BeforeEach(func() {
			if runtime.GOOS == "windows" {
				Skip("needs a POSIX shell")
			}
			script := "#!/bin/sh\n" +
				"if [ \"$1\" = \"--voices\" ]; then\n" +
				"cat <<'EOF'\n" + voicesTable + "EOF\n" +
				"exit 0\n" +
				"fi\n" +
				"exec sleep 10\n"
			path := filepath.Join(GinkgoT().TempDir(), "slow-speech")
			Expect(os.WriteFile(path, []byte(script), 0755)).To(Succeed())

			e = speech.NewESpeak(path, "en", nil)
			Expect(e.Init(context.Background())).To(Succeed())
			Expect(e.IsAvailable()).To(BeTrue())
		})

		It("returns quietly when stopped", func() {
			done := make(chan error, 1)
			go func() {
				done <- e.Speak(context.Background(), "rhythm", speech.Options{Rate: 1, Volume: 1})
			}()
			time.Sleep(100 * time.Millisecond)
			e.Stop()
			Eventually(done, 5*time.Second).Should(Receive(BeNil()))
		})

		It("returns the error of an expired context", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()
			err := e.Speak(ctx, "rhythm", speech.Options{Rate: 1, Volume: 1})
			Expect(err).To(MatchError(context.DeadlineExceeded))
		})

		It("returns the error of a cancelled context", func() {
			ctx, cancel := context.WithCancel(context.Background())
			time.AfterFunc(100*time.Millisecond, cancel)
			err := e.Speak(ctx, "rhythm", speech.Options{Rate: 1, Volume: 1})
			Expect(err).To(MatchError(context.Canceled))
		})
	})

	It("wraps engine failures with a reason", func() {
		err := error(&speech.Error{Reason: "audio device busy", Err: errors.New("exit status 1")})
		var speechErr *speech.Error
		Expect(errors.As(err, &speechErr)).To(BeTrue())
		Expect(speechErr.Reason).To(Equal("audio device busy"))
		Expect(err.Error()).To(ContainSubstring("audio device busy"))
	})
})
