package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/kpauljoseph/spellbee/internal/app"
	"github.com/kpauljoseph/spellbee/internal/practice"
	"github.com/kpauljoseph/spellbee/internal/store"
	"github.com/kpauljoseph/spellbee/pkg/models"
)

var errUsage = errors.New("usage")

func newFlags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	return fs
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printWords(words []models.Word) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tWORD\tSOURCE\tSEEN\tCORRECT\tWRONG\tNEXT DUE")
	for _, w := range words {
		due := "-"
		if w.Stats.NextDue != nil {
			due = w.Stats.NextDue.Local().Format("2006-01-02")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			w.ID, w.Text, w.SourceList, w.Stats.Seen, w.Stats.Correct, w.Stats.Wrong, due)
	}
	tw.Flush()
}

func runExtract(ctx context.Context, a *app.App, args []string) error {
	fs := newFlags("extract")
	add := fs.Bool("add", false, "add the extracted words to the collection")
	asJSON := fs.Bool("json", false, "print results as JSON")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() == 0 {
		return errUsage
	}

	for _, path := range fs.Args() {
		var (
			result models.ExtractionResult
			err    error
		)
		if *add {
			var added store.AddResult
			result, added, err = a.AddFile(ctx, path)
			if err == nil {
				fmt.Fprintf(os.Stderr, "%s: %d new, %d already known\n", path, added.AddedCount, added.DuplicateCount)
			}
		} else {
			result, err = a.ExtractFile(ctx, path)
		}
		if err != nil {
			return err
		}

		if *asJSON {
			if err := printJSON(result); err != nil {
				return err
			}
			continue
		}
		m := result.Metadata
		fmt.Printf("%s (%d pages, %s)\n", m.Filename, m.PageCount, m.Method)
		if m.Note != "" {
			fmt.Printf("  %s\n", m.Note)
		}
		fmt.Printf("  %s\n", strings.Join(result.Words, ", "))
	}
	return nil
}

func runAdd(ctx context.Context, a *app.App, args []string) error {
	fs := newFlags("add")
	source := fs.String("source", "", "list the words belong to")
	if err := fs.Parse(args); err != nil || fs.NArg() == 0 {
		return errUsage
	}
	res, err := a.Words.AddWords(ctx, fs.Args(), *source, time.Now())
	if err != nil {
		return err
	}
	fmt.Printf("Added %d words, %d already known\n", res.AddedCount, res.DuplicateCount)
	return nil
}

func runList(ctx context.Context, a *app.App, args []string) error {
	fs := newFlags("list")
	source := fs.String("source", "", "only words from this list")
	asJSON := fs.Bool("json", false, "print as JSON")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	var (
		words []models.Word
		err   error
	)
	if *source != "" {
		words, err = a.Words.GetBySource(ctx, *source)
	} else {
		words, err = a.Words.GetAll(ctx)
	}
	if err != nil {
		return err
	}
	if *asJSON {
		return printJSON(words)
	}
	printWords(words)
	return nil
}

func runSearch(ctx context.Context, a *app.App, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	words, err := a.Words.Search(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}
	printWords(words)
	return nil
}

func runDelete(ctx context.Context, a *app.App, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	for _, id := range args {
		if err := a.Words.Delete(ctx, id); err != nil {
			return fmt.Errorf("%s: %w", id, err)
		}
	}
	fmt.Printf("Deleted %d words\n", len(args))
	return nil
}

func runDeleteSource(ctx context.Context, a *app.App, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	n, err := a.Words.DeleteBySource(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Printf("Deleted %d words from %s\n", n, args[0])
	return nil
}

func runSources(ctx context.Context, a *app.App, _ []string) error {
	sources, err := a.Words.ListSources(ctx)
	if err != nil {
		return err
	}
	for _, s := range sources {
		fmt.Println(s)
	}
	return nil
}

func runDue(ctx context.Context, a *app.App, _ []string) error {
	words, err := a.Selector.PickDue(ctx, time.Now())
	if err != nil {
		return err
	}
	printWords(words)
	return nil
}

func runStats(ctx context.Context, a *app.App, _ []string) error {
	s, err := a.Words.Summary(ctx, time.Now())
	if err != nil {
		return err
	}
	fmt.Printf("Words:    %d in %d lists\n", s.Total, s.Sources)
	fmt.Printf("Due now:  %d\n", s.Due)
	fmt.Printf("Attempts: %d (%d correct, %d wrong)\n", s.Seen, s.Correct, s.Wrong)
	fmt.Printf("Accuracy: %.0f%%\n", s.Accuracy()*100)

	recent, err := a.DB.Sessions().Recent(ctx, 5)
	if err != nil {
		return err
	}
	if len(recent) > 0 {
		fmt.Println("\nRecent sessions:")
		for _, r := range recent {
			fmt.Printf("  %s  %d/%d correct (%.0f%%), best streak %d\n",
				r.StartTime.Local().Format("2006-01-02 15:04"), r.WordsCorrect, r.WordsAttempted, r.Accuracy(), r.MaxStreak)
		}
	}
	return nil
}

func runPractice(ctx context.Context, a *app.App, args []string) error {
	fs := newFlags("practice")
	mode := fs.String("mode", "", "random, sequential or spaced-repetition (default: saved setting)")
	count := fs.Int("count", 0, "stop after this many words (0 for no limit)")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	session, err := a.NewPractice(ctx, models.PracticeMode(*mode))
	if err != nil {
		return err
	}
	if err := session.Start(ctx); err != nil {
		return err
	}
	fmt.Println("Type the word you hear. :r repeats, :s skips, :q quits.")
	showDefs := session.Settings().Practice.ShowDefinitions

	lines := readLines(os.Stdin)
	done := 0
loop:
	for *count == 0 || done < *count {
		prompt, err := session.Next(ctx)
		if err != nil {
			return err
		}
		if prompt.SpeechErr != nil {
			fmt.Printf("(could not speak the word: %v)\n", prompt.SpeechErr)
		}
		if m := prompt.Word.Metadata; showDefs && m != nil && m.Definition != "" {
			fmt.Printf("Definition: %s\n", m.Definition)
		}

		for {
			fmt.Print("> ")
			var line string
			select {
			case <-ctx.Done():
				break loop
			case l, ok := <-lines:
				if !ok {
					break loop
				}
				line = strings.TrimSpace(l)
			}

			switch line {
			case ":q":
				break loop
			case ":r":
				if err := session.Repeat(ctx); err != nil {
					fmt.Printf("(could not speak the word: %v)\n", err)
				}
				continue
			case ":s":
				if err := session.Skip(ctx); err != nil {
					return err
				}
				fmt.Printf("Skipped: %s\n", prompt.Word.Text)
			default:
				res, err := session.Submit(ctx, line)
				if errors.Is(err, practice.ErrEmptyAnswer) {
					continue
				}
				if err != nil {
					return err
				}
				if res.Correct {
					fmt.Printf("Correct! Streak %d\n", res.Streak)
				} else {
					fmt.Printf("Not quite: %s\n", res.Expected)
				}
			}
			break
		}
		done++
	}

	record, err := session.Finish(context.WithoutCancel(ctx))
	if err != nil {
		return err
	}
	fmt.Printf("\n%d/%d correct, best streak %d\n", record.WordsCorrect, record.WordsAttempted, record.MaxStreak)
	return nil
}

func readLines(r io.Reader) <-chan string {
	ch := make(chan string)
	go func() {
		defer close(ch)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			ch <- sc.Text()
		}
	}()
	return ch
}

func runSettings(ctx context.Context, a *app.App, args []string) error {
	s, err := a.Settings.Load(ctx)
	if err != nil {
		return err
	}

	fs := newFlags("settings")
	fs.Float64Var(&s.Voice.Rate, "rate", s.Voice.Rate, "speech rate")
	fs.Float64Var(&s.Voice.Pitch, "pitch", s.Voice.Pitch, "speech pitch")
	fs.Float64Var(&s.Voice.Volume, "volume", s.Voice.Volume, "speech volume")
	fs.StringVar(&s.Voice.PreferredVoice, "voice", s.Voice.PreferredVoice, "preferred voice name")
	fs.BoolVar(&s.Practice.CaseSensitive, "case-sensitive", s.Practice.CaseSensitive, "compare answers case-sensitively")
	fs.BoolVar(&s.Practice.SlowPlayback, "slow", s.Practice.SlowPlayback, "speak words slowly")
	fs.BoolVar(&s.Practice.ShowDefinitions, "definitions", s.Practice.ShowDefinitions, "show definitions while practicing")
	mode := fs.String("mode", string(s.Practice.Mode), "practice mode")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	s.Practice.Mode = models.PracticeMode(*mode)

	if fs.NFlag() > 0 {
		if s, err = a.Settings.Save(ctx, s); err != nil {
			return err
		}
	}
	return printJSON(s)
}

func runVoices(ctx context.Context, a *app.App, _ []string) error {
	voices, err := a.Voices(ctx)
	if err != nil {
		return err
	}
	for _, v := range voices {
		fmt.Printf("%s\t%s\n", v.Name, v.Language)
	}
	return nil
}

func runExport(ctx context.Context, a *app.App, args []string) error {
	fs := newFlags("export")
	out := fs.String("o", "", "output file (default stdout)")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	w := io.Writer(os.Stdout)
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	n, err := a.Transfer.WriteJSON(ctx, w)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Exported %d words\n", n)
	return nil
}

func runImport(ctx context.Context, a *app.App, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	res, err := a.Transfer.ReadJSON(ctx, f)
	if err != nil {
		return err
	}
	fmt.Printf("Imported %d new words, updated %d, skipped %d\n", res.Imported, res.Updated, res.Skipped)
	return nil
}

func runImportDir(ctx context.Context, a *app.App, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	report, err := a.ImportDirectory(ctx, args[0])
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tMETHOD\tWORDS\tNEW\tKNOWN")
	for _, f := range report.Files {
		if f.Err != nil {
			fmt.Fprintf(tw, "%s\terror: %v\t\t\t\n", f.Path, f.Err)
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\n", f.Path, f.Method, f.Words, f.Added, f.Duplicates)
	}
	tw.Flush()
	fmt.Printf("\n%d new words, %d already known, %d files failed\n", report.Added, report.Duplicates, report.Failed)
	return nil
}

func runClear(ctx context.Context, a *app.App, args []string) error {
	fs := newFlags("clear")
	yes := fs.Bool("yes", false, "confirm deleting every word")
	if err := fs.Parse(args); err != nil || !*yes {
		return errUsage
	}
	n, err := a.Words.Clear(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Deleted %d words\n", n)
	return nil
}

func runSeed(ctx context.Context, a *app.App, _ []string) error {
	n, err := a.Words.SeedSampleWords(ctx, time.Now())
	if err != nil {
		return err
	}
	if n == 0 {
		fmt.Println("Collection is not empty, nothing seeded")
		return nil
	}
	fmt.Printf("Added %d sample words\n", n)
	return nil
}
