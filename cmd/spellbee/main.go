package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/kpauljoseph/spellbee/internal/app"
	"github.com/kpauljoseph/spellbee/internal/config"
	"github.com/kpauljoseph/spellbee/internal/extract"
	"github.com/kpauljoseph/spellbee/pkg/logger"
	"github.com/kpauljoseph/spellbee/pkg/utils"
	"github.com/kpauljoseph/spellbee/pkg/version"
)

type command struct {
	usage string
	run   func(ctx context.Context, a *app.App, args []string) error
}

var commands = map[string]command{
	"extract":       {"extract [-add] [-json] FILE...", runExtract},
	"add":           {"add [-source NAME] WORD...", runAdd},
	"list":          {"list [-source NAME] [-json]", runList},
	"search":        {"search QUERY", runSearch},
	"delete":        {"delete ID...", runDelete},
	"delete-source": {"delete-source NAME", runDeleteSource},
	"sources":       {"sources", runSources},
	"due":           {"due", runDue},
	"stats":         {"stats", runStats},
	"practice":      {"practice [-mode random|sequential|spaced-repetition] [-count N]", runPractice},
	"settings":      {"settings [-rate R] [-pitch P] [-volume V] [-voice NAME] [-mode M] [-case-sensitive] [-slow] [-definitions]", runSettings},
	"voices":        {"voices", runVoices},
	"export":        {"export [-o FILE]", runExport},
	"import":        {"import FILE", runImport},
	"import-dir":    {"import-dir DIR", runImportDir},
	"clear":         {"clear -yes", runClear},
	"seed":          {"seed", runSeed},
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: spellbee [flags] COMMAND [args]\n\nCommands:\n")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(os.Stderr, "  %s\n", commands[name].usage)
	}
	fmt.Fprintf(os.Stderr, "  version\n\nFlags:\n")
	flag.PrintDefaults()
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	dbPath := flag.String("db", "", "path to the word database (overrides config)")
	noOCR := flag.Bool("no-ocr", false, "disable OCR for scanned documents")
	verbose := flag.Bool("verbose", false, "enable verbose logging")
	debug := flag.Bool("debug", false, "enable debug mode with trace logging")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}
	name, args := flag.Arg(0), flag.Args()[1:]

	if name == "version" {
		fmt.Print(version.GetDetailedVersionInfo())
		return
	}
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", name)
		usage()
		os.Exit(2)
	}

	log := logger.New(logger.WithPrefix("[spellbee] "))

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("Error loading config: %v", err)
	}

	log.SetLevel(logger.ParseLevel(cfg.Log.Level))
	log.SetVerbose(*verbose || cfg.Log.Verbose)
	if *debug {
		log.SetLevel(logger.LevelTrace)
	}

	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = utils.GetDefaultDatabasePath()
	}
	if *noOCR {
		cfg.OCR.Disabled = true
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(ctx, cfg, log, app.WithProgress(logProgress(log)))
	if err != nil {
		log.Fatal("Error initializing: %v", err)
	}

	err = cmd.run(ctx, a, args)
	if closeErr := a.Close(); closeErr != nil {
		log.Warn("Error closing database: %v", closeErr)
	}
	if err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "Usage: spellbee %s\n", cmd.usage)
			os.Exit(2)
		}
		log.Fatal("%s: %v", name, err)
	}
}

func logProgress(log *logger.Logger) extract.ProgressFunc {
	return func(p extract.Progress) {
		switch p.Status {
		case extract.StatusStarted:
			log.Debug("%s: trying %s", p.File, p.Method)
		case extract.StatusSucceeded:
			log.Debug("%s: %s found %d words", p.File, p.Method, p.Words)
		case extract.StatusEmpty:
			log.Debug("%s: %s found nothing", p.File, p.Method)
		case extract.StatusFailed:
			log.Debug("%s: %s failed: %v", p.File, p.Method, p.Err)
		}
	}
}
