package app

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/kpauljoseph/spellbee/pkg/models"
)

// FileReport is the outcome of importing one document.
type FileReport struct {
	Path       string
	Method     models.ExtractionMethod
	Words      int
	Added      int
	Duplicates int
	Err        error
}

type ImportReport struct {
	Files      []FileReport
	Added      int
	Duplicates int
	Failed     int
}

// ImportDirectory extracts every supported document under dir with a bounded
// number of workers, then adds the words one document at a time, labelled
// with the document's path relative to dir. A document that cannot be read
// is reported and skipped.
func (a *App) ImportDirectory(ctx context.Context, dir string) (ImportReport, error) {
	found, err := a.Scanner.FindDocuments(ctx, dir)
	if err != nil {
		return ImportReport{}, err
	}
	a.logger.Info("Found %d documents to import", len(found))

	results := make([]models.ExtractionResult, len(found))
	failures := make([]error, len(found))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.Config.Extraction.Workers)
	for i, f := range found {
		g.Go(func() error {
			res, err := a.ExtractFile(gctx, f.AbsolutePath)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				failures[i] = err
				return nil
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return ImportReport{}, err
	}

	var report ImportReport
	for i, f := range found {
		fr := FileReport{Path: f.RelativePath, Err: failures[i]}
		if fr.Err != nil {
			a.logger.Warn("Skipping %s: %v", f.RelativePath, fr.Err)
			report.Failed++
			report.Files = append(report.Files, fr)
			continue
		}

		res := results[i]
		fr.Method = res.Metadata.Method
		fr.Words = len(res.Words)
		added, err := a.Words.AddWords(ctx, res.Words, f.RelativePath, a.now())
		if err != nil {
			return report, err
		}
		fr.Added, fr.Duplicates = added.AddedCount, added.DuplicateCount
		report.Added += fr.Added
		report.Duplicates += fr.Duplicates
		report.Files = append(report.Files, fr)
		a.logger.Debug("Imported %s: %d new, %d duplicates (%s)", f.RelativePath, fr.Added, fr.Duplicates, fr.Method)
	}
	return report, nil
}
