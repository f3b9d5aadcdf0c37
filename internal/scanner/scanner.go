package scanner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kpauljoseph/spellbee/internal/extract"
	"github.com/kpauljoseph/spellbee/pkg/logger"
)

var ErrNoDocuments = errors.New("no supported documents found")

// Found is a document discovered under the scanned root. RelativePath is
// what imported words are labelled with.
type Found struct {
	AbsolutePath string
	RelativePath string
}

type DirectoryScanner struct {
	logger *logger.Logger
}

func New(log *logger.Logger) *DirectoryScanner {
	return &DirectoryScanner{logger: logger.OrDiscard(log)}
}

// FindDocuments walks dir and returns every file the extraction pipeline can
// read, sorted by relative path. Hidden files and directories are skipped.
func (s *DirectoryScanner) FindDocuments(ctx context.Context, dir string) ([]Found, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", dir, err)
	}

	var found []Found
	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			return fmt.Errorf("error accessing path %s: %w", path, err)
		}

		hidden := path != root && strings.HasPrefix(d.Name(), ".")
		if d.IsDir() {
			if hidden {
				return filepath.SkipDir
			}
			s.logger.Debug("Scanning directory: %s", path)
			return nil
		}
		if hidden || !extract.IsSupported(path) {
			return nil
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			relPath = path
		}
		found = append(found, Found{AbsolutePath: path, RelativePath: filepath.ToSlash(relPath)})
		s.logger.Debug("Found document (%d): %s", len(found), relPath)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(found) == 0 {
		return nil, fmt.Errorf("%w in %s or its subdirectories", ErrNoDocuments, dir)
	}

	sort.Slice(found, func(i, j int) bool { return found[i].RelativePath < found[j].RelativePath })
	return found, nil
}
