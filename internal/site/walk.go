package site

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/tuenti/mkdocs-elasticsearch/pkg/models"
)

// Dir reads search entries from a built site directory.
type Dir struct {
	Root    string
	Exclude []string
	Parser  Parser
	// Workers bounds concurrent page parsing; zero means GOMAXPROCS.
	Workers int
}

// Entries parses every HTML page under Root. Pages come out in path order,
// each followed by its sections.
func (d Dir) Entries(ctx context.Context) ([]models.SearchEntry, error) {
	pages, err := d.pages()
	if err != nil {
		return nil, err
	}
	slog.Debug("reading built site", "root", d.Root, "pages", len(pages))

	workers := d.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([][]models.SearchEntry, len(pages))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, rel := range pages {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			entries, err := d.parse(rel)
			if err != nil {
				return err
			}
			results[i] = entries
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var entries []models.SearchEntry
	for _, r := range results {
		entries = append(entries, r...)
	}
	return entries, nil
}

func (d Dir) parse(rel string) ([]models.SearchEntry, error) {
	f, err := os.Open(filepath.Join(d.Root, filepath.FromSlash(rel)))
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	defer f.Close()
	return d.Parser.Parse(Location(rel), f)
}

// pages lists slash-separated HTML paths relative to Root in lexical order.
func (d Dir) pages() ([]string, error) {
	var pages []string
	err := filepath.WalkDir(d.Root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(d.Root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if entry.IsDir() {
			if rel != "." && Excluded(rel+"/", d.Exclude) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(rel, ".html") && !Excluded(rel, d.Exclude) {
			pages = append(pages, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk site %s: %w", d.Root, err)
	}
	return pages, nil
}
