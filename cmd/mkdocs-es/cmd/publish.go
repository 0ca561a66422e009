package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tuenti/mkdocs-elasticsearch/internal/config"
	"github.com/tuenti/mkdocs-elasticsearch/internal/lock"
	"github.com/tuenti/mkdocs-elasticsearch/internal/pipeline"
	"github.com/tuenti/mkdocs-elasticsearch/internal/schema"
	"github.com/tuenti/mkdocs-elasticsearch/internal/site"
	"github.com/tuenti/mkdocs-elasticsearch/internal/source"
)

var (
	publishDirty       bool
	publishStrict      bool
	publishSearchIndex string
	publishSiteDir     string
	publishSiteURL     string
	publishFromStorage bool
	publishNoWait      bool
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Index a documentation build and switch the alias to it",
	Long: `Publish the search entries of one documentation build.

The entries come from the first configured source:
  --search-index   search_index.json written by mkdocs
  --from-storage   search_index.json uploaded to S3/MinIO (storage.*)
  --site-dir       a built site directory, parsed page by page
  --site-url       a served site, crawled from its root

A failed build never touches the index searchers are using. Failures are
logged and the command exits 0 unless --strict is given.

Examples:
  mkdocs-es publish --search-index site/search/search_index.json
  mkdocs-es publish --site-dir site --strict
  MKDOCS_ES_ELASTICSEARCH_INDEX=handbook mkdocs-es publish --from-storage`,
	RunE: runPublish,
}

func init() {
	rootCmd.AddCommand(publishCmd)

	publishCmd.Flags().BoolVar(&publishDirty, "dirty", false, "treat the build as an incremental rebuild and skip indexing")
	publishCmd.Flags().BoolVar(&publishStrict, "strict", false, "exit with an error when indexing fails")
	publishCmd.Flags().StringVar(&publishSearchIndex, "search-index", "", "path to search_index.json")
	publishCmd.Flags().StringVar(&publishSiteDir, "site-dir", "", "built site directory")
	publishCmd.Flags().StringVar(&publishSiteURL, "site-url", "", "served site URL to crawl")
	publishCmd.Flags().BoolVar(&publishFromStorage, "from-storage", false, "read search_index.json from S3/MinIO")
	publishCmd.Flags().BoolVar(&publishNoWait, "no-wait", false, "fail instead of waiting when build.lock_file is held")
}

func runPublish(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := GetConfig()
	applyPublishFlags(cmd, &cfg)

	src, err := newSource(cfg)
	if err != nil {
		return err
	}
	s, err := schema.Lookup(cfg.Elasticsearch.Schema)
	if err != nil {
		return err
	}
	esClient, err := newESClient(cfg)
	if err != nil {
		return err
	}

	if cfg.Build.LockFile != "" {
		buildLock := lock.New(cfg.Build.LockFile)
		if err := acquireBuildLock(ctx, buildLock, publishNoWait); err != nil {
			return err
		}
		defer func() {
			if err := buildLock.Release(); err != nil {
				slog.Warn("failed to release build lock", "error", err)
			}
		}()
	}

	p := pipeline.New(esClient, pipeline.Config{Index: cfg.Elasticsearch.Index, Schema: s})
	report := p.Run(ctx, publishDirty, src.Entries)
	pipeline.LogReport(report)

	if report.Published() {
		fmt.Printf("Published %s -> %s (%d pages, %d sections, %d pruned) in %v\n",
			report.Index, report.Generation, report.Parents, report.Children, len(report.Pruned), report.Duration)
	}
	if cfg.Build.Strict {
		return report.Error()
	}
	return nil
}

// acquireBuildLock waits for the lock, or fails at once when noWait is set.
func acquireBuildLock(ctx context.Context, buildLock *lock.BuildLock, noWait bool) error {
	if noWait {
		if err := buildLock.TryAcquire(); err != nil {
			return fmt.Errorf("another build is publishing (%s): %w", buildLock.Path(), err)
		}
		return nil
	}
	slog.Debug("waiting for build lock", "path", buildLock.Path())
	return buildLock.Acquire(ctx)
}

func applyPublishFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("strict") {
		cfg.Build.Strict = publishStrict
	}
	// An explicit source flag replaces whatever the config selected.
	if flags.Changed("search-index") || flags.Changed("site-dir") || flags.Changed("site-url") || flags.Changed("from-storage") {
		cfg.Site.SearchIndex, cfg.Site.Dir, cfg.Site.URL = publishSearchIndex, publishSiteDir, publishSiteURL
		if !publishFromStorage {
			cfg.Storage.Endpoint = ""
		}
	}
}

// newSource picks the entry source from the configuration.
func newSource(cfg config.Config) (source.Source, error) {
	parser := site.Parser{TextFormat: cfg.Site.TextFormat}

	switch {
	case cfg.Site.SearchIndex != "":
		return source.File(cfg.Site.SearchIndex), nil
	case cfg.Storage.Endpoint != "":
		storageClient, err := newStorageClient(cfg)
		if err != nil {
			return nil, err
		}
		return source.Object{Store: storageClient, Key: cfg.Storage.Key}, nil
	case cfg.Site.Dir != "":
		return site.Dir{Root: cfg.Site.Dir, Exclude: cfg.Site.Exclude, Parser: parser}, nil
	case cfg.Site.URL != "":
		return site.NewCrawler(cfg.Site.URL, cfg.Site.Exclude, parser, site.CrawlerConfig{
			Delay:     cfg.Crawler.Delay,
			MaxDepth:  cfg.Crawler.MaxDepth,
			UserAgent: cfg.Crawler.UserAgent,
			Timeout:   cfg.Crawler.Timeout,
		}), nil
	}
	return nil, errors.New("no document source configured: set site.search_index, storage.endpoint, site.dir or site.url")
}
