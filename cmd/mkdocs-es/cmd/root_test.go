package cmd

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuenti/mkdocs-elasticsearch/internal/config"
	"github.com/tuenti/mkdocs-elasticsearch/internal/lock"
	"github.com/tuenti/mkdocs-elasticsearch/internal/site"
	"github.com/tuenti/mkdocs-elasticsearch/internal/source"
)

func TestEnvName(t *testing.T) {
	assert.Equal(t, "MKDOCS_ES_ELASTICSEARCH_ADDRESSES", envName("elasticsearch.addresses"))
	assert.Equal(t, "MKDOCS_ES_BUILD_LOCK_FILE", envName("build.lock_file"))
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"404.html", "search/"}, splitList(" 404.html, ,search/ "))
	assert.Empty(t, splitList(""))
}

func TestNewSource(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		check  func(t *testing.T, src source.Source)
	}{
		{
			name:   "search index file first",
			mutate: func(c *config.Config) { c.Site.SearchIndex = "site/search/search_index.json"; c.Site.Dir = "site" },
			check: func(t *testing.T, src source.Source) {
				assert.Equal(t, source.File("site/search/search_index.json"), src)
			},
		},
		{
			name:   "object storage",
			mutate: func(c *config.Config) { c.Storage.Endpoint = "localhost:9000"; c.Site.Dir = "site" },
			check: func(t *testing.T, src source.Source) {
				obj, ok := src.(source.Object)
				require.True(t, ok, "got %T", src)
				assert.Equal(t, "search/search_index.json", obj.Key)
			},
		},
		{
			name:   "built site directory",
			mutate: func(c *config.Config) { c.Site.Dir = "site"; c.Site.TextFormat = config.TextMarkdown },
			check: func(t *testing.T, src source.Source) {
				dir, ok := src.(site.Dir)
				require.True(t, ok, "got %T", src)
				assert.Equal(t, "site", dir.Root)
				assert.Equal(t, config.TextMarkdown, dir.Parser.TextFormat)
			},
		},
		{
			name:   "served site",
			mutate: func(c *config.Config) { c.Site.URL = "https://docs.example.com/" },
			check: func(t *testing.T, src source.Source) {
				crawler, ok := src.(*site.Crawler)
				require.True(t, ok, "got %T", src)
				assert.Equal(t, "https://docs.example.com/", crawler.URL)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Defaults()
			tt.mutate(&cfg)
			src, err := newSource(cfg)
			require.NoError(t, err)
			tt.check(t, src)
		})
	}
}

func TestNewSource_NoneConfigured(t *testing.T) {
	_, err := newSource(config.Defaults())
	assert.Error(t, err)
}

func TestAcquireBuildLock_NoWait(t *testing.T) {
	path := filepath.Join(t.TempDir(), "publish.lock")
	holder := lock.New(path)
	require.NoError(t, holder.TryAcquire())
	t.Cleanup(func() { holder.Release() })

	// Given another build holds the lock, --no-wait fails immediately
	err := acquireBuildLock(context.Background(), lock.New(path), true)
	assert.ErrorIs(t, err, lock.ErrHeld)

	// Once released, the next build takes it without waiting
	require.NoError(t, holder.Release())
	next := lock.New(path)
	require.NoError(t, acquireBuildLock(context.Background(), next, true))
	require.NoError(t, next.Release())
}
