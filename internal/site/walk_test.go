package site

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuenti/mkdocs-elasticsearch/internal/config"
)

func writePage(t *testing.T, root, rel, body string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func buildSite(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writePage(t, root, "index.html", `<title>Home</title><div role="main"><p>Welcome</p></div>`)
	writePage(t, root, "a/b/index.html", `<title>B</title><div role="main"><h2 id="x">X</h2><p>inside</p></div>`)
	writePage(t, root, "a/c.html", `<title>C</title><div role="main"><p>flat</p></div>`)
	writePage(t, root, "404.html", `<title>Missing</title>`)
	writePage(t, root, "search/index.html", `<title>Search</title>`)
	writePage(t, root, "assets/style.css", `body {}`)
	writePage(t, root, "sitemap.xml", `<urlset/>`)
	return root
}

func TestDir_Entries(t *testing.T) {
	dir := Dir{Root: buildSite(t), Exclude: config.Defaults().Site.Exclude, Workers: 2}

	entries, err := dir.Entries(context.Background())
	require.NoError(t, err)

	var locations []string
	for _, e := range entries {
		locations = append(locations, e.Location)
	}
	assert.Equal(t, []string{"a/b/", "a/b/#x", "a/c.html", ""}, locations)
	assert.Equal(t, "inside", entries[1].Text)
	assert.Equal(t, "Home", entries[3].Title)
}

func TestDir_OrderIndependentOfWorkers(t *testing.T) {
	root := buildSite(t)
	exclude := config.Defaults().Site.Exclude

	serial, err := Dir{Root: root, Exclude: exclude, Workers: 1}.Entries(context.Background())
	require.NoError(t, err)
	parallel, err := Dir{Root: root, Exclude: exclude, Workers: 8}.Entries(context.Background())
	require.NoError(t, err)

	assert.Equal(t, serial, parallel)
}

func TestDir_MissingRoot(t *testing.T) {
	_, err := Dir{Root: filepath.Join(t.TempDir(), "site")}.Entries(context.Background())
	assert.Error(t, err)
}

func TestDir_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Dir{Root: buildSite(t)}.Entries(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
