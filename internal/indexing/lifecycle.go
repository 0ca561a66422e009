package indexing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tuenti/mkdocs-elasticsearch/internal/elasticsearch"
	"github.com/tuenti/mkdocs-elasticsearch/internal/schema"
)

// GenerationLayout is the UTC timestamp suffix of a generation name.
const GenerationLayout = "20060102150405"

// GenerationName returns the index name of the generation created at t.
func GenerationName(baseName string, t time.Time) string {
	return baseName + "-" + t.UTC().Format(GenerationLayout)
}

// Lifecycle creates generations, moves the alias between them and
// removes the ones no longer served.
type Lifecycle struct {
	backend Backend
	now     func() time.Time
}

// NewLifecycle creates a Lifecycle. A nil clock means time.Now.
func NewLifecycle(backend Backend, now func() time.Time) *Lifecycle {
	if now == nil {
		now = time.Now
	}
	return &Lifecycle{backend: backend, now: now}
}

// CreateGeneration creates a new empty index named after the current time
// and returns its name.
func (l *Lifecycle) CreateGeneration(ctx context.Context, baseName string) (string, error) {
	generation := GenerationName(baseName, l.now())
	slog.Info("creating new index", "index", generation)
	if err := l.backend.CreateIndex(ctx, generation); err != nil {
		return "", fmt.Errorf("failed to create generation %s: %w", generation, err)
	}
	return generation, nil
}

// EnsureAlias binds baseName to generation when no index holds the alias
// yet. This only happens on the first build against a cluster; the alias
// then serves an empty index until the swap. It returns true when it bound
// the alias.
func (l *Lifecycle) EnsureAlias(ctx context.Context, baseName, generation string) (bool, error) {
	ok, err := l.backend.AliasExists(ctx, baseName)
	if err != nil {
		return false, err
	}
	if ok {
		return false, nil
	}

	slog.Info("index alias doesn't exist, creating", "alias", baseName, "index", generation)
	if err := l.backend.PutAlias(ctx, generation, baseName); err != nil {
		return false, fmt.Errorf("failed to bind alias %s: %w", baseName, err)
	}
	return true, nil
}

// ReleaseBootstrap undoes the binding made by EnsureAlias on a first build
// that failed before the swap, leaving the alias unset.
func (l *Lifecycle) ReleaseBootstrap(ctx context.Context, baseName, generation string) error {
	slog.Info("releasing bootstrap alias", "alias", baseName, "index", generation)
	if err := l.backend.DeleteAlias(ctx, generation, baseName); err != nil {
		return fmt.Errorf("failed to release alias %s: %w", baseName, err)
	}
	return nil
}

// SwapAlias points baseName at generation, removing it from every other
// generation in the same request.
func (l *Lifecycle) SwapAlias(ctx context.Context, baseName, generation string) error {
	slog.Info("swapping alias", "alias", baseName, "index", generation)
	actions := []elasticsearch.AliasAction{
		{Remove: &elasticsearch.AliasTarget{Index: schema.Pattern(baseName), Alias: baseName}},
		{Add: &elasticsearch.AliasTarget{Index: generation, Alias: baseName}},
	}
	if err := l.backend.UpdateAliases(ctx, actions); err != nil {
		return fmt.Errorf("failed to swap alias %s to %s: %w", baseName, generation, err)
	}
	return nil
}

// IsGeneration reports whether name is a generation of baseName. The
// {base}-* pattern also matches other sites sharing the prefix, such as
// mkdocs-api-20240101000000 for mkdocs.
func IsGeneration(baseName, name string) bool {
	suffix, ok := strings.CutPrefix(name, baseName+"-")
	if !ok || len(suffix) != len(GenerationLayout) {
		return false
	}
	_, err := time.Parse(GenerationLayout, suffix)
	return err == nil
}

// ErrAliasNotSingle is returned by Current when the alias does not resolve
// to exactly one index.
var ErrAliasNotSingle = errors.New("alias does not resolve to exactly one index")

// Current returns the generation baseName points at.
func (l *Lifecycle) Current(ctx context.Context, baseName string) (string, error) {
	indices, err := l.backend.AliasIndices(ctx, baseName)
	if err != nil {
		return "", fmt.Errorf("failed to resolve alias %s: %w", baseName, err)
	}
	if len(indices) != 1 {
		return "", fmt.Errorf("%s -> %v: %w", baseName, indices, ErrAliasNotSingle)
	}
	return indices[0], nil
}

// Prune deletes every generation of baseName except current and returns
// the deleted names. It must only run after the swap to current succeeded.
func (l *Lifecycle) Prune(ctx context.Context, baseName, current string) ([]string, error) {
	indices, err := l.backend.ListIndices(ctx, schema.Pattern(baseName))
	if err != nil {
		return nil, fmt.Errorf("failed to list generations: %w", err)
	}

	var stale []string
	for _, name := range indices {
		if name != current && IsGeneration(baseName, name) {
			stale = append(stale, name)
		}
	}
	if len(stale) == 0 {
		return nil, nil
	}

	slog.Info("deleting old indices", "indices", stale)
	if err := l.backend.DeleteIndices(ctx, stale); err != nil {
		return nil, fmt.Errorf("failed to delete old generations: %w", err)
	}
	return stale, nil
}
