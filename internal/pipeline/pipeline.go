package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/tuenti/mkdocs-elasticsearch/internal/events"
	"github.com/tuenti/mkdocs-elasticsearch/internal/indexing"
	"github.com/tuenti/mkdocs-elasticsearch/internal/schema"
	"github.com/tuenti/mkdocs-elasticsearch/pkg/models"
)

// Config holds pipeline configuration.
type Config struct {
	// Index is the alias searchers query and the prefix of every generation.
	Index  string
	Schema schema.Schema
	// Now is the clock used to name generations. Defaults to time.Now.
	Now func() time.Time
}

// CleanupTimeout bounds the alias release of an abandoned first build.
const CleanupTimeout = 10 * time.Second

// Pipeline publishes the search entries of a documentation build.
// It holds no per-build state; each build gets its own Build.
type Pipeline struct {
	index     string
	templates *indexing.TemplateManager
	lifecycle *indexing.Lifecycle
	publisher *indexing.Publisher
}

// New creates a Pipeline writing through backend.
func New(backend indexing.Backend, config Config) *Pipeline {
	s := config.Schema
	if s == nil {
		s = schema.Join{}
	}
	return &Pipeline{
		index:     config.Index,
		templates: indexing.NewTemplateManager(backend, s),
		lifecycle: indexing.NewLifecycle(backend, config.Now),
		publisher: indexing.NewPublisher(backend, s),
	}
}

// Build carries one build from BeforeBuild to AfterBuild.
type Build struct {
	pipeline *Pipeline
	report   *Report
	start    time.Time
	swapped  bool
	finished bool
}

// BeforeBuild prepares the template, a new generation and, on the first
// build against a cluster, the alias. Failures are recorded in the Build
// and reported by AfterBuild.
func (p *Pipeline) BeforeBuild(ctx context.Context, event events.PreBuildEvent) (b *Build) {
	b = &Build{
		pipeline: p,
		report:   &Report{Index: p.index},
		start:    time.Now(),
	}
	if event.Dirty {
		b.report.Skipped = true
		return b
	}
	defer b.recoverPanic(ctx, StageGeneration)

	if _, err := p.templates.Ensure(ctx, p.index); err != nil {
		b.fail(StageTemplate, err)
		return b
	}

	generation, err := p.lifecycle.CreateGeneration(ctx, p.index)
	if err != nil {
		b.fail(StageGeneration, err)
		return b
	}
	b.report.Generation = generation

	bound, err := p.lifecycle.EnsureAlias(ctx, p.index, generation)
	if err != nil {
		b.fail(StageBootstrap, err)
		return b
	}
	b.report.Bootstrapped = bound
	return b
}

// AfterBuild publishes the entries into the generation, swaps the alias
// onto it and deletes older generations. The alias only moves once both
// bulk passes succeeded. The returned Report is final; calling AfterBuild
// again returns it unchanged.
func (b *Build) AfterBuild(ctx context.Context, event events.PostBuildEvent) (report *Report) {
	report = b.report
	if b.finished {
		return report
	}
	b.finished = true
	defer func() { b.report.Duration = time.Since(b.start) }()

	if b.report.Skipped || b.report.Err != nil {
		return b.report
	}
	if event.Dirty {
		b.abandon(ctx)
		b.report.Skipped = true
		return b.report
	}
	defer b.recoverPanic(ctx, StagePublish)

	if event.Err != nil {
		b.fail(StageSource, event.Err)
		b.abandon(ctx)
		return b.report
	}

	p := b.pipeline
	generation := b.report.Generation

	result, err := p.publisher.Publish(ctx, generation, event.Entries)
	if result != nil {
		b.report.Parents = result.Parents
		b.report.Children = result.Children
		b.report.Orphans = result.Orphans
	}
	if err != nil {
		b.fail(StagePublish, err)
		b.abandon(ctx)
		return b.report
	}

	if err := p.lifecycle.SwapAlias(ctx, p.index, generation); err != nil {
		b.fail(StageSwap, err)
		return b.report
	}
	b.swapped = true

	pruned, err := p.lifecycle.Prune(ctx, p.index, generation)
	if err != nil {
		b.report.PruneErr = &StageError{Stage: StagePrune, Generation: generation, Err: err}
	}
	b.report.Pruned = pruned
	return b.report
}

// Run drives a whole build: BeforeBuild, load, AfterBuild.
func (p *Pipeline) Run(ctx context.Context, dirty bool, load func(context.Context) ([]models.SearchEntry, error)) *Report {
	b := p.BeforeBuild(ctx, events.PreBuildEvent{Dirty: dirty, Timestamp: time.Now()})

	var entries []models.SearchEntry
	var err error
	if !b.report.Skipped && b.report.Err == nil {
		entries, err = b.load(ctx, load)
	}
	return b.AfterBuild(ctx, events.PostBuildEvent{Dirty: dirty, Entries: entries, Err: err})
}

// load runs the document source, turning a panic into a source error.
func (b *Build) load(ctx context.Context, load func(context.Context) ([]models.SearchEntry, error)) (entries []models.SearchEntry, err error) {
	defer func() {
		if r := recover(); r != nil {
			b.report.Panic = debug.Stack()
			entries, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()
	return load(ctx)
}

func (b *Build) fail(stage Stage, err error) {
	b.report.Err = &StageError{Stage: stage, Generation: b.report.Generation, Err: err}
}

// abandon leaves an unpublished generation for the next prune. If this
// build created the alias, the alias is removed again so it never serves
// an incomplete first generation.
func (b *Build) abandon(ctx context.Context) {
	if !b.report.Bootstrapped {
		return
	}
	// The build context may already be cancelled by an interrupt.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), CleanupTimeout)
	defer cancel()

	p := b.pipeline
	if err := p.lifecycle.ReleaseBootstrap(ctx, p.index, b.report.Generation); err != nil {
		slog.Warn("failed to release bootstrap alias", "alias", p.index, "error", err)
		return
	}
	b.report.Bootstrapped = false
}

// recoverPanic turns a panic during a hook into a failure of the given
// stage. A panic after the swap only affects pruning.
func (b *Build) recoverPanic(ctx context.Context, stage Stage) {
	r := recover()
	if r == nil {
		return
	}
	b.report.Panic = debug.Stack()
	err := fmt.Errorf("panic: %v", r)
	if b.swapped {
		b.report.PruneErr = &StageError{Stage: StagePrune, Generation: b.report.Generation, Err: err}
		return
	}
	if b.report.Err == nil {
		b.fail(stage, err)
	}
	b.abandon(ctx)
}
