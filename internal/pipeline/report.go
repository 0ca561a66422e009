package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tuenti/mkdocs-elasticsearch/internal/indexing"
)

// Stage names a step of the publish sequence.
type Stage string

const (
	StageTemplate   Stage = "template"
	StageGeneration Stage = "generation"
	StageBootstrap  Stage = "bootstrap"
	StageSource     Stage = "source"
	StagePublish    Stage = "publish"
	StageSwap       Stage = "swap"
	StagePrune      Stage = "prune"
)

// Fatal reports whether a failure at this stage ends the publish attempt.
// Prune failures leave the new generation live.
func (s Stage) Fatal() bool {
	return s != StagePrune
}

// StageError ties an error to the stage and generation it happened in.
type StageError struct {
	Stage      Stage
	Generation string
	Err        error
}

func (e *StageError) Error() string {
	if e.Generation == "" {
		return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("%s failed for %s: %v", e.Stage, e.Generation, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Report describes the outcome of one build.
type Report struct {
	Index      string
	Generation string
	Skipped    bool
	// Bootstrapped is set when this build created the alias.
	Bootstrapped bool

	Parents  int
	Children int
	Orphans  int
	Pruned   []string

	// Err is the fatal failure, if any. The alias was not moved to Generation.
	Err *StageError
	// PruneErr is a cleanup failure after a successful swap.
	PruneErr *StageError
	// Panic holds the stack of a recovered panic.
	Panic []byte

	Duration time.Duration
}

// Published reports whether the alias now serves Generation.
func (r *Report) Published() bool {
	return !r.Skipped && r.Err == nil
}

// Error returns the fatal failure as an error, or nil.
func (r *Report) Error() error {
	if r.Err == nil {
		return nil
	}
	return r.Err
}

// LogReport logs the full outcome of a build. It never fails.
func LogReport(r *Report) {
	switch {
	case r.Skipped:
		slog.Debug("dirty build, search index not rebuilt", "index", r.Index)
		return
	case r.Err != nil:
		slog.Error("failed elastic build",
			"index", r.Index,
			"generation", r.Generation,
			"stage", r.Err.Stage,
			"error", r.Err.Err,
			"duration", r.Duration)
		var bulkErr *indexing.BulkError
		if errors.As(r.Err, &bulkErr) {
			for _, item := range bulkErr.Failed {
				slog.Debug("rejected document",
					"pass", bulkErr.Pass,
					"id", item.ID,
					"status", item.Status,
					"type", item.ErrorType,
					"reason", item.ErrorReason)
			}
		}
	default:
		slog.Info("search index published",
			"index", r.Index,
			"generation", r.Generation,
			"parents", r.Parents,
			"children", r.Children,
			"orphans", r.Orphans,
			"pruned", len(r.Pruned),
			"duration", r.Duration)
	}

	if len(r.Panic) > 0 {
		slog.Error("recovered panic", "stack", string(r.Panic))
	}
	if r.PruneErr != nil {
		slog.Warn("failed to delete old indices, retrying on next build",
			"index", r.Index,
			"error", r.PruneErr.Err)
	}
}
