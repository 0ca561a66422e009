package indexing

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tuenti/mkdocs-elasticsearch/internal/elasticsearch"
	"github.com/tuenti/mkdocs-elasticsearch/internal/schema"
	"github.com/tuenti/mkdocs-elasticsearch/pkg/models"
)

// Pass names one of the two bulk submissions.
type Pass string

const (
	PassParents  Pass = "parents"
	PassChildren Pass = "children"
)

// BulkError reports a bulk pass in which some documents were rejected.
type BulkError struct {
	Pass   Pass
	Index  string
	Total  int
	Failed []elasticsearch.BulkItem
}

func (e *BulkError) Error() string {
	const shown = 3
	var reasons []string
	for i, item := range e.Failed {
		if i == shown {
			reasons = append(reasons, fmt.Sprintf("and %d more", len(e.Failed)-shown))
			break
		}
		reasons = append(reasons, fmt.Sprintf("%s: %s %s", item.ID, item.ErrorType, item.ErrorReason))
	}
	return fmt.Sprintf("%d of %d %s rejected by %s (%s)",
		len(e.Failed), e.Total, e.Pass, e.Index, strings.Join(reasons, "; "))
}

// PublishResult counts what a Publish call wrote.
type PublishResult struct {
	Parents  int
	Children int
	// Orphans are sections whose page has no entry of its own.
	Orphans int
}

// Publisher writes entries into a generation: every page first, then every
// section, so each child's parent is already stored when the child arrives.
type Publisher struct {
	backend Backend
	schema  schema.Schema
}

// NewPublisher creates a Publisher for the given schema.
func NewPublisher(backend Backend, s schema.Schema) *Publisher {
	return &Publisher{backend: backend, schema: s}
}

// Split converts entries and separates pages from sections, keeping order.
func Split(s schema.Schema, entries []models.SearchEntry) (parents, children []models.IndexedDocument) {
	for _, entry := range entries {
		doc := s.Convert(entry)
		if doc.Relation.Kind == models.Child {
			children = append(children, doc)
		} else {
			parents = append(parents, doc)
		}
	}
	return parents, children
}

// Publish runs both bulk passes against generation and refreshes it.
// The children pass is not submitted unless every parent was accepted.
func (p *Publisher) Publish(ctx context.Context, generation string, entries []models.SearchEntry) (*PublishResult, error) {
	parents, children := Split(p.schema, entries)

	known := make(map[models.DocumentID]bool, len(parents))
	for _, doc := range parents {
		known[doc.ID] = true
	}
	result := &PublishResult{}
	for _, doc := range children {
		if !known[doc.Relation.ParentID] {
			result.Orphans++
			slog.Warn("section without page entry", "location", doc.Source.Location, "parent", doc.Relation.ParentLocation)
		}
	}

	slog.Info("indexing parent documents", "index", generation, "count", len(parents))
	if err := p.pass(ctx, PassParents, generation, parents); err != nil {
		return result, err
	}
	result.Parents = len(parents)

	slog.Info("indexing children documents", "index", generation, "count", len(children))
	if err := p.pass(ctx, PassChildren, generation, children); err != nil {
		return result, err
	}
	result.Children = len(children)

	if err := p.backend.Refresh(ctx, generation); err != nil {
		return result, fmt.Errorf("failed to refresh %s: %w", generation, err)
	}
	return result, nil
}

func (p *Publisher) pass(ctx context.Context, pass Pass, generation string, docs []models.IndexedDocument) error {
	if len(docs) == 0 {
		return nil
	}

	ops := make([]elasticsearch.BulkOperation, len(docs))
	for i, doc := range docs {
		slog.Debug("bulk document", "pass", pass, "id", doc.ID, "location", doc.Source.Location)
		ops[i] = elasticsearch.BulkOperation{
			Index:   generation,
			ID:      string(doc.ID),
			Routing: doc.Routing,
			Source:  doc.Source,
		}
	}

	result, err := p.backend.Bulk(ctx, ops)
	if err != nil {
		return fmt.Errorf("failed to index %s: %w", pass, err)
	}
	if failed := result.Failed(); len(failed) > 0 {
		return &BulkError{Pass: pass, Index: generation, Total: len(ops), Failed: failed}
	}
	return nil
}
