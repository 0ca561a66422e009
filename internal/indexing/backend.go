// Package indexing publishes a documentation site into a fresh, timestamped
// Elasticsearch index and moves a stable alias onto it once every document
// is in place.
package indexing

import (
	"context"

	"github.com/tuenti/mkdocs-elasticsearch/internal/elasticsearch"
	"github.com/tuenti/mkdocs-elasticsearch/internal/schema"
)

// Backend is the subset of the storage API the publish protocol relies on.
// *elasticsearch.Client implements it.
type Backend interface {
	TemplateExists(ctx context.Context, name string) (bool, error)
	PutTemplate(ctx context.Context, name string, tmpl schema.Template) error

	CreateIndex(ctx context.Context, name string) error
	ListIndices(ctx context.Context, pattern string) ([]string, error)
	DeleteIndices(ctx context.Context, names []string) error
	Refresh(ctx context.Context, index string) error

	AliasExists(ctx context.Context, alias string) (bool, error)
	AliasIndices(ctx context.Context, alias string) ([]string, error)
	PutAlias(ctx context.Context, index, alias string) error
	DeleteAlias(ctx context.Context, index, alias string) error
	UpdateAliases(ctx context.Context, actions []elasticsearch.AliasAction) error

	Bulk(ctx context.Context, ops []elasticsearch.BulkOperation) (*elasticsearch.BulkResult, error)
}

var _ Backend = (*elasticsearch.Client)(nil)
