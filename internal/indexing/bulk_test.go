package indexing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuenti/mkdocs-elasticsearch/internal/indexing/indextest"
	"github.com/tuenti/mkdocs-elasticsearch/internal/schema"
	"github.com/tuenti/mkdocs-elasticsearch/pkg/models"
)

func sampleEntries() []models.SearchEntry {
	// Sections come first on purpose: the publisher must reorder them.
	return []models.SearchEntry{
		{Location: "a/b#sec1", Title: "Sec1", Text: "world"},
		{Location: "a/b", Title: "B", Text: "hello"},
		{Location: "c/", Title: "C", Text: "page c"},
		{Location: "c/#intro", Title: "Intro", Text: "intro"},
	}
}

func TestSplit(t *testing.T) {
	parents, children := Split(schema.Join{}, sampleEntries())
	require.Len(t, parents, 2)
	require.Len(t, children, 2)
	assert.Equal(t, "a/b", parents[0].Source.Location)
	assert.Equal(t, "c/", parents[1].Source.Location)
	assert.Equal(t, "a/b#sec1", children[0].Source.Location)
	assert.Equal(t, "c/#intro", children[1].Source.Location)
}

func TestPublisher_Publish(t *testing.T) {
	backend := indextest.New()
	backend.AddIndex("mkdocs-1", nil)
	p := NewPublisher(backend, schema.Join{})

	result, err := p.Publish(context.Background(), "mkdocs-1", sampleEntries())
	require.NoError(t, err)
	assert.Equal(t, &PublishResult{Parents: 2, Children: 2}, result)

	// Two passes, then a refresh
	bulks := backend.CallsTo("Bulk")
	require.Len(t, bulks, 2)
	assert.Equal(t, "2", bulks[0].Target)
	assert.Equal(t, "2", bulks[1].Target)
	require.Len(t, backend.CallsTo("Refresh"), 1)

	docs := backend.Documents("mkdocs-1")
	require.Len(t, docs, 4)
	for id, doc := range docs {
		assert.Equal(t, schema.Routing, doc.Routing)
		assert.Equal(t, models.NewDocumentID(doc.Source.Location), models.DocumentID(id))
		if parent := doc.Source.ParentDocument.Parent; parent != "" {
			_, ok := docs[string(parent)]
			assert.True(t, ok, "parent of %s must be in the same index", doc.Source.Location)
		}
	}
}

func TestPublisher_Scenario(t *testing.T) {
	backend := indextest.New()
	backend.AddIndex("mkdocs-1", nil)
	p := NewPublisher(backend, schema.Join{})

	_, err := p.Publish(context.Background(), "mkdocs-1", []models.SearchEntry{
		{Location: "a/b", Title: "B", Text: "hello"},
		{Location: "a/b#sec1", Title: "Sec1", Text: "world"},
	})
	require.NoError(t, err)

	docs := backend.Documents("mkdocs-1")
	parent := docs[string(models.NewDocumentID("a/b"))]
	assert.Equal(t, models.Source{
		Location: "a/b", Title: "B", Text: "hello",
		ParentDocument: models.JoinField{Name: "full_doc"},
	}, parent.Source)

	child := docs[string(models.NewDocumentID("a/b#sec1"))]
	assert.Equal(t, models.Source{
		Location: "a/b#sec1", Title: "Sec1", Text: "world",
		ParentDocument: models.JoinField{Name: "section", Parent: models.NewDocumentID("a/b")},
	}, child.Source)
}

func TestPublisher_ParentRejectionStopsChildren(t *testing.T) {
	backend := indextest.New()
	backend.AddIndex("mkdocs-1", nil)
	backend.Reject[string(models.NewDocumentID("c/"))] = true
	p := NewPublisher(backend, schema.Join{})

	_, err := p.Publish(context.Background(), "mkdocs-1", sampleEntries())
	require.Error(t, err)

	var bulkErr *BulkError
	require.True(t, errors.As(err, &bulkErr))
	assert.Equal(t, PassParents, bulkErr.Pass)
	assert.Equal(t, 2, bulkErr.Total)
	require.Len(t, bulkErr.Failed, 1)
	assert.Contains(t, err.Error(), "1 of 2 parents rejected")

	assert.Len(t, backend.CallsTo("Bulk"), 1, "children must not be sent after a failed parent pass")
	assert.Empty(t, backend.CallsTo("Refresh"))
}

func TestPublisher_ChildRejection(t *testing.T) {
	backend := indextest.New()
	backend.AddIndex("mkdocs-1", nil)
	backend.Reject[string(models.NewDocumentID("c/#intro"))] = true
	p := NewPublisher(backend, schema.Join{})

	result, err := p.Publish(context.Background(), "mkdocs-1", sampleEntries())
	var bulkErr *BulkError
	require.True(t, errors.As(err, &bulkErr))
	assert.Equal(t, PassChildren, bulkErr.Pass)
	assert.Equal(t, 2, result.Parents)
	assert.Equal(t, 0, result.Children)
}

func TestPublisher_TransportError(t *testing.T) {
	backend := indextest.New()
	backend.AddIndex("mkdocs-1", nil)
	backend.Errors["Bulk"] = errors.New("connection reset")
	p := NewPublisher(backend, schema.Join{})

	_, err := p.Publish(context.Background(), "mkdocs-1", sampleEntries())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestPublisher_Orphans(t *testing.T) {
	backend := indextest.New()
	backend.StrictJoin = false
	backend.AddIndex("mkdocs-1", nil)
	p := NewPublisher(backend, schema.Join{})

	result, err := p.Publish(context.Background(), "mkdocs-1", []models.SearchEntry{
		{Location: "missing#sec", Title: "Sec", Text: "lonely"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Orphans)
	assert.Equal(t, 1, result.Children)
	assert.Len(t, backend.CallsTo("Bulk"), 1, "empty parent pass sends nothing")
}

func TestPublisher_Empty(t *testing.T) {
	backend := indextest.New()
	backend.AddIndex("mkdocs-1", nil)
	p := NewPublisher(backend, schema.Join{})

	result, err := p.Publish(context.Background(), "mkdocs-1", nil)
	require.NoError(t, err)
	assert.Equal(t, &PublishResult{}, result)
	assert.Empty(t, backend.CallsTo("Bulk"))
}
