// Package indextest provides an in-memory indexing.Backend for tests.
package indextest

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"sync"

	"github.com/tuenti/mkdocs-elasticsearch/internal/elasticsearch"
	"github.com/tuenti/mkdocs-elasticsearch/internal/schema"
	"github.com/tuenti/mkdocs-elasticsearch/pkg/models"
)

// Call records one backend invocation.
type Call struct {
	Method string
	// Target is the main argument: an index, alias, template or pattern.
	Target  string
	Actions []elasticsearch.AliasAction
}

// Document is a stored document.
type Document struct {
	Routing string
	Source  models.Source
}

// Backend keeps templates, indices, aliases and documents in memory.
// By default children are rejected unless their parent is already stored in
// the same index with the same routing, which is stricter than Elasticsearch
// and catches ordering bugs.
type Backend struct {
	mu        sync.Mutex
	templates map[string]schema.Template
	indices   map[string]map[string]Document
	aliases   map[string]map[string]bool
	calls     []Call

	// Errors makes the named method fail with the given error.
	Errors map[string]error
	// Reject makes bulk operations on these document ids fail.
	Reject map[string]bool
	// StrictJoin rejects children whose parent is not stored yet.
	StrictJoin bool
}

// New returns an empty backend.
func New() *Backend {
	return &Backend{
		templates: make(map[string]schema.Template),
		indices:   make(map[string]map[string]Document),
		aliases:   make(map[string]map[string]bool),
		Errors:    make(map[string]error),
		Reject:    make(map[string]bool),

		StrictJoin: true,
	}
}

func (b *Backend) record(method, target string, actions []elasticsearch.AliasAction) error {
	b.calls = append(b.calls, Call{Method: method, Target: target, Actions: actions})
	return b.Errors[method]
}

// Calls returns every call made so far.
func (b *Backend) Calls() []Call {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Call(nil), b.calls...)
}

// CallsTo returns the calls made to method.
func (b *Backend) CallsTo(method string) []Call {
	var out []Call
	for _, c := range b.Calls() {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// Template returns a registered template.
func (b *Backend) Template(name string) (schema.Template, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.templates[name]
	return t, ok
}

// Indices returns the sorted index names.
func (b *Backend) Indices() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sortedIndices()
}

func (b *Backend) sortedIndices() []string {
	names := make([]string, 0, len(b.indices))
	for name := range b.indices {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AliasTargets returns the sorted indices alias resolves to.
func (b *Backend) AliasTargets(alias string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var names []string
	for name := range b.aliases[alias] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Documents returns a copy of the documents stored in index, keyed by id.
func (b *Backend) Documents(index string) map[string]Document {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string]Document, len(b.indices[index]))
	for id, doc := range b.indices[index] {
		out[id] = doc
	}
	return out
}

// AddIndex creates an index holding docs, bypassing call recording.
func (b *Backend) AddIndex(name string, docs map[string]Document) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if docs == nil {
		docs = make(map[string]Document)
	}
	b.indices[name] = docs
}

// BindAlias points alias at index, bypassing call recording.
func (b *Backend) BindAlias(index, alias string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.aliases[alias] == nil {
		b.aliases[alias] = make(map[string]bool)
	}
	b.aliases[alias][index] = true
}

func (b *Backend) TemplateExists(_ context.Context, name string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record("TemplateExists", name, nil); err != nil {
		return false, err
	}
	_, ok := b.templates[name]
	return ok, nil
}

func (b *Backend) PutTemplate(_ context.Context, name string, tmpl schema.Template) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record("PutTemplate", name, nil); err != nil {
		return err
	}
	b.templates[name] = tmpl
	return nil
}

func (b *Backend) CreateIndex(_ context.Context, name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record("CreateIndex", name, nil); err != nil {
		return err
	}
	if _, ok := b.indices[name]; ok {
		return fmt.Errorf("resource_already_exists_exception: index [%s] already exists", name)
	}
	b.indices[name] = make(map[string]Document)
	return nil
}

func (b *Backend) ListIndices(_ context.Context, pattern string) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record("ListIndices", pattern, nil); err != nil {
		return nil, err
	}
	var names []string
	for _, name := range b.sortedIndices() {
		if ok, _ := path.Match(pattern, name); ok {
			names = append(names, name)
		}
	}
	return names, nil
}

func (b *Backend) DeleteIndices(_ context.Context, names []string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record("DeleteIndices", fmt.Sprint(names), nil); err != nil {
		return err
	}
	for _, name := range names {
		if _, ok := b.indices[name]; !ok {
			return fmt.Errorf("index_not_found_exception: no such index [%s]", name)
		}
	}
	for _, name := range names {
		delete(b.indices, name)
		for _, holders := range b.aliases {
			delete(holders, name)
		}
	}
	return nil
}

func (b *Backend) Refresh(_ context.Context, index string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record("Refresh", index, nil); err != nil {
		return err
	}
	if _, ok := b.indices[index]; !ok {
		return fmt.Errorf("index_not_found_exception: no such index [%s]", index)
	}
	return nil
}

func (b *Backend) AliasExists(_ context.Context, alias string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record("AliasExists", alias, nil); err != nil {
		return false, err
	}
	return len(b.aliases[alias]) > 0, nil
}

func (b *Backend) AliasIndices(_ context.Context, alias string) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record("AliasIndices", alias, nil); err != nil {
		return nil, err
	}
	var names []string
	for name := range b.aliases[alias] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (b *Backend) PutAlias(_ context.Context, index, alias string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record("PutAlias", alias, nil); err != nil {
		return err
	}
	if _, ok := b.indices[index]; !ok {
		return fmt.Errorf("index_not_found_exception: no such index [%s]", index)
	}
	if b.aliases[alias] == nil {
		b.aliases[alias] = make(map[string]bool)
	}
	b.aliases[alias][index] = true
	return nil
}

func (b *Backend) DeleteAlias(_ context.Context, index, alias string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record("DeleteAlias", alias, nil); err != nil {
		return err
	}
	if !b.aliases[alias][index] {
		return fmt.Errorf("aliases_not_found_exception: [%s] missing on [%s]", alias, index)
	}
	delete(b.aliases[alias], index)
	return nil
}

// UpdateAliases applies all actions or none.
func (b *Backend) UpdateAliases(_ context.Context, actions []elasticsearch.AliasAction) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record("UpdateAliases", "", actions); err != nil {
		return err
	}

	next := make(map[string]map[string]bool, len(b.aliases))
	for alias, holders := range b.aliases {
		next[alias] = make(map[string]bool, len(holders))
		for index := range holders {
			next[alias][index] = true
		}
	}

	for _, action := range actions {
		switch {
		case action.Remove != nil && action.Add == nil:
			removed := 0
			for index := range next[action.Remove.Alias] {
				if ok, _ := path.Match(action.Remove.Index, index); ok {
					delete(next[action.Remove.Alias], index)
					removed++
				}
			}
			if removed == 0 {
				return fmt.Errorf("aliases_not_found_exception: [%s] missing on [%s]", action.Remove.Alias, action.Remove.Index)
			}
		case action.Add != nil && action.Remove == nil:
			if _, ok := b.indices[action.Add.Index]; !ok {
				return fmt.Errorf("index_not_found_exception: no such index [%s]", action.Add.Index)
			}
			if next[action.Add.Alias] == nil {
				next[action.Add.Alias] = make(map[string]bool)
			}
			next[action.Add.Alias][action.Add.Index] = true
		default:
			return errors.New("action must set exactly one of add or remove")
		}
	}

	b.aliases = next
	return nil
}

// Bulk stores every acceptable operation and reports the others as failed,
// processing operations in order like Elasticsearch does within one shard.
func (b *Backend) Bulk(_ context.Context, ops []elasticsearch.BulkOperation) (*elasticsearch.BulkResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record("Bulk", fmt.Sprint(len(ops)), nil); err != nil {
		return nil, err
	}

	result := &elasticsearch.BulkResult{Items: make([]elasticsearch.BulkItem, 0, len(ops))}
	for _, op := range ops {
		item := elasticsearch.BulkItem{ID: op.ID, Status: 201}
		docs, ok := b.indices[op.Index]
		source, isSource := op.Source.(models.Source)
		switch {
		case !ok:
			item.Status, item.ErrorType = 404, "index_not_found_exception"
		case !isSource:
			item.Status, item.ErrorType = 400, "mapper_parsing_exception"
		case b.Reject[op.ID]:
			item.Status, item.ErrorType, item.ErrorReason = 400, "document_rejected", "rejected by test"
		case b.StrictJoin && source.ParentDocument.Parent != "" && !hasDoc(docs, string(source.ParentDocument.Parent), op.Routing):
			item.Status, item.ErrorType, item.ErrorReason = 400, "parent_missing", "parent "+string(source.ParentDocument.Parent)+" not stored"
		default:
			docs[op.ID] = Document{Routing: op.Routing, Source: source}
		}
		result.Items = append(result.Items, item)
	}
	return result, nil
}

func hasDoc(docs map[string]Document, id, routing string) bool {
	doc, ok := docs[id]
	return ok && doc.Routing == routing
}
