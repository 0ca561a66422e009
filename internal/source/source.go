// Package source loads the search entries produced by a documentation build.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/tuenti/mkdocs-elasticsearch/pkg/models"
)

// Source yields the ordered search entries of one build.
type Source interface {
	Entries(ctx context.Context) ([]models.SearchEntry, error)
}

// searchIndex is the search_index.json layout written by mkdocs.
type searchIndex struct {
	Config json.RawMessage      `json:"config,omitempty"`
	Docs   []models.SearchEntry `json:"docs"`
}

// Decode parses a search_index.json payload.
func Decode(data []byte) ([]models.SearchEntry, error) {
	var idx searchIndex
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("failed to decode search index: %w", err)
	}
	if idx.Docs == nil {
		return nil, fmt.Errorf("failed to decode search index: missing docs array")
	}
	return idx.Docs, nil
}

// File reads entries from a search_index.json on disk.
type File string

func (f File) Entries(ctx context.Context) ([]models.SearchEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(string(f))
	if err != nil {
		return nil, fmt.Errorf("failed to read search index: %w", err)
	}
	return Decode(data)
}

// Getter fetches an object by key.
type Getter interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

// Object reads entries from a search_index.json stored in a bucket.
type Object struct {
	Store Getter
	Key   string
}

func (o Object) Entries(ctx context.Context) ([]models.SearchEntry, error) {
	data, err := o.Store.Get(ctx, o.Key)
	if err != nil {
		return nil, err
	}
	return Decode(data)
}
