// Package schema holds the index layouts a documentation site can be
// published with. Only the join-field layout is supported; the older typed
// layout is recognised so configuration naming it fails loudly.
package schema

import (
	"errors"
	"fmt"

	"github.com/tuenti/mkdocs-elasticsearch/pkg/models"
)

// ErrUnsupportedSchema is returned by Lookup for known but retired layouts.
var ErrUnsupportedSchema = errors.New("unsupported schema")

// Schema decides the template body and the document shape for one layout.
type Schema interface {
	Name() string
	// Template returns the index template registered under baseName.
	// It applies to every index matching "{baseName}-*".
	Template(baseName string) Template
	// Convert turns an entry into the document written to a generation.
	Convert(entry models.SearchEntry) models.IndexedDocument
}

// Template is the body of a composable index template.
type Template struct {
	IndexPatterns []string     `json:"index_patterns"`
	Version       int          `json:"version"`
	Template      TemplateBody `json:"template"`
}

// TemplateBody holds the settings and mappings applied to matching indices.
type TemplateBody struct {
	Settings map[string]any `json:"settings"`
	Mappings map[string]any `json:"mappings"`
}

// Pattern returns the index pattern matching every generation of baseName.
func Pattern(baseName string) string {
	return baseName + "-*"
}

// Lookup resolves a configured schema name.
func Lookup(name string) (Schema, error) {
	switch name {
	case "", JoinName:
		return Join{}, nil
	case "typed", "legacy":
		return nil, fmt.Errorf("%w: %q layout needs mapping types, removed from Elasticsearch; use %q", ErrUnsupportedSchema, name, JoinName)
	default:
		return nil, fmt.Errorf("unknown schema %q", name)
	}
}
