package indexing

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tuenti/mkdocs-elasticsearch/internal/schema"
)

// TemplateManager makes sure the index template exists before any
// generation is created, so new indices pick up mappings and settings.
type TemplateManager struct {
	backend Backend
	schema  schema.Schema
}

// NewTemplateManager creates a TemplateManager for the given schema.
func NewTemplateManager(backend Backend, s schema.Schema) *TemplateManager {
	return &TemplateManager{backend: backend, schema: s}
}

// Ensure registers the template named baseName unless it already exists.
// It returns true when the template was created by this call.
func (m *TemplateManager) Ensure(ctx context.Context, baseName string) (bool, error) {
	ok, err := m.backend.TemplateExists(ctx, baseName)
	if err != nil {
		return false, err
	}
	if ok {
		slog.Debug("index template exists", "template", baseName)
		return false, nil
	}

	slog.Info("index template doesn't exist, creating", "template", baseName, "schema", m.schema.Name())
	if err := m.backend.PutTemplate(ctx, baseName, m.schema.Template(baseName)); err != nil {
		return false, fmt.Errorf("failed to create template %s: %w", baseName, err)
	}
	return true, nil
}
