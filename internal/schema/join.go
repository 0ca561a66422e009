package schema

import "github.com/tuenti/mkdocs-elasticsearch/pkg/models"

const (
	// JoinName is the configuration name of the join-field layout.
	JoinName = "join"

	// TemplateVersion is bumped whenever the join template body changes.
	TemplateVersion = 1

	// Routing pins every document to the same shard. Join relations need
	// parents and children co-located and the template creates one shard,
	// so a constant is enough. More shards would need per-page routing.
	Routing = "1"

	relationParent = "full_doc"
	relationChild  = "section"

	locationAnalyzer  = "mkdocs_location_analyzer"
	locationTokenizer = "mkdocs_location"
)

// Join stores pages and their sections in one index, linked through the
// parent_document join field.
type Join struct{}

func (Join) Name() string { return JoinName }

func (Join) Template(baseName string) Template {
	return Template{
		IndexPatterns: []string{Pattern(baseName)},
		Version:       TemplateVersion,
		Template: TemplateBody{
			Settings: map[string]any{
				"number_of_shards":     1,
				"auto_expand_replicas": "0-3",
				"analysis": map[string]any{
					"analyzer": map[string]any{
						locationAnalyzer: map[string]any{
							"tokenizer": locationTokenizer,
						},
					},
					"tokenizer": map[string]any{
						locationTokenizer: map[string]any{
							"type":    "pattern",
							"pattern": "[/#]",
						},
					},
				},
			},
			Mappings: map[string]any{
				"properties": map[string]any{
					"parent_document": map[string]any{
						"type": "join",
						"relations": map[string]any{
							relationParent: relationChild,
						},
					},
					"text": map[string]any{"type": "text"},
					"location": map[string]any{
						"type":     "text",
						"analyzer": locationAnalyzer,
					},
					"title": map[string]any{"type": "text"},
				},
			},
		},
	}
}

func (Join) Convert(entry models.SearchEntry) models.IndexedDocument {
	rel := models.Classify(entry)
	join := models.JoinField{Name: relationParent}
	if rel.Kind == models.Child {
		join = models.JoinField{Name: relationChild, Parent: rel.ParentID}
	}
	return models.IndexedDocument{
		ID:       models.NewDocumentID(entry.Location),
		Routing:  Routing,
		Relation: rel,
		Source: models.Source{
			Location:       entry.Location,
			Title:          entry.Title,
			Text:           entry.Text,
			ParentDocument: join,
		},
	}
}
