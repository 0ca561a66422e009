package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuenti/mkdocs-elasticsearch/pkg/models"
)

func TestLookup(t *testing.T) {
	s, err := Lookup("")
	require.NoError(t, err)
	assert.Equal(t, JoinName, s.Name())

	s, err = Lookup("join")
	require.NoError(t, err)
	assert.Equal(t, JoinName, s.Name())

	_, err = Lookup("typed")
	assert.ErrorIs(t, err, ErrUnsupportedSchema)

	_, err = Lookup("nope")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnsupportedSchema)
}

func TestJoin_Template(t *testing.T) {
	data, err := json.Marshal(Join{}.Template("mkdocs"))
	require.NoError(t, err)

	var body struct {
		IndexPatterns []string `json:"index_patterns"`
		Version       int      `json:"version"`
		Template      struct {
			Settings struct {
				Shards   int    `json:"number_of_shards"`
				Replicas string `json:"auto_expand_replicas"`
				Analysis struct {
					Tokenizer map[string]struct {
						Type    string `json:"type"`
						Pattern string `json:"pattern"`
					} `json:"tokenizer"`
				} `json:"analysis"`
			} `json:"settings"`
			Mappings struct {
				Properties map[string]struct {
					Type      string            `json:"type"`
					Analyzer  string            `json:"analyzer"`
					Relations map[string]string `json:"relations"`
				} `json:"properties"`
			} `json:"mappings"`
		} `json:"template"`
	}
	require.NoError(t, json.Unmarshal(data, &body))

	assert.Equal(t, []string{"mkdocs-*"}, body.IndexPatterns)
	assert.Equal(t, TemplateVersion, body.Version)
	assert.Equal(t, 1, body.Template.Settings.Shards)
	assert.Equal(t, "0-3", body.Template.Settings.Replicas)
	assert.Equal(t, "[/#]", body.Template.Settings.Analysis.Tokenizer["mkdocs_location"].Pattern)

	props := body.Template.Mappings.Properties
	assert.Equal(t, "join", props["parent_document"].Type)
	assert.Equal(t, map[string]string{"full_doc": "section"}, props["parent_document"].Relations)
	assert.Equal(t, "text", props["text"].Type)
	assert.Equal(t, "text", props["title"].Type)
	assert.Equal(t, "mkdocs_location_analyzer", props["location"].Analyzer)
}

func TestJoin_Convert(t *testing.T) {
	parent := Join{}.Convert(models.SearchEntry{Location: "a/b", Title: "B", Text: "hello"})
	assert.Equal(t, models.NewDocumentID("a/b"), parent.ID)
	assert.Equal(t, models.Parent, parent.Relation.Kind)
	assert.Equal(t, Routing, parent.Routing)
	assert.Equal(t, models.JoinField{Name: "full_doc"}, parent.Source.ParentDocument)
	assert.Equal(t, "hello", parent.Source.Text)

	child := Join{}.Convert(models.SearchEntry{Location: "a/b#sec1", Title: "Sec1", Text: "world"})
	assert.Equal(t, models.NewDocumentID("a/b#sec1"), child.ID)
	assert.Equal(t, models.Child, child.Relation.Kind)
	assert.Equal(t, Routing, child.Routing)
	assert.Equal(t, models.JoinField{Name: "section", Parent: parent.ID}, child.Source.ParentDocument)
}
