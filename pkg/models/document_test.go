package models

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDocumentID_Deterministic(t *testing.T) {
	a := NewDocumentID("user-guide/install/")
	b := NewDocumentID("user-guide/install/")
	assert.Equal(t, a, b, "NewDocumentID not stable")
	assert.Len(t, string(a), 32, "32 hex chars")
	assert.Equal(t, DocumentID("a7e86136543b019d72468ceebf71fb8e"), NewDocumentID("a/b"))
}

func TestNewDocumentID_NoCollisions(t *testing.T) {
	seen := make(map[DocumentID]string)
	for i := 0; i < 5000; i++ {
		loc := fmt.Sprintf("section-%d/page-%d/#heading-%d", i%50, i, i)
		id := NewDocumentID(loc)
		prev, ok := seen[id]
		require.False(t, ok, "collision between %q and %q", prev, loc)
		seen[id] = loc
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		location   string
		wantKind   Kind
		wantParent string
	}{
		{name: "page", location: "a/b", wantKind: Parent},
		{name: "root page", location: "", wantKind: Parent},
		{name: "directory url", location: "guide/", wantKind: Parent},
		{name: "section", location: "a/b#sec1", wantKind: Child, wantParent: "a/b"},
		{name: "section of root", location: "#intro", wantKind: Child, wantParent: ""},
		{name: "first hash wins", location: "a/b#c#d", wantKind: Child, wantParent: "a/b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rel := Classify(SearchEntry{Location: tt.location})
			require.Equal(t, tt.wantKind, rel.Kind)
			if tt.wantKind == Parent {
				assert.Empty(t, rel.ParentID, "parent should have no ParentID")
				return
			}
			assert.Equal(t, tt.wantParent, rel.ParentLocation)
			assert.Equal(t, NewDocumentID(tt.wantParent), rel.ParentID)
		})
	}
}

func TestJoinField_JSON(t *testing.T) {
	parent, err := json.Marshal(JoinField{Name: "full_doc"})
	require.NoError(t, err)
	assert.Equal(t, `"full_doc"`, string(parent))

	child, err := json.Marshal(JoinField{Name: "section", Parent: "abc"})
	require.NoError(t, err)
	assert.Equal(t, `{"name":"section","parent":"abc"}`, string(child))

	var decoded JoinField
	require.NoError(t, json.Unmarshal(child, &decoded))
	assert.Equal(t, JoinField{Name: "section", Parent: "abc"}, decoded)

	require.NoError(t, json.Unmarshal(parent, &decoded))
	assert.Equal(t, JoinField{Name: "full_doc"}, decoded)
}

func TestSource_JSONFieldNames(t *testing.T) {
	data, err := json.Marshal(Source{Location: "a/b", Title: "B", Text: "hello", ParentDocument: JoinField{Name: "full_doc"}})
	require.NoError(t, err)

	for _, field := range []string{`"location"`, `"title"`, `"text"`, `"parent_document"`} {
		assert.Contains(t, string(data), field)
	}
}
