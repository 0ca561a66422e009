package models

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"strings"
)

// SearchEntry is one searchable record emitted by the documentation build.
// Location is a page path, optionally followed by "#fragment" for a section.
type SearchEntry struct {
	Location string `json:"location"`
	Title    string `json:"title"`
	Text     string `json:"text"`
}

// DocumentID identifies a document within an index generation.
type DocumentID string

// NewDocumentID returns the MD5 hex digest of location.
// Entries sharing a location map to the same document, so re-indexing is idempotent.
func NewDocumentID(location string) DocumentID {
	sum := md5.Sum([]byte(location))
	return DocumentID(hex.EncodeToString(sum[:]))
}

// Kind tells whole pages apart from their sections.
type Kind int

const (
	Parent Kind = iota
	Child
)

func (k Kind) String() string {
	if k == Child {
		return "section"
	}
	return "full_doc"
}

// Relation is the outcome of classifying an entry.
// ParentID is only set for children.
type Relation struct {
	Kind           Kind
	ParentLocation string
	ParentID       DocumentID
}

// Classify splits location on its first '#'. Anything after it makes the
// entry a section of the page before it.
func Classify(entry SearchEntry) Relation {
	page, _, found := strings.Cut(entry.Location, "#")
	if !found {
		return Relation{Kind: Parent}
	}
	return Relation{
		Kind:           Child,
		ParentLocation: page,
		ParentID:       NewDocumentID(page),
	}
}

// JoinField is the value of the parent_document join field.
// Parents serialize as the bare relation name, children as {"name", "parent"}.
type JoinField struct {
	Name   string
	Parent DocumentID
}

func (j JoinField) MarshalJSON() ([]byte, error) {
	if j.Parent == "" {
		return json.Marshal(j.Name)
	}
	return json.Marshal(struct {
		Name   string     `json:"name"`
		Parent DocumentID `json:"parent"`
	}{j.Name, j.Parent})
}

func (j *JoinField) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		*j = JoinField{Name: name}
		return nil
	}
	var obj struct {
		Name   string     `json:"name"`
		Parent DocumentID `json:"parent"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*j = JoinField{Name: obj.Name, Parent: obj.Parent}
	return nil
}

// Source is the stored body of an indexed document.
type Source struct {
	Location       string    `json:"location"`
	Title          string    `json:"title"`
	Text           string    `json:"text"`
	ParentDocument JoinField `json:"parent_document"`
}

// IndexedDocument is the persisted unit written by one bulk index operation.
type IndexedDocument struct {
	ID       DocumentID
	Routing  string
	Relation Relation
	Source   Source
}
