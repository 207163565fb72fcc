package search

import (
	"github.com/talkboard/talkboard-web/internal/domain"
	"github.com/talkboard/talkboard-web/internal/util"
)

// TagDocument is the indexed form of a tag.
type TagDocument struct {
	ID   string
	Name string
	Slug string
}

// NewTagDocument builds the document for t.
func NewTagDocument(t domain.Tag) *TagDocument {
	return &TagDocument{
		ID:   t.ID,
		Name: t.Name,
		Slug: util.NormalizeTagSlug(t.Name),
	}
}

// ToMap converts the document to the field names used by the mapping.
func (d *TagDocument) ToMap() map[string]any {
	return map[string]any{
		"id":   d.ID,
		"name": d.Name,
		"slug": d.Slug,
	}
}

// docID keys documents by slug so two spellings of one tag collapse.
func (d *TagDocument) docID() string {
	if d.Slug != "" {
		return d.Slug
	}
	return d.ID
}
