package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/talkboard/talkboard-web/internal/domain"
	"github.com/talkboard/talkboard-web/internal/util"
)

const defaultSuggestLimit = 10

// TagIndex is an in-memory full-text index of the forum's tags. It backs tag
// suggestions while typing and the duplicate check before a tag is created.
//
// Thread safety: All public methods are safe for concurrent use.
type TagIndex struct {
	index  bleve.Index
	logger *slog.Logger
	mu     sync.RWMutex
}

// TagHit is a suggested tag.
type TagHit struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Slug  string  `json:"slug"`
	Score float64 `json:"score"`
}

// NewTagIndex creates an empty tag index.
func NewTagIndex(logger *slog.Logger) (*TagIndex, error) {
	index, err := bleve.NewMemOnly(buildTagMapping())
	if err != nil {
		return nil, fmt.Errorf("create tag index: %w", err)
	}
	return &TagIndex{index: index, logger: logger}, nil
}

// Replace swaps the indexed tags for tags.
func (t *TagIndex) Replace(tags []domain.Tag) error {
	fresh, err := bleve.NewMemOnly(buildTagMapping())
	if err != nil {
		return fmt.Errorf("create tag index: %w", err)
	}

	batch := fresh.NewBatch()
	for _, tag := range tags {
		doc := NewTagDocument(tag)
		if doc.Slug == "" {
			continue
		}
		if err := batch.Index(doc.docID(), doc.ToMap()); err != nil {
			fresh.Close()
			return fmt.Errorf("index tag %s: %w", tag.Name, err)
		}
	}
	if err := fresh.Batch(batch); err != nil {
		fresh.Close()
		return fmt.Errorf("commit tag batch: %w", err)
	}

	t.mu.Lock()
	old := t.index
	t.index = fresh
	t.mu.Unlock()

	if err := old.Close(); err != nil {
		t.logger.Warn("failed to close previous tag index", "error", err)
	}
	t.logger.Debug("tag index rebuilt", "tags", batch.Size())
	return nil
}

// Add indexes a single tag, for example right after it was created.
func (t *TagIndex) Add(tag domain.Tag) error {
	doc := NewTagDocument(tag)
	if doc.Slug == "" {
		return nil
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.index.Index(doc.docID(), doc.ToMap())
}

// Suggest returns tags matching what the user has typed so far: word
// prefixes, slug prefixes and near misses of one edit.
func (t *TagIndex) Suggest(ctx context.Context, text string, limit int) ([]TagHit, error) {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = defaultSuggestLimit
	}

	req := bleve.NewSearchRequestOptions(buildSuggestQuery(text), limit, 0, false)
	req.Fields = []string{"id", "name", "slug"}

	t.mu.RLock()
	defer t.mu.RUnlock()

	res, err := t.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search tags: %w", err)
	}

	hits := make([]TagHit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hit := TagHit{Score: h.Score}
		hit.ID, _ = h.Fields["id"].(string)
		hit.Name, _ = h.Fields["name"].(string)
		hit.Slug, _ = h.Fields["slug"].(string)
		hits = append(hits, hit)
	}
	return hits, nil
}

func buildSuggestQuery(text string) query.Query {
	var queries []query.Query

	for _, word := range strings.Fields(text) {
		prefix := bleve.NewPrefixQuery(word)
		prefix.SetField("name")
		queries = append(queries, prefix)

		if len(word) >= 3 {
			fuzzy := bleve.NewFuzzyQuery(word)
			fuzzy.SetField("name")
			fuzzy.SetFuzziness(1)
			fuzzy.SetBoost(0.5)
			queries = append(queries, fuzzy)
		}
	}

	if slug := util.NormalizeTagSlug(text); slug != "" {
		slugPrefix := bleve.NewPrefixQuery(slug)
		slugPrefix.SetField("slug")
		slugPrefix.SetBoost(2)
		queries = append(queries, slugPrefix)
	}

	return bleve.NewDisjunctionQuery(queries...)
}

// HasSlug reports whether a tag with the given slug is indexed.
func (t *TagIndex) HasSlug(ctx context.Context, slug string) (bool, error) {
	if slug == "" {
		return false, nil
	}
	q := bleve.NewTermQuery(slug)
	q.SetField("slug")

	t.mu.RLock()
	defer t.mu.RUnlock()

	res, err := t.index.SearchInContext(ctx, bleve.NewSearchRequestOptions(q, 1, 0, false))
	if err != nil {
		return false, fmt.Errorf("search tags: %w", err)
	}
	return res.Total > 0, nil
}

// Count returns the number of indexed tags.
func (t *TagIndex) Count() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n, _ := t.index.DocCount()
	return n
}

// Close releases the index.
func (t *TagIndex) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.index.Close()
}
