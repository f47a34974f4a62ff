// Package search provides keyword search over the classes and members of a
// summary, backed by an in-memory bleve index.
package search

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/mvp-joe/apisummarizer/internal/decl"
)

// Document kinds.
const (
	KindClass  = "class"
	KindField  = "field"
	KindMethod = "method"
)

const (
	DefaultLimit = 15
	MaxLimit     = 100
	batchSize    = 1000
)

// Options narrows a search. Zero values apply no filter.
type Options struct {
	Limit   int
	Kind    string // class, field or method
	Package string // Exact dotted package name
}

// Result is a single search hit.
type Result struct {
	ID         string   `json:"id"`
	Kind       string   `json:"kind"`
	Owner      string   `json:"owner"`
	Name       string   `json:"name"`
	Descriptor string   `json:"descriptor,omitempty"`
	Score      float64  `json:"score"`
	Highlights []string `json:"highlights,omitempty"`
}

// Index is a keyword index over declarations. Safe for concurrent use.
type Index struct {
	index   bleve.Index
	mu      sync.RWMutex
	members map[string][]string // class -> member document IDs
}

// NewIndex creates an in-memory index holding every class in summary.
func NewIndex(ctx context.Context, summary map[string]*decl.ClassDecl) (*Index, error) {
	index, err := bleve.NewMemOnly(buildMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create bleve index: %w", err)
	}
	idx := &Index{index: index, members: make(map[string][]string)}
	if err := idx.Update(ctx, summary, nil); err != nil {
		index.Close()
		return nil, fmt.Errorf("failed to index summary: %w", err)
	}
	return idx, nil
}

func keywordField(store, index bool) *mapping.FieldMapping {
	m := bleve.NewTextFieldMapping()
	m.Analyzer = "keyword"
	m.Store = store
	m.Index = index
	return m
}

// buildMapping indexes names for search and stores everything needed to
// rebuild a Result from a hit.
func buildMapping() *mapping.IndexMappingImpl {
	indexMapping := bleve.NewIndexMapping()

	// Name words split on camel case - primary search target
	textMapping := bleve.NewTextFieldMapping()
	textMapping.Analyzer = "standard"
	textMapping.Store = true
	textMapping.Index = true
	textMapping.IncludeTermVectors = true

	nameMapping := bleve.NewTextFieldMapping()
	nameMapping.Analyzer = "standard"
	nameMapping.Store = true
	nameMapping.Index = true

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("id", keywordField(true, false))
	docMapping.AddFieldMappingsAt("kind", keywordField(true, true))
	docMapping.AddFieldMappingsAt("owner", keywordField(true, true))
	docMapping.AddFieldMappingsAt("package", keywordField(true, true))
	docMapping.AddFieldMappingsAt("descriptor", keywordField(true, false))
	docMapping.AddFieldMappingsAt("name", nameMapping)
	docMapping.AddFieldMappingsAt("text", textMapping)

	indexMapping.DefaultMapping = docMapping
	return indexMapping
}

type document struct {
	id   string
	body map[string]any
}

func documents(c *decl.ClassDecl) []document {
	docs := []document{{
		id: c.BinaryName,
		body: map[string]any{
			"id":      c.BinaryName,
			"kind":    KindClass,
			"owner":   c.BinaryName,
			"package": c.PackageName,
			"name":    c.SimpleName,
			"text":    SplitWords(strings.ReplaceAll(c.BinaryName, "$", ".")),
		},
	}}
	for _, f := range c.Fields {
		id := c.BinaryName + "#" + f.Name
		docs = append(docs, document{id: id, body: map[string]any{
			"id":         id,
			"kind":       KindField,
			"owner":      c.BinaryName,
			"package":    c.PackageName,
			"name":       f.Name,
			"descriptor": f.Descriptor,
			"text":       SplitWords(f.Name),
		}})
	}
	for _, m := range c.Methods {
		id := c.BinaryName + "#" + m.Name + m.Descriptor
		docs = append(docs, document{id: id, body: map[string]any{
			"id":         id,
			"kind":       KindMethod,
			"owner":      c.BinaryName,
			"package":    c.PackageName,
			"name":       m.Name,
			"descriptor": m.Descriptor,
			"text":       SplitWords(m.Name),
		}})
	}
	return docs
}

// Update indexes the classes in added, replacing earlier versions, and drops
// the classes named in deleted together with their members.
func (i *Index) Update(ctx context.Context, added map[string]*decl.ClassDecl, deleted []string) error {
	names := make([]string, 0, len(added))
	for name := range added {
		names = append(names, name)
	}
	sort.Strings(names)

	i.mu.Lock()
	defer i.mu.Unlock()

	batch := i.index.NewBatch()
	flush := func() error {
		if batch.Size() == 0 {
			return nil
		}
		if err := i.index.Batch(batch); err != nil {
			return fmt.Errorf("failed to execute batch: %w", err)
		}
		batch = i.index.NewBatch()
		return nil
	}

	remove := func(class string) {
		batch.Delete(class)
		for _, id := range i.members[class] {
			batch.Delete(id)
		}
		delete(i.members, class)
	}
	for _, class := range deleted {
		remove(class)
	}

	for n, name := range names {
		if n%batchSize == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		remove(name)
		docs := documents(added[name])
		for _, d := range docs {
			if err := batch.Index(d.id, d.body); err != nil {
				return fmt.Errorf("failed to add %s to batch: %w", d.id, err)
			}
		}
		ids := make([]string, 0, len(docs)-1)
		for _, d := range docs[1:] {
			ids = append(ids, d.id)
		}
		i.members[name] = ids

		if batch.Size() >= batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	return flush()
}

// Search runs a bleve query-string query, e.g. "handle", "name:get*" or
// "+kind:method response".
func (i *Index) Search(ctx context.Context, queryStr string, opts *Options) ([]*Result, error) {
	if opts == nil {
		opts = &Options{}
	}
	limit := opts.Limit
	if limit <= 0 || limit > MaxLimit {
		limit = DefaultLimit
	}

	queries := []query.Query{bleve.NewQueryStringQuery(queryStr)}
	if opts.Kind != "" {
		q := bleve.NewTermQuery(opts.Kind)
		q.SetField("kind")
		queries = append(queries, q)
	}
	if opts.Package != "" {
		q := bleve.NewTermQuery(opts.Package)
		q.SetField("package")
		queries = append(queries, q)
	}

	var finalQuery query.Query = queries[0]
	if len(queries) > 1 {
		finalQuery = bleve.NewConjunctionQuery(queries...)
	}

	req := bleve.NewSearchRequestOptions(finalQuery, limit, 0, false)
	req.Fields = []string{"id", "kind", "owner", "name", "descriptor"}
	req.Highlight = bleve.NewHighlight()
	req.Highlight.Fields = []string{"text"}
	req.SortBy([]string{"-_score", "_id"})

	i.mu.RLock()
	res, err := i.index.SearchInContext(ctx, req)
	i.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("bleve search failed: %w", err)
	}

	results := make([]*Result, 0, len(res.Hits))
	for _, hit := range res.Hits {
		r := &Result{Score: hit.Score}
		r.ID, _ = hit.Fields["id"].(string)
		r.Kind, _ = hit.Fields["kind"].(string)
		r.Owner, _ = hit.Fields["owner"].(string)
		r.Name, _ = hit.Fields["name"].(string)
		r.Descriptor, _ = hit.Fields["descriptor"].(string)
		for _, snippets := range hit.Fragments {
			r.Highlights = append(r.Highlights, snippets...)
		}
		results = append(results, r)
	}
	return results, nil
}

// Count returns the number of indexed documents.
func (i *Index) Count() (uint64, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.index.DocCount()
}

func (i *Index) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.index.Close()
}

// SplitWords breaks an identifier or dotted name into space separated words
// at dots, underscores and camel case boundaries: "getHTTPResponse" becomes
// "get HTTP Response".
func SplitWords(s string) string {
	var words []string
	var cur []rune
	runes := []rune(s)
	flush := func() {
		if len(cur) > 0 {
			words = append(words, string(cur))
			cur = cur[:0]
		}
	}
	for i, r := range runes {
		switch {
		case r == '.' || r == '_' || r == '$' || r == '<' || r == '>':
			flush()
			continue
		case unicode.IsUpper(r) && len(cur) > 0:
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				flush()
			}
		}
		cur = append(cur, r)
	}
	flush()
	return strings.Join(words, " ")
}
