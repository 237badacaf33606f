package localstore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	bleveQuery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/pders01/reviewq/internal/content"
)

// Index is a full-text index over item names and descriptions.
type Index struct {
	idx bleve.Index
}

// NewIndex opens or creates the index at indexPath. An empty path keeps the
// index in memory.
func NewIndex(indexPath string) (*Index, error) {
	if indexPath == "" {
		idx, err := bleve.NewMemOnly(buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("creating in-memory index: %w", err)
		}
		return &Index{idx: idx}, nil
	}

	if err := os.MkdirAll(filepath.Dir(indexPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	idx, err := bleve.Open(indexPath)
	if err != nil {
		idx, err = bleve.New(indexPath, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("creating index: %w", err)
		}
	}
	return &Index{idx: idx}, nil
}

func buildIndexMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()
	im.DefaultAnalyzer = standard.Name

	dm := bleve.NewDocumentMapping()

	name := bleve.NewTextFieldMapping()
	name.Analyzer = standard.Name
	name.Store = false
	name.IncludeTermVectors = true

	desc := bleve.NewTextFieldMapping()
	desc.Analyzer = standard.Name
	desc.Store = false

	kind := bleve.NewTextFieldMapping()
	kind.Analyzer = keyword.Name
	kind.Store = true

	dm.AddFieldMappingsAt("name", name)
	dm.AddFieldMappingsAt("description", desc)
	dm.AddFieldMappingsAt("kind", kind)

	im.DefaultMapping = dm
	return im
}

func (x *Index) Close() error {
	return x.idx.Close()
}

// IndexRecords adds or replaces the given records in one batch.
func (x *Index) IndexRecords(records []Record) error {
	batch := x.idx.NewBatch()
	for _, rec := range records {
		if err := batch.Index(rec.Item.Identifier, document(rec.Kind, rec.Item)); err != nil {
			return fmt.Errorf("indexing %s: %w", rec.Item.Identifier, err)
		}
	}
	return x.idx.Batch(batch)
}

func document(kind Kind, item content.Item) map[string]any {
	return map[string]any{
		"kind":        string(kind),
		"name":        item.Name,
		"description": item.Description,
	}
}

// Remove drops an identifier from the index.
func (x *Index) Remove(id string) error {
	return x.idx.Delete(id)
}

// DocCount reports total documents in the index.
func (x *Index) DocCount() (int, error) {
	n, err := x.idx.DocCount()
	return int(n), err
}

// Match returns the identifiers of every document matching all terms of
// query in name or description. Terms match whole words or word prefixes.
func (x *Index) Match(query string) (map[string]float64, error) {
	terms := tokenize(query)
	if len(terms) == 0 {
		return map[string]float64{}, nil
	}

	perTerm := make([]bleveQuery.Query, 0, len(terms))
	for _, term := range terms {
		perTerm = append(perTerm, termQuery(term))
	}
	q := bleve.NewConjunctionQuery(perTerm...)

	total, err := x.idx.DocCount()
	if err != nil {
		return nil, err
	}

	req := bleve.NewSearchRequestOptions(q, int(total), 0, false)
	res, err := x.idx.Search(req)
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}

	hits := make(map[string]float64, len(res.Hits))
	for _, h := range res.Hits {
		hits[h.ID] = h.Score
	}
	return hits, nil
}

// termQuery matches one term against name^4 and description^2, exact or prefix.
func termQuery(term string) bleveQuery.Query {
	qn := bleve.NewMatchQuery(term)
	qn.SetField("name")
	qn.SetBoost(4.0)

	qnp := bleve.NewPrefixQuery(term)
	qnp.SetField("name")
	qnp.SetBoost(3.5)

	qd := bleve.NewMatchQuery(term)
	qd.SetField("description")
	qd.SetBoost(2.0)

	qdp := bleve.NewPrefixQuery(term)
	qdp.SetField("description")
	qdp.SetBoost(1.8)

	return bleve.NewDisjunctionQuery(qn, qnp, qd, qdp)
}

func tokenize(text string) []string {
	var terms []string
	current := strings.Builder{}

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			current.WriteRune(unicode.ToLower(r))
		} else if current.Len() > 0 {
			terms = append(terms, current.String())
			current.Reset()
		}
	}
	if current.Len() > 0 {
		terms = append(terms, current.String())
	}

	return terms
}
