package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
)

const (
	// DefaultFindLimit is the number of matches returned when no limit is given.
	DefaultFindLimit = 20
	// MaxFindLimit caps the number of matches per request.
	MaxFindLimit = 200
)

// FindResult is one function matched by name or file path.
type FindResult struct {
	ID        string  `json:"id"`
	FilePath  string  `json:"file_path"`
	Line      int     `json:"line"`
	Name      string  `json:"name"`
	CallCount int     `json:"call_count"`
	Score     float64 `json:"score"`
}

// Finder looks up function ids from partial names or paths. Queries against
// the graph require exact ids; a Finder is how callers discover them.
type Finder interface {
	Find(ctx context.Context, text string, limit int) ([]FindResult, error)
	Close() error
}

type finder struct {
	registry *Registry
	index    bleve.Index
}

// NewFinder indexes every function of r in an in-memory bleve index.
func NewFinder(ctx context.Context, r *Registry) (Finder, error) {
	index, err := bleve.NewMemOnly(buildFinderMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create function index: %w", err)
	}

	if err := indexFunctions(ctx, index, r.Functions()); err != nil {
		index.Close()
		return nil, fmt.Errorf("failed to index functions: %w", err)
	}

	return &finder{registry: r, index: index}, nil
}

// buildFinderMapping stores lower-cased names and paths as single keyword terms
// so that exact and substring matches can both be expressed.
func buildFinderMapping() *mapping.IndexMappingImpl {
	indexMapping := bleve.NewIndexMapping()

	keyword := func() *mapping.FieldMapping {
		m := bleve.NewTextFieldMapping()
		m.Analyzer = "keyword"
		m.Store = false
		m.Index = true
		return m
	}

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("name", keyword())
	docMapping.AddFieldMappingsAt("file_path", keyword())

	indexMapping.DefaultMapping = docMapping
	return indexMapping
}

func indexFunctions(ctx context.Context, index bleve.Index, functions []*Function) error {
	const batchSize = 1000

	batch := index.NewBatch()
	for i, fn := range functions {
		if i%batchSize == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		doc := map[string]interface{}{
			"name":      strings.ToLower(fn.Name),
			"file_path": strings.ToLower(fn.FilePath),
		}
		if err := batch.Index(fn.String(), doc); err != nil {
			return fmt.Errorf("failed to add %s to batch: %w", fn.String(), err)
		}

		if batch.Size() >= batchSize {
			if err := index.Batch(batch); err != nil {
				return fmt.Errorf("failed to execute batch: %w", err)
			}
			batch = index.NewBatch()
		}
	}

	if batch.Size() > 0 {
		if err := index.Batch(batch); err != nil {
			return fmt.Errorf("failed to execute final batch: %w", err)
		}
	}
	return nil
}

// Find ranks exact name matches first, then names containing text, then file
// paths containing text. Ties are broken by id. '*' and '?' in text act as wildcards.
func (f *finder) Find(ctx context.Context, text string, limit int) ([]FindResult, error) {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return nil, fmt.Errorf("search text cannot be empty")
	}
	if limit <= 0 {
		limit = DefaultFindLimit
	}
	if limit > MaxFindLimit {
		limit = MaxFindLimit
	}

	exact := bleve.NewTermQuery(text)
	exact.SetField("name")
	exact.SetBoost(10)

	pattern := "*" + text + "*"
	inName := bleve.NewWildcardQuery(pattern)
	inName.SetField("name")
	inName.SetBoost(3)

	inPath := bleve.NewWildcardQuery(pattern)
	inPath.SetField("file_path")

	req := bleve.NewSearchRequestOptions(bleve.NewDisjunctionQuery(exact, inName, inPath), limit, 0, false)
	req.SortBy([]string{"-_score", "_id"})

	res, err := f.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("function search failed: %w", err)
	}

	results := make([]FindResult, 0, len(res.Hits))
	for _, hit := range res.Hits {
		fn, ok := f.registry.Function(hit.ID)
		if !ok {
			continue
		}
		results = append(results, FindResult{
			ID:        hit.ID,
			FilePath:  fn.FilePath,
			Line:      fn.Line,
			Name:      fn.Name,
			CallCount: fn.CallCount,
			Score:     hit.Score,
		})
	}
	return results, nil
}

func (f *finder) Close() error {
	return f.index.Close()
}
