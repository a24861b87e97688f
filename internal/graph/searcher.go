package graph

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dominikbraun/graph"
)

// ErrNotFound is returned when a query target is not in the call graph.
var ErrNotFound = errors.New("function not found in call graph")

// QueryOperation represents the type of graph query to perform.
type QueryOperation string

const (
	OperationCallers QueryOperation = "callers"
	OperationCallees QueryOperation = "callees"
	OperationPath    QueryOperation = "path"
)

// Query defaults and limits
const (
	DefaultDepth      = 1
	DefaultMaxResults = 100
	MaxDepth          = 10
	MaxResults        = 500
)

// QueryRequest represents a call graph query.
type QueryRequest struct {
	Operation  QueryOperation // Type of query
	Target     string         // Function identity (file_path:line:name)
	To         string         // For path: destination identity
	Depth      int            // Traversal depth (default: 1)
	MaxResults int            // Maximum number of results (default: 100)
}

// QueryResponse represents the response to a call graph query.
type QueryResponse struct {
	Operation     string        `json:"operation"`
	Target        string        `json:"target"`
	Results       []QueryResult `json:"results"`
	TotalFound    int           `json:"total_found"`
	TotalReturned int           `json:"total_returned"`
	Truncated     bool          `json:"truncated"`
	TookMs        int           `json:"took_ms"`
}

// QueryResult is one function reached by a query.
type QueryResult struct {
	ID        string `json:"id"`
	FilePath  string `json:"file_path"`
	Line      int    `json:"line"`
	Name      string `json:"name"`
	CallCount int    `json:"call_count"`
	Depth     int    `json:"depth"` // Distance from target; position for path results
}

// Searcher answers caller/callee/path questions over a call graph.
type Searcher interface {
	Query(ctx context.Context, req *QueryRequest) (*QueryResponse, error)
}

// searcher keeps a directed graph for path finding plus reverse indexes for O(1) neighbor lookups.
type searcher struct {
	registry *Registry
	graph    graph.Graph[string, FunctionID]
	callers  map[string][]string // function -> distinct callers
	callees  map[string][]string // function -> distinct callees
}

type resultWithDepth struct {
	id    string
	depth int
}

// NewSearcher indexes a registry for querying. The registry must not be modified afterwards.
func NewSearcher(r *Registry) (Searcher, error) {
	s := &searcher{
		registry: r,
		graph:    graph.New(func(id FunctionID) string { return id.String() }, graph.Directed()),
		callers:  make(map[string][]string),
		callees:  make(map[string][]string),
	}

	functions := r.Functions()
	for _, fn := range functions {
		if err := s.graph.AddVertex(fn.FunctionID); err != nil && !errors.Is(err, graph.ErrVertexAlreadyExists) {
			return nil, fmt.Errorf("failed to add function %s: %w", fn.String(), err)
		}
	}

	for _, fn := range functions {
		from := fn.String()
		for _, to := range fn.Calls {
			err := s.graph.AddEdge(from, to, graph.EdgeWeight(1))
			if errors.Is(err, graph.ErrEdgeAlreadyExists) {
				continue // repeated calls collapse to one edge
			}
			if err != nil {
				// Callee missing from the functions map (hand-edited file); skip it.
				continue
			}
			s.callees[from] = append(s.callees[from], to)
			s.callers[to] = append(s.callers[to], from)
		}
	}

	return s, nil
}

// Query executes a call graph query.
func (s *searcher) Query(ctx context.Context, req *QueryRequest) (*QueryResponse, error) {
	start := time.Now()

	if req.Depth <= 0 {
		req.Depth = DefaultDepth
	}
	if req.Depth > MaxDepth {
		req.Depth = MaxDepth
	}
	if req.MaxResults <= 0 {
		req.MaxResults = DefaultMaxResults
	}
	if req.MaxResults > MaxResults {
		req.MaxResults = MaxResults
	}

	if _, ok := s.registry.Function(req.Target); !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, req.Target)
	}

	var found []resultWithDepth
	switch req.Operation {
	case OperationCallers:
		found = traverse(s.callers, req.Target, req.Depth)
	case OperationCallees:
		found = traverse(s.callees, req.Target, req.Depth)
	case OperationPath:
		path, err := s.shortestPath(req.Target, req.To)
		if err != nil {
			return nil, err
		}
		found = path
	default:
		return nil, fmt.Errorf("unsupported operation: %s", req.Operation)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := []QueryResult{}
	for _, rd := range found {
		if len(results) >= req.MaxResults {
			break
		}
		fn, ok := s.registry.Function(rd.id)
		if !ok {
			continue
		}
		results = append(results, QueryResult{
			ID:        rd.id,
			FilePath:  fn.FilePath,
			Line:      fn.Line,
			Name:      fn.Name,
			CallCount: fn.CallCount,
			Depth:     rd.depth,
		})
	}

	return &QueryResponse{
		Operation:     string(req.Operation),
		Target:        req.Target,
		Results:       results,
		TotalFound:    len(found),
		TotalReturned: len(results),
		Truncated:     len(results) < len(found),
		TookMs:        int(time.Since(start).Milliseconds()),
	}, nil
}

// shortestPath returns the fewest-hops call chain from one function to another.
func (s *searcher) shortestPath(from, to string) ([]resultWithDepth, error) {
	if _, ok := s.registry.Function(to); !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, to)
	}

	ids, err := graph.ShortestPath(s.graph, from, to)
	if errors.Is(err, graph.ErrTargetNotReachable) {
		return []resultWithDepth{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to compute path: %w", err)
	}

	path := make([]resultWithDepth, 0, len(ids))
	for i, id := range ids {
		path = append(path, resultWithDepth{id: id, depth: i})
	}
	return path, nil
}

// traverse walks an adjacency index breadth-first up to depth, reporting each
// function once at the shallowest depth it was reached.
func traverse(index map[string][]string, target string, depth int) []resultWithDepth {
	results := []resultWithDepth{}
	visited := map[string]bool{target: true}
	frontier := []string{target}

	for level := 1; level <= depth && len(frontier) > 0; level++ {
		var next []string
		for _, id := range frontier {
			for _, neighbor := range index[id] {
				if visited[neighbor] {
					continue
				}
				visited[neighbor] = true
				results = append(results, resultWithDepth{id: neighbor, depth: level})
				next = append(next, neighbor)
			}
		}
		frontier = next
	}

	return results
}
