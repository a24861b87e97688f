package mcp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/maypok86/otter"

	"github.com/mvp-joe/solana-fcg/internal/analysis"
	"github.com/mvp-joe/solana-fcg/internal/graph"
)

// LoadMetrics tracks how call graph files were loaded by the server.
// All methods are safe for concurrent use.
type LoadMetrics struct {
	mu             sync.RWMutex
	lastLoadTime   time.Time
	lastLoadPath   string
	lastLoadError  string
	totalLoads     int64
	failedLoads    int64
	cacheHits      int64
	lastFunctions  int
	lastLoadLength time.Duration
}

// MetricsSnapshot is an immutable copy of LoadMetrics.
type MetricsSnapshot struct {
	LastLoadTime     time.Time `json:"last_load_time"`
	LastLoadPath     string    `json:"last_load_path,omitempty"`
	LastLoadError    string    `json:"last_load_error,omitempty"`
	LastLoadMs       int64     `json:"last_load_ms"`
	LastFunctions    int       `json:"last_functions"`
	TotalLoads       int64     `json:"total_loads"`
	FailedLoads      int64     `json:"failed_loads"`
	CacheHits        int64     `json:"cache_hits"`
	CachedGraphCount int       `json:"cached_graphs"`
	EvictedGraphs    int64     `json:"evicted_graphs"`
}

func (m *LoadMetrics) recordLoad(path string, d time.Duration, err error, functions int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastLoadTime = time.Now()
	m.lastLoadPath = path
	m.lastLoadLength = d
	m.totalLoads++
	if err != nil {
		m.failedLoads++
		m.lastLoadError = err.Error()
		return
	}
	m.lastLoadError = ""
	m.lastFunctions = functions
}

func (m *LoadMetrics) recordHit() {
	m.mu.Lock()
	m.cacheHits++
	m.mu.Unlock()
}

// Snapshot returns the current counters.
func (m *LoadMetrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return MetricsSnapshot{
		LastLoadTime:  m.lastLoadTime,
		LastLoadPath:  m.lastLoadPath,
		LastLoadError: m.lastLoadError,
		LastLoadMs:    m.lastLoadLength.Milliseconds(),
		LastFunctions: m.lastFunctions,
		TotalLoads:    m.totalLoads,
		FailedLoads:   m.failedLoads,
		CacheHits:     m.cacheHits,
	}
}

// maxCachedGraphs bounds the number of call graph files held in memory.
const maxCachedGraphs = 32

type cachedGraph struct {
	modTime  time.Time
	size     int64
	registry *graph.Registry
	searcher graph.Searcher

	// finderMu guards the lazily built finder. Searches hold it shared, so the
	// index is only closed once no search is using it.
	finderMu  sync.RWMutex
	finder    graph.Finder
	finderErr error
	closed    bool
}

func (e *cachedGraph) fresh(info os.FileInfo) bool {
	return e.modTime.Equal(info.ModTime()) && e.size == info.Size()
}

func (e *cachedGraph) ensureFinder(ctx context.Context) error {
	e.finderMu.Lock()
	defer e.finderMu.Unlock()

	if e.closed || e.finder != nil || e.finderErr != nil {
		return e.finderErr
	}
	e.finder, e.finderErr = graph.NewFinder(context.WithoutCancel(ctx), e.registry)
	return e.finderErr
}

// find searches the entry's finder. It reports false when the entry was
// evicted, in which case the caller should fetch a fresh entry.
func (e *cachedGraph) find(ctx context.Context, text string, limit int) ([]graph.FindResult, bool, error) {
	if err := e.ensureFinder(ctx); err != nil {
		return nil, true, err
	}

	e.finderMu.RLock()
	defer e.finderMu.RUnlock()

	if e.closed {
		return nil, false, nil
	}
	results, err := e.finder.Find(ctx, text, limit)
	return results, true, err
}

// closeFinder waits for running searches and releases the finder index.
func (e *cachedGraph) closeFinder() {
	e.finderMu.Lock()
	defer e.finderMu.Unlock()

	e.closed = true
	if e.finder != nil {
		e.finder.Close()
		e.finder = nil
	}
}

var errGraphEvicted = errors.New("call graph was unloaded repeatedly, retry the request")

// findAttempts bounds retries when entries are replaced during a search.
const findAttempts = 5

// graphCache keeps one searcher per call graph file and rebuilds it when the
// file's modification time or size changes.
type graphCache struct {
	mu      sync.Mutex
	entries otter.Cache[string, *cachedGraph]
	metrics *LoadMetrics
}

func newGraphCache() (*graphCache, error) {
	entries, err := otter.MustBuilder[string, *cachedGraph](maxCachedGraphs).
		CollectStats().
		DeletionListener(func(_ string, e *cachedGraph, _ otter.DeletionCause) {
			e.closeFinder()
		}).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create graph cache: %w", err)
	}
	return &graphCache{entries: entries, metrics: &LoadMetrics{}}, nil
}

// entry returns the cached graph for the call graph file at path, loading it
// when absent or stale.
func (c *graphCache) entry(path string) (*cachedGraph, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("call graph not found: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries.Get(abs); ok && e.fresh(info) {
		c.metrics.recordHit()
		return e, nil
	}

	start := time.Now()
	reg, err := analysis.LoadCallGraph(abs)
	if err != nil {
		c.metrics.recordLoad(abs, time.Since(start), err, 0)
		return nil, err
	}
	s, err := graph.NewSearcher(reg)
	if err != nil {
		c.metrics.recordLoad(abs, time.Since(start), err, 0)
		return nil, err
	}
	c.metrics.recordLoad(abs, time.Since(start), nil, reg.Len())

	e := &cachedGraph{modTime: info.ModTime(), size: info.Size(), registry: reg, searcher: s}
	c.entries.Set(abs, e)
	return e, nil
}

// searcher returns a searcher for the call graph file at path.
func (c *graphCache) searcher(path string) (graph.Searcher, error) {
	e, err := c.entry(path)
	if err != nil {
		return nil, err
	}
	return e.searcher, nil
}

// find runs a function search against the call graph file at path. The finder
// index is built on first use of each loaded graph.
func (c *graphCache) find(ctx context.Context, path, text string, limit int) ([]graph.FindResult, error) {
	for attempt := 0; attempt < findAttempts; attempt++ {
		e, err := c.entry(path)
		if err != nil {
			return nil, err
		}
		results, live, err := e.find(ctx, text, limit)
		if live {
			return results, err
		}
	}
	return nil, errGraphEvicted
}

// snapshot returns the metrics with the current cache size filled in.
func (c *graphCache) snapshot() MetricsSnapshot {
	snap := c.metrics.Snapshot()
	snap.CachedGraphCount = c.entries.Size()
	snap.EvictedGraphs = c.entries.Stats().EvictedCount()
	return snap
}

func (c *graphCache) close() {
	c.entries.Close()
}
