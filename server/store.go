package server

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/tinylru"

	"osm-route-server/overpass"
	"osm-route-server/routing"
)

// Entry is a published graph. Its graph is never reloaded, so readers may
// share it freely.
type Entry struct {
	Key          string              `json:"key"`
	Bounds       routing.BoundingBox `json:"bounds"`
	Graph        *routing.RoadGraph  `json:"-"`
	Summary      routing.Summary     `json:"summary"`
	LoadedAt     time.Time           `json:"loaded_at"`
	Verified     bool                `json:"verified"`
	VerifyReason string              `json:"verify_reason,omitempty"`
}

// LoadError wraps a failure to fetch or parse the OSM data for a box.
type LoadError struct {
	Bounds routing.BoundingBox
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load graph for %s: %v", e.Bounds.Key(), e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// GraphStore builds one RoadGraph per bounding box and keeps the most
// recently used ones.
type GraphStore struct {
	source       overpass.Source
	verifyOnLoad bool
	logger       zerolog.Logger
	graphs       tinylru.LRU
}

func NewGraphStore(source overpass.Source, cacheSize int, verifyOnLoad bool, logger zerolog.Logger) *GraphStore {
	s := &GraphStore{
		source:       source,
		verifyOnLoad: verifyOnLoad,
		logger:       logger,
	}
	s.graphs.Resize(cacheSize)
	return s
}

// Graph returns the graph covering bbox, loading it on a miss. The boolean
// reports whether it came from the cache.
func (s *GraphStore) Graph(ctx context.Context, bbox routing.BoundingBox) (*Entry, bool, error) {
	key := bbox.Key()
	if v, ok := s.graphs.Get(key); ok {
		return v.(*Entry), true, nil
	}

	entry, err := s.load(ctx, key, bbox)
	if err != nil {
		return nil, false, err
	}
	// concurrent misses on the same key both load; the last one published wins
	s.graphs.Set(key, entry)
	return entry, false, nil
}

func (s *GraphStore) load(ctx context.Context, key string, bbox routing.BoundingBox) (*Entry, error) {
	started := time.Now()

	data, err := s.source.Fetch(ctx, bbox)
	if err != nil {
		return nil, &LoadError{Bounds: bbox, Err: err}
	}

	g := routing.NewRoadGraph(s.logger.With().Str("bbox", key).Logger())
	if err := g.LoadFromJSON(data); err != nil {
		return nil, &LoadError{Bounds: bbox, Err: err}
	}

	entry := &Entry{
		Key:      key,
		Bounds:   bbox,
		Graph:    g,
		Summary:  g.Summary(),
		LoadedAt: time.Now(),
	}
	if s.verifyOnLoad {
		entry.Verified, entry.VerifyReason = g.Verify()
	}

	s.logger.Info().
		Str("bbox", key).
		Int("nodes", entry.Summary.NodeCount).
		Int("edges", entry.Summary.EdgeCount).
		Bool("verified", entry.Verified).
		Dur("took", time.Since(started)).
		Msg("graph loaded")
	return entry, nil
}

// Lookup returns a cached graph by key without loading anything.
func (s *GraphStore) Lookup(key string) (*Entry, bool) {
	v, ok := s.graphs.Get(key)
	if !ok {
		return nil, false
	}
	return v.(*Entry), true
}

// Entries lists the cached graphs ordered by key.
func (s *GraphStore) Entries() []*Entry {
	entries := make([]*Entry, 0, s.graphs.Len())
	s.graphs.Range(func(_, v interface{}) bool {
		entries = append(entries, v.(*Entry))
		return true
	})
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries
}
