package routing

import (
	"fmt"
	"math"
	"sort"
)

const (
	MAX_EDGE_DISTANCE_M  = 1000000.0
	SYMMETRY_TOLERANCE_M = 0.01
)

// Summary is an observability snapshot of a loaded graph.
type Summary struct {
	NodeCount        int     `json:"node_count"`
	EdgeTableSize    int     `json:"edge_table_size"`
	EdgeCount        int     `json:"edge_count"`
	CacheSize        int     `json:"cache_size"`
	AverageOutDegree float64 `json:"average_out_degree"`
	MaxOutDegree     int     `json:"max_out_degree"`
}

func (g *RoadGraph) Summary() Summary {
	s := Summary{
		NodeCount:     len(g.nodes),
		EdgeTableSize: len(g.edges),
		CacheSize:     len(g.cache),
	}
	for _, out := range g.edges {
		s.EdgeCount += len(out)
		if len(out) > s.MaxOutDegree {
			s.MaxOutDegree = len(out)
		}
	}
	if s.NodeCount > 0 {
		s.AverageOutDegree = float64(s.EdgeCount) / float64(s.NodeCount)
	}
	return s
}

// Verify checks the structural invariants of the graph and reports the first
// violation. A failure is logged, never returned as an error.
func (g *RoadGraph) Verify() (bool, string) {
	reason := g.firstViolation()
	if reason != "" {
		g.logger.Warn().Str("reason", reason).Msg("graph verification failed")
		return false, reason
	}
	g.logger.Debug().Int("nodes", len(g.nodes)).Msg("graph verification passed")
	return true, ""
}

func (g *RoadGraph) firstViolation() string {
	for _, id := range sortedIDs(g.nodes) {
		n := g.nodes[id]
		if !validLatLon(n.Latitude, n.Longitude) {
			return fmt.Sprintf("node %d has invalid coordinate lat=%f lon=%f", id, n.Latitude, n.Longitude)
		}
	}

	for _, from := range sortedIDs(g.edges) {
		if _, ok := g.nodes[from]; !ok {
			return fmt.Sprintf("edge table references unknown source node %d", from)
		}
		for _, edge := range g.edges[from] {
			if _, ok := g.nodes[edge.ToID]; !ok {
				return fmt.Sprintf("edge %d -> %d references unknown destination node", from, edge.ToID)
			}
			if !(edge.Distance > 0) || edge.Distance >= MAX_EDGE_DISTANCE_M {
				return fmt.Sprintf("edge %d -> %d has out-of-range weight %f", from, edge.ToID, edge.Distance)
			}
			if !g.hasReverse(from, edge) {
				return fmt.Sprintf("edge %d -> %d has no matching reverse edge", from, edge.ToID)
			}
		}
	}
	return ""
}

func (g *RoadGraph) hasReverse(from int64, edge Edge) bool {
	for _, back := range g.edges[edge.ToID] {
		if back.ToID == from && math.Abs(back.Distance-edge.Distance) < SYMMETRY_TOLERANCE_M {
			return true
		}
	}
	return false
}

func sortedIDs[V any](m map[int64]V) []int64 {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
