package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyLoadedGraphs(t *testing.T) {
	for name, payload := range map[string][]byte{
		"line":  lineGraphPayload(),
		"grid":  gridPayload(4, 7),
		"empty": overpassDoc(),
	} {
		t.Run(name, func(t *testing.T) {
			g := loadGraph(t, payload)
			ok, reason := g.Verify()
			assert.True(t, ok)
			assert.Empty(t, reason)
		})
	}
}

func TestVerifyDetectsTampering(t *testing.T) {
	for _, tc := range []struct {
		name   string
		tamper func(g *RoadGraph)
		reason string
	}{
		{
			name: "missing reverse edge",
			tamper: func(g *RoadGraph) {
				g.edges[2] = []Edge{g.edges[2][0]}
				if g.edges[2][0].ToID == 1 {
					g.edges[2][0] = Edge{FromID: 2, ToID: 3, Distance: g.cache[segmentKey{2, 3}]}
				}
			},
			reason: "no matching reverse edge",
		},
		{
			name:   "zero weight",
			tamper: func(g *RoadGraph) { g.edges[1][0].Distance = 0 },
			reason: "out-of-range weight",
		},
		{
			name:   "huge weight",
			tamper: func(g *RoadGraph) { g.edges[1][0].Distance = 2e6 },
			reason: "out-of-range weight",
		},
		{
			name:   "asymmetric weight",
			tamper: func(g *RoadGraph) { g.edges[1][0].Distance += 0.5 },
			reason: "no matching reverse edge",
		},
		{
			name: "dangling destination",
			tamper: func(g *RoadGraph) {
				g.edges[3] = append(g.edges[3], Edge{FromID: 3, ToID: 77, Distance: 10})
			},
			reason: "unknown destination node",
		},
		{
			name: "unknown source",
			tamper: func(g *RoadGraph) {
				g.edges[88] = []Edge{{FromID: 88, ToID: 1, Distance: 10}}
			},
			reason: "unknown source node",
		},
		{
			name:   "invalid node latitude",
			tamper: func(g *RoadGraph) { g.nodes[2].Latitude = 120 },
			reason: "invalid coordinate",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			g := loadGraph(t, lineGraphPayload())
			tc.tamper(g)

			ok, reason := g.Verify()
			assert.False(t, ok)
			assert.Contains(t, reason, tc.reason)
		})
	}
}

func TestVerifyToleratesRoundingAsymmetry(t *testing.T) {
	g := loadGraph(t, lineGraphPayload())
	g.edges[1][0].Distance += 0.001

	ok, reason := g.Verify()
	assert.True(t, ok, reason)
}

func TestSummary(t *testing.T) {
	g := loadGraph(t, lineGraphPayload())

	s := g.Summary()
	assert.Equal(t, 3, s.NodeCount)
	assert.Equal(t, 3, s.EdgeTableSize)
	assert.Equal(t, 4, s.EdgeCount)
	assert.Equal(t, 4, s.CacheSize)
	assert.Equal(t, 2, s.MaxOutDegree)
	assert.InDelta(t, 4.0/3.0, s.AverageOutDegree, 1e-12)

	g.Clear()
	require.Equal(t, Summary{}, g.Summary())
}
