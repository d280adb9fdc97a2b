package routing

import (
	"math"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

// Node represents an OSM node loaded into the graph.
type Node struct {
	ID        int64   `json:"id"`
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

func (n Node) Coordinate() Coordinate {
	return Coordinate{Lat: n.Latitude, Lon: n.Longitude}
}

// Edge is one direction of an undirected road segment.
type Edge struct {
	FromID   int64
	ToID     int64
	Distance float64 // meters
}

type segmentKey struct {
	from int64
	to   int64
}

// RoadGraph is an undirected road network built from OSM elements.
// A graph is loaded once and then only read; LoadFromJSON must not run
// concurrently with any other method on the same instance.
type RoadGraph struct {
	nodes  map[int64]*Node
	edges  map[int64][]Edge
	cache  map[segmentKey]float64
	logger zerolog.Logger
}

func NewRoadGraph(logger zerolog.Logger) *RoadGraph {
	return &RoadGraph{
		nodes:  make(map[int64]*Node),
		edges:  make(map[int64][]Edge),
		cache:  make(map[segmentKey]float64),
		logger: logger,
	}
}

// Clear drops all nodes, edges and cached distances.
func (g *RoadGraph) Clear() {
	g.nodes = make(map[int64]*Node)
	g.edges = make(map[int64][]Edge)
	g.cache = make(map[segmentKey]float64)
}

// LoadFromJSON replaces the graph with the nodes and ways of an OSM payload.
// The payload is either an element array or an Overpass document holding one
// under "elements". On error the graph is left empty.
func (g *RoadGraph) LoadFromJSON(data []byte) error {
	g.Clear()

	elements, err := elementsOf(data)
	if err != nil {
		return err
	}

	if err := g.loadNodes(elements); err != nil {
		g.Clear()
		return err
	}
	skipped, err := g.loadWays(elements)
	if err != nil {
		g.Clear()
		return err
	}

	g.logger.Debug().
		Int("nodes", len(g.nodes)).
		Int("edges", g.EdgeCount()).
		Int("skipped_segments", skipped).
		Msg("road graph loaded")
	return nil
}

func elementsOf(data []byte) ([]gjson.Result, error) {
	if !gjson.ValidBytes(data) {
		return nil, malformed(-1, "payload is not valid JSON")
	}
	root := gjson.ParseBytes(data)
	if root.IsObject() {
		root = root.Get("elements")
	}
	if !root.IsArray() {
		return nil, malformed(-1, "expected an element array or an object with \"elements\"")
	}
	return root.Array(), nil
}

func (g *RoadGraph) loadNodes(elements []gjson.Result) error {
	for i, element := range elements {
		if !element.IsObject() {
			return malformed(i, "element is not an object")
		}
		kind := element.Get("type")
		if kind.Type != gjson.String {
			return malformed(i, "%v", &fieldError{name: "type", raw: kind.Raw, want: "string"})
		}
		if kind.String() != "node" {
			continue
		}

		id, err := integerField(element, "id")
		if err != nil {
			return malformed(i, "%v", err)
		}
		lat, err := numberField(element, "lat")
		if err != nil {
			return malformed(i, "node %d: %v", id, err)
		}
		lon, err := numberField(element, "lon")
		if err != nil {
			return malformed(i, "node %d: %v", id, err)
		}
		if !validLatLon(lat, lon) {
			return &CoordinateError{NodeID: id, Lat: lat, Lon: lon}
		}

		g.nodes[id] = &Node{ID: id, Latitude: lat, Longitude: lon}
	}
	return nil
}

func (g *RoadGraph) loadWays(elements []gjson.Result) (int, error) {
	skipped := 0
	for i, element := range elements {
		if element.Get("type").String() != "way" {
			continue
		}

		wayID, err := integerField(element, "id")
		if err != nil {
			return skipped, malformed(i, "%v", err)
		}
		refs := element.Get("nodes")
		if !refs.IsArray() {
			return skipped, malformed(i, "way %d: missing \"nodes\" array", wayID)
		}

		ids := make([]int64, 0, len(refs.Array()))
		for _, ref := range refs.Array() {
			id, err := parseInteger(ref)
			if err != nil {
				return skipped, malformed(i, "way %d: node reference: %v", wayID, err)
			}
			ids = append(ids, id)
		}

		for j := 1; j < len(ids); j++ {
			if !g.addSegment(ids[j-1], ids[j]) {
				skipped++
			}
		}
	}
	return skipped, nil
}

// addSegment inserts both directions of a way segment. Segments that reference
// nodes outside the node table are dropped: ways routinely leave the fetched area.
func (g *RoadGraph) addSegment(from, to int64) bool {
	a, okA := g.nodes[from]
	b, okB := g.nodes[to]
	if !okA || !okB || from == to {
		return false
	}
	if _, seen := g.cache[segmentKey{from, to}]; seen {
		return true
	}

	distance := Distance(a.Coordinate(), b.Coordinate())
	g.cache[segmentKey{from, to}] = distance
	g.cache[segmentKey{to, from}] = distance

	g.edges[from] = append(g.edges[from], Edge{FromID: from, ToID: to, Distance: distance})
	g.edges[to] = append(g.edges[to], Edge{FromID: to, ToID: from, Distance: distance})
	return true
}

func integerField(element gjson.Result, name string) (int64, error) {
	field := element.Get(name)
	id, err := parseInteger(field)
	if err != nil {
		return 0, &fieldError{name: name, raw: field.Raw, want: "integer"}
	}
	return id, nil
}

// parseInteger reads the raw token so 64-bit ids survive without float rounding.
func parseInteger(field gjson.Result) (int64, error) {
	if field.Type != gjson.Number {
		return 0, &fieldError{raw: field.Raw, want: "integer"}
	}
	id, err := strconv.ParseInt(field.Raw, 10, 64)
	if err != nil {
		return 0, &fieldError{raw: field.Raw, want: "integer"}
	}
	return id, nil
}

func numberField(element gjson.Result, name string) (float64, error) {
	field := element.Get(name)
	if field.Type != gjson.Number {
		return 0, &fieldError{name: name, raw: field.Raw, want: "number"}
	}
	// overflowing literals such as 1e999 come back as ±Inf and fail the range check
	return field.Float(), nil
}

type fieldError struct {
	name string
	raw  string
	want string
}

func (e *fieldError) Error() string {
	if e.raw == "" {
		if e.name == "" {
			return "missing " + e.want
		}
		return "missing field \"" + e.name + "\""
	}
	if e.name == "" {
		return "expected " + e.want + ", got " + e.raw
	}
	return "field \"" + e.name + "\": expected " + e.want + ", got " + e.raw
}

func (g *RoadGraph) Node(id int64) (Node, bool) {
	n, ok := g.nodes[id]
	if !ok {
		return Node{}, false
	}
	return *n, true
}

func (g *RoadGraph) HasNode(id int64) bool {
	_, ok := g.nodes[id]
	return ok
}

// Neighbors returns the outgoing edges of id. The slice must not be modified.
func (g *RoadGraph) Neighbors(id int64) []Edge {
	return g.edges[id]
}

func (g *RoadGraph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount is the number of directed edges, two per road segment.
func (g *RoadGraph) EdgeCount() int {
	count := 0
	for _, out := range g.edges {
		count += len(out)
	}
	return count
}

// AdjacencySize is the number of nodes with at least one outgoing edge.
func (g *RoadGraph) AdjacencySize() int {
	return len(g.edges)
}

func (g *RoadGraph) CacheSize() int {
	return len(g.cache)
}

// NearestNode returns the node closest to c. Ties go to the lower id so the
// answer does not depend on map iteration order.
func (g *RoadGraph) NearestNode(c Coordinate) (int64, float64, bool) {
	var nearest int64
	minDistance := math.Inf(1)
	found := false

	for id, node := range g.nodes {
		dist := Distance(c, node.Coordinate())
		if dist < minDistance || (dist == minDistance && id < nearest) {
			minDistance = dist
			nearest = id
			found = true
		}
	}
	return nearest, minDistance, found
}
