package routing

import (
	"container/heap"
	"fmt"
	"math"
)

type PriorityQueueItem struct {
	NodeID   int64
	Priority float64
	GScore   float64
	Index    int
}

type PriorityQueue []*PriorityQueueItem

func (pq PriorityQueue) Len() int { return len(pq) }

func (pq PriorityQueue) Less(i, j int) bool {
	return pq[i].Priority < pq[j].Priority
}

func (pq PriorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].Index = i
	pq[j].Index = j
}

func (pq *PriorityQueue) Push(x interface{}) {
	n := len(*pq)
	item := x.(*PriorityQueueItem)
	item.Index = n
	*pq = append(*pq, item)
}

func (pq *PriorityQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.Index = -1
	*pq = old[0 : n-1]
	return item
}

// Route is a shortest path together with its length.
type Route struct {
	NodeIDs        []int64 `json:"node_ids"`
	DistanceMeters float64 `json:"distance_m"`
}

// heuristic is admissible and consistent because edge weights are haversine
// distances between the same coordinates.
func (g *RoadGraph) heuristic(nodeID int64, goal Coordinate) float64 {
	node, ok := g.nodes[nodeID]
	if !ok {
		return 0
	}
	return Distance(node.Coordinate(), goal)
}

// FindPath returns the node ids of a shortest path from start to end, or an
// empty slice when either endpoint is unknown or no path exists.
func (g *RoadGraph) FindPath(start, end int64) []int64 {
	route, err := g.ShortestPath(start, end)
	if err != nil {
		return []int64{}
	}
	return route.NodeIDs
}

// ShortestPath runs A* from start to end. Unlike FindPath it tells an unknown
// endpoint (ErrUnknownEndpoint) apart from a disconnected pair (ErrNoPath).
func (g *RoadGraph) ShortestPath(start, end int64) (Route, error) {
	if _, ok := g.nodes[start]; !ok {
		return Route{}, fmt.Errorf("start node %d: %w", start, ErrUnknownEndpoint)
	}
	goalNode, ok := g.nodes[end]
	if !ok {
		return Route{}, fmt.Errorf("end node %d: %w", end, ErrUnknownEndpoint)
	}
	goal := goalNode.Coordinate()

	// absent key means +Inf
	gScore := map[int64]float64{start: 0}
	previous := make(map[int64]int64)

	openSet := &PriorityQueue{}
	heap.Init(openSet)
	heap.Push(openSet, &PriorityQueueItem{
		NodeID:   start,
		Priority: g.heuristic(start, goal),
		GScore:   0,
	})

	iterations := 0
	for openSet.Len() > 0 {
		current := heap.Pop(openSet).(*PriorityQueueItem)
		currentNode := current.NodeID

		// stale entry: the node was pushed again with a better score
		if current.GScore > gScore[currentNode] {
			continue
		}
		iterations++

		if currentNode == end {
			break
		}

		for _, edge := range g.edges[currentNode] {
			tentative := gScore[currentNode] + edge.Distance
			if existing, seen := gScore[edge.ToID]; seen && tentative >= existing {
				continue
			}
			gScore[edge.ToID] = tentative
			previous[edge.ToID] = currentNode
			heap.Push(openSet, &PriorityQueueItem{
				NodeID:   edge.ToID,
				Priority: tentative + g.heuristic(edge.ToID, goal),
				GScore:   tentative,
			})
		}
	}

	total, reached := gScore[end]
	if !reached || math.IsInf(total, 1) {
		g.logger.Debug().Int64("start", start).Int64("end", end).Int("iterations", iterations).Msg("no path found")
		return Route{}, fmt.Errorf("%d -> %d: %w", start, end, ErrNoPath)
	}

	path, ok := reconstructPath(previous, start, end)
	if !ok {
		g.logger.Warn().Int64("start", start).Int64("end", end).Msg("path reconstruction failed")
		return Route{}, fmt.Errorf("%d -> %d: broken predecessor chain: %w", start, end, ErrNoPath)
	}

	g.logger.Debug().
		Int64("start", start).
		Int64("end", end).
		Int("nodes", len(path)).
		Float64("distance_m", total).
		Int("iterations", iterations).
		Msg("path found")
	return Route{NodeIDs: path, DistanceMeters: total}, nil
}

func reconstructPath(previous map[int64]int64, start, end int64) ([]int64, bool) {
	path := []int64{end}
	current := end
	for current != start {
		prev, ok := previous[current]
		if !ok {
			return nil, false
		}
		path = append(path, prev)
		current = prev
		// a chain longer than the predecessor map has a cycle
		if len(path) > len(previous)+1 {
			return nil, false
		}
	}

	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path, true
}

// PathDistance sums edge weights along ids. It returns false when two
// consecutive ids are not joined by an edge.
func (g *RoadGraph) PathDistance(ids []int64) (float64, bool) {
	total := 0.0
	for i := 1; i < len(ids); i++ {
		d, ok := g.edgeDistance(ids[i-1], ids[i])
		if !ok {
			return 0, false
		}
		total += d
	}
	return total, true
}

func (g *RoadGraph) edgeDistance(from, to int64) (float64, bool) {
	best := math.Inf(1)
	for _, edge := range g.edges[from] {
		if edge.ToID == to && edge.Distance < best {
			best = edge.Distance
		}
	}
	return best, !math.IsInf(best, 1)
}

// PathNodes resolves ids to nodes, skipping ids that are not in the graph.
func (g *RoadGraph) PathNodes(ids []int64) []Node {
	nodes := make([]Node, 0, len(ids))
	for _, id := range ids {
		if n, ok := g.nodes[id]; ok {
			nodes = append(nodes, *n)
		}
	}
	return nodes
}
