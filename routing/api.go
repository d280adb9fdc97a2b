package routing

import (
	"errors"
	"fmt"
)

// LatLng is a corner as sent by the map client.
type LatLng struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

func (p LatLng) Coordinate() (Coordinate, error) {
	if p.Latitude == nil || p.Longitude == nil {
		return Coordinate{}, errors.New("each coordinate object must contain 'latitude' and 'longitude'")
	}
	return NewCoordinate(*p.Latitude, *p.Longitude)
}

// CornerPair validates that exactly two corners were sent.
func CornerPair(points []LatLng) (Coordinate, Coordinate, error) {
	if len(points) != 2 {
		return Coordinate{}, Coordinate{}, fmt.Errorf("expected exactly 2 coordinate objects, got %d", len(points))
	}
	a, err := points[0].Coordinate()
	if err != nil {
		return Coordinate{}, Coordinate{}, err
	}
	b, err := points[1].Coordinate()
	if err != nil {
		return Coordinate{}, Coordinate{}, err
	}
	return a, b, nil
}

type DirectPathRequest struct {
	StartNode   *int64   `json:"start-node" binding:"required"`
	EndNode     *int64   `json:"end-node" binding:"required"`
	BoundingBox []LatLng `json:"bounding-box" binding:"required"`
}

type RoutePoint struct {
	Lat *float64 `json:"lat" binding:"required"`
	Lon *float64 `json:"lon" binding:"required"`
}

func (p RoutePoint) Coordinate() (Coordinate, error) {
	if p.Lat == nil || p.Lon == nil {
		return Coordinate{}, errors.New("point must contain 'lat' and 'lon'")
	}
	return NewCoordinate(*p.Lat, *p.Lon)
}

type RouteRequest struct {
	Start *RoutePoint `json:"start" binding:"required"`
	End   *RoutePoint `json:"end" binding:"required"`
}

type BoundsResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Bounds  BoundingBox `json:"bounds"`
	State   Summary     `json:"state"`
}

type DirectPathResponse struct {
	Status    string      `json:"status"`
	Message   string      `json:"message"`
	Bounds    BoundingBox `json:"bounds"`
	Path      []Node      `json:"path"`
	DistanceM float64     `json:"distance_m"`
}

type RouteResponse struct {
	Status    string      `json:"status"`
	Bounds    BoundingBox `json:"bounds"`
	StartNode int64       `json:"start_node"`
	EndNode   int64       `json:"end_node"`
	Path      []Node      `json:"path"`
	DistanceM float64     `json:"distance_m"`
	State     Summary     `json:"state"`
}

func PrepareDirectPathResponse(g *RoadGraph, bounds BoundingBox, path []int64) DirectPathResponse {
	resp := DirectPathResponse{
		Status:  "success",
		Message: "Map data loaded successfully",
		Bounds:  bounds,
		Path:    g.PathNodes(path),
	}
	if len(path) == 0 {
		resp.Message = "No path found between the requested nodes"
		return resp
	}
	resp.DistanceM, _ = g.PathDistance(path)
	return resp
}

func PrepareRouteResponse(g *RoadGraph, bounds BoundingBox, route Route) RouteResponse {
	resp := RouteResponse{
		Status:    "success",
		Bounds:    bounds,
		Path:      g.PathNodes(route.NodeIDs),
		DistanceM: route.DistanceMeters,
		State:     g.Summary(),
	}
	if len(route.NodeIDs) > 0 {
		resp.StartNode = route.NodeIDs[0]
		resp.EndNode = route.NodeIDs[len(route.NodeIDs)-1]
	}
	return resp
}
