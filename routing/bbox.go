package routing

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

const (
	MIN_PADDING_KM         = 0.5
	MAX_PADDING_KM         = 5.0
	PADDING_RATIO          = 0.15
	LONG_ROUTE_THRESHOLD_M = 10000.0
)

// BoundingBox is an axis-aligned lat/lon rectangle used to scope a data query.
type BoundingBox struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// BoundingBoxFromCorners returns the raw envelope of two corners, without padding.
func BoundingBoxFromCorners(a, b Coordinate) (BoundingBox, error) {
	if err := a.Validate(); err != nil {
		return BoundingBox{}, err
	}
	if err := b.Validate(); err != nil {
		return BoundingBox{}, err
	}
	return fromBound(orb.MultiPoint{toPoint(a), toPoint(b)}.Bound()), nil
}

func (b BoundingBox) Valid() bool {
	return b.MinLat <= b.MaxLat && b.MinLon <= b.MaxLon &&
		validLatLon(b.MinLat, b.MinLon) && validLatLon(b.MaxLat, b.MaxLon)
}

func (b BoundingBox) Contains(c Coordinate) bool {
	return b.Bound().Contains(toPoint(c))
}

// Bound converts the box to an orb.Bound (lon/lat ordering).
func (b BoundingBox) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{b.MinLon, b.MinLat},
		Max: orb.Point{b.MaxLon, b.MaxLat},
	}
}

// Key is a stable string identity, used to cache graphs per query area.
func (b BoundingBox) Key() string {
	return fmt.Sprintf("%.6f,%.6f,%.6f,%.6f", b.MinLat, b.MinLon, b.MaxLat, b.MaxLon)
}

func toPoint(c Coordinate) orb.Point {
	return orb.Point{c.Lon, c.Lat}
}

func fromBound(bound orb.Bound) BoundingBox {
	return BoundingBox{
		MinLat: bound.Min.Lat(),
		MinLon: bound.Min.Lon(),
		MaxLat: bound.Max.Lat(),
		MaxLon: bound.Max.Lon(),
	}
}

// BoundingBoxGenerator computes a padded query area around a start/end pair.
// The box overshoots the straight route on every side.
type BoundingBoxGenerator struct {
	start Coordinate
	end   Coordinate
}

func NewBoundingBoxGenerator(start, end Coordinate) (*BoundingBoxGenerator, error) {
	if err := start.Validate(); err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}
	if err := end.Validate(); err != nil {
		return nil, fmt.Errorf("end: %w", err)
	}
	return &BoundingBoxGenerator{start: start, end: end}, nil
}

// ComputeBoundingBox is NewBoundingBoxGenerator followed by Compute.
func ComputeBoundingBox(start, end Coordinate) (BoundingBox, error) {
	gen, err := NewBoundingBoxGenerator(start, end)
	if err != nil {
		return BoundingBox{}, err
	}
	return gen.Compute(), nil
}

func (g *BoundingBoxGenerator) routeDistance() float64 {
	return Distance(g.start, g.end)
}

// PaddingKm is 15% of the route length, clamped to [0.5, 5] km.
func (g *BoundingBoxGenerator) PaddingKm() float64 {
	padding := g.routeDistance() / 1000 * PADDING_RATIO
	return math.Min(math.Max(padding, MIN_PADDING_KM), MAX_PADDING_KM)
}

func (g *BoundingBoxGenerator) paddingPoints(paddingM float64) orb.MultiPoint {
	bearing := Bearing(g.start, g.end)
	perp1 := bearing + math.Pi/2
	perp2 := bearing - math.Pi/2

	points := make(orb.MultiPoint, 0, 8)
	points = append(points,
		toPoint(DestinationPoint(g.start, paddingM, perp1)),
		toPoint(DestinationPoint(g.start, paddingM, perp2)),
		toPoint(DestinationPoint(g.start, paddingM, bearing-math.Pi)),

		toPoint(DestinationPoint(g.end, paddingM, perp1)),
		toPoint(DestinationPoint(g.end, paddingM, perp2)),
		toPoint(DestinationPoint(g.end, paddingM, bearing)),
	)

	// long straight routes would otherwise get a box that is too narrow in the middle
	if g.routeDistance() > LONG_ROUTE_THRESHOLD_M {
		mid := Coordinate{
			Lat: (g.start.Lat + g.end.Lat) / 2,
			Lon: (g.start.Lon + g.end.Lon) / 2,
		}
		points = append(points,
			toPoint(DestinationPoint(mid, paddingM, perp1)),
			toPoint(DestinationPoint(mid, paddingM, perp2)),
		)
	}
	return points
}

// Compute returns the envelope of all padding points.
func (g *BoundingBoxGenerator) Compute() BoundingBox {
	box := fromBound(g.paddingPoints(g.PaddingKm() * 1000).Bound())
	box.MinLon = clampLon(box.MinLon)
	box.MaxLon = clampLon(box.MaxLon)
	return box
}

func clampLon(lon float64) float64 {
	return math.Min(math.Max(lon, -180), 180)
}
