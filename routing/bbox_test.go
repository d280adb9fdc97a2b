package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// equatorRoute returns two points on the equator exactly km kilometers apart.
func equatorRoute(km float64) (Coordinate, Coordinate) {
	return Coordinate{Lat: 0, Lon: 0}, Coordinate{Lat: 0, Lon: km * 1000 / metersPerDegree}
}

func TestPaddingKm(t *testing.T) {
	for _, tc := range []struct {
		km   float64
		want float64
	}{
		{0, MIN_PADDING_KM},
		{1, 0.5},
		{20, 3.0},
		{50, MAX_PADDING_KM},
		{500, MAX_PADDING_KM},
	} {
		start, end := equatorRoute(tc.km)
		gen, err := NewBoundingBoxGenerator(start, end)
		require.NoError(t, err)
		assert.InDelta(t, tc.want, gen.PaddingKm(), 1e-9, "route of %v km", tc.km)
	}
}

func TestComputeDegenerateRoute(t *testing.T) {
	p := Coordinate{Lat: 10, Lon: 20}
	box, err := ComputeBoundingBox(p, p)
	require.NoError(t, err)

	assert.True(t, box.Valid())
	assert.True(t, box.Contains(p))

	// the 0.5 km floor applies in every direction
	delta := toDegrees(MIN_PADDING_KM * 1000 / EARTH_RADIUS_M)
	assert.InDelta(t, 10-delta, box.MinLat, 1e-9)
	assert.InDelta(t, 10+delta, box.MaxLat, 1e-9)
	assert.Less(t, box.MinLon, 20.0)
	assert.Greater(t, box.MaxLon, 20.0)
}

func TestComputeLongRoute(t *testing.T) {
	start := Coordinate{Lat: 0, Lon: 0}
	end := Coordinate{Lat: 0, Lon: 1}

	gen, err := NewBoundingBoxGenerator(start, end)
	require.NoError(t, err)
	assert.Len(t, gen.paddingPoints(gen.PaddingKm()*1000), 8)

	box := gen.Compute()
	delta := toDegrees(MAX_PADDING_KM * 1000 / EARTH_RADIUS_M)
	assert.InDelta(t, -delta, box.MinLat, 1e-9)
	assert.InDelta(t, delta, box.MaxLat, 1e-9)
	assert.InDelta(t, -delta, box.MinLon, 1e-9)
	assert.InDelta(t, 1+delta, box.MaxLon, 1e-9)
	assert.True(t, box.Contains(Coordinate{Lat: 0, Lon: 0.5}))
}

func TestComputeShortRouteUsesSixPoints(t *testing.T) {
	start, end := equatorRoute(3)
	gen, err := NewBoundingBoxGenerator(start, end)
	require.NoError(t, err)
	assert.Len(t, gen.paddingPoints(gen.PaddingKm()*1000), 6)

	box := gen.Compute()
	assert.True(t, box.Contains(start))
	assert.True(t, box.Contains(end))
}

func TestComputeRejectsInvalidInput(t *testing.T) {
	_, err := ComputeBoundingBox(Coordinate{Lat: 95, Lon: 0}, Coordinate{Lat: 0, Lon: 0})
	assert.ErrorIs(t, err, ErrInvalidCoordinate)

	_, err = NewBoundingBoxGenerator(Coordinate{Lat: 0, Lon: 0}, Coordinate{Lat: 0, Lon: 200})
	assert.ErrorIs(t, err, ErrInvalidCoordinate)
}

func TestComputeNearAntimeridian(t *testing.T) {
	box, err := ComputeBoundingBox(Coordinate{Lat: 0, Lon: 179.999}, Coordinate{Lat: 0, Lon: 180})
	require.NoError(t, err)
	assert.True(t, box.Valid())
	assert.Equal(t, 180.0, box.MaxLon)
}

func TestBoundingBoxFromCorners(t *testing.T) {
	box, err := BoundingBoxFromCorners(
		Coordinate{Lat: 45.51, Lon: -73.55},
		Coordinate{Lat: 45.49, Lon: -73.60},
	)
	require.NoError(t, err)
	assert.Equal(t, BoundingBox{MinLat: 45.49, MinLon: -73.60, MaxLat: 45.51, MaxLon: -73.55}, box)
	assert.Equal(t, "45.490000,-73.600000,45.510000,-73.550000", box.Key())

	_, err = BoundingBoxFromCorners(Coordinate{Lat: -91, Lon: 0}, Coordinate{})
	assert.ErrorIs(t, err, ErrInvalidCoordinate)
}
