package routing

import (
	"fmt"
	"math"
)

const (
	EARTH_RADIUS_KM = 6371.0
	EARTH_RADIUS_M  = EARTH_RADIUS_KM * 1000
)

// Coordinate is a WGS84 latitude/longitude pair in degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// NewCoordinate returns a Coordinate or ErrInvalidCoordinate when lat/lon
// are outside [-90,90] / [-180,180].
func NewCoordinate(lat, lon float64) (Coordinate, error) {
	c := Coordinate{Lat: lat, Lon: lon}
	if err := c.Validate(); err != nil {
		return Coordinate{}, err
	}
	return c, nil
}

func (c Coordinate) Validate() error {
	if !validLatLon(c.Lat, c.Lon) {
		return fmt.Errorf("%w: lat=%f lon=%f", ErrInvalidCoordinate, c.Lat, c.Lon)
	}
	return nil
}

// NaN fails both comparisons, so it is rejected as well.
func validLatLon(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

func toRadians(degrees float64) float64 {
	return degrees * math.Pi / 180
}

func toDegrees(radians float64) float64 {
	return radians * 180 / math.Pi
}

// Distance returns the haversine great-circle distance between a and b in meters.
func Distance(a, b Coordinate) float64 {
	phi1 := toRadians(a.Lat)
	phi2 := toRadians(b.Lat)
	deltaPhi := toRadians(b.Lat - a.Lat)
	deltaLambda := toRadians(b.Lon - a.Lon)

	h := math.Sin(deltaPhi/2)*math.Sin(deltaPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*
			math.Sin(deltaLambda/2)*math.Sin(deltaLambda/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EARTH_RADIUS_M * c
}

// Bearing returns the initial compass bearing from a to b in radians.
func Bearing(a, b Coordinate) float64 {
	phi1 := toRadians(a.Lat)
	phi2 := toRadians(b.Lat)
	deltaLambda := toRadians(b.Lon - a.Lon)

	y := math.Sin(deltaLambda) * math.Cos(phi2)
	x := math.Cos(phi1)*math.Sin(phi2) - math.Sin(phi1)*math.Cos(phi2)*math.Cos(deltaLambda)
	return math.Atan2(y, x)
}

// DestinationPoint projects origin distanceMeters along bearingRadians on a sphere.
func DestinationPoint(origin Coordinate, distanceMeters, bearingRadians float64) Coordinate {
	d := distanceMeters / EARTH_RADIUS_M
	phi1 := toRadians(origin.Lat)
	lambda1 := toRadians(origin.Lon)

	phi2 := math.Asin(math.Sin(phi1)*math.Cos(d) +
		math.Cos(phi1)*math.Sin(d)*math.Cos(bearingRadians))
	lambda2 := lambda1 + math.Atan2(
		math.Sin(bearingRadians)*math.Sin(d)*math.Cos(phi1),
		math.Cos(d)-math.Sin(phi1)*math.Sin(phi2),
	)

	return Coordinate{Lat: toDegrees(phi2), Lon: toDegrees(lambda2)}
}
