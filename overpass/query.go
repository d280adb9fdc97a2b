package overpass

import (
	"fmt"
	"strings"

	"osm-route-server/routing"
)

const QUERY_TIMEOUT_SECONDS = 30

// ExcludedHighways are highway values that never carry road traffic.
var ExcludedHighways = []string{
	"footway",
	"street_lamp",
	"steps",
	"pedestrian",
	"track",
	"path",
}

// BuildQuery returns an Overpass QL query selecting the drivable highway ways
// inside bbox together with the nodes they reference.
func BuildQuery(bbox routing.BoundingBox) string {
	var filters strings.Builder
	filters.WriteString("way[highway]")
	for _, h := range ExcludedHighways {
		fmt.Fprintf(&filters, `[highway!="%s"]`, h)
	}
	filters.WriteString(`[footway!="*"]`)

	// Overpass takes south,west,north,east
	return fmt.Sprintf(
		"[out:json][timeout:%d];(%s(%.6f,%.6f,%.6f,%.6f);node(w););out skel;",
		QUERY_TIMEOUT_SECONDS,
		filters.String(),
		bbox.MinLat, bbox.MinLon, bbox.MaxLat, bbox.MaxLon,
	)
}
