// Package convert resolves raw Overpass element graphs into flat
// collections of geometric features.
//
// The element graph is reference-shaped: ways list node IDs and
// relations list member references. Resolution substitutes each
// reference with coordinates found elsewhere in the same graph; no
// additional round-trips are made. A feature whose references cannot
// all be resolved within the graph is dropped silently.
package convert

import (
	"log/slog"

	"github.com/geomine/poisync/pkg/geo"
	"github.com/geomine/poisync/pkg/monitoring"
	"github.com/geomine/poisync/pkg/overpass"
)

// Feature is one resolved geometry plus the element's tag map.
// Features are ephemeral: produced here, consumed by normalization.
type Feature struct {
	ID       int64
	Type     string // source element type: node, way or relation
	Tags     map[string]string
	Geometry *geo.Geometry
}

// graph indexes one Overpass response by element type and ID.
type graph struct {
	nodes map[int64]overpass.Element
	ways  map[int64]overpass.Element
}

func indexGraph(elements []overpass.Element) *graph {
	g := &graph{
		nodes: make(map[int64]overpass.Element),
		ways:  make(map[int64]overpass.Element),
	}
	for _, e := range elements {
		switch e.Type {
		case "node":
			g.nodes[e.ID] = e
		case "way":
			g.ways[e.ID] = e
		}
	}
	return g
}

// Resolve converts the raw element graph into a feature collection.
// Tagged elements become features; untagged elements only carry
// geometry for the ways and relations that reference them. Output
// ordering is not significant.
func Resolve(elements []overpass.Element) []Feature {
	g := indexGraph(elements)
	features := make([]Feature, 0, len(elements))
	dropped := 0

	for _, e := range elements {
		if len(e.Tags) == 0 {
			continue
		}
		var geom *geo.Geometry
		var ok bool
		switch e.Type {
		case "node":
			geom = &geo.Geometry{Type: geo.TypePoint, Point: []float64{e.Lon, e.Lat}}
			ok = true
		case "way":
			geom, ok = g.resolveWay(e)
		case "relation":
			geom, ok = g.resolveRelation(e)
		}
		if !ok {
			dropped++
			continue
		}
		features = append(features, Feature{
			ID:       e.ID,
			Type:     e.Type,
			Tags:     e.Tags,
			Geometry: geom,
		})
	}

	monitoring.FeaturesConverted.Add(float64(len(features)))
	if dropped > 0 {
		monitoring.FeaturesDropped.WithLabelValues("convert").Add(float64(dropped))
		slog.Default().Debug("dropped features with unresolvable references",
			"component", "convert", "dropped", dropped)
	}
	return features
}

// resolveWay substitutes each node reference with its coordinates, in
// member order. A closed ring becomes a Polygon, anything else a
// LineString. Returns false when any node reference is missing from
// the graph.
func (g *graph) resolveWay(way overpass.Element) (*geo.Geometry, bool) {
	coords, ok := g.wayCoords(way)
	if !ok {
		return nil, false
	}
	if isClosedRing(coords) {
		return &geo.Geometry{Type: geo.TypePolygon, Polygon: [][][]float64{coords}}, true
	}
	return &geo.Geometry{Type: geo.TypeLineString, LineString: coords}, true
}

// resolveRelation recurses through the relation's members. Closed
// member ways become polygon rings; when any member way closes into an
// area the relation resolves to a MultiPolygon, otherwise to a
// MultiLineString of the open ways. Node members contribute no
// geometry but must still resolve. Returns false when any member
// reference is missing from the graph.
func (g *graph) resolveRelation(rel overpass.Element) (*geo.Geometry, bool) {
	var rings [][][]float64
	var lines [][][]float64

	for _, m := range rel.Members {
		switch m.Type {
		case "way":
			way, found := g.ways[m.Ref]
			if !found {
				return nil, false
			}
			coords, ok := g.wayCoords(way)
			if !ok {
				return nil, false
			}
			if isClosedRing(coords) {
				rings = append(rings, coords)
			} else {
				lines = append(lines, coords)
			}
		case "node":
			if _, found := g.nodes[m.Ref]; !found {
				return nil, false
			}
		case "relation":
			// Nested relations are not expanded; the inner relation
			// appears as its own element in the same response.
			continue
		}
	}

	if len(rings) > 0 {
		multi := make([][][][]float64, 0, len(rings))
		for _, ring := range rings {
			multi = append(multi, [][][]float64{ring})
		}
		return &geo.Geometry{Type: geo.TypeMultiPolygon, MultiPolygon: multi}, true
	}
	if len(lines) > 0 {
		return &geo.Geometry{Type: geo.TypeMultiLineString, MultiLine: lines}, true
	}
	return nil, true
}

func (g *graph) wayCoords(way overpass.Element) ([][]float64, bool) {
	coords := make([][]float64, 0, len(way.Nodes))
	for _, ref := range way.Nodes {
		node, found := g.nodes[ref]
		if !found {
			return nil, false
		}
		coords = append(coords, []float64{node.Lon, node.Lat})
	}
	return coords, true
}

// isClosedRing reports whether the coordinate sequence forms a closed
// ring: at least four vertices with identical first and last.
func isClosedRing(coords [][]float64) bool {
	if len(coords) < 4 {
		return false
	}
	first, last := coords[0], coords[len(coords)-1]
	return first[0] == last[0] && first[1] == last[1]
}
