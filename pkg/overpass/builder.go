package overpass

import (
	"fmt"
	"strings"

	"github.com/geomine/poisync/pkg/geo"
)

// Category dimensions recognized by the query builder, in priority
// order. The same order drives category resolution during
// normalization.
const (
	CategoryTourism  = "tourism"
	CategoryAmenity  = "amenity"
	CategoryHistoric = "historic"
	CategoryNatural  = "natural"
	CategoryLeisure  = "leisure"
)

// Categories lists the recognized category dimensions in priority order.
var Categories = []string{
	CategoryTourism,
	CategoryAmenity,
	CategoryHistoric,
	CategoryNatural,
	CategoryLeisure,
}

// baseTimeout is the Overpass execution-time budget in seconds for a
// single category dimension. Composite queries scale it by the number
// of non-empty dimensions.
const baseTimeout = 25

// Selector pairs a category dimension with the accepted tag values for
// that dimension. An empty value list contributes no query clauses.
type Selector struct {
	Category string
	Values   []string
}

// BuildQuery produces an Overpass QL query selecting both node and way
// elements carrying category=value for each listed value, restricted to
// the bounding box. The output is a pure function of its inputs:
// identical (bbox, selector) always yields a byte-identical string.
func BuildQuery(bbox geo.BoundingBox, sel Selector) string {
	return BuildCompositeQuery(bbox, []Selector{sel})
}

// BuildCompositeQuery unions the clauses of multiple category
// dimensions into one query. The execution-time budget grows linearly
// with the number of non-empty dimensions.
func BuildCompositeQuery(bbox geo.BoundingBox, sels []Selector) string {
	dims := 0
	for _, sel := range sels {
		if len(sel.Values) > 0 {
			dims++
		}
	}
	timeout := baseTimeout
	if dims > 1 {
		timeout = baseTimeout * dims
	}

	var q strings.Builder
	fmt.Fprintf(&q, "[out:json][timeout:%d];(", timeout)
	for _, sel := range sels {
		for _, value := range sel.Values {
			writeClause(&q, "node", sel.Category, value, bbox)
			writeClause(&q, "way", sel.Category, value, bbox)
		}
	}
	// "out body" emits the selected elements with tags, ">" recurses
	// down to the member nodes of selected ways, and "out skel qt"
	// emits those bare nodes so way geometry can be resolved locally.
	q.WriteString(");out body;>;out skel qt;")
	return q.String()
}

func writeClause(q *strings.Builder, elem, key, value string, bbox geo.BoundingBox) {
	fmt.Fprintf(q, "%s[%q=%q](%.6f,%.6f,%.6f,%.6f);",
		elem, key, value, bbox.South, bbox.West, bbox.North, bbox.East)
}
