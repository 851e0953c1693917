package geo

import (
	"encoding/json"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
)

// GeoJSON geometry type names.
const (
	TypePoint           = "Point"
	TypeLineString      = "LineString"
	TypePolygon         = "Polygon"
	TypeMultiLineString = "MultiLineString"
	TypeMultiPolygon    = "MultiPolygon"
)

// Point is a GeoJSON point as stored in the database. Coordinates are
// [longitude, latitude], which is what a 2dsphere index expects.
type Point struct {
	Type        string    `json:"type" bson:"type"`
	Coordinates []float64 `json:"coordinates" bson:"coordinates"`
}

// NewPoint builds a GeoJSON point from a location.
func NewPoint(loc Location) *Point {
	return &Point{
		Type:        TypePoint,
		Coordinates: []float64{loc.Longitude, loc.Latitude},
	}
}

// Location converts the point back to a coordinate pair.
func (p *Point) Location() Location {
	if p == nil || len(p.Coordinates) < 2 {
		return Location{}
	}
	return Location{Latitude: p.Coordinates[1], Longitude: p.Coordinates[0]}
}

// Geometry represents a GeoJSON geometry of any supported type. Exactly
// one of the coordinate fields is populated, matching Type. Coordinates
// follow GeoJSON order: [longitude, latitude].
type Geometry struct {
	Type         string
	Point        []float64
	LineString   [][]float64
	Polygon      [][][]float64
	MultiLine    [][][]float64
	MultiPolygon [][][][]float64
}

// coordinates returns the coordinate field matching Type.
func (g *Geometry) coordinates() any {
	switch g.Type {
	case TypePoint:
		return g.Point
	case TypeLineString:
		return g.LineString
	case TypePolygon:
		return g.Polygon
	case TypeMultiLineString:
		return g.MultiLine
	case TypeMultiPolygon:
		return g.MultiPolygon
	default:
		return nil
	}
}

// Centroid resolves a single representative location for the geometry:
//   - Point: the coordinate pair unchanged
//   - LineString: arithmetic mean of all vertices
//   - Polygon: arithmetic mean of the outer ring's vertices
//   - MultiLineString: arithmetic mean of the first line's vertices
//   - MultiPolygon: arithmetic mean of the first polygon's outer ring
//
// The second return value is false when the geometry is nil, of an
// unknown type, or its vertex list is empty.
func (g *Geometry) Centroid() (Location, bool) {
	if g == nil {
		return Location{}, false
	}
	switch g.Type {
	case TypePoint:
		if len(g.Point) < 2 {
			return Location{}, false
		}
		return Location{Latitude: g.Point[1], Longitude: g.Point[0]}, true
	case TypeLineString:
		return meanOf(g.LineString)
	case TypePolygon:
		if len(g.Polygon) == 0 {
			return Location{}, false
		}
		return meanOf(g.Polygon[0])
	case TypeMultiLineString:
		if len(g.MultiLine) == 0 {
			return Location{}, false
		}
		return meanOf(g.MultiLine[0])
	case TypeMultiPolygon:
		if len(g.MultiPolygon) == 0 || len(g.MultiPolygon[0]) == 0 {
			return Location{}, false
		}
		return meanOf(g.MultiPolygon[0][0])
	default:
		return Location{}, false
	}
}

func meanOf(coords [][]float64) (Location, bool) {
	if len(coords) == 0 {
		return Location{}, false
	}
	var sumLon, sumLat float64
	for _, c := range coords {
		if len(c) < 2 {
			return Location{}, false
		}
		sumLon += c[0]
		sumLat += c[1]
	}
	n := float64(len(coords))
	return Location{Latitude: sumLat / n, Longitude: sumLon / n}, true
}

// geometryJSON is the wire shape of a GeoJSON geometry.
type geometryJSON struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// MarshalJSON encodes the geometry as standard GeoJSON.
func (g Geometry) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type        string `json:"type"`
		Coordinates any    `json:"coordinates"`
	}{Type: g.Type, Coordinates: g.coordinates()})
}

// UnmarshalJSON decodes standard GeoJSON into the typed coordinate field
// matching the declared geometry type.
func (g *Geometry) UnmarshalJSON(data []byte) error {
	var raw geometryJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*g = Geometry{Type: raw.Type}
	if len(raw.Coordinates) == 0 {
		return nil
	}
	switch raw.Type {
	case TypePoint:
		return json.Unmarshal(raw.Coordinates, &g.Point)
	case TypeLineString:
		return json.Unmarshal(raw.Coordinates, &g.LineString)
	case TypePolygon:
		return json.Unmarshal(raw.Coordinates, &g.Polygon)
	case TypeMultiLineString:
		return json.Unmarshal(raw.Coordinates, &g.MultiLine)
	case TypeMultiPolygon:
		return json.Unmarshal(raw.Coordinates, &g.MultiPolygon)
	default:
		return fmt.Errorf("unsupported geometry type: %q", raw.Type)
	}
}

// MarshalBSON encodes the geometry in the same GeoJSON shape used for
// JSON, so stored documents remain valid GeoJSON.
func (g Geometry) MarshalBSON() ([]byte, error) {
	return bson.Marshal(struct {
		Type        string `bson:"type"`
		Coordinates any    `bson:"coordinates"`
	}{Type: g.Type, Coordinates: g.coordinates()})
}

// UnmarshalBSON decodes a stored GeoJSON geometry document.
func (g *Geometry) UnmarshalBSON(data []byte) error {
	var raw struct {
		Type        string        `bson:"type"`
		Coordinates bson.RawValue `bson:"coordinates"`
	}
	if err := bson.Unmarshal(data, &raw); err != nil {
		return err
	}
	*g = Geometry{Type: raw.Type}
	if raw.Coordinates.Value == nil {
		return nil
	}
	switch raw.Type {
	case TypePoint:
		return raw.Coordinates.Unmarshal(&g.Point)
	case TypeLineString:
		return raw.Coordinates.Unmarshal(&g.LineString)
	case TypePolygon:
		return raw.Coordinates.Unmarshal(&g.Polygon)
	case TypeMultiLineString:
		return raw.Coordinates.Unmarshal(&g.MultiLine)
	case TypeMultiPolygon:
		return raw.Coordinates.Unmarshal(&g.MultiPolygon)
	default:
		return fmt.Errorf("unsupported geometry type: %q", raw.Type)
	}
}

// Feature is a single GeoJSON feature: one geometry plus a free-form
// property map.
type Feature struct {
	Type       string         `json:"type"`
	Geometry   *Geometry      `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

// FeatureCollection is a GeoJSON feature collection, used for exports
// and snapshot files.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// NewFeatureCollection creates an empty feature collection.
func NewFeatureCollection() *FeatureCollection {
	return &FeatureCollection{Type: "FeatureCollection", Features: []Feature{}}
}
