package geo

import (
	"encoding/json"
	"math"
	"reflect"
	"testing"
)

func TestGeometryCentroid(t *testing.T) {
	tests := []struct {
		name   string
		geom   *Geometry
		want   Location
		wantOK bool
	}{
		{
			name:   "point passes through unchanged",
			geom:   &Geometry{Type: TypePoint, Point: []float64{80.0, 7.0}},
			want:   Location{Latitude: 7.0, Longitude: 80.0},
			wantOK: true,
		},
		{
			name: "polygon outer ring mean",
			geom: &Geometry{Type: TypePolygon, Polygon: [][][]float64{
				{{0, 0}, {2, 0}, {2, 2}, {0, 2}},
			}},
			want:   Location{Latitude: 1, Longitude: 1},
			wantOK: true,
		},
		{
			name: "linestring vertex mean",
			geom: &Geometry{Type: TypeLineString, LineString: [][]float64{
				{0, 0}, {4, 2},
			}},
			want:   Location{Latitude: 1, Longitude: 2},
			wantOK: true,
		},
		{
			name: "multipolygon uses first polygon's outer ring",
			geom: &Geometry{Type: TypeMultiPolygon, MultiPolygon: [][][][]float64{
				{{{0, 0}, {2, 0}, {2, 2}, {0, 2}}},
				{{{10, 10}, {12, 10}, {12, 12}, {10, 12}}},
			}},
			want:   Location{Latitude: 1, Longitude: 1},
			wantOK: true,
		},
		{
			name:   "nil geometry",
			geom:   nil,
			wantOK: false,
		},
		{
			name:   "empty linestring",
			geom:   &Geometry{Type: TypeLineString},
			wantOK: false,
		},
		{
			name:   "polygon without rings",
			geom:   &Geometry{Type: TypePolygon},
			wantOK: false,
		},
		{
			name:   "unknown type",
			geom:   &Geometry{Type: "GeometryCollection"},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.geom.Centroid()
			if ok != tt.wantOK {
				t.Fatalf("Centroid() ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if math.Abs(got.Latitude-tt.want.Latitude) > 1e-9 ||
				math.Abs(got.Longitude-tt.want.Longitude) > 1e-9 {
				t.Errorf("Centroid() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestGeometryJSONRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		geom Geometry
	}{
		{
			name: "point",
			geom: Geometry{Type: TypePoint, Point: []float64{80.0, 7.0}},
		},
		{
			name: "linestring",
			geom: Geometry{Type: TypeLineString, LineString: [][]float64{{0, 0}, {1, 1}}},
		},
		{
			name: "polygon",
			geom: Geometry{Type: TypePolygon, Polygon: [][][]float64{
				{{0, 0}, {2, 0}, {2, 2}, {0, 2}, {0, 0}},
			}},
		},
		{
			name: "multipolygon",
			geom: Geometry{Type: TypeMultiPolygon, MultiPolygon: [][][][]float64{
				{{{0, 0}, {2, 0}, {2, 2}, {0, 0}}},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.geom)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			var got Geometry
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.geom) {
				t.Errorf("round trip = %+v, want %+v", got, tt.geom)
			}
		})
	}
}

func TestGeometryMarshalShape(t *testing.T) {
	geom := Geometry{Type: TypePoint, Point: []float64{80.0, 7.0}}
	data, err := json.Marshal(geom)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	want := `{"type":"Point","coordinates":[80,7]}`
	if string(data) != want {
		t.Errorf("Marshal() = %s, want %s", data, want)
	}
}

func TestPointLocation(t *testing.T) {
	loc := Location{Latitude: 7.0, Longitude: 80.0}
	p := NewPoint(loc)
	if p.Type != TypePoint {
		t.Errorf("NewPoint type = %q, want %q", p.Type, TypePoint)
	}
	if got := p.Location(); got != loc {
		t.Errorf("Location() = %+v, want %+v", got, loc)
	}

	var nilPoint *Point
	if got := nilPoint.Location(); got != (Location{}) {
		t.Errorf("nil point Location() = %+v, want zero", got)
	}
}
