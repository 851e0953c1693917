// Package place defines the canonical Place record and the
// normalization of resolved features into it.
package place

import (
	"time"

	"github.com/geomine/poisync/pkg/geo"
)

// Source is the provenance label stamped on every normalized record.
const Source = "OpenStreetMap"

// Address is the structured address sub-record, built from the
// recognized addr:* tag keys. Country is a constant for this dataset.
type Address struct {
	Street     string `json:"street,omitempty" bson:"street,omitempty"`
	City       string `json:"city,omitempty" bson:"city,omitempty"`
	PostalCode string `json:"postal_code,omitempty" bson:"postal_code,omitempty"`
	Country    string `json:"country" bson:"country"`
}

// Contact is the structured contact sub-record. Each field is filled
// from a primary tag key with a contact:-prefixed fallback.
type Contact struct {
	Phone   string `json:"phone,omitempty" bson:"phone,omitempty"`
	Email   string `json:"email,omitempty" bson:"email,omitempty"`
	Website string `json:"website,omitempty" bson:"website,omitempty"`
}

// Place is the canonical persisted record for one point of interest.
// Identity is the OSM source ID, globally unique and immutable.
// Location is always a single representative point, even when the
// underlying geometry is an area or line. Tags preserves the raw tag
// map verbatim for audit and text search.
type Place struct {
	SourceID    int64             `json:"source_id" bson:"source_id"`
	Name        string            `json:"name" bson:"name"`
	NameSi      string            `json:"name_si,omitempty" bson:"name_si,omitempty"`
	NameTa      string            `json:"name_ta,omitempty" bson:"name_ta,omitempty"`
	Category    string            `json:"category" bson:"category"`
	Subcategory string            `json:"subcategory" bson:"subcategory"`
	Location    *geo.Point        `json:"location,omitempty" bson:"location,omitempty"`
	Geometry    *geo.Geometry     `json:"geometry,omitempty" bson:"geometry,omitempty"`
	Tags        map[string]string `json:"tags" bson:"tags"`
	Address     Address           `json:"address" bson:"address"`
	Contact     Contact           `json:"contact" bson:"contact"`
	Source      string            `json:"source" bson:"source"`
	RetrievedAt time.Time         `json:"retrieved_at" bson:"retrieved_at"`
	CreatedAt   time.Time         `json:"created_at" bson:"created_at"`

	// DistanceMeters is filled by proximity queries with the
	// great-circle distance from the query center. Never persisted.
	DistanceMeters float64 `json:"distance_meters,omitempty" bson:"-"`
}

// Feature projects the place into a GeoJSON feature carrying the
// first-class fields as properties. The full geometry is used when
// present, otherwise the representative location point.
func (p *Place) Feature() geo.Feature {
	geom := p.Geometry
	if geom == nil && p.Location != nil {
		geom = &geo.Geometry{Type: geo.TypePoint, Point: p.Location.Coordinates}
	}
	return geo.Feature{
		Type:     "Feature",
		Geometry: geom,
		Properties: map[string]any{
			"source_id":   p.SourceID,
			"name":        p.Name,
			"category":    p.Category,
			"subcategory": p.Subcategory,
			"tags":        p.Tags,
			"address":     p.Address,
			"contact":     p.Contact,
		},
	}
}
