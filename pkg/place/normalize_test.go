package place

import (
	"testing"
	"time"

	"github.com/geomine/poisync/pkg/convert"
	"github.com/geomine/poisync/pkg/geo"
)

var testTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func pointFeature(id int64, lat, lon float64, tags map[string]string) convert.Feature {
	return convert.Feature{
		ID:       id,
		Type:     "node",
		Tags:     tags,
		Geometry: &geo.Geometry{Type: geo.TypePoint, Point: []float64{lon, lat}},
	}
}

func TestFromFeatureMuseumNode(t *testing.T) {
	f := pointFeature(101, 7.0, 80.0, map[string]string{
		"tourism": "museum",
		"name":    "National Museum",
	})

	p, ok := FromFeature(f, testTime)
	if !ok {
		t.Fatal("expected feature to normalize")
	}
	if p.Category != "tourism" || p.Subcategory != "museum" {
		t.Errorf("category = %s/%s, want tourism/museum", p.Category, p.Subcategory)
	}
	if loc := p.Location.Location(); loc.Latitude != 7.0 || loc.Longitude != 80.0 {
		t.Errorf("location = %+v, want (7.0, 80.0)", loc)
	}
	if p.SourceID != 101 {
		t.Errorf("source id = %d, want 101", p.SourceID)
	}
	if p.Source != Source {
		t.Errorf("source label = %q, want %q", p.Source, Source)
	}
	if !p.RetrievedAt.Equal(testTime) {
		t.Errorf("retrieved at = %v, want %v", p.RetrievedAt, testTime)
	}
	if !p.CreatedAt.IsZero() {
		t.Error("creation timestamp must be left for the store to assign")
	}
}

func TestResolveCategoryPriority(t *testing.T) {
	tests := []struct {
		name        string
		tags        map[string]string
		category    string
		subcategory string
	}{
		{
			name:        "tourism wins over amenity",
			tags:        map[string]string{"tourism": "museum", "amenity": "cafe"},
			category:    "tourism",
			subcategory: "museum",
		},
		{
			name:        "amenity wins over historic",
			tags:        map[string]string{"historic": "fort", "amenity": "restaurant"},
			category:    "amenity",
			subcategory: "restaurant",
		},
		{
			name:        "leisure is last",
			tags:        map[string]string{"leisure": "park"},
			category:    "leisure",
			subcategory: "park",
		},
		{
			name:        "empty value does not select",
			tags:        map[string]string{"tourism": "", "natural": "beach"},
			category:    "natural",
			subcategory: "beach",
		},
		{
			name:        "no category key",
			tags:        map[string]string{"name": "Somewhere"},
			category:    CategoryOther,
			subcategory: SubcategoryUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cat, sub := ResolveCategory(tt.tags)
			if cat != tt.category || sub != tt.subcategory {
				t.Errorf("ResolveCategory() = %s/%s, want %s/%s", cat, sub, tt.category, tt.subcategory)
			}
		})
	}
}

func TestNormalizeCentroidLocations(t *testing.T) {
	features := []convert.Feature{
		{
			ID:   10,
			Type: "way",
			Tags: map[string]string{"historic": "fort"},
			Geometry: &geo.Geometry{Type: geo.TypePolygon, Polygon: [][][]float64{
				{{0, 0}, {2, 0}, {2, 2}, {0, 2}},
			}},
		},
	}

	places := Normalize(features)
	if len(places) != 1 {
		t.Fatalf("got %d places, want 1", len(places))
	}
	loc := places[0].Location.Location()
	if loc.Latitude != 1 || loc.Longitude != 1 {
		t.Errorf("polygon location = %+v, want (1, 1)", loc)
	}
}

func TestNormalizeExcludesUnresolvableLocations(t *testing.T) {
	features := []convert.Feature{
		pointFeature(1, 7.0, 80.0, map[string]string{"tourism": "museum"}),
		{ID: 2, Type: "relation", Tags: map[string]string{"tourism": "site"}, Geometry: nil},
		{ID: 3, Type: "way", Tags: map[string]string{"leisure": "park"},
			Geometry: &geo.Geometry{Type: geo.TypeLineString}},
	}

	places := Normalize(features)
	if len(places) != 1 {
		t.Fatalf("got %d places, want 1 (null and empty geometry excluded)", len(places))
	}
	if places[0].SourceID != 1 {
		t.Errorf("surviving place = %d, want 1", places[0].SourceID)
	}
}

func TestPrimaryNameFallbacks(t *testing.T) {
	tests := []struct {
		name string
		tags map[string]string
		want string
	}{
		{"primary name", map[string]string{"name": "කොළඹ", "name:en": "Colombo"}, "කොළඹ"},
		{"english fallback", map[string]string{"name:en": "Colombo"}, "Colombo"},
		{"placeholder", map[string]string{"tourism": "viewpoint"}, UnnamedPlaceholder},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := primaryName(tt.tags); got != tt.want {
				t.Errorf("primaryName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLanguageVariantsAreIndependent(t *testing.T) {
	f := pointFeature(1, 7.0, 80.0, map[string]string{
		"tourism": "museum",
		"name":    "National Museum",
		"name:si": "ජාතික කෞතුකාගාරය",
	})

	p, _ := FromFeature(f, testTime)
	if p.NameSi == "" {
		t.Error("expected Sinhala name to be extracted")
	}
	if p.NameTa != "" {
		t.Error("absent Tamil name must stay empty")
	}
}

func TestAddressAndContactExtraction(t *testing.T) {
	f := pointFeature(1, 7.0, 80.0, map[string]string{
		"amenity":       "restaurant",
		"addr:street":   "Galle Road",
		"addr:city":     "Colombo",
		"addr:postcode": "00300",
		"contact:phone": "+94 11 234 5678",
		"website":       "https://example.lk",
		"cuisine":       "sri_lankan", // unrecognized, stays in tags only
	})

	p, _ := FromFeature(f, testTime)
	if p.Address.Street != "Galle Road" || p.Address.City != "Colombo" || p.Address.PostalCode != "00300" {
		t.Errorf("unexpected address: %+v", p.Address)
	}
	if p.Address.Country != DefaultCountry {
		t.Errorf("country = %q, want %q", p.Address.Country, DefaultCountry)
	}
	if p.Contact.Phone != "+94 11 234 5678" {
		t.Errorf("contact fallback key not used: %+v", p.Contact)
	}
	if p.Contact.Website != "https://example.lk" {
		t.Errorf("primary website key not used: %+v", p.Contact)
	}
	if p.Contact.Email != "" {
		t.Errorf("email should be empty, got %q", p.Contact.Email)
	}
	if p.Tags["cuisine"] != "sri_lankan" {
		t.Error("unrecognized tag missing from verbatim tag map")
	}
}

func TestContactPrimaryKeyWinsOverFallback(t *testing.T) {
	f := pointFeature(1, 7.0, 80.0, map[string]string{
		"amenity":       "cafe",
		"phone":         "+94 11 111 1111",
		"contact:phone": "+94 11 222 2222",
	})

	p, _ := FromFeature(f, testTime)
	if p.Contact.Phone != "+94 11 111 1111" {
		t.Errorf("phone = %q, want the primary key's value", p.Contact.Phone)
	}
}

func TestPlaceFeatureProjection(t *testing.T) {
	geom := &geo.Geometry{Type: geo.TypePolygon, Polygon: [][][]float64{
		{{0, 0}, {2, 0}, {2, 2}, {0, 2}},
	}}
	p := Place{
		SourceID:    7,
		Name:        "Fort",
		Category:    "historic",
		Subcategory: "fort",
		Location:    geo.NewPoint(geo.Location{Latitude: 1, Longitude: 1}),
		Geometry:    geom,
		Tags:        map[string]string{"historic": "fort"},
	}

	f := p.Feature()
	if f.Geometry != geom {
		t.Error("feature must carry the full geometry when present")
	}
	if f.Properties["name"] != "Fort" || f.Properties["category"] != "historic" {
		t.Errorf("unexpected properties: %+v", f.Properties)
	}

	// Without full geometry the location point stands in.
	p.Geometry = nil
	f = p.Feature()
	if f.Geometry == nil || f.Geometry.Type != geo.TypePoint {
		t.Fatalf("expected point fallback geometry, got %+v", f.Geometry)
	}
	if f.Geometry.Point[0] != 1 || f.Geometry.Point[1] != 1 {
		t.Errorf("fallback coordinates = %v, want [1 1]", f.Geometry.Point)
	}
}
