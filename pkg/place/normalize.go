package place

import (
	"log/slog"
	"time"

	"github.com/geomine/poisync/pkg/convert"
	"github.com/geomine/poisync/pkg/geo"
	"github.com/geomine/poisync/pkg/monitoring"
)

// Fixed values used during normalization.
const (
	// DefaultCountry is the constant country value for this dataset.
	DefaultCountry = "Sri Lanka"
	// UnnamedPlaceholder is used when no name tag is present.
	UnnamedPlaceholder = "Unnamed"
	// CategoryOther is assigned when no category key matches.
	CategoryOther = "other"
	// SubcategoryUnknown is assigned when no category key matches.
	SubcategoryUnknown = "unknown"
)

// categoryRule binds a category to the tag key whose presence selects
// it. Rules are evaluated in order; the first key present with a
// non-empty value wins. The explicit list makes the tie-break policy
// an inspectable artifact rather than implicit control flow.
type categoryRule struct {
	Category string
	Key      string
}

var categoryRules = []categoryRule{
	{"tourism", "tourism"},
	{"amenity", "amenity"},
	{"historic", "historic"},
	{"natural", "natural"},
	{"leisure", "leisure"},
}

// ResolveCategory applies the ordered category rules to a tag map.
func ResolveCategory(tags map[string]string) (category, subcategory string) {
	for _, rule := range categoryRules {
		if v := tags[rule.Key]; v != "" {
			return rule.Category, v
		}
	}
	return CategoryOther, SubcategoryUnknown
}

// Normalize maps each feature into a canonical Place record. Features
// whose location cannot be resolved (nil geometry or empty vertex
// lists) are excluded from the output; the drop is silent, consistent
// with conversion's omission policy.
func Normalize(features []convert.Feature) []Place {
	now := time.Now().UTC()
	places := make([]Place, 0, len(features))
	dropped := 0
	for _, f := range features {
		p, ok := FromFeature(f, now)
		if !ok {
			dropped++
			continue
		}
		places = append(places, p)
	}
	if dropped > 0 {
		monitoring.FeaturesDropped.WithLabelValues("normalize").Add(float64(dropped))
		slog.Default().Debug("dropped features without resolvable location",
			"component", "normalize", "dropped", dropped)
	}
	return places
}

// FromFeature builds one Place from a resolved feature. The second
// return value is false when the feature has no resolvable location.
func FromFeature(f convert.Feature, retrievedAt time.Time) (Place, bool) {
	loc, ok := f.Geometry.Centroid()
	if !ok {
		return Place{}, false
	}

	category, subcategory := ResolveCategory(f.Tags)

	return Place{
		SourceID:    f.ID,
		Name:        primaryName(f.Tags),
		NameSi:      f.Tags["name:si"],
		NameTa:      f.Tags["name:ta"],
		Category:    category,
		Subcategory: subcategory,
		Location:    geo.NewPoint(loc),
		Geometry:    f.Geometry,
		Tags:        f.Tags,
		Address:     extractAddress(f.Tags),
		Contact:     extractContact(f.Tags),
		Source:      Source,
		RetrievedAt: retrievedAt,
	}, true
}

// primaryName picks the display name: "name", falling back to
// "name:en", falling back to the placeholder.
func primaryName(tags map[string]string) string {
	if v := tags["name"]; v != "" {
		return v
	}
	if v := tags["name:en"]; v != "" {
		return v
	}
	return UnnamedPlaceholder
}

func extractAddress(tags map[string]string) Address {
	return Address{
		Street:     tags["addr:street"],
		City:       tags["addr:city"],
		PostalCode: tags["addr:postcode"],
		Country:    DefaultCountry,
	}
}

// firstOf returns the first non-empty tag value among the given keys.
func firstOf(tags map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := tags[k]; v != "" {
			return v
		}
	}
	return ""
}

func extractContact(tags map[string]string) Contact {
	return Contact{
		Phone:   firstOf(tags, "phone", "contact:phone"),
		Email:   firstOf(tags, "email", "contact:email"),
		Website: firstOf(tags, "website", "contact:website"),
	}
}
