package store

import (
	"reflect"
	"time"

	"github.com/geomine/poisync/pkg/place"
)

// FailedUpsert records one per-record failure within a batch.
type FailedUpsert struct {
	SourceID int64
	Err      error
}

// UpsertSummary accumulates the outcome of one upsert batch. Updated
// counts only writes where the stored fields actually changed value;
// a rewrite that leaves the record identical counts as Unchanged.
type UpsertSummary struct {
	Inserted  int
	Updated   int
	Unchanged int
	Failures  []FailedUpsert
}

// Errors returns the number of per-record failures in the batch.
func (s UpsertSummary) Errors() int {
	return len(s.Failures)
}

// Total returns the number of records attempted.
func (s UpsertSummary) Total() int {
	return s.Inserted + s.Updated + s.Unchanged + len(s.Failures)
}

// Changed reports whether the persistent fields of two records differ.
// Both timestamps are excluded from the comparison: the retrieval
// timestamp differs on every sync run, and the creation timestamp is
// preserved by the upsert anyway. Without this exclusion every no-op
// rewrite would inflate the updated counter. The transient query
// distance is likewise ignored.
func Changed(a, b place.Place) bool {
	a.RetrievedAt = time.Time{}
	a.CreatedAt = time.Time{}
	a.DistanceMeters = 0
	b.RetrievedAt = time.Time{}
	b.CreatedAt = time.Time{}
	b.DistanceMeters = 0
	return !reflect.DeepEqual(a, b)
}

// Stats holds aggregate statistics over the stored records.
type Stats struct {
	Total         int64        `json:"total"`
	Categories    []GroupCount `json:"categories"`
	Subcategories []GroupCount `json:"subcategories"`
}

// GroupCount is one bucket of a grouped count.
type GroupCount struct {
	Value string `json:"value" bson:"_id"`
	Count int64  `json:"count" bson:"count"`
}
