// Package store persists canonical Place records in MongoDB with
// idempotent upsert semantics and geospatially indexed queries.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/geomine/poisync/pkg/geo"
	"github.com/geomine/poisync/pkg/monitoring"
	"github.com/geomine/poisync/pkg/place"
	"github.com/geomine/poisync/pkg/tracing"
)

// DefaultRadiusMeters is the proximity search radius used when the
// caller passes a non-positive radius.
const DefaultRadiusMeters = 5000.0

// ErrNotConnected is returned when an operation runs against a store
// whose connection has not been established or was already released.
var ErrNotConnected = errors.New("store: not connected")

// Store wraps a single MongoDB collection of Place documents. The
// connection is an explicitly acquired resource: Open at session
// start, Close on every exit path.
type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
	logger *slog.Logger
}

// Open establishes the database connection and ensures the required
// indexes. Index creation failures are logged but do not prevent the
// store from becoming usable.
func Open(ctx context.Context, uri, database, collection string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("store: ping: %w", err)
	}

	s := &Store{
		client: client,
		coll:   client.Database(database).Collection(collection),
		logger: slog.Default().With("component", "store"),
	}

	if err := s.EnsureIndexes(ctx); err != nil {
		s.logger.Warn("index creation failed, continuing without", "error", err)
	}
	return s, nil
}

// Close releases the connection. The store is unusable afterwards.
func (s *Store) Close(ctx context.Context) error {
	if s.client == nil {
		return ErrNotConnected
	}
	err := s.client.Disconnect(ctx)
	s.client = nil
	s.coll = nil
	return err
}

// Ping verifies the connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	if s.client == nil {
		return ErrNotConnected
	}
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *Store) connected() error {
	if s.client == nil || s.coll == nil {
		return ErrNotConnected
	}
	return nil
}

// EnsureIndexes creates the indexes the query surface depends on:
// a 2dsphere index over location, a text index spanning name and the
// language-variant tag sub-fields, a single-field category index, and
// a unique constraint on the source ID.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	if err := s.connected(); err != nil {
		return err
	}
	models := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "location", Value: "2dsphere"}},
		},
		{
			Keys: bson.D{
				{Key: "name", Value: "text"},
				{Key: "tags.name:si", Value: "text"},
				{Key: "tags.name:ta", Value: "text"},
			},
		},
		{
			Keys: bson.D{{Key: "category", Value: 1}},
		},
		{
			Keys:    bson.D{{Key: "source_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	_, err := s.coll.Indexes().CreateMany(ctx, models)
	if err != nil {
		return fmt.Errorf("store: create indexes: %w", err)
	}
	return nil
}

// UpsertPlaces performs a replace-or-insert for each record, keyed by
// source ID. A new record's creation timestamp is set once; an
// existing record keeps its original creation timestamp and has every
// other field overwritten. A failure on one record is counted and does
// not abort the batch.
func (s *Store) UpsertPlaces(ctx context.Context, places []place.Place) (UpsertSummary, error) {
	var summary UpsertSummary
	if err := s.connected(); err != nil {
		return summary, err
	}

	ctx, span := tracing.StartSpan(ctx, "store.upsert_places",
		trace.WithAttributes(attribute.Int(tracing.AttrStoreBatchSize, len(places))),
	)
	defer span.End()

	start := time.Now()
	for _, p := range places {
		if err := s.upsertOne(ctx, p, &summary); err != nil {
			summary.Failures = append(summary.Failures, FailedUpsert{
				SourceID: p.SourceID,
				Err:      err,
			})
			s.logger.Warn("upsert failed", "source_id", p.SourceID, "error", err)
		}
	}
	monitoring.UpsertBatchDuration.Observe(time.Since(start).Seconds())
	monitoring.RecordUpsertSummary(summary.Inserted, summary.Updated, summary.Unchanged, len(summary.Failures))

	tracing.SetAttributes(ctx,
		attribute.Int(tracing.AttrSyncInserted, summary.Inserted),
		attribute.Int(tracing.AttrSyncUpdated, summary.Updated),
		attribute.Int(tracing.AttrSyncUnchanged, summary.Unchanged),
		attribute.Int(tracing.AttrSyncErrors, len(summary.Failures)),
	)
	return summary, nil
}

func (s *Store) upsertOne(ctx context.Context, p place.Place, summary *UpsertSummary) error {
	filter := bson.M{"source_id": p.SourceID}

	var existing place.Place
	err := s.coll.FindOne(ctx, filter).Decode(&existing)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		p.CreatedAt = time.Now().UTC()
		if _, err := s.coll.InsertOne(ctx, p); err != nil {
			return err
		}
		summary.Inserted++
		return nil
	case err != nil:
		return err
	}

	// Creation timestamp is set once and never overwritten.
	p.CreatedAt = existing.CreatedAt
	if _, err := s.coll.ReplaceOne(ctx, filter, p); err != nil {
		return err
	}
	if Changed(existing, p) {
		summary.Updated++
	} else {
		summary.Unchanged++
	}
	return nil
}

// Nearby returns all records within radius meters of center, ordered
// nearest first. A non-positive radius selects DefaultRadiusMeters.
// extra, if non-nil, further restricts the result set.
func (s *Store) Nearby(ctx context.Context, center geo.Location, radius float64, extra bson.M) ([]place.Place, error) {
	if err := s.connected(); err != nil {
		return nil, err
	}
	if radius <= 0 {
		radius = DefaultRadiusMeters
	}

	filter := bson.M{
		"location": bson.M{
			"$nearSphere": bson.M{
				"$geometry": bson.M{
					"type":        geo.TypePoint,
					"coordinates": []float64{center.Longitude, center.Latitude},
				},
				"$maxDistance": radius,
			},
		},
	}
	for k, v := range extra {
		filter[k] = v
	}

	cur, err := s.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("store: nearby: %w", err)
	}
	out, err := decodeAll(ctx, cur)
	if err != nil {
		return nil, err
	}
	for i := range out {
		if out[i].Location != nil {
			out[i].DistanceMeters = geo.Distance(center, out[i].Location.Location())
		}
	}
	return out, nil
}

// ByCategory returns records of the given category, skip applied
// before limit. Results are ordered by source ID so pages stay stable
// across calls. Non-positive limit/skip are ignored.
func (s *Store) ByCategory(ctx context.Context, category string, limit, skip int64) ([]place.Place, error) {
	if err := s.connected(); err != nil {
		return nil, err
	}

	opts := options.Find().SetSort(bson.D{{Key: "source_id", Value: 1}})
	if skip > 0 {
		opts.SetSkip(skip)
	}
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cur, err := s.coll.Find(ctx, bson.M{"category": category}, opts)
	if err != nil {
		return nil, fmt.Errorf("store: by category: %w", err)
	}
	return decodeAll(ctx, cur)
}

// Search runs a full-text query over the text index, ranked by
// descending relevance score, optionally restricted to a category and
// capped by limit.
func (s *Store) Search(ctx context.Context, text, category string, limit int64) ([]place.Place, error) {
	if err := s.connected(); err != nil {
		return nil, err
	}

	filter := bson.M{"$text": bson.M{"$search": text}}
	if category != "" {
		filter["category"] = category
	}

	opts := options.Find().
		SetProjection(bson.M{"score": bson.M{"$meta": "textScore"}}).
		SetSort(bson.M{"score": bson.M{"$meta": "textScore"}})
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("store: search: %w", err)
	}
	return decodeAll(ctx, cur)
}

// Export projects all stored records into a GeoJSON feature
// collection, using each record's full geometry and falling back to
// its location point when the geometry is absent.
func (s *Store) Export(ctx context.Context) (*geo.FeatureCollection, error) {
	if err := s.connected(); err != nil {
		return nil, err
	}

	cur, err := s.coll.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("store: export: %w", err)
	}
	places, err := decodeAll(ctx, cur)
	if err != nil {
		return nil, err
	}

	fc := geo.NewFeatureCollection()
	for i := range places {
		fc.Features = append(fc.Features, places[i].Feature())
	}
	return fc, nil
}

func decodeAll(ctx context.Context, cur *mongo.Cursor) ([]place.Place, error) {
	defer cur.Close(ctx)
	var out []place.Place
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("store: decode: %w", err)
	}
	return out, nil
}
