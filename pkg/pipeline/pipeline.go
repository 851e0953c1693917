// Package pipeline orchestrates the sync cycle: build query, fetch,
// convert, normalize, store. Cycles are strictly sequential; multiple
// category dimensions are fetched one at a time with a politeness
// delay between network calls.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"github.com/geomine/poisync/pkg/convert"
	"github.com/geomine/poisync/pkg/geo"
	"github.com/geomine/poisync/pkg/monitoring"
	"github.com/geomine/poisync/pkg/overpass"
	"github.com/geomine/poisync/pkg/place"
	"github.com/geomine/poisync/pkg/store"
	"github.com/geomine/poisync/pkg/tracing"
)

// ErrCycleInProgress is returned when a sync cycle is requested while
// a previous cycle is still running. Cycles never overlap.
var ErrCycleInProgress = errors.New("pipeline: sync cycle already in progress")

// queryCacheSize bounds the built-query cache. Query construction is
// pure, so cached strings never go stale.
const queryCacheSize = 64

// Config carries every externally supplied parameter the pipeline
// consumes. The pipeline never reads environment or files itself.
type Config struct {
	BBox      geo.BoundingBox
	Selectors []overpass.Selector

	OverpassURL string
	UserAgent   string

	MongoURI   string
	Database   string
	Collection string

	// Interval between periodic cycles; FetchDelay is the politeness
	// pause inserted between consecutive Overpass calls in one cycle.
	Interval   time.Duration
	FetchDelay time.Duration

	// SnapshotDir, when set, receives a GeoJSON file per category per
	// cycle as a backup artifact.
	SnapshotDir string
}

// Validate checks the parts of the configuration the pipeline depends
// on for correctness.
func (c Config) Validate() error {
	if err := c.BBox.Validate(); err != nil {
		return err
	}
	if len(c.Selectors) == 0 {
		return errors.New("pipeline: no tag selectors configured")
	}
	if c.MongoURI == "" {
		return errors.New("pipeline: storage connection string is required")
	}
	return nil
}

// Runner drives sync cycles against one Overpass endpoint and one
// store collection.
type Runner struct {
	cfg     Config
	client  *overpass.Client
	logger  *slog.Logger
	cycle   *semaphore.Weighted
	queries *lru.Cache[string, string]
}

// NewRunner validates the configuration and prepares a runner.
func NewRunner(cfg Config) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := overpass.NewClient(cfg.OverpassURL)
	client.SetUserAgent(cfg.UserAgent)

	queries, err := lru.New[string, string](queryCacheSize)
	if err != nil {
		return nil, err
	}

	return &Runner{
		cfg:     cfg,
		client:  client,
		logger:  slog.Default().With("component", "pipeline"),
		cycle:   semaphore.NewWeighted(1),
		queries: queries,
	}, nil
}

// Client exposes the underlying Overpass client for rate-limit tuning.
func (r *Runner) Client() *overpass.Client {
	return r.client
}

// RunOnce executes a single sync cycle. If a cycle is already running
// it returns ErrCycleInProgress without doing any work.
func (r *Runner) RunOnce(ctx context.Context) error {
	if !r.cycle.TryAcquire(1) {
		monitoring.RecordSyncCycle(monitoring.StatusSkipped, 0)
		return ErrCycleInProgress
	}
	defer r.cycle.Release(1)

	start := time.Now()
	err := r.runCycle(ctx)
	status := monitoring.StatusSuccess
	if err != nil {
		status = monitoring.StatusError
	}
	monitoring.RecordSyncCycle(status, time.Since(start))
	return err
}

// Run executes one cycle immediately, then repeats on a fixed
// wall-clock interval until the context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.RunOnce(ctx); err != nil {
		r.logger.Error("sync cycle failed", "error", err)
	}

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.RunOnce(ctx); err != nil {
				if errors.Is(err, ErrCycleInProgress) {
					r.logger.Warn("previous sync cycle still running, skipping tick")
					continue
				}
				r.logger.Error("sync cycle failed", "error", err)
			}
		}
	}
}

// runCycle opens the store session, syncs each category in turn, and
// releases the connection on every exit path. A failure in one
// category does not prevent the remaining categories from being
// attempted.
func (r *Runner) runCycle(ctx context.Context) error {
	ctx, span := tracing.StartSpan(ctx, "pipeline.sync_cycle")
	defer span.End()

	st, err := store.Open(ctx, r.cfg.MongoURI, r.cfg.Database, r.cfg.Collection)
	if err != nil {
		tracing.RecordError(ctx, err)
		tracing.SetStatus(ctx, codes.Error, "store open failed")
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if cerr := st.Close(context.WithoutCancel(ctx)); cerr != nil {
			r.logger.Error("failed to release store connection", "error", cerr)
		}
	}()

	var errs []error
	for i, sel := range r.cfg.Selectors {
		if len(sel.Values) == 0 {
			continue
		}
		if i > 0 && r.cfg.FetchDelay > 0 {
			select {
			case <-time.After(r.cfg.FetchDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err := r.syncCategory(ctx, st, sel); err != nil {
			monitoring.RecordCategorySync(sel.Category, monitoring.StatusError)
			r.logger.Error("category sync failed",
				"category", sel.Category, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", sel.Category, err))
			continue
		}
		monitoring.RecordCategorySync(sel.Category, monitoring.StatusSuccess)
	}
	return errors.Join(errs...)
}

// syncCategory runs the full pipeline for one category dimension.
func (r *Runner) syncCategory(ctx context.Context, st *store.Store, sel overpass.Selector) error {
	ctx, span := tracing.StartSpan(ctx, "pipeline.sync_category",
		trace.WithAttributes(attribute.String(tracing.AttrSyncCategory, sel.Category)),
	)
	defer span.End()

	places, err := r.Collect(ctx, sel)
	if err != nil {
		tracing.RecordError(ctx, err)
		tracing.SetStatus(ctx, codes.Error, "collect failed")
		return err
	}
	tracing.SetAttributes(ctx, attribute.Int(tracing.AttrSyncPlaces, len(places)))

	if r.cfg.SnapshotDir != "" {
		if err := r.writeSnapshot(sel.Category, places); err != nil {
			// Snapshot files are a peripheral artifact; their failure
			// must not fail the sync.
			r.logger.Warn("snapshot write failed",
				"category", sel.Category, "error", err)
		} else {
			tracing.AddEvent(ctx, "snapshot written")
		}
	}

	summary, err := st.UpsertPlaces(ctx, places)
	if err != nil {
		tracing.RecordError(ctx, err)
		tracing.SetStatus(ctx, codes.Error, "upsert failed")
		return err
	}

	r.logger.Info("category synced",
		"category", sel.Category,
		"places", len(places),
		"inserted", summary.Inserted,
		"updated", summary.Updated,
		"unchanged", summary.Unchanged,
		"errors", summary.Errors(),
	)
	return nil
}

// Collect fetches, converts and normalizes one category dimension
// without touching the store.
func (r *Runner) Collect(ctx context.Context, sel overpass.Selector) ([]place.Place, error) {
	elements, err := r.client.Fetch(ctx, r.buildQuery(sel))
	if err != nil {
		return nil, err
	}
	features := convert.Resolve(elements)
	return place.Normalize(features), nil
}

// buildQuery returns the query string for one selector, reusing the
// cached build for repeated cycles over the same configuration.
func (r *Runner) buildQuery(sel overpass.Selector) string {
	key := fmt.Sprintf("%+v|%+v", r.cfg.BBox, sel)
	if q, ok := r.queries.Get(key); ok {
		monitoring.CacheHits.WithLabelValues("query").Inc()
		return q
	}
	monitoring.CacheMisses.WithLabelValues("query").Inc()
	q := overpass.BuildQuery(r.cfg.BBox, sel)
	r.queries.Add(key, q)
	return q
}
