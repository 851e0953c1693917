// Command poisync mines points of interest from OpenStreetMap via the
// Overpass API and synchronizes them into a geospatially indexed
// MongoDB collection, either once or on a fixed interval.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/geomine/poisync/pkg/geo"
	"github.com/geomine/poisync/pkg/monitoring"
	"github.com/geomine/poisync/pkg/overpass"
	"github.com/geomine/poisync/pkg/pipeline"
	"github.com/geomine/poisync/pkg/store"
	"github.com/geomine/poisync/pkg/tracing"
	ver "github.com/geomine/poisync/pkg/version"
)

var (
	showVersionFlag bool
	debug           bool
	runOnce         bool

	bboxFlag  string
	userAgent string

	// Per-category tag value lists
	tourismTags  string
	amenityTags  string
	historicTags string
	naturalTags  string
	leisureTags  string

	// Overpass flags
	overpassURL   string
	overpassRPS   float64
	overpassBurst int
	fetchDelay    time.Duration

	// Storage flags
	mongoURI   string
	database   string
	collection string

	// Scheduling flags
	interval    time.Duration
	snapshotDir string

	// Monitoring flags
	enableMonitoring bool
	monitoringAddr   string
)

func init() {
	flag.BoolVar(&showVersionFlag, "version", false, "Display version information")
	flag.BoolVar(&debug, "debug", false, "Enable debug logging")
	flag.BoolVar(&runOnce, "once", false, "Run a single sync cycle and exit")

	// Sri Lanka by default; the original deployment targets its tourism data.
	flag.StringVar(&bboxFlag, "bbox", "5.9,79.5,9.9,81.9", "Bounding box as south,west,north,east")
	flag.StringVar(&userAgent, "user-agent", overpass.DefaultUserAgent, "User-Agent string for Overpass API requests")

	flag.StringVar(&tourismTags, "tourism", "attraction,museum,viewpoint,hotel,guest_house,zoo,theme_park",
		"Comma-separated tourism tag values to sync (empty disables)")
	flag.StringVar(&amenityTags, "amenity", "restaurant,cafe,place_of_worship",
		"Comma-separated amenity tag values to sync (empty disables)")
	flag.StringVar(&historicTags, "historic", "monument,castle,ruins,archaeological_site",
		"Comma-separated historic tag values to sync (empty disables)")
	flag.StringVar(&naturalTags, "natural", "beach,peak,waterfall",
		"Comma-separated natural tag values to sync (empty disables)")
	flag.StringVar(&leisureTags, "leisure", "park,garden,nature_reserve",
		"Comma-separated leisure tag values to sync (empty disables)")

	flag.StringVar(&overpassURL, "overpass-url", overpass.DefaultBaseURL, "Overpass API interpreter URL")
	flag.Float64Var(&overpassRPS, "overpass-rps", 1.0, "Overpass rate limit in requests per second")
	flag.IntVar(&overpassBurst, "overpass-burst", 1, "Overpass rate limit burst size")
	flag.DurationVar(&fetchDelay, "fetch-delay", 2*time.Second, "Politeness delay between Overpass calls in one cycle")

	flag.StringVar(&mongoURI, "mongo-uri", "mongodb://localhost:27017", "MongoDB connection string")
	flag.StringVar(&database, "database", "poisync", "MongoDB database name")
	flag.StringVar(&collection, "collection", "places", "MongoDB collection name")

	flag.DurationVar(&interval, "interval", 6*time.Hour, "Interval between periodic sync cycles")
	flag.StringVar(&snapshotDir, "snapshot-dir", "", "Directory for per-category GeoJSON snapshots (empty disables)")

	flag.BoolVar(&enableMonitoring, "enable-monitoring", true, "Enable Prometheus metrics and health endpoints")
	flag.StringVar(&monitoringAddr, "monitoring-addr", ":9090", "Monitoring server address")
}

func main() {
	flag.Parse()

	var logLevel slog.Level
	if debug {
		logLevel = slog.LevelDebug
	} else {
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	if showVersionFlag {
		fmt.Printf("poisync %s (commit %s, built %s)\n",
			ver.BuildVersion, ver.BuildCommit, ver.BuildDate)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.InitTracing(ctx, ver.BuildVersion)
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
		// Continue without tracing - it's not critical
	} else {
		defer func() {
			if err := shutdownTracing(context.Background()); err != nil {
				logger.Error("error shutting down tracing", "error", err)
			}
		}()
	}

	bbox, err := parseBBox(bboxFlag)
	if err != nil {
		logger.Error("invalid bounding box", "bbox", bboxFlag, "error", err)
		os.Exit(1)
	}

	cfg := pipeline.Config{
		BBox:        bbox,
		Selectors:   buildSelectors(),
		OverpassURL: overpassURL,
		UserAgent:   userAgent,
		MongoURI:    mongoURI,
		Database:    database,
		Collection:  collection,
		Interval:    interval,
		FetchDelay:  fetchDelay,
		SnapshotDir: snapshotDir,
	}

	runner, err := pipeline.NewRunner(cfg)
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	runner.Client().SetRateLimit(overpassRPS, overpassBurst)

	if enableMonitoring {
		hc := monitoring.NewHealthChecker(monitoring.ServiceName, ver.BuildVersion)
		defer hc.Shutdown()

		mongoMonitor := monitoring.NewConnectionMonitor("mongodb", hc, func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			st, err := store.Open(pingCtx, mongoURI, database, collection)
			if err != nil {
				return err
			}
			return st.Close(pingCtx)
		}, time.Minute)
		mongoMonitor.Start()
		defer mongoMonitor.Stop()

		srv := monitoring.StartServer(monitoringAddr, hc, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("monitoring server shutdown failed", "error", err)
			}
		}()
	}

	logger.Info("starting poisync",
		"version", ver.BuildVersion,
		"bbox", bboxFlag,
		"categories", len(cfg.Selectors),
		"once", runOnce,
	)

	if runOnce {
		if err := runner.RunOnce(ctx); err != nil {
			logger.Error("sync failed", "error", err)
			os.Exit(1)
		}
		return
	}

	if err := runner.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("sync loop terminated", "error", err)
		os.Exit(1)
	}
	logger.Info("shutting down")
}

// parseBBox parses "south,west,north,east" into a bounding box.
func parseBBox(s string) (geo.BoundingBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return geo.BoundingBox{}, fmt.Errorf("expected 4 comma-separated values, got %d", len(parts))
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return geo.BoundingBox{}, fmt.Errorf("value %q: %w", p, err)
		}
		vals[i] = v
	}
	bbox := geo.BoundingBox{South: vals[0], West: vals[1], North: vals[2], East: vals[3]}
	return bbox, bbox.Validate()
}

// buildSelectors assembles tag selectors from the per-category flags,
// in the fixed category priority order.
func buildSelectors() []overpass.Selector {
	lists := map[string]string{
		overpass.CategoryTourism:  tourismTags,
		overpass.CategoryAmenity:  amenityTags,
		overpass.CategoryHistoric: historicTags,
		overpass.CategoryNatural:  naturalTags,
		overpass.CategoryLeisure:  leisureTags,
	}
	var sels []overpass.Selector
	for _, cat := range overpass.Categories {
		values := splitList(lists[cat])
		if len(values) == 0 {
			continue
		}
		sels = append(sels, overpass.Selector{Category: cat, Values: values})
	}
	return sels
}

func splitList(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
