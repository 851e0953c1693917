package pipeline

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/geomine/poisync/pkg/geo"
	"github.com/geomine/poisync/pkg/overpass"
)

func testConfig() Config {
	return Config{
		BBox: geo.BoundingBox{South: 5.9, West: 79.5, North: 9.9, East: 81.9},
		Selectors: []overpass.Selector{
			{Category: overpass.CategoryTourism, Values: []string{"museum"}},
		},
		MongoURI:   "mongodb://localhost:27017",
		Database:   "poisync_test",
		Collection: "places",
		Interval:   time.Hour,
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:   "valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "invalid bbox",
			mutate:  func(c *Config) { c.BBox.South = 99 },
			wantErr: true,
		},
		{
			name:    "no selectors",
			mutate:  func(c *Config) { c.Selectors = nil },
			wantErr: true,
		},
		{
			name:    "missing connection string",
			mutate:  func(c *Config) { c.MongoURI = "" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestBuildQueryIsCached(t *testing.T) {
	r, err := NewRunner(testConfig())
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}

	sel := overpass.Selector{Category: overpass.CategoryTourism, Values: []string{"museum"}}
	first := r.buildQuery(sel)
	second := r.buildQuery(sel)
	if first != second {
		t.Errorf("cached query differs:\n%s\n%s", first, second)
	}
	if want := overpass.BuildQuery(r.cfg.BBox, sel); first != want {
		t.Errorf("cached query = %s, want %s", first, want)
	}

	// A different selector must not hit the same cache entry.
	other := r.buildQuery(overpass.Selector{Category: overpass.CategoryTourism, Values: []string{"zoo"}})
	if other == first {
		t.Error("distinct selectors produced the same cached query")
	}
}

func TestCollectPipeline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"elements":[
			{"type":"node","id":101,"lat":7.0,"lon":80.0,"tags":{"tourism":"museum","name":"National Museum"}},
			{"type":"node","id":1,"lat":6.0,"lon":80.0},
			{"type":"node","id":2,"lat":6.0,"lon":80.1},
			{"type":"way","id":10,"nodes":[1,2,999],"tags":{"tourism":"attraction"}}
		]}`))
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.OverpassURL = srv.URL
	r, err := NewRunner(cfg)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	r.Client().SetRateLimit(100, 10)

	places, err := r.Collect(context.Background(), cfg.Selectors[0])
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	// The way references a node missing from the graph and is dropped;
	// the untagged nodes are geometry carriers, not features.
	if len(places) != 1 {
		t.Fatalf("got %d places, want 1", len(places))
	}
	p := places[0]
	if p.SourceID != 101 || p.Category != "tourism" || p.Subcategory != "museum" {
		t.Errorf("unexpected place: %+v", p)
	}
	if p.RetrievedAt.IsZero() {
		t.Error("retrieval timestamp not set")
	}
}

func TestCollectSurfacesTransportErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gateway timeout", http.StatusGatewayTimeout)
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.OverpassURL = srv.URL
	r, err := NewRunner(cfg)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	r.Client().SetRateLimit(100, 10)

	if _, err := r.Collect(context.Background(), cfg.Selectors[0]); !overpass.IsTransport(err) {
		t.Errorf("expected transport error, got %v", err)
	}
}

func TestRunOnceRejectsOverlap(t *testing.T) {
	r, err := NewRunner(testConfig())
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}

	// Simulate a cycle in flight.
	if !r.cycle.TryAcquire(1) {
		t.Fatal("could not acquire cycle semaphore")
	}
	defer r.cycle.Release(1)

	if err := r.RunOnce(context.Background()); err != ErrCycleInProgress {
		t.Errorf("RunOnce error = %v, want ErrCycleInProgress", err)
	}
}
