package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/geomine/poisync/pkg/geo"
	"github.com/geomine/poisync/pkg/place"
)

// writeSnapshot serializes one category's normalized batch as a
// GeoJSON feature collection under the configured snapshot directory.
func (r *Runner) writeSnapshot(category string, places []place.Place) error {
	if err := os.MkdirAll(r.cfg.SnapshotDir, 0o755); err != nil {
		return fmt.Errorf("snapshot dir: %w", err)
	}

	fc := geo.NewFeatureCollection()
	for i := range places {
		fc.Features = append(fc.Features, places[i].Feature())
	}

	data, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return fmt.Errorf("snapshot encode: %w", err)
	}

	name := fmt.Sprintf("%s-%s.geojson", category, time.Now().UTC().Format("20060102T150405Z"))
	path := filepath.Join(r.cfg.SnapshotDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("snapshot write: %w", err)
	}

	r.logger.Debug("snapshot written", "path", path, "features", len(fc.Features))
	return nil
}
