// Package files implements the storage.Backend that writes the SfM-facing
// output files: per-photo priors, the shared reference origin, and the run
// summary.
package files

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/geopose/geopose/internal/model"
)

// Output filenames consumed by the downstream SfM stage.
const (
	PriorsFileName    = "gps_data.json"
	ReferenceFileName = "reference.lla"
	SummaryFileName   = "fusion_summary.json"
)

// PhotoEntry is the per-photo priors record keyed by filename in
// gps_data.json.
type PhotoEntry struct {
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Altitude    float64 `json:"altitude"`
	LocalX      float64 `json:"local_x"`
	LocalY      float64 `json:"local_y"`
	LocalZ      float64 `json:"local_z"`
	Heading     float64 `json:"heading"`
	GimbalPitch float64 `json:"gimbal_pitch"`
	GPSAccuracy float64 `json:"gps_accuracy"`

	Trajectory *TrajectoryMetadata `json:"_trajectory_metadata,omitempty"`
}

// TrajectoryMetadata carries the fusion audit trail for a photo.
type TrajectoryMetadata struct {
	Source               string              `json:"source"`
	MappingMethod        model.MappingMethod `json:"mapping_method"`
	TrajectoryConfidence float64             `json:"trajectory_confidence"`
	ProjectionDistanceM  float64             `json:"projection_distance_m"`
	FlightSegmentID      int                 `json:"flight_segment_id"`
	CrossoverResolved    bool                `json:"crossover_resolved"`
}

// Backend writes run output files into an output directory.
type Backend struct {
	outputDir string
	logger    *slog.Logger
}

// New creates a files backend rooted at outputDir.
func New(outputDir string, logger *slog.Logger) *Backend {
	return &Backend{outputDir: outputDir, logger: logger}
}

// Init ensures the output directory exists.
func (b *Backend) Init() error {
	if err := os.MkdirAll(b.outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return nil
}

// Close is a no-op; every write is flushed in WriteRun.
func (b *Backend) Close() error { return nil }

// WriteRun writes gps_data.json, reference.lla and fusion_summary.json.
// Every input photo must appear exactly once in the priors file; anything
// else fails the run.
func (b *Backend) WriteRun(res *model.RunResult) error {
	entries, err := buildEntries(res)
	if err != nil {
		return err
	}

	if err := b.writeJSON(PriorsFileName, entries); err != nil {
		return err
	}
	if err := b.writeReference(res); err != nil {
		return err
	}
	if err := b.writeJSON(SummaryFileName, summaryDoc(res)); err != nil {
		return err
	}

	b.logger.Info("Wrote run output",
		"outputDir", b.outputDir,
		"photos", len(entries))
	return nil
}

// buildEntries converts positions to priors entries, enforcing the
// one-position-per-photo invariant.
func buildEntries(res *model.RunResult) (map[string]PhotoEntry, error) {
	entries := make(map[string]PhotoEntry, len(res.Positions))
	for _, pos := range res.Positions {
		if _, dup := entries[pos.Filename]; dup {
			return nil, fmt.Errorf("duplicate position for photo %q", pos.Filename)
		}

		entry := PhotoEntry{
			Latitude:    pos.Lat,
			Longitude:   pos.Lon,
			Altitude:    pos.AltitudeM,
			LocalX:      pos.Local.X,
			LocalY:      pos.Local.Y,
			LocalZ:      pos.Local.Z,
			Heading:     pos.HeadingDeg,
			GimbalPitch: pos.GimbalPitchDeg,
			GPSAccuracy: pos.GPSAccuracyM,
		}

		// Trajectory audit metadata belongs to fused entries only;
		// fallback photos are accounted for in the run summary and the
		// archive instead.
		if pos.Fused() {
			entry.Trajectory = &TrajectoryMetadata{
				Source:               "exif_trajectory_projection",
				MappingMethod:        pos.Method,
				TrajectoryConfidence: pos.Confidence,
				ProjectionDistanceM:  pos.ProjectionDistanceM,
				FlightSegmentID:      pos.SegmentID,
				CrossoverResolved:    pos.CrossoverResolved,
			}
		}

		entries[pos.Filename] = entry
	}

	if len(entries) != res.Summary.TotalPhotos {
		return nil, fmt.Errorf("output has %d photo entries, batch had %d photos",
			len(entries), res.Summary.TotalPhotos)
	}
	return entries, nil
}

// writeReference writes the single-line origin file the SfM tool uses to
// interpret local coordinates.
func (b *Backend) writeReference(res *model.RunResult) error {
	line := fmt.Sprintf("%.10f %.10f 0.0\n", res.OriginLat, res.OriginLon)
	path := filepath.Join(b.outputDir, ReferenceFileName)
	if err := os.WriteFile(path, []byte(line), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", ReferenceFileName, err)
	}
	return nil
}

// writeJSON marshals v with stable key ordering and trailing newline.
func (b *Backend) writeJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}
	data = append(data, '\n')

	path := filepath.Join(b.outputDir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

// summaryDoc shapes the run summary for serialization.
func summaryDoc(res *model.RunResult) map[string]any {
	return map[string]any{
		"run_id":         res.RunID,
		"started_at":     res.StartedAt.UTC().Format(time.RFC3339),
		"duration_ms":    res.Duration.Milliseconds(),
		"csv_path":       res.CSVPath,
		"images_dir":     res.ImagesDir,
		"waypoint_count": res.WaypointCount,
		"segment_count":  res.SegmentCount,
		"origin": map[string]any{
			"latitude":  res.OriginLat,
			"longitude": res.OriginLon,
			"utm_zone":  res.UTMZone,
		},
		"summary": res.Summary,
	}
}
