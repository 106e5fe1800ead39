// Package pipeline orchestrates one fusion run: parse the flight log,
// build the local frame and flight path, extract photo geotags, project
// them onto the trajectory and map the remainder through the sequential
// fallback, then persist the result.
package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"

	"github.com/geopose/geopose/internal/exifgps"
	"github.com/geopose/geopose/internal/fallback"
	"github.com/geopose/geopose/internal/flightlog"
	"github.com/geopose/geopose/internal/geo"
	"github.com/geopose/geopose/internal/model"
	"github.com/geopose/geopose/internal/projector"
	"github.com/geopose/geopose/internal/storage"
	"github.com/geopose/geopose/internal/util"
)

// photoExtensions lists the image types picked up from the images
// directory, lowercase.
var photoExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".tif":  true,
	".tiff": true,
}

// fusedAccuracyFloorM is the minimum gps_accuracy reported for a fused
// position; sub-2m claims would overstate consumer GPS precision.
const fusedAccuracyFloorM = 2

// GeoTagExtractor pulls GPS metadata from a photo file. Satisfied by
// *exifgps.Extractor; tests substitute a canned implementation.
type GeoTagExtractor interface {
	Extract(path string) (exifgps.Result, error)
}

// Service runs the fusion pipeline. Build one per process with New.
type Service struct {
	logger    *slog.Logger
	extractor GeoTagExtractor
	backends  []storage.Backend
	projCfg   projector.Config
}

// New assembles a pipeline service from its dependencies.
func New(logger *slog.Logger, extractor GeoTagExtractor, backends []storage.Backend, projCfg projector.Config) *Service {
	return &Service{
		logger:    logger,
		extractor: extractor,
		backends:  backends,
		projCfg:   projCfg,
	}
}

// Run executes one complete fusion run over a flight log CSV and an images
// directory, writes the result to every backend, and returns it.
func (s *Service) Run(csvPath, imagesDir string) (*model.RunResult, error) {
	started := time.Now()
	runID := uuid.NewString()
	logger := s.logger.With("runId", runID)

	logger.Info("Starting fusion run", "csv", csvPath, "imagesDir", imagesDir)

	waypoints, err := s.parseFlightLog(csvPath)
	if err != nil {
		return nil, err
	}

	frame, err := geo.NewLocalFrame(waypoints, logger)
	if err != nil {
		return nil, err
	}
	path, err := geo.NewFlightPath(frame, waypoints, logger)
	if err != nil {
		return nil, err
	}

	photos, err := discoverPhotos(imagesDir)
	if err != nil {
		return nil, err
	}
	logger.Info("Batch assembled",
		"waypoints", len(waypoints),
		"segments", len(path.Segments),
		"photos", len(photos))

	photos, failures := s.extractGeoTags(imagesDir, photos, logger)

	positions := s.assignPositions(frame, path, waypoints, photos, logger)

	res := &model.RunResult{
		RunID:         runID,
		OriginLat:     frame.OriginLat,
		OriginLon:     frame.OriginLon,
		UTMZone:       frame.Zone,
		Positions:     positions,
		Summary:       summarize(positions, failures),
		CSVPath:       csvPath,
		ImagesDir:     imagesDir,
		WaypointCount: len(waypoints),
		SegmentCount:  len(path.Segments),
		StartedAt:     started.UTC(),
	}
	res.Duration = time.Since(started)

	for _, backend := range s.backends {
		if err := backend.WriteRun(res); err != nil {
			return nil, err
		}
	}

	logger.Info("Fusion run complete",
		"photos", res.Summary.TotalPhotos,
		"fused", res.Summary.FusedPhotos,
		"meanConfidence", res.Summary.MeanConfidence,
		"durationMs", res.Duration.Milliseconds())
	return res, nil
}

// parseFlightLog reads and canonicalizes the flight log CSV.
func (s *Service) parseFlightLog(csvPath string) ([]model.Waypoint, error) {
	f, err := os.Open(csvPath)
	if err != nil {
		return nil, fmt.Errorf("cannot open flight log %s: %w", csvPath, err)
	}
	defer func() { _ = f.Close() }()

	waypoints, err := flightlog.NewParser(s.logger).Parse(f)
	if err != nil {
		return nil, err
	}
	return waypoints, nil
}

// discoverPhotos lists the images in dir in lexicographic filename order,
// which is capture order for every camera naming scheme this pipeline
// supports.
func discoverPhotos(dir string) ([]model.Photo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot read images directory %s: %w", dir, err)
	}

	var photos []model.Photo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if photoExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			photos = append(photos, model.Photo{Filename: entry.Name()})
		}
	}
	if len(photos) == 0 {
		return nil, fmt.Errorf("no photos found in %s", dir)
	}

	sort.Slice(photos, func(i, j int) bool {
		return photos[i].Filename < photos[j].Filename
	})
	return photos, nil
}

// extractGeoTags fills each photo's ExifGPS field. Failures never abort
// the batch: a photo whose tags cannot be read or parsed is recorded and
// falls through to the sequential mapper.
func (s *Service) extractGeoTags(imagesDir string, photos []model.Photo, logger *slog.Logger) ([]model.Photo, []model.ExifFailure) {
	var failures []model.ExifFailure

	for i := range photos {
		res, err := s.extractor.Extract(filepath.Join(imagesDir, photos[i].Filename))
		if err != nil {
			var parseErr *model.ExifParseError
			reason := err.Error()
			if errors.As(err, &parseErr) {
				reason = parseErr.Reason
			}
			logger.Warn("EXIF extraction failed, photo falls back to sequential mapping",
				"photo", photos[i].Filename, "reason", reason)
			failures = append(failures, model.ExifFailure{
				Filename: photos[i].Filename,
				Reason:   reason,
			})
			continue
		}
		photos[i].ExifGPS = res.Tag
		photos[i].CapturedAt = res.CapturedAt
	}

	return photos, failures
}

// assignPositions produces exactly one PhotoPosition per photo, in photo
// order. Geotagged photos go through trajectory projection plus crossover
// resolution; the rest through the fallback mapper.
func (s *Service) assignPositions(frame *geo.LocalFrame, path *geo.FlightPath, waypoints []model.Waypoint, photos []model.Photo, logger *slog.Logger) []model.PhotoPosition {
	var queries []projector.Query
	for i, photo := range photos {
		if photo.ExifGPS == nil {
			continue
		}
		local := frame.ToLocal(photo.ExifGPS.Lat, photo.ExifGPS.Lon, 0)
		queries = append(queries, projector.Query{Index: i, X: local.X, Y: local.Y})
	}

	naive := projector.ProjectAll(path, queries, s.projCfg)
	resolutions := projector.ResolveSequence(path, queries, naive, s.projCfg, logger)

	mapper := fallback.NewMapper(frame, waypoints, len(photos), logger)

	positions := make([]model.PhotoPosition, len(photos))
	next := 0
	for i, photo := range photos {
		if photo.ExifGPS == nil {
			positions[i] = mapper.Position(i, photo.Filename, "no exif gps")
			continue
		}
		positions[i] = s.fusedPosition(frame, waypoints, photo, resolutions[next])
		next++
	}
	return positions
}

// fusedPosition converts a resolved trajectory match into the photo's
// output position. The emitted lat/lon are always the photo's original
// EXIF values; only the altitude and the segment metadata are derived
// from the trajectory. Heading and gimbal pitch interpolate between the
// segment's endpoint waypoints.
func (s *Service) fusedPosition(frame *geo.LocalFrame, waypoints []model.Waypoint, photo model.Photo, r projector.Resolution) model.PhotoPosition {
	lat := photo.ExifGPS.Lat
	lon := photo.ExifGPS.Lon
	local := frame.ToLocal(lat, lon, r.AltitudeM)

	a := waypoints[r.SegmentID]
	b := waypoints[r.SegmentID+1]
	heading := geo.InterpolateHeadingDeg(a.HeadingDeg, b.HeadingDeg, r.T)
	pitch := a.GimbalPitchDeg + r.T*(b.GimbalPitchDeg-a.GimbalPitchDeg)

	return model.PhotoPosition{
		Filename:            photo.Filename,
		Lat:                 lat,
		Lon:                 lon,
		AltitudeM:           r.AltitudeM,
		Local:               local,
		HeadingDeg:          heading,
		GimbalPitchDeg:      pitch,
		Method:              model.ExifTrajectoryProjection,
		Confidence:          r.Confidence,
		ProjectionDistanceM: r.DistanceM,
		SegmentID:           r.SegmentID,
		CrossoverResolved:   r.Resolved,
		GPSAccuracyM:        math.Max(fusedAccuracyFloorM, r.DistanceM),
	}
}

// summarize aggregates the per-run statistics.
func summarize(positions []model.PhotoPosition, failures []model.ExifFailure) model.RunSummary {
	summary := model.RunSummary{
		TotalPhotos:  len(positions),
		MethodCounts: make(map[string]int),
		ExifFailures: failures,
	}

	var confidences, distances, accuracies []float64
	fallbackAccuracyM := 0.0
	for _, pos := range positions {
		summary.MethodCounts[pos.Method.String()]++
		if pos.CrossoverResolved {
			summary.CrossoverResolvedCount++
		}
		if !pos.Fused() {
			fallbackAccuracyM = math.Max(fallbackAccuracyM, pos.GPSAccuracyM)
			continue
		}
		summary.FusedPhotos++
		confidences = append(confidences, pos.Confidence)
		distances = append(distances, pos.ProjectionDistanceM)
		accuracies = append(accuracies, pos.GPSAccuracyM)
	}

	if len(confidences) > 0 {
		summary.MeanConfidence = stat.Mean(confidences, nil)
		if len(confidences) > 1 {
			summary.StdDevConfidence = stat.StdDev(confidences, nil)
		}
		summary.MeanDistanceM = stat.Mean(distances, nil)
	}

	// Estimated accuracy gain of fused positions over what the pure
	// sequential fallback would have claimed for them.
	if fallbackAccuracyM == 0 {
		fallbackAccuracyM = fallback.DirectAccuracyM
	}
	if len(accuracies) > 0 {
		gain := 1 - stat.Mean(accuracies, nil)/fallbackAccuracyM
		fraction := float64(summary.FusedPhotos) / float64(summary.TotalPhotos)
		summary.EstimatedImprovementPct = util.Clamp(gain, 0, 1) * fraction * 100
	}

	return summary
}
