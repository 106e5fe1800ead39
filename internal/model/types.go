// Package model holds the domain types shared across the fusion pipeline.
package model

import "time"

// Position3D represents a point in the local metric frame.
type Position3D struct {
	X float64 `json:"x"` // easting offset from origin, meters
	Y float64 `json:"y"` // northing offset from origin, meters
	Z float64 `json:"z"` // altitude, meters
}

// Waypoint is one logged flight-controller sample. Immutable once parsed.
type Waypoint struct {
	Lat            float64 `json:"lat"`
	Lon            float64 `json:"lon"`
	AltM           float64 `json:"altM"`
	HeadingDeg     float64 `json:"headingDeg"`
	GimbalPitchDeg float64 `json:"gimbalPitchDeg"`
	Index          int     `json:"index"`
}

// GeoTag is the GPS geotag extracted from a photo's EXIF metadata.
// Alt is carried for diagnostics only; output altitude always comes from
// trajectory interpolation because EXIF altitude tags are unreliable.
type GeoTag struct {
	Lat float64  `json:"lat"`
	Lon float64  `json:"lon"`
	Alt *float64 `json:"alt,omitempty"`
}

// Photo is one survey image queued for position assignment.
type Photo struct {
	Filename   string     `json:"filename"`
	CapturedAt *time.Time `json:"capturedAt,omitempty"`
	ExifGPS    *GeoTag    `json:"exifGps,omitempty"`
}

// PhotoPosition is the fused position prior for a single photo.
// Every photo in a batch ends with exactly one PhotoPosition.
type PhotoPosition struct {
	Filename            string        `json:"filename"`
	Lat                 float64       `json:"lat"`
	Lon                 float64       `json:"lon"`
	AltitudeM           float64       `json:"altitudeM"`
	Local               Position3D    `json:"local"`
	HeadingDeg          float64       `json:"headingDeg"`
	GimbalPitchDeg      float64       `json:"gimbalPitchDeg"`
	Method              MappingMethod `json:"mappingMethod"`
	Confidence          float64       `json:"trajectoryConfidence"`
	ProjectionDistanceM float64       `json:"projectionDistanceM"`
	SegmentID           int           `json:"flightSegmentId"`
	CrossoverResolved   bool          `json:"crossoverResolved"`
	GPSAccuracyM        float64       `json:"gpsAccuracyM"`
	FallbackReason      string        `json:"fallbackReason,omitempty"`
}

// Fused reports whether the position was derived from EXIF GPS projected
// onto the flight trajectory.
func (p PhotoPosition) Fused() bool {
	return p.Method == ExifTrajectoryProjection
}

// ExifFailure records a photo whose EXIF GPS tags existed but could not be
// parsed, for the run summary.
type ExifFailure struct {
	Filename string `json:"filename"`
	Reason   string `json:"reason"`
}

// RunSummary aggregates per-run statistics for auditing.
type RunSummary struct {
	TotalPhotos             int            `json:"totalPhotos"`
	MethodCounts            map[string]int `json:"methodCounts"`
	FusedPhotos             int            `json:"fusedPhotos"`
	MeanConfidence          float64        `json:"meanConfidence"`
	StdDevConfidence        float64        `json:"stdDevConfidence"`
	MeanDistanceM           float64        `json:"meanDistanceM"`
	CrossoverResolvedCount  int            `json:"crossoverResolvedCount"`
	ExifFailures            []ExifFailure  `json:"exifFailures,omitempty"`
	EstimatedImprovementPct float64        `json:"estimatedImprovementPct"`
}

// RunResult is the complete output of one fusion run.
type RunResult struct {
	RunID         string          `json:"runId"`
	OriginLat     float64         `json:"originLat"`
	OriginLon     float64         `json:"originLon"`
	UTMZone       int             `json:"utmZone"`
	Positions     []PhotoPosition `json:"positions"` // original photo order
	Summary       RunSummary      `json:"summary"`
	CSVPath       string          `json:"csvPath"`
	ImagesDir     string          `json:"imagesDir"`
	WaypointCount int             `json:"waypointCount"`
	SegmentCount  int             `json:"segmentCount"`
	StartedAt     time.Time       `json:"startedAt"`
	Duration      time.Duration   `json:"duration"`
}
