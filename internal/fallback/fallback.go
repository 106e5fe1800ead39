// Package fallback assigns positions to photos that carry no usable EXIF
// GPS, by direct or interpolated correspondence to flight-log waypoints.
// It never fails to produce a position.
package fallback

import (
	"log/slog"
	"math"

	"github.com/geopose/geopose/internal/geo"
	"github.com/geopose/geopose/internal/model"
)

// Assumed position accuracy in meters by mapping regime, used for the
// gps_accuracy output field and the summary's improvement estimate.
const (
	DirectAccuracyM       = 10
	InterpolatedAccuracyM = 15
)

// waypointSnapEps: a continuous waypoint index this close to an integer
// counts as landing exactly on the waypoint.
const waypointSnapEps = 1e-9

// Mapper maps photo indices to waypoint-derived positions. Built once per
// run against the immutable waypoint set.
type Mapper struct {
	frame      *geo.LocalFrame
	waypoints  []model.Waypoint
	photoCount int
	direct     bool
	logger     *slog.Logger
}

// NewMapper creates a fallback mapper for a batch of photoCount photos.
// When the photo count is within 10% or ±2 of the waypoint count, photos
// and waypoints are assumed to correspond one-to-one.
func NewMapper(frame *geo.LocalFrame, waypoints []model.Waypoint, photoCount int, logger *slog.Logger) *Mapper {
	diff := photoCount - len(waypoints)
	if diff < 0 {
		diff = -diff
	}
	direct := diff <= 2 ||
		(len(waypoints) > 0 && float64(diff)/float64(len(waypoints)) <= 0.10)

	return &Mapper{
		frame:      frame,
		waypoints:  waypoints,
		photoCount: photoCount,
		direct:     direct,
		logger:     logger,
	}
}

// Position maps the photo at photoIdx (in original batch order) to a
// waypoint-derived PhotoPosition.
func (m *Mapper) Position(photoIdx int, filename, reason string) model.PhotoPosition {
	if m.direct {
		return m.directPosition(photoIdx, filename, reason)
	}
	return m.proportionalPosition(photoIdx, filename, reason)
}

// directPosition uses one-to-one index correspondence, clamped at the last
// waypoint for overflow.
func (m *Mapper) directPosition(photoIdx int, filename, reason string) model.PhotoPosition {
	idx := photoIdx
	if idx > len(m.waypoints)-1 {
		idx = len(m.waypoints) - 1
	}
	wp := m.waypoints[idx]

	return model.PhotoPosition{
		Filename:       filename,
		Lat:            wp.Lat,
		Lon:            wp.Lon,
		AltitudeM:      wp.AltM,
		Local:          m.frame.ToLocal(wp.Lat, wp.Lon, wp.AltM),
		HeadingDeg:     wp.HeadingDeg,
		GimbalPitchDeg: wp.GimbalPitchDeg,
		Method:         model.SequentialDirect,
		SegmentID:      -1,
		GPSAccuracyM:   DirectAccuracyM,
		FallbackReason: reason,
	}
}

// proportionalPosition maps normalized photo progress onto a continuous
// waypoint index and interpolates between the bracketing waypoints.
func (m *Mapper) proportionalPosition(photoIdx int, filename, reason string) model.PhotoPosition {
	progress := 0.0
	if m.photoCount > 1 {
		progress = float64(photoIdx) / float64(m.photoCount-1)
	}
	continuous := progress * float64(len(m.waypoints)-1)

	lower := int(math.Floor(continuous))
	if lower > len(m.waypoints)-1 {
		lower = len(m.waypoints) - 1
	}
	alpha := continuous - float64(lower)

	if alpha < waypointSnapEps || lower == len(m.waypoints)-1 {
		wp := m.waypoints[lower]
		return model.PhotoPosition{
			Filename:       filename,
			Lat:            wp.Lat,
			Lon:            wp.Lon,
			AltitudeM:      wp.AltM,
			Local:          m.frame.ToLocal(wp.Lat, wp.Lon, wp.AltM),
			HeadingDeg:     wp.HeadingDeg,
			GimbalPitchDeg: wp.GimbalPitchDeg,
			Method:         model.FallbackProportional,
			SegmentID:      -1,
			GPSAccuracyM:   InterpolatedAccuracyM,
			FallbackReason: reason,
		}
	}

	a := m.waypoints[lower]
	b := m.waypoints[lower+1]

	// Great-circle interpolation of the ground position; naive lat/lon
	// averaging distorts east-west distances away from the equator.
	lat, lon := geo.InterpolateLatLon(a.Lat, a.Lon, b.Lat, b.Lon, alpha)
	alt := a.AltM + alpha*(b.AltM-a.AltM)
	heading := geo.InterpolateHeadingDeg(a.HeadingDeg, b.HeadingDeg, alpha)
	pitch := a.GimbalPitchDeg + alpha*(b.GimbalPitchDeg-a.GimbalPitchDeg)

	return model.PhotoPosition{
		Filename:       filename,
		Lat:            lat,
		Lon:            lon,
		AltitudeM:      alt,
		Local:          m.frame.ToLocal(lat, lon, alt),
		HeadingDeg:     heading,
		GimbalPitchDeg: pitch,
		Method:         model.SequentialInterpolated,
		SegmentID:      -1,
		GPSAccuracyM:   InterpolatedAccuracyM,
		FallbackReason: reason,
	}
}
