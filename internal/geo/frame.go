// Package geo builds the local metric coordinate frame and the 3D flight
// path, and provides the spherical-earth helpers used by the fallback
// mapper.
package geo

import (
	"log/slog"
	"math"

	"github.com/wroge/wgs84"

	"github.com/geopose/geopose/internal/model"
)

// LocalFrame is a metric tangent-plane frame anchored at the centroid of
// the flight's waypoints. It is immutable after construction; coordinate
// conversion through a fixed frame is deterministic.
type LocalFrame struct {
	OriginLat float64
	OriginLon float64
	Zone      int
	Northern  bool

	toUTM   wgs84.Func
	fromUTM wgs84.Func
	originE float64
	originN float64
}

// utmZone derives the UTM zone number for a longitude.
func utmZone(lon float64) int {
	zone := int(math.Floor((lon+180)/6)) + 1
	if zone < 1 {
		zone = 1
	}
	if zone > 60 {
		zone = 60
	}
	return zone
}

// NewLocalFrame builds the frame for a waypoint set. The origin is the
// centroid of waypoint lat/lon and the UTM projection is the one covering
// the origin. Waypoints crossing into another zone log a warning and use
// the origin zone uniformly; typical survey extents stay well inside one
// zone.
func NewLocalFrame(waypoints []model.Waypoint, logger *slog.Logger) (*LocalFrame, error) {
	if len(waypoints) == 0 {
		return nil, &model.GeometryError{Reason: "cannot build local frame from zero waypoints"}
	}

	var sumLat, sumLon float64
	for _, wp := range waypoints {
		sumLat += wp.Lat
		sumLon += wp.Lon
	}
	originLat := sumLat / float64(len(waypoints))
	originLon := sumLon / float64(len(waypoints))

	zone := utmZone(originLon)
	northern := originLat >= 0

	for _, wp := range waypoints {
		if z := utmZone(wp.Lon); z != zone {
			logger.Warn("Flight spans multiple UTM zones, using origin zone throughout",
				"originZone", zone, "waypointZone", z, "waypointIndex", wp.Index)
			break
		}
	}

	utm := wgs84.UTM(float64(zone), northern)
	frame := &LocalFrame{
		OriginLat: originLat,
		OriginLon: originLon,
		Zone:      zone,
		Northern:  northern,
		toUTM:     wgs84.LonLat().To(utm),
		fromUTM:   utm.To(wgs84.LonLat()),
	}
	frame.originE, frame.originN, _ = frame.toUTM(originLon, originLat, 0)

	logger.Debug("Local frame established",
		"originLat", originLat, "originLon", originLon, "utmZone", zone, "northern", northern)
	return frame, nil
}

// ToLocal converts geographic coordinates into the local frame. Altitude
// passes through unchanged as z.
func (f *LocalFrame) ToLocal(lat, lon, alt float64) model.Position3D {
	e, n, _ := f.toUTM(lon, lat, 0)
	return model.Position3D{X: e - f.originE, Y: n - f.originN, Z: alt}
}

// ToGeographic is the exact inverse of ToLocal.
func (f *LocalFrame) ToGeographic(p model.Position3D) (lat, lon, alt float64) {
	lon, lat, _ = f.fromUTM(p.X+f.originE, p.Y+f.originN, 0)
	return lat, lon, p.Z
}
