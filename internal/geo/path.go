package geo

import (
	"log/slog"
	"math"

	geom "github.com/peterstace/simplefeatures/geom"

	"github.com/geopose/geopose/internal/model"
)

// degenerateLengthM: segments shorter than this are treated as
// point-segments so projection math cannot divide by a vanishing length.
const degenerateLengthM = 1e-9

// Segment is the line between two consecutive waypoints in local
// coordinates, carrying its cumulative arc-length range.
type Segment struct {
	ID        int
	Start     model.Position3D
	End       model.Position3D
	StartArcM float64
	EndArcM   float64
}

// LengthM returns the segment's 3D length in meters.
func (s Segment) LengthM() float64 {
	dx := s.End.X - s.Start.X
	dy := s.End.Y - s.Start.Y
	dz := s.End.Z - s.Start.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Degenerate reports whether the segment collapses to a point in the xy
// plane.
func (s Segment) Degenerate() bool {
	dx := s.End.X - s.Start.X
	dy := s.End.Y - s.Start.Y
	return dx*dx+dy*dy < degenerateLengthM*degenerateLengthM
}

// FlightPath is the ordered polyline of segments representing the trusted
// flown path. Built once per run and read-only afterwards.
type FlightPath struct {
	Segments []Segment
}

// NewFlightPath converts waypoints into local-frame segments with running
// cumulative arc length. At least two waypoints are required.
func NewFlightPath(frame *LocalFrame, waypoints []model.Waypoint, logger *slog.Logger) (*FlightPath, error) {
	if len(waypoints) < 2 {
		return nil, &model.GeometryError{
			Reason: "a flight path needs at least 2 waypoints",
		}
	}

	points := make([]model.Position3D, len(waypoints))
	for i, wp := range waypoints {
		points[i] = frame.ToLocal(wp.Lat, wp.Lon, wp.AltM)
	}

	segments := make([]Segment, 0, len(points)-1)
	var arc float64
	degenerate := 0
	for i := 0; i < len(points)-1; i++ {
		seg := Segment{
			ID:        i,
			Start:     points[i],
			End:       points[i+1],
			StartArcM: arc,
		}
		arc += seg.LengthM()
		seg.EndArcM = arc
		if seg.Degenerate() {
			degenerate++
		}
		segments = append(segments, seg)
	}

	if degenerate > 0 {
		logger.Warn("Flight path contains degenerate segments, treated as points",
			"count", degenerate)
	}
	logger.Debug("Built flight path",
		"segments", len(segments), "totalLengthM", arc)

	return &FlightPath{Segments: segments}, nil
}

// TotalLengthM returns the cumulative arc length of the whole path.
func (p *FlightPath) TotalLengthM() float64 {
	if len(p.Segments) == 0 {
		return 0
	}
	return p.Segments[len(p.Segments)-1].EndArcM
}

// LineString returns the xy polyline of the path for diagnostics and
// spatial queries.
func (p *FlightPath) LineString() (geom.LineString, error) {
	flat := make([]float64, 0, (len(p.Segments)+1)*2)
	if len(p.Segments) > 0 {
		flat = append(flat, p.Segments[0].Start.X, p.Segments[0].Start.Y)
		for _, seg := range p.Segments {
			flat = append(flat, seg.End.X, seg.End.Y)
		}
	}
	ls, err := geom.NewLineString(geom.NewSequence(flat, geom.DimXY))
	if err != nil {
		return geom.LineString{}, &model.GeometryError{
			Reason: "cannot build path linestring: " + err.Error(),
		}
	}
	return ls, nil
}

// Envelope returns the xy bounding box of the path.
func (p *FlightPath) Envelope() (geom.Envelope, error) {
	ls, err := p.LineString()
	if err != nil {
		return geom.Envelope{}, err
	}
	return ls.Envelope(), nil
}
