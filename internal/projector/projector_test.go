package projector

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geopose/geopose/internal/geo"
	"github.com/geopose/geopose/internal/model"
)

// pathFromPoints builds a flight path directly from local-frame points.
func pathFromPoints(points []model.Position3D) *geo.FlightPath {
	segments := make([]geo.Segment, 0, len(points)-1)
	var arc float64
	for i := 0; i < len(points)-1; i++ {
		seg := geo.Segment{ID: i, Start: points[i], End: points[i+1], StartArcM: arc}
		arc += seg.LengthM()
		seg.EndArcM = arc
		segments = append(segments, seg)
	}
	return &geo.FlightPath{Segments: segments}
}

// straightPath is a single row: (0,0,40) -> (100,0,50), ten segments.
func straightPath() *geo.FlightPath {
	points := make([]model.Position3D, 11)
	for i := range points {
		points[i] = model.Position3D{X: float64(i * 10), Y: 0, Z: 40 + float64(i)}
	}
	return pathFromPoints(points)
}

func TestProject_PointOnSegment(t *testing.T) {
	path := straightPath()
	cfg := DefaultConfig()

	// exactly on segment 3 at t=0.5
	m := Project(path, 35, 0, cfg)
	assert.Equal(t, 3, m.SegmentID)
	assert.InDelta(t, 0.5, m.T, 1e-9)
	assert.InDelta(t, 0, m.DistanceM, 1e-9)
	assert.InDelta(t, 1, m.Confidence, 1e-9)
	assert.InDelta(t, 43.5, m.AltitudeM, 1e-9)
}

func TestProject_AltitudeBetweenEndpoints(t *testing.T) {
	path := straightPath()
	m := Project(path, 17, 3, DefaultConfig())

	seg := path.Segments[m.SegmentID]
	lo := math.Min(seg.Start.Z, seg.End.Z)
	hi := math.Max(seg.Start.Z, seg.End.Z)
	assert.GreaterOrEqual(t, m.AltitudeM, lo)
	assert.LessOrEqual(t, m.AltitudeM, hi)
}

func TestProject_ClampsBeyondEndpoints(t *testing.T) {
	path := straightPath()
	cfg := DefaultConfig()

	before := Project(path, -5, 0, cfg)
	assert.Equal(t, 0, before.SegmentID)
	assert.InDelta(t, 0, before.T, 1e-9)
	assert.InDelta(t, 5, before.DistanceM, 1e-9)

	after := Project(path, 105, 0, cfg)
	assert.Equal(t, 9, after.SegmentID)
	assert.InDelta(t, 1, after.T, 1e-9)
	assert.InDelta(t, 5, after.DistanceM, 1e-9)
}

func TestProject_ConfidenceDecay(t *testing.T) {
	path := straightPath()
	cfg := DefaultConfig() // decay scale 30

	m := Project(path, 50, 15, cfg)
	assert.InDelta(t, 0.5, m.Confidence, 1e-9)

	far := Project(path, 50, 60, cfg)
	assert.Equal(t, 0.0, far.Confidence)
	assert.GreaterOrEqual(t, far.Confidence, 0.0)
}

func TestProject_DegenerateSegmentNoNaN(t *testing.T) {
	path := pathFromPoints([]model.Position3D{
		{X: 0, Y: 0, Z: 40},
		{X: 0, Y: 0, Z: 40}, // duplicate waypoint
		{X: 10, Y: 0, Z: 45},
	})

	m := Project(path, 0, 2, DefaultConfig())
	assert.False(t, math.IsNaN(m.DistanceM))
	assert.False(t, math.IsNaN(m.AltitudeM))
	assert.False(t, math.IsInf(m.DistanceM, 0))
	assert.InDelta(t, 2, m.DistanceM, 1e-9)
}

func TestProject_ArcLengthAtProjection(t *testing.T) {
	path := straightPath()
	m := Project(path, 35, 1, DefaultConfig())
	assert.InDelta(t, m.ArcM, path.Segments[3].StartArcM+(path.Segments[3].EndArcM-path.Segments[3].StartArcM)*m.T, 1e-9)
}

func TestProjectAll_MatchesSequentialProjection(t *testing.T) {
	path := straightPath()
	cfg := DefaultConfig()
	cfg.Workers = 3

	queries := make([]Query, 25)
	for i := range queries {
		queries[i] = Query{Index: i, X: float64(i * 4), Y: float64(i % 5)}
	}

	got := ProjectAll(path, queries, cfg)
	require.Len(t, got, len(queries))
	for i, q := range queries {
		want := Project(path, q.X, q.Y, cfg)
		assert.Equal(t, want, got[i], "query %d", i)
	}
}

func TestProjectAll_Empty(t *testing.T) {
	assert.Empty(t, ProjectAll(straightPath(), nil, DefaultConfig()))
}
