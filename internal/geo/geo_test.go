package geo

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geopose/geopose/internal/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// surveyWaypoints returns a small lawnmower-ish survey in northern Utah.
func surveyWaypoints() []model.Waypoint {
	return []model.Waypoint{
		{Lat: 41.7320, Lon: -111.8340, AltM: 40, Index: 0},
		{Lat: 41.7325, Lon: -111.8340, AltM: 45, Index: 1},
		{Lat: 41.7325, Lon: -111.8345, AltM: 50, Index: 2},
		{Lat: 41.7320, Lon: -111.8345, AltM: 55, Index: 3},
	}
}

func TestNewLocalFrame_EmptyWaypoints(t *testing.T) {
	_, err := NewLocalFrame(nil, testLogger())
	require.Error(t, err)

	var ge *model.GeometryError
	require.ErrorAs(t, err, &ge)
}

func TestNewLocalFrame_OriginIsCentroid(t *testing.T) {
	wps := surveyWaypoints()
	frame, err := NewLocalFrame(wps, testLogger())
	require.NoError(t, err)

	assert.InDelta(t, 41.73225, frame.OriginLat, 1e-9)
	assert.InDelta(t, -111.83425, frame.OriginLon, 1e-9)
	assert.Equal(t, 12, frame.Zone) // -111.834 falls in UTM zone 12
	assert.True(t, frame.Northern)
}

func TestLocalFrame_OriginMapsToZero(t *testing.T) {
	frame, err := NewLocalFrame(surveyWaypoints(), testLogger())
	require.NoError(t, err)

	p := frame.ToLocal(frame.OriginLat, frame.OriginLon, 0)
	assert.InDelta(t, 0, p.X, 1e-6)
	assert.InDelta(t, 0, p.Y, 1e-6)
	assert.InDelta(t, 0, p.Z, 1e-6)
}

func TestLocalFrame_RoundTripWithinOneCentimeter(t *testing.T) {
	wps := surveyWaypoints()
	frame, err := NewLocalFrame(wps, testLogger())
	require.NoError(t, err)

	// All waypoints plus interior points of the bounding box.
	queries := [][3]float64{}
	for _, wp := range wps {
		queries = append(queries, [3]float64{wp.Lat, wp.Lon, wp.AltM})
	}
	queries = append(queries,
		[3]float64{41.73225, -111.83425, 42.5},
		[3]float64{41.7321, -111.8344, 48.0},
	)

	for _, q := range queries {
		local := frame.ToLocal(q[0], q[1], q[2])
		lat, lon, alt := frame.ToGeographic(local)

		// 1e-7 degrees of latitude is about 1.1 cm.
		assert.InDelta(t, q[0], lat, 1e-7)
		assert.InDelta(t, q[1], lon, 1e-7)
		assert.InDelta(t, q[2], alt, 1e-9)
	}
}

func TestLocalFrame_Deterministic(t *testing.T) {
	a, err := NewLocalFrame(surveyWaypoints(), testLogger())
	require.NoError(t, err)
	b, err := NewLocalFrame(surveyWaypoints(), testLogger())
	require.NoError(t, err)

	pa := a.ToLocal(41.7322, -111.8343, 44)
	pb := b.ToLocal(41.7322, -111.8343, 44)
	assert.Equal(t, pa, pb)
}

func TestUTMZone(t *testing.T) {
	tests := []struct {
		name     string
		lon      float64
		expected int
	}{
		{"utah", -111.834, 12},
		{"greenwich", 0.1, 31},
		{"west of greenwich", -0.1, 30},
		{"date line west", -179.9, 1},
		{"date line east", 179.9, 60},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := utmZone(tt.lon); got != tt.expected {
				t.Errorf("utmZone(%v) = %d, want %d", tt.lon, got, tt.expected)
			}
		})
	}
}

func TestNewFlightPath_RequiresTwoWaypoints(t *testing.T) {
	wps := surveyWaypoints()[:1]
	frame, err := NewLocalFrame(wps, testLogger())
	require.NoError(t, err)

	_, err = NewFlightPath(frame, wps, testLogger())
	require.Error(t, err)

	var ge *model.GeometryError
	require.ErrorAs(t, err, &ge)
}

func TestNewFlightPath_ArcLengthMonotone(t *testing.T) {
	wps := surveyWaypoints()
	frame, err := NewLocalFrame(wps, testLogger())
	require.NoError(t, err)

	path, err := NewFlightPath(frame, wps, testLogger())
	require.NoError(t, err)
	require.Len(t, path.Segments, 3)

	var prevEnd float64
	for i, seg := range path.Segments {
		assert.Equal(t, i, seg.ID)
		assert.Equal(t, prevEnd, seg.StartArcM)
		assert.GreaterOrEqual(t, seg.EndArcM, seg.StartArcM)
		prevEnd = seg.EndArcM
	}
	assert.InDelta(t, path.TotalLengthM(), prevEnd, 1e-12)
	assert.Greater(t, path.TotalLengthM(), 0.0)
}

func TestNewFlightPath_DegenerateSegmentTolerated(t *testing.T) {
	wps := []model.Waypoint{
		{Lat: 41.7320, Lon: -111.8340, AltM: 40, Index: 0},
		{Lat: 41.7320, Lon: -111.8340, AltM: 40, Index: 1}, // duplicate sample
		{Lat: 41.7325, Lon: -111.8340, AltM: 45, Index: 2},
	}
	frame, err := NewLocalFrame(wps, testLogger())
	require.NoError(t, err)

	path, err := NewFlightPath(frame, wps, testLogger())
	require.NoError(t, err)
	require.Len(t, path.Segments, 2)
	assert.True(t, path.Segments[0].Degenerate())
	assert.False(t, path.Segments[1].Degenerate())
}

func TestFlightPath_LineStringAndEnvelope(t *testing.T) {
	wps := surveyWaypoints()
	frame, err := NewLocalFrame(wps, testLogger())
	require.NoError(t, err)
	path, err := NewFlightPath(frame, wps, testLogger())
	require.NoError(t, err)

	ls, err := path.LineString()
	require.NoError(t, err)
	assert.Equal(t, 4, ls.Coordinates().Length())

	env, err := path.Envelope()
	require.NoError(t, err)
	assert.False(t, env.IsEmpty())
}

func TestGreatCircleDistanceM(t *testing.T) {
	// One degree of latitude is about 111.2 km.
	d := GreatCircleDistanceM(41.0, -111.0, 42.0, -111.0)
	assert.InDelta(t, 111195, d, 300)

	assert.Equal(t, 0.0, GreatCircleDistanceM(41.5, -111.5, 41.5, -111.5))
}

func TestInitialBearingDeg(t *testing.T) {
	assert.InDelta(t, 0, InitialBearingDeg(41.0, -111.0, 42.0, -111.0), 1e-6)
	assert.InDelta(t, 180, InitialBearingDeg(42.0, -111.0, 41.0, -111.0), 1e-6)
	assert.InDelta(t, 90, InitialBearingDeg(0, 0, 0, 1), 1e-6)
}

func TestDestinationPoint_InvertsDistanceAndBearing(t *testing.T) {
	lat1, lon1 := 41.7320, -111.8340
	lat2, lon2 := 41.7329, -111.8349

	dist := GreatCircleDistanceM(lat1, lon1, lat2, lon2)
	bearing := InitialBearingDeg(lat1, lon1, lat2, lon2)
	lat, lon := DestinationPoint(lat1, lon1, bearing, dist)

	assert.InDelta(t, lat2, lat, 1e-8)
	assert.InDelta(t, lon2, lon, 1e-8)
}

func TestInterpolateLatLon(t *testing.T) {
	lat, lon := InterpolateLatLon(41.7320, -111.8340, 41.7330, -111.8340, 0.5)
	assert.InDelta(t, 41.7325, lat, 1e-6)
	assert.InDelta(t, -111.8340, lon, 1e-6)

	// alpha 0 and 1 return the endpoints
	lat, lon = InterpolateLatLon(41.7320, -111.8340, 41.7330, -111.8350, 0)
	assert.InDelta(t, 41.7320, lat, 1e-9)
	assert.InDelta(t, -111.8340, lon, 1e-9)

	// coincident points
	lat, lon = InterpolateLatLon(41.5, -111.5, 41.5, -111.5, 0.7)
	assert.Equal(t, 41.5, lat)
	assert.Equal(t, -111.5, lon)
}

func TestInterpolateHeadingDeg(t *testing.T) {
	tests := []struct {
		name     string
		h1, h2   float64
		alpha    float64
		expected float64
	}{
		{"wraparound midpoint", 350, 10, 0.5, 0},
		{"simple midpoint", 80, 100, 0.5, 90},
		{"alpha zero", 350, 10, 0, 350},
		{"alpha one", 350, 10, 1, 10},
		{"identical headings", 123, 123, 0.4, 123},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := InterpolateHeadingDeg(tt.h1, tt.h2, tt.alpha)
			diff := got - tt.expected
			if diff > 180 {
				diff -= 360
			}
			if diff < -180 {
				diff += 360
			}
			if diff < -1e-6 || diff > 1e-6 {
				t.Errorf("InterpolateHeadingDeg(%v, %v, %v) = %v, want %v",
					tt.h1, tt.h2, tt.alpha, got, tt.expected)
			}
		})
	}
}

func TestNormalizeHeadingDeg(t *testing.T) {
	assert.Equal(t, 0.0, NormalizeHeadingDeg(360))
	assert.Equal(t, 10.0, NormalizeHeadingDeg(370))
	assert.Equal(t, 350.0, NormalizeHeadingDeg(-10))
}
