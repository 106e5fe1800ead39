// Package projector answers nearest-point-on-polyline queries against the
// flight path and resolves crossover ambiguity where the path passes near
// itself.
package projector

import (
	"math"
	"runtime"
	"sync"

	"github.com/geopose/geopose/internal/geo"
	"github.com/geopose/geopose/internal/util"
)

// Config tunes projection and crossover resolution.
type Config struct {
	// DecayScaleM is the distance at which trajectory confidence reaches
	// zero: confidence = clamp(1 - d/DecayScaleM, 0, 1).
	DecayScaleM float64
	// ConfidenceThreshold triggers crossover resolution when the naive
	// match scores below it.
	ConfidenceThreshold float64
	// SegmentJumpWindow triggers crossover resolution when the matched
	// segment index jumps more than this relative to the previous photo.
	SegmentJumpWindow int
	// SearchWindow bounds the crossover candidate search to segments
	// within this index distance of the naive match.
	SearchWindow int
	// TieEpsilonM is the distance slack within which alternative segments
	// count as ties of the naive match.
	TieEpsilonM float64
	// Workers sizes the projection worker pool; 0 means NumCPU.
	Workers int
}

// DefaultConfig returns the tuning used when no configuration overrides it.
func DefaultConfig() Config {
	return Config{
		DecayScaleM:         30,
		ConfidenceThreshold: 0.5,
		SegmentJumpWindow:   5,
		SearchWindow:        10,
		TieEpsilonM:         2,
	}
}

// Match is the result of projecting one query point onto the flight path.
type Match struct {
	SegmentID  int
	T          float64 // parametric offset along the segment, in [0,1]
	DistanceM  float64 // xy distance from the query to the projected point
	AltitudeM  float64 // altitude interpolated between the segment endpoints at T
	ArcM       float64 // cumulative arc length at the projected point
	Confidence float64
}

// projectOntoSegment projects (x, y) onto one segment's supporting line
// with the offset clamped to [0,1]. Degenerate segments act as points.
func projectOntoSegment(seg geo.Segment, x, y float64) Match {
	dx := seg.End.X - seg.Start.X
	dy := seg.End.Y - seg.Start.Y

	var t float64
	if !seg.Degenerate() {
		t = ((x-seg.Start.X)*dx + (y-seg.Start.Y)*dy) / (dx*dx + dy*dy)
		t = util.Clamp(t, 0, 1)
	}

	px := seg.Start.X + t*dx
	py := seg.Start.Y + t*dy
	ddx := x - px
	ddy := y - py

	return Match{
		SegmentID: seg.ID,
		T:         t,
		DistanceM: math.Hypot(ddx, ddy),
		AltitudeM: seg.Start.Z + t*(seg.End.Z-seg.Start.Z),
		ArcM:      seg.StartArcM + t*(seg.EndArcM-seg.StartArcM),
	}
}

// Project finds the globally closest point on the flight path to the query
// point (x, y) in local coordinates, scoring it with the linear confidence
// decay.
func Project(path *geo.FlightPath, x, y float64, cfg Config) Match {
	best := Match{SegmentID: -1, DistanceM: math.Inf(1)}
	for _, seg := range path.Segments {
		m := projectOntoSegment(seg, x, y)
		if m.DistanceM < best.DistanceM {
			best = m
		}
	}
	best.Confidence = confidence(best.DistanceM, cfg.DecayScaleM)
	return best
}

// confidence maps a projection distance to [0,1] with linear decay.
func confidence(distM, decayScaleM float64) float64 {
	if decayScaleM <= 0 {
		decayScaleM = DefaultConfig().DecayScaleM
	}
	return util.Clamp(1-distM/decayScaleM, 0, 1)
}

// Query is one photo's local-frame query point.
type Query struct {
	Index int
	X, Y  float64
}

// ProjectAll projects every query concurrently across a bounded worker
// pool. The flight path is read-only, so workers share it without
// synchronization; results are returned in query order.
func ProjectAll(path *geo.FlightPath, queries []Query, cfg Config) []Match {
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(queries) {
		workers = len(queries)
	}

	results := make([]Match, len(queries))
	if len(queries) == 0 {
		return results
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				q := queries[i]
				results[i] = Project(path, q.X, q.Y, cfg)
			}
		}()
	}
	for i := range queries {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return results
}
