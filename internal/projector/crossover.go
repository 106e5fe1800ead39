package projector

import (
	"log/slog"

	"github.com/geopose/geopose/internal/geo"
)

// Resolution is a possibly-revised projection match after crossover
// disambiguation.
type Resolution struct {
	Match
	// Resolved is set when the resolver engaged for this photo, whether or
	// not it revised the naive match.
	Resolved bool
}

// ResolveSequence disambiguates projections near self-intersecting
// sections of the flight path. It is an explicit ordered fold over the
// naive matches in original photo order, carrying the previous photo's
// resolved segment id; it must run as a single sequential pass even when
// projection itself was parallelized.
func ResolveSequence(path *geo.FlightPath, queries []Query, naive []Match, cfg Config, logger *slog.Logger) []Resolution {
	resolved := make([]Resolution, len(naive))

	prevSegment := -1
	for i, m := range naive {
		triggered := m.Confidence < cfg.ConfidenceThreshold
		if !triggered && prevSegment >= 0 && abs(m.SegmentID-prevSegment) > cfg.SegmentJumpWindow {
			triggered = true
		}

		if !triggered {
			resolved[i] = Resolution{Match: m}
			prevSegment = m.SegmentID
			continue
		}

		nextSegment := -1
		if i+1 < len(naive) {
			nextSegment = naive[i+1].SegmentID
		}

		choice := resolveOne(path, queries[i], m, prevSegment, nextSegment, cfg)
		if choice.SegmentID != m.SegmentID {
			logger.Debug("Crossover resolved to neighboring segment",
				"photoIndex", queries[i].Index,
				"naiveSegment", m.SegmentID,
				"resolvedSegment", choice.SegmentID,
				"naiveDistanceM", m.DistanceM,
				"resolvedDistanceM", choice.DistanceM)
		}
		resolved[i] = Resolution{Match: choice, Resolved: true}
		prevSegment = choice.SegmentID
	}

	return resolved
}

// resolveOne picks, among candidates within a distance tie of the naive
// best match, the segment closest in index to the neighboring photos'
// segments. The search is bounded to SearchWindow segments either side of
// the naive match.
func resolveOne(path *geo.FlightPath, q Query, naive Match, prevSegment, nextSegment int, cfg Config) Match {
	lo := naive.SegmentID - cfg.SearchWindow
	hi := naive.SegmentID + cfg.SearchWindow
	if lo < 0 {
		lo = 0
	}
	if hi > len(path.Segments)-1 {
		hi = len(path.Segments) - 1
	}

	best := naive
	bestCost := continuityCost(naive.SegmentID, prevSegment, nextSegment)

	for id := lo; id <= hi; id++ {
		if id == naive.SegmentID {
			continue
		}
		m := projectOntoSegment(path.Segments[id], q.X, q.Y)
		if m.DistanceM > naive.DistanceM+cfg.TieEpsilonM {
			continue
		}
		cost := continuityCost(id, prevSegment, nextSegment)
		if cost < bestCost || (cost == bestCost && m.DistanceM < best.DistanceM) {
			m.Confidence = confidence(m.DistanceM, cfg.DecayScaleM)
			best = m
			bestCost = cost
		}
	}

	return best
}

// continuityCost scores a candidate segment by index distance to the
// previous photo's resolved segment and the next photo's naive segment;
// a segment is unknown when its value is negative.
func continuityCost(id, prevSegment, nextSegment int) int {
	cost := 0
	known := false
	if prevSegment >= 0 {
		cost += abs(id - prevSegment)
		known = true
	}
	if nextSegment >= 0 {
		cost += abs(id - nextSegment)
		known = true
	}
	if !known {
		// no neighbor context; every candidate costs the same and distance
		// breaks the tie
		return 0
	}
	return cost
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
