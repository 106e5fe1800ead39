package model

import "fmt"

// MappingMethod identifies how a photo's position was derived. It is a
// closed enum; downstream code branches on the typed value, never on
// strings.
type MappingMethod int

const (
	// ExifTrajectoryProjection means the photo's EXIF GPS was projected
	// onto the flight trajectory.
	ExifTrajectoryProjection MappingMethod = iota
	// SequentialDirect means a one-to-one photo-to-waypoint index match.
	SequentialDirect
	// SequentialInterpolated means the photo fell between two waypoints
	// and its position was interpolated along the great circle.
	SequentialInterpolated
	// FallbackProportional means proportional mapping landed the photo on
	// an exact waypoint.
	FallbackProportional
)

var methodNames = map[MappingMethod]string{
	ExifTrajectoryProjection: "ExifTrajectoryProjection",
	SequentialDirect:         "SequentialDirect",
	SequentialInterpolated:   "SequentialInterpolated",
	FallbackProportional:     "FallbackProportional",
}

func (m MappingMethod) String() string {
	if n, ok := methodNames[m]; ok {
		return n
	}
	return fmt.Sprintf("MappingMethod(%d)", int(m))
}

// MarshalJSON emits the canonical method name.
func (m MappingMethod) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// UnmarshalJSON accepts a canonical method name.
func (m *MappingMethod) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("mapping method must be a JSON string, got %s", data)
	}
	name := string(data[1 : len(data)-1])
	for method, n := range methodNames {
		if n == name {
			*m = method
			return nil
		}
	}
	return fmt.Errorf("unknown mapping method %q", name)
}
