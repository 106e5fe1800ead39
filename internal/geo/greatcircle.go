package geo

import "math"

// earthRadiusM is the mean earth radius used for great-circle math.
const earthRadiusM = 6371008.8

func deg2rad(d float64) float64 { return d * math.Pi / 180 }
func rad2deg(r float64) float64 { return r * 180 / math.Pi }

// GreatCircleDistanceM returns the haversine distance in meters between
// two geographic points.
func GreatCircleDistanceM(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := deg2rad(lat1)
	phi2 := deg2rad(lat2)
	dPhi := deg2rad(lat2 - lat1)
	dLambda := deg2rad(lon2 - lon1)

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	return 2 * earthRadiusM * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// InitialBearingDeg returns the initial great-circle bearing from the
// first point toward the second, normalized to [0, 360).
func InitialBearingDeg(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := deg2rad(lat1)
	phi2 := deg2rad(lat2)
	dLambda := deg2rad(lon2 - lon1)

	y := math.Sin(dLambda) * math.Cos(phi2)
	x := math.Cos(phi1)*math.Sin(phi2) - math.Sin(phi1)*math.Cos(phi2)*math.Cos(dLambda)
	return NormalizeHeadingDeg(rad2deg(math.Atan2(y, x)))
}

// DestinationPoint returns the point at the given distance along the given
// initial bearing from a start point.
func DestinationPoint(lat, lon, bearingDeg, distM float64) (destLat, destLon float64) {
	phi := deg2rad(lat)
	lambda := deg2rad(lon)
	theta := deg2rad(bearingDeg)
	delta := distM / earthRadiusM

	phi2 := math.Asin(math.Sin(phi)*math.Cos(delta) +
		math.Cos(phi)*math.Sin(delta)*math.Cos(theta))
	lambda2 := lambda + math.Atan2(
		math.Sin(theta)*math.Sin(delta)*math.Cos(phi),
		math.Cos(delta)-math.Sin(phi)*math.Sin(phi2),
	)

	destLat = rad2deg(phi2)
	destLon = math.Mod(rad2deg(lambda2)+540, 360) - 180
	return destLat, destLon
}

// InterpolateLatLon interpolates between two geographic points at fraction
// alpha in [0,1] along the great circle connecting them. Never naive
// linear averaging of lat/lon, which distorts away from the equator.
func InterpolateLatLon(lat1, lon1, lat2, lon2, alpha float64) (lat, lon float64) {
	dist := GreatCircleDistanceM(lat1, lon1, lat2, lon2)
	if dist == 0 {
		return lat1, lon1
	}
	bearing := InitialBearingDeg(lat1, lon1, lat2, lon2)
	return DestinationPoint(lat1, lon1, bearing, dist*alpha)
}

// NormalizeHeadingDeg wraps a heading into [0, 360).
func NormalizeHeadingDeg(h float64) float64 {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	return h
}

// InterpolateHeadingDeg interpolates between two headings at fraction
// alpha via unit-vector decomposition, so the 0/360 boundary averages
// correctly: 350 and 10 at alpha 0.5 give 0, not 180.
func InterpolateHeadingDeg(h1, h2, alpha float64) float64 {
	t1 := deg2rad(h1)
	t2 := deg2rad(h2)
	x := (1-alpha)*math.Cos(t1) + alpha*math.Cos(t2)
	y := (1-alpha)*math.Sin(t1) + alpha*math.Sin(t2)
	if x == 0 && y == 0 {
		// opposite headings cancel; fall back to the first
		return NormalizeHeadingDeg(h1)
	}
	return NormalizeHeadingDeg(rad2deg(math.Atan2(y, x)))
}
