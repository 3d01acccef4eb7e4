// Package geo provides the spherical geometry behind the route map:
// great-circle distance, great-circle waypoints and a zoom level that fits
// a route on screen.
package geo

import "math"

const (
	// EarthRadiusKm is the mean Earth radius used by all distances here.
	EarthRadiusKm = 6371.0

	kmPerNM = 1.852

	// Angular separation (radians) from 0 or pi below which slerp is unusable.
	// Roughly 6 m on the Earth's surface.
	degenerateAngle = 1e-6
)

// Coordinate is a geographic position in decimal degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether c lies within -90..90 latitude and -180..180 longitude.
func (c Coordinate) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

func toRad(deg float64) float64 { return deg * math.Pi / 180.0 }
func toDeg(rad float64) float64 { return rad * 180.0 / math.Pi }

// centralAngle returns the angular separation of a and b in radians
// using the haversine formula.
func centralAngle(a, b Coordinate) float64 {
	lat1 := toRad(a.Lat)
	lat2 := toRad(b.Lat)
	dLat := lat2 - lat1
	dLon := toRad(b.Lon - a.Lon)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	// Rounding can push h a hair outside [0, 1] for antipodal input.
	h = math.Min(1, math.Max(0, h))

	return 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// DistanceKm returns the great-circle distance between a and b in kilometers.
func DistanceKm(a, b Coordinate) float64 {
	return EarthRadiusKm * centralAngle(a, b)
}

// KmToNM converts kilometers to nautical miles.
func KmToNM(km float64) float64 {
	return km / kmPerNM
}

// PointCount returns the default number of path segments for a route of
// the given length. Longer routes get more segments so the curve stays smooth.
func PointCount(distanceKm float64) int {
	switch {
	case distanceKm < 100:
		return 10
	case distanceKm < 1000:
		return 20
	case distanceKm < 5000:
		return 50
	default:
		return 100
	}
}

// GreatCirclePath returns pointCount+1 coordinates along the great circle
// from a to b, both endpoints included. A pointCount <= 0 selects
// PointCount(DistanceKm(a, b)).
//
// Coincident endpoints yield copies of a (ending on b). Antipodal endpoints
// have no unique great circle; the path then falls back to linear
// interpolation in latitude/longitude.
func GreatCirclePath(a, b Coordinate, pointCount int) []Coordinate {
	d := centralAngle(a, b)
	if pointCount <= 0 {
		pointCount = PointCount(EarthRadiusKm * d)
	}

	path := make([]Coordinate, pointCount+1)

	switch {
	case d < degenerateAngle:
		for i := range path {
			path[i] = a
		}
		path[pointCount] = b
		return path
	case math.Pi-d < degenerateAngle:
		for i := range path {
			f := float64(i) / float64(pointCount)
			path[i] = Coordinate{
				Lat: a.Lat + (b.Lat-a.Lat)*f,
				Lon: a.Lon + (b.Lon-a.Lon)*f,
			}
		}
		path[pointCount] = b
		return path
	}

	lat1, lon1 := toRad(a.Lat), toRad(a.Lon)
	lat2, lon2 := toRad(b.Lat), toRad(b.Lon)

	// Unit vectors of both endpoints.
	x1, y1, z1 := math.Cos(lat1)*math.Cos(lon1), math.Cos(lat1)*math.Sin(lon1), math.Sin(lat1)
	x2, y2, z2 := math.Cos(lat2)*math.Cos(lon2), math.Cos(lat2)*math.Sin(lon2), math.Sin(lat2)
	sinD := math.Sin(d)

	for i := 1; i < pointCount; i++ {
		f := float64(i) / float64(pointCount)
		wa := math.Sin((1-f)*d) / sinD
		wb := math.Sin(f*d) / sinD

		x := wa*x1 + wb*x2
		y := wa*y1 + wb*y2
		z := wa*z1 + wb*z2

		path[i] = Coordinate{
			Lat: toDeg(math.Atan2(z, math.Sqrt(x*x+y*y))),
			Lon: toDeg(math.Atan2(y, x)),
		}
	}
	path[0] = a
	path[pointCount] = b

	return path
}

// zoomLadder maps an upper distance bound (exclusive, km) to a map zoom level.
var zoomLadder = []struct {
	below float64
	zoom  int
}{
	{50, 11},
	{100, 10},
	{200, 9},
	{400, 8},
	{800, 7},
	{1500, 6},
	{2500, 5},
	{4000, 5},
	{6000, 4},
	{10000, 4},
}

// OptimalZoom returns the map zoom level that fits a route of the given
// length. The result never increases as distance grows.
func OptimalZoom(distanceKm float64) int {
	for _, rung := range zoomLadder {
		if distanceKm < rung.below {
			return rung.zoom
		}
	}
	return 3
}
