// Package geometry provides the planar primitives the route composer and
// matcher are built on: a metric projection, linear referencing (nearest
// point, sub-path extraction, interpolation), vertex snapping, path merging
// and overlap resolution. All operations are Euclidean and expect projected
// coordinates unless stated otherwise.
package geometry

import (
	"math"

	"github.com/paulmach/orb"
)

// The store keeps geometry in UTM zone 37N (EPSG:32637), which covers the
// supported service area. Conversion uses the Karney-Krueger series, accurate
// to well under a millimeter inside the zone.
const (
	semiMajorAxis   = 6378137.0
	flattening      = 1 / 298.257223563
	scaleFactor     = 0.9996
	centralMeridian = 39.0 // degrees, zone 37
	falseEasting    = 500000.0
)

var (
	thirdFlattening = flattening / (2 - flattening)
	// Rectifying radius.
	radius = semiMajorAxis / (1 + thirdFlattening) *
		(1 + thirdFlattening*thirdFlattening/4 + math.Pow(thirdFlattening, 4)/64)

	alpha = [3]float64{
		thirdFlattening/2 - 2*math.Pow(thirdFlattening, 2)/3 + 5*math.Pow(thirdFlattening, 3)/16,
		13*math.Pow(thirdFlattening, 2)/48 - 3*math.Pow(thirdFlattening, 3)/5,
		61 * math.Pow(thirdFlattening, 3) / 240,
	}
	beta = [3]float64{
		thirdFlattening/2 - 2*math.Pow(thirdFlattening, 2)/3 + 37*math.Pow(thirdFlattening, 3)/96,
		math.Pow(thirdFlattening, 2)/48 + math.Pow(thirdFlattening, 3)/15,
		17 * math.Pow(thirdFlattening, 3) / 480,
	}
	delta = [3]float64{
		2*thirdFlattening - 2*math.Pow(thirdFlattening, 2)/3 - 2*math.Pow(thirdFlattening, 3),
		7*math.Pow(thirdFlattening, 2)/3 - 8*math.Pow(thirdFlattening, 3)/5,
		56 * math.Pow(thirdFlattening, 3) / 15,
	}
)

func degToRad(d float64) float64 { return d * math.Pi / 180 }
func radToDeg(r float64) float64 { return r * 180 / math.Pi }

// Project converts a WGS84 lon/lat point to planar UTM coordinates (meters).
func Project(p orb.Point) orb.Point {
	lat := degToRad(p[1])
	lonDelta := degToRad(p[0] - centralMeridian)

	k := 2 * math.Sqrt(thirdFlattening) / (1 + thirdFlattening)
	t := math.Sinh(math.Atanh(math.Sin(lat)) - k*math.Atanh(k*math.Sin(lat)))
	xiPrime := math.Atan2(t, math.Cos(lonDelta))
	etaPrime := math.Atanh(math.Sin(lonDelta) / math.Sqrt(1+t*t))

	xi, eta := xiPrime, etaPrime
	for j, a := range alpha {
		m := 2 * float64(j+1)
		xi += a * math.Sin(m*xiPrime) * math.Cosh(m*etaPrime)
		eta += a * math.Cos(m*xiPrime) * math.Sinh(m*etaPrime)
	}
	return orb.Point{
		falseEasting + scaleFactor*radius*eta,
		scaleFactor * radius * xi,
	}
}

// Unproject converts planar UTM coordinates back to WGS84 lon/lat.
func Unproject(p orb.Point) orb.Point {
	xi := p[1] / (scaleFactor * radius)
	eta := (p[0] - falseEasting) / (scaleFactor * radius)

	xiPrime, etaPrime := xi, eta
	for j, b := range beta {
		m := 2 * float64(j+1)
		xiPrime -= b * math.Sin(m*xi) * math.Cosh(m*eta)
		etaPrime -= b * math.Cos(m*xi) * math.Sinh(m*eta)
	}

	chi := math.Asin(math.Sin(xiPrime) / math.Cosh(etaPrime))
	lat := chi
	for j, d := range delta {
		m := 2 * float64(j+1)
		lat += d * math.Sin(m*chi)
	}
	lon := degToRad(centralMeridian) + math.Atan2(math.Sinh(etaPrime), math.Cos(xiPrime))
	return orb.Point{radToDeg(lon), radToDeg(lat)}
}

// ProjectLine projects every vertex of a WGS84 path.
func ProjectLine(ls orb.LineString) orb.LineString {
	if len(ls) == 0 {
		return nil
	}
	out := make(orb.LineString, len(ls))
	for i, p := range ls {
		out[i] = Project(p)
	}
	return out
}

// UnprojectLine converts every vertex of a projected path back to WGS84.
func UnprojectLine(ls orb.LineString) orb.LineString {
	if len(ls) == 0 {
		return nil
	}
	out := make(orb.LineString, len(ls))
	for i, p := range ls {
		out[i] = Unproject(p)
	}
	return out
}
