package transform

import "math"

// WGS-84 ellipsoid.
const (
	wgs84A  = 6378137.0             // semi-major axis, m
	wgs84F  = 1.0 / 298.257223563   // flattening
	wgs84E2 = wgs84F * (2 - wgs84F) // first eccentricity squared
)

const deg = 180 / math.Pi

// primeVertical is the ellipsoid's prime-vertical radius of curvature at
// the latitude with the given sine.
func primeVertical(sinLat float64) float64 {
	return wgs84A / math.Sqrt(1-wgs84E2*sinLat*sinLat)
}

// ObserverPosition is a ground site with its Earth-fixed position and
// local east/north/up axes precomputed.
type ObserverPosition struct {
	LatRad, LonRad, AltM float64
	ECEF                 Vec3 // m

	east, north, up Vec3
}

// LookAngles is where a body appears from an observer.
type LookAngles struct {
	AzimuthDeg   float64 `json:"azimuth_deg"`   // 0 = North, clockwise
	ElevationDeg float64 `json:"elevation_deg"` // 0 = horizon, 90 = zenith
	RangeKm      float64 `json:"range_km"`
}

// NewObserverPosition places a site given in degrees and metres above the
// WGS-84 ellipsoid.
func NewObserverPosition(latDeg, lonDeg, altM float64) ObserverPosition {
	lat, lon := latDeg/deg, lonDeg/deg
	sinLat, cosLat := math.Sincos(lat)
	sinLon, cosLon := math.Sincos(lon)
	n := primeVertical(sinLat)

	return ObserverPosition{
		LatRad: lat,
		LonRad: lon,
		AltM:   altM,
		ECEF: Vec3{
			X: (n + altM) * cosLat * cosLon,
			Y: (n + altM) * cosLat * sinLon,
			Z: (n*(1-wgs84E2) + altM) * sinLat,
		},
		east:  Vec3{-sinLon, cosLon, 0},
		north: Vec3{-sinLat * cosLon, -sinLat * sinLon, cosLat},
		up:    Vec3{cosLat * cosLon, cosLat * sinLon, sinLat},
	}
}

// Geodetic returns the site in degrees and metres.
func (o ObserverPosition) Geodetic() GeodeticPoint {
	return GeodeticPoint{LatDeg: o.LatRad * deg, LonDeg: o.LonRad * deg, AltM: o.AltM}
}

// GeodeticPoint is a position on or above the WGS-84 ellipsoid.
type GeodeticPoint struct {
	LatDeg float64 `json:"lat_deg"`
	LonDeg float64 `json:"lon_deg"`
	AltM   float64 `json:"alt_m"`
}

// ECEFToGeodetic converts an Earth-fixed position in metres. Latitude is
// found by fixed-point iteration, which settles within a few rounds for
// anything from the surface to GEO.
func ECEFToGeodetic(p Vec3) GeodeticPoint {
	rho := math.Hypot(p.X, p.Y)
	lat := math.Atan2(p.Z, rho*(1-wgs84E2))
	for range 6 {
		lat = math.Atan2(p.Z+wgs84E2*primeVertical(math.Sin(lat))*math.Sin(lat), rho)
	}

	sinLat, cosLat := math.Sincos(lat)
	n := primeVertical(sinLat)
	alt := rho/cosLat - n
	if math.Abs(cosLat) < 1e-10 {
		// At the poles rho/cosLat is 0/0.
		alt = math.Abs(p.Z)/math.Abs(sinLat) - n*(1-wgs84E2)
	}
	return GeodeticPoint{LatDeg: lat * deg, LonDeg: math.Atan2(p.Y, p.X) * deg, AltM: alt}
}

// ECEFToLookAngles projects the line of sight to sat (ECEF, metres) onto
// the observer's local east/north/up axes.
func ECEFToLookAngles(obs ObserverPosition, sat Vec3) LookAngles {
	los := sat.Sub(obs.ECEF)
	r := los.Norm()
	if r == 0 {
		return LookAngles{ElevationDeg: 90}
	}

	e, n, u := los.Dot(obs.east), los.Dot(obs.north), los.Dot(obs.up)
	az := math.Atan2(e, n) * deg
	if az < 0 {
		az += 360
	}
	return LookAngles{
		AzimuthDeg:   az,
		ElevationDeg: math.Asin(u/r) * deg,
		RangeKm:      r / 1000,
	}
}
