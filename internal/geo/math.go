package geo

import (
	"errors"
	"fmt"
	"math"
)

// Krasovsky 1940 ellipsoid used by the GCJ02 obfuscation.
const (
	semiMajorAxis = 6378245.0
	eccentricity2 = 0.00669342162296594323
)

const (
	inverseEpsilon       = 1e-8
	inverseMaxIterations = 100
)

// ErrNoConvergence is returned when the GCJ02 to WGS84 iteration hits its cap.
var ErrNoConvergence = errors.New("inverse transform did not converge")

// OutOfChina reports whether the pair lies outside the rectangular
// approximation of mainland China where GCJ02 obfuscation applies.
func OutOfChina(lon, lat float64) bool {
	return !(lon > 73.66 && lon < 135.05 && lat > 3.86 && lat < 53.55)
}

// WGS84ToGCJ02 converts a WGS84 pair to GCJ02.
// Pairs outside China are returned unchanged.
func WGS84ToGCJ02(lon, lat float64) (float64, float64) {
	if OutOfChina(lon, lat) {
		return lon, lat
	}

	dLon, dLat := offset(lon, lat)
	return lon + dLon, lat + dLat
}

// GCJ02ToWGS84 converts a GCJ02 pair back to WGS84.
//
// The forward transform has no closed-form inverse, so the WGS84 point is
// found by fixed-point iteration: the candidate is pushed through the forward
// transform and corrected by the residual until both residuals drop below
// 1e-8 degrees. The loop is capped at 100 rounds; hitting the cap yields
// ErrNoConvergence instead of spinning on corrupt input.
func GCJ02ToWGS84(lon, lat float64) (float64, float64, error) {
	return gcj02ToWGS84(lon, lat, inverseMaxIterations)
}

func gcj02ToWGS84(lon, lat float64, maxIterations int) (float64, float64, error) {
	if OutOfChina(lon, lat) {
		return lon, lat, nil
	}

	wLon, wLat := lon, lat
	for i := 0; i < maxIterations; i++ {
		mLon, mLat := WGS84ToGCJ02(wLon, wLat)
		dLon, dLat := mLon-lon, mLat-lat
		if math.Abs(dLon) < inverseEpsilon && math.Abs(dLat) < inverseEpsilon {
			return wLon, wLat, nil
		}
		wLon -= dLon
		wLat -= dLat
	}

	return lon, lat, fmt.Errorf("%w: (%v, %v) after %d iterations", ErrNoConvergence, lon, lat, maxIterations)
}

// GCJ02ToWGS84Approx is the single-step inverse: the forward offset computed
// at the GCJ02 point is subtracted once. Error is in the order of 1e-5
// degrees; prefer GCJ02ToWGS84.
func GCJ02ToWGS84Approx(lon, lat float64) (float64, float64) {
	if OutOfChina(lon, lat) {
		return lon, lat
	}

	mLon, mLat := WGS84ToGCJ02(lon, lat)
	return lon*2 - mLon, lat*2 - mLat
}

// offset returns the GCJ02 shift in degrees for a WGS84 pair.
func offset(lon, lat float64) (dLon, dLat float64) {
	dLat = transformLat(lon-105.0, lat-35.0)
	dLon = transformLon(lon-105.0, lat-35.0)

	radLat := lat / 180.0 * math.Pi
	magic := math.Sin(radLat)
	magic = 1 - eccentricity2*magic*magic
	sqrtMagic := math.Sqrt(magic)

	dLat = (dLat * 180.0) / ((semiMajorAxis * (1 - eccentricity2)) / (magic * sqrtMagic) * math.Pi)
	dLon = (dLon * 180.0) / (semiMajorAxis / sqrtMagic * math.Cos(radLat) * math.Pi)
	return dLon, dLat
}

// x and y are longitude and latitude shifted by (105, 35).
func transformLat(x, y float64) float64 {
	ret := -100.0 + 2.0*x + 3.0*y + 0.2*y*y + 0.1*x*y + 0.2*math.Sqrt(math.Abs(x))
	ret += (20.0*math.Sin(6.0*x*math.Pi) + 20.0*math.Sin(2.0*x*math.Pi)) * 2.0 / 3.0
	ret += (20.0*math.Sin(y*math.Pi) + 40.0*math.Sin(y/3.0*math.Pi)) * 2.0 / 3.0
	ret += (160.0*math.Sin(y/12.0*math.Pi) + 320.0*math.Sin(y*math.Pi/30.0)) * 2.0 / 3.0
	return ret
}

func transformLon(x, y float64) float64 {
	ret := 300.0 + x + 2.0*y + 0.1*x*x + 0.1*x*y + 0.1*math.Sqrt(math.Abs(x))
	ret += (20.0*math.Sin(6.0*x*math.Pi) + 20.0*math.Sin(2.0*x*math.Pi)) * 2.0 / 3.0
	ret += (20.0*math.Sin(x*math.Pi) + 40.0*math.Sin(x/3.0*math.Pi)) * 2.0 / 3.0
	ret += (150.0*math.Sin(x/12.0*math.Pi) + 300.0*math.Sin(x*math.Pi/30.0)) * 2.0 / 3.0
	return ret
}
