package geo

import (
	"errors"
	"fmt"
)

// Datum is a geodetic datum tag.
type Datum string

// Supported datums.
const (
	WGS84 Datum = "WGS84"
	GCJ02 Datum = "GCJ02"
)

var (
	// ErrUnknownDatum is returned by ParseDatum for unrecognised tags.
	ErrUnknownDatum = errors.New("unknown datum")
	// ErrUnsupportedPair is returned when no transform exists for a source/target pair.
	ErrUnsupportedPair = errors.New("unsupported datum pair")
)

// Transform converts a single longitude/latitude pair.
type Transform func(lon, lat float64) (float64, float64, error)

// Pair is a source/target datum combination.
type Pair struct {
	Source Datum `json:"source" yaml:"source"`
	Target Datum `json:"target" yaml:"target"`
}

func (p Pair) String() string {
	return string(p.Source) + "->" + string(p.Target)
}

var transforms = map[Pair]Transform{
	{WGS84, GCJ02}: forward,
	{GCJ02, WGS84}: GCJ02ToWGS84,
}

// forward adapts WGS84ToGCJ02 to the Transform signature.
func forward(lon, lat float64) (float64, float64, error) {
	lon, lat = WGS84ToGCJ02(lon, lat)
	return lon, lat, nil
}

// approximate adapts GCJ02ToWGS84Approx to the Transform signature.
func approximate(lon, lat float64) (float64, float64, error) {
	lon, lat = GCJ02ToWGS84Approx(lon, lat)
	return lon, lat, nil
}

// ParseDatum validates a datum tag. Tags are matched exactly.
func ParseDatum(s string) (Datum, error) {
	switch d := Datum(s); d {
	case WGS84, GCJ02:
		return d, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownDatum, s)
	}
}

// SelectTransform returns the transform for the pair.
// Identity pairs and unknown tags are unsupported.
func SelectTransform(source, target Datum) (Transform, bool) {
	fn, ok := transforms[Pair{source, target}]
	return fn, ok
}

// SelectApproximate behaves like SelectTransform but picks the single-step
// inverse for GCJ02 to WGS84.
func SelectApproximate(source, target Datum) (Transform, bool) {
	if source == GCJ02 && target == WGS84 {
		return approximate, true
	}
	return SelectTransform(source, target)
}

// Pairs lists the supported conversions.
func Pairs() []Pair {
	return []Pair{{WGS84, GCJ02}, {GCJ02, WGS84}}
}

// Point converts one pair in the given direction.
func Point(source, target Datum, lon, lat float64) (float64, float64, error) {
	fn, ok := SelectTransform(source, target)
	if !ok {
		return lon, lat, fmt.Errorf("%w: %s", ErrUnsupportedPair, Pair{source, target})
	}
	return fn(lon, lat)
}
