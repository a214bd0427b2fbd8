package geo

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

// Projection wraps a Transform as an orb.Projection.
// Points the transform rejects are returned unchanged.
func Projection(fn Transform) orb.Projection {
	return func(p orb.Point) orb.Point {
		lon, lat, err := fn(p.Lon(), p.Lat())
		if err != nil {
			return p
		}
		return orb.Point{lon, lat}
	}
}

// ProjectGeometry applies fn to every point of g in place and returns it.
func ProjectGeometry(g orb.Geometry, fn Transform) orb.Geometry {
	if g == nil {
		return nil
	}
	return project.Geometry(g, Projection(fn))
}
