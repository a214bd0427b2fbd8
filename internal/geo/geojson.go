// Package geo handles geographic data structures and coordinate conversions.
package geo

// Kind is a GeoJSON geometry type.
type Kind int

// Geometry kinds defined by RFC 7946.
const (
	KindUnknown Kind = iota
	KindPoint
	KindMultiPoint
	KindLineString
	KindPolygon
	KindMultiLineString
	KindMultiPolygon
	KindGeometryCollection
)

var kindNames = map[Kind]string{
	KindPoint:              "Point",
	KindMultiPoint:         "MultiPoint",
	KindLineString:         "LineString",
	KindPolygon:            "Polygon",
	KindMultiLineString:    "MultiLineString",
	KindMultiPolygon:       "MultiPolygon",
	KindGeometryCollection: "GeometryCollection",
}

var kindByName = func() map[string]Kind {
	m := make(map[string]Kind, len(kindNames))
	for k, name := range kindNames {
		m[name] = k
	}
	return m
}()

// ParseKind maps a GeoJSON "type" value to a Kind.
// Names are case-sensitive; anything else is KindUnknown.
func ParseKind(name string) Kind {
	return kindByName[name]
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "Unknown"
}

// Depth returns how many array levels wrap a single coordinate pair inside
// the "coordinates" member of a geometry of this kind:
//
//	Point                       [lon, lat]                0
//	MultiPoint, LineString      [[lon, lat], ...]         1
//	Polygon, MultiLineString    [[[lon, lat], ...], ...]  2
//	MultiPolygon                [[[[lon, lat], ...]]]     3
//
// GeometryCollection and unknown kinds carry no coordinates and return -1.
func (k Kind) Depth() int {
	switch k {
	case KindPoint:
		return 0
	case KindMultiPoint, KindLineString:
		return 1
	case KindPolygon, KindMultiLineString:
		return 2
	case KindMultiPolygon:
		return 3
	default:
		return -1
	}
}
