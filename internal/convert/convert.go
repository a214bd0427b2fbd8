// Package convert rewrites the coordinates of GeoJSON documents in place.
//
// The document is never decoded into Go values. It is walked with gjson,
// every coordinate pair is located by its byte offset, and only the numbers
// that change are spliced back into the original text. Keys, key order,
// whitespace, properties and foreign members come out exactly as they went in.
package convert

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/woozymasta/gcjconv/internal/geo"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
)

var (
	// ErrParse is returned when the input is not valid JSON.
	ErrParse = errors.New("parse JSON")
	// ErrSerialize is returned when a converted value cannot be encoded as JSON.
	ErrSerialize = errors.New("serialize JSON")
)

// Stats describes a finished conversion.
type Stats struct {
	// Pairs is the number of coordinate pairs passed through the transform.
	Pairs int `json:"pairs"`
	// Skipped counts malformed nodes and unknown geometry types left untouched.
	Skipped int `json:"skipped"`
	// Unsupported is set when the datum pair had no transform.
	Unsupported bool `json:"unsupported,omitempty"`
}

// edit replaces doc[start:end] with text.
type edit struct {
	start, end int
	text       []byte
}

type walker struct {
	fn    geo.Transform
	edits []edit
	stats Stats
	err   error
}

// Validate reports whether doc is a single valid JSON value.
func Validate(doc []byte) error {
	var raw json.RawMessage
	if err := json.Unmarshal(doc, &raw); err != nil {
		return fmt.Errorf("%w: %v", ErrParse, err)
	}
	return nil
}

// Document applies fn to every coordinate pair of a GeoJSON FeatureCollection,
// Feature or GeometryCollection. Other root types are returned unchanged.
// Malformed geometry is skipped node by node; only invalid JSON and
// unencodable results fail the whole call.
func Document(doc []byte, fn geo.Transform) ([]byte, Stats, error) {
	if err := Validate(doc); err != nil {
		return nil, Stats{}, err
	}

	root := gjson.ParseBytes(doc)
	// Parse drops leading whitespace from Raw without recording an offset.
	root.Index = len(doc) - len(root.Raw)

	w := &walker{fn: fn}
	w.root(root)
	if w.err != nil {
		return nil, w.stats, w.err
	}

	return w.apply(doc), w.stats, nil
}

func (w *walker) root(node gjson.Result) {
	if !node.IsObject() {
		log.Debug().Str("json_type", node.Type.String()).Msg("Root is not an object, nothing to convert")
		return
	}

	switch typ := member(node, "type").String(); typ {
	case "FeatureCollection":
		each(member(node, "features"), w.feature)
	case "Feature":
		w.feature(node)
	case "GeometryCollection":
		each(member(node, "geometries"), w.geometry)
	default:
		log.Debug().Str("type", typ).Msg("Unsupported root type, nothing to convert")
	}
}

func (w *walker) feature(node gjson.Result) {
	if !node.IsObject() {
		w.skip(node, "feature is not an object")
		return
	}

	geometry := member(node, "geometry")
	if !geometry.Exists() || geometry.Type == gjson.Null {
		return
	}
	w.geometry(geometry)
}

func (w *walker) geometry(node gjson.Result) {
	if !node.IsObject() {
		w.skip(node, "geometry is not an object")
		return
	}

	kind := geo.ParseKind(member(node, "type").String())
	switch kind {
	case geo.KindUnknown:
		w.skip(node, "unknown geometry type")
	case geo.KindGeometryCollection:
		each(member(node, "geometries"), w.geometry)
	default:
		w.coordinates(member(node, "coordinates"), kind.Depth())
	}
}

// coordinates descends depth array levels and converts the pairs found there.
func (w *walker) coordinates(node gjson.Result, depth int) {
	if w.err != nil {
		return
	}
	if depth == 0 {
		w.point(node)
		return
	}
	if !node.IsArray() {
		w.skip(node, "coordinates are not an array")
		return
	}

	node.ForEach(func(_, child gjson.Result) bool {
		w.coordinates(child, depth-1)
		return w.err == nil
	})
}

func (w *walker) point(node gjson.Result) {
	if !node.IsArray() {
		w.skip(node, "position is not an array")
		return
	}

	var pos [2]gjson.Result
	n := 0
	node.ForEach(func(_, v gjson.Result) bool {
		pos[n] = v
		n++
		return n < len(pos)
	})
	if n < 2 {
		w.skip(node, "position has fewer than two elements")
		return
	}
	if pos[0].Type != gjson.Number || pos[1].Type != gjson.Number {
		w.skip(node, "position is not numeric")
		return
	}

	lon, lat := pos[0].Float(), pos[1].Float()
	newLon, newLat, err := w.fn(lon, lat)
	if err != nil {
		log.Debug().Err(err).Int("offset", node.Index).Msg("Position left unconverted")
		w.stats.Skipped++
		return
	}

	w.stats.Pairs++
	w.replace(pos[0], lon, newLon)
	w.replace(pos[1], lat, newLat)
}

// replace schedules a rewrite of a numeric leaf whose value changed.
func (w *walker) replace(leaf gjson.Result, old, value float64) {
	if value == old {
		return
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		w.err = fmt.Errorf("%w: unsupported value %v at offset %d", ErrSerialize, value, leaf.Index)
		return
	}

	w.edits = append(w.edits, edit{
		start: leaf.Index,
		end:   leaf.Index + len(leaf.Raw),
		text:  strconv.AppendFloat(nil, value, 'f', -1, 64),
	})
}

func (w *walker) skip(node gjson.Result, reason string) {
	w.stats.Skipped++
	log.Debug().
		Int("offset", node.Index).
		Str("reason", reason).
		Msg("Skipping malformed node")
}

// apply splices all edits into a copy of doc.
func (w *walker) apply(doc []byte) []byte {
	if len(w.edits) == 0 {
		return doc
	}

	sort.Slice(w.edits, func(i, j int) bool { return w.edits[i].start < w.edits[j].start })

	var buf bytes.Buffer
	buf.Grow(len(doc) + len(w.edits)*4)
	last := 0
	for _, e := range w.edits {
		buf.Write(doc[last:e.start])
		buf.Write(e.text)
		last = e.end
	}
	buf.Write(doc[last:])

	return buf.Bytes()
}

// member returns the last value stored under key in an object, the one
// encoding/json decoders see for duplicate keys.
// Lookups go through ForEach so the result keeps its absolute offset.
func member(obj gjson.Result, key string) gjson.Result {
	var found gjson.Result
	obj.ForEach(func(k, v gjson.Result) bool {
		if k.Str == key {
			found = v
		}
		return true
	})
	return found
}

// each calls fn for every element of an array; other values are ignored.
func each(arr gjson.Result, fn func(gjson.Result)) {
	if !arr.IsArray() {
		return
	}
	arr.ForEach(func(_, v gjson.Result) bool {
		fn(v)
		return true
	})
}
