package convert

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/woozymasta/gcjconv/internal/geo"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func forward(t *testing.T) geo.Transform {
	t.Helper()
	fn, ok := geo.SelectTransform(geo.WGS84, geo.GCJ02)
	require.True(t, ok)
	return fn
}

func gcj(lon, lat float64) []float64 {
	lon, lat = geo.WGS84ToGCJ02(lon, lat)
	return []float64{lon, lat}
}

func decode(t *testing.T, data []byte) map[string]interface{} {
	t.Helper()
	var v map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &v))
	return v
}

func floats(t *testing.T, v interface{}) []float64 {
	t.Helper()
	arr, ok := v.([]interface{})
	require.True(t, ok, "expected array, got %T", v)
	out := make([]float64, 0, len(arr))
	for _, x := range arr {
		f, ok := x.(float64)
		require.True(t, ok, "expected number, got %T", x)
		out = append(out, f)
	}
	return out
}

func TestDocumentFeatureCollectionPreservesStructure(t *testing.T) {
	nullFeature := `{"type": "Feature", "id": "b", "geometry": null, "properties": {"name": "empty", "coordinates": [1, 2]}}`
	doc := `{
  "type": "FeatureCollection",
  "bbox": [116.0, 39.0, 117.0, 40.0],
  "features": [
    {"type": "Feature", "id": "a", "geometry": {"type": "Point", "coordinates": [116.3974, 39.9093]}, "properties": {"name": "Tiananmen"}},
    ` + nullFeature + `
  ]
}`

	out, stats, err := Document([]byte(doc), forward(t))
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Pairs)
	assert.Equal(t, 0, stats.Skipped)

	// Everything outside the two rewritten numbers is byte-identical.
	assert.Contains(t, string(out), nullFeature)
	assert.Contains(t, string(out), `"bbox": [116.0, 39.0, 117.0, 40.0]`)
	assert.Contains(t, string(out), `"properties": {"name": "Tiananmen"}`)

	v := decode(t, out)
	features := v["features"].([]interface{})
	require.Len(t, features, 2)

	point := features[0].(map[string]interface{})["geometry"].(map[string]interface{})
	assert.Equal(t, gcj(116.3974, 39.9093), floats(t, point["coordinates"]))

	second := features[1].(map[string]interface{})
	assert.Nil(t, second["geometry"])
	assert.Equal(t, map[string]interface{}{"name": "empty", "coordinates": []interface{}{1.0, 2.0}}, second["properties"])
}

func TestDocumentMultiPolygonNesting(t *testing.T) {
	doc := `{"type":"Feature","properties":{},"geometry":{"type":"MultiPolygon","coordinates":[
		[[[116.0,39.0],[117.0,39.0],[117.0,40.0],[116.0,39.0]]],
		[[[120.0,30.0],[121.0,30.0],[121.0,31.0],[120.0,30.0]]]
	]}}`

	out, stats, err := Document([]byte(doc), forward(t))
	require.NoError(t, err)
	assert.Equal(t, 8, stats.Pairs)

	var parsed struct {
		Geometry struct {
			Coordinates [][][][]float64 `json:"coordinates"`
		} `json:"geometry"`
	}
	require.NoError(t, json.Unmarshal(out, &parsed))

	polys := parsed.Geometry.Coordinates
	require.Len(t, polys, 2)
	input := [][][]float64{
		{{116, 39}, {117, 39}, {117, 40}, {116, 39}},
		{{120, 30}, {121, 30}, {121, 31}, {120, 30}},
	}
	for i, poly := range polys {
		require.Len(t, poly, 1)
		require.Len(t, poly[0], 4)
		for j, pair := range poly[0] {
			assert.Equal(t, gcj(input[i][j][0], input[i][j][1]), pair)
		}
	}
}

func TestDocumentGeometryKinds(t *testing.T) {
	tests := []struct {
		name  string
		geom  string
		pairs int
	}{
		{"point", `{"type":"Point","coordinates":[116,40]}`, 1},
		{"multipoint", `{"type":"MultiPoint","coordinates":[[116,40],[117,41]]}`, 2},
		{"linestring", `{"type":"LineString","coordinates":[[116,40],[117,41],[118,42]]}`, 3},
		{"polygon", `{"type":"Polygon","coordinates":[[[116,40],[117,40],[117,41],[116,40]],[[116.2,40.2],[116.4,40.2],[116.4,40.4],[116.2,40.2]]]}`, 8},
		{"multilinestring", `{"type":"MultiLineString","coordinates":[[[116,40],[117,41]],[[118,42],[119,43]]]}`, 4},
		{"unknown", `{"type":"Circle","coordinates":[116,40],"radius":10}`, 0},
		{"empty coordinates", `{"type":"LineString","coordinates":[]}`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := `{"type":"Feature","properties":null,"geometry":` + tt.geom + `}`
			out, stats, err := Document([]byte(doc), forward(t))
			require.NoError(t, err)
			assert.Equal(t, tt.pairs, stats.Pairs)
			if tt.pairs == 0 {
				assert.Equal(t, doc, string(out))
			} else {
				assert.NotEqual(t, doc, string(out))
			}
		})
	}
}

func TestDocumentGeometryCollection(t *testing.T) {
	doc := `{"type":"GeometryCollection","geometries":[
		{"type":"Point","coordinates":[116,40]},
		{"type":"GeometryCollection","geometries":[
			{"type":"LineString","coordinates":[[117,41],[118,42]]}
		]}
	]}`

	out, stats, err := Document([]byte(doc), forward(t))
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Pairs)

	var parsed struct {
		Geometries []struct {
			Coordinates []float64 `json:"coordinates"`
			Geometries  []struct {
				Coordinates [][]float64 `json:"coordinates"`
			} `json:"geometries"`
		} `json:"geometries"`
	}
	require.NoError(t, json.Unmarshal(out, &parsed))
	require.Len(t, parsed.Geometries, 2)
	assert.Equal(t, gcj(116, 40), parsed.Geometries[0].Coordinates)
	require.Len(t, parsed.Geometries[1].Geometries, 1)
	assert.Equal(t, [][]float64{gcj(117, 41), gcj(118, 42)}, parsed.Geometries[1].Geometries[0].Coordinates)
}

func TestDocumentGeometryCollectionInFeature(t *testing.T) {
	doc := `{"type":"Feature","geometry":{"type":"GeometryCollection","geometries":[{"type":"Point","coordinates":[116,40]}]},"properties":{}}`

	_, stats, err := Document([]byte(doc), forward(t))
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Pairs)
}

func TestDocumentKeepsAltitude(t *testing.T) {
	doc := `{"type":"Feature","geometry":{"type":"Point","coordinates":[116.3974, 39.9093, 43.50, 7]},"properties":{}}`

	out, stats, err := Document([]byte(doc), forward(t))
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Pairs)
	assert.Contains(t, string(out), `, 43.50, 7]`)

	v := decode(t, out)
	coords := floats(t, v["geometry"].(map[string]interface{})["coordinates"])
	require.Len(t, coords, 4)
	assert.Equal(t, gcj(116.3974, 39.9093), coords[:2])
}

func TestDocumentMalformedPoint(t *testing.T) {
	docs := []string{
		`{"type":"Feature","geometry":{"type":"Point","coordinates":[116.3974]},"properties":{}}`,
		`{"type":"Feature","geometry":{"type":"Point","coordinates":[]},"properties":{}}`,
		`{"type":"Feature","geometry":{"type":"Point","coordinates":["116.3974","39.9093"]},"properties":{}}`,
		`{"type":"Feature","geometry":{"type":"Point","coordinates":116.3974},"properties":{}}`,
		`{"type":"Feature","geometry":{"type":"Point"},"properties":{}}`,
		`{"type":"Feature","geometry":"Point","properties":{}}`,
	}

	for _, doc := range docs {
		out, stats, err := Document([]byte(doc), forward(t))
		require.NoError(t, err, doc)
		assert.Equal(t, doc, string(out))
		assert.Equal(t, 0, stats.Pairs)
		assert.Equal(t, 1, stats.Skipped, doc)
	}
}

func TestDocumentMalformedSiblingsContinue(t *testing.T) {
	doc := `{"type":"FeatureCollection","features":[
		{"type":"Feature","geometry":{"type":"LineString","coordinates":[[116,40],[117],["a","b"],[118,42]]}},
		42,
		{"type":"Feature","geometry":{"type":"Polygon","coordinates":[17,[[116,40],[117,41]]]}},
		{"type":"Feature","geometry":{"type":"Point","coordinates":[116,40]}}
	]}`

	out, stats, err := Document([]byte(doc), forward(t))
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Pairs)
	assert.Equal(t, 4, stats.Skipped)
	assert.Contains(t, string(out), `[117],["a","b"]`)
}

func TestDocumentRootTypes(t *testing.T) {
	docs := []string{
		`{"type":"Point","coordinates":[116,40]}`,
		`{"type":"Topology","objects":{}}`,
		`{"coordinates":[116,40]}`,
		`[{"type":"Feature","geometry":{"type":"Point","coordinates":[116,40]}}]`,
		`"FeatureCollection"`,
		`42`,
		`null`,
	}

	for _, doc := range docs {
		out, stats, err := Document([]byte(doc), forward(t))
		require.NoError(t, err, doc)
		assert.Equal(t, doc, string(out))
		assert.Equal(t, 0, stats.Pairs)
	}
}

func TestDocumentParseError(t *testing.T) {
	for _, doc := range []string{``, `{`, `{"type":"Feature",}`, `{"a":1} {"b":2}`, `not json`} {
		out, _, err := Document([]byte(doc), forward(t))
		assert.ErrorIs(t, err, ErrParse, doc)
		assert.Nil(t, out)
	}
}

func TestDocumentSerializeError(t *testing.T) {
	nan := func(lon, lat float64) (float64, float64, error) {
		return math.NaN(), lat, nil
	}

	doc := `{"type":"Feature","geometry":{"type":"Point","coordinates":[116,40]}}`
	out, _, err := Document([]byte(doc), nan)
	assert.ErrorIs(t, err, ErrSerialize)
	assert.Nil(t, out)
}

func TestDocumentDuplicateKeysUseLast(t *testing.T) {
	doc := `{"type":"Feature","properties":{},` +
		`"geometry":{"type":"Point","coordinates":[116,40]},` +
		`"geometry":{"type":"Point","coordinates":[117,41]}}`

	out, stats, err := Document([]byte(doc), forward(t))
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Pairs)

	// encoding/json keeps the last duplicate.
	var f struct {
		Geometry struct {
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
	}
	require.NoError(t, json.Unmarshal(out, &f))
	assert.Equal(t, gcj(117, 41), f.Geometry.Coordinates)
	assert.Contains(t, string(out), `"coordinates":[116,40]`)
}

func TestDocumentTransformErrorSkipsPair(t *testing.T) {
	calls := 0
	flaky := func(lon, lat float64) (float64, float64, error) {
		calls++
		if calls == 1 {
			return 0, 0, geo.ErrNoConvergence
		}
		return lon + 1, lat + 1, nil
	}

	doc := `{"type":"Feature","geometry":{"type":"LineString","coordinates":[[116,40],[117,41]]}}`
	out, stats, err := Document([]byte(doc), flaky)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Pairs)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, `{"type":"Feature","geometry":{"type":"LineString","coordinates":[[116,40],[118,42]]}}`, string(out))
}

func TestDocumentOffsets(t *testing.T) {
	// Leading whitespace, multi-byte keys and escapes must not shift offsets.
	doc := "\n\t  {\"名称\": \"天安门 \\\"广场\\\"\", \"type\": \"Feature\", \"geometry\": {\"type\": \"Point\", \"coordinates\": [116.3974, 39.9093]}, \"properties\": {\"\\u0074ype\": \"x\"}}\n"

	out, stats, err := Document([]byte(doc), forward(t))
	require.NoError(t, err)
	require.Equal(t, 1, stats.Pairs)

	want := gcj(116.3974, 39.9093)
	assert.True(t, strings.HasPrefix(string(out), "\n\t  {\"名称\": \"天安门 \\\"广场\\\"\", \"type\""))
	assert.True(t, strings.HasSuffix(string(out), "]}, \"properties\": {\"\\u0074ype\": \"x\"}}\n"))

	v := decode(t, out)
	assert.Equal(t, want, floats(t, v["geometry"].(map[string]interface{})["coordinates"]))
}

func TestDocumentOutOfChinaUntouched(t *testing.T) {
	doc := `{"type":"Feature","geometry":{"type":"LineString","coordinates":[[2.50,48.8566],[-0.1276e0,51.50720]]}}`

	out, stats, err := Document([]byte(doc), forward(t))
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Pairs)
	assert.Equal(t, doc, string(out))
}

func TestDocumentSample(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("testdata", "sample.geojson"))
	require.NoError(t, err)

	gcjDoc, stats, err := Document(data, forward(t))
	require.NoError(t, err)
	assert.Equal(t, 16, stats.Pairs)
	assert.Equal(t, 1, stats.Skipped)

	inverse, ok := geo.SelectTransform(geo.GCJ02, geo.WGS84)
	require.True(t, ok)
	back, _, err := Document(gcjDoc, inverse)
	require.NoError(t, err)

	var orig, round interface{}
	require.NoError(t, json.Unmarshal(data, &orig))
	require.NoError(t, json.Unmarshal(back, &round))
	assertJSONInDelta(t, orig, round, 1e-7)
}

// assertJSONInDelta compares decoded JSON trees, numbers within delta.
func assertJSONInDelta(t *testing.T, want, got interface{}, delta float64) {
	t.Helper()
	switch w := want.(type) {
	case map[string]interface{}:
		g, ok := got.(map[string]interface{})
		require.True(t, ok)
		require.Len(t, g, len(w))
		for k, v := range w {
			assertJSONInDelta(t, v, g[k], delta)
		}
	case []interface{}:
		g, ok := got.([]interface{})
		require.True(t, ok)
		require.Len(t, g, len(w))
		for i := range w {
			assertJSONInDelta(t, w[i], g[i], delta)
		}
	case float64:
		assert.InDelta(t, w, got, delta)
	default:
		assert.Equal(t, want, got)
	}
}
