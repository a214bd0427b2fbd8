package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/woozymasta/gcjconv/internal/convert"
	"github.com/woozymasta/gcjconv/internal/geo"
	"github.com/woozymasta/gcjconv/internal/metrics"

	"github.com/paulmach/orb/geojson"
)

// HandleGeometry converts a bare GeoJSON geometry object.
// The body is decoded into typed orb geometries and re-encoded, so unlike
// /api/convert the response layout is normalized.
//
// Query parameters: source, target, approximate.
func (s *ServerContext) HandleGeometry(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	source := geo.Datum(queryDefault(q.Get("source"), string(s.Source)))
	target := geo.Datum(queryDefault(q.Get("target"), string(s.Target)))
	pair := metricPair(source, target)

	selectFn := geo.SelectTransform
	if v := q.Get("approximate"); v != "" {
		approx, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, errors.New("approximate must be a boolean"))
			return
		}
		if approx {
			selectFn = geo.SelectApproximate
		}
	}

	fn, ok := selectFn(source, target)
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: %s", geo.ErrUnsupportedPair, geo.Pair{Source: source, Target: target}))
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, err)
			return
		}
		writeError(w, http.StatusBadRequest, err)
		return
	}

	g, err := geojson.UnmarshalGeometry(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: %v", convert.ErrParse, err))
		return
	}
	if g.Geometry() == nil {
		writeError(w, http.StatusBadRequest, errors.New("geometry has no coordinates"))
		return
	}

	var stats convert.Stats
	counted := func(lon, lat float64) (float64, float64, error) {
		stats.Pairs++
		return fn(lon, lat)
	}

	start := time.Now()
	projected := geo.ProjectGeometry(g.Geometry(), counted)
	out, err := json.Marshal(geojson.NewGeometry(projected))
	if err != nil {
		err = fmt.Errorf("%w: %v", convert.ErrSerialize, err)
	}
	metrics.ObserveDocument(pair, stats, err, time.Since(start))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", "application/geo+json")
	w.Header().Set("X-Converted-Pairs", strconv.Itoa(stats.Pairs))
	_, _ = w.Write(out)
}
