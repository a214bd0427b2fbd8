// Package server handles HTTP requests and middleware.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/woozymasta/gcjconv/internal/convert"
	"github.com/woozymasta/gcjconv/internal/geo"
	"github.com/woozymasta/gcjconv/internal/metrics"

	"github.com/rs/zerolog/log"
)

// PointResponse is the body of /api/point.
type PointResponse struct {
	Source geo.Datum `json:"source"`
	Target geo.Datum `json:"target"`
	Lon    float64   `json:"lon"`
	Lat    float64   `json:"lat"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// HandleConvert converts the GeoJSON document in the request body.
//
// Query parameters: source, target, format, strict, approximate.
func (s *ServerContext) HandleConvert(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	source := queryDefault(q.Get("source"), string(s.Source))
	target := queryDefault(q.Get("target"), string(s.Target))

	opts := convert.Options{Format: s.Format, Strict: s.Strict}
	if v := q.Get("format"); v != "" {
		f, err := convert.ParseFormat(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		opts.Format = f
	}
	if v := q.Get("strict"); v != "" {
		strict, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, errors.New("strict must be a boolean"))
			return
		}
		opts.Strict = strict
	}
	if v := q.Get("approximate"); v != "" {
		approx, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, errors.New("approximate must be a boolean"))
			return
		}
		opts.Approximate = approx
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

	start := time.Now()
	out, stats, err := convert.Datums(body, source, target, opts)
	pair := metricPair(geo.Datum(source), geo.Datum(target))
	metrics.ObserveDocument(pair, stats, err, time.Since(start))

	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, convert.ErrParse) || errors.Is(err, geo.ErrUnsupportedPair) {
			status = http.StatusBadRequest
		}
		log.Debug().Err(err).Str("pair", pair).Msg("Conversion failed")
		writeError(w, status, err)
		return
	}

	w.Header().Set("Content-Type", "application/geo+json")
	w.Header().Set("X-Converted-Pairs", strconv.Itoa(stats.Pairs))
	w.Header().Set("X-Skipped-Nodes", strconv.Itoa(stats.Skipped))
	if stats.Unsupported {
		w.Header().Set("X-Datum-Unsupported", "true")
	}
	_, _ = w.Write(out)
}

// HandlePoint converts a single lon/lat pair.
func (s *ServerContext) HandlePoint(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	source := geo.Datum(queryDefault(q.Get("source"), string(s.Source)))
	target := geo.Datum(queryDefault(q.Get("target"), string(s.Target)))
	pair := metricPair(source, target)

	lon, errLon := strconv.ParseFloat(q.Get("lon"), 64)
	lat, errLat := strconv.ParseFloat(q.Get("lat"), 64)
	if errLon != nil || errLat != nil || !finite(lon) || !finite(lat) {
		writeError(w, http.StatusBadRequest, errors.New("lon and lat must be numbers"))
		return
	}

	lon, lat, err := geo.Point(source, target, lon, lat)
	if err != nil {
		metrics.PointsTotal.WithLabelValues(pair, metrics.StatusError).Inc()
		status := http.StatusUnprocessableEntity
		if errors.Is(err, geo.ErrUnsupportedPair) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err)
		return
	}
	metrics.PointsTotal.WithLabelValues(pair, metrics.StatusOK).Inc()

	writeJSON(w, http.StatusOK, PointResponse{Source: source, Target: target, Lon: lon, Lat: lat})
}

// HandleDatums lists the supported conversions.
func (s *ServerContext) HandleDatums(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, geo.Pairs())
}

// metricPair keeps label cardinality bounded for arbitrary query values.
func metricPair(source, target geo.Datum) string {
	if _, ok := geo.SelectTransform(source, target); !ok {
		return "unsupported"
	}
	return geo.Pair{Source: source, Target: target}.String()
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func queryDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Ignoring error as we cannot handle client disconnects
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
