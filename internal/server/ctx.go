package server

import (
	"net/http"

	"github.com/woozymasta/gcjconv/internal/convert"
	"github.com/woozymasta/gcjconv/internal/geo"
	"github.com/woozymasta/gcjconv/internal/metrics"

	"github.com/rs/zerolog/log"
)

// DefaultMaxBodyBytes limits uploaded documents.
const DefaultMaxBodyBytes = 32 << 20

// ServerContext holds dependencies for request handlers.
type ServerContext struct {
	// Defaults used when a request does not set them.
	Source geo.Datum
	Target geo.Datum
	Format convert.Format

	MaxBodyBytes int64
	Strict       bool
	Metrics      bool
}

// NewServerContext fills unset fields with defaults.
func NewServerContext(s ServerContext) *ServerContext {
	if s.Source == "" {
		s.Source = geo.WGS84
	}
	if s.Target == "" {
		s.Target = geo.GCJ02
	}
	if s.Format == "" {
		s.Format = convert.FormatKeep
	}
	if s.MaxBodyBytes <= 0 {
		s.MaxBodyBytes = DefaultMaxBodyBytes
	}

	log.Info().
		Str("source", string(s.Source)).
		Str("target", string(s.Target)).
		Str("format", string(s.Format)).
		Bool("strict", s.Strict).
		Int64("max_body_bytes", s.MaxBodyBytes).
		Msg("Server context initialized")

	return &s
}

// Handler returns the routed and logged HTTP handler.
func (s *ServerContext) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/convert", s.HandleConvert)
	mux.HandleFunc("POST /api/geometry", s.HandleGeometry)
	mux.HandleFunc("GET /api/point", s.HandlePoint)
	mux.HandleFunc("GET /api/datums", s.HandleDatums)
	if s.Metrics {
		mux.Handle("GET /metrics", metrics.Handler())
	}

	return RequestLogger(mux)
}
