package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/woozymasta/gcjconv/internal/convert"
	"github.com/woozymasta/gcjconv/internal/geo"
	"github.com/woozymasta/gcjconv/internal/logger"
	"github.com/woozymasta/gcjconv/internal/server"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	Addr         string `short:"a" long:"addr"           env:"LISTEN_ADDRESS" description:"Address to listen on"                 default:"0.0.0.0"`
	Source       string `short:"s" long:"source"         env:"SOURCE_DATUM"   description:"Default source datum"                 choice:"WGS84" choice:"GCJ02" default:"WGS84"`
	Target       string `short:"t" long:"target"         env:"TARGET_DATUM"   description:"Default target datum"                 choice:"WGS84" choice:"GCJ02" default:"GCJ02"`
	Format       string `short:"f" long:"format"         env:"OUTPUT_FORMAT"  description:"Default output format"                choice:"keep" choice:"compact" choice:"pretty" default:"keep"`
	Port         int    `short:"p" long:"port"           env:"LISTEN_PORT"    description:"Port to listen on"                    default:"8080"`
	MaxBodyBytes int64  `short:"m" long:"max-body-bytes" env:"MAX_BODY_BYTES" description:"Maximum request body size in bytes"   default:"33554432"`
	Strict       bool   `long:"strict"                   env:"STRICT"         description:"Reject unsupported datum pairs"`
	NoMetrics    bool   `long:"no-metrics"               env:"NO_METRICS"     description:"Disable the /metrics endpoint"`
}

func main() {
	_ = godotenv.Load(".env")

	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	// Setup Logging
	opts.Logger.Setup()

	srvCtx := server.NewServerContext(server.ServerContext{
		Source:       geo.Datum(opts.Source),
		Target:       geo.Datum(opts.Target),
		Format:       convert.Format(opts.Format),
		MaxBodyBytes: opts.MaxBodyBytes,
		Strict:       opts.Strict,
		Metrics:      !opts.NoMetrics,
	})

	listenAddr := fmt.Sprintf("%s:%d", opts.Addr, opts.Port)
	srv := &http.Server{
		Addr:              listenAddr,
		Handler:           srvCtx.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info().
		Str("addr", listenAddr).
		Bool("metrics", !opts.NoMetrics).
		Msg("Web server started")

	if err := srv.ListenAndServe(); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
}
