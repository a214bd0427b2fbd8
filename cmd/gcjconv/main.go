package main

import (
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/woozymasta/gcjconv/internal/config"
	"github.com/woozymasta/gcjconv/internal/convert"
	"github.com/woozymasta/gcjconv/internal/geo"
	"github.com/woozymasta/gcjconv/internal/logger"
	"github.com/woozymasta/gcjconv/internal/processor"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	Input       string `short:"i" long:"in"          description:"Input file path or http(s) URL. Reads from stdin if empty"`
	Output      string `short:"o" long:"out"         description:"Output file path. Writes to stdout if empty"`
	Source      string `short:"s" long:"source"      env:"SOURCE_DATUM"  description:"Source datum" default:"WGS84"`
	Target      string `short:"t" long:"target"      env:"TARGET_DATUM"  description:"Target datum" default:"GCJ02"`
	Format      string `short:"f" long:"format"      env:"OUTPUT_FORMAT" description:"Output format" choice:"keep" choice:"compact" choice:"pretty" default:"keep"`
	ConfigFile  string `short:"c" long:"config"      env:"CONFIG_FILE"   description:"Run every job of a YAML configuration file"`
	Point       string `short:"P" long:"point"       description:"Convert a single \"lon,lat\" pair and print it"`
	Strict      bool   `long:"strict"                env:"STRICT"        description:"Fail on unsupported datum pairs instead of copying the input"`
	Approximate bool   `long:"approximate"           description:"Use the single-step GCJ02 to WGS84 inverse"`
	Force       bool   `short:"F" long:"force"       description:"Overwrite existing output files in config mode"`
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

	opts.Logger.Setup()

	if err := run(opts, os.Stdin, os.Stdout); err != nil {
		log.Fatal().Err(err).Msg("Conversion failed")
	}
}

func run(opts Options, stdin io.Reader, stdout io.Writer) error {
	switch {
	case opts.Point != "":
		return runPoint(opts, stdout)
	case opts.ConfigFile != "":
		return runConfig(opts)
	default:
		return runDocument(opts, stdin, stdout)
	}
}

// runPoint converts one pair given as "lon,lat".
func runPoint(opts Options, stdout io.Writer) error {
	lon, lat, err := parsePair(opts.Point)
	if err != nil {
		return err
	}

	lon, lat, err = geo.Point(geo.Datum(opts.Source), geo.Datum(opts.Target), lon, lat)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(stdout, "%s,%s\n",
		strconv.FormatFloat(lon, 'f', -1, 64),
		strconv.FormatFloat(lat, 'f', -1, 64))
	return err
}

func parsePair(s string) (float64, float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid pair %q: expected \"lon,lat\"", s)
	}

	lon, errLon := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lat, errLat := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err := errors.Join(errLon, errLat); err != nil {
		return 0, 0, fmt.Errorf("invalid pair %q: %w", s, err)
	}

	return lon, lat, nil
}

// runConfig processes every job of a configuration file.
func runConfig(opts Options) error {
	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	log.Info().
		Int("jobs", len(cfg.Jobs)).
		Bool("force", opts.Force).
		Msg("Starting batch conversion")

	results, err := processor.RunAll(newClient(), cfg.Jobs, opts.Force)

	pairs, cached := 0, 0
	for _, res := range results {
		pairs += res.Stats.Pairs
		if res.Cached {
			cached++
		}
	}

	log.Info().
		Int("done", len(results)).
		Int("cached", cached).
		Int("failed", len(cfg.Jobs)-len(results)).
		Int("pairs", pairs).
		Msg("Batch conversion finished")

	return err
}

// runDocument converts one document from a file, URL or stdin.
func runDocument(opts Options, stdin io.Reader, stdout io.Writer) error {
	var (
		data []byte
		err  error
	)
	if opts.Input != "" {
		data, err = processor.Read(newClient(), opts.Input)
	} else {
		data, err = io.ReadAll(stdin)
	}
	if err != nil {
		return err
	}

	format, err := convert.ParseFormat(opts.Format)
	if err != nil {
		return err
	}

	out, stats, err := convert.Datums(data, opts.Source, opts.Target, convert.Options{
		Format:      format,
		Strict:      opts.Strict,
		Approximate: opts.Approximate,
	})
	if err != nil {
		return err
	}

	if opts.Output != "" {
		if err := processor.Write(opts.Output, out); err != nil {
			return err
		}
		log.Info().
			Str("output", opts.Output).
			Int("pairs", stats.Pairs).
			Int("skipped", stats.Skipped).
			Msg("Document converted")
		return nil
	}

	_, err = stdout.Write(out)
	return err
}

func newClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			TLSNextProto:        make(map[string]func(string, *tls.Conn) http.RoundTripper),
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 10,
		},
		Timeout: 60 * time.Second,
	}
}
