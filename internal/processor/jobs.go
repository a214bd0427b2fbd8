// Package processor runs conversion jobs: it reads documents from disk or
// HTTP, converts them and writes the result to disk.
package processor

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/woozymasta/gcjconv/internal/config"
	"github.com/woozymasta/gcjconv/internal/convert"

	"github.com/rs/zerolog/log"
)

// Result describes a processed job.
type Result struct {
	Name   string        `json:"name"`
	Output string        `json:"output"`
	Stats  convert.Stats `json:"stats"`
	// Cached is set when the output already existed and the job was skipped.
	Cached bool `json:"cached,omitempty"`
}

// Run converts a single job. An existing output file is kept unless force is set.
func Run(client *http.Client, job config.Job, force bool) (Result, error) {
	res := Result{Name: job.Name, Output: job.Output}

	if _, err := os.Stat(job.Output); err == nil && !force {
		log.Debug().Str("job", job.Name).Str("output", job.Output).Msg("Output exists, skipping")
		res.Cached = true
		return res, nil
	}

	log.Info().
		Str("job", job.Name).
		Str("source", job.Source).
		Str("target", job.Target).
		Str("input", job.Input).
		Msg("Converting document")

	data, err := Read(client, job.Input)
	if err != nil {
		return res, err
	}

	out, stats, err := convert.Datums(data, job.Source, job.Target, job.Options())
	res.Stats = stats
	if err != nil {
		return res, fmt.Errorf("convert %q: %w", job.Input, err)
	}

	if err := Write(job.Output, out); err != nil {
		return res, err
	}

	log.Info().
		Str("job", job.Name).
		Str("output", job.Output).
		Int("pairs", stats.Pairs).
		Int("skipped", stats.Skipped).
		Msg("Document converted")

	return res, nil
}

// RunAll processes jobs in order. A failed job is logged and does not stop
// the others; the joined errors are returned.
func RunAll(client *http.Client, jobs []config.Job, force bool) ([]Result, error) {
	results := make([]Result, 0, len(jobs))
	var errs []error

	for _, job := range jobs {
		res, err := Run(client, job, force)
		if err != nil {
			log.Error().Err(err).Str("job", job.Name).Msg("Failed to process job")
			errs = append(errs, fmt.Errorf("job %q: %w", job.Name, err))
			continue
		}
		results = append(results, res)
	}

	return results, errors.Join(errs...)
}

// Write stores data at path, creating parent directories as needed.
func Write(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output %q: %w", path, err)
	}

	// We care about write errors on close
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close output %q: %w", path, closeErr)
		}
	}()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("write output %q: %w", path, err)
	}

	return nil
}
