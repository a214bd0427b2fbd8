// Package config handles configuration loading and shared data structures.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/woozymasta/gcjconv/internal/convert"
	"github.com/woozymasta/gcjconv/internal/geo"

	"gopkg.in/yaml.v3"
)

// Config represents the root configuration file structure.
type Config struct {
	Source      string `yaml:"source,omitempty"`
	Target      string `yaml:"target,omitempty"`
	Format      string `yaml:"format,omitempty"`
	Jobs        []Job  `yaml:"jobs"`
	Strict      bool   `yaml:"strict,omitempty"`
	Approximate bool   `yaml:"approximate,omitempty"`
}

// Job is a single document conversion.
type Job struct {
	// Strict and Approximate override the global values when set.
	Strict      *bool  `yaml:"strict,omitempty"`
	Approximate *bool  `yaml:"approximate,omitempty"`
	Name        string `yaml:"name"`
	Input       string `yaml:"input"`  // file path or http(s) URL
	Output      string `yaml:"output"` // file path
	Source      string `yaml:"source,omitempty"`
	Target      string `yaml:"target,omitempty"`
	Format      string `yaml:"format,omitempty"`
}

// Load reads and parses the YAML configuration file from the specified path.
// Jobs inherit unset fields from the global section.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Source == "" {
		c.Source = string(geo.WGS84)
	}
	if c.Target == "" {
		c.Target = string(geo.GCJ02)
	}
	if c.Format == "" {
		c.Format = string(convert.FormatKeep)
	}

	for i := range c.Jobs {
		job := &c.Jobs[i]
		if job.Name == "" {
			job.Name = fmt.Sprintf("job-%d", i+1)
		}
		if job.Source == "" {
			job.Source = c.Source
		}
		if job.Target == "" {
			job.Target = c.Target
		}
		if job.Format == "" {
			job.Format = c.Format
		}
		if job.Strict == nil {
			job.Strict = boolPtr(c.Strict)
		}
		if job.Approximate == nil {
			job.Approximate = boolPtr(c.Approximate)
		}
	}
}

// Validate checks formats and required job fields.
// Datum tags are not validated here: an unsupported pair is handled at
// conversion time according to the strict flag.
func (c *Config) Validate() error {
	var errs []error

	if _, err := convert.ParseFormat(c.Format); err != nil {
		errs = append(errs, err)
	}

	names := make(map[string]bool, len(c.Jobs))
	for _, job := range c.Jobs {
		if names[job.Name] {
			errs = append(errs, fmt.Errorf("job %q: duplicate name", job.Name))
		}
		names[job.Name] = true

		if job.Input == "" {
			errs = append(errs, fmt.Errorf("job %q: input is required", job.Name))
		}
		if job.Output == "" {
			errs = append(errs, fmt.Errorf("job %q: output is required", job.Name))
		}
		if _, err := convert.ParseFormat(job.Format); err != nil {
			errs = append(errs, fmt.Errorf("job %q: %w", job.Name, err))
		}
	}

	return errors.Join(errs...)
}

// Options returns the conversion options of the job.
func (j Job) Options() convert.Options {
	format, _ := convert.ParseFormat(j.Format)
	return convert.Options{
		Format:      format,
		Strict:      j.Strict != nil && *j.Strict,
		Approximate: j.Approximate != nil && *j.Approximate,
	}
}

func boolPtr(b bool) *bool { return &b }
