package app

import (
	"errors"
	"time"
)

// DefaultImageRepo is the engine image repository used when none is given.
const DefaultImageRepo = "nfconftest/engine"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	// PipelinePath is the pipeline repository to discover test cases under.
	PipelinePath string

	// Local evaluates in-process instead of inside containers.
	Local bool
	// Dev builds the engine image from BuildContext instead of pulling it.
	Dev bool
	// ImageRepo is the engine image repository; versions become tags.
	ImageRepo string
	// BuildContext is the Dockerfile directory used in dev mode.
	BuildContext string

	Workers int
	// Timeout bounds one test case run; zero means unbounded.
	Timeout time.Duration

	LogFormat string
	LogLevel  string
}

// NewConfig validates a Config and fills defaults.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.PipelinePath == "" {
		return nil, errors.New("PipelinePath is a required configuration field and cannot be empty")
	}
	if cfg.Workers < 1 {
		return nil, errors.New("Workers must be at least 1")
	}
	if cfg.Timeout < 0 {
		return nil, errors.New("Timeout cannot be negative")
	}
	if cfg.ImageRepo == "" {
		cfg.ImageRepo = DefaultImageRepo
	}
	return &cfg, nil
}
