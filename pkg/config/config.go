// Package config loads runtime settings from an optional .env file and the
// process environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/df07/go-stochastic-raytracer/pkg/core"
	"github.com/df07/go-stochastic-raytracer/pkg/output"
)

// Config holds environment-provided settings. Command line flags override them.
type Config struct {
	RootDir   string
	OutputDir string
	ScenesDir string
	Workers   int
	LogLevel  slog.Level
	S3        output.S3Config
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// Load reads rootDir/.env if present and then the environment. Variables
// already set in the environment take precedence over the file.
func Load(rootDir string) (*Config, error) {
	rootDir = getEnv("RAYTRACER_ROOT_DIR", rootDir)
	_ = godotenv.Load(path.Join(rootDir, ".env"))

	cfg := &Config{
		RootDir:   rootDir,
		OutputDir: getEnv("RAYTRACER_OUTPUT_DIR", path.Join(rootDir, "output")),
		ScenesDir: getEnv("RAYTRACER_SCENES_DIR", path.Join(rootDir, "scenes")),
		S3: output.S3Config{
			AccessKey: os.Getenv("S3_ACCESS_KEY"),
			SecretKey: os.Getenv("S3_SECRET_KEY"),
			Endpoint:  os.Getenv("S3_ENDPOINT"),
			Region:    getEnv("S3_REGION", "us-east-1"),
			Bucket:    os.Getenv("S3_BUCKET"),
			Prefix:    os.Getenv("S3_PREFIX"),
		},
	}

	workers, err := strconv.Atoi(getEnv("RAYTRACER_WORKERS", "0"))
	if err != nil || workers < 0 {
		return nil, fmt.Errorf("RAYTRACER_WORKERS %q must be a non-negative integer: %w",
			os.Getenv("RAYTRACER_WORKERS"), core.ErrInvalidConfig)
	}
	cfg.Workers = workers

	level, err := ParseLogLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = level

	return cfg, nil
}

// ParseLogLevel accepts debug, info, warn/warning and error
func ParseLogLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q: %w", name, core.ErrInvalidConfig)
}
