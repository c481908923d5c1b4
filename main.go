package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"golang.org/x/text/language"

	"github.com/df07/go-stochastic-raytracer/pkg/config"
	"github.com/df07/go-stochastic-raytracer/pkg/core"
	"github.com/df07/go-stochastic-raytracer/pkg/output"
	"github.com/df07/go-stochastic-raytracer/pkg/renderer"
	"github.com/df07/go-stochastic-raytracer/pkg/scene"
)

// options holds the parsed command line
type options struct {
	scene       string
	width       int
	samples     int
	depth       int
	workers     int
	seed        int64
	format      string
	out         string
	supersample int
	integrator  string
	label       bool
	upload      bool
	logLevel    string
	help        bool
}

func parseFlags(args []string, cfg *config.Config) (options, error) {
	var opts options
	fs := flag.NewFlagSet("raytracer", flag.ContinueOnError)
	fs.StringVar(&opts.scene, "scene", "default", "Scene name (default, materials, random, sphere-grid, empty), PBRT scene name, or .pbrt path")
	fs.IntVar(&opts.width, "width", 0, "Image width in pixels (0 = scene default)")
	fs.IntVar(&opts.samples, "samples", 0, "Samples per pixel (0 = scene default)")
	fs.IntVar(&opts.depth, "depth", -1, "Maximum bounce depth (-1 = scene default)")
	fs.IntVar(&opts.workers, "workers", cfg.Workers, "Parallel workers (0 = use all CPU cores)")
	fs.Int64Var(&opts.seed, "seed", 42, "Random seed; identical seeds give identical images")
	fs.StringVar(&opts.format, "format", "png", "Output format: png, ppm, bmp or tiff")
	fs.StringVar(&opts.out, "out", "", "Output file (default <output dir>/<scene>/render_<timestamp>.<format>)")
	fs.IntVar(&opts.supersample, "supersample", 1, "Render k times larger and downscale")
	fs.StringVar(&opts.integrator, "integrator", "path", "Integrator: path or normals")
	fs.BoolVar(&opts.label, "label", false, "Append a caption with render statistics")
	fs.BoolVar(&opts.upload, "upload", false, "Upload the render to the configured S3 bucket")
	fs.StringVar(&opts.logLevel, "log-level", cfg.LogLevel.String(), "Log level: debug, info, warn or error")
	fs.BoolVar(&opts.help, "help", false, "Show help information")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}

	if opts.help {
		fmt.Println("Stochastic Raytracer")
		fmt.Println("Usage: raytracer [options]")
		fmt.Println()
		fmt.Println("Options:")
		fs.SetOutput(os.Stdout)
		fs.PrintDefaults()
		fmt.Println()
		fmt.Println("Available scenes:")
		for _, info := range scene.BuiltinScenes() {
			fmt.Printf("  %-12s %s\n", info.ID, info.Description)
		}
		fmt.Println()
		fmt.Println("PBRT scenes are loaded from RAYTRACER_SCENES_DIR (default ./scenes).")
		return opts, nil
	}

	if opts.supersample < 1 {
		return opts, fmt.Errorf("-supersample %d must be at least 1: %w", opts.supersample, core.ErrInvalidConfig)
	}
	if opts.width < 0 {
		return opts, fmt.Errorf("-width %d must not be negative: %w", opts.width, core.ErrInvalidConfig)
	}
	return opts, nil
}

// createScene builds a scene by name with the default options
func createScene(name string) (*scene.Scene, error) {
	return scene.NewSceneByName(name, scene.Options{})
}

func main() {
	err := run(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	rootDir, err := os.Getwd()
	if err != nil {
		return err
	}
	cfg, err := config.Load(rootDir)
	if err != nil {
		return err
	}

	opts, err := parseFlags(args, cfg)
	if err != nil || opts.help {
		return err
	}

	level, err := config.ParseLogLevel(opts.logLevel)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	core.SetLogger(logger)

	format, err := output.ParseFormat(opts.format)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	img, stats, err := render(ctx, opts, cfg, logger)
	if err != nil {
		return err
	}
	logger.Info("render completed", "summary", stats.Summary(language.English))

	var encoded bytes.Buffer
	if err := output.Encode(&encoded, img, format); err != nil {
		return err
	}

	filename := opts.out
	if filename == "" {
		timestamp := time.Now().Format("20060102_150405")
		filename = filepath.Join(cfg.OutputDir, sceneDirName(opts.scene),
			fmt.Sprintf("render_%s%s", timestamp, format.Extension()))
	}
	if err := output.WriteFile(filename, encoded.Bytes()); err != nil {
		return err
	}
	fmt.Printf("Render saved as %s\n", filename)

	if !opts.upload {
		return nil
	}
	if !cfg.S3.Enabled() {
		return fmt.Errorf("-upload requires S3_BUCKET, S3_ACCESS_KEY and S3_SECRET_KEY: %w", core.ErrInvalidConfig)
	}
	publisher, err := output.NewS3Publisher(cfg.S3, logger)
	if err != nil {
		return err
	}
	key, err := publisher.Publish(ctx, filepath.Base(filename), encoded.Bytes(), format.ContentType())
	if err != nil {
		return err
	}
	fmt.Printf("Uploaded to s3://%s/%s\n", cfg.S3.Bucket, key)
	return nil
}

// render builds the scene, traces it and converts the result to an 8-bit image
func render(ctx context.Context, opts options, cfg *config.Config, logger *slog.Logger) (image.Image, renderer.RenderStats, error) {
	sceneOpts := scene.Options{
		Seed:      opts.seed,
		ScenesDir: cfg.ScenesDir,
		Camera:    renderer.CameraConfig{Width: opts.width},
	}
	sc, err := scene.NewSceneByName(opts.scene, sceneOpts)
	if err != nil {
		return nil, renderer.RenderStats{}, err
	}
	target := sc.CameraConfig

	// Supersampling renders a larger image of the same scene
	if opts.supersample > 1 {
		sceneOpts.Camera.Width = target.Width * opts.supersample
		if sc, err = scene.NewSceneByName(opts.scene, sceneOpts); err != nil {
			return nil, renderer.RenderStats{}, err
		}
	}

	rt, sampling, err := sc.NewRaytracer(scene.RenderSettings{
		SamplesPerPixel: opts.samples,
		MaxDepth:        opts.depth,
		Workers:         opts.workers,
		Seed:            opts.seed,
		Integrator:      opts.integrator,
	}, logger)
	if err != nil {
		return nil, renderer.RenderStats{}, err
	}

	logger.Info("rendering scene", "scene", sc.Name,
		"width", sampling.Width, "height", sampling.Height,
		"samples", sampling.SamplesPerPixel, "depth", sampling.MaxDepth)

	buf, stats, err := rt.Render(ctx, renderer.RenderOptions{
		OnChunk: func(chunk renderer.ChunkResult) {
			logger.Debug("progress", "rows", chunk.RowsCompleted, "total", chunk.TotalRows)
		},
	})
	if err != nil {
		return nil, stats, err
	}
	logger.Debug("render buffer", "mean_luminance", buf.MeanLuminance())

	var img image.Image = output.ToImage(buf)
	if opts.supersample > 1 {
		img = output.Downscale(img, target.Width, target.ImageHeight())
	}
	if opts.label {
		img = output.Annotate(img, fmt.Sprintf("%s  %d spp  %v", sc.Name,
			sampling.SamplesPerPixel, stats.Elapsed.Round(time.Millisecond)))
	}
	return img, stats, nil
}

// sceneDirName turns a scene argument into a directory name for outputs
func sceneDirName(name string) string {
	base := filepath.Base(name)
	return base[:len(base)-len(filepath.Ext(base))]
}
