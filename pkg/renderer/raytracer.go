package renderer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/df07/go-stochastic-raytracer/pkg/core"
	"github.com/df07/go-stochastic-raytracer/pkg/geometry"
	"github.com/df07/go-stochastic-raytracer/pkg/integrator"
)

// DefaultRowChunkSize is the number of rows rendered per task
const DefaultRowChunkSize = 8

// Config contains rendering configuration
type Config struct {
	Width           int   // Image width in pixels
	Height          int   // Image height in pixels
	SamplesPerPixel int   // Number of rays per pixel
	NumWorkers      int   // Parallel workers (0 = use CPU count)
	RowChunkSize    int   // Rows per task (0 = DefaultRowChunkSize)
	Seed            int64 // Base seed; identical seeds give identical images
}

// DefaultConfig returns sensible default values
func DefaultConfig() Config {
	return Config{
		Width:           400,
		Height:          225,
		SamplesPerPixel: 100,
		NumWorkers:      0,
		RowChunkSize:    DefaultRowChunkSize,
		Seed:            42,
	}
}

// Validate reports settings that cannot produce an image
func (c Config) Validate() error {
	if c.Width < 1 || c.Height < 1 {
		return fmt.Errorf("image size %dx%d must be at least 1x1: %w", c.Width, c.Height, core.ErrInvalidConfig)
	}
	if c.SamplesPerPixel < 1 {
		return fmt.Errorf("samples per pixel %d must be at least 1: %w", c.SamplesPerPixel, core.ErrInvalidConfig)
	}
	if c.NumWorkers < 0 || c.RowChunkSize < 0 {
		return fmt.Errorf("workers and row chunk size must not be negative: %w", core.ErrInvalidConfig)
	}
	return nil
}

// ChunkResult describes a completed row chunk for progress callbacks.
// Buffer rows [StartRow, EndRow) are final when the callback runs; other rows
// may still be written concurrently and must not be read.
type ChunkResult struct {
	StartRow        int
	EndRow          int
	RowsCompleted   int
	TotalRows       int
	ChunksCompleted int
	TotalChunks     int
	Buffer          *PixelBuffer
}

// RenderOptions configures a single Render call
type RenderOptions struct {
	// OnChunk is called once per completed chunk, in completion order, from
	// a single goroutine. It should return quickly.
	OnChunk func(ChunkResult)
}

// Raytracer renders a world through a camera with a pool of workers
type Raytracer struct {
	world      geometry.Shape
	camera     *Camera
	integrator integrator.Integrator
	config     Config
	logger     *slog.Logger
}

// NewRaytracer creates a raytracer. A nil logger uses the shared core logger.
func NewRaytracer(world geometry.Shape, camera *Camera, integ integrator.Integrator, config Config, logger *slog.Logger) (*Raytracer, error) {
	if world == nil || camera == nil || integ == nil {
		return nil, fmt.Errorf("raytracer needs a world, camera and integrator: %w", core.ErrInvalidConfig)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.RowChunkSize == 0 {
		config.RowChunkSize = DefaultRowChunkSize
	}
	return &Raytracer{
		world:      world,
		camera:     camera,
		integrator: integ,
		config:     config,
		logger:     core.LoggerOr(logger),
	}, nil
}

// Config returns the effective configuration
func (rt *Raytracer) Config() Config {
	return rt.config
}

// Render traces every pixel and returns the averaged linear buffer.
// On cancellation it returns the partially filled buffer, the stats of the
// completed chunks and ctx.Err().
func (rt *Raytracer) Render(ctx context.Context, opts RenderOptions) (*PixelBuffer, RenderStats, error) {
	width, height := rt.config.Width, rt.config.Height
	buffer := NewPixelBuffer(width, height)
	chunks := NewRowChunks(height, rt.config.RowChunkSize)

	rowRenderer := NewRowRenderer(rt.world, rt.camera, rt.integrator, width, height, rt.config.SamplesPerPixel)
	pool := NewWorkerPool(ctx, rowRenderer, buffer, rt.config.NumWorkers, len(chunks))

	stats := RenderStats{Workers: pool.NumWorkers()}
	rt.logger.Info("render started",
		"width", width, "height", height,
		"samples", rt.config.SamplesPerPixel,
		"workers", pool.NumWorkers(),
		"chunks", len(chunks),
		"seed", rt.config.Seed)

	startTime := time.Now()
	pool.Start()
	for _, chunk := range chunks {
		pool.SubmitTask(RowTask{Chunk: chunk, Seed: rt.config.Seed})
	}

	// Collect results and dispatch callbacks from this goroutine only
	var renderErr error
	for i := 0; i < len(chunks); i++ {
		result, ok := pool.GetResult()
		if !ok {
			renderErr = fmt.Errorf("worker pool closed unexpectedly")
			break
		}
		if result.Err != nil {
			if renderErr == nil {
				renderErr = result.Err
			}
			continue
		}

		stats.add(result.Chunk, result.Stats)
		rt.logger.Debug("chunk completed",
			"chunk", result.Chunk.ID,
			"rows", fmt.Sprintf("%d-%d", result.Chunk.StartRow, result.Chunk.EndRow),
			"worker", result.WorkerID)

		if opts.OnChunk != nil {
			opts.OnChunk(ChunkResult{
				StartRow:        result.Chunk.StartRow,
				EndRow:          result.Chunk.EndRow,
				RowsCompleted:   stats.Rows,
				TotalRows:       height,
				ChunksCompleted: stats.Chunks,
				TotalChunks:     len(chunks),
				Buffer:          buffer,
			})
		}
	}
	pool.Stop()
	stats.Elapsed = time.Since(startTime)

	if renderErr != nil {
		rt.logger.Warn("render stopped early", "error", renderErr, "rows", stats.Rows, "total_rows", height)
		return buffer, stats, renderErr
	}

	rt.logger.Info("render completed",
		"elapsed", stats.Elapsed,
		"pixels", stats.TotalPixels,
		"samples", stats.TotalSamples)
	return buffer, stats, nil
}
