package renderer

import (
	"context"
	"runtime"
	"sync"

	"github.com/df07/go-stochastic-raytracer/pkg/core"
)

// RowTask represents a row chunk rendering task for the worker pool
type RowTask struct {
	Chunk RowChunk
	Seed  int64 // Base seed; the chunk ID selects the stream
}

// RowResult contains the result from rendering a row chunk
type RowResult struct {
	Chunk    RowChunk
	Stats    ChunkStats
	WorkerID int
	Err      error
}

// WorkerPool manages parallel row chunk rendering
type WorkerPool struct {
	taskQueue   chan RowTask
	resultQueue chan RowResult
	workers     []*Worker
	numWorkers  int
	wg          sync.WaitGroup
}

// Worker handles individual row chunk tasks
type Worker struct {
	ID          int
	renderer    *RowRenderer
	buffer      *PixelBuffer
	ctx         context.Context
	taskQueue   chan RowTask
	resultQueue chan RowResult
}

// NewWorkerPool creates a worker pool writing into buffer. numWorkers <= 0 uses
// runtime.NumCPU(); queueSize bounds both queues and should cover every task
// so that submission never blocks.
func NewWorkerPool(ctx context.Context, renderer *RowRenderer, buffer *PixelBuffer, numWorkers, queueSize int) *WorkerPool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}

	wp := &WorkerPool{
		taskQueue:   make(chan RowTask, queueSize),
		resultQueue: make(chan RowResult, queueSize),
		numWorkers:  numWorkers,
	}

	for i := 0; i < numWorkers; i++ {
		wp.workers = append(wp.workers, &Worker{
			ID:          i,
			renderer:    renderer,
			buffer:      buffer,
			ctx:         ctx,
			taskQueue:   wp.taskQueue,
			resultQueue: wp.resultQueue,
		})
	}

	return wp
}

// Start begins all workers
func (wp *WorkerPool) Start() {
	for _, worker := range wp.workers {
		wp.wg.Add(1)
		go worker.run(&wp.wg)
	}
}

// Stop gracefully shuts down all workers. Results already queued remain
// readable through GetResult until it reports false.
func (wp *WorkerPool) Stop() {
	close(wp.taskQueue) // No more tasks
	wp.wg.Wait()        // Wait for workers to finish
	close(wp.resultQueue)
}

// SubmitTask submits a row chunk task to the worker pool
func (wp *WorkerPool) SubmitTask(task RowTask) {
	wp.taskQueue <- task
}

// GetResult retrieves a completed row chunk result
func (wp *WorkerPool) GetResult() (RowResult, bool) {
	result, ok := <-wp.resultQueue
	return result, ok
}

// NumWorkers returns the number of workers in the pool
func (wp *WorkerPool) NumWorkers() int {
	return wp.numWorkers
}

// run is the main worker loop
func (w *Worker) run(wg *sync.WaitGroup) {
	defer wg.Done()

	for task := range w.taskQueue {
		// Cancelled: drain remaining tasks without rendering
		if err := w.ctx.Err(); err != nil {
			w.resultQueue <- RowResult{Chunk: task.Chunk, WorkerID: w.ID, Err: err}
			continue
		}

		// The sampler depends only on (seed, chunk), never on which worker runs it
		sampler := core.NewStreamSampler(task.Seed, uint64(task.Chunk.ID))

		// Chunks have non-overlapping rows, so writing the shared buffer is safe
		stats := w.renderer.RenderRows(task.Chunk, w.buffer, sampler)

		w.resultQueue <- RowResult{
			Chunk:    task.Chunk,
			Stats:    stats,
			WorkerID: w.ID,
		}
	}
}
