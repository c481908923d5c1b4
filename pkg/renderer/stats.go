package renderer

import (
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// RenderStats contains statistics about a finished (or cancelled) render
type RenderStats struct {
	TotalPixels  int64         // Pixels whose rows were completed
	TotalSamples int64         // Camera rays traced
	Rows         int           // Rows completed
	Chunks       int           // Row chunks completed
	Workers      int           // Goroutines used
	Elapsed      time.Duration // Wall time of the render
}

// ChunkStats counts the work done for a single row chunk
type ChunkStats struct {
	Pixels  int64
	Samples int64
}

// add folds a completed chunk into the totals
func (s *RenderStats) add(chunk RowChunk, cs ChunkStats) {
	s.TotalPixels += cs.Pixels
	s.TotalSamples += cs.Samples
	s.Rows += chunk.Rows()
	s.Chunks++
}

// SamplesPerSecond returns camera-ray throughput, 0 when no time elapsed
func (s RenderStats) SamplesPerSecond() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.TotalSamples) / s.Elapsed.Seconds()
}

// Summary renders the stats as a single human readable line with
// locale-aware digit grouping
func (s RenderStats) Summary(tag language.Tag) string {
	p := message.NewPrinter(tag)
	return p.Sprintf("%d pixels, %d samples in %v (%.0f samples/s, %d workers, %d chunks)",
		s.TotalPixels, s.TotalSamples, s.Elapsed.Round(time.Millisecond),
		s.SamplesPerSecond(), s.Workers, s.Chunks)
}
