package renderer

import "github.com/df07/go-stochastic-raytracer/pkg/core"

// PixelBuffer holds linear (not gamma corrected) averaged colors.
// Row 0 is the top row of the image.
type PixelBuffer struct {
	Width  int
	Height int
	Pixels []core.Vec3 // row-major, len Width*Height
}

// NewPixelBuffer allocates a black buffer
func NewPixelBuffer(width, height int) *PixelBuffer {
	return &PixelBuffer{
		Width:  width,
		Height: height,
		Pixels: make([]core.Vec3, width*height),
	}
}

// At returns the color at column x of row y
func (b *PixelBuffer) At(x, y int) core.Vec3 {
	return b.Pixels[y*b.Width+x]
}

// Set stores the color at column x of row y
func (b *PixelBuffer) Set(x, y int, c core.Vec3) {
	b.Pixels[y*b.Width+x] = c
}

// Row returns row y as a slice sharing the buffer's storage
func (b *PixelBuffer) Row(y int) []core.Vec3 {
	return b.Pixels[y*b.Width : (y+1)*b.Width]
}

// MeanLuminance averages the luminance of every pixel, 0 for an empty buffer
func (b *PixelBuffer) MeanLuminance() float64 {
	if len(b.Pixels) == 0 {
		return 0
	}
	total := 0.0
	for _, c := range b.Pixels {
		total += c.Luminance()
	}
	return total / float64(len(b.Pixels))
}

// RowChunk is a horizontal band of rows [StartRow, EndRow) rendered as one task
type RowChunk struct {
	ID       int
	StartRow int
	EndRow   int
}

// Rows returns the number of rows in the chunk
func (c RowChunk) Rows() int {
	return c.EndRow - c.StartRow
}

// NewRowChunks splits height rows into bands of chunkSize; the last band may be shorter.
// Chunk IDs are stable for a given height and chunkSize, independent of worker count.
func NewRowChunks(height, chunkSize int) []RowChunk {
	if chunkSize <= 0 {
		chunkSize = DefaultRowChunkSize
	}
	numChunks := (height + chunkSize - 1) / chunkSize
	chunks := make([]RowChunk, 0, numChunks)
	for i := 0; i < numChunks; i++ {
		start := i * chunkSize
		chunks = append(chunks, RowChunk{
			ID:       i,
			StartRow: start,
			EndRow:   min(start+chunkSize, height),
		})
	}
	return chunks
}
