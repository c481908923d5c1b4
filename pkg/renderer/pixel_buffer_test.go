package renderer

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/df07/go-stochastic-raytracer/pkg/core"
	"golang.org/x/text/language"
)

func TestNewRowChunks(t *testing.T) {
	tests := []struct {
		name      string
		height    int
		chunkSize int
		want      []RowChunk
	}{
		{"exact", 16, 8, []RowChunk{{0, 0, 8}, {1, 8, 16}}},
		{"remainder", 20, 8, []RowChunk{{0, 0, 8}, {1, 8, 16}, {2, 16, 20}}},
		{"single row", 1, 8, []RowChunk{{0, 0, 1}}},
		{"default size", 9, 0, []RowChunk{{0, 0, 8}, {1, 8, 9}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewRowChunks(tt.height, tt.chunkSize)
			if len(got) != len(tt.want) {
				t.Fatalf("Expected %d chunks, got %d: %v", len(tt.want), len(got), got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Chunk %d: expected %+v, got %+v", i, tt.want[i], got[i])
				}
			}
		})
	}
}

func TestPixelBuffer_RowSharesStorage(t *testing.T) {
	buf := NewPixelBuffer(3, 2)
	buf.Row(1)[2] = core.NewVec3(1, 2, 3)

	if buf.At(2, 1) != core.NewVec3(1, 2, 3) {
		t.Errorf("Expected write through Row to be visible at (2,1), got %v", buf.At(2, 1))
	}
	buf.Set(0, 0, core.NewVec3(4, 5, 6))
	if buf.Pixels[0] != core.NewVec3(4, 5, 6) {
		t.Errorf("Expected Set to write the first pixel, got %v", buf.Pixels[0])
	}
}

func TestPixelBuffer_MeanLuminance(t *testing.T) {
	tests := []struct {
		name     string
		width    int
		height   int
		pixels   []core.Vec3
		expected float64
	}{
		{"empty", 0, 0, nil, 0},
		{"black", 2, 1, []core.Vec3{{}, {}}, 0},
		{"white", 1, 1, []core.Vec3{core.NewVec3(1, 1, 1)}, 1},
		{"primaries", 3, 1, []core.Vec3{
			core.NewVec3(1, 0, 0), core.NewVec3(0, 1, 0), core.NewVec3(0, 0, 1),
		}, 1.0 / 3},
		{"green weighs most", 2, 1, []core.Vec3{core.NewVec3(0, 1, 0), {}}, 0.587 / 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := NewPixelBuffer(tt.width, tt.height)
			copy(buf.Pixels, tt.pixels)
			if got := buf.MeanLuminance(); math.Abs(got-tt.expected) > 1e-12 {
				t.Errorf("MeanLuminance() = %f, want %f", got, tt.expected)
			}
		})
	}
}

func TestRenderStats_Summary(t *testing.T) {
	stats := RenderStats{
		TotalPixels:  1200,
		TotalSamples: 120000,
		Chunks:       3,
		Workers:      4,
		Elapsed:      2 * time.Second,
	}

	if got := stats.SamplesPerSecond(); got != 60000 {
		t.Errorf("Expected 60000 samples/s, got %f", got)
	}

	summary := stats.Summary(language.English)
	for _, want := range []string{"1,200 pixels", "120,000 samples", "4 workers"} {
		if !strings.Contains(summary, want) {
			t.Errorf("Summary %q missing %q", summary, want)
		}
	}

	if (RenderStats{}).SamplesPerSecond() != 0 {
		t.Error("Expected zero throughput with no elapsed time")
	}
}
