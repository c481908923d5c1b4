package renderer

import (
	"github.com/df07/go-stochastic-raytracer/pkg/core"
	"github.com/df07/go-stochastic-raytracer/pkg/geometry"
	"github.com/df07/go-stochastic-raytracer/pkg/integrator"
)

// RowRenderer computes averaged pixel colors for bands of rows using an integrator.
// It holds no mutable state and is shared by all workers.
type RowRenderer struct {
	world           geometry.Shape
	camera          *Camera
	integrator      integrator.Integrator
	width           int
	height          int
	samplesPerPixel int
}

// NewRowRenderer creates a row renderer for an image of width x height pixels
func NewRowRenderer(world geometry.Shape, camera *Camera, integ integrator.Integrator, width, height, samplesPerPixel int) *RowRenderer {
	return &RowRenderer{
		world:           world,
		camera:          camera,
		integrator:      integ,
		width:           width,
		height:          height,
		samplesPerPixel: samplesPerPixel,
	}
}

// RenderRows renders every pixel of the chunk into buf, drawing all randomness from sampler
func (rr *RowRenderer) RenderRows(chunk RowChunk, buf *PixelBuffer, sampler core.Sampler) ChunkStats {
	var stats ChunkStats
	for y := chunk.StartRow; y < chunk.EndRow; y++ {
		row := buf.Row(y)
		for x := 0; x < rr.width; x++ {
			row[x] = rr.SamplePixel(x, y, sampler)
			stats.Pixels++
			stats.Samples += int64(rr.samplesPerPixel)
		}
	}
	return stats
}

// SamplePixel averages samplesPerPixel jittered camera rays through pixel (x, y).
// y counts down from the top row; the viewport coordinate t counts up.
func (rr *RowRenderer) SamplePixel(x, y int, sampler core.Sampler) core.Vec3 {
	if rr.samplesPerPixel <= 0 {
		return core.Vec3{}
	}

	r := rr.height - 1 - y
	uScale := float64(max(1, rr.width-1))
	vScale := float64(max(1, rr.height-1))

	var sum core.Vec3
	for i := 0; i < rr.samplesPerPixel; i++ {
		jitter := sampler.Get2D()
		s := (float64(x) + jitter.X) / uScale
		t := (float64(r) + jitter.Y) / vScale
		ray := rr.camera.GetRay(s, t, sampler)
		sum = sum.Add(rr.integrator.RayColor(ray, rr.world, sampler))
	}
	return sum.Multiply(1.0 / float64(rr.samplesPerPixel))
}
