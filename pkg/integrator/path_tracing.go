package integrator

import (
	"math"

	"github.com/df07/go-stochastic-raytracer/pkg/core"
	"github.com/df07/go-stochastic-raytracer/pkg/geometry"
)

// PathTracingIntegrator implements unidirectional path tracing with a hard bounce cap
type PathTracingIntegrator struct {
	maxDepth   int
	background Background
}

// NewPathTracingIntegrator creates a new path tracing integrator
func NewPathTracingIntegrator(maxDepth int, background Background) *PathTracingIntegrator {
	return &PathTracingIntegrator{
		maxDepth:   maxDepth,
		background: background,
	}
}

// MaxDepth returns the bounce budget
func (pt *PathTracingIntegrator) MaxDepth() int {
	return pt.maxDepth
}

// RayColor computes the color for a single ray using the configured bounce budget
func (pt *PathTracingIntegrator) RayColor(ray core.Ray, world geometry.Shape, sampler core.Sampler) core.Vec3 {
	return pt.RayColorDepth(ray, world, sampler, pt.maxDepth)
}

// RayColorDepth computes the color for a ray with an explicit bounce budget.
// The bounce recursion is unrolled into a loop carrying the product of
// attenuations, so stack use does not grow with depth.
func (pt *PathTracingIntegrator) RayColorDepth(ray core.Ray, world geometry.Shape, sampler core.Sampler, depth int) core.Vec3 {
	throughput := core.NewVec3(1, 1, 1)

	for ; depth > 0; depth-- {
		// A zero-length direction has no defined hit or background; absorb it
		if ray.Direction.NearZero() {
			return core.Vec3{}
		}

		hit, isHit := world.Hit(ray, MinHitDistance, math.Inf(1))
		if !isHit {
			return throughput.MultiplyVec(pt.background.Color(ray))
		}

		scatter, didScatter := hit.Material.Scatter(ray, *hit, sampler)
		if !didScatter {
			return core.Vec3{}
		}

		throughput = throughput.MultiplyVec(scatter.Attenuation)
		ray = scatter.Scattered
	}

	// Bounce budget exhausted: no more light is gathered
	return core.Vec3{}
}
