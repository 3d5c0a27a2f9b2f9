package cull

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Buffer is a CPU-visible hierarchical-Z mip level: a min/max-reduced
// depth texture read back once per frame for the occlusion test.
type Buffer struct {
	Data          []float32
	Width, Height int
}

// IsOccluded projects aabb's eight corners through viewProj, and
// rejects (reports occluded) only when every corner is safely in front
// of the camera and the box's nearest depth is still farther than the
// pyramid's stored max depth across its screen-space footprint — i.e.
// something nearer is known to already cover it. Any corner crossing
// the near plane (clip.W() <= 0) is treated conservatively as visible,
// matching voxelrt/rt/core/scene.go's IsOccluded.
func IsOccluded(aabb AABB, hz Buffer, viewProj mgl32.Mat4) bool {
	if len(hz.Data) == 0 || hz.Width == 0 || hz.Height == 0 {
		return false
	}

	corners := [8]mgl32.Vec3{
		{aabb.Min.X(), aabb.Min.Y(), aabb.Min.Z()},
		{aabb.Max.X(), aabb.Min.Y(), aabb.Min.Z()},
		{aabb.Min.X(), aabb.Max.Y(), aabb.Min.Z()},
		{aabb.Max.X(), aabb.Max.Y(), aabb.Min.Z()},
		{aabb.Min.X(), aabb.Min.Y(), aabb.Max.Z()},
		{aabb.Max.X(), aabb.Min.Y(), aabb.Max.Z()},
		{aabb.Min.X(), aabb.Max.Y(), aabb.Max.Z()},
		{aabb.Max.X(), aabb.Max.Y(), aabb.Max.Z()},
	}

	minU, minV := float32(math.Inf(1)), float32(math.Inf(1))
	maxU, maxV := float32(math.Inf(-1)), float32(math.Inf(-1))
	minZ := float32(math.Inf(1))

	for _, c := range corners {
		clip := viewProj.Mul4x1(mgl32.Vec4{c.X(), c.Y(), c.Z(), 1})
		if clip.W() <= 0 {
			return false // near-plane intersection: conservatively visible
		}
		ndcX := clip.X() / clip.W()
		ndcY := clip.Y() / clip.W()
		ndcZ := clip.Z() / clip.W()

		u := (ndcX*0.5 + 0.5)
		v := (1 - (ndcY*0.5 + 0.5))
		if u < minU {
			minU = u
		}
		if u > maxU {
			maxU = u
		}
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
		if ndcZ < minZ {
			minZ = ndcZ
		}
	}

	x0 := clampi(int(minU*float32(hz.Width)), 0, hz.Width-1)
	x1 := clampi(int(maxU*float32(hz.Width)), 0, hz.Width-1)
	y0 := clampi(int(minV*float32(hz.Height)), 0, hz.Height-1)
	y1 := clampi(int(maxV*float32(hz.Height)), 0, hz.Height-1)

	maxOccluderDepth := float32(math.Inf(-1))
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			d := hz.Data[y*hz.Width+x]
			if d > maxOccluderDepth {
				maxOccluderDepth = d
			}
		}
	}

	return minZ > maxOccluderDepth
}

func clampi(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
