// Package cull implements frustum and hierarchical-Z occlusion culling
// over chunk AABBs (spec §4.F). Grounded on the teacher's
// voxelrt/rt/core/camera.go (ExtractFrustum, Gribb-Hartmann plane
// extraction) and voxelrt/rt/core/scene.go (AABBInFrustum, IsOccluded),
// generalized from per-object scene state to per-chunk-slot AABBs, plus
// voxelrt/rt/gpu/manager_hiz.go for the Hi-Z mip-reduction pipeline.
package cull

import "github.com/go-gl/mathgl/mgl32"

// Plane is ax+by+cz+d=0 with (a,b,c,d) normalized so (a,b,c) is unit
// length.
type Plane struct {
	Normal mgl32.Vec3
	D      float32
}

// Distance returns the signed distance from p to the plane.
func (p Plane) Distance(point mgl32.Vec3) float32 {
	return p.Normal.Dot(point) + p.D
}

// ExtractFrustum extracts the six frustum planes (left, right, bottom,
// top, near, far) from a combined view-projection matrix via the
// Gribb-Hartmann method.
func ExtractFrustum(vp mgl32.Mat4) [6]Plane {
	row0 := mgl32.Vec4{vp[0], vp[4], vp[8], vp[12]}
	row1 := mgl32.Vec4{vp[1], vp[5], vp[9], vp[13]}
	row2 := mgl32.Vec4{vp[2], vp[6], vp[10], vp[14]}
	row3 := mgl32.Vec4{vp[3], vp[7], vp[11], vp[15]}

	planesV4 := [6]mgl32.Vec4{
		row3.Add(row0), // left
		row3.Sub(row0), // right
		row3.Add(row1), // bottom
		row3.Sub(row1), // top
		row3.Add(row2), // near
		row3.Sub(row2), // far
	}

	var out [6]Plane
	for i, pv := range planesV4 {
		n := mgl32.Vec3{pv[0], pv[1], pv[2]}
		length := n.Len()
		if length == 0 {
			out[i] = Plane{Normal: n, D: pv[3]}
			continue
		}
		out[i] = Plane{Normal: n.Mul(1 / length), D: pv[3] / length}
	}
	return out
}

// AABB is an axis-aligned bounding box in world space.
type AABB struct {
	Min, Max mgl32.Vec3
}

// InFrustum reports whether aabb intersects or is inside all six
// planes, using the symmetric "positive vertex" selection trick: for
// each plane, the corner furthest along the plane's normal is tested,
// and the box is rejected only if that corner is still behind the
// plane (spec §8: "rejects exactly those AABBs whose eight corners are
// all outside a single plane").
func InFrustum(aabb AABB, planes [6]Plane) bool {
	for _, p := range planes {
		px := aabb.Min.X()
		if p.Normal.X() >= 0 {
			px = aabb.Max.X()
		}
		py := aabb.Min.Y()
		if p.Normal.Y() >= 0 {
			py = aabb.Max.Y()
		}
		pz := aabb.Min.Z()
		if p.Normal.Z() >= 0 {
			pz = aabb.Max.Z()
		}
		positive := mgl32.Vec3{px, py, pz}
		if p.Distance(positive) < 0 {
			return false
		}
	}
	return true
}
