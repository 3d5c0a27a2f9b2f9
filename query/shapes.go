package query

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/driftforge/voxelcore/cull"
)

// ChunkBox pairs a resident slot's index with its world-space AABB, the
// shape the Sphere/Box/Overlap query types are tested against — the
// same per-slot bounds component D maintains for culling and
// acceleration-structure building.
type ChunkBox struct {
	Index uint32
	AABB  cull.AABB
}

// sphereOverlapsAABB reports whether a sphere intersects box, via the
// standard closest-point-on-box distance check.
func sphereOverlapsAABB(center mgl32.Vec3, radius float32, box cull.AABB) bool {
	closest := mgl32.Vec3{
		clampf(center.X(), box.Min.X(), box.Max.X()),
		clampf(center.Y(), box.Min.Y(), box.Max.Y()),
		clampf(center.Z(), box.Min.Z(), box.Max.Z()),
	}
	d := center.Sub(closest)
	return d.LenSqr() <= radius*radius
}

// boxOverlapsAABB reports whether two axis-aligned boxes intersect.
func boxOverlapsAABB(min, max mgl32.Vec3, box cull.AABB) bool {
	return min.X() <= box.Max.X() && max.X() >= box.Min.X() &&
		min.Y() <= box.Max.Y() && max.Y() >= box.Min.Y() &&
		min.Z() <= box.Max.Z() && max.Z() >= box.Min.Z()
}

func clampf(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// QuerySphere tests q (a Sphere query) against every chunk box and
// returns the nearest-overlapping chunk's result, or NoHit.
func QuerySphere(q Query, boxes []ChunkBox) Result {
	best := NoHit
	bestDist := float32(1e30)
	for _, cb := range boxes {
		if !sphereOverlapsAABB(q.Origin, q.Radius, cb.AABB) {
			continue
		}
		center := cb.AABB.Min.Add(cb.AABB.Max).Mul(0.5)
		d := center.Sub(q.Origin).Len()
		if d < bestDist {
			bestDist = d
			best = Result{HitDistance: d, HitPosition: center, HitChunkIndex: cb.Index}
		}
	}
	return best
}

// QueryBox tests q (a Box query) against every chunk box and returns
// the nearest-overlapping chunk's result, or NoHit.
func QueryBox(q Query, boxes []ChunkBox) Result {
	min := q.Origin.Sub(q.HalfExtents)
	max := q.Origin.Add(q.HalfExtents)
	best := NoHit
	bestDist := float32(1e30)
	for _, cb := range boxes {
		if !boxOverlapsAABB(min, max, cb.AABB) {
			continue
		}
		center := cb.AABB.Min.Add(cb.AABB.Max).Mul(0.5)
		d := center.Sub(q.Origin).Len()
		if d < bestDist {
			bestDist = d
			best = Result{HitDistance: d, HitPosition: center, HitChunkIndex: cb.Index}
		}
	}
	return best
}

// QueryOverlap returns every chunk box overlapping q's half-extents
// box, unlike Sphere/Box it is not restricted to the single nearest
// result — callers that need the full set should call this directly
// rather than through Dispatch, which reports only the first match.
func QueryOverlap(q Query, boxes []ChunkBox) []ChunkBox {
	min := q.Origin.Sub(q.HalfExtents)
	max := q.Origin.Add(q.HalfExtents)
	var out []ChunkBox
	for _, cb := range boxes {
		if boxOverlapsAABB(min, max, cb.AABB) {
			out = append(out, cb)
		}
	}
	return out
}
