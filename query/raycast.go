package query

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/driftforge/voxelcore/voxel"
)

// VoxelLookup returns the voxel word at integer cell (x,y,z) and
// whether that cell's chunk is resident. Non-resident cells are
// treated as empty space rather than a hit, matching the core's
// "queries observe world state as of the end of the previous frame"
// guarantee (spec §5) — a non-resident region simply produces no hit
// rather than blocking.
type VoxelLookup func(x, y, z int32) (w voxel.Word, resident bool)

// chunkIndexOf maps a voxel cell to its chunk-grid coordinate packed
// into a single uint32 for the result's HitChunkIndex, callers that
// need the full 3D coordinate should track the mapping on their side;
// this matches the persisted chunk format's "no header" simplicity by
// keeping the core's result payload minimal.
func chunkIndexOf(x, y, z, chunkSize int32) uint32 {
	cx := floorDiv(x, chunkSize)
	cy := floorDiv(y, chunkSize)
	cz := floorDiv(z, chunkSize)
	// Pack as a spatial hash (XOR of per-axis prime multiples), not a
	// row-major index; callers that need the original
	// coordinate recover it by dividing the queried position.
	return uint32(cx)*73856093 ^ uint32(cy)*19349663 ^ uint32(cz)*83492791
}

func floorDiv(a, b int32) int32 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// Raycast walks q's ray through the voxel grid using the Amanatides-Woo
// DDA algorithm, stopping at the first solid, resident voxel or at
// MaxDistance, whichever comes first.
func Raycast(q Query, lookup VoxelLookup, chunkSize int32, reg *voxel.Registry) Result {
	dir := q.Direction
	if dir.Len() == 0 {
		return NoHit
	}
	dir = dir.Normalize()

	x := int32(floor(q.Origin.X()))
	y := int32(floor(q.Origin.Y()))
	z := int32(floor(q.Origin.Z()))

	stepX, tMaxX, tDeltaX := ddaAxis(q.Origin.X(), dir.X())
	stepY, tMaxY, tDeltaY := ddaAxis(q.Origin.Y(), dir.Y())
	stepZ, tMaxZ, tDeltaZ := ddaAxis(q.Origin.Z(), dir.Z())

	var normal mgl32.Vec3
	t := float32(0)

	for t <= q.MaxDistance {
		w, resident := lookup(x, y, z)
		if resident {
			if props, ok := reg.Properties(w.BlockID()); ok && props.Solid {
				pos := q.Origin.Add(dir.Mul(t))
				return Result{
					HitDistance:   t,
					HitPosition:   pos,
					HitNormal:     normal,
					HitBlockID:    w.BlockID(),
					HitChunkIndex: chunkIndexOf(x, y, z, chunkSize),
				}
			}
		}

		switch {
		case tMaxX < tMaxY && tMaxX < tMaxZ:
			x += stepX
			t = tMaxX
			tMaxX += tDeltaX
			normal = mgl32.Vec3{-float32(stepX), 0, 0}
		case tMaxY < tMaxZ:
			y += stepY
			t = tMaxY
			tMaxY += tDeltaY
			normal = mgl32.Vec3{0, -float32(stepY), 0}
		default:
			z += stepZ
			t = tMaxZ
			tMaxZ += tDeltaZ
			normal = mgl32.Vec3{0, 0, -float32(stepZ)}
		}
	}

	return NoHit
}

func floor(v float32) float32 {
	i := float32(int32(v))
	if v < 0 && i != v {
		return i - 1
	}
	return i
}

// ddaAxis computes one axis's step direction, initial tMax and per-cell
// tDelta for the Amanatides-Woo traversal.
func ddaAxis(origin, d float32) (step int32, tMax, tDelta float32) {
	if d > 0 {
		cellBoundary := floor(origin) + 1
		return 1, (cellBoundary - origin) / d, 1 / d
	}
	if d < 0 {
		cellBoundary := floor(origin)
		return -1, (cellBoundary - origin) / d, -1 / d
	}
	return 0, float32(1e30), float32(1e30)
}
