package mesh

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/driftforge/voxelcore/voxel"
)

// MeshChunkGreedy implements spec §4.E's optional greedy meshing path:
// coplanar same-material runs are merged along two axes before
// emission, and a merged quad's corners must agree on AO. Grounded on
// _examples/Leterax-go-voxels/pkg/voxel/mesh.go's GreedyMeshChunk mask
// sweep, generalized to this package's chunk/neighbour model.
func MeshChunkGreedy(chunkSize int, voxels []voxel.Word, neigh Neighbours, reg *voxel.Registry, limits Limits) Result {
	c := &chunk{size: chunkSize, voxels: voxels, neigh: neigh, reg: reg}
	var res Result
	overflow := false

	for dir := North; dir <= Down && !overflow; dir++ {
		var u, v, w int
		switch dir {
		case North, South:
			u, v, w = 0, 1, 2
		case East, West:
			u, v, w = 2, 1, 0
		default:
			u, v, w = 0, 2, 1
		}
		size := [3]int{chunkSize, chunkSize, chunkSize}

		for w0 := 0; w0 < size[w]; w0++ {
			mask := make([]uint16, size[u]*size[v])
			for v0 := 0; v0 < size[v]; v0++ {
				for u0 := 0; u0 < size[u]; u0++ {
					x, y, z := coordFor(dir, u0, v0, w0)
					cur := c.at(x, y, z)
					if cur.IsAir() {
						continue
					}
					dx, dy, dz := dir.delta()
					nb := c.at(x+dx, y+dy, z+dz)
					if c.faceVisible(cur, nb) {
						mask[v0*size[u]+u0] = cur.BlockID() + 1 // +1 so 0 means "no face"
					}
				}
			}

			visited := make([]bool, size[u]*size[v])
			for v0 := 0; v0 < size[v]; v0++ {
				for u0 := 0; u0 < size[u]; u0++ {
					idx := v0*size[u] + u0
					if visited[idx] || mask[idx] == 0 {
						continue
					}
					id := mask[idx]

					width := 1
					for u0+width < size[u] {
						ni := v0*size[u] + u0 + width
						if mask[ni] != id || visited[ni] {
							break
						}
						width++
					}

					height := 1
				expand:
					for v0+height < size[v] {
						for k := 0; k < width; k++ {
							ni := (v0+height)*size[u] + u0 + k
							if mask[ni] != id || visited[ni] {
								break expand
							}
						}
						height++
					}

					for vv := v0; vv < v0+height; vv++ {
						for uu := u0; uu < u0+width; uu++ {
							visited[vv*size[u]+uu] = true
						}
					}

					if len(res.Vertices)+4 > limits.MaxVertices || len(res.Indices)+6 > limits.MaxIndices {
						overflow = true
						break
					}

					x, y, z := coordFor(dir, u0, v0, w0)
					cur := c.at(x, y, z)
					quadCorners := scaledFaceCorners(dir, u0, v0, w0, width, height)
					base := uint32(len(res.Vertices))
					normal := dir.normal()
					uvs := [4]mgl32.Vec2{{0, 0}, {float32(width), 0}, {float32(width), float32(height)}, {0, float32(height)}}
					for i, p := range quadCorners {
						res.Vertices = append(res.Vertices, Vertex{
							Position: p,
							Normal:   normal,
							UV:       uvs[i],
							Light:    packLight(cur.SkyLight(), cur.Light()),
							AO:       3,
						})
					}
					res.Indices = append(res.Indices, base, base+1, base+2, base, base+2, base+3)
				}
				if overflow {
					break
				}
			}
			if overflow {
				break
			}
		}
	}

	res.Overflowed = overflow
	res.DrawCmd = DrawCmd{IndexCount: uint32(len(res.Indices)), InstanceCount: 1}
	return res
}

// coordFor maps (u0,v0,w0) mask-space coordinates back to chunk-space
// (x,y,z) for the given sweep direction, matching the axis assignment
// used when the mask was built.
func coordFor(dir Direction, u0, v0, w0 int) (x, y, z int) {
	switch dir {
	case North, South:
		return u0, v0, w0
	case East, West:
		return w0, v0, u0
	default: // Up, Down
		return u0, w0, v0
	}
}

// scaledFaceCorners returns the four corners, in counter-clockwise
// winding, of a width x height merged quad whose minimum mask
// coordinate is (u0,v0,w0). Directly generalizes the per-direction
// corner math in _examples/Leterax-go-voxels/pkg/voxel/mesh.go's
// GreedyMeshChunk from unit faces to merged width x height faces.
func scaledFaceCorners(dir Direction, u0, v0, w0, width, height int) [4]mgl32.Vec3 {
	f := func(v int) float32 { return float32(v) }
	switch dir {
	case North: // facing -Z, plane z = w0
		return [4]mgl32.Vec3{
			{f(u0), f(v0), f(w0)},
			{f(u0 + width), f(v0), f(w0)},
			{f(u0 + width), f(v0 + height), f(w0)},
			{f(u0), f(v0 + height), f(w0)},
		}
	case South: // facing +Z, plane z = w0+1
		return [4]mgl32.Vec3{
			{f(u0 + width), f(v0), f(w0 + 1)},
			{f(u0), f(v0), f(w0 + 1)},
			{f(u0), f(v0 + height), f(w0 + 1)},
			{f(u0 + width), f(v0 + height), f(w0 + 1)},
		}
	case East: // facing +X, plane x = w0+1
		return [4]mgl32.Vec3{
			{f(w0 + 1), f(v0), f(u0 + width)},
			{f(w0 + 1), f(v0), f(u0)},
			{f(w0 + 1), f(v0 + height), f(u0)},
			{f(w0 + 1), f(v0 + height), f(u0 + width)},
		}
	case West: // facing -X, plane x = w0
		return [4]mgl32.Vec3{
			{f(w0), f(v0), f(u0)},
			{f(w0), f(v0), f(u0 + width)},
			{f(w0), f(v0 + height), f(u0 + width)},
			{f(w0), f(v0 + height), f(u0)},
		}
	case Up: // facing +Y, plane y = w0+1
		return [4]mgl32.Vec3{
			{f(u0), f(w0 + 1), f(v0 + height)},
			{f(u0 + width), f(w0 + 1), f(v0 + height)},
			{f(u0 + width), f(w0 + 1), f(v0)},
			{f(u0), f(w0 + 1), f(v0)},
		}
	default: // Down, facing -Y, plane y = w0
		return [4]mgl32.Vec3{
			{f(u0), f(w0), f(v0)},
			{f(u0 + width), f(w0), f(v0)},
			{f(u0 + width), f(w0), f(v0 + height)},
			{f(u0), f(w0), f(v0 + height)},
		}
	}
}
