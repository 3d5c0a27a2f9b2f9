// Package mesh implements the per-slot meshing contract of spec §4.E:
// reading a slot's voxels plus its six neighbour slots, emitting
// vertices and indices, and producing a DrawCmd for the global indirect
// buffer. Grounded on the mask-based face emission in
// _examples/Leterax-go-voxels/pkg/voxel/mesh.go, generalized from that
// teacher's BlockType grid to this engine's packed voxel.Word slots and
// its cross-boundary neighbour-slot handling.
package mesh

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/driftforge/voxelcore/voxel"
)

// Direction enumerates the six cardinal face directions, matching the
// teacher's North/South/East/West/Up/Down ordering.
type Direction int

const (
	North Direction = iota // -Z
	South                  // +Z
	East                   // +X
	West                   // -X
	Up                     // +Y
	Down                   // -Y
)

func (d Direction) normal() mgl32.Vec3 {
	switch d {
	case North:
		return mgl32.Vec3{0, 0, -1}
	case South:
		return mgl32.Vec3{0, 0, 1}
	case East:
		return mgl32.Vec3{1, 0, 0}
	case West:
		return mgl32.Vec3{-1, 0, 0}
	case Up:
		return mgl32.Vec3{0, 1, 0}
	default:
		return mgl32.Vec3{0, -1, 0}
	}
}

func (d Direction) delta() (dx, dy, dz int) {
	switch d {
	case North:
		return 0, 0, -1
	case South:
		return 0, 0, 1
	case East:
		return 1, 0, 0
	case West:
		return -1, 0, 0
	case Up:
		return 0, 1, 0
	default:
		return 0, -1, 0
	}
}

// DrawCmd is the indirect draw record spec §4.B lists for the global
// indirect-command buffer: {index_count, instance_count, first_index,
// base_vertex, first_instance}.
type DrawCmd struct {
	IndexCount    uint32
	InstanceCount uint32
	FirstIndex    uint32
	BaseVertex    uint32
	FirstInstance uint32
}

// ToBytes serializes the DrawCmd in the field order above.
func (d DrawCmd) ToBytes() []byte {
	buf := make([]byte, 20)
	putU32(buf[0:4], d.IndexCount)
	putU32(buf[4:8], d.InstanceCount)
	putU32(buf[8:12], d.FirstIndex)
	putU32(buf[12:16], d.BaseVertex)
	putU32(buf[16:20], d.FirstInstance)
	return buf
}

func putU32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

// Vertex is one emitted vertex: position, normal, UV, plus the packed
// light byte (sky/block light combined) and a 2-bit AO value per spec
// §4.E.
type Vertex struct {
	Position mgl32.Vec3
	Normal   mgl32.Vec3
	UV       mgl32.Vec2
	Light    uint8 // high nibble sky light, low nibble block light
	AO       uint8 // 0..3
}

// packLight combines sky and block light into a single byte.
func packLight(sky, block uint8) uint8 {
	return (sky&0xF)<<4 | (block & 0xF)
}

// Neighbours holds the voxel data of the six chunks adjacent to the
// chunk being meshed. A nil entry means that neighbour is not resident;
// per spec §4.E the corresponding boundary faces are conservatively
// emitted as if the neighbour were all air, to avoid cavities during
// streaming.
type Neighbours struct {
	North, South, East, West, Up, Down []voxel.Word
}

func (n Neighbours) slot(d Direction) []voxel.Word {
	switch d {
	case North:
		return n.North
	case South:
		return n.South
	case East:
		return n.East
	case West:
		return n.West
	case Up:
		return n.Up
	default:
		return n.Down
	}
}

// Result is the outcome of meshing one slot.
type Result struct {
	Vertices   []Vertex
	Indices    []uint32
	DrawCmd    DrawCmd
	Overflowed bool
}

// vertexSize is the storage-buffer layout mesh.wgsl's Vertex struct
// uses: position/normal (vec3, 16-byte aligned), uv (vec2, 8-byte
// aligned), light/ao (u32), rounded up to the struct's own 16-byte
// alignment.
const vertexSize = 48

// ToBytes serializes v to mesh.wgsl's Vertex layout.
func (v Vertex) ToBytes() []byte {
	buf := make([]byte, vertexSize)
	putF32(buf[0:4], v.Position.X())
	putF32(buf[4:8], v.Position.Y())
	putF32(buf[8:12], v.Position.Z())
	putF32(buf[16:20], v.Normal.X())
	putF32(buf[20:24], v.Normal.Y())
	putF32(buf[24:28], v.Normal.Z())
	putF32(buf[32:36], v.UV.X())
	putF32(buf[36:40], v.UV.Y())
	putU32(buf[40:44], uint32(v.Light))
	putU32(buf[44:48], uint32(v.AO))
	return buf
}

func putF32(b []byte, f float32) { putU32(b, math.Float32bits(f)) }

// VertexBytes serializes every vertex in r in order.
func (r Result) VertexBytes() []byte {
	buf := make([]byte, 0, len(r.Vertices)*vertexSize)
	for _, v := range r.Vertices {
		buf = append(buf, v.ToBytes()...)
	}
	return buf
}

// IndexBytes serializes r's index list as little-endian u32s.
func (r Result) IndexBytes() []byte {
	buf := make([]byte, len(r.Indices)*4)
	for i, idx := range r.Indices {
		putU32(buf[i*4:i*4+4], idx)
	}
	return buf
}

// Limits bounds the per-slot mesh buffers (spec §4.E backpressure:
// MAX_VERTICES_PER_CHUNK, MAX_INDICES_PER_CHUNK). On overflow the
// result is truncated and Overflowed is set; the frame driver responds
// by forcing LOD demotion for that slot.
type Limits struct {
	MaxVertices int
	MaxIndices  int
}

// DefaultLimits matches the teacher's 32-voxel chunk-side assumption
// baked into PackVertex's 5-bit local coordinates, scaled up for a
// generous per-chunk face budget.
var DefaultLimits = Limits{MaxVertices: 1 << 16, MaxIndices: 1 << 18}

// chunk is a read-only view over one chunk's flat voxel array plus its
// boundary neighbours, used to resolve faces both inside the chunk and
// across its border.
type chunk struct {
	size   int
	voxels []voxel.Word
	neigh  Neighbours
	reg    *voxel.Registry
}

func (c *chunk) at(x, y, z int) voxel.Word {
	if x < 0 || y < 0 || z < 0 || x >= c.size || y >= c.size || z >= c.size {
		return c.neighbourAt(x, y, z)
	}
	return c.voxels[x*c.size*c.size+y*c.size+z]
}

// neighbourAt resolves a coordinate that has stepped outside [0,size)
// in exactly one axis into the corresponding neighbour slot's voxel,
// or air if that neighbour is not resident.
func (c *chunk) neighbourAt(x, y, z int) voxel.Word {
	s := c.size
	var dir Direction
	switch {
	case z < 0:
		dir, z = North, s-1
	case z >= s:
		dir, z = South, 0
	case x >= s:
		dir, x = East, 0
	case x < 0:
		dir, x = West, s-1
	case y >= s:
		dir, y = Up, 0
	case y < 0:
		dir, y = Down, s-1
	default:
		return voxel.Air
	}
	n := c.neigh.slot(dir)
	if n == nil {
		return voxel.Air
	}
	if x < 0 || y < 0 || z < 0 || x >= s || y >= s || z >= s {
		return voxel.Air
	}
	return n[x*s*s+y*s+z]
}

func (c *chunk) props(w voxel.Word) voxel.Properties {
	p, ok := c.reg.Properties(w.BlockID())
	if !ok {
		return voxel.Properties{Transparent: true}
	}
	return p
}

// faceVisible implements spec §4.E's face-culling law: a face between a
// and b is emitted iff a is solid and b is transparent, air, or a
// different fluid level; water faces are skipped against water of the
// same level.
func (c *chunk) faceVisible(a, b voxel.Word) bool {
	pa := c.props(a)
	if !pa.Solid {
		return false
	}
	if b.IsAir() {
		return true
	}
	pb := c.props(b)
	if pb.Fluid && pa.Fluid && a.Metadata() == b.Metadata() {
		return false
	}
	return pb.Transparent || pb.Fluid
}

// ao computes the 0..3 ambient-occlusion value for a face vertex from
// the solidity of its three corner-adjacent voxels, per spec §4.E.
func (c *chunk) ao(side1, side2, corner voxel.Word) uint8 {
	s1 := c.props(side1).Solid
	s2 := c.props(side2).Solid
	if s1 && s2 {
		return 0
	}
	count := 0
	if s1 {
		count++
	}
	if s2 {
		count++
	}
	if c.props(corner).Solid {
		count++
	}
	return uint8(3 - count)
}

// tangents returns the two in-plane axes of a face perpendicular to its
// normal, used to locate the side/corner voxels each vertex's AO is
// sampled from.
func tangents(d Direction) (t1, t2 [3]int) {
	switch d {
	case North, South:
		return [3]int{1, 0, 0}, [3]int{0, 1, 0}
	case East, West:
		return [3]int{0, 0, 1}, [3]int{0, 1, 0}
	default: // Up, Down
		return [3]int{1, 0, 0}, [3]int{0, 0, 1}
	}
}

// vertexSigns gives, for each of the four vertices in faceCorners'
// winding order, the (t1,t2) sign pair identifying which in-plane
// corner that vertex sits at.
func vertexSigns(d Direction) [4][2]int {
	switch d {
	case North:
		return [4][2]int{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}
	case South:
		return [4][2]int{{1, -1}, {-1, -1}, {-1, 1}, {1, 1}}
	case East:
		return [4][2]int{{1, -1}, {-1, -1}, {-1, 1}, {1, 1}}
	case West:
		return [4][2]int{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}
	case Up:
		return [4][2]int{{-1, 1}, {1, 1}, {1, -1}, {-1, -1}}
	default: // Down
		return [4][2]int{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}
	}
}

// vertexAO computes the AO value for vertex i of a face at (x,y,z)
// facing d, sampling the two edge-adjacent cells and the diagonal cell
// one step beyond the face plane along the normal.
func (c *chunk) vertexAO(x, y, z int, d Direction, i int) uint8 {
	ndx, ndy, ndz := d.delta()
	t1, t2 := tangents(d)
	signs := vertexSigns(d)[i]

	px, py, pz := x+ndx, y+ndy, z+ndz
	side1 := c.at(px+t1[0]*signs[0], py+t1[1]*signs[0], pz+t1[2]*signs[0])
	side2 := c.at(px+t2[0]*signs[1], py+t2[1]*signs[1], pz+t2[2]*signs[1])
	corner := c.at(px+t1[0]*signs[0]+t2[0]*signs[1], py+t1[1]*signs[0]+t2[1]*signs[1], pz+t1[2]*signs[0]+t2[2]*signs[1])

	return c.ao(side1, side2, corner)
}

// MeshChunk meshes a single chunkSize^3 slot against its neighbours. It
// implements the non-greedy per-face emission path; greedy merging is
// layered on top in greedy.go when enabled.
func MeshChunk(chunkSize int, voxels []voxel.Word, neigh Neighbours, reg *voxel.Registry, limits Limits) Result {
	c := &chunk{size: chunkSize, voxels: voxels, neigh: neigh, reg: reg}

	var res Result
	overflow := false

	emit := func(x, y, z int, d Direction) {
		if overflow {
			return
		}
		if len(res.Vertices)+4 > limits.MaxVertices || len(res.Indices)+6 > limits.MaxIndices {
			overflow = true
			return
		}
		w := c.at(x, y, z)
		corners := faceCorners(d, x, y, z)
		base := uint32(len(res.Vertices))
		normal := d.normal()
		uvs := [4]mgl32.Vec2{{0, 0}, {1, 0}, {1, 1}, {0, 1}}
		for i, p := range corners {
			res.Vertices = append(res.Vertices, Vertex{
				Position: p,
				Normal:   normal,
				UV:       uvs[i],
				Light:    packLight(w.SkyLight(), w.Light()),
				AO:       c.vertexAO(x, y, z, d, i),
			})
		}
		res.Indices = append(res.Indices, base, base+1, base+2, base, base+2, base+3)
	}

	for x := 0; x < chunkSize; x++ {
		for y := 0; y < chunkSize; y++ {
			for z := 0; z < chunkSize; z++ {
				v := c.at(x, y, z)
				if v.IsAir() {
					continue
				}
				for dir := North; dir <= Down; dir++ {
					dx, dy, dz := dir.delta()
					nb := c.at(x+dx, y+dy, z+dz)
					if c.faceVisible(v, nb) {
						emit(x, y, z, dir)
					}
				}
			}
		}
	}

	res.Overflowed = overflow
	res.DrawCmd = DrawCmd{
		IndexCount:    uint32(len(res.Indices)),
		InstanceCount: 1,
	}
	return res
}

// faceCorners returns the four world-space corners of the unit face at
// (x,y,z) facing d, in counter-clockwise winding order, matching the
// teacher's per-direction corner layout.
func faceCorners(d Direction, x, y, z int) [4]mgl32.Vec3 {
	fx, fy, fz := float32(x), float32(y), float32(z)
	switch d {
	case North:
		return [4]mgl32.Vec3{
			{fx, fy, fz}, {fx + 1, fy, fz}, {fx + 1, fy + 1, fz}, {fx, fy + 1, fz},
		}
	case South:
		return [4]mgl32.Vec3{
			{fx + 1, fy, fz + 1}, {fx, fy, fz + 1}, {fx, fy + 1, fz + 1}, {fx + 1, fy + 1, fz + 1},
		}
	case East:
		return [4]mgl32.Vec3{
			{fx + 1, fy, fz + 1}, {fx + 1, fy, fz}, {fx + 1, fy + 1, fz}, {fx + 1, fy + 1, fz + 1},
		}
	case West:
		return [4]mgl32.Vec3{
			{fx, fy, fz}, {fx, fy, fz + 1}, {fx, fy + 1, fz + 1}, {fx, fy + 1, fz},
		}
	case Up:
		return [4]mgl32.Vec3{
			{fx, fy + 1, fz + 1}, {fx + 1, fy + 1, fz + 1}, {fx + 1, fy + 1, fz}, {fx, fy + 1, fz},
		}
	default: // Down
		return [4]mgl32.Vec3{
			{fx, fy, fz}, {fx + 1, fy, fz}, {fx + 1, fy, fz + 1}, {fx, fy, fz + 1},
		}
	}
}
