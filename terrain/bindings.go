package terrain

import (
	"encoding/binary"
	"math"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/driftforge/voxelcore/corerr"
	"github.com/driftforge/voxelcore/gpu"
)

// ParamBuffers holds the device-side SoA columns and scalar uniform
// terrain.wgsl's SoAParams binds against (@group(0), bindings 0-4).
// Kept on Generator so repeated dispatches reuse (and geometrically
// grow) the same buffers instead of reallocating every batch.
type ParamBuffers struct {
	BlockIDs   *wgpu.Buffer
	MinHeights *wgpu.Buffer
	MaxHeights *wgpu.Buffer
	Weights    *wgpu.Buffer
	Uniform    *wgpu.Buffer
}

// perColumnBytes splits p into the four SoA column buffers plus the
// 20-byte scalar uniform trailer terrain.wgsl's SoAParams struct
// expects (seed_lo, seed_hi, distribution_count, weather,
// temperature_celsius). This is a separate encoding from ToSoABytes,
// which concatenates everything into one buffer for a host-side test
// fixture; the device-side kernel binds each column as its own storage
// buffer instead.
func (p *Params) perColumnBytes() (blockIDs, minHeights, maxHeights, weights, uniform []byte) {
	dists := p.effectiveDistributions()
	k := len(dists)

	blockIDs = make([]byte, k*4)
	minHeights = make([]byte, k*4)
	maxHeights = make([]byte, k*4)
	weights = make([]byte, k*4)
	for i, d := range dists {
		binary.LittleEndian.PutUint32(blockIDs[i*4:], d.BlockID)
		binary.LittleEndian.PutUint32(minHeights[i*4:], math.Float32bits(d.MinHeight))
		binary.LittleEndian.PutUint32(maxHeights[i*4:], math.Float32bits(d.MaxHeight))
		binary.LittleEndian.PutUint32(weights[i*4:], math.Float32bits(d.Weight))
	}

	uniform = make([]byte, 20)
	binary.LittleEndian.PutUint32(uniform[0:4], uint32(p.Seed))
	binary.LittleEndian.PutUint32(uniform[4:8], uint32(p.Seed>>32))
	binary.LittleEndian.PutUint32(uniform[8:12], uint32(k))
	binary.LittleEndian.PutUint32(uniform[12:16], uint32(p.Weather))
	binary.LittleEndian.PutUint32(uniform[16:20], math.Float32bits(p.TemperatureCelsius))
	return blockIDs, minHeights, maxHeights, weights, uniform
}

// minColumnHeadroom keeps EnsureBuffer from ever being asked for a
// zero-size allocation when a parameter table is momentarily empty.
const minColumnHeadroom = 4

// UpdateParams implements spec §4.C's update_params(params) operation:
// it (re)writes the four device-side SoA columns and the scalar
// uniform from p, growing each buffer geometrically via gpu.EnsureBuffer
// as the distribution table's size changes between dispatches.
func (g *Generator) UpdateParams(p *Params) {
	blockIDs, minHeights, maxHeights, weights, uniform := p.perColumnBytes()
	gpu.EnsureBuffer(g.device, "TerrainBlockIDs", &g.params.BlockIDs, blockIDs, wgpu.BufferUsageStorage, minColumnHeadroom)
	gpu.EnsureBuffer(g.device, "TerrainMinHeights", &g.params.MinHeights, minHeights, wgpu.BufferUsageStorage, minColumnHeadroom)
	gpu.EnsureBuffer(g.device, "TerrainMaxHeights", &g.params.MaxHeights, maxHeights, wgpu.BufferUsageStorage, minColumnHeadroom)
	gpu.EnsureBuffer(g.device, "TerrainWeights", &g.params.Weights, weights, wgpu.BufferUsageStorage, minColumnHeadroom)
	gpu.EnsureBuffer(g.device, "TerrainParamsUniform", &g.params.Uniform, uniform, wgpu.BufferUsageUniform, 0)
}

// targetSlotsBytes little-endian-encodes the batch of slot indices the
// kernel will fill this dispatch, matching terrain.wgsl's
// target_slots: array<u32>.
func targetSlotsBytes(slots []uint32) []byte {
	buf := make([]byte, len(slots)*4)
	for i, s := range slots {
		binary.LittleEndian.PutUint32(buf[i*4:], s)
	}
	return buf
}

// UpdateTargetSlots uploads the batch of slots this dispatch targets,
// growing the device buffer via gpu.EnsureBuffer as the batch size
// varies frame to frame (spec §4.C: "the host writes a metadata array
// ... the slot index").
func (g *Generator) UpdateTargetSlots(slots []uint32) {
	gpu.EnsureBuffer(g.device, "TerrainTargetSlots", &g.targetSlots, targetSlotsBytes(slots), wgpu.BufferUsageStorage, minColumnHeadroom)
}

// bindGroups builds the two bind groups terrain.wgsl declares: group 0
// binds the SoA param columns and uniform trailer (bindings 0-4), group
// 1 binds the target-slot list and the world buffer's voxel_words
// storage buffer (bindings 0-1). Grounded on the teacher's
// voxelrt/rt/gpu/manager.go CreateBindGroup call shape.
func (g *Generator) bindGroups(voxelWords *wgpu.Buffer) ([]*wgpu.BindGroup, error) {
	group0, err := g.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "TerrainParamsBindGroup",
		Layout: g.pipeline.GetBindGroupLayout(0),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: g.params.BlockIDs, Size: wgpu.WholeSize},
			{Binding: 1, Buffer: g.params.MinHeights, Size: wgpu.WholeSize},
			{Binding: 2, Buffer: g.params.MaxHeights, Size: wgpu.WholeSize},
			{Binding: 3, Buffer: g.params.Weights, Size: wgpu.WholeSize},
			{Binding: 4, Buffer: g.params.Uniform, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		return nil, corerr.WrapMapping(err, "terrain: failed to create params bind group")
	}

	group1, err := g.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "TerrainTargetBindGroup",
		Layout: g.pipeline.GetBindGroupLayout(1),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: g.targetSlots, Size: wgpu.WholeSize},
			{Binding: 1, Buffer: voxelWords, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		return nil, corerr.WrapMapping(err, "terrain: failed to create target-slot bind group")
	}
	return []*wgpu.BindGroup{group0, group1}, nil
}

// GenerateBatch implements spec §4.C end-to-end for one dispatch:
// update_params, the target-slot upload, bind-group construction
// against voxelWords (the world buffer's device-resident voxel slab),
// and the compute pass itself. The caller submits the encoder.
func (g *Generator) GenerateBatch(encoder *wgpu.CommandEncoder, params *Params, slots []uint32, chunkSize uint32, voxelWords *wgpu.Buffer) error {
	g.UpdateParams(params)
	g.UpdateTargetSlots(slots)
	bindGroups, err := g.bindGroups(voxelWords)
	if err != nil {
		return err
	}
	g.Dispatch(encoder, slots, chunkSize, bindGroups)
	return nil
}
