package cull

import (
	"encoding/binary"
	"math"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/driftforge/voxelcore/corerr"
	"github.com/driftforge/voxelcore/gpu"
)

// GPUPass drives the device-side frustum+occlusion cull pass
// (frustum_cull.wgsl's cull_slots kernel) the way spec §4.F describes
// it: a compute pass that tests each slot's AABB against the frustum
// and the Hi-Z pyramid and zeroes the matching indirect draw command's
// instance_count in place. Unlike the host-side Cull/Readback path
// below (kept for host-only unit tests), this never waits on a host
// readback -- the rejection decision is written into draw_cmds on
// device and consumed directly by the subsequent indirect draw, which
// is the only way spec §5's "all other host operations are
// non-blocking" rule can hold for a per-frame cull pass.
type GPUPass struct {
	device   *wgpu.Device
	pipeline *wgpu.ComputePipeline

	frustumBuf  *wgpu.Buffer
	viewProjBuf *wgpu.Buffer
	statsBuf    *wgpu.Buffer
	aabbBuf     *wgpu.Buffer
}

const (
	planeSize     = 16 // vec3<f32> normal + f32 d; naturally 16-byte aligned
	frustumSize   = planeSize * 6
	aabbEntrySize = 32 // vec3 min (padded to 16) + vec3 max (padded to 16)
	viewProjSize  = 64
	statsSize     = 12
)

// createUniformBuffer allocates a fixed-size buffer usable as a uniform
// binding and as a queue.WriteBuffer destination.
func createUniformBuffer(device *wgpu.Device, label string, size uint64) (*wgpu.Buffer, error) {
	return device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
}

// NewGPUPass creates the cull_slots compute pipeline from shaderSource
// and its fixed-size uniform/stats buffers. The per-slot AABB buffer is
// allocated lazily by Upload since its size tracks the resident
// set.
func NewGPUPass(device *wgpu.Device, shaderSource string) (*GPUPass, error) {
	module, err := device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "FrustumCullShader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaderSource},
	})
	if err != nil {
		return nil, corerr.WrapMapping(err, "cull: failed to create shader module")
	}
	defer module.Release()

	pipeline, err := device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:   "FrustumCullPipeline",
		Compute: wgpu.ProgrammableStageDescriptor{Module: module, EntryPoint: "cull_slots"},
	})
	if err != nil {
		return nil, corerr.WrapMapping(err, "cull: failed to create compute pipeline")
	}

	frustumBuf, err := createUniformBuffer(device, "CullFrustum", frustumSize)
	if err != nil {
		return nil, corerr.WrapMapping(err, "cull: failed to create frustum buffer")
	}
	viewProjBuf, err := createUniformBuffer(device, "CullViewProj", viewProjSize)
	if err != nil {
		return nil, corerr.WrapMapping(err, "cull: failed to create view-proj buffer")
	}
	statsBuf, err := gpu.CreateStorageBuffer(device, "CullStats", statsSize, 0)
	if err != nil {
		return nil, corerr.WrapMapping(err, "cull: failed to create stats buffer")
	}

	return &GPUPass{
		device:      device,
		pipeline:    pipeline,
		frustumBuf:  frustumBuf,
		viewProjBuf: viewProjBuf,
		statsBuf:    statsBuf,
	}, nil
}

func planeBytes(planes [6]Plane) []byte {
	buf := make([]byte, frustumSize)
	for i, p := range planes {
		off := i * planeSize
		binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(p.Normal.X()))
		binary.LittleEndian.PutUint32(buf[off+4:], math.Float32bits(p.Normal.Y()))
		binary.LittleEndian.PutUint32(buf[off+8:], math.Float32bits(p.Normal.Z()))
		binary.LittleEndian.PutUint32(buf[off+12:], math.Float32bits(p.D))
	}
	return buf
}

func viewProjBytes(vp mgl32.Mat4) []byte {
	buf := make([]byte, viewProjSize)
	for i, f := range vp {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func aabbBytes(slots []Slot) []byte {
	buf := make([]byte, len(slots)*aabbEntrySize)
	for i, s := range slots {
		off := i * aabbEntrySize
		binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(s.AABB.Min.X()))
		binary.LittleEndian.PutUint32(buf[off+4:], math.Float32bits(s.AABB.Min.Y()))
		binary.LittleEndian.PutUint32(buf[off+8:], math.Float32bits(s.AABB.Min.Z()))
		binary.LittleEndian.PutUint32(buf[off+16:], math.Float32bits(s.AABB.Max.X()))
		binary.LittleEndian.PutUint32(buf[off+20:], math.Float32bits(s.AABB.Max.Y()))
		binary.LittleEndian.PutUint32(buf[off+24:], math.Float32bits(s.AABB.Max.Z()))
	}
	return buf
}

// Upload writes this frame's view-projection matrix, its derived
// frustum planes, and the resident slots' AABBs (indexed to match their
// position in the shared indirect-command buffer) to the device,
// growing the AABB buffer geometrically as the resident set changes
// size.
func (gp *GPUPass) Upload(viewProj mgl32.Mat4, slots []Slot) {
	queue := gp.device.GetQueue()
	queue.WriteBuffer(gp.frustumBuf, 0, planeBytes(ExtractFrustum(viewProj)))
	queue.WriteBuffer(gp.viewProjBuf, 0, viewProjBytes(viewProj))
	gpu.EnsureBuffer(gp.device, "CullSlotAABBs", &gp.aabbBuf, aabbBytes(slots), wgpu.BufferUsageStorage, aabbEntrySize)
}

// Dispatch records cull_slots over slotCount invocations, testing each
// slot index in [0,slotCount) against drawCmds[index] and zeroing its
// instance_count on rejection. hiz is the occlusion pyramid's coarsest
// covering mip view (Pyramid.OcclusionView).
func (gp *GPUPass) Dispatch(encoder *wgpu.CommandEncoder, drawCmds *wgpu.Buffer, hiz *wgpu.TextureView, slotCount int) error {
	if slotCount == 0 {
		return nil
	}
	bindGroup, err := gp.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "FrustumCullBindGroup",
		Layout: gp.pipeline.GetBindGroupLayout(0),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: gp.frustumBuf, Size: wgpu.WholeSize},
			{Binding: 1, Buffer: gp.aabbBuf, Size: wgpu.WholeSize},
			{Binding: 2, Buffer: drawCmds, Size: wgpu.WholeSize},
			{Binding: 3, TextureView: hiz},
			{Binding: 4, Buffer: gp.viewProjBuf, Size: wgpu.WholeSize},
			{Binding: 5, Buffer: gp.statsBuf, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		return corerr.WrapMapping(err, "cull: failed to create bind group")
	}

	pass := encoder.BeginComputePass(nil)
	pass.SetPipeline(gp.pipeline)
	pass.SetBindGroup(0, bindGroup, nil)
	groups := uint32((slotCount + 63) / 64)
	pass.DispatchWorkgroups(groups, 1, 1)
	pass.End()
	return nil
}
