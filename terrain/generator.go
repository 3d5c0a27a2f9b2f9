package terrain

import (
	"strings"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/driftforge/voxelcore/corerr"
)

// scalarTile and vectorizedTile are the kernel tiling products named in
// spec §4.C: "8x4x4 in scalar mode, 16x2x2 in vectorized mode".
var (
	scalarTile     = [3]uint32{8, 4, 4}
	vectorizedTile = [3]uint32{16, 2, 2}
)

// Generator dispatches the terrain compute kernel over a batch of
// newly-allocated slots.
type Generator struct {
	device     *wgpu.Device
	pipeline   *wgpu.ComputePipeline
	vectorized bool

	params      ParamBuffers
	targetSlots *wgpu.Buffer
}

// ValidateShaderEntryPoint checks that entry is defined as a @compute
// function in source, surfacing a corerr.Protocol error instead of the
// panic a missing pipeline entry point would otherwise cause at
// pipeline-creation time. Grounded on original_source/terrain_gpu.rs's
// validate_shader_entry_point (string-scan for "fn <entry>(" preceded,
// modulo blank/comment lines, by an "@compute" annotation).
func ValidateShaderEntryPoint(source, entry string) error {
	fnPattern := "fn " + entry + "("
	lines := strings.Split(source, "\n")

	foundFn := -1
	for i, line := range lines {
		if strings.Contains(line, fnPattern) {
			foundFn = i
			break
		}
	}
	if foundFn == -1 {
		return corerr.Protocolf("terrain: entry point %q not found in shader source", entry)
	}

	hasCompute := false
	for j := foundFn - 1; j >= 0; j-- {
		prev := strings.TrimSpace(lines[j])
		if prev == "" || strings.HasPrefix(prev, "//") {
			continue
		}
		if strings.Contains(prev, "@compute") {
			hasCompute = true
		}
		break
	}
	if !hasCompute {
		return corerr.Protocolf("terrain: entry point %q is missing an @compute annotation", entry)
	}
	return nil
}

// NewGenerator creates the terrain compute pipeline from shaderSource,
// validating its entry point first.
func NewGenerator(device *wgpu.Device, shaderSource string, vectorized bool) (*Generator, error) {
	entry := "generate_terrain"
	if err := ValidateShaderEntryPoint(shaderSource, entry); err != nil {
		return nil, err
	}

	module, err := device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "TerrainGenerateShader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaderSource},
	})
	if err != nil {
		return nil, corerr.WrapMapping(err, "terrain: failed to create shader module")
	}
	defer module.Release()

	pipeline, err := device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:   "TerrainGeneratePipeline",
		Compute: wgpu.ProgrammableStageDescriptor{Module: module, EntryPoint: entry},
	})
	if err != nil {
		return nil, corerr.WrapMapping(err, "terrain: failed to create compute pipeline")
	}

	return &Generator{device: device, pipeline: pipeline, vectorized: vectorized}, nil
}

// tile returns the active kernel tiling.
func (g *Generator) tile() [3]uint32 {
	if g.vectorized {
		return vectorizedTile
	}
	return scalarTile
}

// WorkgroupsX computes the total X-dimension workgroup count for a
// dispatch over numSlots chunks of side chunkSize, per spec §4.C's
// dispatch algebra: ceil(S/wgx) * |slots|.
func (g *Generator) WorkgroupsX(chunkSize uint32, numSlots int) uint32 {
	wgx := g.tile()[0]
	perSlot := (chunkSize + wgx - 1) / wgx
	return perSlot * uint32(numSlots)
}

// Dispatch records one compute pass that fills each slot in slots from
// params. Callers must have already uploaded params via UpdateParams
// and the target-slot list via UpdateTargetSlots, which the kernel
// uses to locate its output region. Only slot indices are uploaded;
// the kernel receives no chunk coordinate.
func (g *Generator) Dispatch(encoder *wgpu.CommandEncoder, slots []uint32, chunkSize uint32, bindGroups []*wgpu.BindGroup) {
	pass := encoder.BeginComputePass(nil)
	pass.SetPipeline(g.pipeline)
	for i, bg := range bindGroups {
		pass.SetBindGroup(uint32(i), bg, nil)
	}
	t := g.tile()
	pass.DispatchWorkgroups(g.WorkgroupsX(chunkSize, len(slots)), (chunkSize+t[1]-1)/t[1], (chunkSize+t[2]-1)/t[2])
	pass.End()
}
