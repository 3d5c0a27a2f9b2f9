// Command voxelcored brings up a WebGPU device and drives the world
// core's frame loop against it end to end: PlanFrame resolves the
// target chunk set (B), the terrain generator fills newly-allocated
// slots from a real uploaded parameter table (C), the mesh pass reads
// back dirty slots and their neighbours and rebuilds their vertex,
// index, and indirect-draw records (E), acceleration structures rebuild
// from the resident set on cadence (D), and the GPU-driven frustum/Hi-Z
// cull pass zeroes rejected slots' indirect draw commands in place (F),
// with LOD classification and the material atlas kept current
// alongside it. Grounded on voxelrt/rt_main.go's glfw.Init/CreateWindow
// bring-up and voxelrt/rt/app/app.go's Init (Instance -> Surface ->
// Adapter -> Device -> Queue -> Config) sequence, narrowed to this
// core's compute-only pipeline.
package main

import (
	"flag"
	"fmt"
	"image"
	"image/color"
	"runtime"
	"time"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/driftforge/voxelcore/accel/bvh"
	"github.com/driftforge/voxelcore/accel/octree"
	"github.com/driftforge/voxelcore/atlas"
	"github.com/driftforge/voxelcore/config"
	"github.com/driftforge/voxelcore/corelog"
	"github.com/driftforge/voxelcore/corerr"
	"github.com/driftforge/voxelcore/cull"
	"github.com/driftforge/voxelcore/driver"
	"github.com/driftforge/voxelcore/gpu"
	"github.com/driftforge/voxelcore/lod"
	"github.com/driftforge/voxelcore/mesh"
	"github.com/driftforge/voxelcore/shaders"
	"github.com/driftforge/voxelcore/stats"
	"github.com/driftforge/voxelcore/terrain"
	"github.com/driftforge/voxelcore/voxel"
	"github.com/driftforge/voxelcore/worldbuffer"
)

func init() {
	runtime.LockOSThread()
}

// drawCmdRecordSize mirrors mesh.DrawCmd.ToBytes's fixed 20-byte layout.
const drawCmdRecordSize = 20

func main() {
	debug := flag.Bool("debug", false, "enable debug logging")
	viewDistance := flag.Uint("view-distance", 8, "view distance in chunks")
	// 32 matches terrain.wgsl's hardcoded CHUNK_SIZE and mesh.wgsl's
	// hardcoded CHUNK_SIZE tiling constant; changing this without also
	// changing those shader constants would desynchronize the kernels'
	// output indexing from the host's slot layout.
	chunkSize := flag.Uint("chunk-size", 32, "voxels per chunk edge")
	vectorized := flag.Bool("vectorized-meshing", false, "enable vectorized meshing kernel tiling")
	seed := flag.Uint64("seed", 1, "terrain generation seed")
	flag.Parse()

	log := corelog.New("voxelcored", *debug)

	cfg := config.Default()
	cfg.ChunkSize = uint32(*chunkSize)
	cfg.ViewDistance = uint32(*viewDistance)
	cfg.EnableVectorizedMeshing = *vectorized
	cfg.EnableReadback = true // meshing reads slots back host-side between C and E
	cfg.Seed = *seed
	if err := cfg.Validate(); err != nil {
		log.Errorf("invalid configuration: %v", err)
		return
	}

	if err := glfw.Init(); err != nil {
		log.Errorf("glfw init: %v", err)
		return
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	window, err := glfw.CreateWindow(1280, 720, "voxelcored", nil, nil)
	if err != nil {
		log.Errorf("create window: %v", err)
		return
	}
	defer window.Destroy()

	instance := wgpu.CreateInstance(nil)
	surface := instance.CreateSurface(wgpuglfw.GetSurfaceDescriptor(window))

	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: surface,
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		log.Errorf("request adapter: %v", err)
		return
	}

	device, err := adapter.RequestDevice(nil)
	if err != nil {
		log.Errorf("request device: %v", err)
		return
	}
	queue := device.GetQueue()

	width, height := window.GetFramebufferSize()
	caps := surface.GetCapabilities(adapter)
	surfaceConfig := &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      caps.Formats[0],
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: wgpu.PresentModeFifo,
		AlphaMode:   caps.AlphaModes[0],
	}
	surface.Configure(adapter, device, surfaceConfig)

	counters := &stats.Counters{}

	wb, err := worldbuffer.New(device, worldbuffer.Options{
		ChunkSize:      cfg.ChunkSize,
		ViewDistance:   cfg.ViewDistance,
		EnableReadback: cfg.EnableReadback,
		MaxBindingSize: cfg.MaxBindingSize,
		Log:            log,
	})
	if err != nil {
		log.Errorf("world buffer construction: %v", err)
		return
	}

	reg := voxel.NewRegistry(log)
	stoneID, _ := reg.Register("engine:stone", voxel.Properties{Solid: true, Hardness: 1.5, BlastResistance: 6, PhysicsDensity: 2.6})
	dirtID, _ := reg.Register("engine:dirt", voxel.Properties{Solid: true, Hardness: 0.5, BlastResistance: 0.5, PhysicsDensity: 1.2})
	grassID, _ := reg.Register("engine:grass", voxel.Properties{Solid: true, Hardness: 0.6, BlastResistance: 0.6, PhysicsDensity: 1.2})
	iceID, _ := reg.Register("engine:ice", voxel.Properties{Solid: true, Transparent: true, Hardness: 0.5, BlastResistance: 0.5})
	terrain.SetIceShellBlockID(uint32(iceID))

	params := &terrain.Params{
		Seed: cfg.Seed,
		Distributions: []terrain.BlockDistribution{
			{BlockID: uint32(stoneID), MinHeight: 0, MaxHeight: float32(cfg.ChunkSize) - 4, Weight: 1},
			{BlockID: uint32(dirtID), MinHeight: float32(cfg.ChunkSize) - 4, MaxHeight: float32(cfg.ChunkSize) - 1, Weight: 1},
			{BlockID: uint32(grassID), MinHeight: float32(cfg.ChunkSize) - 1, MaxHeight: float32(cfg.ChunkSize), Weight: 1},
		},
		Weather:            terrain.WeatherClear,
		TemperatureCelsius: 12,
	}

	mat := buildMaterialAtlas(reg, map[uint16]color.RGBA{
		stoneID: {R: 120, G: 120, B: 120, A: 255},
		dirtID:  {R: 110, G: 72, B: 42, A: 255},
		grassID: {R: 70, G: 150, B: 60, A: 255},
		iceID:   {R: 180, G: 220, B: 240, A: 255},
	})
	atlasTex, err := uploadAtlas(device, queue, mat)
	if err != nil {
		log.Errorf("atlas upload: %v", err)
		return
	}
	_ = atlasTex

	generator, err := terrain.NewGenerator(device, shaders.TerrainWGSL, cfg.EnableVectorizedMeshing)
	if err != nil {
		log.Errorf("terrain generator construction: %v", err)
		return
	}

	hizModule, err := device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "HiZReduceShader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.HiZWGSL},
	})
	if err != nil {
		log.Errorf("hiz shader module: %v", err)
		return
	}
	hiz, err := cull.Setup(device, width, height, hizModule)
	hizModule.Release()
	if err != nil {
		log.Errorf("hiz pyramid construction: %v", err)
		return
	}
	placeholderDepth, err := makePlaceholderDepthView(device, queue, width, height)
	if err != nil {
		log.Errorf("placeholder depth texture: %v", err)
		return
	}

	cullPass, err := cull.NewGPUPass(device, shaders.FrustumCullWGSL)
	if err != nil {
		log.Errorf("cull pass construction: %v", err)
		return
	}

	indirectBuf, err := gpu.CreateStorageBuffer(device, "IndirectDrawCommands", uint64(wb.Capacity())*drawCmdRecordSize, wgpu.BufferUsageIndirect)
	if err != nil {
		log.Errorf("indirect buffer construction: %v", err)
		return
	}

	lodManager := lod.NewManager(lod.Thresholds{
		float32(cfg.ChunkSize) * 2,
		float32(cfg.ChunkSize) * 4,
		float32(cfg.ChunkSize) * 8,
		float32(cfg.ChunkSize) * 16,
	}, cfg.LODTransitionTime)

	d := driver.New(wb, log, counters)

	window.SetFramebufferSizeCallback(func(w *glfw.Window, width, height int) {
		surfaceConfig.Width = uint32(width)
		surfaceConfig.Height = uint32(height)
		surface.Configure(adapter, device, surfaceConfig)
	})

	log.Infof("voxelcored ready: chunk_size=%d view_distance=%d capacity=%d", cfg.ChunkSize, cfg.ViewDistance, wb.Capacity())

	camera := worldbuffer.ChunkCoord{}
	vertexBufs := make(map[uint32]*wgpu.Buffer)
	indexBufs := make(map[uint32]*wgpu.Buffer)
	var bvhNodesBuf, bvhPrimBuf, octreeBuf *wgpu.Buffer

	lastFrame := time.Now()
	for !window.ShouldClose() {
		glfw.PollEvents()
		now := time.Now()
		dt := float32(now.Sub(lastFrame).Seconds())
		lastFrame = now

		plan, err := d.PlanFrame(camera, int32(cfg.ViewDistance))
		if err != nil {
			log.Warnf("frame plan rejected, core is in lost mode: %v", err)
			continue
		}

		// C: terrain generation over newly-allocated slots.
		if len(plan.NewlyAllocated) > 0 {
			encoder, err := device.CreateCommandEncoder(nil)
			if err != nil {
				d.ReportDeviceError(classifyDeviceErr(err))
				continue
			}
			slots := make([]uint32, 0, len(plan.NewlyAllocated))
			for _, coord := range plan.NewlyAllocated {
				slots = append(slots, plan.AllocatedSlots[coord])
			}
			if err := generator.GenerateBatch(encoder, params, slots, cfg.ChunkSize, wb.VoxelBuffer()); err != nil {
				d.ReportDeviceError(classifyDeviceErr(err))
				continue
			}
			cmdBuf, err := encoder.Finish(nil)
			if err != nil {
				d.ReportDeviceError(classifyDeviceErr(err))
				continue
			}
			queue.Submit(cmdBuf)
		}

		// E: mesh the dirty set (requires C's generation to have landed,
		// enforced by the same serialized command-encoder/queue ordering).
		for _, coord := range plan.ToMesh {
			slot, ok := wb.Lookup(coord)
			if !ok {
				continue
			}
			voxels, err := wb.ReadChunk(coord)
			if err != nil {
				log.Warnf("mesh: read_chunk(%v) failed: %v", coord, err)
				continue
			}
			neigh := mesh.Neighbours{
				North: neighbourVoxels(wb, coord, 0, 0, -1),
				South: neighbourVoxels(wb, coord, 0, 0, 1),
				East:  neighbourVoxels(wb, coord, 1, 0, 0),
				West:  neighbourVoxels(wb, coord, -1, 0, 0),
				Up:    neighbourVoxels(wb, coord, 0, 1, 0),
				Down:  neighbourVoxels(wb, coord, 0, -1, 0),
			}
			result := mesh.MeshChunkGreedy(int(cfg.ChunkSize), voxels, neigh, reg, mesh.DefaultLimits)
			if result.Overflowed {
				counters.IncMeshOverflows()
				log.Warnf("mesh: slot %d overflowed its vertex/index budget", slot)
			}

			vbuf := vertexBufs[slot]
			gpu.EnsureBuffer(device, fmt.Sprintf("MeshVertices[%d]", slot), &vbuf, result.VertexBytes(), wgpu.BufferUsageVertex, 0)
			vertexBufs[slot] = vbuf

			ibuf := indexBufs[slot]
			gpu.EnsureBuffer(device, fmt.Sprintf("MeshIndices[%d]", slot), &ibuf, result.IndexBytes(), wgpu.BufferUsageIndex, 0)
			indexBufs[slot] = ibuf

			queue.WriteBuffer(indirectBuf, uint64(slot)*drawCmdRecordSize, result.DrawCmd.ToBytes())
		}

		// D: rebuild acceleration structures over the resident set on the
		// driver's cadence.
		if plan.RebuildAccel {
			resident := wb.Resident()
			log.Debugf("frame %s: rebuilding acceleration structures over %d resident chunks", plan.FrameID, len(resident))

			bvhInputs := make([]bvh.ChunkAABB, 0, len(resident))
			octreeInputs := make([]octree.Chunk, 0, len(resident))
			for coord, slot := range resident {
				min := chunkOrigin(coord, cfg.ChunkSize)
				max := min.Add(mgl32.Vec3{float32(cfg.ChunkSize), float32(cfg.ChunkSize), float32(cfg.ChunkSize)})
				bvhInputs = append(bvhInputs, bvh.ChunkAABB{Min: min, Max: max, SlotIndex: slot})
				octreeInputs = append(octreeInputs, octree.Chunk{X: coord.X, Y: coord.Y, Z: coord.Z})
			}

			builder := &bvh.Builder{}
			nodeBytes, primIndices := builder.Build(bvhInputs)
			gpu.EnsureBuffer(device, "AccelBVHNodes", &bvhNodesBuf, nodeBytes, wgpu.BufferUsageStorage, 0)
			gpu.EnsureBuffer(device, "AccelBVHPrimitives", &bvhPrimBuf, uint32sToBytes(primIndices), wgpu.BufferUsageStorage, 0)

			tree := octree.Build(float32(cfg.ChunkSize), octreeInputs)
			gpu.EnsureBuffer(device, "AccelOctree", &octreeBuf, tree.ToBytes(), wgpu.BufferUsageStorage, 0)
		}

		// G: LOD classification for the resident set against the camera.
		cameraWorld := chunkOrigin(camera, cfg.ChunkSize)
		for coord := range wb.Resident() {
			dist := chunkOrigin(coord, cfg.ChunkSize).Sub(cameraWorld).Len()
			lodManager.Update(coord, dist)
			lodManager.Advance(coord, dt)
		}

		// F: GPU-driven frustum + Hi-Z occlusion cull, consuming the slots
		// E just populated. The decision is written directly into
		// indirectBuf on device; no host readback is on this path.
		resident := wb.Resident()
		cullSlots := make([]cull.Slot, 0, len(resident))
		for coord, slot := range resident {
			min := chunkOrigin(coord, cfg.ChunkSize)
			max := min.Add(mgl32.Vec3{float32(cfg.ChunkSize), float32(cfg.ChunkSize), float32(cfg.ChunkSize)})
			cullSlots = append(cullSlots, cull.Slot{Index: slot, AABB: cull.AABB{Min: min, Max: max}})
		}
		viewProj := buildViewProj(cameraWorld, float32(width)/float32(height))

		encoder, err := device.CreateCommandEncoder(nil)
		if err != nil {
			d.ReportDeviceError(classifyDeviceErr(err))
			continue
		}
		if err := hiz.Dispatch(encoder, placeholderDepth); err != nil {
			log.Warnf("hiz: dispatch failed: %v", err)
		}
		cullPass.Upload(viewProj, cullSlots)
		if err := cullPass.Dispatch(encoder, indirectBuf, hiz.OcclusionView(), len(cullSlots)); err != nil {
			log.Warnf("cull: dispatch failed: %v", err)
		}
		cmdBuf, err := encoder.Finish(nil)
		if err != nil {
			d.ReportDeviceError(classifyDeviceErr(err))
			continue
		}
		queue.Submit(cmdBuf)
	}
}

// neighbourVoxels reads back nc's voxels if it is resident, or returns
// nil (treated as all-air at the meshing boundary) otherwise.
func neighbourVoxels(wb *worldbuffer.WorldBuffer, coord worldbuffer.ChunkCoord, dx, dy, dz int32) []voxel.Word {
	nc := worldbuffer.ChunkCoord{X: coord.X + dx, Y: coord.Y + dy, Z: coord.Z + dz}
	if _, ok := wb.Lookup(nc); !ok {
		return nil
	}
	words, err := wb.ReadChunk(nc)
	if err != nil {
		return nil
	}
	return words
}

// chunkOrigin returns coord's minimum world-space corner.
func chunkOrigin(coord worldbuffer.ChunkCoord, chunkSize uint32) mgl32.Vec3 {
	s := float32(chunkSize)
	return mgl32.Vec3{float32(coord.X) * s, float32(coord.Y) * s, float32(coord.Z) * s}
}

// buildViewProj places the camera at eye, looking forward along -Z,
// matching the teacher's render-frame camera convention. There is no
// render/input system in this core (spec non-goal); this is the
// minimal view-projection source the cull pass needs to exercise its
// frustum/occlusion test against real numbers.
func buildViewProj(eye mgl32.Vec3, aspect float32) mgl32.Mat4 {
	proj := mgl32.Perspective(mgl32.DegToRad(70), aspect, 0.1, 1000)
	view := mgl32.LookAtV(eye, eye.Add(mgl32.Vec3{0, 0, -1}), mgl32.Vec3{0, 1, 0})
	return proj.Mul4(view)
}

// buildMaterialAtlas registers one solid-color placeholder tile per
// block id so the atlas's packing/UV contract (spec §4.H) is actually
// exercised by real registered materials, not left untested in
// isolation.
func buildMaterialAtlas(reg *voxel.Registry, tiles map[uint16]color.RGBA) *atlas.Atlas {
	_ = reg
	a := atlas.New(256)
	for _, c := range tiles {
		img := image.NewRGBA(image.Rect(0, 0, 16, 16))
		for y := 0; y < 16; y++ {
			for x := 0; x < 16; x++ {
				img.Set(x, y, c)
			}
		}
		// Registration order doesn't need to track block id; callers look
		// up a block's material id separately once block->material
		// assignment is modeled (future work, see DESIGN.md).
		if _, err := a.Register(img); err != nil {
			break
		}
	}
	return a
}

// uploadAtlas copies the packed atlas image to a device texture and
// marks it uploaded.
func uploadAtlas(device *wgpu.Device, queue *wgpu.Queue, a *atlas.Atlas) (*wgpu.Texture, error) {
	img := a.Image()
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	tex, err := device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "MaterialAtlas",
		Size:          wgpu.Extent3D{Width: uint32(w), Height: uint32(h), DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatRGBA8Unorm,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, corerr.WrapMapping(err, "atlas: failed to create texture")
	}
	queue.WriteTexture(tex.AsImageCopy(), img.Pix, &wgpu.TextureDataLayout{
		BytesPerRow:  uint32(w) * 4,
		RowsPerImage: uint32(h),
	}, &wgpu.Extent3D{Width: uint32(w), Height: uint32(h), DepthOrArrayLayers: 1})
	a.MarkUploaded()
	return tex, nil
}

// makePlaceholderDepthView builds a far-plane depth source for the
// Hi-Z pyramid's first reduction pass. This core has no rasterizer
// (spec non-goal): a real integration feeds Dispatch the actual depth
// prepass's view; absent one, every texel reports the far plane (1.0),
// so nothing is occluded and the occlusion test degrades gracefully to
// frustum-only culling until a renderer supplies real depth.
func makePlaceholderDepthView(device *wgpu.Device, queue *wgpu.Queue, width, height int) (*wgpu.TextureView, error) {
	tex, err := device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "PlaceholderSceneDepth",
		Size:          wgpu.Extent3D{Width: uint32(width), Height: uint32(height), DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatR32Float,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, corerr.WrapMapping(err, "hiz: failed to create placeholder depth texture")
	}
	far := make([]byte, width*height*4)
	for i := 0; i < width*height; i++ {
		far[i*4], far[i*4+1], far[i*4+2], far[i*4+3] = 0x00, 0x00, 0x80, 0x3f // 1.0f little-endian
	}
	queue.WriteTexture(tex.AsImageCopy(), far, &wgpu.TextureDataLayout{
		BytesPerRow:  uint32(width) * 4,
		RowsPerImage: uint32(height),
	}, &wgpu.Extent3D{Width: uint32(width), Height: uint32(height), DepthOrArrayLayers: 1})
	return tex.CreateView(nil)
}

// uint32sToBytes little-endian-encodes vs, used for the BVH's
// primitive-index buffer.
func uint32sToBytes(vs []uint32) []byte {
	buf := make([]byte, len(vs)*4)
	for i, v := range vs {
		buf[i*4] = byte(v)
		buf[i*4+1] = byte(v >> 8)
		buf[i*4+2] = byte(v >> 16)
		buf[i*4+3] = byte(v >> 24)
	}
	return buf
}

// classifyDeviceErr maps a generic device error into the watchdog's
// corerr.Kind taxonomy: a wrapped CoreError keeps its own kind, any
// other error is treated as Transient (recoverable on retry) rather
// than tripping the core into lost mode on the first hiccup.
func classifyDeviceErr(err error) corerr.Kind {
	if kind, ok := corerr.KindOf(err); ok {
		return kind
	}
	return corerr.Transient
}
