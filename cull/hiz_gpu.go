package cull

import (
	"encoding/binary"
	"math"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/driftforge/voxelcore/corerr"
)

// Pyramid owns the device-side Hi-Z mip chain and the pipeline that
// reduces the previous frame's depth attachment into it. Grounded on
// voxelrt/rt/gpu/manager_hiz.go's SetupHiZ/DispatchHiZ/ReadbackHiZ.
type Pyramid struct {
	device *wgpu.Device

	texture    *wgpu.Texture
	mipViews   []*wgpu.TextureView
	pipeline   *wgpu.ComputePipeline
	readback   *wgpu.Buffer
	width      int
	height     int
	mipCount   int
	readbackMip int
}

// Setup allocates the Hi-Z texture's mip chain sized to width x height,
// creates per-mip views, a readback buffer sized to a narrow mip level
// (so a full pyramid read doesn't stall on a large copy), and the
// reduction compute pipeline from hizModule.
func Setup(device *wgpu.Device, width, height int, hizModule *wgpu.ShaderModule) (*Pyramid, error) {
	mipCount := 1
	for (width>>mipCount) > 1 && (height>>mipCount) > 1 {
		mipCount++
	}

	tex, err := device.CreateTexture(&wgpu.TextureDescriptor{
		Label: "HiZPyramid",
		Size: wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: uint32(mipCount),
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatR32Float,
		Usage:         wgpu.TextureUsageStorageBinding | wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopySrc,
	})
	if err != nil {
		return nil, corerr.WrapMapping(err, "hiz: failed to create pyramid texture")
	}

	views := make([]*wgpu.TextureView, mipCount)
	for mip := 0; mip < mipCount; mip++ {
		v, err := tex.CreateView(&wgpu.TextureViewDescriptor{
			BaseMipLevel:   uint32(mip),
			MipLevelCount:  1,
			BaseArrayLayer: 0,
			ArrayLayerCount: 1,
		})
		if err != nil {
			return nil, corerr.WrapMapping(err, "hiz: failed to create mip %d view", mip)
		}
		views[mip] = v
	}

	readbackMip := mipCount - 1
	for readbackMip > 0 && (width>>readbackMip) > 64 {
		readbackMip--
	}
	rw := max1(width >> readbackMip)
	rh := max1(height >> readbackMip)
	bytesPerRow := alignUp(rw*4, 256)
	readbackSize := uint64(bytesPerRow * rh)

	readback, err := device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "HiZReadback",
		Size:  readbackSize,
		Usage: wgpu.BufferUsageCopyDst | wgpu.BufferUsageMapRead,
	})
	if err != nil {
		return nil, corerr.WrapMapping(err, "hiz: failed to create readback buffer")
	}

	var pipeline *wgpu.ComputePipeline
	if hizModule != nil {
		pipeline, err = device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
			Label: "HiZReducePipeline",
			Compute: wgpu.ProgrammableStageDescriptor{
				Module:     hizModule,
				EntryPoint: "reduce",
			},
		})
		if err != nil {
			return nil, corerr.WrapMapping(err, "hiz: failed to create reduce pipeline")
		}
	}

	return &Pyramid{
		device:      device,
		texture:     tex,
		mipViews:    views,
		pipeline:    pipeline,
		readback:    readback,
		width:       width,
		height:      height,
		mipCount:    mipCount,
		readbackMip: readbackMip,
	}, nil
}

func max1(v int) int {
	if v < 1 {
		return 1
	}
	return v
}

func alignUp(v, align int) int {
	rem := v % align
	if rem == 0 {
		return v
	}
	return v + (align - rem)
}

// Dispatch issues one 8x8-workgroup compute pass per mip level that
// min-reduces sourceDepth down the chain: mip 0 reduces sourceDepth
// itself into mipViews[0], and each subsequent mip reduces the
// previous one. src_mip/dst_mip are bound fresh each pass since
// sourceDepth changes frame to frame. A readback copy into the
// host-mappable buffer is still recorded so the CPU reference path
// (Readback/Cull) keeps working for host-only testing, but the
// per-frame hot path (cull.GPUPass) consumes the mip views directly
// and never waits on it.
func (p *Pyramid) Dispatch(encoder *wgpu.CommandEncoder, sourceDepth *wgpu.TextureView) error {
	if p.pipeline == nil {
		return corerr.Protocolf("hiz: dispatch called without a reduce pipeline")
	}
	src := sourceDepth
	for mip := 0; mip < p.mipCount; mip++ {
		bindGroup, err := p.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:  "HiZReduceBindGroup",
			Layout: p.pipeline.GetBindGroupLayout(0),
			Entries: []wgpu.BindGroupEntry{
				{Binding: 0, TextureView: src},
				{Binding: 1, TextureView: p.mipViews[mip]},
			},
		})
		if err != nil {
			return corerr.WrapMapping(err, "hiz: failed to create mip %d bind group", mip)
		}

		pass := encoder.BeginComputePass(nil)
		pass.SetPipeline(p.pipeline)
		pass.SetBindGroup(0, bindGroup, nil)
		w := max1(p.width >> mip)
		h := max1(p.height >> mip)
		groupsX := uint32((w + 7) / 8)
		groupsY := uint32((h + 7) / 8)
		pass.DispatchWorkgroups(groupsX, groupsY, 1)
		pass.End()

		src = p.mipViews[mip]
	}

	rw := max1(p.width >> p.readbackMip)
	rh := max1(p.height >> p.readbackMip)
	bytesPerRow := uint32(alignUp(rw*4, 256))
	encoder.CopyTextureToBuffer(
		wgpu.ImageCopyTexture{Texture: p.texture, MipLevel: uint32(p.readbackMip)},
		wgpu.ImageCopyBuffer{
			Buffer: p.readback,
			Layout: wgpu.TextureDataLayout{BytesPerRow: bytesPerRow, RowsPerImage: uint32(rh)},
		},
		wgpu.Extent3D{Width: uint32(rw), Height: uint32(rh), DepthOrArrayLayers: 1},
	)
	return nil
}

// OcclusionView returns the mip level used as the occlusion test's
// coarsest covering level -- the same level the CPU reference path
// reads back in Readback, so the GPU and host paths agree on which mip
// the occlusion decision is made against.
func (p *Pyramid) OcclusionView() *wgpu.TextureView {
	return p.mipViews[p.readbackMip]
}

// Readback blocks until the configured mip's bytes are mapped, unpacks
// row padding, and returns a Buffer usable by IsOccluded.
func (p *Pyramid) Readback() (Buffer, error) {
	rw := max1(p.width >> p.readbackMip)
	rh := max1(p.height >> p.readbackMip)
	bytesPerRow := alignUp(rw*4, 256)
	size := uint64(bytesPerRow * rh)

	mapErrCh := make(chan error, 1)
	p.readback.MapAsync(wgpu.MapModeRead, 0, size, func(status wgpu.BufferMapAsyncStatus) {
		if status == wgpu.BufferMapAsyncStatusSuccess {
			mapErrCh <- nil
		} else {
			mapErrCh <- corerr.Mappingf("hiz: readback map failed with status %d", status)
		}
	})
	p.device.Poll(true, nil)
	if err := <-mapErrCh; err != nil {
		return Buffer{}, err
	}

	raw := p.readback.GetMappedRange(0, uint(size))
	out := make([]float32, rw*rh)
	for row := 0; row < rh; row++ {
		rowStart := row * bytesPerRow
		for col := 0; col < rw; col++ {
			off := rowStart + col*4
			bits := binary.LittleEndian.Uint32(raw[off : off+4])
			out[row*rw+col] = math.Float32frombits(bits)
		}
	}
	p.readback.Unmap()

	return Buffer{Data: out, Width: rw, Height: rh}, nil
}
