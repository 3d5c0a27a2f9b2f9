// Package gpu holds WebGPU buffer helpers shared by the terrain, cull
// and worldbuffer packages and cmd/voxelcored: the geometric-growth
// buffer-resize pattern (EnsureBuffer) and a storage-buffer
// constructor (CreateStorageBuffer).
package gpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// SafeBufferSizeLimit is a soft ceiling used only to log a warning before
// a suspiciously large allocation; it is not enforced as a hard error
// here because the true limit is the device's binding-size limit,
// checked by callers (worldbuffer.New) against the adapter's reported
// limits.
const SafeBufferSizeLimit = 1 << 30 // 1 GiB

// EnsureBuffer grows *buf to hold at least len(data)+headroom bytes,
// replacing it with a geometrically larger buffer (1.5x) when it must
// grow. If data is nil and the buffer is being resized, the old content
// is preserved via a device-side copy; otherwise data is written into
// the (possibly new) buffer at offset 0. Returns true if a new buffer
// was allocated.
func EnsureBuffer(device *wgpu.Device, name string, buf **wgpu.Buffer, data []byte, usage wgpu.BufferUsage, headroom int) bool {
	neededSize := uint64(len(data) + headroom)
	if neededSize%4 != 0 {
		neededSize += 4 - (neededSize % 4)
	}

	current := *buf
	usage = usage | wgpu.BufferUsageCopyDst | wgpu.BufferUsageCopySrc

	grew := false
	if current == nil || current.GetSize() < neededSize {
		newSize := neededSize
		if current != nil {
			growthSize := uint64(float64(current.GetSize()) * 1.5)
			if growthSize > newSize {
				newSize = growthSize
			}
		}
		if newSize > SafeBufferSizeLimit {
			fmt.Printf("WARNING: buffer %s allocation size %d exceeds safety limit %d\n", name, newSize, SafeBufferSizeLimit)
		}

		desc := &wgpu.BufferDescriptor{
			Label:            name,
			Size:             newSize,
			Usage:            usage,
			MappedAtCreation: false,
		}
		newBuf, err := device.CreateBuffer(desc)
		if err != nil {
			panic(err)
		}

		if current != nil && data == nil {
			encoder, err := device.CreateCommandEncoder(nil)
			if err != nil {
				panic(err)
			}
			encoder.CopyBufferToBuffer(current, 0, newBuf, 0, current.GetSize())
			cmdBuf, err := encoder.Finish(nil)
			if err != nil {
				panic(err)
			}
			device.GetQueue().Submit(cmdBuf)
		}

		if current != nil {
			current.Release()
		}
		*buf = newBuf
		current = newBuf
		grew = true
	}

	if data != nil {
		device.GetQueue().WriteBuffer(current, 0, data)
	}
	return grew
}

// CreateStorageBuffer allocates a zero-initialized storage buffer of the
// given byte size, usable for copy src/dst.
func CreateStorageBuffer(device *wgpu.Device, label string, size uint64, extraUsage wgpu.BufferUsage) (*wgpu.Buffer, error) {
	desc := &wgpu.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst | wgpu.BufferUsageCopySrc | extraUsage,
	}
	return device.CreateBuffer(desc)
}
