// Package atlas packs per-material textures into a single atlas image
// and hands out UV rectangles keyed by material id (spec §4.H). Uses
// the standard library's image/draw to composite tiles;
// golang.org/x/image is listed in go.mod but not imported here.
package atlas

import (
	"image"
	"image/draw"

	"github.com/driftforge/voxelcore/corerr"
)

// padding is the two-texel padding between packed tiles to prevent
// bilinear-filtering bleed, per spec §4.H.
const padding = 2

// missingMaterialID is reserved per spec §4.H ("id 0 reserved for missing").
const missingMaterialID = 0

// Rect is a UV rectangle in [0,1] normalized atlas coordinates.
type Rect struct {
	U0, V0, U1, V1 float32
}

// Atlas packs tiles row-first into a surface up to maxDim on a side
// (the device's maximum 2D texture dimension).
type Atlas struct {
	maxDim int
	image  *image.RGBA
	rects  map[uint32]Rect // material id -> UV rect
	nextID uint32

	cursorX, cursorY, rowHeight int
	usedArea, totalArea         int

	dirty bool
}

// New creates an atlas whose pack surface starts at maxDim x maxDim
// (clamped down to the device's reported limit by the caller).
func New(maxDim int) *Atlas {
	a := &Atlas{
		maxDim: maxDim,
		image:  image.NewRGBA(image.Rect(0, 0, maxDim, maxDim)),
		rects:  make(map[uint32]Rect),
		nextID: 1, // id 0 reserved for "missing"
		dirty:  true,
	}
	a.totalArea = maxDim * maxDim
	a.rects[missingMaterialID] = Rect{0, 0, 0, 0}
	return a
}

// Register packs tile into the atlas row-first and returns its
// monotonically increasing material id. Returns a corerr.Capacity error
// if the surface has no room left.
func (a *Atlas) Register(tile image.Image) (uint32, error) {
	b := tile.Bounds()
	w, h := b.Dx(), b.Dy()

	if a.cursorX+w > a.maxDim {
		a.cursorX = 0
		a.cursorY += a.rowHeight + padding
		a.rowHeight = 0
	}
	if a.cursorY+h > a.maxDim {
		return 0, corerr.Capacityf("atlas: no room for a %dx%d tile in a %dx%d surface", w, h, a.maxDim, a.maxDim)
	}

	dstRect := image.Rect(a.cursorX, a.cursorY, a.cursorX+w, a.cursorY+h)
	draw.Draw(a.image, dstRect, tile, b.Min, draw.Src)

	id := a.nextID
	a.nextID++

	a.rects[id] = Rect{
		U0: float32(a.cursorX) / float32(a.maxDim),
		V0: float32(a.cursorY) / float32(a.maxDim),
		U1: float32(a.cursorX+w) / float32(a.maxDim),
		V1: float32(a.cursorY+h) / float32(a.maxDim),
	}

	a.cursorX += w + padding
	if h > a.rowHeight {
		a.rowHeight = h
	}
	a.usedArea += w * h
	a.dirty = true

	return id, nil
}

// UV returns the UV rectangle for materialID, or the reserved "missing"
// rectangle if it was never registered.
func (a *Atlas) UV(materialID uint32) Rect {
	if r, ok := a.rects[materialID]; ok {
		return r
	}
	return a.rects[missingMaterialID]
}

// Utilization returns used-area / total-area.
func (a *Atlas) Utilization() float64 {
	if a.totalArea == 0 {
		return 0
	}
	return float64(a.usedArea) / float64(a.totalArea)
}

// Dirty reports whether the atlas image has changed since the last
// MarkUploaded call.
func (a *Atlas) Dirty() bool { return a.dirty }

// MarkUploaded clears the dirty flag after the caller has written the
// full image to the device.
func (a *Atlas) MarkUploaded() { a.dirty = false }

// Image returns the packed atlas image for upload.
func (a *Atlas) Image() *image.RGBA { return a.image }
