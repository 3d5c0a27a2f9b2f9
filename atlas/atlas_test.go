package atlas

import (
	"image"
	"image/color"
	"testing"
)

func solidTile(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestRegisterAssignsMonotonicIDs(t *testing.T) {
	a := New(64)
	id1, err := a.Register(solidTile(8, 8, color.RGBA{255, 0, 0, 255}))
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	id2, err := a.Register(solidTile(8, 8, color.RGBA{0, 255, 0, 255}))
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if id1 == 0 || id2 == 0 {
		t.Fatal("material ids must never be 0 (reserved for missing)")
	}
	if id2 <= id1 {
		t.Errorf("ids should be monotonically increasing, got %d then %d", id1, id2)
	}
}

func TestUnregisteredIDReturnsMissingRect(t *testing.T) {
	a := New(64)
	got := a.UV(9999)
	want := a.UV(0)
	if got != want {
		t.Errorf("unregistered id should return the missing rect, got %+v want %+v", got, want)
	}
}

func TestUtilizationIncreases(t *testing.T) {
	a := New(64)
	if a.Utilization() != 0 {
		t.Fatalf("empty atlas should have 0 utilization, got %v", a.Utilization())
	}
	a.Register(solidTile(16, 16, color.RGBA{1, 2, 3, 255}))
	u1 := a.Utilization()
	if u1 <= 0 {
		t.Fatalf("utilization should be positive after registering a tile, got %v", u1)
	}
	a.Register(solidTile(16, 16, color.RGBA{4, 5, 6, 255}))
	u2 := a.Utilization()
	if u2 <= u1 {
		t.Errorf("utilization should increase after a second tile, got %v then %v", u1, u2)
	}
}

func TestDirtyFlagClearsOnUpload(t *testing.T) {
	a := New(64)
	if !a.Dirty() {
		t.Fatal("a freshly created atlas should be dirty")
	}
	a.MarkUploaded()
	if a.Dirty() {
		t.Fatal("MarkUploaded should clear the dirty flag")
	}
	a.Register(solidTile(4, 4, color.RGBA{9, 9, 9, 255}))
	if !a.Dirty() {
		t.Fatal("registering a new tile should re-dirty the atlas")
	}
}

func TestCapacityErrorWhenFull(t *testing.T) {
	a := New(8)
	if _, err := a.Register(solidTile(16, 16, color.RGBA{1, 1, 1, 255})); err == nil {
		t.Fatal("expected a capacity error for a tile larger than the surface")
	}
}
