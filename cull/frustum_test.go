package cull

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func viewProjLookingDownNegZ() mgl32.Mat4 {
	proj := mgl32.Perspective(mgl32.DegToRad(90), 1.0, 1.0, 100.0)
	view := mgl32.LookAtV(
		mgl32.Vec3{0, 0, 10},
		mgl32.Vec3{0, 0, 0},
		mgl32.Vec3{0, 1, 0},
	)
	return proj.Mul4(view)
}

func TestFrustumCullsBoxOutsideOnX(t *testing.T) {
	vp := viewProjLookingDownNegZ()
	planes := ExtractFrustum(vp)

	visible := AABB{Min: mgl32.Vec3{-1, -1, -6}, Max: mgl32.Vec3{1, 1, -4}}
	if !InFrustum(visible, planes) {
		t.Error("box in front of the camera within the frustum should be visible")
	}

	farAway := AABB{Min: mgl32.Vec3{99, -1, -1}, Max: mgl32.Vec3{101, 1, 1}}
	if InFrustum(farAway, planes) {
		t.Error("box far outside the frustum on X should be culled")
	}
}

func TestFrustumCullScenario(t *testing.T) {
	// spec §8 scenario 4: camera at (0,0,10) looking down -Z, 90deg FOV.
	// Chunk at (0,0,-5) survives; chunk at (100,0,0) is culled.
	proj := mgl32.Perspective(mgl32.DegToRad(90), 1.0, 1.0, 100.0)
	view := mgl32.LookAtV(mgl32.Vec3{0, 0, 10}, mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 1, 0})
	vp := proj.Mul4(view)
	planes := ExtractFrustum(vp)

	near := AABB{Min: mgl32.Vec3{-1, -1, -6}, Max: mgl32.Vec3{1, 1, -4}}
	if !InFrustum(near, planes) {
		t.Error("chunk at (0,0,-5) should survive frustum cull")
	}

	offToTheSide := AABB{Min: mgl32.Vec3{99, -1, -1}, Max: mgl32.Vec3{101, 1, 1}}
	if InFrustum(offToTheSide, planes) {
		t.Error("chunk at (100,0,0) should be culled")
	}
}

func TestOcclusionRejectsHiddenBox(t *testing.T) {
	vp := viewProjLookingDownNegZ()
	// A 4x4 Hi-Z buffer where every texel reports a very near occluder
	// depth (close to the camera, small NDC z).
	hz := Buffer{Data: []float32{
		-0.9, -0.9, -0.9, -0.9,
		-0.9, -0.9, -0.9, -0.9,
		-0.9, -0.9, -0.9, -0.9,
		-0.9, -0.9, -0.9, -0.9,
	}, Width: 4, Height: 4}

	farBox := AABB{Min: mgl32.Vec3{-1, -1, -99}, Max: mgl32.Vec3{1, 1, -98}}
	if !IsOccluded(farBox, hz, vp) {
		t.Error("a box far beyond a near full-screen occluder should be reported occluded")
	}
}

func TestOcclusionAllowsHoleInOccluder(t *testing.T) {
	vp := viewProjLookingDownNegZ()
	hz := Buffer{Data: []float32{
		-0.99, -0.99, -0.99, -0.99,
		-0.99, 1, 1, -0.99,
		-0.99, 1, 1, -0.99,
		-0.99, -0.99, -0.99, -0.99,
	}, Width: 4, Height: 4}

	centerBox := AABB{Min: mgl32.Vec3{-0.1, -0.1, -5.1}, Max: mgl32.Vec3{0.1, 0.1, -4.9}}
	if IsOccluded(centerBox, hz, vp) {
		t.Error("a box seen through a hole in the occluder (far depth=1) should not be occluded")
	}
}

func TestOcclusionConservativeNearPlaneCross(t *testing.T) {
	vp := viewProjLookingDownNegZ()
	hz := Buffer{Data: []float32{-1, -1, -1, -1}, Width: 2, Height: 2}
	straddling := AABB{Min: mgl32.Vec3{-1, -1, 9}, Max: mgl32.Vec3{1, 1, 11}}
	if IsOccluded(straddling, hz, vp) {
		t.Error("a box crossing the near/camera plane must be conservatively treated as visible")
	}
}
