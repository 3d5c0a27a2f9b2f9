package voxel

import (
	"testing"

	"github.com/driftforge/voxelcore/corerr"
)

func TestRegisterEnginePrefixAndBare(t *testing.T) {
	r := NewRegistry(nil)

	stoneID, err := r.Register("engine:stone", Properties{Solid: true, Hardness: 1.5})
	if err != nil {
		t.Fatalf("Register(engine:stone) failed: %v", err)
	}
	if stoneID < engineIDStart || stoneID >= engineIDLimit {
		t.Errorf("engine:stone got id %d, want in [%d,%d)", stoneID, engineIDStart, engineIDLimit)
	}

	bareID, err := r.Register("dirt", Properties{Solid: true})
	if err != nil {
		t.Fatalf("Register(dirt) failed: %v", err)
	}
	if bareID < engineIDStart || bareID >= engineIDLimit {
		t.Errorf("bare name (no namespace) should be treated as engine, got id %d", bareID)
	}

	modID, err := r.Register("mymod:crystal", Properties{Solid: true})
	if err != nil {
		t.Fatalf("Register(mymod:crystal) failed: %v", err)
	}
	if modID < externalIDLow {
		t.Errorf("namespaced external name should get external id, got %d", modID)
	}
}

func TestRegisterIdempotent(t *testing.T) {
	r := NewRegistry(nil)
	id1, _ := r.Register("engine:grass", Properties{Solid: true})
	id2, _ := r.Register("engine:grass", Properties{Solid: true})
	if id1 != id2 {
		t.Errorf("re-registering the same name should return the same id, got %d then %d", id1, id2)
	}
}

func TestAirPreregistered(t *testing.T) {
	r := NewRegistry(nil)
	id, ok := r.ID("air")
	if !ok || id != 0 {
		t.Fatalf("air must be pre-registered at id 0, got id=%d ok=%v", id, ok)
	}
	if !r.IsRegistered(0) {
		t.Fatal("id 0 must report as registered")
	}
}

func TestEnginePoolExhaustion(t *testing.T) {
	r := NewRegistry(nil)
	// air already occupies a conceptual slot but not the engine counter;
	// exhaust ids [1,100).
	for i := 0; i < engineIDLimit-engineIDStart; i++ {
		name := "engine:filler" + string(rune('a'+i%26)) + string(rune('0'+i/26))
		if _, err := r.Register(name, Properties{}); err != nil {
			t.Fatalf("unexpected failure filling engine pool at i=%d: %v", i, err)
		}
	}
	_, err := r.Register("engine:overflow", Properties{})
	if err == nil {
		t.Fatal("expected engine pool exhaustion error")
	}
	if k, ok := corerr.KindOf(err); !ok || k != corerr.Capacity {
		t.Errorf("expected corerr.Capacity, got %v", err)
	}
}
