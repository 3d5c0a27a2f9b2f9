package config

import (
	"testing"

	"github.com/driftforge/voxelcore/corerr"
)

func TestDefaultValidates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config should validate, got: %v", err)
	}
}

func TestZeroChunkSizeIsFatal(t *testing.T) {
	c := Default()
	c.ChunkSize = 0
	err := c.Validate()
	if err == nil {
		t.Fatal("expected error for zero chunk size")
	}
	if k, ok := corerr.KindOf(err); !ok || k != corerr.Fatal {
		t.Errorf("expected corerr.Fatal, got %v", err)
	}
}

func TestNegativeLODTransitionIsFatal(t *testing.T) {
	c := Default()
	c.LODTransitionTime = -1
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for negative lod transition time")
	}
}
