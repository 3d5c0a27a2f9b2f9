// Package config holds the configuration surface exposed by the core
// (spec §6) and its construction-time validation.
package config

import (
	"github.com/driftforge/voxelcore/corerr"
)

// Backend selects how terrain/mesh/cull kernels are dispatched.
type Backend int

const (
	BackendAuto Backend = iota
	BackendGPU
)

// Config is the full configuration surface named in spec §6.
type Config struct {
	ChunkSize               uint32
	ViewDistance            uint32
	Seed                    uint64
	Backend                 Backend
	EnableReadback          bool
	EnableVectorizedMeshing bool
	LODTransitionTime       float32 // seconds

	// MaxBindingSize is the device's reported storage-buffer binding
	// limit. Zero means "use the package default" (see gpu.SafeBufferSizeLimit).
	MaxBindingSize uint64
}

// Default returns a Config with the reference defaults: chunk size 50
// (spec §3's default), view distance 8, vectorized meshing off (per
// SPEC_FULL.md's decision on the open question), LOD transition 0.5s.
func Default() Config {
	return Config{
		ChunkSize:               50,
		ViewDistance:            8,
		Backend:                 BackendAuto,
		EnableReadback:          false,
		EnableVectorizedMeshing: false,
		LODTransitionTime:       0.5,
	}
}

// Validate checks the configuration for construction-time
// misconfiguration. It does not touch the device; capacity validation
// against an actual binding limit happens in worldbuffer.New, which
// returns the same corerr.Fatal kind.
func (c Config) Validate() error {
	if c.ChunkSize == 0 {
		return corerr.Fatalf("chunk_size must be non-zero")
	}
	if c.LODTransitionTime < 0 {
		return corerr.Fatalf("lod_transition_time must be non-negative, got %f", c.LODTransitionTime)
	}
	return nil
}

// MustValidate panics if Validate fails. Reserved for callers that have
// already decided a bad config means "cannot proceed" (e.g. a CLI entry
// point); library code should prefer Validate.
func (c Config) MustValidate() {
	if err := c.Validate(); err != nil {
		panic(err)
	}
}
