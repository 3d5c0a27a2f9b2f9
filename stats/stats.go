// Package stats holds the observability counters named in spec §6,
// generalized from the teacher's habit of tracking bandwidth/frame
// counters inline on the buffer manager (voxelrt/rt/gpu/manager.go,
// manager_hiz.go) into one dedicated, atomically-updated type.
package stats

import "sync/atomic"

// Counters tracks the core's observability surface. All fields are
// safe for concurrent use via the accessor methods; do not read the
// struct fields directly.
type Counters struct {
	chunksResident       int64
	slotEvictions        int64
	generationDispatches int64
	meshOverflows        int64
	frustumSurvived      int64
	occlusionSurvived    int64
	uploadBytesPerSec    int64
	readbackBytesPerSec  int64
	atlasUtilizationPct  int64 // fixed-point: value * 100
}

// Snapshot is a point-in-time copy of all counters.
type Snapshot struct {
	ChunksResident          int64
	SlotEvictions           int64
	GenerationDispatches    int64
	MeshOverflows           int64
	FrustumSurvived         int64
	OcclusionSurvived       int64
	UploadBytesPerSec       int64
	ReadbackBytesPerSec     int64
	AtlasUtilizationPercent float64
}

func (c *Counters) AddChunksResident(delta int64)       { atomic.AddInt64(&c.chunksResident, delta) }
func (c *Counters) IncSlotEvictions()                   { atomic.AddInt64(&c.slotEvictions, 1) }
func (c *Counters) IncGenerationDispatches()            { atomic.AddInt64(&c.generationDispatches, 1) }
func (c *Counters) IncMeshOverflows()                   { atomic.AddInt64(&c.meshOverflows, 1) }
func (c *Counters) AddFrustumSurvived(delta int64)      { atomic.AddInt64(&c.frustumSurvived, delta) }
func (c *Counters) AddOcclusionSurvived(delta int64)    { atomic.AddInt64(&c.occlusionSurvived, delta) }
func (c *Counters) SetUploadBytesPerSec(v int64)        { atomic.StoreInt64(&c.uploadBytesPerSec, v) }
func (c *Counters) SetReadbackBytesPerSec(v int64)      { atomic.StoreInt64(&c.readbackBytesPerSec, v) }
func (c *Counters) SetAtlasUtilizationPercent(v float64) {
	atomic.StoreInt64(&c.atlasUtilizationPct, int64(v*100))
}

// Snapshot returns a consistent-enough point-in-time read of all
// counters (individual fields are read atomically but not as one
// transaction, matching the teacher's lock-free counter style).
func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		ChunksResident:          atomic.LoadInt64(&c.chunksResident),
		SlotEvictions:           atomic.LoadInt64(&c.slotEvictions),
		GenerationDispatches:    atomic.LoadInt64(&c.generationDispatches),
		MeshOverflows:           atomic.LoadInt64(&c.meshOverflows),
		FrustumSurvived:         atomic.LoadInt64(&c.frustumSurvived),
		OcclusionSurvived:       atomic.LoadInt64(&c.occlusionSurvived),
		UploadBytesPerSec:       atomic.LoadInt64(&c.uploadBytesPerSec),
		ReadbackBytesPerSec:     atomic.LoadInt64(&c.readbackBytesPerSec),
		AtlasUtilizationPercent: float64(atomic.LoadInt64(&c.atlasUtilizationPct)) / 100,
	}
}
