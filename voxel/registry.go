package voxel

import (
	"strings"
	"sync"

	"github.com/driftforge/voxelcore/corelog"
	"github.com/driftforge/voxelcore/corerr"
)

// engineIDStart/engineIDLimit and externalIDLow/externalIDHigh bound the two id pools from spec §4.A:
// engine ids in [1,100), external ids in [100,65536).
const (
	engineIDStart  = 1
	engineIDLimit  = 100
	externalIDLow  = 100
	externalIDHigh = 1 << blockIDBits
)

// Properties describes a registered block's physical behavior.
type Properties struct {
	Solid           bool
	Transparent     bool
	Fluid           bool
	LightEmission   uint8
	PhysicsDensity  float32
	Hardness        float32
	BlastResistance float32
}

// airProperties is pre-registered at id 0 and never reassigned.
var airProperties = Properties{Solid: false, Transparent: true}

// Registration is one entry in the registry, returned by List for
// diagnostics and tooling.
type Registration struct {
	ID         uint16
	Name       string
	Properties Properties
}

// Registry maps stable string ids (e.g. "engine:stone") to 16-bit block
// ids, partitioned into an engine pool [1,100) and an external pool
// [100,65536). Registration fails when the appropriate pool is
// exhausted. Safe for concurrent use.
type Registry struct {
	mu            sync.RWMutex
	byID          map[uint16]Properties
	nameToID      map[string]uint16
	registrations []Registration
	nextEngineID  uint16
	nextGameID    uint32 // wider than uint16 so overflow past 65535 is detectable
	log           corelog.Logger
}

// NewRegistry creates a registry with air pre-registered at id 0.
func NewRegistry(log corelog.Logger) *Registry {
	if log == nil {
		log = corelog.NewNop()
	}
	r := &Registry{
		byID:         make(map[uint16]Properties),
		nameToID:     make(map[string]uint16),
		nextEngineID: engineIDStart,
		nextGameID:   externalIDLow,
		log:          log,
	}
	r.byID[0] = airProperties
	r.nameToID["air"] = 0
	r.registrations = append(r.registrations, Registration{ID: 0, Name: "air", Properties: airProperties})
	return r
}

// isEngineName mirrors original_source/registry.rs: a block belongs to
// the engine pool if its name carries the "engine:" prefix or no
// namespace separator at all.
func isEngineName(name string) bool {
	return strings.HasPrefix(name, "engine:") || !strings.Contains(name, ":")
}

// Register assigns a block id to name from the appropriate pool and
// records its properties. Returns corerr.Capacity when the pool is
// exhausted.
func (r *Registry) Register(name string, props Properties) (uint16, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.nameToID[name]; ok {
		return existing, nil
	}

	var id uint16
	if isEngineName(name) {
		if r.nextEngineID >= engineIDLimit {
			return 0, corerr.Capacityf("too many engine blocks registered (max %d)", engineIDLimit-engineIDStart)
		}
		id = r.nextEngineID
		r.nextEngineID++
		r.log.Debugf("registered engine block %q as id %d", name, id)
	} else {
		if r.nextGameID >= externalIDHigh {
			return 0, corerr.Capacityf("too many external blocks registered (max %d)", externalIDHigh-externalIDLow)
		}
		id = uint16(r.nextGameID)
		r.nextGameID++
		r.log.Debugf("registered external block %q as id %d", name, id)
	}

	r.byID[id] = props
	r.nameToID[name] = id
	r.registrations = append(r.registrations, Registration{ID: id, Name: name, Properties: props})
	return id, nil
}

// Properties returns the properties registered for id, and whether id is
// registered at all.
func (r *Registry) Properties(id uint16) (Properties, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byID[id]
	return p, ok
}

// ID returns the id registered for name.
func (r *Registry) ID(name string) (uint16, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.nameToID[name]
	return id, ok
}

// IsRegistered reports whether id has been registered.
func (r *Registry) IsRegistered(id uint16) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byID[id]
	return ok
}

// List returns a snapshot of all registrations in registration order.
func (r *Registry) List() []Registration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Registration, len(r.registrations))
	copy(out, r.registrations)
	return out
}
