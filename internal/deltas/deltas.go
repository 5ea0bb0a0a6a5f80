// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Andrei Valekseev

// Package deltas holds the small persisted store of transient
// synchronization aids: per-service cache keys, preferred redirect hosts,
// the owner's profile snapshot and a bounded cache of display-image blobs
// keyed by content hash.
package deltas

import (
	"sync"

	"github.com/avalekseev/msnab/internal/logger"
	"github.com/avalekseev/msnab/internal/mclfile"
	"github.com/avalekseev/msnab/models"
)

// SchemaVersion tags the persisted deltas model. Bump on incompatible
// changes to the Model struct; old files are then discarded on load.
const SchemaVersion = "1.0"

// userTileCapacity bounds the display-image cache.
const userTileCapacity = 1000

// Model is the persisted shape of the deltas store.
type Model struct {
	CacheKeys      map[models.CacheKeyType]string `json:"cache_keys,omitempty"`
	PreferredHosts map[string]string              `json:"preferred_hosts,omitempty"`

	// UserTileSlots maps image content hash to image bytes; VisitCount is
	// the parallel access counter driving eviction. Outside of an eviction
	// in progress, the two maps always hold the same key set.
	UserTileSlots map[string][]byte `json:"user_tile_slots,omitempty"`
	VisitCount    map[string]uint32 `json:"visit_count,omitempty"`

	// UserImageRelationships maps lowercased account to the content hash of
	// its display image. A relationship pointing at a hash without a slot
	// is stale and ignored.
	UserImageRelationships map[string]string `json:"user_image_relationships,omitempty"`

	Profile models.OwnerProfile `json:"profile,omitempty"`
}

// Deltas is the live store wrapping a Model with its persistence and lock.
// All methods are safe for concurrent use; one mutex covers every
// read-modify-write, matching the coarse-grained discipline of the
// addressbook model.
type Deltas struct {
	mu  sync.Mutex
	m   *Model
	ser *mclfile.Serializer[Model]
	log *logger.Logger

	// recovered is set when loading lost data (corruption, schema drift).
	recovered bool
	reason    error
}

// Load hydrates the deltas store from path through reg. It never fails:
// corruption or schema drift yields an empty store, reported through
// RecoveryState.
func Load(reg *mclfile.Registry, path string, enc mclfile.Encoding, password string, useCache bool, log *logger.Logger) *Deltas {
	ser := mclfile.NewSerializer[Model](reg, path, enc, password, SchemaVersion, log)
	res := ser.Load(useCache)

	d := &Deltas{m: res.Model, ser: ser, log: log, recovered: res.Recovered, reason: res.Reason}
	d.ensureMaps()
	return d
}

// RecoveryState reports whether loading lost data and why. The orchestrator
// reacts to a recovered store with a full resynchronization.
func (d *Deltas) RecoveryState() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.recovered, d.reason
}

func (d *Deltas) ensureMaps() {
	if d.m.CacheKeys == nil {
		d.m.CacheKeys = make(map[models.CacheKeyType]string)
	}
	if d.m.PreferredHosts == nil {
		d.m.PreferredHosts = make(map[string]string)
	}
	if d.m.UserTileSlots == nil {
		d.m.UserTileSlots = make(map[string][]byte)
	}
	if d.m.VisitCount == nil {
		d.m.VisitCount = make(map[string]uint32)
	}
	if d.m.UserImageRelationships == nil {
		d.m.UserImageRelationships = make(map[string]string)
	}
}

// CacheKey returns the stored incremental-fetch key for the given service,
// or "" when none is stored yet.
func (d *Deltas) CacheKey(t models.CacheKeyType) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.m.CacheKeys[t]
}

// SetCacheKey stores the incremental-fetch key for the given service.
// Empty values are ignored so a partial server response cannot erase a
// valid key.
func (d *Deltas) SetCacheKey(t models.CacheKeyType, key string) {
	if key == "" {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.m.CacheKeys[t] = key
}

// PreferredHost returns the redirect host stored for a service method, or
// "" when the default host applies.
func (d *Deltas) PreferredHost(method string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.m.PreferredHosts[method]
}

// SetPreferredHost stores the redirect host for a service method.
func (d *Deltas) SetPreferredHost(method, host string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if host == "" {
		delete(d.m.PreferredHosts, method)
		return
	}
	d.m.PreferredHosts[method] = host
}

// Profile returns the stored owner profile snapshot.
func (d *Deltas) Profile() models.OwnerProfile {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.m.Profile
}

// SetProfile replaces the stored owner profile snapshot.
func (d *Deltas) SetProfile(p models.OwnerProfile) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.m.Profile = p
}

// Save persists the store. Unless force is set, saves within the debounce
// window of the last write are skipped.
func (d *Deltas) Save(force bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ser.Save(d.m, force)
}

// Truncate sheds the transient per-round state (image cache, visit counts,
// profile snapshot) and force-saves the store. The incremental-fetch
// plumbing survives: cache keys and preferred hosts carry over so the next
// round fetches deltas instead of the whole addressbook. Called after every
// full addressbook save.
func (d *Deltas) Truncate() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.m = &Model{CacheKeys: d.m.CacheKeys, PreferredHosts: d.m.PreferredHosts}
	d.ensureMaps()
	return d.ser.Save(d.m, true)
}

// Reset discards the whole store, fetch plumbing included, and force-saves
// it empty. Used when local state is rebuilt by a full resynchronization.
func (d *Deltas) Reset() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.m = &Model{}
	d.ensureMaps()
	d.recovered = false
	d.reason = nil
	return d.ser.Save(d.m, true)
}
