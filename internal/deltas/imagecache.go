// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Andrei Valekseev

package deltas

import (
	"math"
	"strings"
)

// SaveImage stores a display image under its content hash and points the
// account's relationship at it. When the cache already holds
// userTileCapacity images, the entry with the minimum visit count is
// evicted first; the tie-break between equal-minimum entries is arbitrary
// (map iteration order), not LRU. Returns false when the cache is full and
// no eviction candidate exists.
func (d *Deltas) SaveImage(account, contentHash string, data []byte) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	account = strings.ToLower(account)

	if _, ok := d.m.UserTileSlots[contentHash]; ok {
		d.touch(contentHash)
		d.m.UserImageRelationships[account] = contentHash
		return true
	}

	if len(d.m.UserTileSlots) >= userTileCapacity {
		if !d.evictColdest() {
			d.log.Warn().Str("hash", contentHash).Msg("user tile cache full, no eviction candidate")
			return false
		}
	}

	d.m.UserTileSlots[contentHash] = data
	d.m.VisitCount[contentHash] = 1
	d.m.UserImageRelationships[account] = contentHash
	return true
}

// GetImage returns the display image associated with the account, or nil
// when none is cached. A relationship pointing at an evicted hash is
// dropped as stale. Each hit bumps the image's visit counter.
func (d *Deltas) GetImage(account string) []byte {
	d.mu.Lock()
	defer d.mu.Unlock()

	account = strings.ToLower(account)

	hash, ok := d.m.UserImageRelationships[account]
	if !ok {
		return nil
	}

	data, ok := d.m.UserTileSlots[hash]
	if !ok {
		// The slot was evicted after the relationship was written.
		delete(d.m.UserImageRelationships, account)
		return nil
	}

	d.touch(hash)
	return data
}

// ImageCount reports the number of cached display images.
func (d *Deltas) ImageCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.m.UserTileSlots)
}

// touch increments a visit counter, rescaling all counters when the
// increment would overflow. The rescale divides every counter down to the
// mean (zeroing everything in the degenerate case), which keeps relative
// cold/hot information approximately intact in a long-running process.
func (d *Deltas) touch(hash string) {
	if d.m.VisitCount[hash] == math.MaxUint32 {
		d.rescaleVisitCounts()
	}
	d.m.VisitCount[hash]++
}

func (d *Deltas) rescaleVisitCounts() {
	n := uint64(len(d.m.VisitCount))
	if n == 0 {
		return
	}

	var sum uint64
	for _, c := range d.m.VisitCount {
		sum += uint64(c)
	}

	mean := sum / n
	if mean >= math.MaxUint32 {
		mean = 0
	}
	for h := range d.m.VisitCount {
		d.m.VisitCount[h] = uint32(mean)
	}
}

// evictColdest removes the image with the minimum visit count together with
// its counter and every relationship pointing at it. Returns false when the
// counter map is empty.
func (d *Deltas) evictColdest() bool {
	victim := ""
	min := uint32(math.MaxUint32)
	found := false
	for h, c := range d.m.VisitCount {
		if !found || c < min {
			victim, min, found = h, c, true
		}
	}
	if !found {
		return false
	}

	delete(d.m.UserTileSlots, victim)
	delete(d.m.VisitCount, victim)
	for account, h := range d.m.UserImageRelationships {
		if h == victim {
			delete(d.m.UserImageRelationships, account)
		}
	}
	return true
}
