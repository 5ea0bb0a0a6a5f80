package deltas

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avalekseev/msnab/internal/logger"
	"github.com/avalekseev/msnab/internal/mclfile"
	"github.com/avalekseev/msnab/models"
)

func newTestDeltas(t *testing.T) *Deltas {
	t.Helper()
	fs := afero.NewMemMapFs()
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC))
	reg := mclfile.NewRegistry(fs, clock, logger.Nop())
	return Load(reg, "deltas.mcl", mclfile.EncodingCompress, "", false, logger.Nop())
}

func TestDeltas_CacheKeysAndPreferredHosts(t *testing.T) {
	d := newTestDeltas(t)

	assert.Empty(t, d.CacheKey(models.CacheKeyContactService))
	d.SetCacheKey(models.CacheKeyContactService, "ck-1")
	assert.Equal(t, "ck-1", d.CacheKey(models.CacheKeyContactService))

	// An empty key must not erase a stored one.
	d.SetCacheKey(models.CacheKeyContactService, "")
	assert.Equal(t, "ck-1", d.CacheKey(models.CacheKeyContactService))

	d.SetPreferredHost("FindMembership", "by2.contacts.example.com")
	assert.Equal(t, "by2.contacts.example.com", d.PreferredHost("FindMembership"))
	d.SetPreferredHost("FindMembership", "")
	assert.Empty(t, d.PreferredHost("FindMembership"))
}

func TestDeltas_SaveImage_GetImage(t *testing.T) {
	d := newTestDeltas(t)

	require.True(t, d.SaveImage("Alice@Example.COM", "hash-a", []byte("png-a")))
	assert.Equal(t, []byte("png-a"), d.GetImage("alice@example.com"))

	// Lookup is case-insensitive on the account.
	assert.Equal(t, []byte("png-a"), d.GetImage("ALICE@example.com"))

	assert.Nil(t, d.GetImage("nobody@example.com"))
}

func TestDeltas_SaveImage_SharedHashBetweenAccounts(t *testing.T) {
	d := newTestDeltas(t)

	require.True(t, d.SaveImage("alice@example.com", "hash-a", []byte("png-a")))
	require.True(t, d.SaveImage("bob@example.com", "hash-a", []byte("png-a")))

	assert.Equal(t, 1, d.ImageCount())
	assert.Equal(t, []byte("png-a"), d.GetImage("bob@example.com"))
}

// Filling the cache past capacity must keep it at exactly capacity and
// evict an entry whose visit count is minimal at eviction time.
func TestDeltas_Eviction_CapacityBoundAndMinimality(t *testing.T) {
	d := newTestDeltas(t)

	for i := 0; i < 1000; i++ {
		require.True(t, d.SaveImage(fmt.Sprintf("user%d@example.com", i), fmt.Sprintf("hash-%d", i), []byte{byte(i)}))
	}
	require.Equal(t, 1000, d.ImageCount())

	// Warm every image except hash-0 so hash-0 is the unique minimum.
	for i := 1; i < 1000; i++ {
		require.NotNil(t, d.GetImage(fmt.Sprintf("user%d@example.com", i)))
	}

	require.True(t, d.SaveImage("fresh@example.com", "hash-new", []byte("new")))

	assert.Equal(t, 1000, d.ImageCount())
	assert.Nil(t, d.GetImage("user0@example.com"), "the coldest image must have been evicted")
	assert.Equal(t, []byte("new"), d.GetImage("fresh@example.com"))
}

// A relationship left pointing at an evicted hash is treated as stale:
// the lookup misses and the dangling relationship is dropped.
func TestDeltas_StaleRelationshipIsIgnored(t *testing.T) {
	d := newTestDeltas(t)

	require.True(t, d.SaveImage("alice@example.com", "hash-a", []byte("png-a")))
	d.mu.Lock()
	delete(d.m.UserTileSlots, "hash-a")
	delete(d.m.VisitCount, "hash-a")
	d.mu.Unlock()

	assert.Nil(t, d.GetImage("alice@example.com"))

	d.mu.Lock()
	_, stillThere := d.m.UserImageRelationships["alice@example.com"]
	d.mu.Unlock()
	assert.False(t, stillThere)
}

// When a visit counter is about to overflow, all counters collapse to their
// mean instead of wrapping around.
func TestDeltas_VisitCountOverflowRescalesToMean(t *testing.T) {
	d := newTestDeltas(t)

	require.True(t, d.SaveImage("a@example.com", "hash-a", []byte("a")))
	require.True(t, d.SaveImage("b@example.com", "hash-b", []byte("b")))

	d.mu.Lock()
	d.m.VisitCount["hash-a"] = math.MaxUint32
	d.m.VisitCount["hash-b"] = 100
	d.mu.Unlock()

	require.NotNil(t, d.GetImage("a@example.com"))

	d.mu.Lock()
	defer d.mu.Unlock()
	mean := uint32((uint64(math.MaxUint32) + 100) / 2)
	assert.Equal(t, mean+1, d.m.VisitCount["hash-a"], "touched counter is mean plus the new visit")
	assert.Equal(t, mean, d.m.VisitCount["hash-b"])
}

func TestDeltas_SlotAndCounterMapsStayInSync(t *testing.T) {
	d := newTestDeltas(t)

	for i := 0; i < 50; i++ {
		require.True(t, d.SaveImage(fmt.Sprintf("u%d@example.com", i), fmt.Sprintf("h-%d", i), []byte{1}))
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	require.Equal(t, len(d.m.UserTileSlots), len(d.m.VisitCount))
	for h := range d.m.UserTileSlots {
		_, ok := d.m.VisitCount[h]
		assert.True(t, ok, "slot %s has no visit counter", h)
	}
}

// Truncation sheds the per-round state but keeps the fetch plumbing, so a
// store truncated after a round still drives an incremental fetch next time.
func TestDeltas_TruncateKeepsFetchPlumbing(t *testing.T) {
	fs := afero.NewMemMapFs()
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC))
	reg := mclfile.NewRegistry(fs, clock, logger.Nop())

	d := Load(reg, "deltas.mcl", mclfile.EncodingCompress, "", false, logger.Nop())
	d.SetCacheKey(models.CacheKeyContactService, "ck-1")
	d.SetPreferredHost("FindMembership", "by2.contacts.example.com")
	d.SetProfile(models.OwnerProfile{DisplayName: "Alice"})
	require.True(t, d.SaveImage("alice@example.com", "hash-a", []byte("png")))
	require.NoError(t, d.Truncate())

	reloaded := Load(reg, "deltas.mcl", mclfile.EncodingCompress, "", false, logger.Nop())
	assert.Equal(t, "ck-1", reloaded.CacheKey(models.CacheKeyContactService))
	assert.Equal(t, "by2.contacts.example.com", reloaded.PreferredHost("FindMembership"))
	assert.Equal(t, 0, reloaded.ImageCount())
	assert.Empty(t, reloaded.Profile().DisplayName)
	rec, _ := reloaded.RecoveryState()
	assert.False(t, rec)
}

// Reset wipes everything, cache keys included.
func TestDeltas_ResetDropsEverything(t *testing.T) {
	fs := afero.NewMemMapFs()
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC))
	reg := mclfile.NewRegistry(fs, clock, logger.Nop())

	d := Load(reg, "deltas.mcl", mclfile.EncodingCompress, "", false, logger.Nop())
	d.SetCacheKey(models.CacheKeyContactService, "ck-1")
	d.SetPreferredHost("FindMembership", "by2.contacts.example.com")
	require.True(t, d.SaveImage("alice@example.com", "hash-a", []byte("png")))
	require.NoError(t, d.Reset())

	reloaded := Load(reg, "deltas.mcl", mclfile.EncodingCompress, "", false, logger.Nop())
	assert.Empty(t, reloaded.CacheKey(models.CacheKeyContactService))
	assert.Empty(t, reloaded.PreferredHost("FindMembership"))
	assert.Equal(t, 0, reloaded.ImageCount())
}

func TestDeltas_PersistRoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC))
	reg := mclfile.NewRegistry(fs, clock, logger.Nop())

	d := Load(reg, "deltas.mcl", mclfile.EncodingCompress|mclfile.EncodingEncrypt, "pw", false, logger.Nop())
	d.SetCacheKey(models.CacheKeyStorageService, "sk-9")
	d.SetPreferredHost("ABFindContactsPaged", "by1.contacts.example.com")
	d.SetProfile(models.OwnerProfile{DisplayName: "Alice", PersonalMessage: "hi"})
	require.True(t, d.SaveImage("alice@example.com", "hash-a", []byte("png-a")))
	require.NoError(t, d.Save(true))

	reloaded := Load(reg, "deltas.mcl", mclfile.EncodingCompress|mclfile.EncodingEncrypt, "pw", false, logger.Nop())
	assert.Equal(t, "sk-9", reloaded.CacheKey(models.CacheKeyStorageService))
	assert.Equal(t, "by1.contacts.example.com", reloaded.PreferredHost("ABFindContactsPaged"))
	assert.Equal(t, "Alice", reloaded.Profile().DisplayName)
	assert.Equal(t, []byte("png-a"), reloaded.GetImage("alice@example.com"))
}
