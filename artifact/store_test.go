//
// Tencent is pleased to support the open source community by making trpc-artifact-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-artifact-go is licensed under the Apache License Version 2.0.
//
//

package artifact

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentIDStable(t *testing.T) {
	a := ContentID(KindMarkup, "<div></div>")
	b := ContentID(KindMarkup, "<div></div>")
	assert.Equal(t, a, b)
	assert.Regexp(t, `^art-[0-9a-f]{16}$`, a)

	// Kind participates in identity, not just source.
	assert.NotEqual(t, a, ContentID(KindScript, "<div></div>"))
	assert.NotEqual(t, a, ContentID(KindMarkup, "<span></span>"))
}

func TestStoreUpsertPreservesBundleState(t *testing.T) {
	store := NewStore()

	record := &Record{ID: "art-1", Kind: KindComponentTree, Source: "v1", Complete: false}
	stored := store.Upsert(record)
	assert.Equal(t, BundleIdle, stored.BundleStatus)

	require.NoError(t, store.MergeBundleSuccess("art-1", "https://b/x", 2*time.Second, map[string]string{"d3": "7.8.5"}))

	// Re-sighting the artifact with fresh extraction output refreshes the
	// content fields but keeps the merged bundle result.
	updated := store.Upsert(&Record{ID: "art-1", Kind: KindComponentTree, Title: "Chart", Source: "v2", Complete: true})
	assert.Equal(t, stored.ID, updated.ID)
	assert.Equal(t, "v2", updated.Source)
	assert.Equal(t, "Chart", updated.Title)
	assert.True(t, updated.Complete)
	assert.Equal(t, BundleSuccess, updated.BundleStatus)
	assert.Equal(t, "https://b/x", updated.BundleURL)
	assert.Equal(t, 2*time.Second, updated.BundleDuration)
}

func TestStoreUpsertClonesInput(t *testing.T) {
	store := NewStore()
	record := &Record{ID: "art-1", Kind: KindMarkup, Source: "v1"}
	stored := store.Upsert(record)

	record.Source = "mutated by caller"
	assert.Equal(t, "v1", stored.Source)
}

func TestStoreReturnsDetachedSnapshots(t *testing.T) {
	store := NewStore()
	store.Upsert(&Record{ID: "art-1", Kind: KindComponentTree, Source: "v1", Dependencies: map[string]string{"d3": "7.8.5"}})

	// Mutating a returned record must not reach the store, so snapshots
	// can be encoded concurrently with bundle-state merges.
	got := store.Get("art-1")
	got.Source = "scribbled"
	got.BundleStatus = BundleError
	got.Dependencies["d3"] = "0.0.0"

	fresh := store.Get("art-1")
	assert.Equal(t, "v1", fresh.Source)
	assert.Equal(t, BundleIdle, fresh.BundleStatus)
	assert.Equal(t, "7.8.5", fresh.Dependencies["d3"])

	listed := store.List()
	require.Len(t, listed, 1)
	listed[0].Title = "scribbled"
	assert.Empty(t, store.Get("art-1").Title)
}

func TestStoreSupersedeDropsStalePartials(t *testing.T) {
	store := NewStore()
	store.Upsert(&Record{ID: "art-stale", Kind: KindMarkup, Source: "<div", Complete: false})
	store.Upsert(&Record{ID: "art-done", Kind: KindMarkup, Source: "<p></p>", Complete: true})
	store.Upsert(&Record{ID: "art-live", Kind: KindMarkup, Source: "<span", Complete: false})

	// Only art-live was re-sighted by the latest pass: the stale partial
	// goes, the completed record from an earlier message stays.
	store.Supersede(map[string]bool{"art-live": true})

	assert.Nil(t, store.Get("art-stale"))
	assert.NotNil(t, store.Get("art-done"))
	assert.NotNil(t, store.Get("art-live"))

	records := store.List()
	require.Len(t, records, 2)
	assert.Equal(t, "art-done", records[0].ID)
	assert.Equal(t, "art-live", records[1].ID)
}

func TestStoreListOrder(t *testing.T) {
	store := NewStore()
	store.Upsert(&Record{ID: "art-b", Kind: KindMarkup, Source: "b"})
	store.Upsert(&Record{ID: "art-a", Kind: KindMarkup, Source: "a"})
	store.Upsert(&Record{ID: "art-b", Kind: KindMarkup, Source: "b2"})

	records := store.List()
	require.Len(t, records, 2)
	assert.Equal(t, "art-b", records[0].ID)
	assert.Equal(t, "art-a", records[1].ID)
	assert.Equal(t, 2, store.Len())
}

func TestStoreBundleTransitions(t *testing.T) {
	store := NewStore()
	store.Upsert(&Record{ID: "art-1", Kind: KindComponentTree, Source: "x"})

	require.NoError(t, store.SetBundleStatus("art-1", BundleRunning))
	assert.Equal(t, BundleRunning, store.Get("art-1").BundleStatus)

	require.NoError(t, store.MergeBundleError("art-1", "unsupported package"))
	got := store.Get("art-1")
	assert.Equal(t, BundleError, got.BundleStatus)
	assert.Equal(t, "unsupported package", got.LastError)

	// A later success clears the recorded error.
	require.NoError(t, store.MergeBundleSuccess("art-1", "https://b/x", time.Second, nil))
	got = store.Get("art-1")
	assert.Equal(t, BundleSuccess, got.BundleStatus)
	assert.Empty(t, got.LastError)

	assert.Error(t, store.SetBundleStatus("art-missing", BundleRunning))
	assert.Error(t, store.MergeBundleSuccess("art-missing", "", 0, nil))
	assert.Error(t, store.MergeBundleError("art-missing", ""))
}

func TestRevisionHashTracksSource(t *testing.T) {
	record := &Record{ID: "art-1", Kind: KindScript, Source: "console.log(1);"}
	h1 := record.RevisionHash()
	record.Source = "console.log(2);"
	assert.NotEqual(t, h1, record.RevisionHash())
}
