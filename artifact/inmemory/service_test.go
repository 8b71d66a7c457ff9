//
// Tencent is pleased to support the open source community by making trpc-artifact-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-artifact-go is licensed under the Apache License Version 2.0.
//
//

package inmemory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-artifact-go/artifact"
)

var testSession = artifact.SessionInfo{
	AppName:   "chat",
	UserID:    "u1",
	SessionID: "s1",
}

func TestSaveAndLoadRevision(t *testing.T) {
	ctx := context.Background()
	svc := NewService()

	record := &artifact.Record{ID: "art-1", Kind: artifact.KindDocument, Source: "first", Complete: true}
	version, err := svc.SaveRevision(ctx, testSession, record)
	require.NoError(t, err)
	assert.Equal(t, 0, version)

	record.Source = "second"
	version, err = svc.SaveRevision(ctx, testSession, record)
	require.NoError(t, err)
	assert.Equal(t, 1, version)

	// Latest by default.
	got, err := svc.LoadRevision(ctx, testSession, "art-1", nil)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "second", got.Source)

	// Explicit version selects the historical revision.
	v0 := 0
	got, err = svc.LoadRevision(ctx, testSession, "art-1", &v0)
	require.NoError(t, err)
	assert.Equal(t, "first", got.Source)

	v9 := 9
	_, err = svc.LoadRevision(ctx, testSession, "art-1", &v9)
	assert.Error(t, err)
}

func TestLoadMissingReturnsNil(t *testing.T) {
	svc := NewService()
	got, err := svc.LoadRevision(context.Background(), testSession, "art-none", nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSaveClonesRecord(t *testing.T) {
	ctx := context.Background()
	svc := NewService()

	record := &artifact.Record{ID: "art-1", Kind: artifact.KindDocument, Source: "original"}
	_, err := svc.SaveRevision(ctx, testSession, record)
	require.NoError(t, err)

	record.Source = "mutated after save"
	got, err := svc.LoadRevision(ctx, testSession, "art-1", nil)
	require.NoError(t, err)
	assert.Equal(t, "original", got.Source)
}

func TestListKeysAndVersions(t *testing.T) {
	ctx := context.Background()
	svc := NewService()

	for _, id := range []string{"art-b", "art-a"} {
		_, err := svc.SaveRevision(ctx, testSession, &artifact.Record{ID: id, Kind: artifact.KindMarkup, Source: "x"})
		require.NoError(t, err)
	}
	_, err := svc.SaveRevision(ctx, testSession, &artifact.Record{ID: "art-a", Kind: artifact.KindMarkup, Source: "y"})
	require.NoError(t, err)

	// A different session sees none of it.
	other := artifact.SessionInfo{AppName: "chat", UserID: "u1", SessionID: "s2"}
	_, err = svc.SaveRevision(ctx, other, &artifact.Record{ID: "art-z", Kind: artifact.KindMarkup, Source: "z"})
	require.NoError(t, err)

	keys, err := svc.ListKeys(ctx, testSession)
	require.NoError(t, err)
	assert.Equal(t, []string{"art-a", "art-b"}, keys)

	versions, err := svc.ListVersions(ctx, testSession, "art-a")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, versions)

	versions, err = svc.ListVersions(ctx, testSession, "art-none")
	require.NoError(t, err)
	assert.Empty(t, versions)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	svc := NewService()

	_, err := svc.SaveRevision(ctx, testSession, &artifact.Record{ID: "art-1", Kind: artifact.KindMarkup, Source: "x"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, testSession, "art-1"))
	got, err := svc.LoadRevision(ctx, testSession, "art-1", nil)
	require.NoError(t, err)
	assert.Nil(t, got)

	// Deleting an absent artifact is a no-op.
	require.NoError(t, svc.Delete(ctx, testSession, "art-1"))
}

func TestExportIncludesHistory(t *testing.T) {
	ctx := context.Background()
	svc := NewService()

	record := &artifact.Record{ID: "art-1", Kind: artifact.KindDocument, Source: "v1", Complete: true}
	_, err := svc.SaveRevision(ctx, testSession, record)
	require.NoError(t, err)
	record.Source = "v2"
	_, err = svc.SaveRevision(ctx, testSession, record)
	require.NoError(t, err)

	first, err := artifact.Export(ctx, svc, testSession, record)
	require.NoError(t, err)
	second, err := artifact.Export(ctx, svc, testSession, record)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Contains(t, string(first), `"schema_version": 1`)
	assert.Contains(t, string(first), `"v1"`)
	assert.Contains(t, string(first), `"v2"`)
}
