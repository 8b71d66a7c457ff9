//
// Tencent is pleased to support the open source community by making trpc-artifact-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-artifact-go is licensed under the Apache License Version 2.0.
//
//

package bundler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-artifact-go/artifact"
)

func newTestRecord(source string) *artifact.Record {
	return &artifact.Record{
		ID:       artifact.ContentID(artifact.KindComponentTree, "id:test"),
		Kind:     artifact.KindComponentTree,
		Title:    "Test",
		Source:   source,
		Complete: true,
	}
}

func newStoreWith(record *artifact.Record) *artifact.Store {
	store := artifact.NewStore()
	store.Upsert(record)
	return store
}

func TestBundleSuccess(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)

		var req Request
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "session-1", req.SessionID)
		assert.NotEmpty(t, req.Source)
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))

		_ = json.NewEncoder(w).Encode(successResponse{
			BundleURL:    "https://bundles.example.com/abc",
			DurationMs:   1200,
			Dependencies: map[string]string{"styled-components": "6.1.0"},
		})
	}))
	defer server.Close()

	client, err := New(server.URL)
	require.NoError(t, err)
	defer client.Close()

	record := newTestRecord(`import "./theme.scss";`)
	store := newStoreWith(record)

	result, err := client.Bundle(context.Background(), store, record, "session-1", true)
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.Equal(t, "https://bundles.example.com/abc", result.BundleURL)
	assert.Equal(t, 1200*time.Millisecond, result.Duration)

	stored := store.Get(record.ID)
	assert.Equal(t, artifact.BundleSuccess, stored.BundleStatus)
	assert.Equal(t, "https://bundles.example.com/abc", stored.BundleURL)
	assert.Equal(t, map[string]string{"styled-components": "6.1.0"}, stored.Dependencies)
	assert.Equal(t, int32(1), calls.Load())
}

func TestBundleSkipPrecheckOnWire(t *testing.T) {
	var sawSkip atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req Request
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		sawSkip.Store(req.SkipPrecheck)
		_ = json.NewEncoder(w).Encode(successResponse{BundleURL: "https://b/x", DurationMs: 5})
	}))
	defer server.Close()

	client, err := New(server.URL, WithSkipPrecheck(true))
	require.NoError(t, err)
	defer client.Close()

	record := newTestRecord(`import "./theme.scss";`)
	store := newStoreWith(record)

	result, err := client.Bundle(context.Background(), store, record, "session-1", true)
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.True(t, sawSkip.Load())
}

func TestBundleDuplicateSuppression(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_ = json.NewEncoder(w).Encode(successResponse{BundleURL: "https://b/x", DurationMs: 10})
	}))
	defer server.Close()

	client, err := New(server.URL)
	require.NoError(t, err)
	defer client.Close()

	record := newTestRecord(`import "./theme.scss";`)
	store := newStoreWith(record)

	first, err := client.Bundle(context.Background(), store, record, "session-1", true)
	require.NoError(t, err)
	second, err := client.Bundle(context.Background(), store, record, "session-1", true)
	require.NoError(t, err)

	// A terminal state for this exact revision suppresses the second call.
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), calls.Load())
}

func TestBundleMissingSessionShortCircuits(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	var transitions []artifact.BundleStatus
	client, err := New(server.URL, WithStatusCallback(func(_ string, status artifact.BundleStatus) {
		transitions = append(transitions, status)
	}))
	require.NoError(t, err)
	defer client.Close()

	record := newTestRecord(`import "./theme.scss";`)
	store := newStoreWith(record)

	result, err := client.Bundle(context.Background(), store, record, "", true)
	require.NoError(t, err)

	require.False(t, result.Success)
	assert.Equal(t, ReasonSessionExpired, result.Reason)
	// idle → error, with zero network calls and no bundling state.
	assert.Equal(t, int32(0), calls.Load())
	assert.Equal(t, []artifact.BundleStatus{artifact.BundleError}, transitions)
	assert.Equal(t, artifact.BundleError, store.Get(record.ID).BundleStatus)
}

func TestBundleFailureClassification(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       failureResponse
		wantReason FailureReason
	}{
		{
			name:       "explicit auth flag",
			status:     http.StatusBadRequest,
			body:       failureResponse{Error: "token invalid", RequiresAuth: true},
			wantReason: ReasonSessionExpired,
		},
		{
			name:       "unauthorized status",
			status:     http.StatusUnauthorized,
			body:       failureResponse{Error: "no token"},
			wantReason: ReasonSessionExpired,
		},
		{
			name:       "rate limited with hint",
			status:     http.StatusTooManyRequests,
			body:       failureResponse{Error: "slow down", RetryAfterSeconds: 30},
			wantReason: ReasonRateLimited,
		},
		{
			name:       "explicit retryable flag",
			status:     http.StatusBadRequest,
			body:       failureResponse{Error: "transient", Retryable: true},
			wantReason: ReasonRetryable,
		},
		{
			name:       "server error is retryable",
			status:     http.StatusBadGateway,
			body:       failureResponse{Error: "upstream died"},
			wantReason: ReasonRetryable,
		},
		{
			name:       "plain rejection is generic",
			status:     http.StatusBadRequest,
			body:       failureResponse{Error: "unsupported package"},
			wantReason: ReasonGeneric,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_ = json.NewEncoder(w).Encode(tt.body)
			}))
			defer server.Close()

			client, err := New(server.URL)
			require.NoError(t, err)
			defer client.Close()

			record := newTestRecord(`import "./x.scss"; // ` + tt.name)
			store := newStoreWith(record)

			result, err := client.Bundle(context.Background(), store, record, "session-1", true)
			require.NoError(t, err)

			require.False(t, result.Success)
			assert.Equal(t, tt.wantReason, result.Reason)
			assert.Equal(t, tt.body.Error, result.Message)
			assert.Equal(t, artifact.BundleError, store.Get(record.ID).BundleStatus)
			if tt.body.RetryAfterSeconds > 0 {
				assert.Equal(t, time.Duration(tt.body.RetryAfterSeconds)*time.Second, result.RetryAfter)
			}
		})
	}
}

func TestBundleNotRequiredFallsBackSilently(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(failureResponse{Error: "unsupported package"})
	}))
	defer server.Close()

	client, err := New(server.URL)
	require.NoError(t, err)
	defer client.Close()

	record := newTestRecord(`import confetti from "canvas-confetti";`)
	store := newStoreWith(record)

	result, err := client.Bundle(context.Background(), store, record, "session-1", false)
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.True(t, result.FellBack)
	// No user-visible error: the record quietly returns to idle for the
	// embedded renderer.
	stored := store.Get(record.ID)
	assert.Equal(t, artifact.BundleIdle, stored.BundleStatus)
	assert.Empty(t, stored.LastError)
}

func TestBundleUnreachableServiceIsRetryable(t *testing.T) {
	client, err := New("http://127.0.0.1:1", WithTimeout(500*time.Millisecond))
	require.NoError(t, err)
	defer client.Close()

	record := newTestRecord(`import "./x.scss";`)
	store := newStoreWith(record)

	result, err := client.Bundle(context.Background(), store, record, "session-1", true)
	require.NoError(t, err)

	require.False(t, result.Success)
	assert.Equal(t, ReasonRetryable, result.Reason)
}

func TestBundleCanceledContextDiscardsSilently(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		_ = json.NewEncoder(w).Encode(successResponse{BundleURL: "https://b/x"})
	}))
	defer server.Close()
	defer close(release)

	var notified atomic.Int32
	client, err := New(server.URL, WithStatusCallback(func(_ string, status artifact.BundleStatus) {
		if status == artifact.BundleSuccess || status == artifact.BundleError {
			notified.Add(1)
		}
	}))
	require.NoError(t, err)
	defer client.Close()

	record := newTestRecord(`import "./x.scss";`)
	store := newStoreWith(record)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	// Depending on whether cancellation or the abandoned task wins the
	// race, the caller sees Canceled or ErrAbandoned; never a nil result
	// with a nil error.
	result, err := client.Bundle(ctx, store, record, "session-1", true)
	assert.Nil(t, result)
	assert.True(t, errors.Is(err, context.Canceled) || errors.Is(err, ErrAbandoned), "got %v", err)

	// The torn-down view never hears about a terminal state.
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(0), notified.Load())
	assert.NotEqual(t, artifact.BundleSuccess, store.Get(record.ID).BundleStatus)
}

func TestBundlePreCanceledContextReturnsAbandoned(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	client, err := New(server.URL)
	require.NoError(t, err)
	defer client.Close()

	record := newTestRecord(`import "./x.scss";`)
	store := newStoreWith(record)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := client.Bundle(ctx, store, record, "session-1", true)
	assert.Nil(t, result)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled) || errors.Is(err, ErrAbandoned), "got %v", err)

	// The worker sees the dead context before touching the store, so the
	// revision keeps no state and may be retried later.
	assert.Equal(t, int32(0), calls.Load())
	assert.Nil(t, client.State(record.RevisionHash()))
	assert.Equal(t, artifact.BundleIdle, store.Get(record.ID).BundleStatus)
}

func TestBundleSequentialOrdering(t *testing.T) {
	var active atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, int32(1), active.Add(1), "remote calls must not overlap")
		time.Sleep(20 * time.Millisecond)
		active.Add(-1)
		_ = json.NewEncoder(w).Encode(successResponse{BundleURL: "https://b/x", DurationMs: 1})
	}))
	defer server.Close()

	client, err := New(server.URL)
	require.NoError(t, err)
	defer client.Close()

	store := artifact.NewStore()
	done := make(chan struct{}, 3)
	for i := 0; i < 3; i++ {
		record := &artifact.Record{
			ID:       artifact.ContentID(artifact.KindComponentTree, string(rune('a'+i))),
			Kind:     artifact.KindComponentTree,
			Source:   `import "./x.scss"; // ` + string(rune('a'+i)),
			Complete: true,
		}
		store.Upsert(record)
		go func(r *artifact.Record) {
			_, err := client.Bundle(context.Background(), store, r, "session-1", true)
			assert.NoError(t, err)
			done <- struct{}{}
		}(record)
	}
	for i := 0; i < 3; i++ {
		<-done
	}
}
