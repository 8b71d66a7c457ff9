//
// Tencent is pleased to support the open source community by making trpc-artifact-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-artifact-go is licensed under the Apache License Version 2.0.
//
//

// Package bundler delegates dependency resolution that exceeds local
// CDN-style resolution to a remote bundling service, tracking a state
// machine per artifact revision: idle → bundling → success | error.
package bundler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"trpc.group/trpc-go/trpc-artifact-go/artifact"
	"trpc.group/trpc-go/trpc-artifact-go/log"
	"trpc.group/trpc-go/trpc-artifact-go/telemetry/trace"
)

// DefaultTimeout bounds one remote bundling call. A timeout classifies as
// a retryable failure.
const DefaultTimeout = 60 * time.Second

// ErrAbandoned reports a bundling attempt discarded before reaching a
// terminal state, typically because the submitting context was canceled
// mid-flight. The revision's state entry is dropped, so a later render
// may retry it.
var ErrAbandoned = errors.New("bundling attempt abandoned")

// StatusCallback is invoked after each bundling state transition. It is
// never invoked once the submitting context is done.
type StatusCallback func(artifactID string, status artifact.BundleStatus)

// Client is the bundling client for one session. Each pipeline owns its
// own Client, so bundling state never leaks between sessions.
type Client struct {
	endpoint     string
	httpClient   *http.Client
	onStatus     StatusCallback
	skipPrecheck bool

	// pool has exactly one worker: artifacts bundle sequentially, which
	// bounds outbound request concurrency and keeps status callbacks
	// ordered.
	pool *ants.Pool

	mu     sync.Mutex
	states map[string]*bundleState // keyed by revision hash
}

type bundleState struct {
	done   chan struct{}
	result *Result
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the remote call timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithHTTPClient replaces the HTTP client used for bundling calls.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithStatusCallback registers a callback observing state transitions.
func WithStatusCallback(cb StatusCallback) Option {
	return func(c *Client) {
		c.onStatus = cb
	}
}

// WithSkipPrecheck asks the service to skip its pre-bundle source checks.
// Sources arriving here have already passed local validation, so trusted
// deployments can trade the duplicate check for latency.
func WithSkipPrecheck(skip bool) Option {
	return func(c *Client) {
		c.skipPrecheck = skip
	}
}

// New creates a bundling client talking to the given service endpoint.
func New(endpoint string, opts ...Option) (*Client, error) {
	pool, err := ants.NewPool(1)
	if err != nil {
		return nil, fmt.Errorf("failed to create bundling pool: %w", err)
	}
	c := &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		pool:       pool,
		states:     make(map[string]*bundleState),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Close releases the client's worker pool.
func (c *Client) Close() {
	c.pool.Release()
}

// State returns the recorded result for a revision hash, or nil if the
// revision has never reached a terminal state.
func (c *Client) State(revisionHash string) *Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	if st, ok := c.states[revisionHash]; ok {
		select {
		case <-st.done:
			return st.result
		default:
		}
	}
	return nil
}

// Bundle runs one bundling attempt for the record's current revision and
// merges the outcome into the store.
//
// A revision that already reached a terminal state is returned as-is
// without a second remote call. An empty session ID short-circuits to a
// session-expired error with zero network calls. When required is false, a
// failure degrades silently (FellBack) instead of marking the record
// unbundleable.
//
// The context is checked before every state mutation and callback: if the
// owning view is torn down mid-request, the attempt is discarded and
// Bundle returns ErrAbandoned.
func (c *Client) Bundle(ctx context.Context, store *artifact.Store, record *artifact.Record, sessionID string, required bool) (*Result, error) {
	hash := record.RevisionHash()

	c.mu.Lock()
	if st, ok := c.states[hash]; ok {
		c.mu.Unlock()
		select {
		case <-st.done:
			if st.result == nil {
				return nil, ErrAbandoned
			}
			log.Debugf("bundler: suppressing duplicate bundle call for revision %s", hash)
			return st.result, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	st := &bundleState{done: make(chan struct{})}
	c.states[hash] = st
	c.mu.Unlock()

	// The session ID is mandatory and distinct from any message-scoped
	// ID; without it the service would reject the call anyway, so fail
	// locally without touching the network.
	if sessionID == "" {
		result := &Result{
			Reason:  ReasonSessionExpired,
			Message: "your session has expired; sign in again to bundle this artifact",
		}
		c.finish(ctx, store, record, st, result, required)
		return st.result, nil
	}

	if err := c.pool.Submit(func() {
		c.run(ctx, store, record, sessionID, st, required)
	}); err != nil {
		c.abandon(hash, st)
		return nil, fmt.Errorf("failed to submit bundling task: %w", err)
	}

	select {
	case <-st.done:
		if st.result == nil {
			return nil, ErrAbandoned
		}
		return st.result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Client) run(ctx context.Context, store *artifact.Store, record *artifact.Record, sessionID string, st *bundleState, required bool) {
	hash := record.RevisionHash()

	if ctx.Err() != nil {
		log.Debugf("bundler: context done before bundling %s, discarding", record.ID)
		c.abandon(hash, st)
		return
	}

	if err := store.SetBundleStatus(record.ID, artifact.BundleRunning); err != nil {
		log.Errorf("bundler: %v", err)
		c.abandon(hash, st)
		return
	}
	c.notify(ctx, record.ID, artifact.BundleRunning)

	ctx, span := trace.Tracer.Start(ctx, "bundler.remote_bundle")
	span.SetAttributes(
		attribute.String("artifact.id", record.ID),
		attribute.String("artifact.kind", string(record.Kind)),
	)
	result := c.call(ctx, record, sessionID)
	if !result.Success {
		span.SetStatus(codes.Error, result.Message)
	}
	span.End()

	if ctx.Err() != nil {
		// The owning view went away while the request was in flight.
		log.Debugf("bundler: context done after bundling %s, discarding result", record.ID)
		c.abandon(hash, st)
		return
	}

	c.finish(ctx, store, record, st, result, required)
}

// finish applies a terminal result to the store and closes the state.
func (c *Client) finish(ctx context.Context, store *artifact.Store, record *artifact.Record, st *bundleState, result *Result, required bool) {
	switch {
	case result.Success:
		if err := store.MergeBundleSuccess(record.ID, result.BundleURL, result.Duration, result.Dependencies); err != nil {
			log.Errorf("bundler: %v", err)
		}
		c.notify(ctx, record.ID, artifact.BundleSuccess)
	case !required:
		// Bundling was opportunistic; fall back to the embedded
		// renderer without surfacing anything to the user.
		result.FellBack = true
		log.Infof("bundler: falling back to embedded rendering for %s: %s", record.ID, result.Message)
		if err := store.SetBundleStatus(record.ID, artifact.BundleIdle); err != nil {
			log.Errorf("bundler: %v", err)
		}
		c.notify(ctx, record.ID, artifact.BundleIdle)
	default:
		if err := store.MergeBundleError(record.ID, result.Message); err != nil {
			log.Errorf("bundler: %v", err)
		}
		c.notify(ctx, record.ID, artifact.BundleError)
	}

	st.result = result
	close(st.done)
}

// abandon drops a state entry without recording a terminal result, so a
// later render may retry the revision.
func (c *Client) abandon(hash string, st *bundleState) {
	c.mu.Lock()
	delete(c.states, hash)
	c.mu.Unlock()
	st.result = nil
	close(st.done)
}

func (c *Client) notify(ctx context.Context, artifactID string, status artifact.BundleStatus) {
	if c.onStatus == nil || ctx.Err() != nil {
		return
	}
	c.onStatus(artifactID, status)
}

// call performs the remote bundling request and classifies the outcome.
func (c *Client) call(ctx context.Context, record *artifact.Record, sessionID string) *Result {
	payload, err := json.Marshal(Request{
		Source:       record.Source,
		ArtifactID:   record.ID,
		SessionID:    sessionID,
		Title:        record.Title,
		SkipPrecheck: c.skipPrecheck,
	})
	if err != nil {
		return &Result{Reason: ReasonGeneric, Message: "failed to encode bundle request", Detail: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return &Result{Reason: ReasonGeneric, Message: "failed to build bundle request", Detail: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Timeouts and transport drops are transient; retry is the right
		// user guidance for both.
		if errors.Is(err, context.Canceled) {
			return &Result{Reason: ReasonGeneric, Message: "bundle request canceled"}
		}
		return &Result{Reason: ReasonRetryable, Message: "bundling service unreachable", Detail: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Result{Reason: ReasonRetryable, Message: "failed to read bundle response", Detail: err.Error()}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		var ok successResponse
		if err := json.Unmarshal(body, &ok); err != nil {
			return &Result{Reason: ReasonGeneric, Message: "malformed bundle response", Detail: err.Error()}
		}
		duration := time.Duration(ok.DurationMs) * time.Millisecond
		if duration == 0 {
			duration = time.Since(start)
		}
		return &Result{
			Success:      true,
			BundleURL:    ok.BundleURL,
			Duration:     duration,
			Dependencies: ok.Dependencies,
		}
	}

	return classifyFailure(resp, body)
}

// classifyFailure reduces a failure response to exactly one reason. The
// wire flags are independent; precedence is auth, then rate limit, then
// retryable, because each later reason's guidance is useless if an earlier
// one applies.
func classifyFailure(resp *http.Response, body []byte) *Result {
	var fail failureResponse
	_ = json.Unmarshal(body, &fail)

	message := fail.Error
	if message == "" {
		message = fmt.Sprintf("bundling service returned status %d", resp.StatusCode)
	}
	result := &Result{Message: message, Detail: fail.Detail}

	retryAfter := time.Duration(fail.RetryAfterSeconds) * time.Second
	if retryAfter == 0 {
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil {
			retryAfter = time.Duration(secs) * time.Second
		}
	}

	switch {
	case fail.RequiresAuth || resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		result.Reason = ReasonSessionExpired
	case retryAfter > 0 || resp.StatusCode == http.StatusTooManyRequests:
		result.Reason = ReasonRateLimited
		result.RetryAfter = retryAfter
	case fail.Retryable || resp.StatusCode >= 500:
		result.Reason = ReasonRetryable
	default:
		result.Reason = ReasonGeneric
	}
	return result
}
