//
// Tencent is pleased to support the open source community by making trpc-artifact-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-artifact-go is licensed under the Apache License Version 2.0.
//
//

package bundler

import "time"

// Request is the wire request sent to the remote bundling service.
type Request struct {
	Source       string `json:"source"`
	ArtifactID   string `json:"artifact_id"`
	SessionID    string `json:"session_id"`
	Title        string `json:"title,omitempty"`
	SkipPrecheck bool   `json:"skip_precheck,omitempty"`
}

// successResponse is the wire shape of a successful bundle.
type successResponse struct {
	BundleURL    string            `json:"bundle_url"`
	DurationMs   int64             `json:"duration_ms"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
}

// failureResponse is the wire shape of a bundling failure. The three
// boolean flags are independent on the wire; classification reduces them
// to one reason.
type failureResponse struct {
	Error             string `json:"error"`
	Detail            string `json:"detail,omitempty"`
	Retryable         bool   `json:"retryable,omitempty"`
	RequiresAuth      bool   `json:"requires_auth,omitempty"`
	RetryAfterSeconds int    `json:"retry_after,omitempty"`
}

// FailureReason classifies a bundling failure for user messaging. Exactly
// one reason applies to any failure.
type FailureReason string

// Failure reasons.
const (
	ReasonNone           FailureReason = ""
	ReasonRetryable      FailureReason = "retryable"
	ReasonSessionExpired FailureReason = "session-expired"
	ReasonRateLimited    FailureReason = "rate-limited"
	ReasonGeneric        FailureReason = "generic"
)

// Result is the outcome of one bundling attempt.
type Result struct {
	Success bool `json:"success"`

	// Set on success.
	BundleURL    string            `json:"bundle_url,omitempty"`
	Duration     time.Duration     `json:"duration,omitempty"`
	Dependencies map[string]string `json:"dependencies,omitempty"`

	// Set on failure.
	Reason     FailureReason `json:"reason,omitempty"`
	Message    string        `json:"message,omitempty"`
	Detail     string        `json:"detail,omitempty"`
	RetryAfter time.Duration `json:"retry_after,omitempty"`

	// FellBack reports that bundling failed but was not strictly
	// required, so the artifact silently degrades to the embedded
	// renderer instead of surfacing an error.
	FellBack bool `json:"fell_back,omitempty"`
}
