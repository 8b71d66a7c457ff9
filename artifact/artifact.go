//
// Tencent is pleased to support the open source community by making trpc-artifact-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-artifact-go is licensed under the Apache License Version 2.0.
//
//

// Package artifact defines the records produced by the extraction pipeline
// and the storage service used to version them.
package artifact

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Kind classifies what an artifact contains and therefore how it is
// validated and rendered.
type Kind string

// Supported artifact kinds.
const (
	KindMarkup        Kind = "markup"
	KindScript        Kind = "script"
	KindComponentTree Kind = "component-tree"
	KindDiagram       Kind = "diagram"
	KindDocument      Kind = "document"
	KindImage         Kind = "image"
)

// BundleStatus tracks the remote bundling state of a record.
type BundleStatus string

// Bundling states. A record starts at BundleIdle and moves through
// BundleRunning to exactly one of the terminal states.
const (
	BundleIdle    BundleStatus = "idle"
	BundleRunning BundleStatus = "bundling"
	BundleSuccess BundleStatus = "success"
	BundleError   BundleStatus = "error"
)

// Record is one artifact sighted in a streaming assistant message.
//
// A record is created when the extractor first sees an opening marker,
// mutated in place as streamed text appends to its source (Complete flips
// when the closing marker arrives), and mutated again when remote bundling
// finishes. Completed records persist for the life of the session; an
// incomplete record is superseded when a later extraction pass no longer
// sights it.
type Record struct {
	// ID is derived from the artifact content, not its position in the
	// message, so a replayed stream re-parses to the same identity.
	ID    string `json:"id"`
	Kind  Kind   `json:"kind"`
	Title string `json:"title,omitempty"`
	// Source is the raw text between the artifact markers.
	Source string `json:"source"`
	// Complete reports whether the closing marker has been seen.
	Complete bool `json:"complete"`

	// Fields below are filled in by the bundling client.
	BundleURL      string            `json:"bundle_url,omitempty"`
	BundleDuration time.Duration     `json:"bundle_duration,omitempty"`
	Dependencies   map[string]string `json:"dependencies,omitempty"`
	BundleStatus   BundleStatus      `json:"bundle_status,omitempty"`
	LastError      string            `json:"last_error,omitempty"`
}

// SessionInfo identifies the session an artifact belongs to for storage
// operations.
type SessionInfo struct {
	// AppName is the name of the application.
	AppName string
	// UserID is the ID of the user.
	UserID string
	// SessionID is the ID of the session.
	SessionID string
}

// RevisionHash identifies this exact revision of the record's source.
// Unlike ID, which stays stable while an artifact streams in, the revision
// hash changes whenever the source changes.
func (r *Record) RevisionHash() string {
	return ContentID(r.Kind, r.Source)
}

// ContentID computes the stable identifier for an artifact revision.
// Identical (kind, source) pairs always hash to the same ID, which keeps
// artifact identity stable when a stream is replayed or re-chunked.
func ContentID(kind Kind, source string) string {
	h := sha256.New()
	h.Write([]byte(string(kind)))
	h.Write([]byte{0})
	h.Write([]byte(source))
	return "art-" + hex.EncodeToString(h.Sum(nil))[:16]
}
