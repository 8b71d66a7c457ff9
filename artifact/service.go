//
// Tencent is pleased to support the open source community by making trpc-artifact-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-artifact-go is licensed under the Apache License Version 2.0.
//
//

package artifact

import "context"

// Service defines the interface for versioned artifact storage.
//
// Every save of a record under the same session and artifact ID appends a
// new revision rather than overwriting, so the full edit history of an
// artifact survives for export.
type Service interface {
	// SaveRevision appends a new revision of the record identified by
	// record.ID within the session and returns the revision number.
	// The first revision of an artifact is 0, incremented by 1 on each
	// successful save.
	SaveRevision(ctx context.Context, sessionInfo SessionInfo, record *Record) (int, error)

	// LoadRevision returns one revision of an artifact, or nil if the
	// artifact does not exist. A nil version selects the latest revision.
	LoadRevision(ctx context.Context, sessionInfo SessionInfo, artifactID string, version *int) (*Record, error)

	// ListKeys lists the artifact IDs present in a session.
	ListKeys(ctx context.Context, sessionInfo SessionInfo) ([]string, error)

	// ListVersions lists all revision numbers stored for an artifact.
	ListVersions(ctx context.Context, sessionInfo SessionInfo, artifactID string) ([]int, error)

	// Delete removes all revisions of an artifact.
	Delete(ctx context.Context, sessionInfo SessionInfo, artifactID string) error
}
