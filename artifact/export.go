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
	"context"
	"encoding/json"
	"fmt"
)

// ExportSchemaVersion identifies the interchange format emitted by Export.
const ExportSchemaVersion = 1

// ExportBundle is the machine-readable interchange form of an artifact:
// the current record plus every stored revision of its source.
type ExportBundle struct {
	SchemaVersion int       `json:"schema_version"`
	Record        *Record   `json:"record"`
	History       []*Record `json:"history,omitempty"`
}

// Export assembles the interchange bundle for a record, pulling its full
// revision history from the storage service. A nil service exports the
// record alone. Output is deterministic for identical inputs.
func Export(ctx context.Context, svc Service, sessionInfo SessionInfo, record *Record) ([]byte, error) {
	bundle := ExportBundle{
		SchemaVersion: ExportSchemaVersion,
		Record:        record,
	}

	if svc != nil {
		versions, err := svc.ListVersions(ctx, sessionInfo, record.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list versions: %w", err)
		}
		for _, v := range versions {
			version := v
			revision, err := svc.LoadRevision(ctx, sessionInfo, record.ID, &version)
			if err != nil {
				return nil, fmt.Errorf("failed to load revision %d: %w", v, err)
			}
			if revision != nil {
				bundle.History = append(bundle.History, revision)
			}
		}
	}

	data, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode export bundle: %w", err)
	}
	return data, nil
}
