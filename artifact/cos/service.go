//
// Tencent is pleased to support the open source community by making trpc-artifact-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-artifact-go is licensed under the Apache License Version 2.0.
//
//

// Package cos provides a Tencent Cloud Object Storage (COS) implementation
// of the artifact storage service. Each revision of an artifact record is
// stored as a JSON object under:
//
//	{app_name}/{user_id}/{session_id}/{artifact_id}/{version}
//
// Credentials come from the COS_SECRETID and COS_SECRETKEY environment
// variables, or from the WithSecretID / WithSecretKey options.
package cos

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	cos "github.com/tencentyun/cos-go-sdk-v5"

	"trpc.group/trpc-go/trpc-artifact-go/artifact"
	iartifact "trpc.group/trpc-go/trpc-artifact-go/internal/artifact"
)

const defaultTimeout = 60 * time.Second

const revisionMimeType = "application/json"

// Service is a COS-backed implementation of the artifact storage service.
type Service struct {
	store revisionClient
}

// NewService creates a COS artifact storage service for one bucket.
//
//	service, err := cos.NewService("https://bucket.cos.region.myqcloud.com")
func NewService(bucketURL string, opts ...Option) (*Service, error) {
	store, err := buildClient(bucketURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build cos client: %w", err)
	}
	return &Service{store: store}, nil
}

// SaveRevision appends a revision of the record to COS and returns its
// version number.
func (s *Service) SaveRevision(ctx context.Context, sessionInfo artifact.SessionInfo, record *artifact.Record) (int, error) {
	versions, err := s.ListVersions(ctx, sessionInfo, record.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to list versions: %w", err)
	}
	version := 0
	for _, v := range versions {
		if v >= version {
			version = v + 1
		}
	}

	data, err := json.Marshal(record)
	if err != nil {
		return 0, fmt.Errorf("failed to encode record: %w", err)
	}

	key := iartifact.BuildObjectName(sessionInfo, record.ID, version)
	if err := s.store.Put(ctx, key, data, revisionMimeType); err != nil {
		return 0, fmt.Errorf("failed to upload revision: %w", err)
	}
	return version, nil
}

// LoadRevision gets one revision of an artifact, or nil if the artifact
// does not exist. A nil version selects the latest revision.
func (s *Service) LoadRevision(ctx context.Context, sessionInfo artifact.SessionInfo, artifactID string, version *int) (*artifact.Record, error) {
	var target int
	if version == nil {
		versions, err := s.ListVersions(ctx, sessionInfo, artifactID)
		if err != nil {
			return nil, fmt.Errorf("failed to list versions: %w", err)
		}
		if len(versions) == 0 {
			return nil, nil
		}
		target = versions[len(versions)-1]
	} else {
		target = *version
	}

	key := iartifact.BuildObjectName(sessionInfo, artifactID, target)
	data, err := s.store.Get(ctx, key)
	if err != nil {
		if cos.IsNotFoundError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to download revision: %w", err)
	}

	var record artifact.Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to decode revision: %w", err)
	}
	return &record, nil
}

// ListKeys lists the artifact IDs present in a session.
func (s *Service) ListKeys(ctx context.Context, sessionInfo artifact.SessionInfo) ([]string, error) {
	prefix := iartifact.BuildSessionPrefix(sessionInfo)
	objectKeys, err := s.store.ListKeys(ctx, prefix)
	if err != nil {
		if cos.IsNotFoundError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list session artifacts: %w", err)
	}

	ids := make(map[string]bool)
	for _, key := range objectKeys {
		// Object keys end with ".../{artifact_id}/{version}".
		parts := strings.Split(key, "/")
		if len(parts) >= 2 {
			ids[parts[len(parts)-2]] = true
		}
	}

	keys := make([]string, 0, len(ids))
	for id := range ids {
		keys = append(keys, id)
	}
	sort.Strings(keys)
	return keys, nil
}

// ListVersions lists all revision numbers stored for an artifact, in
// ascending order.
func (s *Service) ListVersions(ctx context.Context, sessionInfo artifact.SessionInfo, artifactID string) ([]int, error) {
	prefix := iartifact.BuildObjectNamePrefix(sessionInfo, artifactID)
	objectKeys, err := s.store.ListKeys(ctx, prefix)
	if err != nil {
		if cos.IsNotFoundError(err) {
			return []int{}, nil
		}
		return nil, fmt.Errorf("failed to list versions: %w", err)
	}

	versions := make([]int, 0, len(objectKeys))
	for _, key := range objectKeys {
		if v, err := strconv.Atoi(key[strings.LastIndex(key, "/")+1:]); err == nil {
			versions = append(versions, v)
		}
	}
	sort.Ints(versions)
	return versions, nil
}

// Delete removes all revisions of an artifact.
func (s *Service) Delete(ctx context.Context, sessionInfo artifact.SessionInfo, artifactID string) error {
	versions, err := s.ListVersions(ctx, sessionInfo, artifactID)
	if err != nil {
		return fmt.Errorf("failed to list versions: %w", err)
	}
	for _, version := range versions {
		key := iartifact.BuildObjectName(sessionInfo, artifactID, version)
		if err := s.store.Delete(ctx, key); err != nil && !cos.IsNotFoundError(err) {
			return fmt.Errorf("failed to delete revision %d: %w", version, err)
		}
	}
	return nil
}
