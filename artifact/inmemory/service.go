//
// Tencent is pleased to support the open source community by making trpc-artifact-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-artifact-go is licensed under the Apache License Version 2.0.
//
//

// Package inmemory provides an in-memory implementation of the artifact
// storage service. It is suitable for testing and development environments.
package inmemory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"trpc.group/trpc-go/trpc-artifact-go/artifact"
	iartifact "trpc.group/trpc-go/trpc-artifact-go/internal/artifact"
)

// Service is an in-memory implementation of the artifact storage service.
type Service struct {
	// mutex protects concurrent access to the revisions map.
	mutex sync.RWMutex
	// revisions stores records by path, with each path holding every
	// revision in save order.
	revisions map[string][]*artifact.Record
}

// NewService creates a new in-memory artifact storage service.
func NewService() *Service {
	return &Service{
		revisions: make(map[string][]*artifact.Record),
	}
}

// SaveRevision appends a revision of the record to the in-memory storage.
func (s *Service) SaveRevision(ctx context.Context, sessionInfo artifact.SessionInfo, record *artifact.Record) (int, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	path := iartifact.BuildArtifactPath(sessionInfo, record.ID)
	clone := *record
	version := len(s.revisions[path])
	s.revisions[path] = append(s.revisions[path], &clone)

	return version, nil
}

// LoadRevision gets one revision of an artifact from the in-memory storage.
func (s *Service) LoadRevision(ctx context.Context, sessionInfo artifact.SessionInfo, artifactID string, version *int) (*artifact.Record, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	path := iartifact.BuildArtifactPath(sessionInfo, artifactID)
	versions, exists := s.revisions[path]
	if !exists || len(versions) == 0 {
		return nil, nil
	}

	var versionIndex int
	if version == nil {
		// Latest revision is the last element.
		versionIndex = len(versions) - 1
	} else {
		versionIndex = *version
		if versionIndex < 0 || versionIndex >= len(versions) {
			return nil, fmt.Errorf("version %d does not exist", *version)
		}
	}

	return versions[versionIndex], nil
}

// ListKeys lists all artifact IDs within a session.
func (s *Service) ListKeys(ctx context.Context, sessionInfo artifact.SessionInfo) ([]string, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	prefix := iartifact.BuildSessionPrefix(sessionInfo)
	var keys []string
	for path := range s.revisions {
		if strings.HasPrefix(path, prefix) && len(s.revisions[path]) > 0 {
			keys = append(keys, strings.TrimPrefix(path, prefix))
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// ListVersions lists all revision numbers stored for an artifact.
func (s *Service) ListVersions(ctx context.Context, sessionInfo artifact.SessionInfo, artifactID string) ([]int, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	path := iartifact.BuildArtifactPath(sessionInfo, artifactID)
	versions := make([]int, 0, len(s.revisions[path]))
	for i := range s.revisions[path] {
		versions = append(versions, i)
	}
	return versions, nil
}

// Delete removes all revisions of an artifact.
func (s *Service) Delete(ctx context.Context, sessionInfo artifact.SessionInfo, artifactID string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	path := iartifact.BuildArtifactPath(sessionInfo, artifactID)
	delete(s.revisions, path)
	return nil
}
