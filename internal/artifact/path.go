//
// Tencent is pleased to support the open source community by making trpc-artifact-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-artifact-go is licensed under the Apache License Version 2.0.
//
//

// Package artifact provides internal utilities for artifact storage
// implementations.
package artifact

import (
	"fmt"

	"trpc.group/trpc-go/trpc-artifact-go/artifact"
)

// BuildArtifactPath constructs the storage path for an artifact:
// {app_name}/{user_id}/{session_id}/{artifact_id}
func BuildArtifactPath(sessionInfo artifact.SessionInfo, artifactID string) string {
	return fmt.Sprintf("%s/%s/%s/%s", sessionInfo.AppName, sessionInfo.UserID, sessionInfo.SessionID, artifactID)
}

// BuildObjectName constructs the object name for one stored revision:
// {app_name}/{user_id}/{session_id}/{artifact_id}/{version}
func BuildObjectName(sessionInfo artifact.SessionInfo, artifactID string, version int) string {
	return fmt.Sprintf("%s/%s/%s/%s/%d", sessionInfo.AppName, sessionInfo.UserID, sessionInfo.SessionID, artifactID, version)
}

// BuildObjectNamePrefix constructs the prefix under which all revisions of
// one artifact live.
func BuildObjectNamePrefix(sessionInfo artifact.SessionInfo, artifactID string) string {
	return BuildArtifactPath(sessionInfo, artifactID) + "/"
}

// BuildSessionPrefix constructs the prefix for all artifacts in a session.
func BuildSessionPrefix(sessionInfo artifact.SessionInfo) string {
	return fmt.Sprintf("%s/%s/%s/", sessionInfo.AppName, sessionInfo.UserID, sessionInfo.SessionID)
}
