//
// Tencent is pleased to support the open source community by making trpc-artifact-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-artifact-go is licensed under the Apache License Version 2.0.
//
//

package packager

import "trpc.group/trpc-go/trpc-artifact-go/artifact"

// Popout packages an artifact for a separate window. It reuses the
// embedded strategy rather than the standalone one, so a popped-out
// artifact behaves identically to the inline preview.
type Popout struct {
	*Embedded
}

// NewPopout creates the popout strategy for one artifact kind.
func NewPopout(kind artifact.Kind, opts ...EmbeddedOption) *Popout {
	return &Popout{Embedded: NewEmbedded(kind, opts...)}
}

// Name implements Strategy.
func (p *Popout) Name() string { return "popout" }
