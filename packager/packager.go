//
// Tencent is pleased to support the open source community by making trpc-artifact-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-artifact-go is licensed under the Apache License Version 2.0.
//
//

// Package packager assembles validated artifact code into renderable
// documents.
//
// Two strategies share one contract, (code, dependencies, title) → document
// string: the embedded strategy emits configuration for the local sandboxed
// transpile-and-preview engine, and the standalone strategy emits a
// complete, dependency-free HTML document for export. Both are pure
// functions of their inputs; identical inputs produce byte-identical
// output, which supports caching and snapshot testing.
package packager

// Strategy packages artifact code into a renderable document.
type Strategy interface {
	// Name identifies the strategy ("embedded", "standalone", "popout").
	Name() string
	// Package renders the document for the given code, resolved
	// dependencies and display title.
	Package(code string, deps map[string]string, title string) (string, error)
}

// HostRuntimeVersion is the host UI runtime version every packaged
// document pins. Third-party packages are asked to reuse this single
// runtime instance; duplicate runtime copies are the most common cause of
// broken state management in sandboxed previews.
const HostRuntimeVersion = "18.2.0"

// CDNBase is the module CDN used by the standalone strategy.
const CDNBase = "https://esm.sh"
