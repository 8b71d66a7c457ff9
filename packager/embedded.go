//
// Tencent is pleased to support the open source community by making trpc-artifact-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-artifact-go is licensed under the Apache License Version 2.0.
//
//

package packager

import (
	"encoding/json"
	"fmt"

	"trpc.group/trpc-go/trpc-artifact-go/artifact"
)

// DefaultRecompileDelay is the debounce window, in milliseconds, applied
// to recompilation so streamed updates do not re-transpile on every delta.
const DefaultRecompileDelay = 500

// Embedded builds configuration for the local sandboxed same-origin
// transpile-and-preview engine: a synthetic file system with one entry
// file plus a manufactured dependency manifest.
type Embedded struct {
	kind           artifact.Kind
	autoRun        bool
	recompileDelay int
}

// EmbeddedOption configures the embedded strategy.
type EmbeddedOption func(*Embedded)

// WithAutoRun controls whether the preview engine starts compiling
// without user interaction. Enabled by default.
func WithAutoRun(autoRun bool) EmbeddedOption {
	return func(e *Embedded) {
		e.autoRun = autoRun
	}
}

// WithRecompileDelay sets the recompile debounce window in milliseconds.
func WithRecompileDelay(delayMs int) EmbeddedOption {
	return func(e *Embedded) {
		e.recompileDelay = delayMs
	}
}

// NewEmbedded creates the embedded strategy for one artifact kind.
func NewEmbedded(kind artifact.Kind, opts ...EmbeddedOption) *Embedded {
	e := &Embedded{
		kind:           kind,
		autoRun:        true,
		recompileDelay: DefaultRecompileDelay,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements Strategy.
func (e *Embedded) Name() string { return "embedded" }

type embeddedFile struct {
	Code string `json:"code"`
}

type embeddedConfig struct {
	Template string                  `json:"template"`
	Title    string                  `json:"title,omitempty"`
	Files    map[string]embeddedFile `json:"files"`
	Setup    embeddedSetup           `json:"customSetup"`
	Options  embeddedOptions         `json:"options"`
}

type embeddedSetup struct {
	Dependencies map[string]string `json:"dependencies"`
	Entry        string            `json:"entry"`
}

type embeddedOptions struct {
	AutoRun          bool   `json:"autorun"`
	RecompileMode    string `json:"recompileMode"`
	RecompileDelayMs int    `json:"recompileDelayMs"`
}

// Package implements Strategy. The output is the JSON configuration the
// preview engine consumes; map keys marshal in sorted order, so identical
// inputs always produce identical bytes.
func (e *Embedded) Package(code string, deps map[string]string, title string) (string, error) {
	template, entry := templateFor(e.kind)

	dependencies := make(map[string]string, len(deps))
	for name, version := range deps {
		dependencies[name] = version
	}

	manifest, err := json.MarshalIndent(map[string]any{
		"name":         "artifact-preview",
		"main":         entry,
		"dependencies": dependencies,
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to build dependency manifest: %w", err)
	}

	config := embeddedConfig{
		Template: template,
		Title:    title,
		Files: map[string]embeddedFile{
			entry:           {Code: code},
			"/package.json": {Code: string(manifest)},
		},
		Setup: embeddedSetup{
			Dependencies: dependencies,
			Entry:        entry,
		},
		Options: embeddedOptions{
			AutoRun:          e.autoRun,
			RecompileMode:    "delayed",
			RecompileDelayMs: e.recompileDelay,
		},
	}

	out, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode preview config: %w", err)
	}
	return string(out), nil
}

func templateFor(kind artifact.Kind) (template, entry string) {
	switch kind {
	case artifact.KindComponentTree:
		return "react", "/App.js"
	case artifact.KindScript:
		return "vanilla", "/index.js"
	default:
		return "static", "/index.html"
	}
}
