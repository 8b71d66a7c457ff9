//
// Tencent is pleased to support the open source community by making trpc-artifact-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-artifact-go is licensed under the Apache License Version 2.0.
//
//

// Package pipeline wires the artifact stages together: extraction,
// validation, dependency resolution, render packaging and remote bundling.
//
// One Pipeline serves one session. It owns the artifact store, so
// concurrent sessions stay isolated and tests need no hidden-state resets.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"trpc.group/trpc-go/trpc-artifact-go/artifact"
	"trpc.group/trpc-go/trpc-artifact-go/bundler"
	"trpc.group/trpc-go/trpc-artifact-go/extractor"
	"trpc.group/trpc-go/trpc-artifact-go/log"
	"trpc.group/trpc-go/trpc-artifact-go/packager"
	"trpc.group/trpc-go/trpc-artifact-go/resolver"
	"trpc.group/trpc-go/trpc-artifact-go/validator"
)

// Errors reported by render operations.
var (
	// ErrArtifactNotFound reports an unknown artifact ID.
	ErrArtifactNotFound = errors.New("artifact not found")
	// ErrArtifactIncomplete reports an artifact still streaming in; it
	// renders as a placeholder, never as executable content.
	ErrArtifactIncomplete = errors.New("artifact is still streaming")
)

// InvalidArtifactError blocks rendering of an invalid revision and carries
// the validation findings for inline display.
type InvalidArtifactError struct {
	ArtifactID string
	Result     *validator.Result
}

// Error implements error.
func (e *InvalidArtifactError) Error() string {
	return fmt.Sprintf("artifact %s failed validation with %d error(s)", e.ArtifactID, len(e.Result.Errors))
}

// Output is what one processing pass hands downstream: prose for text
// rendering, records for card rendering, and a count for placeholders.
type Output struct {
	CleanText  string             `json:"clean_text"`
	Artifacts  []*artifact.Record `json:"artifacts"`
	InProgress int                `json:"in_progress"`
}

// Pipeline processes one session's assistant messages.
type Pipeline struct {
	store     *artifact.Store
	extractor *extractor.Extractor
	validator *validator.Validator
	resolver  *resolver.Resolver
	bundler   *bundler.Client
	storage   artifact.Service
	session   artifact.SessionInfo

	// lastSaved tracks the revision hash last persisted per artifact, so
	// repeated passes over unchanged text do not pile up revisions.
	lastSaved map[string]string
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithExtractor replaces the marker extractor.
func WithExtractor(e *extractor.Extractor) Option {
	return func(p *Pipeline) { p.extractor = e }
}

// WithValidator replaces the validator.
func WithValidator(v *validator.Validator) Option {
	return func(p *Pipeline) { p.validator = v }
}

// WithResolver replaces the dependency resolver.
func WithResolver(r *resolver.Resolver) Option {
	return func(p *Pipeline) { p.resolver = r }
}

// WithBundler attaches a remote bundling client. Without one, artifacts
// that need bundling keep their idle status and render embedded.
func WithBundler(b *bundler.Client) Option {
	return func(p *Pipeline) { p.bundler = b }
}

// WithStorage attaches a versioned storage service; every completed
// revision of an artifact is persisted for history export.
func WithStorage(svc artifact.Service, session artifact.SessionInfo) Option {
	return func(p *Pipeline) {
		p.storage = svc
		p.session = session
	}
}

// New creates a pipeline for one session.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		store:     artifact.NewStore(),
		extractor: extractor.New(),
		validator: validator.New(),
		resolver:  resolver.New(),
		lastSaved: make(map[string]string),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Store exposes the session's artifact store.
func (p *Pipeline) Store() *artifact.Store {
	return p.store
}

// Process runs one pass over the accumulated text of an assistant message.
// It is called repeatedly while the message streams and once more with the
// final text; both calls take the same path. Incomplete records from an
// earlier pass that the current pass no longer sights are superseded, so
// an identifier-less artifact, whose ID re-hashes as its source grows,
// still occupies a single store slot.
//
// Completed artifacts are merged into the store, persisted when changed,
// and handed to the bundling client when their dependency set needs more
// than local resolution.
func (p *Pipeline) Process(ctx context.Context, messageText string) (*Output, error) {
	extracted := p.extractor.Extract(messageText)

	out := &Output{
		CleanText:  extracted.CleanText,
		InProgress: extracted.InProgress,
	}

	sighted := make(map[string]bool, len(extracted.Artifacts))
	for _, record := range extracted.Artifacts {
		stored := p.store.Upsert(record)
		sighted[stored.ID] = true
		out.Artifacts = append(out.Artifacts, stored)
	}
	p.store.Supersede(sighted)

	for _, stored := range out.Artifacts {
		if !stored.Complete {
			continue
		}

		if err := p.persistRevision(ctx, stored); err != nil {
			log.Warnf("pipeline: failed to persist revision of %s: %v", stored.ID, err)
		}

		if p.bundler == nil {
			continue
		}
		deps := p.resolver.Resolve(stored.Source)
		if !p.resolver.NeedsBundling(deps) {
			continue
		}
		// Sequential by design: the client serializes the actual remote
		// calls, and submission order here fixes callback order.
		if _, err := p.bundler.Bundle(ctx, p.store, stored, p.session.SessionID, true); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) ||
				errors.Is(err, bundler.ErrAbandoned) {
				return out, nil
			}
			log.Errorf("pipeline: bundling %s: %v", stored.ID, err)
		}
	}

	return out, nil
}

func (p *Pipeline) persistRevision(ctx context.Context, record *artifact.Record) error {
	if p.storage == nil {
		return nil
	}
	hash := record.RevisionHash()
	if p.lastSaved[record.ID] == hash {
		return nil
	}
	if _, err := p.storage.SaveRevision(ctx, p.session, record); err != nil {
		return err
	}
	p.lastSaved[record.ID] = hash
	return nil
}

// renderable gates every render path: an artifact must be complete and its
// exact source revision must validate before any strategy sees it.
func (p *Pipeline) renderable(id string) (*artifact.Record, error) {
	record := p.store.Get(id)
	if record == nil {
		return nil, ErrArtifactNotFound
	}
	if !record.Complete {
		return nil, ErrArtifactIncomplete
	}
	result := p.validator.Validate(record.Kind, record.Source)
	if !result.IsValid {
		return nil, &InvalidArtifactError{ArtifactID: id, Result: result}
	}
	return record, nil
}

// Validate re-validates the current revision of a stored artifact.
func (p *Pipeline) Validate(id string) (*validator.Result, error) {
	record := p.store.Get(id)
	if record == nil {
		return nil, ErrArtifactNotFound
	}
	return p.validator.Validate(record.Kind, record.Source), nil
}

// Preview packages an artifact for the inline sandboxed preview using the
// embedded strategy.
func (p *Pipeline) Preview(id string) (string, error) {
	record, err := p.renderable(id)
	if err != nil {
		return "", err
	}
	strategy := packager.NewEmbedded(record.Kind)
	return strategy.Package(record.Source, p.resolver.Resolve(record.Source), record.Title)
}

// Popout packages an artifact for a separate window. The popout reuses the
// embedded strategy so the window behaves identically to the inline
// preview.
func (p *Pipeline) Popout(id string) (string, error) {
	record, err := p.renderable(id)
	if err != nil {
		return "", err
	}
	strategy := packager.NewPopout(record.Kind)
	return strategy.Package(record.Source, p.resolver.Resolve(record.Source), record.Title)
}

// StandaloneDocument packages an artifact as a complete, self-contained
// document suitable for download or a new window.
func (p *Pipeline) StandaloneDocument(id string) (string, error) {
	record, err := p.renderable(id)
	if err != nil {
		return "", err
	}
	strategy := packager.NewStandalone(record.Kind)
	return strategy.Package(record.Source, p.resolver.Resolve(record.Source), record.Title)
}

// Export produces the machine-readable interchange bundle for an artifact,
// including its stored revision history.
func (p *Pipeline) Export(ctx context.Context, id string) ([]byte, error) {
	record := p.store.Get(id)
	if record == nil {
		return nil, ErrArtifactNotFound
	}
	return artifact.Export(ctx, p.storage, p.session, record)
}
