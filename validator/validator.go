//
// Tencent is pleased to support the open source community by making trpc-artifact-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-artifact-go is licensed under the Apache License Version 2.0.
//
//

// Package validator runs structural, syntax and security checks over
// artifact source before anything is allowed to render.
//
// The checks are deliberately heuristic and pattern-based rather than full
// parses: the goal is to catch mistakes that would crash the sandbox or
// leak data, cheaply and synchronously on every streamed update, not to
// guarantee the code is correct.
package validator

import (
	"strings"

	"trpc.group/trpc-go/trpc-artifact-go/artifact"
)

// ErrorKind classifies a blocking validation error.
type ErrorKind string

// Error kinds.
const (
	ErrorSyntax    ErrorKind = "syntax"
	ErrorStructure ErrorKind = "structure"
	ErrorSecurity  ErrorKind = "security"
)

// Severity ranks a blocking validation error.
type Severity string

// Severities.
const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
)

// WarningKind classifies an informational finding.
type WarningKind string

// Warning kinds.
const (
	WarningBestPractice  WarningKind = "best-practice"
	WarningAccessibility WarningKind = "accessibility"
	WarningPerformance   WarningKind = "performance"
	WarningSecurity      WarningKind = "security"
)

// Error is a finding that blocks rendering of the artifact revision.
type Error struct {
	Kind     ErrorKind `json:"kind"`
	Severity Severity  `json:"severity"`
	Message  string    `json:"message"`
}

// Warning is an informational finding that never blocks rendering.
type Warning struct {
	Kind        WarningKind `json:"kind"`
	Message     string      `json:"message"`
	Remediation string      `json:"remediation,omitempty"`
}

// Result is the outcome of validating one artifact revision. Results are
// recomputed fresh on every call and never persisted.
type Result struct {
	IsValid  bool      `json:"is_valid"`
	Errors   []Error   `json:"errors,omitempty"`
	Warnings []Warning `json:"warnings,omitempty"`
}

func (r *Result) addError(kind ErrorKind, severity Severity, message string) {
	r.Errors = append(r.Errors, Error{Kind: kind, Severity: severity, Message: message})
}

func (r *Result) addWarning(kind WarningKind, message string) {
	r.Warnings = append(r.Warnings, Warning{Kind: kind, Message: message})
}

// Validator dispatches validation by artifact kind.
type Validator struct {
	selfClosing map[string]bool
}

// Option configures a Validator.
type Option func(*Validator)

// WithSelfClosingTags replaces the set of tags treated as self-closing in
// markup balance checking.
func WithSelfClosingTags(tags []string) Option {
	return func(v *Validator) {
		v.selfClosing = make(map[string]bool, len(tags))
		for _, tag := range tags {
			v.selfClosing[strings.ToLower(tag)] = true
		}
	}
}

// defaultSelfClosing is the HTML void element set.
var defaultSelfClosing = []string{
	"area", "base", "br", "col", "embed", "hr", "img", "input",
	"link", "meta", "param", "source", "track", "wbr",
}

// New creates a validator with the given options.
func New(opts ...Option) *Validator {
	v := &Validator{}
	WithSelfClosingTags(defaultSelfClosing)(v)
	for _, opt := range opts {
		opt(v)
	}
	return v
}

var defaultValidator = New()

// Validate runs the default validator over one artifact revision.
func Validate(kind artifact.Kind, source string) *Result {
	return defaultValidator.Validate(kind, source)
}

// Validate checks one artifact revision. IsValid is true exactly when no
// blocking errors were found; warnings alone never block rendering.
func (v *Validator) Validate(kind artifact.Kind, source string) *Result {
	result := &Result{}

	switch kind {
	case artifact.KindMarkup:
		v.validateMarkup(source, result)
	case artifact.KindScript:
		v.validateScript(source, result)
	case artifact.KindComponentTree:
		v.validateComponent(source, result)
	default:
		// document, diagram, image: prose-adjacent content that never
		// executes, so an empty body is merely worth mentioning.
		if strings.TrimSpace(source) == "" {
			result.addWarning(WarningBestPractice, "artifact content is empty")
		}
	}

	result.IsValid = len(result.Errors) == 0
	return result
}
