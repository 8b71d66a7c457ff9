//
// Tencent is pleased to support the open source community by making trpc-artifact-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-artifact-go is licensed under the Apache License Version 2.0.
//
//

// Package resolver scans artifact source for module imports, separates
// host-runtime names from third-party modules, and decides whether the
// dependency set can be resolved directly from a CDN or needs the remote
// bundling service.
package resolver

import (
	"regexp"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultVersion is assigned to modules imported without an explicit
// version suffix.
const DefaultVersion = "latest"

// Descriptor describes one resolved dependency. Descriptors are scoped to
// a single resolution pass and never persisted.
type Descriptor struct {
	// Name is the bare module name, version suffix stripped.
	Name string `json:"name"`
	// Requested is the version range requested in the import, if any.
	Requested string `json:"requested,omitempty"`
	// Resolved is the version the pipeline will fetch.
	Resolved string `json:"resolved"`
	// Source records where the resolved version came from:
	// "explicit" (version suffix in the import) or "default".
	Source string `json:"source"`
}

// defaultHostPatterns are the module names the host runtime provides;
// imports matching these are never treated as external dependencies.
var defaultHostPatterns = []string{
	"react",
	"react/**",
	"react-dom",
	"react-dom/**",
}

// bundleRequired lists modules that cannot be served by direct CDN
// resolution because they rely on build-time codegen or a compiler.
var bundleRequired = map[string]bool{
	"tailwindcss":    true,
	"sass":           true,
	"node-sass":      true,
	"less":           true,
	"postcss":        true,
	"autoprefixer":   true,
	"prisma":         true,
	"@prisma/client": true,
	"webpack":        true,
	"vite":           true,
	"next":           true,
}

var importPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?m)^\s*import\s+[^'"]*?from\s+['"]([^'"]+)['"]`),
	regexp.MustCompile(`(?m)^\s*import\s+['"]([^'"]+)['"]`),
	regexp.MustCompile(`(?m)^\s*export\s+[^'"]*?from\s+['"]([^'"]+)['"]`),
	regexp.MustCompile(`\brequire\(\s*['"]([^'"]+)['"]\s*\)`),
}

// Resolver assigns versions to the third-party modules an artifact imports.
type Resolver struct {
	hostPatterns   []string
	defaultVersion string
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithHostPatterns replaces the host-provided module patterns. Patterns
// use doublestar glob syntax, e.g. "react-dom/**" or "@host/*".
func WithHostPatterns(patterns []string) Option {
	return func(r *Resolver) {
		r.hostPatterns = patterns
	}
}

// WithDefaultVersion overrides the version assigned to unversioned imports.
func WithDefaultVersion(version string) Option {
	return func(r *Resolver) {
		r.defaultVersion = version
	}
}

// New creates a resolver with the given options.
func New(opts ...Option) *Resolver {
	r := &Resolver{
		hostPatterns:   defaultHostPatterns,
		defaultVersion: DefaultVersion,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var defaultResolver = New()

// Resolve runs the default resolver over artifact source.
func Resolve(source string) map[string]string {
	return defaultResolver.Resolve(source)
}

// NeedsBundling applies the default resolver's predicate.
func NeedsBundling(deps map[string]string) bool {
	return defaultResolver.NeedsBundling(deps)
}

// Describe scans import-style declarations and returns one descriptor per
// distinct third-party module, ordered by name. Host-provided modules are
// excluded.
func (r *Resolver) Describe(source string) []Descriptor {
	seen := make(map[string]Descriptor)
	for _, pattern := range importPatterns {
		for _, m := range pattern.FindAllStringSubmatch(source, -1) {
			specifier := m[1]
			name, requested := splitVersion(specifier)
			if r.isHostProvided(name) {
				continue
			}
			if _, ok := seen[name]; ok {
				continue
			}
			d := Descriptor{Name: name, Requested: requested}
			if requested != "" {
				d.Resolved = requested
				d.Source = "explicit"
			} else {
				d.Resolved = r.defaultVersion
				d.Source = "default"
			}
			seen[name] = d
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]Descriptor, 0, len(names))
	for _, name := range names {
		out = append(out, seen[name])
	}
	return out
}

// Resolve returns the name→version map for an artifact's third-party
// dependencies.
func (r *Resolver) Resolve(source string) map[string]string {
	deps := make(map[string]string)
	for _, d := range r.Describe(source) {
		deps[d.Name] = d.Resolved
	}
	return deps
}

// NeedsBundling reports whether the dependency set requires the remote
// bundling service. Direct CDN resolution covers the common cases (icon,
// animation and chart libraries); only style-sheet imports, internal alias
// paths and build-time-codegen packages force the remote round-trip.
func (r *Resolver) NeedsBundling(deps map[string]string) bool {
	for name := range deps {
		if isStylesheet(name) || isInternalPath(name) || bundleRequired[name] {
			return true
		}
	}
	return false
}

func (r *Resolver) isHostProvided(name string) bool {
	for _, pattern := range r.hostPatterns {
		if ok, err := doublestar.Match(pattern, name); err == nil && ok {
			return true
		}
	}
	return false
}

func isStylesheet(name string) bool {
	switch {
	case strings.HasSuffix(name, ".css"),
		strings.HasSuffix(name, ".scss"),
		strings.HasSuffix(name, ".sass"),
		strings.HasSuffix(name, ".less"):
		return true
	}
	return false
}

func isInternalPath(name string) bool {
	return strings.HasPrefix(name, "@/") ||
		strings.HasPrefix(name, "~/") ||
		strings.HasPrefix(name, "./") ||
		strings.HasPrefix(name, "../")
}

// splitVersion separates a "name@version" import specifier. The leading
// "@" of a scoped package is not a version separator.
func splitVersion(specifier string) (name, version string) {
	at := strings.LastIndex(specifier, "@")
	if at <= 0 {
		return specifier, ""
	}
	// "@scope/pkg" has its only "@" at position 0; "@scope/pkg@1.0.0"
	// splits at the second "@".
	if strings.HasPrefix(specifier, "@") && !strings.Contains(specifier[1:at], "/") {
		return specifier, ""
	}
	return specifier[:at], specifier[at+1:]
}
