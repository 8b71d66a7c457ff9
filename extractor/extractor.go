//
// Tencent is pleased to support the open source community by making trpc-artifact-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-artifact-go is licensed under the Apache License Version 2.0.
//
//

// Package extractor locates artifact blocks embedded in streaming assistant
// text and separates them from the surrounding prose.
//
// An artifact block is delimited by a paired marker tag:
//
//	<artifact identifier="weekly-chart" type="component-tree" title="Weekly Chart">
//	...source...
//	</artifact>
//
// Extraction is a pure function of the accumulated message text: it may be
// called on every streamed delta and always produces the same output for
// the same input, byte for byte.
package extractor

import (
	"regexp"
	"strings"

	"trpc.group/trpc-go/trpc-artifact-go/artifact"
)

// DefaultTag is the marker tag name recognized by the default extractor.
const DefaultTag = "artifact"

// Result is the output of one extraction pass.
type Result struct {
	// CleanText is the message text with all artifact blocks removed,
	// including blocks whose closing marker has not arrived yet.
	CleanText string
	// Artifacts lists the records sighted in the text, in document order.
	Artifacts []*artifact.Record
	// InProgress counts artifacts whose closing marker has not arrived.
	InProgress int
}

// Extractor scans message text for artifact markers.
type Extractor struct {
	tag string
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithTag overrides the marker tag name.
func WithTag(tag string) Option {
	return func(e *Extractor) {
		e.tag = tag
	}
}

// New creates an extractor with the given options.
func New(opts ...Option) *Extractor {
	e := &Extractor{tag: DefaultTag}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var defaultExtractor = New()

// Extract runs the default extractor over the accumulated message text.
func Extract(text string) Result {
	return defaultExtractor.Extract(text)
}

var attrPattern = regexp.MustCompile(`([a-zA-Z][a-zA-Z0-9_-]*)\s*=\s*(?:"([^"]*)"|'([^']*)')`)

// Extract scans the accumulated text of one assistant message. The text may
// still be growing; an opening marker without a matching close yields an
// incomplete record, excluded from CleanText and counted in InProgress.
func (e *Extractor) Extract(text string) Result {
	var (
		clean      strings.Builder
		artifacts  []*artifact.Record
		inProgress int
	)

	openToken := "<" + e.tag
	closeToken := "</" + e.tag + ">"

	rest := text
	for {
		idx := findMarker(rest, openToken)
		if idx < 0 {
			clean.WriteString(rest)
			break
		}
		clean.WriteString(rest[:idx])

		after := rest[idx+len(openToken):]
		headEnd := strings.Index(after, ">")
		if headEnd < 0 {
			// The opening marker itself is still streaming in. Nothing to
			// parse yet, but the partial marker must not leak into prose.
			inProgress++
			break
		}

		attrs := parseAttributes(after[:headEnd])
		body := after[headEnd+1:]

		record := &artifact.Record{
			Kind:  kindFromAttr(attrs["type"]),
			Title: attrs["title"],
		}

		closeIdx := strings.Index(body, closeToken)
		if closeIdx < 0 {
			// Open marker with no close: in-progress artifact.
			record.Source = trimBlock(body)
			record.Complete = false
			record.ID = recordID(record.Kind, attrs["identifier"], record.Source)
			artifacts = append(artifacts, record)
			inProgress++
			break
		}

		record.Source = trimBlock(body[:closeIdx])
		record.Complete = true
		record.ID = recordID(record.Kind, attrs["identifier"], record.Source)
		artifacts = append(artifacts, record)

		rest = body[closeIdx+len(closeToken):]
	}

	return Result{
		CleanText:  clean.String(),
		Artifacts:  artifacts,
		InProgress: inProgress,
	}
}

// findMarker returns the index of the next opening marker, requiring the
// token to be a whole tag name (followed by whitespace or '>').
func findMarker(text, openToken string) int {
	offset := 0
	for {
		idx := strings.Index(text[offset:], openToken)
		if idx < 0 {
			return -1
		}
		pos := offset + idx
		end := pos + len(openToken)
		if end == len(text) {
			// Marker prefix at the very end of a streaming buffer.
			return pos
		}
		switch text[end] {
		case ' ', '\t', '\n', '\r', '>':
			return pos
		}
		offset = end
	}
}

func parseAttributes(head string) map[string]string {
	attrs := make(map[string]string)
	for _, m := range attrPattern.FindAllStringSubmatch(head, -1) {
		value := m[2]
		if value == "" && m[3] != "" {
			value = m[3]
		}
		attrs[strings.ToLower(m[1])] = value
	}
	return attrs
}

// trimBlock drops the single newline that conventionally follows the
// opening marker and precedes the closing marker.
func trimBlock(body string) string {
	body = strings.TrimPrefix(body, "\r\n")
	body = strings.TrimPrefix(body, "\n")
	if strings.HasSuffix(body, "\r\n") {
		return strings.TrimSuffix(body, "\r\n")
	}
	return strings.TrimSuffix(body, "\n")
}

// recordID derives the stable identity of a record. When the author tagged
// the block with an identifier, identity follows (kind, identifier) so the
// record survives in place while its source is still streaming in;
// otherwise identity hashes the source itself.
func recordID(kind artifact.Kind, identifier, source string) string {
	if identifier != "" {
		return artifact.ContentID(kind, "id:"+identifier)
	}
	return artifact.ContentID(kind, source)
}

func kindFromAttr(value string) artifact.Kind {
	switch artifact.Kind(strings.ToLower(strings.TrimSpace(value))) {
	case artifact.KindMarkup:
		return artifact.KindMarkup
	case artifact.KindScript:
		return artifact.KindScript
	case artifact.KindComponentTree:
		return artifact.KindComponentTree
	case artifact.KindDiagram:
		return artifact.KindDiagram
	case artifact.KindDocument:
		return artifact.KindDocument
	case artifact.KindImage:
		return artifact.KindImage
	}
	// Unknown kinds render as prose rather than executing anything.
	return artifact.KindDocument
}
