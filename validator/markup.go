//
// Tencent is pleased to support the open source community by making trpc-artifact-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-artifact-go is licensed under the Apache License Version 2.0.
//
//

package validator

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	inlineHandlerPattern = regexp.MustCompile(`(?i)\son[a-z]+\s*=`)
	imgTagPattern        = regexp.MustCompile(`(?is)<img\b[^>]*>`)
	altAttrPattern       = regexp.MustCompile(`(?i)\balt\s*=`)
)

// validateMarkup checks markup artifacts: tag balance via a stack machine
// plus accessibility and security lint.
func (v *Validator) validateMarkup(source string, result *Result) {
	if strings.TrimSpace(source) == "" {
		result.addError(ErrorSyntax, SeverityCritical, "markup content is empty")
		return
	}

	v.checkTagBalance(source, result)

	if inlineHandlerPattern.MatchString(source) {
		result.addWarning(WarningSecurity, "inline event handler attributes detected; prefer addEventListener")
	}

	for _, img := range imgTagPattern.FindAllString(source, -1) {
		if !altAttrPattern.MatchString(img) {
			result.addWarning(WarningAccessibility, "image is missing alternative text (alt attribute)")
		}
	}

	lower := strings.ToLower(source)
	if strings.Contains(lower, "<html") && !strings.Contains(lower, "viewport") {
		result.addWarning(WarningBestPractice, "full document is missing a responsive viewport meta tag")
	}
}

// checkTagBalance walks the markup with a tag stack. Comments, doctype
// declarations and the configured self-closing set are skipped.
func (v *Validator) checkTagBalance(source string, result *Result) {
	var stack []string
	rest := source

	for {
		idx := strings.Index(rest, "<")
		if idx < 0 {
			break
		}
		rest = rest[idx:]

		switch {
		case strings.HasPrefix(rest, "<!--"):
			end := strings.Index(rest, "-->")
			if end < 0 {
				return // unterminated comment swallows the remainder
			}
			rest = rest[end+3:]
			continue
		case strings.HasPrefix(rest, "<!"):
			rest = rest[2:]
			continue
		}

		end := strings.Index(rest, ">")
		if end < 0 {
			break
		}
		tag := rest[1:end]
		rest = rest[end+1:]

		if strings.HasPrefix(tag, "/") {
			name := strings.ToLower(strings.TrimSpace(tag[1:]))
			if len(stack) == 0 {
				result.addError(ErrorStructure, SeverityHigh, fmt.Sprintf("closing tag </%s> has no matching opening tag", name))
				continue
			}
			top := stack[len(stack)-1]
			if top == name {
				stack = stack[:len(stack)-1]
				continue
			}
			// A single mismatch is reported once. If the close tag matches
			// an outer open tag, pop through to it so the intervening
			// unclosed tags are not re-reported at end of input.
			if at := lastIndex(stack, name); at >= 0 {
				result.addError(ErrorStructure, SeverityHigh, fmt.Sprintf("mismatched closing tag </%s>, expected </%s>", name, top))
				stack = stack[:at]
			} else {
				result.addError(ErrorStructure, SeverityHigh, fmt.Sprintf("closing tag </%s> has no matching opening tag", name))
			}
			continue
		}

		name := tagName(tag)
		if name == "" || v.selfClosing[name] || strings.HasSuffix(tag, "/") {
			continue
		}
		stack = append(stack, name)
	}

	for i := len(stack) - 1; i >= 0; i-- {
		result.addError(ErrorStructure, SeverityHigh, fmt.Sprintf("unclosed tag <%s>", stack[i]))
	}
}

func lastIndex(stack []string, name string) int {
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == name {
			return i
		}
	}
	return -1
}

func tagName(tag string) string {
	tag = strings.TrimSpace(tag)
	for i := 0; i < len(tag); i++ {
		c := tag[i]
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '/' {
			return strings.ToLower(tag[:i])
		}
	}
	return strings.ToLower(tag)
}
