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
	"regexp"
	"strings"
)

var dynamicEvalPattern = regexp.MustCompile(`\beval\s*\(|new\s+Function\s*\(`)

// validateScript checks script artifacts. Balance is checked by counting,
// which accepts balanced-but-wrong code; the goal is catching truncated or
// garbled output, not parsing JavaScript.
func (v *Validator) validateScript(source string, result *Result) {
	if strings.TrimSpace(source) == "" {
		result.addError(ErrorSyntax, SeverityCritical, "script content is empty")
		return
	}

	if open, close := strings.Count(source, "{"), strings.Count(source, "}"); open != close {
		result.addError(ErrorSyntax, SeverityHigh, "unbalanced curly braces")
	}
	if open, close := strings.Count(source, "("), strings.Count(source, ")"); open != close {
		result.addError(ErrorSyntax, SeverityHigh, "unbalanced parentheses")
	}

	if dynamicEvalPattern.MatchString(source) {
		result.addWarning(WarningSecurity, "dynamic code execution (eval / new Function) detected")
	}
}
