//
// Tencent is pleased to support the open source community by making trpc-artifact-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-artifact-go is licensed under the Apache License Version 2.0.
//
//

package packager

import "regexp"

// fallbackBinding is the name given to an anonymous default export after
// rewriting.
const fallbackBinding = "__ArtifactRoot"

var (
	exportDefaultFunc  = regexp.MustCompile(`export\s+default\s+function\s+([A-Za-z_$][\w$]*)`)
	exportDefaultClass = regexp.MustCompile(`export\s+default\s+class\s+([A-Za-z_$][\w$]*)`)
	exportDefaultAnon  = regexp.MustCompile(`export\s+default\s+(function|class)(\s*\(|\s*\{|\s+extends\b)`)
	exportDefaultName  = regexp.MustCompile(`(?m)^\s*export\s+default\s+([A-Za-z_$][\w$]*)\s*;?\s*$`)
	exportDefaultExpr  = regexp.MustCompile(`export\s+default\s+`)
	exportNamed        = regexp.MustCompile(`(?m)^(\s*)export\s+(const|let|var|function|class)\b`)
)

// rewriteDefaultExport turns a module's default export into a plain
// top-level binding, so the code can live inside a single inline script
// with the mount call appended after it. Returns the rewritten code and
// the binding name to render.
func rewriteDefaultExport(code string) (rewritten, binding string) {
	switch {
	case exportDefaultFunc.MatchString(code):
		m := exportDefaultFunc.FindStringSubmatch(code)
		binding = m[1]
		rewritten = exportDefaultFunc.ReplaceAllString(code, "function $1")
	case exportDefaultClass.MatchString(code):
		m := exportDefaultClass.FindStringSubmatch(code)
		binding = m[1]
		rewritten = exportDefaultClass.ReplaceAllString(code, "class $1")
	case exportDefaultAnon.MatchString(code):
		binding = fallbackBinding
		rewritten = exportDefaultExpr.ReplaceAllString(code, "const "+fallbackBinding+" = ")
	case exportDefaultName.MatchString(code):
		m := exportDefaultName.FindStringSubmatch(code)
		binding = m[1]
		rewritten = exportDefaultName.ReplaceAllString(code, "")
	case exportDefaultExpr.MatchString(code):
		binding = fallbackBinding
		rewritten = exportDefaultExpr.ReplaceAllString(code, "const "+fallbackBinding+" = ")
	default:
		// No default export at all; render nothing rather than guess.
		return code, ""
	}

	rewritten = exportNamed.ReplaceAllString(rewritten, "$1$2")
	return rewritten, binding
}
