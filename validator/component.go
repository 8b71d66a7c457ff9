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
	"sort"
	"strings"
)

var (
	hookCallPattern = regexp.MustCompile(`\b(use[A-Z][A-Za-z]*)\s*\(`)
	// Lower-case-first tag containing an upper-case letter later, e.g.
	// <myComponent>: almost always a component the author forgot to
	// capitalize, which JSX treats as an unknown host element.
	lowercaseTagPattern = regexp.MustCompile(`<([a-z][a-z0-9]*[A-Z][A-Za-z0-9]*)[\s/>]`)
	storagePattern      = regexp.MustCompile(`\b(localStorage|sessionStorage)\s*[.\[]`)
	capOpenTagPattern   = regexp.MustCompile(`<([A-Z][A-Za-z0-9]*)`)
	capCloseTagPattern  = regexp.MustCompile(`</([A-Z][A-Za-z0-9]*)>`)
	importLinePattern   = regexp.MustCompile(`(?m)^\s*import\s+.*$`)
)

// reactHooks is the stateful-primitive set checked against imports.
var reactHooks = map[string]bool{
	"useState":    true,
	"useEffect":   true,
	"useRef":      true,
	"useMemo":     true,
	"useCallback": true,
	"useContext":  true,
	"useReducer":  true,
}

// validateComponent checks component-tree artifacts: everything the script
// validator checks, plus heuristics for the mistakes that most often crash
// the sandboxed React runtime.
func (v *Validator) validateComponent(source string, result *Result) {
	v.validateScript(source, result)
	if strings.TrimSpace(source) == "" {
		return
	}

	// The sandbox provides no durable storage; touching the browser
	// key/value store either throws or silently loses data.
	if m := storagePattern.FindStringSubmatch(source); m != nil {
		result.addError(ErrorStructure, SeverityCritical,
			fmt.Sprintf("%s is not available inside the sandboxed execution context", m[1]))
		result.Warnings = append(result.Warnings, Warning{
			Kind:        WarningBestPractice,
			Message:     fmt.Sprintf("replace %s with in-memory state", m[1]),
			Remediation: "hold values in React state (useState or useReducer); data does not persist across sandbox reloads",
		})
	}

	v.checkHookImports(source, result)

	if m := lowercaseTagPattern.FindStringSubmatch(source); m != nil {
		result.addWarning(WarningBestPractice,
			fmt.Sprintf("component <%s> should start with an upper-case letter", m[1]))
	}

	if strings.Contains(source, ".map(") && !strings.Contains(source, "key=") {
		result.addWarning(WarningBestPractice, "list rendering without a stable key prop")
	}

	v.checkCapitalizedTagCounts(source, result)

	if !strings.Contains(source, "export default") {
		result.addWarning(WarningBestPractice, "component has no default export; the sandbox renders the default export")
	}
}

// checkHookImports flags hook calls with no corresponding import. Calling
// a hook that was never imported is legal when React is in scope globally,
// but in the sandbox it reliably means a missing import line.
func (v *Validator) checkHookImports(source string, result *Result) {
	imports := strings.Join(importLinePattern.FindAllString(source, -1), "\n")

	seen := make(map[string]bool)
	for _, m := range hookCallPattern.FindAllStringSubmatch(source, -1) {
		hook := m[1]
		if !reactHooks[hook] || seen[hook] {
			continue
		}
		seen[hook] = true
		if strings.Contains(imports, hook) || strings.Contains(source, "React."+hook) {
			continue
		}
		result.addWarning(WarningBestPractice, fmt.Sprintf("%s is called but never imported", hook))
	}
}

// checkCapitalizedTagCounts compares per-component open and close tag
// counts. Self-closing usages are excluded. Purely a heuristic: JSX
// spread across helper variables trips it, which is why it only warns.
func (v *Validator) checkCapitalizedTagCounts(source string, result *Result) {
	opens := make(map[string]int)
	for _, m := range capOpenTagPattern.FindAllStringSubmatchIndex(source, -1) {
		name := source[m[2]:m[3]]
		if selfClosingAt(source, m[0]) {
			continue
		}
		opens[name]++
	}

	closes := make(map[string]int)
	for _, m := range capCloseTagPattern.FindAllStringSubmatch(source, -1) {
		closes[m[1]]++
	}

	names := make([]string, 0, len(opens))
	for name := range opens {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if opens[name] != closes[name] {
			result.addWarning(WarningBestPractice,
				fmt.Sprintf("<%s> appears %d time(s) but </%s> appears %d time(s)", name, opens[name], name, closes[name]))
		}
	}
}

// selfClosingAt reports whether the tag starting at index i ends with "/>".
func selfClosingAt(source string, i int) bool {
	end := strings.Index(source[i:], ">")
	if end < 0 {
		return false
	}
	return strings.HasSuffix(source[i:i+end], "/")
}
