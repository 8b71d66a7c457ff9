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
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"trpc.group/trpc-go/trpc-artifact-go/artifact"
)

// transpilerURL is the in-page transpiler used so exported documents can
// carry untranspiled component syntax without any build step.
const transpilerURL = "https://unpkg.com/@babel/standalone@7.24.7/babel.min.js"

// mermaidURL is the diagram runtime pinned into exported diagram documents.
const mermaidURL = "https://cdn.jsdelivr.net/npm/mermaid@10.9.1/dist/mermaid.esm.min.mjs"

// Standalone synthesizes a complete, dependency-free document: an import
// map pinning the host runtime to one CDN-hosted version, the artifact
// code with its default export rewritten to a top-level binding, and
// inlined error handling that paints a visible panel instead of leaving a
// blank page.
type Standalone struct {
	kind artifact.Kind
	md   goldmark.Markdown
}

// NewStandalone creates the standalone strategy for one artifact kind.
func NewStandalone(kind artifact.Kind) *Standalone {
	return &Standalone{
		kind: kind,
		md: goldmark.New(
			goldmark.WithRendererOptions(gmhtml.WithHardWraps()),
		),
	}
}

// Name implements Strategy.
func (s *Standalone) Name() string { return "standalone" }

// Package implements Strategy.
func (s *Standalone) Package(code string, deps map[string]string, title string) (string, error) {
	switch s.kind {
	case artifact.KindComponentTree:
		return s.packageComponent(code, deps, title)
	case artifact.KindScript:
		return s.packageScript(code, deps, title)
	case artifact.KindMarkup:
		return s.packageMarkup(code, title), nil
	case artifact.KindDocument:
		return s.packageDocument(code, title)
	case artifact.KindDiagram:
		return s.packageDiagram(code, title), nil
	case artifact.KindImage:
		return s.packageImage(code, title), nil
	default:
		return "", fmt.Errorf("no standalone rendering for artifact kind %q", s.kind)
	}
}

// buildImportMap pins the host runtime names to one CDN version and routes
// every third-party package through the same CDN with the host runtime
// marked external, so all packages share a single runtime instance.
func buildImportMap(deps map[string]string) (string, error) {
	imports := map[string]string{
		"react":            fmt.Sprintf("%s/react@%s", CDNBase, HostRuntimeVersion),
		"react/":           fmt.Sprintf("%s/react@%s/", CDNBase, HostRuntimeVersion),
		"react-dom":        fmt.Sprintf("%s/react-dom@%s", CDNBase, HostRuntimeVersion),
		"react-dom/":       fmt.Sprintf("%s/react-dom@%s/", CDNBase, HostRuntimeVersion),
		"react-dom/client": fmt.Sprintf("%s/react-dom@%s/client", CDNBase, HostRuntimeVersion),
	}

	names := make([]string, 0, len(deps))
	for name := range deps {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "@/") || strings.HasPrefix(name, "~/") {
			continue // internal paths are the bundler's problem, not the CDN's
		}
		version := deps[name]
		if version == "" {
			version = "latest"
		}
		imports[name] = fmt.Sprintf("%s/%s@%s?external=react,react-dom", CDNBase, name, version)
	}

	data, err := json.MarshalIndent(map[string]map[string]string{"imports": imports}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode import map: %w", err)
	}
	return string(data), nil
}

// errorPanelScript is the second line of defense: a top-level listener
// that paints uncaught errors into a visible panel.
const errorPanelScript = `window.addEventListener("error", function (event) {
  paintErrorPanel(event.message || "Unknown error");
});
window.addEventListener("unhandledrejection", function (event) {
  paintErrorPanel(String(event.reason) || "Unhandled rejection");
});
function paintErrorPanel(message) {
  var panel = document.getElementById("artifact-error-panel");
  if (!panel) { return; }
  panel.style.display = "block";
  panel.textContent = "Something went wrong running this artifact: " + message;
}`

// errorBoundarySource is the first line of defense for component
// artifacts: a boundary that catches render errors in place.
const errorBoundarySource = `class ArtifactErrorBoundary extends React.Component {
  constructor(props) {
    super(props);
    this.state = { error: null };
  }
  static getDerivedStateFromError(error) {
    return { error: error };
  }
  render() {
    if (this.state.error) {
      return React.createElement(
        "div",
        { className: "artifact-error-panel", style: { display: "block" } },
        "Something went wrong rendering this artifact: " + String(this.state.error.message || this.state.error)
      );
    }
    return this.props.children;
  }
}`

const panelStyle = `.artifact-error-panel, #artifact-error-panel {
  display: none;
  margin: 16px;
  padding: 12px 16px;
  border: 1px solid #d93025;
  border-radius: 8px;
  background: #fdecea;
  color: #611a15;
  font: 14px/1.5 system-ui, sans-serif;
  white-space: pre-wrap;
}`

func (s *Standalone) packageComponent(code string, deps map[string]string, title string) (string, error) {
	importMap, err := buildImportMap(deps)
	if err != nil {
		return "", err
	}

	rewritten, binding := rewriteDefaultExport(code)

	var mount string
	if binding != "" {
		mount = fmt.Sprintf(`const __artifactRoot = ReactDOM.createRoot(document.getElementById("artifact-root"));
__artifactRoot.render(
  React.createElement(ArtifactErrorBoundary, null, React.createElement(%s, null))
);`, binding)
	} else {
		mount = `paintErrorPanel("The component has no default export to render.");`
	}

	var b strings.Builder
	writeDocumentHead(&b, title)
	fmt.Fprintf(&b, "  <script type=\"importmap\">\n%s\n  </script>\n", importMap)
	fmt.Fprintf(&b, "  <script src=%q></script>\n", transpilerURL)
	b.WriteString("</head>\n<body>\n")
	b.WriteString("  <div id=\"artifact-root\"></div>\n")
	b.WriteString("  <div id=\"artifact-error-panel\"></div>\n")
	fmt.Fprintf(&b, "  <script>\n%s\n  </script>\n", errorPanelScript)
	b.WriteString("  <script type=\"text/babel\" data-type=\"module\" data-presets=\"react\">\n")
	b.WriteString("import React from \"react\";\nimport ReactDOM from \"react-dom/client\";\n")
	b.WriteString(errorBoundarySource)
	b.WriteString("\n\n")
	b.WriteString(rewritten)
	b.WriteString("\n\n")
	b.WriteString(mount)
	b.WriteString("\n  </script>\n</body>\n</html>\n")
	return b.String(), nil
}

func (s *Standalone) packageScript(code string, deps map[string]string, title string) (string, error) {
	importMap, err := buildImportMap(deps)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	writeDocumentHead(&b, title)
	fmt.Fprintf(&b, "  <script type=\"importmap\">\n%s\n  </script>\n", importMap)
	b.WriteString("</head>\n<body>\n")
	b.WriteString("  <div id=\"artifact-root\"></div>\n")
	b.WriteString("  <div id=\"artifact-error-panel\"></div>\n")
	fmt.Fprintf(&b, "  <script>\n%s\n  </script>\n", errorPanelScript)
	b.WriteString("  <script type=\"module\">\n")
	b.WriteString(code)
	b.WriteString("\n  </script>\n</body>\n</html>\n")
	return b.String(), nil
}

func (s *Standalone) packageMarkup(code, title string) string {
	// A full document keeps its own structure; the error listener is
	// injected so script failures inside it still surface.
	if strings.Contains(strings.ToLower(code), "<html") {
		injection := fmt.Sprintf("<style>\n%s\n</style>\n<div id=\"artifact-error-panel\"></div>\n<script>\n%s\n</script>\n", panelStyle, errorPanelScript)
		lower := strings.ToLower(code)
		if idx := strings.LastIndex(lower, "</body>"); idx >= 0 {
			return code[:idx] + injection + code[idx:]
		}
		return code + injection
	}

	var b strings.Builder
	writeDocumentHead(&b, title)
	b.WriteString("</head>\n<body>\n")
	b.WriteString("  <div id=\"artifact-error-panel\"></div>\n")
	fmt.Fprintf(&b, "  <script>\n%s\n  </script>\n", errorPanelScript)
	b.WriteString(code)
	b.WriteString("\n</body>\n</html>\n")
	return b.String()
}

func (s *Standalone) packageDocument(code, title string) (string, error) {
	var rendered bytes.Buffer
	if err := s.md.Convert([]byte(code), &rendered); err != nil {
		return "", fmt.Errorf("failed to render document: %w", err)
	}

	var b strings.Builder
	writeDocumentHead(&b, title)
	b.WriteString("  <style>\n    body { max-width: 720px; margin: 40px auto; padding: 0 16px; font: 16px/1.6 system-ui, sans-serif; }\n  </style>\n")
	b.WriteString("</head>\n<body>\n")
	b.Write(rendered.Bytes())
	b.WriteString("</body>\n</html>\n")
	return b.String(), nil
}

func (s *Standalone) packageDiagram(code, title string) string {
	var b strings.Builder
	writeDocumentHead(&b, title)
	b.WriteString("</head>\n<body>\n")
	b.WriteString("  <div id=\"artifact-error-panel\"></div>\n")
	fmt.Fprintf(&b, "  <script>\n%s\n  </script>\n", errorPanelScript)
	fmt.Fprintf(&b, "  <pre class=\"mermaid\">\n%s\n  </pre>\n", html.EscapeString(code))
	fmt.Fprintf(&b, "  <script type=\"module\">\nimport mermaid from %q;\nmermaid.initialize({ startOnLoad: true });\n  </script>\n", mermaidURL)
	b.WriteString("</body>\n</html>\n")
	return b.String()
}

func (s *Standalone) packageImage(code, title string) string {
	var b strings.Builder
	writeDocumentHead(&b, title)
	b.WriteString("  <style>\n    body { display: grid; place-items: center; min-height: 100vh; margin: 0; }\n  </style>\n")
	b.WriteString("</head>\n<body>\n")
	trimmed := strings.TrimSpace(code)
	if strings.HasPrefix(trimmed, "<svg") {
		b.WriteString(trimmed)
		b.WriteString("\n")
	} else {
		// Anything non-SVG is carried as an already-encoded data URI.
		fmt.Fprintf(&b, "  <img src=%q alt=%q>\n", trimmed, title)
	}
	b.WriteString("</body>\n</html>\n")
	return b.String()
}

func writeDocumentHead(b *strings.Builder, title string) {
	if title == "" {
		title = "Artifact"
	}
	b.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n")
	b.WriteString("  <meta charset=\"utf-8\">\n")
	b.WriteString("  <meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">\n")
	fmt.Fprintf(b, "  <title>%s</title>\n", html.EscapeString(title))
	fmt.Fprintf(b, "  <style>\n%s\n  </style>\n", panelStyle)
}
