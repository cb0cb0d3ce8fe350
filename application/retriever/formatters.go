package retriever

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kodexhq/kodex/domain/retrieval"
)

// FormatName is the closed set of output formats, selected by
// configuration -- the tool transport never exposes the calling agent's
// identity, so format selection is never inferred.
type FormatName string

// Closed set of formats.
const (
	FormatMarkdown FormatName = "markdown"
	FormatClaude   FormatName = "claude"
	FormatPlain    FormatName = "plain"
	FormatJSON     FormatName = "json"
)

// FormatterFor resolves a FormatName to its Formatter implementation.
func FormatterFor(name FormatName) Formatter {
	switch name {
	case FormatClaude:
		return ClaudeFormatter
	case FormatPlain:
		return PlainFormatter
	case FormatJSON:
		return JSONFormatter
	default:
		return MarkdownFormatter
	}
}

// MarkdownFormatter renders Markdown headings, fenced code, and a bullet
// Sources list.
func MarkdownFormatter(ac retrieval.AssembledContext) ([]byte, error) {
	var b strings.Builder
	b.WriteString("# Retrieved Context\n\n")
	b.WriteString(ac.Text)
	b.WriteString("\n\n## Sources\n")
	for _, s := range ac.Sources {
		trunc := ""
		if s.Truncated {
			trunc = " (truncated)"
		}
		fmt.Fprintf(&b, "- `%s` (%s) score=%.3f %s%s\n", s.Identifier, s.Type, s.Score, s.FilePath, trunc)
	}
	return []byte(b.String()), nil
}

// ClaudeFormatter wraps Markdown in an XML envelope whose attributes carry
// token/budget accounting. Content is XML-escaped.
func ClaudeFormatter(ac retrieval.AssembledContext) ([]byte, error) {
	escaped := xmlEscape(ac.Text)
	out := fmt.Sprintf(
		"<context tokens_used=\"%d\" budget=\"%d\">\n%s\n</context>",
		ac.TokensUsed, ac.Budget, escaped,
	)
	return []byte(out), nil
}

// PlainFormatter renders dividers, a Tokens: used/budget line, and a
// bracketed Sources list.
func PlainFormatter(ac retrieval.AssembledContext) ([]byte, error) {
	var b strings.Builder
	b.WriteString("====================\n")
	fmt.Fprintf(&b, "Tokens: %d/%d\n", ac.TokensUsed, ac.Budget)
	b.WriteString("====================\n")
	b.WriteString(ac.Text)
	b.WriteString("\n[Sources]\n")
	for _, s := range ac.Sources {
		fmt.Fprintf(&b, "[%s %s]\n", s.Identifier, s.Type)
	}
	return []byte(b.String()), nil
}

// JSONFormatter renders a pretty-printed JSON dump of the AssembledContext.
func JSONFormatter(ac retrieval.AssembledContext) ([]byte, error) {
	return json.MarshalIndent(ac, "", "  ")
}

func xmlEscape(s string) string {
	replacer := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		"\"", "&quot;",
		"'", "&apos;",
	)
	return replacer.Replace(s)
}

// RenderHint names the per-tool renderer selection; render_default is the
// fallback every tool is guaranteed to resolve to.
type RenderHint string

// Closed set of renderer hints used by the tool-response renderer layer.
const (
	RenderLookup  RenderHint = "render_lookup"
	RenderSearch  RenderHint = "render_search"
	RenderDefault RenderHint = "render_default"
)

// ToolRenderer dispatches a per-tool hint to a renderer function, falling
// back to render_default. Each renderer supplies only the hints it differs
// on; callers register overrides via WithHint.
type ToolRenderer struct {
	renderers map[RenderHint]func(any) (string, error)
}

// NewToolRenderer constructs a renderer with the given default.
func NewToolRenderer(defaultRenderer func(any) (string, error)) *ToolRenderer {
	return &ToolRenderer{renderers: map[RenderHint]func(any) (string, error){RenderDefault: defaultRenderer}}
}

// WithHint registers a renderer override for a specific hint.
func (r *ToolRenderer) WithHint(hint RenderHint, fn func(any) (string, error)) *ToolRenderer {
	r.renderers[hint] = fn
	return r
}

// Render dispatches result to the renderer for hint, falling back to
// render_default if no override was registered.
func (r *ToolRenderer) Render(hint RenderHint, result any) (string, error) {
	if fn, ok := r.renderers[hint]; ok {
		return fn(result)
	}
	return r.renderers[RenderDefault](result)
}
