// Package markdown turns page bodies into HTML. The Renderer interface is the
// seam the content loaders accept; GoMarkdown is the default implementation
// and Goldmark is available for sites that prefer CommonMark-strict output.
package markdown

import (
	"strings"
)

// Options selects renderer features. The zero value turns every feature off;
// callers that want the defaults start from DefaultOptions.
type Options struct {
	FencedCode bool
	Highlight  bool
	Tables     bool
	// HTML passes raw HTML blocks and inline tags through untouched
	HTML bool
	// TOC replaces a paragraph reading exactly [TOC] with a list of the
	// document headings. Headings get ids either way.
	TOC bool

	// chroma style name used when Highlight is set, "" means github
	HighlightStyle string
}

const DefaultHighlightStyle = "github"

// DefaultOptions enables fenced code, syntax highlighting, tables, raw HTML
// and [TOC] markers.
func DefaultOptions() Options {
	return Options{
		FencedCode:     true,
		Highlight:      true,
		Tables:         true,
		HTML:           true,
		TOC:            true,
		HighlightStyle: DefaultHighlightStyle,
	}
}

func (o Options) style() string {
	if s := strings.TrimSpace(o.HighlightStyle); s != "" {
		return s
	}
	return DefaultHighlightStyle
}

// Renderer converts a Markdown document to HTML.
type Renderer interface {
	Render(src []byte, opts Options) ([]byte, error)
}

// RendererFunc adapts a plain function into a Renderer.
type RendererFunc func(src []byte, opts Options) ([]byte, error)

func (f RendererFunc) Render(src []byte, opts Options) ([]byte, error) { return f(src, opts) }

// Default is used when no renderer is configured.
var Default Renderer = GoMarkdown{}

// ByName returns the renderer registered under name ("gomarkdown" or "goldmark").
func ByName(name string) (Renderer, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "gomarkdown":
		return GoMarkdown{}, true
	case "goldmark":
		return Goldmark{}, true
	default:
		return nil, false
	}
}
