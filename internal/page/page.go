// Package page holds the unit of servable content: frontmatter metadata, the
// rendered HTML body, and the URL path the page is served at.
package page

import (
	"errors"
	"fmt"
	"html/template"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/keithlinneman/staticrouter/internal/markdown"
	"github.com/keithlinneman/staticrouter/internal/xerrors"
)

// ErrMissingFrontmatter is returned when a document has fewer than two
// frontmatter delimiters.
var ErrMissingFrontmatter = errors.New("missing frontmatter")

// Delimiter separates the frontmatter block from the surrounding text.
const Delimiter = "---"

// TemplateKey is the frontmatter key that selects the rendering template.
const TemplateKey = "template"

// Page is one servable document. Path always begins and ends with "/".
type Page struct {
	Frontmatter map[string]any
	Content     template.HTML
	Path        string
}

// FromMarkdown builds a Page from a document of the form
//
//	---
//	key: value
//	---
//	# Markdown body
//
// raw is split on the first two "---" occurrences; anything before the first
// one is ignored. r may be nil to use markdown.Default, and a nil opts means
// markdown.DefaultOptions(). A non-nil zero Options turns every feature off.
func FromMarkdown(raw, path string, r markdown.Renderer, opts *markdown.Options) (*Page, error) {
	parts := strings.SplitN(raw, Delimiter, 3)
	if len(parts) < 3 {
		return nil, fmt.Errorf("page %s must have frontmatter: %w", path, ErrMissingFrontmatter)
	}

	fm := map[string]any{}
	if err := yaml.Unmarshal([]byte(parts[1]), &fm); err != nil {
		return nil, xerrors.Wrapf(err, "page %s: parse frontmatter", path)
	}
	if fm == nil {
		// "null" documents reset the map
		fm = map[string]any{}
	}

	if r == nil {
		r = markdown.Default
	}
	ro := markdown.DefaultOptions()
	if opts != nil {
		ro = *opts
	}
	body, err := r.Render([]byte(parts[2]), ro)
	if err != nil {
		return nil, xerrors.Wrapf(err, "page %s: render markdown", path)
	}

	return &Page{
		Frontmatter: fm,
		Content:     template.HTML(body),
		Path:        NormalizePath(path),
	}, nil
}

// NormalizePath makes p begin and end with "/". It is idempotent.
func NormalizePath(p string) string {
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if !strings.HasSuffix(p, "/") {
		p += "/"
	}
	return p
}

// Get returns the frontmatter value for key, or nil when it is absent.
func (p *Page) Get(key string) any {
	return p.Frontmatter[key]
}

// Lookup is Get with an explicit presence flag.
func (p *Page) Lookup(key string) (any, bool) {
	v, ok := p.Frontmatter[key]
	return v, ok
}

// Set stores value under key in the frontmatter.
func (p *Page) Set(key string, value any) {
	if p.Frontmatter == nil {
		p.Frontmatter = map[string]any{}
	}
	p.Frontmatter[key] = value
}

// String returns the value for key formatted as a string, "" when absent.
func (p *Page) String(key string) string {
	switch v := p.Frontmatter[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// Title is the "title" frontmatter value, "" when absent.
func (p *Page) Title() string { return p.String("title") }

// Template returns the explicit template name. Anything other than a
// non-blank string (false, 0, null, a list) counts as unset and yields "".
func (p *Page) Template() string {
	name, _ := p.Frontmatter[TemplateKey].(string)
	return strings.TrimSpace(name)
}
