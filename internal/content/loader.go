package content

import (
	"context"
	"path"
	"strings"

	"github.com/keithlinneman/staticrouter/internal/page"
)

// ContentLoader produces every page to serve.
type ContentLoader interface {
	Load(ctx context.Context) ([]*page.Page, error)
}

// LoaderFunc adapts a function into a ContentLoader.
type LoaderFunc func(ctx context.Context) ([]*page.Page, error)

func (f LoaderFunc) Load(ctx context.Context) ([]*page.Page, error) { return f(ctx) }

// MarkdownExt is the suffix of content files.
const MarkdownExt = ".md"

// PathFor maps a content file's path relative to the content root to its URL
// path: "blog/2021-01-01.md" -> "/blog/2021-01-01/". The root index.md maps
// to "/"; nested index files keep their name.
func PathFor(rel string) string {
	rel = strings.ReplaceAll(rel, "\\", "/")
	rel = strings.TrimSuffix(rel, MarkdownExt)
	p := path.Clean("/" + rel)
	if p == "/index" {
		return "/"
	}
	return page.NormalizePath(p)
}
