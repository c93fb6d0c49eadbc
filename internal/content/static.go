package content

import (
	"context"
	"io/fs"
	"os"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/keithlinneman/staticrouter/internal/log"
	"github.com/keithlinneman/staticrouter/internal/markdown"
	"github.com/keithlinneman/staticrouter/internal/page"
	"github.com/keithlinneman/staticrouter/internal/xerrors"
)

const markdownGlob = "**/*" + MarkdownExt

// StaticLoader loads every *.md file below a root. Paths are computed
// relative to the root, so the root directory's own name never leaks into URLs.
type StaticLoader struct {
	root     string
	fsys     fs.FS
	renderer markdown.Renderer
	opts     *markdown.Options
	logger   log.Logger
}

type Option func(*loaderConfig)

type loaderConfig struct {
	renderer markdown.Renderer
	opts     *markdown.Options // nil renders with markdown.DefaultOptions()
	logger   log.Logger
}

// WithRenderer sets the Markdown renderer, default markdown.Default.
func WithRenderer(r markdown.Renderer) Option {
	return func(c *loaderConfig) { c.renderer = r }
}

// WithRenderOptions sets renderer options, default markdown.DefaultOptions().
// o is used as given, so a zero Options renders with every feature off.
func WithRenderOptions(o markdown.Options) Option {
	return func(c *loaderConfig) { c.opts = &o }
}

func WithLogger(l log.Logger) Option {
	return func(c *loaderConfig) { c.logger = l }
}

func newLoaderConfig(opts []Option) loaderConfig {
	c := loaderConfig{
		renderer: markdown.Default,
		logger:   log.Nop(),
	}
	for _, o := range opts {
		o(&c)
	}
	if c.renderer == nil {
		c.renderer = markdown.Default
	}
	if c.logger == nil {
		c.logger = log.Nop()
	}
	return c
}

// NewStaticLoader loads pages from directory dir on disk.
func NewStaticLoader(dir string, opts ...Option) *StaticLoader {
	l := NewFSLoader(os.DirFS(dir), opts...)
	l.root = dir
	return l
}

// NewFSLoader loads pages from the root of fsys.
func NewFSLoader(fsys fs.FS, opts ...Option) *StaticLoader {
	c := newLoaderConfig(opts)
	return &StaticLoader{
		root:     ".",
		fsys:     fsys,
		renderer: c.renderer,
		opts:     c.opts,
		logger:   c.logger,
	}
}

// Load reads and renders every page. The first failure aborts the load.
func (l *StaticLoader) Load(ctx context.Context) ([]*page.Page, error) {
	start := time.Now()

	names, err := doublestar.Glob(l.fsys, markdownGlob, doublestar.WithFilesOnly(), doublestar.WithFailOnIOErrors())
	if err != nil {
		return nil, xerrors.Wrapf(err, "list content in %s", l.root)
	}

	pages := make([]*page.Page, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, xerrors.WithStack(err)
		}

		raw, err := fs.ReadFile(l.fsys, name)
		if err != nil {
			return nil, xerrors.Wrapf(err, "read %s", name)
		}

		p, err := page.FromMarkdown(string(raw), PathFor(name), l.renderer, l.opts)
		if err != nil {
			return nil, xerrors.Wrapf(err, "load %s", name)
		}
		l.logger.Debug(ctx, "loaded page", "file", name, "path", p.Path)
		pages = append(pages, p)
	}

	l.logger.Info(ctx, "loaded content directory",
		"root", l.root,
		"pages", len(pages),
		"duration", time.Since(start).String(),
	)
	return pages, nil
}
