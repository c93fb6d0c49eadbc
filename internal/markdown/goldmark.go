package markdown

import (
	"bytes"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"

	"github.com/keithlinneman/staticrouter/internal/xerrors"
)

// Goldmark renders with goldmark. Fenced code is part of CommonMark so
// FencedCode cannot be switched off here.
type Goldmark struct{}

func (Goldmark) Render(src []byte, opts Options) ([]byte, error) {
	engine := newGoldmark(opts)

	doc := engine.Parser().Parse(text.NewReader(src))

	var buf bytes.Buffer
	if err := engine.Renderer().Render(&buf, src, doc); err != nil {
		return nil, xerrors.Wrap(err, "goldmark render")
	}
	return buf.Bytes(), nil
}

func newGoldmark(opts Options) goldmark.Markdown {
	var exts []goldmark.Extender
	exts = append(exts, extension.Strikethrough, extension.Linkify, extension.DefinitionList)
	if opts.Tables {
		exts = append(exts, extension.Table)
	}
	if opts.TOC {
		exts = append(exts, tocExtension{})
	}
	if opts.Highlight {
		exts = append(exts, highlighting.NewHighlighting(
			highlighting.WithStyle(opts.style()),
			highlighting.WithFormatOptions(chromahtml.WithClasses(true)),
		))
	}

	var ropts []goldmark.Option
	ropts = append(ropts,
		goldmark.WithExtensions(exts...),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	)
	if opts.HTML {
		ropts = append(ropts, goldmark.WithRendererOptions(html.WithUnsafe()))
	}
	return goldmark.New(ropts...)
}
