package markdown

import (
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

var kindTOC = ast.NewNodeKind("TOC")

// tocBlock stands in for a [TOC] paragraph and carries the headings to list.
type tocBlock struct {
	ast.BaseBlock
	entries []tocEntry
}

func (n *tocBlock) Kind() ast.NodeKind { return kindTOC }

func (n *tocBlock) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"Entries": strconv.Itoa(len(n.entries))}, nil)
}

// tocExtension swaps marker paragraphs for a tocBlock after parsing, when
// heading ids have already been assigned.
type tocExtension struct{}

func (tocExtension) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(parser.WithASTTransformers(util.Prioritized(tocTransformer{}, 500)))
	m.Renderer().AddOptions(renderer.WithNodeRenderers(util.Prioritized(tocRenderer{}, 500)))
}

type tocTransformer struct{}

func (tocTransformer) Transform(doc *ast.Document, reader text.Reader, _ parser.Context) {
	src := reader.Source()
	var entries []tocEntry
	var markers []*ast.Paragraph
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			e := tocEntry{level: node.Level, title: strings.TrimSpace(string(node.Text(src)))}
			if v, ok := node.AttributeString("id"); ok {
				if id, ok := v.([]byte); ok {
					e.id = string(id)
				}
			}
			entries = append(entries, e)
			return ast.WalkSkipChildren, nil
		case *ast.Paragraph:
			if isTOCMarker(string(linesText(node, src))) {
				markers = append(markers, node)
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	for _, p := range markers {
		p.Parent().ReplaceChild(p.Parent(), p, &tocBlock{entries: entries})
	}
}

func linesText(n ast.Node, src []byte) []byte {
	var out []byte
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		out = append(out, seg.Value(src)...)
	}
	return out
}

type tocRenderer struct{}

func (tocRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(kindTOC, func(w util.BufWriter, _ []byte, n ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering {
			writeTOC(w, n.(*tocBlock).entries)
		}
		return ast.WalkSkipChildren, nil
	})
}
