package markdown

import (
	stdhtml "html"
	"io"
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	md "github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/ast"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// GoMarkdown renders with gomarkdown and highlights code blocks with chroma.
// It holds no state; gomarkdown parsers are single use so one is built per call.
type GoMarkdown struct{}

func (GoMarkdown) Render(src []byte, opts Options) ([]byte, error) {
	exts := parser.NoIntraEmphasis | parser.Autolink | parser.Strikethrough |
		parser.SpaceHeadings | parser.HeadingIDs | parser.AutoHeadingIDs |
		parser.BackslashLineBreak | parser.DefinitionLists
	if opts.FencedCode {
		exts |= parser.FencedCode
	}
	if opts.Tables {
		exts |= parser.Tables
	}
	p := parser.NewWithExtensions(exts)
	doc := p.Parse(src)

	flags := mdhtml.CommonFlags
	if !opts.HTML {
		flags |= mdhtml.SkipHTML
	}
	ro := mdhtml.RendererOptions{Flags: flags}

	var toc []tocEntry
	if opts.TOC {
		toc = gomarkdownHeadings(doc, ro)
	}
	style := opts.style()
	ro.RenderNodeHook = func(w io.Writer, node ast.Node, entering bool) (ast.WalkStatus, bool) {
		switch n := node.(type) {
		case *ast.CodeBlock:
			if !opts.Highlight || !entering {
				return ast.GoToNext, false
			}
			highlightBlock(w, string(n.Literal), codeLanguage(n.Info), style)
			return ast.SkipChildren, true
		case *ast.Paragraph:
			if !opts.TOC || !isTOCMarker(leafText(n)) {
				return ast.GoToNext, false
			}
			// paragraphs are containers, the exit call must be swallowed too
			if entering {
				writeTOC(w, toc)
			}
			return ast.SkipChildren, true
		}
		return ast.GoToNext, false
	}
	return md.Render(doc, mdhtml.NewRenderer(ro)), nil
}

// gomarkdownHeadings lists headings in document order. Ids go through a
// scratch renderer so duplicates get the same suffixes the real one assigns.
func gomarkdownHeadings(doc ast.Node, ro mdhtml.RendererOptions) []tocEntry {
	scratch := mdhtml.NewRenderer(ro)
	var entries []tocEntry
	ast.WalkFunc(doc, func(node ast.Node, entering bool) ast.WalkStatus {
		h, ok := node.(*ast.Heading)
		if !ok || !entering {
			return ast.GoToNext
		}
		if h.HeadingID != "" && !h.IsTitleblock {
			entries = append(entries, tocEntry{
				level: h.Level,
				id:    scratch.EnsureUniqueHeadingID(h.HeadingID),
				title: strings.TrimSpace(leafText(h)),
			})
		}
		return ast.SkipChildren
	})
	return entries
}

// leafText concatenates the literals of every leaf under n.
func leafText(n ast.Node) string {
	var b strings.Builder
	ast.WalkFunc(n, func(node ast.Node, entering bool) ast.WalkStatus {
		if leaf := node.AsLeaf(); leaf != nil && entering {
			b.Write(leaf.Literal)
		}
		return ast.GoToNext
	})
	return b.String()
}

func highlightBlock(w io.Writer, code, lang, styleName string) {
	iterator, err := pickLexer(lang, code).Tokenise(nil, code)
	if err != nil {
		plainBlock(w, code)
		return
	}
	style := styles.Get(styleName)
	if style == nil {
		style = styles.Fallback
	}
	formatter := chromahtml.New(chromahtml.WithClasses(true))
	if err := formatter.Format(w, style, iterator); err != nil {
		plainBlock(w, code)
	}
}

func plainBlock(w io.Writer, code string) {
	_, _ = io.WriteString(w, `<pre class="chroma"><code>`)
	_, _ = io.WriteString(w, stdhtml.EscapeString(code))
	_, _ = io.WriteString(w, `</code></pre>`)
}

func pickLexer(lang, code string) chroma.Lexer {
	if lang != "" {
		if l := lexers.Get(lang); l != nil {
			return l
		}
	}
	if l := lexers.Analyse(code); l != nil {
		return l
	}
	return lexers.Fallback
}

// codeLanguage takes the first word of a fence info string ("go title=x" -> "go")
func codeLanguage(info []byte) string {
	fields := strings.Fields(string(info))
	if len(fields) == 0 {
		return ""
	}
	return strings.ToLower(fields[0])
}
