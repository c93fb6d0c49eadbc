package markdown

import (
	stdhtml "html"
	"io"
	"strconv"
	"strings"
)

// tocMarker is the paragraph text replaced by the table of contents.
const tocMarker = "[TOC]"

type tocEntry struct {
	level int
	id    string
	title string
}

func isTOCMarker(text string) bool { return strings.TrimSpace(text) == tocMarker }

// writeTOC emits a flat nav list with one link per heading; the nesting depth
// is carried as a class so stylesheets can indent. No headings, no output.
func writeTOC(w io.Writer, entries []tocEntry) {
	if len(entries) == 0 {
		return
	}
	var b strings.Builder
	b.WriteString(`<nav class="toc"><ul>`)
	for _, e := range entries {
		b.WriteString(`<li class="toc-h`)
		b.WriteString(strconv.Itoa(e.level))
		b.WriteString(`"><a href="#`)
		b.WriteString(stdhtml.EscapeString(e.id))
		b.WriteString(`">`)
		b.WriteString(stdhtml.EscapeString(e.title))
		b.WriteString(`</a></li>`)
	}
	b.WriteString("</ul></nav>\n")
	_, _ = io.WriteString(w, b.String())
}
