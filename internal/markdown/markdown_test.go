package markdown

import (
	"strings"
	"testing"
)

const sample = "# Getting Started\n\nSome <span class=\"x\">inline</span> text.\n\n" +
	"## Install\n\n```go\nfmt.Println(\"hello\")\n```\n\n" +
	"| a | b |\n|---|---|\n| 1 | 2 |\n"

func renderers() map[string]Renderer {
	return map[string]Renderer{
		"gomarkdown": GoMarkdown{},
		"goldmark":   Goldmark{},
	}
}

func TestDefaultOptions_EnablesEverything(t *testing.T) {
	o := DefaultOptions()
	if !o.FencedCode || !o.Highlight || !o.Tables || !o.HTML || !o.TOC {
		t.Fatalf("DefaultOptions = %+v, want all features on", o)
	}
}

func TestRender_DefaultOptions(t *testing.T) {
	for name, r := range renderers() {
		t.Run(name, func(t *testing.T) {
			out, err := r.Render([]byte(sample), DefaultOptions())
			if err != nil {
				t.Fatalf("Render: %v", err)
			}
			html := string(out)

			if !strings.Contains(html, "<table>") {
				t.Errorf("expected table, got %s", html)
			}
			if !strings.Contains(html, `<span class="x">inline</span>`) {
				t.Errorf("expected raw inline HTML kept, got %s", html)
			}
			if !strings.Contains(html, `class="chroma"`) {
				t.Errorf("expected chroma highlighted block, got %s", html)
			}
			if strings.Contains(html, "<nav") {
				t.Errorf("no [TOC] marker should mean no toc, got %s", html)
			}
			if !strings.Contains(html, `id="install"`) {
				t.Errorf("expected heading id, got %s", html)
			}
		})
	}
}

func TestRender_HTMLDisabled(t *testing.T) {
	opts := DefaultOptions()
	opts.HTML = false
	for name, r := range renderers() {
		t.Run(name, func(t *testing.T) {
			out, err := r.Render([]byte("before <b>bold</b> after\n"), opts)
			if err != nil {
				t.Fatalf("Render: %v", err)
			}
			if strings.Contains(string(out), "<b>bold</b>") {
				t.Fatalf("raw html should be dropped, got %s", out)
			}
		})
	}
}

func TestRender_NoHighlightKeepsPlainCode(t *testing.T) {
	opts := DefaultOptions()
	opts.Highlight = false
	for name, r := range renderers() {
		t.Run(name, func(t *testing.T) {
			out, err := r.Render([]byte("```\nx := 1\n```\n"), opts)
			if err != nil {
				t.Fatalf("Render: %v", err)
			}
			if strings.Contains(string(out), `class="chroma"`) {
				t.Fatalf("did not expect chroma output, got %s", out)
			}
			if !strings.Contains(string(out), "<code") {
				t.Fatalf("expected code element, got %s", out)
			}
		})
	}
}

func TestRender_TablesDisabled(t *testing.T) {
	opts := DefaultOptions()
	opts.Tables = false
	for name, r := range renderers() {
		t.Run(name, func(t *testing.T) {
			out, err := r.Render([]byte("| a | b |\n|---|---|\n| 1 | 2 |\n"), opts)
			if err != nil {
				t.Fatalf("Render: %v", err)
			}
			if strings.Contains(string(out), "<table>") {
				t.Fatalf("did not expect table, got %s", out)
			}
		})
	}
}

func TestRender_TOCMarkerReplaced(t *testing.T) {
	doc := "# Intro\n\nSome text.\n\n## Details\n\nMore.\n\n[TOC]\n"
	for name, r := range renderers() {
		t.Run(name, func(t *testing.T) {
			out, err := r.Render([]byte(doc), DefaultOptions())
			if err != nil {
				t.Fatalf("Render: %v", err)
			}
			html := string(out)
			if strings.Count(html, `<nav class="toc">`) != 1 {
				t.Fatalf("expected one toc, got %s", html)
			}
			for _, want := range []string{`<li class="toc-h1"><a href="#intro">Intro</a>`, `<li class="toc-h2"><a href="#details">Details</a>`} {
				if !strings.Contains(html, want) {
					t.Errorf("missing %s in %s", want, html)
				}
			}
			if strings.Contains(html, "[TOC]") {
				t.Errorf("marker should not survive, got %s", html)
			}
			if strings.Index(html, "<nav") < strings.Index(html, "More.") {
				t.Errorf("toc should sit where the marker was, got %s", html)
			}
		})
	}
}

func TestRender_TOCMarkerDuplicateHeadings(t *testing.T) {
	doc := "[TOC]\n\n## Setup\n\n## Setup\n"
	for name, r := range renderers() {
		t.Run(name, func(t *testing.T) {
			out, err := r.Render([]byte(doc), DefaultOptions())
			if err != nil {
				t.Fatalf("Render: %v", err)
			}
			html := string(out)
			// every toc link must point at a heading id actually rendered
			for _, frag := range strings.Split(html, `href="#`)[1:] {
				id := frag[:strings.IndexByte(frag, '"')]
				if !strings.Contains(html, `id="`+id+`"`) {
					t.Errorf("toc link #%s has no target in %s", id, html)
				}
			}
		})
	}
}

func TestRender_TOCMarkerIgnoredWhenDisabled(t *testing.T) {
	opts := DefaultOptions()
	opts.TOC = false
	for name, r := range renderers() {
		t.Run(name, func(t *testing.T) {
			out, err := r.Render([]byte("# A\n\n[TOC]\n"), opts)
			if err != nil {
				t.Fatalf("Render: %v", err)
			}
			if strings.Contains(string(out), "<nav") || !strings.Contains(string(out), "[TOC]") {
				t.Fatalf("disabled toc should leave the marker as text, got %s", out)
			}
		})
	}
}

func TestRender_TOCMarkerWithoutHeadings(t *testing.T) {
	for name, r := range renderers() {
		t.Run(name, func(t *testing.T) {
			out, err := r.Render([]byte("just a paragraph\n\n[TOC]\n"), DefaultOptions())
			if err != nil {
				t.Fatalf("Render: %v", err)
			}
			if strings.Contains(string(out), "<nav") || strings.Contains(string(out), "[TOC]") {
				t.Fatalf("no headings should mean an empty replacement, got %s", out)
			}
		})
	}
}

func TestRender_TOCMarkerMustBeWholeParagraph(t *testing.T) {
	for name, r := range renderers() {
		t.Run(name, func(t *testing.T) {
			out, err := r.Render([]byte("# A\n\nsee [TOC] below\n"), DefaultOptions())
			if err != nil {
				t.Fatalf("Render: %v", err)
			}
			if strings.Contains(string(out), "<nav") {
				t.Fatalf("inline marker should stay text, got %s", out)
			}
		})
	}
}

func TestCodeLanguage(t *testing.T) {
	tests := map[string]string{
		"":              "",
		"go":            "go",
		"  Python  ":    "python",
		"js title=x.js": "js",
	}
	for in, want := range tests {
		if got := codeLanguage([]byte(in)); got != want {
			t.Errorf("codeLanguage(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestByName(t *testing.T) {
	if r, ok := ByName("goldmark"); !ok {
		t.Fatal("goldmark should resolve")
	} else if _, isGoldmark := r.(Goldmark); !isGoldmark {
		t.Fatalf("ByName(goldmark) = %T", r)
	}
	if r, ok := ByName(""); !ok {
		t.Fatal("empty name should resolve to the default")
	} else if _, isGo := r.(GoMarkdown); !isGo {
		t.Fatalf("ByName(\"\") = %T", r)
	}
	if _, ok := ByName("pandoc"); ok {
		t.Fatal("unknown renderer should not resolve")
	}
}

func TestRendererFunc(t *testing.T) {
	var got Options
	r := RendererFunc(func(src []byte, opts Options) ([]byte, error) {
		got = opts
		return append([]byte("<p>"), src...), nil
	})
	out, err := r.Render([]byte("x"), Options{Tables: true})
	if err != nil || string(out) != "<p>x" {
		t.Fatalf("Render = %q, %v", out, err)
	}
	if !got.Tables {
		t.Fatal("options not passed through")
	}
}

func TestChromaCSS(t *testing.T) {
	css := ChromaCSS("")
	if !strings.Contains(string(css), ".chroma") {
		t.Fatalf("expected .chroma rules, got %s", css)
	}
	if again := ChromaCSS(DefaultHighlightStyle); string(again) != string(css) {
		t.Fatal("empty style should match the default style")
	}
}
