package templates

import (
	"bytes"
	"errors"
	"html/template"
	"strings"
	"testing"
	"testing/fstest"
)

func TestRender_PrefersDirOverFallback(t *testing.T) {
	dir := fstest.MapFS{"default.html": {Data: []byte("dir:{{.}}")}}
	fallback := fstest.MapFS{
		"default.html": {Data: []byte("fallback:{{.}}")},
		"404.html":     {Data: []byte("missing:{{.}}")},
	}
	e := New(dir, fallback)

	var buf bytes.Buffer
	if err := e.Render(&buf, "default", "x"); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if buf.String() != "dir:x" {
		t.Fatalf("got %q", buf.String())
	}

	buf.Reset()
	if err := e.Render(&buf, "404", "y"); err != nil {
		t.Fatalf("Render 404: %v", err)
	}
	if buf.String() != "missing:y" {
		t.Fatalf("got %q", buf.String())
	}
}

func TestRender_NotFound(t *testing.T) {
	e := New(fstest.MapFS{}, nil)

	for _, name := range []string{"nope", "", "../etc/passwd", "/abs"} {
		err := e.Render(&bytes.Buffer{}, name, nil)
		if !errors.Is(err, ErrTemplateNotFound) {
			t.Errorf("Render(%q) err = %v, want ErrTemplateNotFound", name, err)
		}
		if e.Exists(name) {
			t.Errorf("Exists(%q) = true", name)
		}
	}
}

func TestRender_NestedName(t *testing.T) {
	e := New(fstest.MapFS{"blog/post.html": {Data: []byte("post")}}, nil)
	var buf bytes.Buffer
	if err := e.Render(&buf, "blog/post", nil); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if buf.String() != "post" {
		t.Fatalf("got %q", buf.String())
	}
}

func TestRender_EscapesAndTrustsHTML(t *testing.T) {
	type view struct {
		Text string
		Body any
	}
	e := New(fstest.MapFS{"t.html": {Data: []byte("{{.Text}}|{{.Body}}")}}, nil)

	var buf bytes.Buffer
	err := e.Render(&buf, "t", view{Text: "<b>", Body: template.HTML("<b>ok</b>")})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if buf.String() != "&lt;b&gt;|<b>ok</b>" {
		t.Fatalf("got %q", buf.String())
	}
}

func TestRender_ExecErrorWritesNothing(t *testing.T) {
	e := New(fstest.MapFS{"bad.html": {Data: []byte("start {{.Missing.Field}}")}}, nil)

	var buf bytes.Buffer
	err := e.Render(&buf, "bad", struct{}{})
	if err == nil {
		t.Fatal("expected execute error")
	}
	if errors.Is(err, ErrTemplateNotFound) {
		t.Fatalf("unexpected not found: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("partial output written: %q", buf.String())
	}
}

func TestRender_ParseError(t *testing.T) {
	e := New(fstest.MapFS{"broken.html": {Data: []byte("{{ if }")}}, nil)
	err := e.Render(&bytes.Buffer{}, "broken", nil)
	if err == nil || !strings.Contains(err.Error(), "parse template") {
		t.Fatalf("err = %v, want parse error", err)
	}
}

func TestRender_SeesEditsWithoutRestart(t *testing.T) {
	dir := fstest.MapFS{"default.html": {Data: []byte("v1")}}
	e := New(dir, nil)

	var buf bytes.Buffer
	_ = e.Render(&buf, "default", nil)
	dir["default.html"] = &fstest.MapFile{Data: []byte("v2")}
	buf.Reset()
	if err := e.Render(&buf, "default", nil); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if buf.String() != "v2" {
		t.Fatalf("got %q, want v2", buf.String())
	}
}

func TestContentType(t *testing.T) {
	if got := New(nil, nil).ContentType(); got != "text/html; charset=utf-8" {
		t.Fatalf("ContentType = %q", got)
	}
}
