// Package templates resolves page templates by name from a configured
// directory, falling back to built-in templates.
//
// Templates are parsed on every render so edits show up without a restart.
package templates

import (
	"bytes"
	"errors"
	"html/template"
	"io"
	"io/fs"
	"strings"

	"github.com/keithlinneman/staticrouter/internal/xerrors"
)

// Ext is appended to a template name to form its file name.
const Ext = ".html"

// ErrTemplateNotFound is returned when no source defines the named template.
var ErrTemplateNotFound = errors.New("template not found")

// Engine renders html/template files looked up by name.
type Engine struct {
	sources []fs.FS
}

// New returns an engine that looks up templates in dir first and then in
// fallback. Either may be nil.
func New(dir, fallback fs.FS) *Engine {
	e := &Engine{}
	for _, s := range []fs.FS{dir, fallback} {
		if s != nil {
			e.sources = append(e.sources, s)
		}
	}
	return e
}

// ContentType is the media type of rendered output.
func (e *Engine) ContentType() string { return "text/html; charset=utf-8" }

// Exists reports whether any source defines name.
func (e *Engine) Exists(name string) bool {
	_, _, err := e.lookup(name)
	return err == nil
}

// Render executes template name with data. Output is buffered so nothing
// reaches w when execution fails.
func (e *Engine) Render(w io.Writer, name string, data any) error {
	fsys, file, err := e.lookup(name)
	if err != nil {
		return err
	}

	src, err := fs.ReadFile(fsys, file)
	if err != nil {
		return xerrors.Wrapf(err, "read template %s", file)
	}
	t, err := template.New(file).Parse(string(src))
	if err != nil {
		return xerrors.Wrapf(err, "parse template %s", file)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return xerrors.Wrapf(err, "execute template %s", file)
	}
	if _, err := buf.WriteTo(w); err != nil {
		return xerrors.Wrapf(err, "write template %s", file)
	}
	return nil
}

func (e *Engine) lookup(name string) (fs.FS, string, error) {
	name = strings.TrimSpace(name)
	file := name + Ext
	if name == "" || !fs.ValidPath(file) {
		return nil, "", xerrors.Newf("template %q: %w", name, ErrTemplateNotFound)
	}
	for _, s := range e.sources {
		info, err := fs.Stat(s, file)
		if err == nil && !info.IsDir() {
			return s, file, nil
		}
	}
	return nil, "", xerrors.Newf("template %q: %w", name, ErrTemplateNotFound)
}
