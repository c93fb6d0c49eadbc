package webassets

import (
	"io/fs"
	"strings"
	"testing"
)

func TestTemplatesFS_HasBuiltins(t *testing.T) {
	fsys := TemplatesFS()
	if fsys == nil {
		t.Fatal("TemplatesFS() returned nil")
	}

	for _, name := range []string{"default.html", "404.html"} {
		info, err := fs.Stat(fsys, name)
		if err != nil {
			t.Fatalf("%s not found: %v", name, err)
		}
		if info.IsDir() || info.Size() == 0 {
			t.Fatalf("%s is not a non-empty file", name)
		}
	}
}

func TestTemplatesFS_DefaultRendersPageContent(t *testing.T) {
	data, err := fs.ReadFile(TemplatesFS(), "default.html")
	if err != nil {
		t.Fatalf("read default.html: %v", err)
	}
	if !strings.Contains(string(data), "{{.Page.Content}}") {
		t.Fatal("default.html does not render page content")
	}
}

func TestTemplatesFS_NoParentEscape(t *testing.T) {
	if _, err := fs.Stat(TemplatesFS(), "../embed.go"); err == nil {
		t.Fatal("should not be able to escape to parent via ../")
	}
}
