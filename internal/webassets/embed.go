package webassets

import (
	"embed"
	"fmt"
	"io/fs"
)

//go:embed templates
var embedded embed.FS

// TemplatesFS returns the built-in page templates, used when the configured
// templates directory does not define a name.
func TemplatesFS() fs.FS {
	sub, err := fs.Sub(embedded, "templates")
	if err != nil {
		panic(fmt.Errorf("webassets: templates subfs: %w", err))
	}
	return sub
}
