package markdown

import (
	"bytes"
	"sync"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/styles"
)

var cssCache sync.Map // style name -> []byte

// ChromaCSS returns the stylesheet matching the classes emitted for
// highlighted code in the named style. Unknown styles use chroma's fallback.
func ChromaCSS(styleName string) []byte {
	if styleName == "" {
		styleName = DefaultHighlightStyle
	}
	if v, ok := cssCache.Load(styleName); ok {
		return v.([]byte)
	}

	style := styles.Get(styleName)
	if style == nil {
		style = styles.Fallback
	}
	var buf bytes.Buffer
	if err := chromahtml.New(chromahtml.WithClasses(true)).WriteCSS(&buf, style); err != nil {
		return nil
	}
	v, _ := cssCache.LoadOrStore(styleName, buf.Bytes())
	return v.([]byte)
}
