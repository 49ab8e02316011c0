package parsing

import "github.com/alecthomas/chroma/formatters/html"

// Code blocks are highlighted with CSS classes so the frontend theme decides
// the colors. The <pre> comes from the highlighting wrapper instead of chroma.
var NewsdeskChromaOptions = []html.Option{
	html.WithClasses(true),
	html.TabWidth(4),
	html.WithPreWrapper(nopPreWrapper{}),
}

type nopPreWrapper struct{}

var _ html.PreWrapper = nopPreWrapper{}

func (w nopPreWrapper) Start(code bool, styleAttr string) string {
	return ""
}

func (w nopPreWrapper) End(code bool) string {
	return ""
}
