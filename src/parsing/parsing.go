package parsing

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/util"
)

// Used for generating the final HTML for an article body.
var ArticleMarkdown = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		highlightExtension,
		EmbedExtension{},
	),
	goldmark.WithParserOptions(parser.WithAutoHeadingID()),
)

// Used for generating plain-text versions of articles, for length checks and
// listing excerpts.
var PlaintextMarkdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRenderer(plaintextRenderer{}),
)

// Raw HTML in the source is never passed through; goldmark omits it unless
// told otherwise.
func ParseMarkdown(source string, md goldmark.Markdown) string {
	var buf bytes.Buffer
	if err := md.Convert([]byte(source), &buf); err != nil {
		panic(err)
	}

	return buf.String()
}

// PlainText renders Markdown to text with whitespace collapsed.
func PlainText(source string) string {
	return strings.Join(strings.Fields(ParseMarkdown(source, PlaintextMarkdown)), " ")
}

// Excerpt is PlainText cut to at most max runes, on a word boundary where
// possible.
func Excerpt(source string, max int) string {
	text := PlainText(source)
	if utf8.RuneCountInString(text) <= max {
		return text
	}

	runes := []rune(text)
	cut := string(runes[:max])
	if i := strings.LastIndex(cut, " "); i > max/2 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " .,;:") + "…"
}

var highlightExtension = highlighting.NewHighlighting(
	highlighting.WithFormatOptions(NewsdeskChromaOptions...),
	highlighting.WithWrapperRenderer(func(w util.BufWriter, context highlighting.CodeBlockContext, entering bool) {
		if entering {
			w.WriteString(`<pre class="article-code">`)
		} else {
			w.WriteString(`</pre>`)
		}
	}),
)
