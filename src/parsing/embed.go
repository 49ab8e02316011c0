package parsing

import (
	"html"
	"regexp"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

var (
	REYoutubeLong  = regexp.MustCompile(`^https://(www\.)?youtube\.com/watch\?(.*&)?v=(?P<vid>[a-zA-Z0-9_-]{11})`)
	REYoutubeShort = regexp.MustCompile(`^https://youtu\.be/(?P<vid>[a-zA-Z0-9_-]{11})`)
	REVimeo        = regexp.MustCompile(`^https://vimeo\.com/(?P<vid>\d+)`)
)

func extract(re *regexp.Regexp, src string, subexpName string) (string, int, bool) {
	m := re.FindStringSubmatch(src)
	if m == nil {
		return "", 0, false
	}
	return m[re.SubexpIndex(subexpName)], len(m[0]), true
}

/*
VideoEmbedURL returns the iframe source for a YouTube or Vimeo link, or false
if the link is not one we know how to embed. Trailing content after the URL is
ignored.
*/
func VideoEmbedURL(url string) (string, bool) {
	embed, _, ok := videoEmbed(url)
	return embed, ok
}

func videoEmbed(url string) (string, int, bool) {
	if vid, n, ok := extract(REYoutubeLong, url, "vid"); ok {
		return "https://www.youtube-nocookie.com/embed/" + vid, n, true
	} else if vid, n, ok := extract(REYoutubeShort, url, "vid"); ok {
		return "https://www.youtube-nocookie.com/embed/" + vid, n, true
	} else if vid, n, ok := extract(REVimeo, url, "vid"); ok {
		return "https://player.vimeo.com/video/" + vid, n, true
	}
	return "", 0, false
}

func embedHTML(src string) string {
	return `<div class="video-embed"><iframe src="` + html.EscapeString(src) + `" frameborder="0" allow="fullscreen; picture-in-picture" allowfullscreen></iframe></div>`
}

// ----------------------
// Parser
// ----------------------

// A video link alone at the start of a block becomes an embedded player.
type embedParser struct{}

var _ parser.BlockParser = embedParser{}

func (s embedParser) Trigger() []byte {
	return []byte{'h'}
}

func (s embedParser) Open(parent ast.Node, reader text.Reader, pc parser.Context) (ast.Node, parser.State) {
	restOfLine, _ := reader.PeekLine()

	src, length, ok := videoEmbed(string(restOfLine))
	if !ok {
		return nil, parser.NoChildren
	}
	reader.Advance(length)
	return &EmbedNode{HTML: embedHTML(src)}, parser.NoChildren
}

func (s embedParser) Continue(node ast.Node, reader text.Reader, pc parser.Context) parser.State {
	return parser.Close
}

func (s embedParser) Close(node ast.Node, reader text.Reader, pc parser.Context) {}

func (s embedParser) CanInterruptParagraph() bool {
	return true
}

func (s embedParser) CanAcceptIndentedLine() bool {
	return false
}

// ----------------------
// AST node
// ----------------------

type EmbedNode struct {
	ast.BaseBlock
	HTML string
}

func (n *EmbedNode) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"HTML": n.HTML}, nil)
}

var KindEmbed = ast.NewNodeKind("Embed")

func (n *EmbedNode) Kind() ast.NodeKind {
	return KindEmbed
}

// ----------------------
// Renderer
// ----------------------

type embedHTMLRenderer struct {
	gmhtml.Config
}

func (r *embedHTMLRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindEmbed, r.renderEmbed)
}

func (r *embedHTMLRenderer) renderEmbed(w util.BufWriter, source []byte, n ast.Node, entering bool) (ast.WalkStatus, error) {
	if entering {
		w.WriteString(n.(*EmbedNode).HTML)
	}
	return ast.WalkSkipChildren, nil
}

// ----------------------
// Extension
// ----------------------

type EmbedExtension struct{}

func (e EmbedExtension) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(parser.WithBlockParsers(
		util.Prioritized(embedParser{}, 500),
	))
	m.Renderer().AddOptions(renderer.WithNodeRenderers(
		util.Prioritized(&embedHTMLRenderer{Config: gmhtml.NewConfig()}, 500),
	))
}
