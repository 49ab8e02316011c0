package parsing

import (
	"io"
	"regexp"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/renderer"
)

// plaintextRenderer writes only the text of a document. Block boundaries
// become spaces so words from adjacent paragraphs do not run together.
type plaintextRenderer struct{}

var _ renderer.Renderer = plaintextRenderer{}

var backslashRegex = regexp.MustCompile("\\\\(?P<char>[\\\\\\x60!\"#$%&'()*+,-./:;<=>?@\\[\\]^_{|}~])")

func (r plaintextRenderer) Render(w io.Writer, source []byte, n ast.Node) error {
	return ast.Walk(n, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		var out []byte
		switch n.Kind() {
		case ast.KindText:
			n := n.(*ast.Text)
			out = backslashRegex.ReplaceAll(n.Text(source), []byte("$1"))
			if n.SoftLineBreak() || n.HardLineBreak() {
				out = append(out, ' ')
			}
		case ast.KindAutoLink:
			out = n.(*ast.AutoLink).URL(source)
		case ast.KindParagraph, ast.KindHeading, ast.KindListItem:
			out = []byte(" ")
		case ast.KindFencedCodeBlock, ast.KindCodeBlock:
			return ast.WalkSkipChildren, nil
		}

		if len(out) > 0 {
			if _, err := w.Write(out); err != nil {
				return ast.WalkStop, err
			}
		}
		return ast.WalkContinue, nil
	})
}

func (r plaintextRenderer) AddOptions(...renderer.Option) {}
