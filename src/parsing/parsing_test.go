package parsing

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMarkdown(t *testing.T) {
	t.Run("fenced code blocks", func(t *testing.T) {
		t.Run("multiple lines", func(t *testing.T) {
			html := ParseMarkdown("```\nmultiple lines\n\tof code\n```", ArticleMarkdown)
			t.Log(html)
			assert.Equal(t, 1, strings.Count(html, "<pre"))
			assert.Contains(t, html, `class="article-code"`)
			assert.Contains(t, html, "multiple lines")
		})
		t.Run("multiple lines with language", func(t *testing.T) {
			html := ParseMarkdown("```go\nfunc main() {\n\tfmt.Println(\"Hello, world!\")\n}\n```", ArticleMarkdown)
			t.Log(html)
			assert.Equal(t, 1, strings.Count(html, "<pre"))
			assert.Contains(t, html, `class="article-code"`)
			assert.Contains(t, html, "Println")
			assert.Contains(t, html, "Hello, world!")
		})
	})
	t.Run("raw html is dropped", func(t *testing.T) {
		html := ParseMarkdown("Hello <script>alert(1)</script> there", ArticleMarkdown)
		assert.NotContains(t, html, "<script>")
		assert.Contains(t, html, "Hello")
	})
	t.Run("gfm tables", func(t *testing.T) {
		html := ParseMarkdown("| a | b |\n|---|---|\n| 1 | 2 |", ArticleMarkdown)
		assert.Contains(t, html, "<table>")
	})
	t.Run("heading ids", func(t *testing.T) {
		html := ParseMarkdown("## Local elections", ArticleMarkdown)
		assert.Contains(t, html, `id="local-elections"`)
	})
}

func TestEmbed(t *testing.T) {
	html := ParseMarkdown("Watch this:\n\nhttps://www.youtube.com/watch?v=dQw4w9WgXcQ\n\nThanks.", ArticleMarkdown)
	t.Log(html)
	assert.Contains(t, html, `src="https://www.youtube-nocookie.com/embed/dQw4w9WgXcQ"`)
	assert.Contains(t, html, "<p>Thanks.</p>")

	src, ok := VideoEmbedURL("https://youtu.be/dQw4w9WgXcQ")
	assert.True(t, ok)
	assert.Equal(t, "https://www.youtube-nocookie.com/embed/dQw4w9WgXcQ", src)

	src, ok = VideoEmbedURL("https://vimeo.com/12345")
	assert.True(t, ok)
	assert.Equal(t, "https://player.vimeo.com/video/12345", src)

	_, ok = VideoEmbedURL("https://example.com/watch?v=dQw4w9WgXcQ")
	assert.False(t, ok)
}

func TestPlainText(t *testing.T) {
	assert.Equal(t, "Big news Today the council voted.", PlainText("# Big news\n\nToday the **council** voted."))
	assert.Equal(t, "", PlainText("<div></div>"))
	assert.Equal(t, "a b", PlainText("a\n\n```\ncode\n```\n\nb"))
}

func TestExcerpt(t *testing.T) {
	assert.Equal(t, "short", Excerpt("short", 10))
	assert.Equal(t, "The quick brown fox…", Excerpt("The quick brown fox jumps over the lazy dog", 20))
}

func TestRenderComment(t *testing.T) {
	t.Run("escapes", func(t *testing.T) {
		assert.Equal(t, "<p>1 &amp; 2 &#34;quoted&#34;</p>", RenderComment(`1 & 2 "quoted"`))
	})
	t.Run("paragraphs and breaks", func(t *testing.T) {
		assert.Equal(t, "<p>one<br>two</p><p>three</p>", RenderComment("one\ntwo\n\n\nthree\n"))
	})
	t.Run("links", func(t *testing.T) {
		html := RenderComment("see https://example.com/a?b=1&c=2 now")
		assert.Equal(t, `<p>see <a href="https://example.com/a?b=1&amp;c=2" rel="nofollow ugc noopener" target="_blank">https://example.com/a?b=1&amp;c=2</a> now</p>`, html)
	})
	t.Run("empty", func(t *testing.T) {
		assert.Equal(t, "", RenderComment("  \n "))
	})
}
