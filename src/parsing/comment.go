package parsing

import (
	"html"
	"regexp"
	"strings"

	"mvdan.cc/xurls/v2"
)

var reParagraphBreak = regexp.MustCompile(`\n\s*\n`)

var linkRegex = xurls.Strict()

/*
RenderComment turns a plain-text comment into safe HTML. Comments are not
Markdown: text is escaped, URLs become links that search engines will not
follow, blank lines separate paragraphs and single newlines become <br>.
*/
func RenderComment(content string) string {
	content = strings.ReplaceAll(strings.TrimSpace(content), "\r\n", "\n")
	if content == "" {
		return ""
	}

	var b strings.Builder
	for _, para := range reParagraphBreak.Split(content, -1) {
		b.WriteString("<p>")
		for i, line := range strings.Split(para, "\n") {
			if i > 0 {
				b.WriteString("<br>")
			}
			b.WriteString(linkify(line))
		}
		b.WriteString("</p>")
	}
	return b.String()
}

func linkify(line string) string {
	var b strings.Builder
	last := 0
	for _, loc := range linkRegex.FindAllStringIndex(line, -1) {
		b.WriteString(html.EscapeString(line[last:loc[0]]))
		url := line[loc[0]:loc[1]]
		href := url
		if !strings.Contains(href, "://") && !strings.HasPrefix(href, "mailto:") {
			href = "https://" + href
		}
		b.WriteString(`<a href="` + html.EscapeString(href) + `" rel="nofollow ugc noopener" target="_blank">`)
		b.WriteString(html.EscapeString(url))
		b.WriteString("</a>")
		last = loc[1]
	}
	b.WriteString(html.EscapeString(line[last:]))
	return b.String()
}
