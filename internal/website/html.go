package website

import (
	"html"
	"regexp"
	"strings"

	xhtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var blankLines = regexp.MustCompile(`\n{3,}`)

// HTMLToText renders the HTML produced by the description engine as plain
// text. Links keep their target in parentheses when it differs from the link
// text.
func HTMLToText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return s
	}
	var b strings.Builder
	var hrefs []string
	var linkText []int
	z := xhtml.NewTokenizer(strings.NewReader(s))
	for {
		switch z.Next() {
		case xhtml.ErrorToken:
			out := blankLines.ReplaceAllString(b.String(), "\n\n")
			return strings.TrimSpace(out)
		case xhtml.TextToken:
			b.Write(z.Text())
		case xhtml.StartTagToken, xhtml.SelfClosingTagToken:
			tok := z.Token()
			switch tok.DataAtom {
			case atom.Br:
				b.WriteByte('\n')
			case atom.Li:
				b.WriteString("\n- ")
			case atom.A:
				href := ""
				for _, a := range tok.Attr {
					if a.Key == "href" {
						href = a.Val
					}
				}
				hrefs = append(hrefs, href)
				linkText = append(linkText, b.Len())
			case atom.Hr:
				b.WriteString("\n---\n")
			}
		case xhtml.EndTagToken:
			tok := z.Token()
			switch tok.DataAtom {
			case atom.P, atom.Div, atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6, atom.Ul, atom.Ol, atom.Blockquote, atom.Pre:
				b.WriteString("\n\n")
			case atom.A:
				if len(hrefs) == 0 {
					continue
				}
				href := hrefs[len(hrefs)-1]
				start := linkText[len(linkText)-1]
				hrefs = hrefs[:len(hrefs)-1]
				linkText = linkText[:len(linkText)-1]
				text := b.String()[start:]
				if href != "" && strings.TrimSpace(text) != href {
					b.WriteString(" (" + href + ")")
				}
			}
		}
	}
}

// Hashtags joins tags as space separated #hashtags.
func Hashtags(tags []string) string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.Join(strings.Fields(t), "")
		if t == "" {
			continue
		}
		out = append(out, "#"+strings.TrimPrefix(t, "#"))
	}
	return strings.Join(out, " ")
}

// Link renders an anchor the way the description engine emits them.
func Link(href, text string) string {
	return `<a href="` + html.EscapeString(href) + `">` + html.EscapeString(text) + `</a>`
}
