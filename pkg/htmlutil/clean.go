// Package htmlutil turns scraped HTML fragments into plain text.
package htmlutil

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Elements that start a new line in the rendered text.
var blockElements = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true,
	"br": true, "dd": true, "div": true, "dl": true, "dt": true,
	"figcaption": true, "footer": true, "h1": true, "h2": true, "h3": true,
	"h4": true, "h5": true, "h6": true, "header": true, "hr": true,
	"li": true, "ol": true, "p": true, "section": true, "table": true,
	"tr": true, "ul": true,
}

// Elements whose content is never text.
var skipElements = map[string]bool{
	"script": true, "style": true, "noscript": true, "template": true,
}

// CleanHTML strips tags from an HTML fragment, decodes entities and trims.
// Source newlines count as spaces; block elements and <br> become line breaks.
// Whitespace inside each line is collapsed and empty lines are dropped.
func CleanHTML(fragment string) string {
	if strings.TrimSpace(fragment) == "" {
		return ""
	}
	fragment = escapeStrayLT(strings.ReplaceAll(fragment, "\n", " "))

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		// The html5 parser only fails on reader errors.
		return strings.TrimSpace(Unescape(fragment))
	}

	var b strings.Builder
	render(doc.Find("body"), &b)

	lines := strings.Split(b.String(), "\n")
	out := lines[:0]
	for _, line := range lines {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

// CleanText is CleanHTML flattened onto a single line.
func CleanText(fragment string) string {
	return strings.Join(strings.Fields(CleanHTML(fragment)), " ")
}

// Unescape decodes HTML entities such as &amp; and &#39;.
func Unescape(s string) string {
	return html.UnescapeString(s)
}

// escapeStrayLT escapes every '<' that is not closed by a '>' before the
// next '<'. The html5 tokenizer would drop such text as an unfinished tag.
func escapeStrayLT(s string) string {
	if !strings.Contains(s, "<") {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '<' {
			rest := s[i+1:]
			gt := strings.IndexByte(rest, '>')
			if lt := strings.IndexByte(rest, '<'); gt < 0 || (lt >= 0 && lt < gt) {
				b.WriteString("&lt;")
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func render(sel *goquery.Selection, b *strings.Builder) {
	sel.Contents().Each(func(_ int, s *goquery.Selection) {
		node := s.Get(0)
		switch node.Type {
		case html.TextNode:
			b.WriteString(node.Data)
		case html.ElementNode:
			name := goquery.NodeName(s)
			if skipElements[name] {
				return
			}
			block := blockElements[name]
			if block {
				b.WriteByte('\n')
			}
			render(s, b)
			if block {
				b.WriteByte('\n')
			}
		}
	})
}
