package htmlutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanHTML(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		expected string
	}{
		{"empty", "", ""},
		{"whitespace only", "  \n\t ", ""},
		{"plain text", "Φρουτοπία Σ1:ΕΠ2", "Φρουτοπία Σ1:ΕΠ2"},
		{"entities decoded", "Tom &amp; Jerry &#39;1940&#39;", "Tom & Jerry '1940'"},
		{"inline tags stripped", "<b>bold</b> and <i>italic</i>", "bold and italic"},
		{"source newlines are spaces", "line one\nline two", "line one line two"},
		{"br becomes newline", "first<br>second<br/>third", "first\nsecond\nthird"},
		{"paragraphs on own lines", "<p>one</p><p>two</p>", "one\ntwo"},
		{"nested blocks", "text<p>nested</p>more", "text\nnested\nmore"},
		{"script dropped", "<p>keep</p><script>var x = 1;</script>", "keep"},
		{"trimmed", "   padded   ", "padded"},
		{"nbsp collapsed", "a&nbsp;&nbsp;b", "a b"},
		{"unclosed lt kept", "x <y", "x <y"},
		{"unclosed lt before tag", "a <b <i>c</i>", "a <b c"},
		{"escaped lt", "1 &lt; 2", "1 < 2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CleanHTML(tt.in))
		})
	}
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "text nested more", CleanText(`<div class="video-the-content">text<p>nested</p>more</div>`))
	assert.Equal(t, "ΦΡΟΥΤΟΠΙΑ Επεισόδιο 2", CleanText("<p>ΦΡΟΥΤΟΠΙΑ</p>\n<p>Επεισόδιο   2</p>"))
}

func TestUnescape(t *testing.T) {
	assert.Equal(t, "ΕΡΤ & Co", Unescape("ΕΡΤ &amp; Co"))
	assert.Equal(t, "<tag>", Unescape("&lt;tag&gt;"))
}
