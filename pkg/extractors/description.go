package extractors

import (
	"regexp"
	"strings"

	"ertflix-extract/pkg/htmlutil"
)

type scanState int

const (
	scanSeeking scanState = iota
	scanAccumulating
	scanDone
)

// blockScanner collects the first HTML block opened by a marker tag, counting
// opening and closing tags line by line until they balance.
type blockScanner struct {
	marker *regexp.Regexp
	open   *regexp.Regexp
	close  *regexp.Regexp
}

var descriptionScanner = blockScanner{
	marker: regexp.MustCompile(`<div[^>]+class="video-the-content"`),
	open:   regexp.MustCompile(`<\s*div[\s>]`),
	close:  regexp.MustCompile(`<\s*/div[\s>]`),
}

// Scan returns the raw lines of the first marked block, concatenated without
// separators. The line holding the marker and the line that balances the
// depth are both included. Later marked blocks are ignored.
func (s blockScanner) Scan(page string) string {
	var (
		buf   strings.Builder
		depth int
		state = scanSeeking
	)

	for _, line := range strings.Split(page, "\n") {
		line = strings.TrimSuffix(line, "\r")

		if state == scanSeeking && s.marker.MatchString(line) {
			state = scanAccumulating
		}
		if state != scanAccumulating {
			continue
		}

		buf.WriteString(line)
		depth += len(s.open.FindAllStringIndex(line, -1))
		depth -= len(s.close.FindAllStringIndex(line, -1))
		if depth <= 0 {
			state = scanDone
			break
		}
	}
	return buf.String()
}

var (
	wsAfterTagRe  = regexp.MustCompile(`\s*>\s+`)
	wsBeforeTagRe = regexp.MustCompile(`\s+<\s*`)
	wsRunRe       = regexp.MustCompile(`\s+`)
)

// cleanDescription normalises whitespace around tags, maps bare <div> blocks
// to paragraphs and renders the fragment as single-line plain text.
func cleanDescription(fragment string) string {
	fragment = wsAfterTagRe.ReplaceAllString(fragment, ">")
	fragment = wsBeforeTagRe.ReplaceAllString(fragment, "<")
	fragment = wsRunRe.ReplaceAllString(fragment, " ")
	fragment = strings.ReplaceAll(fragment, "<div>", "<p>")
	fragment = strings.ReplaceAll(fragment, "</div>", "</p>")
	return htmlutil.CleanText(fragment)
}
