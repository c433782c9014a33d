package extractors

import (
	"regexp"

	"ertflix-extract/pkg/htmlutil"
)

// SearchOptions controls a fallback-chain search.
type SearchOptions struct {
	// Fatal turns a miss into a *RegexNotFoundError.
	Fatal bool
	// Default is returned on a miss when set; no warning is logged.
	Default *string
	// Group names the capture group to return. Empty means the first
	// non-empty group, or the whole match for patterns without groups.
	Group string
}

// mustCompileAll compiles a fallback chain. flags is an inline flag group
// such as "(?i)" prepended to every pattern, or "".
func mustCompileAll(flags string, patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(flags + p)
	}
	return out
}

// FirstMatch tries the patterns in order and returns the submatches of the
// first one that matches, together with that pattern.
func FirstMatch(patterns []*regexp.Regexp, text string) ([]string, *regexp.Regexp) {
	for _, re := range patterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return m, re
		}
	}
	return nil, nil
}

// SearchRegex applies a fallback chain to text. It returns the captured value
// and whether any pattern matched.
func (b *BaseExtractor) SearchRegex(patterns []*regexp.Regexp, text, name string, opts SearchOptions) (string, bool, error) {
	m, re := FirstMatch(patterns, text)
	if m != nil {
		return captured(m, re, opts.Group), true, nil
	}

	switch {
	case opts.Default != nil:
		return *opts.Default, false, nil
	case opts.Fatal:
		return "", false, &RegexNotFoundError{Field: name}
	default:
		b.log.Warn("unable to extract field; please report this issue if the page layout changed", "field", name)
		return "", false, nil
	}
}

// HTMLSearchRegex is SearchRegex followed by HTML cleanup of the value.
func (b *BaseExtractor) HTMLSearchRegex(patterns []*regexp.Regexp, text, name string, opts SearchOptions) (string, bool, error) {
	v, ok, err := b.SearchRegex(patterns, text, name, opts)
	if err != nil || !ok {
		return v, ok, err
	}
	return htmlutil.CleanHTML(v), true, nil
}

func captured(m []string, re *regexp.Regexp, group string) string {
	if group != "" {
		if idx := re.SubexpIndex(group); idx > 0 {
			return m[idx]
		}
		return ""
	}
	if len(m) == 1 {
		return m[0]
	}
	for _, g := range m[1:] {
		if g != "" {
			return g
		}
	}
	return ""
}
