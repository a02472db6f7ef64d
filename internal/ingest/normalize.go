package ingest

import (
	"io"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// NormalizeHeader lowercases and trims a column name
func NormalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	return strings.ToLower(strings.TrimSpace(h))
}

// NormalizeValue removes carriage returns, strips HTML markup and trims
// surrounding whitespace. Markup is only stripped when every tag is a
// well-formed known HTML element; text such as "A<B Labs" is kept as is.
func NormalizeValue(v string) string {
	v = strings.ReplaceAll(v, "\r", "")
	if strings.ContainsRune(v, '<') {
		v = stripMarkup(v)
	}
	return strings.TrimSpace(v)
}

// tagPattern matches one complete start, end or self-closing tag
var tagPattern = regexp.MustCompile(`(?i)^</?[a-z][a-z0-9]*(\s+[a-z_:][-a-z0-9_:.]*(\s*=\s*("[^"]*"|'[^']*'|[^\s"'<>=]+))?)*\s*/?>$`)

// stripMarkup returns the text content of an HTML fragment, or the fragment
// unchanged when it is not markup the tokenizer can consume losslessly
func stripMarkup(fragment string) string {
	z := html.NewTokenizer(strings.NewReader(fragment))
	var b strings.Builder
	skip, tags := 0, 0

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			// A tag cut off by the end of input leaves its bytes in Raw
			if z.Err() != io.EOF || len(z.Raw()) > 0 || tags == 0 {
				return fragment
			}
			return b.String()
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			if !tagPattern.Match(z.Raw()) {
				return fragment
			}
			name, _ := z.TagName()
			if atom.Lookup(name) == 0 {
				return fragment
			}
			tags++

			switch n := string(name); {
			case n == "script" || n == "style":
				if tt == html.StartTagToken {
					skip++
				} else if tt == html.EndTagToken && skip > 0 {
					skip--
				}
			case n == "br" || (tt == html.StartTagToken && (n == "p" || n == "div" || n == "li")):
				b.WriteByte(' ')
			}
		}
	}
}
