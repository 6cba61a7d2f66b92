// Package highlight renders a code sample as HTML with basic token coloring.
// It is page decoration only; it does not parse Go.
package highlight

import (
	"html"
	"html/template"
	"regexp"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"

	"github.com/qrcraft/qrcraft/render"
)

var keywords = map[string]bool{
	"break": true, "case": true, "chan": true, "const": true, "continue": true,
	"default": true, "defer": true, "else": true, "fallthrough": true,
	"for": true, "func": true, "go": true, "goto": true, "if": true,
	"import": true, "interface": true, "map": true, "package": true,
	"range": true, "return": true, "select": true, "struct": true,
	"switch": true, "type": true, "var": true,
}

var literals = map[string]bool{"true": true, "false": true, "nil": true, "iota": true}

// Groups: 1 comment, 2 string, 3 number, 4 identifier.
var tokenRE = regexp.MustCompile(
	`(//[^\n]*)` +
		`|("(?:[^"\\\n]|\\.)*"|` + "`[^`]*`" + `|'(?:[^'\\\n]|\\.)*')` +
		`|\b(\d+(?:\.\d+)?)\b` +
		`|\b([A-Za-z_][A-Za-z0-9_]*)\b`)

// Highlight escapes code and wraps recognised tokens in <span class="tok-…">.
func Highlight(code string) string {
	var b strings.Builder
	b.WriteString(`<pre class="code-sample">`)

	last := 0
	for _, m := range tokenRE.FindAllStringSubmatchIndex(code, -1) {
		b.WriteString(html.EscapeString(code[last:m[0]]))
		last = m[1]

		tok := code[m[0]:m[1]]
		switch {
		case m[2] >= 0:
			span(&b, "comment", tok)
		case m[4] >= 0:
			span(&b, "string", tok)
		case m[6] >= 0:
			span(&b, "number", tok)
		case keywords[tok]:
			span(&b, "keyword", tok)
		case literals[tok]:
			span(&b, "literal", tok)
		case strings.HasPrefix(code[m[1]:], "("):
			span(&b, "call", tok)
		default:
			b.WriteString(html.EscapeString(tok))
		}
	}
	b.WriteString(html.EscapeString(code[last:]))

	b.WriteString(`</pre>`)
	return b.String()
}

func span(b *strings.Builder, class, tok string) {
	b.WriteString(`<span class="tok-`)
	b.WriteString(class)
	b.WriteString(`">`)
	b.WriteString(html.EscapeString(tok))
	b.WriteString(`</span>`)
}

var policy = sync.OnceValue(func() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("pre", "span")
	p.AllowAttrs("class").Matching(regexp.MustCompile(`^(code-sample|tok-[a-z]+)$`)).OnElements("pre", "span")
	return p
})

// Sanitize strips everything but the markup Highlight produces.
func Sanitize(s string) string {
	return policy().Sanitize(s)
}

var background = sync.OnceValue(func() template.HTML {
	return template.HTML(Sanitize(Highlight(render.PipelineSource)))
})

// Background returns the highlighted pipeline source used behind the page.
func Background() template.HTML {
	return background()
}
