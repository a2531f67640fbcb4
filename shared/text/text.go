// Package text holds the pure text helpers used by message bodies:
// HTML allow-list filtering, bare URL recognition with line breaks,
// relative ages and locale normalisation.
package text

import (
	"bytes"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"
	"golang.org/x/text/language"
)

type Processor struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

func New() *Processor {
	// Bodies are plain text with some inline HTML, not markdown: only
	// paragraphs, raw tags and bare links are recognised.
	p := parser.NewParser(
		parser.WithBlockParsers(
			util.Prioritized(parser.NewParagraphParser(), 1000),
		),
		parser.WithInlineParsers(
			util.Prioritized(parser.NewRawHTMLParser(), 400),
		),
	)

	md := goldmark.New(
		goldmark.WithParser(p),
		goldmark.WithRendererOptions(html.WithUnsafe(), html.WithHardWraps()),
		goldmark.WithExtensions(extension.Linkify),
	)
	return &Processor{md: md, policy: newPolicy()}
}

func newPolicy() *bluemonday.Policy {
	p := bluemonday.StrictPolicy()
	p.AllowElements("p", "br", "strong", "b", "em", "i", "u", "blockquote", "code", "pre")
	p.AllowElements("ul", "ol", "li")
	p.AllowAttrs("href").OnElements("a")
	p.AllowStandardURLs()
	p.AddTargetBlankToFullyQualifiedLinks(true)
	return p
}

// Sanitize strips every tag outside the allow-list.
func (tp *Processor) Sanitize(s string) string {
	return tp.policy.Sanitize(s)
}

// Format turns bare URLs into links and newlines into breaks.
func (tp *Processor) Format(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := tp.md.Convert([]byte(s), &buf); err != nil {
		return tp.Sanitize(s)
	}
	return tp.Sanitize(strings.TrimSpace(buf.String()))
}

// TimeAgo renders t relative to now, e.g. "3 hours ago".
func TimeAgo(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return humanize.Time(t)
}

// NormalizeLang reduces a locale such as "fr-FR" or "pt_BR" to its base
// language. Unparseable input yields fallback.
func NormalizeLang(locale, fallback string) string {
	locale = strings.TrimSpace(locale)
	if locale == "" {
		return fallback
	}
	tag, err := language.Parse(strings.ReplaceAll(locale, "_", "-"))
	if err != nil {
		return fallback
	}
	base, conf := tag.Base()
	if conf == language.No {
		return fallback
	}
	return base.String()
}
