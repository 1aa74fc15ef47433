package mtexport

import (
	"bytes"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldmarkHtml "github.com/yuin/goldmark/renderer/html"
	"golang.org/x/net/html"
)

var markdownRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHtml.WithXHTML(),
	),
	goldmark.WithExtensions(
		extension.Strikethrough,
		extension.Linkify,
	),
)

// inlineMarkdown renders the text between equations as inline HTML.
//
// Source text is stored HTML escaped so entities are decoded first. Markdown backslash
// escapes like \$ become literal characters. Surrounding whitespace is kept since it
// separates the text from neighboring equations.
func inlineMarkdown(s string) (string, error) {
	s = html.UnescapeString(s)
	core := strings.TrimFunc(s, unicode.IsSpace)
	if core == "" {
		return whitespace(s), nil
	}
	lead := s[:strings.Index(s, core)]
	trail := s[len(lead)+len(core):]

	var buf bytes.Buffer
	if err := markdownRenderer.Convert([]byte(core), &buf); err != nil {
		return "", err
	}
	doc, err := goquery.NewDocumentFromReader(&buf)
	if err != nil {
		return "", err
	}
	body := doc.Find("body").First()
	sel := body
	if p := body.Children(); p.Length() == 1 && goquery.NodeName(p) == "p" {
		sel = p
	}
	inner, err := sel.Html()
	if err != nil {
		return "", err
	}
	return whitespace(lead) + strings.TrimSpace(inner) + whitespace(trail), nil
}

// whitespace collapses s to a single space, keeping line breaks between paragraphs.
func whitespace(s string) string {
	switch {
	case s == "":
		return ""
	case strings.Count(s, "\n") >= 2:
		return "<br/><br/>"
	default:
		return " "
	}
}
