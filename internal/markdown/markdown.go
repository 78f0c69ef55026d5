// Package markdown converts the constrained Markdown dialect used by the
// assistant into HTML fragments. All input text is entity-escaped up front;
// the only tags in the output are the ones this package emits.
package markdown

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	entityRe     = regexp.MustCompile(`&[a-zA-Z][a-zA-Z0-9]*;|&#[0-9]+;|&`)
	fenceRe      = regexp.MustCompile("(?s)```[a-zA-Z0-9+.-]*\n?(.*?)```")
	inlineCodeRe = regexp.MustCompile("`([^`\n]+)`")
	boldStarRe   = regexp.MustCompile(`\*\*([^*\n]+)\*\*`)
	boldUnderRe  = regexp.MustCompile(`__([^_\n]+)__`)
	// Single-marker emphasis requires a non-space, non-marker character on
	// both ends so list bullets and arithmetic are left alone.
	italicStarRe  = regexp.MustCompile(`\*([^\s*](?:[^*\n]*?[^\s*])?)\*`)
	italicUnderRe = regexp.MustCompile(`_([^\s_](?:[^_\n]*?[^\s_])?)_`)
	orderedRe     = regexp.MustCompile(`^\d+\.\s+`)
)

// escapeText entity-escapes &, < and > without touching entities that are
// already present, so escaping is idempotent.
func escapeText(s string) string {
	s = entityRe.ReplaceAllStringFunc(s, func(m string) string {
		if m == "&" {
			return "&amp;"
		}
		return m
	})
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}

// Render converts src to an HTML fragment. The pass order matters: code is
// extracted first so later passes never rewrite its contents.
func Render(src string) string {
	src = escapeText(src)

	var blocks, spans []string

	// Fenced code blocks. The language tag is accepted but unused.
	src = fenceRe.ReplaceAllStringFunc(src, func(m string) string {
		content := fenceRe.FindStringSubmatch(m)[1]
		blocks = append(blocks, "<pre><code>"+strings.TrimRight(content, "\n")+"</code></pre>")
		return fmt.Sprintf("\x00B%d\x00", len(blocks)-1)
	})

	// Inline code spans.
	src = inlineCodeRe.ReplaceAllStringFunc(src, func(m string) string {
		content := inlineCodeRe.FindStringSubmatch(m)[1]
		spans = append(spans, "<code>"+content+"</code>")
		return fmt.Sprintf("\x00I%d\x00", len(spans)-1)
	})

	// Bold before italic so double markers are never half-matched.
	src = boldStarRe.ReplaceAllString(src, "<strong>$1</strong>")
	src = boldUnderRe.ReplaceAllString(src, "<strong>$1</strong>")
	src = italicStarRe.ReplaceAllString(src, "<em>$1</em>")
	src = italicUnderRe.ReplaceAllString(src, "<em>$1</em>")

	html := renderBlocks(src)

	for i, b := range blocks {
		html = strings.Replace(html, fmt.Sprintf("\x00B%d\x00", i), b, 1)
	}
	for i, s := range spans {
		html = strings.Replace(html, fmt.Sprintf("\x00I%d\x00", i), s, 1)
	}
	return html
}

// renderBlocks performs the line-oriented passes: tips, headings, lists and
// paragraphs. Consecutive list items collapse into one list element; single
// newlines inside a paragraph become line breaks.
func renderBlocks(src string) string {
	var out strings.Builder
	var para []string
	list := "" // "ul", "ol" or empty

	closeList := func() {
		if list != "" {
			out.WriteString("</" + list + ">")
			list = ""
		}
	}
	flushPara := func() {
		if len(para) > 0 {
			out.WriteString("<p>" + strings.Join(para, "<br>") + "</p>")
			para = nil
		}
	}
	item := func(kind, content string) {
		flushPara()
		if list != kind {
			closeList()
			out.WriteString("<" + kind + ">")
			list = kind
		}
		out.WriteString("<li>" + content + "</li>")
	}

	for _, line := range strings.Split(src, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			flushPara()
			closeList()

		case strings.HasPrefix(trimmed, "\x00B"):
			// A fenced block stands alone.
			flushPara()
			closeList()
			out.WriteString(trimmed)

		// The source was escaped first, so a blockquote marker arrives
		// as "&gt; ".
		case strings.HasPrefix(trimmed, "&gt; "):
			flushPara()
			closeList()
			out.WriteString(`<div class="tip">` + strings.TrimPrefix(trimmed, "&gt; ") + `</div>`)

		// Heading levels are capped: # and ## share one weight so a chat
		// bubble never shows an oversized title.
		case strings.HasPrefix(trimmed, "### "):
			flushPara()
			closeList()
			out.WriteString("<h4>" + strings.TrimPrefix(trimmed, "### ") + "</h4>")
		case strings.HasPrefix(trimmed, "## "):
			flushPara()
			closeList()
			out.WriteString("<h3>" + strings.TrimPrefix(trimmed, "## ") + "</h3>")
		case strings.HasPrefix(trimmed, "# "):
			flushPara()
			closeList()
			out.WriteString("<h3>" + strings.TrimPrefix(trimmed, "# ") + "</h3>")

		case strings.HasPrefix(trimmed, "- "), strings.HasPrefix(trimmed, "* "), strings.HasPrefix(trimmed, "• "):
			item("ul", strings.TrimSpace(trimmed[strings.IndexByte(trimmed, ' ')+1:]))

		case orderedRe.MatchString(trimmed):
			item("ol", orderedRe.ReplaceAllString(trimmed, ""))

		default:
			para = append(para, trimmed)
		}
	}
	flushPara()
	closeList()
	return out.String()
}
