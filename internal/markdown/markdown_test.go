package markdown

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderParagraphsAndBreaks(t *testing.T) {
	got := Render("first line\nsecond line\n\nnext paragraph")
	assert.Equal(t, "<p>first line<br>second line</p><p>next paragraph</p>", got)
}

func TestRenderBoldAndItalic(t *testing.T) {
	assert.Equal(t, "<p><strong>bold</strong> and <em>italic</em></p>", Render("**bold** and *italic*"))
	assert.Equal(t, "<p><strong>bold</strong> and <em>italic</em></p>", Render("__bold__ and _italic_"))
}

func TestRenderInlineCode(t *testing.T) {
	got := Render("run `nmap -sV` first")
	assert.Equal(t, "<p>run <code>nmap -sV</code> first</p>", got)
}

func TestRenderFencedCode(t *testing.T) {
	got := Render("```bash\necho <hi> & exit\n```")
	assert.Equal(t, "<pre><code>echo &lt;hi&gt; &amp; exit</code></pre>", got)
}

func TestRenderCodeNotReprocessed(t *testing.T) {
	// Markers inside code spans must survive untouched.
	got := Render("`**not bold**` stays literal")
	assert.Contains(t, got, "<code>**not bold**</code>")
}

func TestRenderHeadings(t *testing.T) {
	// Levels are capped: # and ## share one weight.
	assert.Equal(t, "<h3>Title</h3>", Render("# Title"))
	assert.Equal(t, "<h3>Title</h3>", Render("## Title"))
	assert.Equal(t, "<h4>Sub</h4>", Render("### Sub"))
}

func TestRenderTipLines(t *testing.T) {
	got := Render("> stay alert\n> check the sender")
	assert.Equal(t, `<div class="tip">stay alert</div><div class="tip">check the sender</div>`, got)
}

func TestRenderBulletListGrouping(t *testing.T) {
	got := Render("- one\n- two\n* three\n• four")
	assert.Equal(t, "<ul><li>one</li><li>two</li><li>three</li><li>four</li></ul>", got)
}

func TestRenderOrderedList(t *testing.T) {
	got := Render("1. first\n2. second")
	assert.Equal(t, "<ol><li>first</li><li>second</li></ol>", got)
}

func TestRenderListBulletNotItalic(t *testing.T) {
	got := Render("* item with *emphasis* inside")
	assert.Equal(t, "<ul><li>item with <em>emphasis</em> inside</li></ul>", got)
}

func TestRenderEscapesRawHTML(t *testing.T) {
	got := Render(`<script>alert("x")</script> & friends`)
	assert.NotContains(t, got, "<script>")
	assert.Contains(t, got, "&lt;script&gt;")
	assert.Contains(t, got, "&amp; friends")
}

func TestRenderNoDoubleEscape(t *testing.T) {
	twice := Render(Render("fish & chips < dinner"))
	assert.NotContains(t, twice, "&amp;amp;")
	assert.NotContains(t, twice, "&amp;lt;")
}

func TestEscapeTextIdempotent(t *testing.T) {
	once := escapeText("a & b < c > d &amp; &#39;")
	assert.Equal(t, once, escapeText(once))
}

func TestRenderMixedDocument(t *testing.T) {
	src := "# Report\n\nUse the **URL Scanner**:\n\n1. Open the page\n2. Paste the link\n\n> Tip: check `https://` first"
	got := Render(src)
	for _, want := range []string{
		"<h3>Report</h3>",
		"<strong>URL Scanner</strong>",
		"<ol><li>Open the page</li><li>Paste the link</li></ol>",
		`<div class="tip">Tip: check <code>https://</code> first</div>`,
	} {
		assert.Contains(t, got, want)
	}
	assert.False(t, strings.Contains(got, "\x00"), "placeholders must be restored")
}
