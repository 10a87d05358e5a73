package present

import (
	stdhtml "html"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"maragu.dev/gomponents/html"
)

func TestEscape(t *testing.T) {
	assert.Equal(t, "", Escape(""))
	assert.Equal(t, "plain", Escape("plain"))
	assert.Equal(t, "&lt;b&gt;Tom &amp; Jerry&lt;/b&gt; &quot;q&quot; &#39;s&#39;", Escape(`<b>Tom & Jerry</b> "q" 's'`))
}

func TestEscape_RoundTrip(t *testing.T) {
	inputs := []string{
		"",
		"Foundation",
		`<script>alert("x")</script>`,
		"Tom & Jerry's \"Adventures\"",
		"&amp; already escaped",
		"ünïcödé <>&\"'",
	}

	for _, s := range inputs {
		escaped := Escape(s)
		assert.Equal(t, s, stdhtml.UnescapeString(escaped))
		assert.NotContains(t, escaped, "<")
		assert.NotContains(t, escaped, ">")
		assert.NotContains(t, escaped, `"`)
		assert.NotContains(t, escaped, "'")
	}
}

func TestText_RendersAsText(t *testing.T) {
	var b strings.Builder
	require.NoError(t, html.Span(html.ID("t"), Text(`<img src=x onerror="alert(1)">`)).Render(&b))

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(b.String()))
	require.NoError(t, err)
	assert.Equal(t, 0, doc.Find("img").Length())
	assert.Equal(t, `<img src=x onerror="alert(1)">`, doc.Find("#t").Text())
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "removes script elements",
			input:    `<p>Hi</p><script>alert(1)</script>`,
			expected: `<p>Hi</p>`,
		},
		{
			name:     "removes nested script elements",
			input:    `<div><b>x</b><script src="/evil.js"></script></div>`,
			expected: `<div><b>x</b></div>`,
		},
		{
			name:     "removes event handler attributes",
			input:    `<img src="/cover.jpg" onerror="alert(1)" ONLOAD="x()">`,
			expected: `<img src="/cover.jpg"/>`,
		},
		{
			name:     "removes javascript urls",
			input:    `<a href=" javascript:alert(1)">x</a>`,
			expected: `<a>x</a>`,
		},
		{
			name:     "benign markup is unchanged",
			input:    `<p>A <em>classic</em> of <a href="/authors/1">science fiction</a> &amp; more.</p>`,
			expected: `<p>A <em>classic</em> of <a href="/authors/1">science fiction</a> &amp; more.</p>`,
		},
		{
			name:     "empty input",
			input:    "  ",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Sanitize(tt.input))
		})
	}
}
