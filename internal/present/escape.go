// Package present holds the stateless helpers every section renderer shares:
// escaping, sanitizing, size and date formatting, the default filter and sort,
// standard panels and toasts.
package present

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"maragu.dev/gomponents"
)

var escaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

// Escape replaces the five HTML-significant characters with entities.
func Escape(s string) string {
	if s == "" {
		return ""
	}
	return escaper.Replace(s)
}

// Text renders server-provided plain text. Renderers must use it (or HTML)
// for every value that comes from the library service.
func Text(s string) gomponents.Node {
	return gomponents.Raw(Escape(s))
}

// HTML renders a free-form description after Sanitize.
func HTML(s string) gomponents.Node {
	return gomponents.Raw(Sanitize(s))
}

// Sanitize strips <script> elements, on* event handler attributes and
// javascript: URLs. It is a second line of defence only.
func Sanitize(src string) string {
	if strings.TrimSpace(src) == "" {
		return ""
	}

	context := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(src), context)
	if err != nil {
		return Escape(src)
	}

	var buf bytes.Buffer
	for _, n := range nodes {
		if isScript(n) {
			continue
		}
		scrub(n)
		if err := html.Render(&buf, n); err != nil {
			return Escape(src)
		}
	}
	return buf.String()
}

func isScript(n *html.Node) bool {
	return n.Type == html.ElementNode && (n.DataAtom == atom.Script || strings.EqualFold(n.Data, "script"))
}

func scrub(n *html.Node) {
	if n.Type == html.ElementNode {
		kept := n.Attr[:0]
		for _, a := range n.Attr {
			if unsafeAttr(a) {
				continue
			}
			kept = append(kept, a)
		}
		n.Attr = kept
	}

	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if isScript(c) {
			n.RemoveChild(c)
		} else {
			scrub(c)
		}
		c = next
	}
}

func unsafeAttr(a html.Attribute) bool {
	key := strings.ToLower(a.Key)
	if strings.HasPrefix(key, "on") {
		return true
	}
	switch key {
	case "href", "src", "action", "formaction", "xlink:href":
		v := strings.ToLower(strings.Join(strings.Fields(a.Val), ""))
		return strings.HasPrefix(v, "javascript:")
	}
	return false
}
