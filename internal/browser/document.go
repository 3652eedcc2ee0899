package browser

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// maxOuterHTML bounds the markup kept for a reported node.
const maxOuterHTML = 250

// Document is a parsed HTML page together with the style sheets that apply
// to it. A Document is read-only after Parse and safe for concurrent reads.
type Document struct {
	// URL is the final URL of the page after redirects.
	URL *url.URL

	// StatusCode is the HTTP status of the page response.
	StatusCode int

	root        *html.Node
	styleSheets []string
}

// Parse parses HTML content. pageURL is used to resolve relative links.
func Parse(pageURL string, content io.Reader) (*Document, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid page URL: %w", err)
	}

	root, err := html.Parse(content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc := &Document{URL: u, root: root}
	for _, style := range doc.Elements("style") {
		doc.styleSheets = append(doc.styleSheets, style.Text())
	}
	return doc, nil
}

// AddStyleSheet appends the body of an external style sheet.
// It must be called before the document is shared.
func (d *Document) AddStyleSheet(css string) {
	d.styleSheets = append(d.styleSheets, css)
}

// StyleSheets returns inline <style> contents followed by any fetched
// external style sheets.
func (d *Document) StyleSheets() []string {
	out := make([]string, len(d.styleSheets))
	copy(out, d.styleSheets)
	return out
}

// Root returns the <html> element, or nil for an empty document.
func (d *Document) Root() *Element {
	var found *Element
	walk(d.root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == "html" {
			found = &Element{node: n}
			return false
		}
		return true
	})
	return found
}

// Body returns the <body> element, or nil.
func (d *Document) Body() *Element {
	bodies := d.Elements("body")
	if len(bodies) == 0 {
		return nil
	}
	return bodies[0]
}

// Title returns the trimmed text of the first <title> element.
func (d *Document) Title() string {
	titles := d.Elements("title")
	if len(titles) == 0 {
		return ""
	}
	return titles[0].Text()
}

// Elements returns all elements with one of the given tag names, in
// document order. No tags means every element.
func (d *Document) Elements(tags ...string) []*Element {
	return collect(d.root, tags)
}

// Filter returns all elements for which keep returns true, in document
// order.
func (d *Document) Filter(keep func(*Element) bool) []*Element {
	var out []*Element
	walk(d.root, func(n *html.Node) bool {
		if n.Type == html.ElementNode {
			if e := (&Element{node: n}); keep(e) {
				out = append(out, e)
			}
		}
		return true
	})
	return out
}

// ElementByID returns the first element with the given id.
func (d *Document) ElementByID(id string) *Element {
	if id == "" {
		return nil
	}
	var found *Element
	walk(d.root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && getAttr(n, "id") == id {
			found = &Element{node: n}
			return false
		}
		return true
	})
	return found
}

// Resolve resolves href against the document URL. It returns the empty
// string for hrefs that do not point at a fetchable resource.
func (d *Document) Resolve(href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "data:") {
		return ""
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if d.URL == nil {
		return u.String()
	}
	return d.URL.ResolveReference(u).String()
}

// LinkedStyleSheets returns the resolved URLs of <link rel="stylesheet">
// elements.
func (d *Document) LinkedStyleSheets() []string {
	var out []string
	for _, link := range d.Elements("link") {
		rels := strings.Fields(strings.ToLower(link.Attr("rel")))
		isSheet := false
		for _, r := range rels {
			if r == "stylesheet" {
				isSheet = true
			}
		}
		if !isSheet {
			continue
		}
		if href := d.Resolve(link.Attr("href")); href != "" {
			out = append(out, href)
		}
	}
	return out
}

// Element is a single element of a Document.
type Element struct {
	node *html.Node
}

// Tag returns the lower-case tag name.
func (e *Element) Tag() string {
	return e.node.Data
}

// Attr returns the value of an attribute, or the empty string.
func (e *Element) Attr(key string) string {
	return getAttr(e.node, key)
}

// HasAttr reports whether the attribute is present, even if empty.
func (e *Element) HasAttr(key string) bool {
	for _, a := range e.node.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

// Text returns the element's text content with whitespace collapsed.
func (e *Element) Text() string {
	var b strings.Builder
	walk(e.node, func(n *html.Node) bool {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		return true
	})
	return strings.Join(strings.Fields(b.String()), " ")
}

// Descendants returns descendant elements with one of the given tags.
func (e *Element) Descendants(tags ...string) []*Element {
	var out []*Element
	for c := e.node.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, collect(c, tags)...)
	}
	return out
}

// Closest returns the nearest ancestor with the given tag, or nil.
func (e *Element) Closest(tag string) *Element {
	for p := e.node.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && p.Data == tag {
			return &Element{node: p}
		}
	}
	return nil
}

// Selector returns a short CSS selector identifying the element.
func (e *Element) Selector() string {
	if id := e.Attr("id"); id != "" {
		return e.Tag() + "#" + id
	}

	var parts []string
	for n := e.node; n != nil && n.Type == html.ElementNode; n = n.Parent {
		index, total := 0, 0
		if n.Parent != nil {
			for s := n.Parent.FirstChild; s != nil; s = s.NextSibling {
				if s.Type == html.ElementNode && s.Data == n.Data {
					total++
					if s == n {
						index = total
					}
				}
			}
		}
		part := n.Data
		if total > 1 {
			part = fmt.Sprintf("%s:nth-of-type(%d)", n.Data, index)
		}
		parts = append([]string{part}, parts...)
		if n.Data == "body" || n.Data == "html" {
			break
		}
	}
	return strings.Join(parts, " > ")
}

// OuterHTML returns the element's markup, truncated.
func (e *Element) OuterHTML() string {
	var b strings.Builder
	if err := html.Render(&b, e.node); err != nil {
		return ""
	}
	s := b.String()
	if len(s) > maxOuterHTML {
		s = strings.ToValidUTF8(s[:maxOuterHTML], "") + "..."
	}
	return s
}

// walk visits n and its descendants in document order until visit returns
// false.
func walk(n *html.Node, visit func(*html.Node) bool) bool {
	if !visit(n) {
		return false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !walk(c, visit) {
			return false
		}
	}
	return true
}

func collect(root *html.Node, tags []string) []*Element {
	var out []*Element
	walk(root, func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return true
		}
		if len(tags) == 0 {
			out = append(out, &Element{node: n})
			return true
		}
		for _, t := range tags {
			if n.Data == t {
				out = append(out, &Element{node: n})
				break
			}
		}
		return true
	})
	return out
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
